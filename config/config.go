// Package config loads application settings from the environment
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Backend selects which spreadsheet service owns the data
const (
	BackendGraph  = "graph"
	BackendSheets = "sheets"
)

type Config struct {
	Port    string
	Backend string

	// Microsoft Graph (OneDrive Excel workbook)
	MSClientID     string
	MSTenantID     string
	MSClientSecret string
	MSShareURL     string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Optional Telegram admin notifications
	TelegramBotToken string
	AdminChatID      string
}

// LoadConfig reads .env when present, then the environment. Missing required
// variables for the selected backend are a startup error.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	}

	cfg := &Config{
		Port:                  getEnv("PORT", "3000"),
		Backend:               strings.ToLower(getEnv("SPREADSHEET_BACKEND", BackendGraph)),
		MSClientID:            os.Getenv("MS_CLIENT_ID"),
		MSTenantID:            os.Getenv("MS_TENANT_ID"),
		MSClientSecret:        os.Getenv("MS_CLIENT_SECRET"),
		MSShareURL:            os.Getenv("MS_SHARE_URL"),
		GoogleSpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_CREDENTIALS_FILE"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminChatID:           os.Getenv("ADMIN_CHAT_ID"),
	}

	var missing []string
	switch cfg.Backend {
	case BackendGraph:
		for _, v := range []struct{ name, value string }{
			{"MS_CLIENT_ID", cfg.MSClientID},
			{"MS_TENANT_ID", cfg.MSTenantID},
			{"MS_CLIENT_SECRET", cfg.MSClientSecret},
			{"MS_SHARE_URL", cfg.MSShareURL},
		} {
			if v.value == "" {
				missing = append(missing, v.name)
			}
		}
	case BackendSheets:
		if cfg.GoogleSpreadsheetID == "" {
			missing = append(missing, "GOOGLE_SPREADSHEET_ID")
		}
	default:
		return nil, fmt.Errorf("unknown SPREADSHEET_BACKEND %q (want %q or %q)", cfg.Backend, BackendGraph, BackendSheets)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultVal
}
