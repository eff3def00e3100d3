package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/VyacheslavEvglevskii/employee-timesheet/bot"
	"github.com/VyacheslavEvglevskii/employee-timesheet/config"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/handlers"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/middleware"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/repository"
	"github.com/VyacheslavEvglevskii/employee-timesheet/internal/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logrus.Info("Config loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()
	}()

	workbook, err := initWorkbook(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to init spreadsheet backend: %v", err)
	}

	handler := initApplication(cfg, workbook)

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/mark", handler.HandleMark).Methods(http.MethodPost)
	api.HandleFunc("/employees", handler.HandleEmployees).Methods(http.MethodGet)
	api.HandleFunc("/last-mark", handler.HandleLastMark).Methods(http.MethodGet)
	router.HandleFunc("/health", handlers.HandleHealth).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(http.FileServer(http.Dir("public")))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Chain(router, middleware.RequestID, middleware.AccessLog),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Server failed: %v", err)
		}
	}()

	// verify workbook connectivity after startup; a failure here is an
	// operational warning, the next request retries anyway
	go func() {
		pingCtx, pingCancel := context.WithTimeout(ctx, 30*time.Second)
		defer pingCancel()
		if err := workbook.Ping(pingCtx); err != nil {
			logrus.WithError(err).Warn("spreadsheet connectivity check failed")
			return
		}
		logrus.Info("Spreadsheet connection verified")
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
}

// pingableWorkbook is what both backends provide: row access plus a
// startup connectivity check.
type pingableWorkbook interface {
	repository.Workbook
	Ping(ctx context.Context) error
}

func initWorkbook(ctx context.Context, cfg *config.Config) (pingableWorkbook, error) {
	switch cfg.Backend {
	case config.BackendSheets:
		return repository.NewGoogleSheetsWorkbook(ctx, repository.SheetsConfig{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
	default:
		return repository.NewGraphWorkbook(repository.GraphConfig{
			ClientID:     cfg.MSClientID,
			TenantID:     cfg.MSTenantID,
			ClientSecret: cfg.MSClientSecret,
			ShareURL:     cfg.MSShareURL,
		}), nil
	}
}

// initApplication wires repositories, the notifier and the service
func initApplication(cfg *config.Config, workbook repository.Workbook) *handlers.AttendanceHandler {
	events := repository.NewSheetEventRepository(workbook)
	roster := repository.NewSheetRosterRepository(workbook)
	schedule := repository.NewSheetScheduleRepository(workbook)

	var notifier services.Notifier = bot.Disabled{}
	if cfg.TelegramBotToken != "" && cfg.AdminChatID != "" {
		b, err := bot.Init(cfg.TelegramBotToken, cfg.AdminChatID)
		if err != nil {
			logrus.WithError(err).Warn("Telegram notifications disabled")
		} else {
			notifier = b
		}
	}

	service := services.NewAttendanceService(events, roster, schedule, notifier)
	return handlers.NewAttendanceHandler(service)
}
