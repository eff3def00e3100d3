package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig holds the Google Sheets backend settings. Credentials come
// either from a service-account key file or from inline JSON.
type SheetsConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	CredentialsJSON string
}

// GoogleSheetsWorkbook implements Workbook over the Google Sheets API
type GoogleSheetsWorkbook struct {
	svc           *sheets.Service
	spreadsheetID string
}

func NewGoogleSheetsWorkbook(ctx context.Context, cfg SheetsConfig) (*GoogleSheetsWorkbook, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleSheetsWorkbook{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// Ping fetches spreadsheet metadata to verify credentials and the ID
func (w *GoogleSheetsWorkbook) Ping(ctx context.Context) error {
	_, err := w.svc.Spreadsheets.Get(w.spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return classifySheetsError("get spreadsheet", err)
	}
	return nil
}

func (w *GoogleSheetsWorkbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := w.svc.Spreadsheets.Values.Get(w.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		// a worksheet that does not exist reads as empty, like the
		// Graph backend
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == http.StatusBadRequest || gerr.Code == http.StatusNotFound) {
			return nil, nil
		}
		return nil, classifySheetsError(fmt.Sprintf("read sheet %q", sheet), err)
	}
	return stringifyRows(resp.Values), nil
}

func (w *GoogleSheetsWorkbook) AppendRow(ctx context.Context, sheet string, cells []string) (int, error) {
	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	resp, err := w.svc.Spreadsheets.Values.
		Append(w.spreadsheetID, sheet+"!A1", &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, classifySheetsError(fmt.Sprintf("append to sheet %q", sheet), err)
	}
	if resp.Updates == nil {
		return 0, nil
	}
	return rangeFirstRow(resp.Updates.UpdatedRange), nil
}

func (w *GoogleSheetsWorkbook) WriteCell(ctx context.Context, sheet, address, value string) error {
	_, err := w.svc.Spreadsheets.Values.
		Update(w.spreadsheetID, fmt.Sprintf("%s!%s", sheet, address), &sheets.ValueRange{Values: [][]interface{}{{value}}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return classifySheetsError(fmt.Sprintf("write cell %s of %q", address, sheet), err)
	}
	return nil
}

// rangeFirstRow extracts the starting row number from an A1 range like
// "Events!A5:I5". Returns 0 when the range cannot be parsed.
func rangeFirstRow(a1 string) int {
	if i := strings.IndexByte(a1, '!'); i >= 0 {
		a1 = a1[i+1:]
	}
	if i := strings.IndexByte(a1, ':'); i >= 0 {
		a1 = a1[:i]
	}
	digits := strings.TrimLeft(a1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

func classifySheetsError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized:
			return fmt.Errorf("%s: %w: %v", op, ErrUnauthorized, gerr.Message)
		case http.StatusForbidden:
			return fmt.Errorf("%s: %w: %v", op, ErrForbidden, gerr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
