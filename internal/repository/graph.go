package repository

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/clientcredentials"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// GraphConfig holds the Azure AD application credentials and the share link
// of the workbook in OneDrive.
type GraphConfig struct {
	ClientID     string
	TenantID     string
	ClientSecret string
	ShareURL     string
}

// GraphWorkbook implements Workbook over the Microsoft Graph workbook API.
// Tokens are acquired with the client-credential flow and cached by the
// oauth2 transport; the resolved drive/item location is memoized under a
// mutex and recomputed only after a process restart.
type GraphWorkbook struct {
	shareURL   string
	baseURL    string
	httpClient *http.Client

	mu      sync.Mutex
	driveID string
	itemID  string
}

func NewGraphWorkbook(cfg GraphConfig) *GraphWorkbook {
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	client := cc.Client(context.Background())
	client.Timeout = 30 * time.Second
	return &GraphWorkbook{
		shareURL:   cfg.ShareURL,
		baseURL:    graphBaseURL,
		httpClient: client,
	}
}

// shareID encodes a OneDrive share URL into the sharing token Graph expects:
// "u!" + unpadded base64url of the link.
func shareID(shareURL string) string {
	return "u!" + base64.RawURLEncoding.EncodeToString([]byte(shareURL))
}

// Ping resolves the workbook location, verifying credentials and the share
// link. Called once at startup; failure there is logged, not fatal.
func (g *GraphWorkbook) Ping(ctx context.Context) error {
	_, _, err := g.driveInfo(ctx)
	return err
}

func (g *GraphWorkbook) driveInfo(ctx context.Context) (string, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.driveID != "" && g.itemID != "" {
		return g.driveID, g.itemID, nil
	}

	apiURL := fmt.Sprintf("%s/shares/%s/driveItem", g.baseURL, shareID(g.shareURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("resolve drive item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", graphError("resolve drive item", resp)
	}

	var item struct {
		ID              string `json:"id"`
		ParentReference struct {
			DriveID string `json:"driveId"`
		} `json:"parentReference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return "", "", fmt.Errorf("decode drive item: %w", err)
	}
	if item.ID == "" || item.ParentReference.DriveID == "" {
		return "", "", fmt.Errorf("drive item response missing driveId/itemId")
	}

	g.driveID = item.ParentReference.DriveID
	g.itemID = item.ID
	return g.driveID, g.itemID, nil
}

func (g *GraphWorkbook) worksheetURL(ctx context.Context, sheet string) (string, error) {
	driveID, itemID, err := g.driveInfo(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/drives/%s/items/%s/workbook/worksheets/%s",
		g.baseURL, driveID, itemID, url.PathEscape(sheet)), nil
}

func (g *GraphWorkbook) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	base, err := g.worksheetURL(ctx, sheet)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/usedRange", nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// missing or empty worksheet
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, graphError(fmt.Sprintf("read sheet %q", sheet), resp)
	}

	var rangeData struct {
		Values [][]interface{} `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rangeData); err != nil {
		return nil, fmt.Errorf("decode sheet %q: %w", sheet, err)
	}
	return stringifyRows(rangeData.Values), nil
}

func (g *GraphWorkbook) AppendRow(ctx context.Context, sheet string, cells []string) (int, error) {
	base, err := g.worksheetURL(ctx, sheet)
	if err != nil {
		return 0, err
	}

	// The workbook API has no append call, so find the last used row first.
	lastRow := 1
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/usedRange", nil)
	if err != nil {
		return 0, err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("read used range of %q: %w", sheet, err)
	}
	if resp.StatusCode == http.StatusOK {
		var used struct {
			RowCount int `json:"rowCount"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&used); err != nil {
			resp.Body.Close()
			return 0, fmt.Errorf("decode used range of %q: %w", sheet, err)
		}
		lastRow = used.RowCount + 1
	}
	resp.Body.Close()

	endCol, err := excelize.ColumnNumberToName(len(cells))
	if err != nil {
		return 0, err
	}
	address := fmt.Sprintf("A%d:%s%d", lastRow, endCol, lastRow)

	row := make([]interface{}, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	if err := g.patchRange(ctx, base, sheet, address, [][]interface{}{row}); err != nil {
		return 0, err
	}
	return lastRow, nil
}

func (g *GraphWorkbook) WriteCell(ctx context.Context, sheet, address, value string) error {
	base, err := g.worksheetURL(ctx, sheet)
	if err != nil {
		return err
	}
	return g.patchRange(ctx, base, sheet, address, [][]interface{}{{value}})
}

func (g *GraphWorkbook) patchRange(ctx context.Context, base, sheet, address string, values [][]interface{}) error {
	writeURL := fmt.Sprintf("%s/range(address='%s')", base, address)

	body, err := json.Marshal(map[string]interface{}{"values": values})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, writeURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("write range %s of %q: %w", address, sheet, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return graphError(fmt.Sprintf("write range %s of %q", address, sheet), resp)
	}
	return nil
}

// graphError classifies an unexpected Graph response. The body is truncated:
// it is useful in logs but must never reach clients verbatim.
func graphError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, resp.Status)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w: %s", op, ErrForbidden, resp.Status)
	}
	if detail != "" {
		return fmt.Errorf("%s: %s - %s", op, resp.Status, detail)
	}
	return fmt.Errorf("%s: %s", op, resp.Status)
}
