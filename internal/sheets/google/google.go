package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gastos/internal/core"
	ports "gastos/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when Config.SheetName is empty.
const DefaultSheetName = "Gastos"

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes the read-then-write row lookup so two writers never pick
	// the same free row.
	mu sync.Mutex
}

var (
	_ ports.MonthWriter = (*Client)(nil)
	_ ports.MonthReader = (*Client)(nil)
)

// New creates a Sheets client authenticated with a service account. When
// neither credential field is set, GOOGLE_APPLICATION_CREDENTIALS is used.
func New(ctx context.Context, cfg Config) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// UpsertMonth overwrites the user's row for key, appending a new row when
// none exists yet. The header row is written on first use.
func (c *Client) UpsertMonth(ctx context.Context, uid int64, key core.MonthKey, m core.Month) (string, error) {
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.readKeys(ctx)
	if err != nil {
		return "", err
	}

	if len(existing) == 0 {
		if err := c.writeRow(ctx, 1, toInterfaces(header())); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		existing = [][]interface{}{toInterfaces(header())}
	}

	row := findMonthRow(existing, uid, key)
	if row == 0 {
		row = len(existing) + 1
	}
	if err := c.writeRow(ctx, row, rowValues(uid, key, m)); err != nil {
		return "", err
	}

	ref := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, row, lastColumn, row)
	slog.DebugContext(ctx, "Month row written", "uid", uid, "month", key, "ref", ref)
	return ref, nil
}

// ClearMonth blanks the user's row for key. The row itself is kept so other
// row numbers stay stable.
func (c *Client) ClearMonth(ctx context.Context, uid int64, key core.MonthKey) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.readKeys(ctx)
	if err != nil {
		return err
	}
	row := findMonthRow(existing, uid, key)
	if row == 0 {
		return nil
	}
	rng := c.rangeFor(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Month row cleared", "uid", uid, "month", key, "row", row)
	return nil
}

// ReadMonths returns every month the sheet holds for uid.
func (c *Client) ReadMonths(ctx context.Context, uid int64) (map[core.MonthKey]core.Month, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.rangeFor("A:" + lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseMonthRows(resp.Values, uid)
}

func (c *Client) readKeys(ctx context.Context) ([][]interface{}, error) {
	rng := c.rangeFor("A:B")
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRow(ctx context.Context, row int, values []interface{}) error {
	rng := c.rangeFor(fmt.Sprintf("A%d:%s%d", row, lastColumn, row))
	vr := &gsheet.ValueRange{Values: [][]interface{}{values}}
	// RAW keeps "2025-01" from being turned into a date.
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func (c *Client) rangeFor(cells string) string {
	return fmt.Sprintf("'%s'!%s", strings.ReplaceAll(c.sheetName, "'", "''"), cells)
}
