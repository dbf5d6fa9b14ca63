// Package sheet reads invoice rows from, and writes completion markers to,
// the Google spreadsheet that feeds the automation.
package sheet

import (
	"context"
	"fmt"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/xkilldash9x/taxgo/internal/config"
)

// Store is the cell-level access the Book needs.
type Store interface {
	// ReadRange returns the rows of an A1 range. Trailing empty cells are omitted.
	ReadRange(ctx context.Context, a1 string) ([][]string, error)
	// WriteCell writes value to a single cell as raw input.
	WriteCell(ctx context.Context, a1, value string) error
}

// Client is a Store backed by the Sheets v4 API with service-account credentials.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
	limiter       *rate.Limiter
	logger        *zap.Logger
}

var _ Store = (*Client)(nil)

// NewClient creates a Client for cfg.SpreadsheetID. Every API call waits on
// a limiter of cfg.RequestsPerMinute.
func NewClient(ctx context.Context, cfg config.SheetConfig, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	credentials, err := homedir.Expand(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to expand credentials path: %w", err)
	}
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		limiter:       newLimiter(cfg.RequestsPerMinute),
		logger:        logger.Named("sheet"),
	}, nil
}

func newLimiter(perMinute float64) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perMinute/60), 1)
}

func (c *Client) ReadRange(ctx context.Context, a1 string) ([][]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, a1).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a1, err)
	}
	c.logger.Debug("range read", zap.String("range", a1), zap.Int("rows", len(resp.Values)))
	return toStrings(resp.Values), nil
}

func (c *Client) WriteCell(ctx context.Context, a1, value string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1, &sheets.ValueRange{
		Values: [][]interface{}{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", a1, err)
	}
	return nil
}

func toStrings(values [][]interface{}) [][]string {
	rows := make([][]string, len(values))
	for i, row := range values {
		rows[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				rows[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return rows
}
