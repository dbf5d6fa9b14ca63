package sheet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/taxgo/internal/config"
)

// ErrNoActiveRow means no invoice row is flagged for issuing.
var ErrNoActiveRow = errors.New("no invoice row flagged Y")

// Invoice sheet columns, zero-based.
const (
	colAlias     = 1  // B
	colCompany   = 2  // C
	colBizNo     = 3  // D
	colEmail     = 4  // E
	colWriteDate = 5  // F
	colDay       = 7  // H
	colTotal     = 8  // I
	colItem      = 9  // J
	colQty       = 11 // L
	colPrice     = 12 // M
	colSupply    = 13 // N
	colTax       = 14 // O
	colClaim     = 16 // Q
	colFlag      = 17 // R

	flagColumn = "R"
)

// Buyer directory columns, zero-based.
const (
	dirAlias   = 0 // A
	dirCompany = 1 // B
	dirRep     = 3 // D
)

// Invoice is one row of the invoice sheet.
type Invoice struct {
	// Row is the 1-based sheet row number.
	Row            int
	Alias          string
	Company        string
	BizNoRaw       string
	BizNo          string
	Email          string
	WriteDate      string
	Day            string
	Total          string
	Item           string
	Qty            string
	Price          string
	Supply         string
	Tax            string
	ClaimOrReceipt string
	Flag           string

	// Buyer is the directory entry matching Alias, if any.
	Buyer *Buyer
}

// Buyer is one row of the buyer directory.
type Buyer struct {
	Alias          string
	Company        string
	Representative string
}

// Book maps the spreadsheet's invoice and buyer tabs onto records.
type Book struct {
	store  Store
	cfg    config.SheetConfig
	logger *zap.Logger
}

// NewBook creates a Book over store.
func NewBook(store Store, cfg config.SheetConfig, logger *zap.Logger) *Book {
	return &Book{store: store, cfg: cfg, logger: logger.Named("book")}
}

// ActiveInvoice returns the first data row whose flag column is Y or y,
// joined with its buyer directory entry. Both tabs are read concurrently.
func (b *Book) ActiveInvoice(ctx context.Context) (*Invoice, error) {
	var invoices, directory [][]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := b.store.ReadRange(gctx, b.cfg.InvoiceRange)
		invoices = rows
		return err
	})
	g.Go(func() error {
		rows, err := b.store.ReadRange(gctx, b.cfg.BuyerRange)
		directory = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet: %w", err)
	}

	firstRow := startRow(b.cfg.InvoiceRange)
	// Row 0 of the range is the header.
	for i := 1; i < len(invoices); i++ {
		inv := parseInvoice(invoices[i])
		if !strings.EqualFold(inv.Flag, "Y") {
			continue
		}
		inv.Row = firstRow + i
		inv.Buyer = findBuyer(directory, inv.Alias)
		b.logger.Info("발행 대상 행",
			zap.Int("row", inv.Row),
			zap.String("alias", inv.Alias),
			zap.String("company", inv.Company),
			zap.Bool("buyer_found", inv.Buyer != nil),
		)
		return &inv, nil
	}
	return nil, ErrNoActiveRow
}

// MarkIssued writes the completion marker for row, e.g. 발급완료_251228.
func (b *Book) MarkIssued(ctx context.Context, row int, now time.Time) (string, error) {
	if row <= 0 {
		return "", fmt.Errorf("invalid sheet row %d", row)
	}
	value := CompletionMarker(now)
	cell := fmt.Sprintf("%s%s%d", sheetPrefix(b.cfg.InvoiceRange), flagColumn, row)
	if err := b.store.WriteCell(ctx, cell, value); err != nil {
		return "", err
	}
	b.logger.Info("시트 완료 표시", zap.String("cell", cell), zap.String("value", value))
	return value, nil
}

// CompletionMarker is the flag-column value written once an invoice is issued.
func CompletionMarker(now time.Time) string {
	return "발급완료_" + now.Format("060102")
}

func parseInvoice(row []string) Invoice {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	return Invoice{
		Alias:          get(colAlias),
		Company:        get(colCompany),
		BizNoRaw:       get(colBizNo),
		BizNo:          digitsOnly(get(colBizNo)),
		Email:          get(colEmail),
		WriteDate:      get(colWriteDate),
		Day:            get(colDay),
		Total:          get(colTotal),
		Item:           get(colItem),
		Qty:            get(colQty),
		Price:          get(colPrice),
		Supply:         get(colSupply),
		Tax:            get(colTax),
		ClaimOrReceipt: get(colClaim),
		Flag:           get(colFlag),
	}
}

// findBuyer looks up alias in the directory, skipping its header row. An
// entry with neither a company nor a representative counts as missing.
func findBuyer(directory [][]string, alias string) *Buyer {
	if alias == "" {
		return nil
	}
	for i := 1; i < len(directory); i++ {
		row := directory[i]
		get := func(j int) string {
			if j < len(row) {
				return strings.TrimSpace(row[j])
			}
			return ""
		}
		if get(dirAlias) != alias {
			continue
		}
		buyer := &Buyer{Alias: alias, Company: get(dirCompany), Representative: get(dirRep)}
		if buyer.Company == "" && buyer.Representative == "" {
			continue
		}
		return buyer
	}
	return nil
}

// sheetPrefix returns "name!" of an A1 range, or "" when it has no sheet name.
func sheetPrefix(a1 string) string {
	if i := strings.LastIndex(a1, "!"); i >= 0 {
		return a1[:i+1]
	}
	return ""
}

// startRow returns the first row number of an A1 range; column-only ranges start at 1.
func startRow(a1 string) int {
	cells := strings.TrimPrefix(a1, sheetPrefix(a1))
	start, _, _ := strings.Cut(cells, ":")
	digits := strings.TrimLeftFunc(start, unicode.IsLetter)
	if n, err := strconv.Atoi(digits); err == nil && n > 0 {
		return n
	}
	return 1
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
