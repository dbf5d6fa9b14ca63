package hometax

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/field"
)

// NormalizeDate reduces a sheet date to yyyyMMdd digits. Six digits are
// read as yyMMdd in the 2000s; anything else is returned as its digits.
func NormalizeDate(s string) string {
	digits := field.DigitsOnly(s)
	if len(digits) == 6 {
		return "20" + digits
	}
	return digits
}

// FormatDate renders yyyyMMdd as yyyy-MM-dd, the format the date input
// accepts. Other inputs are returned unchanged.
func FormatDate(digits string) string {
	if len(digits) != 8 {
		return digits
	}
	return digits[:4] + "-" + digits[4:6] + "-" + digits[6:]
}

// FillWriteDate types the issue date.
func (p *Portal) FillWriteDate(ctx context.Context, date string) error {
	normalized := NormalizeDate(date)
	if normalized == "" {
		p.logger.Warn("작성일자가 비어 있어 입력을 건너뜁니다")
		return nil
	}
	value := FormatDate(normalized)
	err := p.fields.Set(ctx, writeDateSelector, value, field.Options{
		Locate:   p.optional(p.timeouts.Field),
		KeyDelay: defaultKeyDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to fill write date: %w", err)
	}
	p.logger.Info("작성일자 입력 완료", zap.String("date", value))
	return nil
}

// Item is the first line of the invoice. Supply amount and tax are
// computed by the page.
type Item struct {
	Day   string
	Name  string
	Qty   string
	Price string
}

// ItemRow is the first line as the form shows it after entry.
type ItemRow struct {
	Item
	Supply string
	Tax    string
	Remark string
}

// FillItem writes the first item line and reads it back.
func (p *Portal) FillItem(ctx context.Context, item Item) (ItemRow, error) {
	el, err := p.loc.Locate(ctx, itemDaySelector, p.optional(p.timeouts.Field))
	if err != nil {
		return ItemRow{}, err
	}
	if el == nil {
		p.logger.Warn("품목 행을 찾지 못했습니다")
		return ItemRow{}, nil
	}

	opts := p.textOptions(fastKeyDelay)
	for _, f := range []struct{ sel, value string }{
		{itemDaySelector, item.Day},
		{itemNameSelector, item.Name},
		{itemQtySelector, item.Qty},
		{itemPriceSelector, item.Price},
	} {
		if err := p.fields.Set(ctx, f.sel, f.value, opts); err != nil {
			return ItemRow{}, fmt.Errorf("failed to fill item field %s: %w", f.sel, err)
		}
	}
	p.logger.Info("품목 입력 완료",
		zap.String("day", item.Day),
		zap.String("item", item.Name),
		zap.String("qty", item.Qty),
		zap.String("price", item.Price),
	)
	return p.ReadItem(ctx)
}

// ReadItem reads back the first item line and logs it.
func (p *Portal) ReadItem(ctx context.Context) (ItemRow, error) {
	el, err := p.loc.Locate(ctx, itemDaySelector, p.optional(p.timeouts.Field))
	if err != nil || el == nil {
		return ItemRow{}, err
	}
	f := el.Frame
	row := ItemRow{
		Item: Item{
			Day:   controlValue(ctx, f, itemDaySelector),
			Name:  controlValue(ctx, f, itemNameSelector),
			Qty:   controlValue(ctx, f, itemQtySelector),
			Price: controlValue(ctx, f, itemPriceSelector),
		},
		Supply: controlValue(ctx, f, itemSupplySelector),
		Tax:    controlValue(ctx, f, itemTaxSelector),
		Remark: controlValue(ctx, f, itemRemarkSelector),
	}
	p.logger.Info("품목 입력값 확인",
		zap.String("day", row.Day),
		zap.String("item", row.Name),
		zap.String("qty", row.Qty),
		zap.String("price", row.Price),
		zap.String("supply", row.Supply),
		zap.String("tax", row.Tax),
		zap.String("remark", row.Remark),
	)
	return row, nil
}

// ReceiptKind values as written in the sheet.
const (
	ReceiptClaim = "청구"
	ReceiptPaid  = "영수"
)

// SelectReceiptKind sets the claim/receipt radio. An empty kind or one
// naming 청구 selects 청구; any other value selects 영수. The radio is only
// clicked when not already checked.
func (p *Portal) SelectReceiptKind(ctx context.Context, kind string) error {
	group, err := p.loc.Locate(ctx, receiptGroupSelector, p.optional(p.timeouts.Field))
	if err != nil {
		return err
	}
	if group == nil {
		p.logger.Warn("청구/영수 라디오 그룹을 찾지 못했습니다")
		return nil
	}

	sel, label := receiptClaimSelector, ReceiptClaim
	if kind = strings.TrimSpace(kind); kind != "" && !strings.Contains(kind, ReceiptClaim) {
		sel, label = receiptPaidSelector, ReceiptPaid
	}

	var checked *bool
	if err := group.Frame.Call(ctx, &checked, CheckedScript, sel); err != nil {
		return err
	}
	if checked != nil && *checked {
		p.logger.Info("청구/영수 라디오가 이미 설정되어 있습니다", zap.String("kind", label))
		return nil
	}
	if err := group.Frame.Click(ctx, sel); err != nil {
		return err
	}
	if err := group.Frame.Dispatch(ctx, sel, "change"); err != nil {
		return err
	}
	p.logger.Info("청구/영수 라디오 설정", zap.String("kind", label))
	return nil
}

// Totals are the summary amounts of the form. Empty values read "-".
type Totals struct {
	Total  string
	Supply string
	Tax    string
}

// ReadTotals reads the summary amounts and logs them.
func (p *Portal) ReadTotals(ctx context.Context) (Totals, error) {
	el, err := p.loc.Locate(ctx, totalAmountSelector, p.optional(p.timeouts.Field))
	if err != nil {
		return Totals{}, err
	}
	if el == nil {
		p.logger.Warn("합계/공급가액/세액 영역을 찾지 못했습니다")
		return Totals{Total: "-", Supply: "-", Tax: "-"}, nil
	}
	read := func(sel string) string {
		text, err := el.Frame.Text(ctx, sel)
		if err != nil {
			return "-"
		}
		return dashIfEmpty(text)
	}
	t := Totals{
		Total:  read(totalAmountSelector),
		Supply: read(totalSupplySelector),
		Tax:    read(totalTaxSelector),
	}
	p.logger.Info("합계/공급가액/세액",
		zap.String("합계금액", t.Total),
		zap.String("공급가액", t.Supply),
		zap.String("세액", t.Tax),
	)
	return t, nil
}

// Issue presses the issue button.
func (p *Portal) Issue(ctx context.Context) error {
	el, err := p.loc.Locate(ctx, issueButtonSelector, p.opts(p.timeouts.Field))
	if err != nil {
		return fmt.Errorf("issue button not found: %w", err)
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	p.logger.Info("발급하기 버튼 클릭 완료")
	return nil
}
