package hometax

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/browser/field"
)

const (
	defaultKeyDelay = 50 * time.Millisecond
	fastKeyDelay    = 30 * time.Millisecond
)

// FillBuyerBizNo types the buyer's registration number, verifies it digit
// by digit and presses the lookup button. A number that does not read back
// correctly after one retype is left for the operator and the lookup is skipped.
func (p *Portal) FillBuyerBizNo(ctx context.Context, bizNo string) error {
	if bizNo == "" {
		p.logger.Warn("공급받는자 등록번호가 없어 입력을 건너뜁니다")
		return nil
	}

	err := p.fields.Set(ctx, buyerBizNoSelector, bizNo, field.Options{
		Locate:       p.opts(p.timeouts.Buyer),
		KeyDelay:     defaultKeyDelay,
		ExtraEvents:  []string{"keyup"},
		ComponentAPI: true,
		Normalize:    field.DigitsOnly,
		SettleDelay:  p.waits.bizNoSettle,
	})
	if driver.KindOf(err) == driver.KindValidationMismatch {
		p.logger.Warn("등록번호 검증 실패, 확인 클릭을 건너뜁니다", zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fill buyer registration number: %w", err)
	}
	p.logger.Info("공급받는자 등록번호 입력 완료", zap.String("biz_no", field.DigitsOnly(bizNo)))

	confirm, err := p.loc.Locate(ctx, buyerBizNoConfirmSelector, p.optional(p.timeouts.Field))
	if err != nil {
		return err
	}
	if confirm == nil {
		p.logger.Warn("공급받는자 확인 버튼을 찾지 못했습니다")
		return nil
	}
	if err := p.Pause(ctx, p.waits.confirmSettle); err != nil {
		return err
	}
	if err := confirm.Click(ctx); err != nil {
		return err
	}
	p.logger.Info("공급받는자 등록번호 확인 클릭")
	return nil
}

// SelectBranch handles the branch picker that appears for buyers with
// several places of business. The grid is written to the log; the first row
// whose text contains company is chosen. A missing popup is not an error.
func (p *Portal) SelectBranch(ctx context.Context, company string) error {
	popup, err := p.loc.Locate(ctx, branchPopupSelector, p.optional(p.waits.branchPopup))
	if err != nil {
		return err
	}
	if popup == nil {
		p.logger.Info("종사업장 선택 팝업이 없어 건너뜁니다")
		return nil
	}
	frame := popup.Frame

	idx := -1
	polls := int(p.waits.branchTable / p.waits.certPoll)
	for i := 0; ; i++ {
		g, err := readGrid(ctx, frame, branchGridSelector)
		if err != nil && !driver.IsNotFound(err) {
			return err
		}
		if i == 0 {
			p.logBranchGrid(g)
		}
		idx = findRow(g, company)
		if idx >= 0 || i >= polls {
			break
		}
		if err := p.Pause(ctx, p.waits.certPoll); err != nil {
			return err
		}
	}
	if idx < 0 {
		p.logger.Warn("상호가 포함된 종사업장 행을 찾지 못했습니다", zap.String("company", company))
		return nil
	}

	if err := clickNth(ctx, frame, branchRowSelector, idx, `input[type="radio"], input`); err != nil {
		return err
	}
	p.logger.Info("종사업장 행 선택", zap.Int("index", idx), zap.String("company", company))

	found, err := frame.Exists(ctx, branchConfirmSelector, false)
	if err != nil {
		return err
	}
	if !found {
		p.logger.Warn("종사업장 선택 버튼을 찾지 못했습니다")
		return nil
	}
	return frame.Click(ctx, branchConfirmSelector)
}

func (p *Portal) logBranchGrid(g grid) {
	p.logger.Info("종사업장 선택 팝업", zap.String("header", strings.Join(g.Header, " | ")), zap.Int("rows", len(g.Rows)))
	for i, r := range g.Rows {
		p.logger.Info("종사업장", zap.Int("index", i), zap.String("row", strings.Join(r.Cells, " | ")))
	}
}

func findRow(g grid, text string) int {
	if text == "" {
		return -1
	}
	for i, r := range g.Rows {
		if strings.Contains(r.Text(), text) {
			return i
		}
	}
	return -1
}

// FillBuyerEmail writes the buyer's address into the id and domain inputs,
// switching the domain selector to direct input first.
func (p *Portal) FillBuyerEmail(ctx context.Context, email string) error {
	local, domain, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" || domain == "" {
		p.logger.Info("이메일이 없거나 형식이 잘못되어 입력을 건너뜁니다", zap.String("email", email))
		return nil
	}

	el, err := p.loc.Locate(ctx, emailIDSelector, p.optional(p.timeouts.Field))
	if err != nil {
		return err
	}
	if el == nil {
		p.logger.Warn("이메일 입력 필드를 찾지 못했습니다")
		return nil
	}

	if err := p.fields.Select(ctx, emailDomainCtlSelector, emailDirectInputLabel, p.optional(p.timeouts.Field)); err != nil {
		if !driver.IsNotFound(err) {
			return err
		}
		p.logger.Debug("직접입력 옵션 선택 실패", zap.Error(err))
	}

	opts := p.textOptions(fastKeyDelay)
	if err := p.fields.Set(ctx, emailIDSelector, local, opts); err != nil {
		return err
	}
	if err := p.fields.Set(ctx, emailDomainSelector, domain, opts); err != nil {
		return err
	}
	p.logger.Info("이메일 입력 완료", zap.String("email", local+"@"+domain))
	return nil
}

// FillBuyerNames writes the company and representative names. Empty and "-"
// values keep whatever the registration lookup filled in.
func (p *Portal) FillBuyerNames(ctx context.Context, company, representative string) error {
	for _, f := range []struct{ sel, value, label string }{
		{buyerCompanySelector, company, "상호"},
		{buyerRepSelector, representative, "성명"},
	} {
		if isBlank(f.value) {
			continue
		}
		if err := p.fields.Set(ctx, f.sel, f.value, p.textOptions(defaultKeyDelay)); err != nil {
			return fmt.Errorf("failed to fill %s: %w", f.label, err)
		}
		p.logger.Info(f.label+" 입력 완료", zap.String("value", f.value))
	}
	return nil
}

// textOptions are used for free-text inputs that may be absent on some forms.
func (p *Portal) textOptions(delay time.Duration) field.Options {
	return field.Options{
		Locate:      p.optional(p.timeouts.Field),
		KeyDelay:    delay,
		ExtraEvents: []string{"keyup"},
	}
}

// BuyerRecord is the buyer section as the form shows it. Empty fields read "-".
type BuyerRecord struct {
	BizNo     string
	SubBranch string
	Company   string
	Rep       string
	Address   string
	BizType   string
	BizItem   string
	Email     string
	Email2    string
}

// ReadBuyer reads back the buyer section and logs it.
func (p *Portal) ReadBuyer(ctx context.Context) (BuyerRecord, error) {
	el, err := p.loc.Locate(ctx, buyerBizNoSelector, p.optional(p.timeouts.Field))
	if err != nil {
		return BuyerRecord{}, err
	}
	if el == nil {
		p.logger.Info("공급받는자 영역을 찾지 못했습니다")
		return BuyerRecord{}, nil
	}
	f := el.Frame
	rec := BuyerRecord{
		BizNo:     controlValue(ctx, f, buyerBizNoSelector),
		SubBranch: controlValue(ctx, f, buyerSubBranchSelector),
		Company:   controlValue(ctx, f, buyerCompanySelector),
		Rep:       controlValue(ctx, f, buyerRepSelector),
		Address:   controlValue(ctx, f, buyerAddressSelector),
		BizType:   controlValue(ctx, f, buyerBizTypeSelector),
		BizItem:   controlValue(ctx, f, buyerBizItemSelector),
		Email:     joinEmail(controlValue(ctx, f, emailIDSelector), controlValue(ctx, f, emailDomainSelector), controlValue(ctx, f, emailDomainCtlSelector)),
		Email2:    joinEmail(controlValue(ctx, f, email2IDSelector), controlValue(ctx, f, email2DomainSelector), controlValue(ctx, f, email2DomainCtlSelector)),
	}
	p.logger.Info("공급받는자 입력값",
		zap.String("등록번호", rec.BizNo),
		zap.String("종사업장번호", rec.SubBranch),
		zap.String("상호", rec.Company),
		zap.String("성명", rec.Rep),
		zap.String("사업장", rec.Address),
		zap.String("업태", rec.BizType),
		zap.String("종목", rec.BizItem),
		zap.String("이메일1", rec.Email),
		zap.String("이메일2", rec.Email2),
	)
	return rec, nil
}

// joinEmail prefers the typed domain over the selector's label.
func joinEmail(id, domainInput, domainSelect string) string {
	domain := domainInput
	if domain == "-" {
		domain = domainSelect
	}
	if id == "-" || domain == "-" {
		return "-"
	}
	return id + "@" + domain
}

func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "-"
}

func dashIfEmpty(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "-"
	}
	return s
}
