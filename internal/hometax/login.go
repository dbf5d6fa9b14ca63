package hometax

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/browser/locator"
)

// IsLoggedIn reports whether the header of a live session is shown.
func (p *Portal) IsLoggedIn(ctx context.Context) (bool, error) {
	opts := p.optional(p.waits.loggedIn)
	opts.Visible = true
	el, err := p.loc.Locate(ctx, headerUserInfoSelector, opts)
	if err != nil {
		return false, err
	}
	if el != nil {
		p.logger.Info("기존 세션 감지: 이미 로그인 상태입니다")
	}
	return el != nil, nil
}

// OpenLoginBox waits for the certificate login entry and clicks it.
func (p *Portal) OpenLoginBox(ctx context.Context) error {
	el, err := p.loc.Locate(ctx, loginAnchorSelector, p.visible(p.timeouts.Login))
	if err != nil {
		return fmt.Errorf("login entry did not appear: %w", err)
	}
	if err := p.Pause(ctx, p.waits.loginSettle); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return err
	}
	p.logger.Info("인증서 로그인 진입")
	return nil
}

// CertResult is the outcome of certificate selection. HasCert is false when
// the drive list or the certificate table did not render, or held only the
// placeholder row; nothing was clicked in that case.
type CertResult struct {
	HasCert bool
	Text    string
	Index   int
}

func noCertificate() CertResult {
	return CertResult{Text: NoCertificatePlaceholder, Index: -1}
}

// CertModalShown reports whether the certificate modal appears within the timeout.
func (p *Portal) CertModalShown(ctx context.Context) (bool, error) {
	el, err := p.loc.Locate(ctx, certModalSelector, p.optional(p.timeouts.Resign))
	return el != nil, err
}

// SelectCertificate opens the hard-disk tab of the certificate modal,
// picks the configured drive and clicks the configured certificate.
func (p *Portal) SelectCertificate(ctx context.Context) (CertResult, error) {
	modal, err := p.loc.Locate(ctx, certModalSelector, p.opts(p.timeouts.CertModal))
	if err != nil {
		return CertResult{}, fmt.Errorf("certificate modal did not appear: %w", err)
	}
	p.logger.Debug("인증서 선택창 감지", zap.String("frame_url", modal.Frame.URL()))

	hdd, err := p.loc.Locate(ctx, hddButtonSelector, p.opts(p.timeouts.CertModal))
	if err != nil {
		return CertResult{}, err
	}
	if err := hdd.Click(ctx); err != nil {
		return CertResult{}, err
	}

	shown, err := p.waitDriveMenu(ctx, hdd)
	if err != nil {
		return CertResult{}, err
	}
	if !shown {
		p.logger.Warn("드라이브 목록 표시 실패")
		return noCertificate(), nil
	}

	picked, err := p.pickDrive(ctx)
	if err != nil {
		return CertResult{}, err
	}
	if !picked {
		return noCertificate(), nil
	}
	return p.pickCertificate(ctx)
}

// waitDriveMenu waits for the drive menu, replaying mouse events on the HDD
// tab once when the plain click did not open it.
func (p *Portal) waitDriveMenu(ctx context.Context, hdd *locator.Element) (bool, error) {
	opts := p.optional(p.waits.driveMenu)
	opts.Visible = true

	el, err := p.loc.Locate(ctx, driveMenuSelector, opts)
	if err != nil || el != nil {
		return el != nil, err
	}

	p.logger.Warn("드라이브 목록이 보이지 않아 추가 이벤트를 시도합니다")
	var ok bool
	if err := hdd.Frame.Call(ctx, &ok, MouseEventsScript, hdd.Selector, hddRetryEvents); err != nil {
		return false, err
	}
	if err := p.Pause(ctx, p.waits.driveRetry); err != nil {
		return false, err
	}
	el, err = p.loc.Locate(ctx, driveMenuSelector, opts)
	return el != nil, err
}

// pickDrive clicks the drive whose label starts with the configured name,
// then the configured index, then the first one.
func (p *Portal) pickDrive(ctx context.Context) (bool, error) {
	el, err := p.loc.Locate(ctx, driveItemSelector, p.optional(p.waits.driveList))
	if err != nil {
		return false, err
	}
	if el == nil {
		p.logger.Warn("드라이브 항목이 없습니다")
		return false, nil
	}

	markup, err := outerHTML(ctx, el.Frame, driveListSelector)
	if err != nil {
		return false, err
	}
	drives, err := listItems(markup)
	if err != nil {
		return false, err
	}
	if len(drives) == 0 {
		return false, nil
	}
	for i, d := range drives {
		p.logger.Debug("드라이브", zap.Int("index", i), zap.String("label", d))
	}

	idx := pickDriveIndex(drives, p.cert.DriveName, p.cert.DriveIndex)
	if p.cert.DriveName != "" && !strings.HasPrefix(drives[idx], p.cert.DriveName) {
		p.logger.Warn("드라이브 이름 매칭 실패", zap.String("drive_name", p.cert.DriveName), zap.String("picked", drives[idx]))
	}
	if err := clickNth(ctx, el.Frame, driveItemSelector, idx, "a"); err != nil {
		return false, err
	}
	p.logger.Info("드라이브 선택", zap.Int("index", idx), zap.String("label", drives[idx]))
	return true, p.Pause(ctx, p.waits.driveSettle)
}

func pickDriveIndex(drives []string, name string, index int) int {
	if name != "" {
		for i, d := range drives {
			if strings.HasPrefix(d, name) {
				return i
			}
		}
	}
	if index >= 0 && index < len(drives) {
		return index
	}
	return 0
}

// pickCertificate polls the certificate table until it holds real rows,
// then clicks the configured one.
func (p *Portal) pickCertificate(ctx context.Context) (CertResult, error) {
	el, err := p.loc.Locate(ctx, certRowSelector, p.optional(p.waits.certTable))
	if err != nil {
		return CertResult{}, err
	}
	if el == nil {
		p.logger.Warn("인증서 목록이 표시되지 않았습니다")
		return noCertificate(), nil
	}

	var rows []string
	polls := int(p.waits.certTable / p.waits.certPoll)
	for i := 0; ; i++ {
		g, err := readGrid(ctx, el.Frame, certTableSelector)
		if err != nil {
			return CertResult{}, err
		}
		rows = rows[:0]
		for _, r := range g.Rows {
			rows = append(rows, r.Text())
		}
		if hasRealCertificate(rows) || i >= polls {
			break
		}
		if err := p.Pause(ctx, p.waits.certPoll); err != nil {
			return CertResult{}, err
		}
	}
	for i, r := range rows {
		p.logger.Debug("인증서", zap.Int("index", i), zap.String("text", r))
	}

	if !hasRealCertificate(rows) {
		p.logger.Warn("유효한 인증서가 없어 클릭을 건너뜁니다")
		return noCertificate(), nil
	}

	idx := pickCertIndex(rows, p.cert.Name, p.cert.Index)
	if p.cert.Name != "" && !strings.Contains(rows[idx], p.cert.Name) {
		p.logger.Warn("인증서 이름 매칭 실패", zap.String("name", p.cert.Name))
	}
	if err := clickNth(ctx, el.Frame, certRowSelector, idx, "a, td"); err != nil {
		return CertResult{}, err
	}

	var state *struct {
		Selected  bool   `json:"selected"`
		ClassName string `json:"className"`
	}
	if err := el.Frame.Call(ctx, &state, RowSelectedScript, certRowSelector, idx); err != nil {
		return CertResult{}, err
	}
	if state == nil || !state.Selected {
		p.logger.Warn("인증서 행이 선택 상태로 표시되지 않았습니다", zap.Int("index", idx))
	}

	p.logger.Info("인증서 선택", zap.Int("index", idx), zap.String("text", rows[idx]))
	return CertResult{HasCert: true, Text: rows[idx], Index: idx}, nil
}

func hasRealCertificate(rows []string) bool {
	for _, r := range rows {
		if !strings.Contains(r, NoCertificatePlaceholder) {
			return true
		}
	}
	return false
}

// pickCertIndex matches by name first; a valid index overrides the name.
func pickCertIndex(rows []string, name string, index int) int {
	idx := 0
	if name != "" {
		for i, r := range rows {
			if strings.Contains(r, name) {
				idx = i
				break
			}
		}
	}
	if index >= 0 && index < len(rows) {
		idx = index
	}
	return idx
}

// EnterPassword types the certificate password resolved for certText and,
// with clickConfirm, presses the modal's confirm button. A missing password
// returns a MissingConfiguration error without touching the page.
func (p *Portal) EnterPassword(ctx context.Context, certText string, clickConfirm bool) error {
	if strings.Contains(certText, NoCertificatePlaceholder) {
		p.logger.Warn("유효한 인증서가 없어 비밀번호 입력을 건너뜁니다")
		return nil
	}
	password := p.cert.ResolvePassword(certText)
	if password == "" {
		return driver.MissingConfiguration("enter password", "no certificate password configured for %q", certText)
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		err := p.typePassword(ctx, password, certText, clickConfirm)
		if err == nil || !driver.IsNavigation(err) || attempt == maxAttempts {
			return err
		}
		p.logger.Warn("페이지/프레임 갱신 감지, 비밀번호 입력을 재시도합니다", zap.Error(err))
		if err := p.Pause(ctx, p.waits.passwordRetry); err != nil {
			return err
		}
	}
}

func (p *Portal) typePassword(ctx context.Context, password, certText string, clickConfirm bool) error {
	el, err := p.loc.LocateAny(ctx, passwordInputSelectors, p.visible(p.waits.password))
	if err != nil {
		return err
	}
	if err := el.Focus(ctx); err != nil {
		return err
	}
	if err := p.keyboard.Type(ctx, p.loc.Page(), password, defaultKeyDelay); err != nil {
		return err
	}
	p.logger.Info("인증서 비밀번호 입력 완료", zap.String("cert", certText))

	if !clickConfirm {
		p.logger.Info("확인 버튼 자동 클릭을 건너뜁니다")
		return nil
	}
	for _, sel := range certConfirmSelectors {
		found, err := el.Frame.Exists(ctx, sel, false)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if err := p.Pause(ctx, p.waits.confirmSettle); err != nil {
			return err
		}
		if err := el.Frame.Click(ctx, sel); err != nil {
			return err
		}
		p.logger.Info("인증서 확인 버튼 클릭", zap.String("selector", sel))
		return nil
	}
	p.logger.Warn("확인 버튼을 찾지 못했습니다. 직접 클릭해주세요")
	return nil
}

// Resign handles the signing modal that may follow submission. It reports
// false without error when the modal does not appear in time.
func (p *Portal) Resign(ctx context.Context) (bool, error) {
	shown, err := p.CertModalShown(ctx)
	if err != nil || !shown {
		return false, err
	}
	p.logger.Info("전자서명 인증서 창 감지")
	res, err := p.SelectCertificate(ctx)
	if err != nil {
		return true, err
	}
	if !res.HasCert {
		return true, nil
	}
	return true, p.EnterPassword(ctx, res.Text, false)
}
