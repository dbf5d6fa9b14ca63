// File: internal/orchestrator/orchestrator.go
// Description: Sequences the page steps of one invoice issuance. Page work,
// operator prompts and the sheet are injected through interfaces.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/hometax"
	"github.com/xkilldash9x/taxgo/internal/prompt"
	"github.com/xkilldash9x/taxgo/internal/retry"
)

// Steps is the page-level work the orchestrator sequences.
type Steps interface {
	IsLoggedIn(ctx context.Context) (bool, error)
	OpenLoginBox(ctx context.Context) error
	SelectCertificate(ctx context.Context) (hometax.CertResult, error)
	EnterPassword(ctx context.Context, certText string, clickConfirm bool) error
	WaitMainMenu(ctx context.Context) error
	OpenSingleIssue(ctx context.Context) error
	FillBuyerBizNo(ctx context.Context, bizNo string) error
	SelectBranch(ctx context.Context, company string) error
	FillBuyerEmail(ctx context.Context, email string) error
	FillBuyerNames(ctx context.Context, company, representative string) error
	ReadBuyer(ctx context.Context) (hometax.BuyerRecord, error)
	FillWriteDate(ctx context.Context, date string) error
	FillItem(ctx context.Context, item hometax.Item) (hometax.ItemRow, error)
	SelectReceiptKind(ctx context.Context, kind string) error
	ReadTotals(ctx context.Context) (hometax.Totals, error)
	Issue(ctx context.Context) error
	AwaitUserConfirmation(ctx context.Context) error
	Resign(ctx context.Context) (bool, error)
	Pause(ctx context.Context, d time.Duration) error
}

var _ Steps = (*hometax.Portal)(nil)

// Ledger records issued invoices.
type Ledger interface {
	MarkIssued(ctx context.Context, row int, now time.Time) (string, error)
}

var (
	// ErrNoCertificate means the certificate list held no usable entry.
	ErrNoCertificate = errors.New("no usable certificate")
	// ErrAborted means the operator declined to retry.
	ErrAborted = errors.New("aborted by operator")
)

// Settle pauses between form sections, as the portal needs them.
const (
	menuSettle    = 3 * time.Second
	issueSettle   = time.Second
	branchSettle  = 500 * time.Millisecond
	dateSettle    = 3 * time.Second
	itemSettle    = time.Second
	receiptSettle = 500 * time.Millisecond
)

// CompletionPrompt asks the operator to confirm the invoice was issued.
const CompletionPrompt = "발급완료되었다면 done을 입력하세요: "

// Result summarizes one run.
type Result struct {
	RunID     string
	Stage     Stage
	Buyer     hometax.BuyerRecord
	Item      hometax.ItemRow
	Totals    hometax.Totals
	Confirmed bool
	Resigned  bool
	// Marker is the value written to the sheet, empty when nothing was written.
	Marker string
}

// Orchestrator runs the issuance flow over one page.
type Orchestrator struct {
	steps    Steps
	prompter prompt.Prompter
	ledger   Ledger
	retry    config.RetryConfig
	dev      bool
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	stage Stage
}

// New creates an Orchestrator. ledger may be nil, in which case completion
// is not recorded.
func New(cfg *config.Config, steps Steps, prompter prompt.Prompter, ledger Ledger, logger *zap.Logger) (*Orchestrator, error) {
	if cfg == nil || steps == nil || prompter == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		steps:    steps,
		prompter: prompter,
		ledger:   ledger,
		retry:    cfg.Retry,
		dev:      cfg.Dev,
		logger:   logger.Named("orchestrator"),
		now:      time.Now,
	}, nil
}

// Stage returns the stage the last run is in or ended in.
func (o *Orchestrator) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stage
}

func (o *Orchestrator) setStage(s Stage) {
	o.mu.Lock()
	o.stage = s
	o.mu.Unlock()
}

// run is the per-run state: a logger carrying the run id.
type run struct {
	*Orchestrator
	id     string
	logger *zap.Logger
}

func (o *Orchestrator) newRun() *run {
	id := uuid.NewString()
	return &run{Orchestrator: o, id: id, logger: o.logger.With(zap.String("run_id", id))}
}

// stageDo enters stage s, runs fn and logs how it ended.
func (r *run) stageDo(s Stage, fn func() error) error {
	r.setStage(s)
	start := time.Now()
	r.logger.Info("단계 시작", zap.Stringer("stage", s))
	if err := fn(); err != nil {
		return err
	}
	r.logger.Info("단계 완료", zap.Stringer("stage", s), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *run) fail(err error) error {
	r.setStage(StageFailed)
	r.logger.Error("자동화 중단", zap.Error(err), zap.String("kind", driver.KindOf(err).String()))
	return err
}

// Login brings the page to the logged-in main menu and stops there.
func (o *Orchestrator) Login(ctx context.Context) (string, error) {
	r := o.newRun()
	if err := r.login(ctx); err != nil {
		return r.id, r.fail(err)
	}
	r.setStage(StageDone)
	r.logger.Info("로그인 완료")
	return r.id, nil
}

// Run issues job. On failure the Result reports StageFailed and the page is
// left as it was for manual completion.
func (o *Orchestrator) Run(ctx context.Context, job Job) (Result, error) {
	r := o.newRun()
	res := Result{RunID: r.id}
	r.logger.Info("발행 시작",
		zap.Int("row", job.Row),
		zap.String("biz_no", job.BizNo),
		zap.String("branch", job.BranchName),
	)

	if err := r.login(ctx); err != nil {
		res.Stage = StageFailed
		return res, r.fail(err)
	}
	if err := r.stageDo(StageFillForm, func() error { return r.fillForm(ctx, job, &res) }); err != nil {
		res.Stage = StageFailed
		return res, r.fail(err)
	}
	if err := r.stageDo(StageSubmit, func() error { return r.submit(ctx, &res) }); err != nil {
		res.Stage = StageFailed
		return res, r.fail(err)
	}
	if err := r.stageDo(StageAwaitUserConfirmation, func() error { return r.confirm(ctx, &res) }); err != nil {
		res.Stage = StageFailed
		return res, r.fail(err)
	}
	if err := r.complete(ctx, job, &res); err != nil {
		res.Stage = StageFailed
		return res, r.fail(err)
	}
	r.setStage(StageDone)
	res.Stage = StageDone
	r.logger.Info("발행 흐름 종료", zap.Bool("confirmed", res.Confirmed), zap.String("marker", res.Marker))
	return res, nil
}

// login covers AwaitLogin through AwaitMenu. An existing session skips
// straight to the menu wait; otherwise certificate selection, password entry
// and the menu wait are retried together.
func (r *run) login(ctx context.Context) error {
	var loggedIn bool
	err := r.stageDo(StageAwaitLogin, func() error {
		var err error
		if loggedIn, err = r.steps.IsLoggedIn(ctx); err != nil {
			return err
		}
		if loggedIn {
			return nil
		}
		return r.steps.OpenLoginBox(ctx)
	})
	if err != nil {
		return err
	}

	if loggedIn {
		if err := r.stageDo(StageAwaitMenu, func() error { return r.steps.WaitMainMenu(ctx) }); err != nil {
			return err
		}
		r.logger.Info("로그인 유지 상태 확인: 메뉴 진입 전 대기", zap.Duration("pause", menuSettle))
		return r.steps.Pause(ctx, menuSettle)
	}

	policy := retry.Policy{
		MaxAttempts: r.retry.MaxAttempts,
		Delay:       r.retry.Delay,
		Retryable: func(err error) bool {
			return errors.Is(err, ErrNoCertificate) || driver.IsNavigation(err)
		},
	}
	var attempt int
	policy.Wait = func(ctx context.Context, err error) error {
		return r.waitBeforeRetry(ctx, err, attempt)
	}
	err = retry.Do(ctx, r.logger, policy, "login", func(ctx context.Context, n int) error {
		attempt = n
		return r.loginOnce(ctx)
	})
	if errors.Is(err, ErrNoCertificate) {
		r.logger.Warn("재시도 한도를 초과했습니다. 드라이브/인증서를 확인해주세요")
	}
	if err != nil {
		return err
	}
	r.logger.Info("최종 로그인 완료 후 대기", zap.Duration("pause", menuSettle))
	return r.steps.Pause(ctx, menuSettle)
}

func (r *run) loginOnce(ctx context.Context) error {
	var cert hometax.CertResult
	err := r.stageDo(StageSelectCertificate, func() error {
		var err error
		if cert, err = r.steps.SelectCertificate(ctx); err != nil {
			return err
		}
		if !cert.HasCert {
			r.logger.Warn("유효한 인증서가 없어 비밀번호 입력을 건너뜁니다")
			return ErrNoCertificate
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = r.stageDo(StageEnterPassword, func() error {
		err := r.steps.EnterPassword(ctx, cert.Text, true)
		if driver.KindOf(err) == driver.KindMissingConfiguration {
			r.logger.Warn("인증서 비밀번호 설정이 없어 직접 입력이 필요합니다", zap.Error(err))
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return r.stageDo(StageAwaitMenu, func() error { return r.steps.WaitMainMenu(ctx) })
}

// waitBeforeRetry runs between login attempts. An empty certificate list
// waits for the operator in dev mode and for the certificate delay otherwise.
func (r *run) waitBeforeRetry(ctx context.Context, err error, attempt int) error {
	if !errors.Is(err, ErrNoCertificate) {
		r.logger.Warn("페이지/프레임 갱신 감지, 인증서 선택을 재시도합니다")
		return r.steps.Pause(ctx, r.retry.Delay)
	}
	if !r.dev {
		r.logger.Info("잠시 대기 후 인증서 목록을 다시 확인합니다", zap.Duration("delay", r.retry.CertDelay))
		return r.steps.Pause(ctx, r.retry.CertDelay)
	}
	question := fmt.Sprintf("[시도 %d/%d] 재시도 할까요? (Enter: 재시도, 다른 키: 중단) ", attempt, r.retry.MaxAttempts)
	answer, err := r.prompter.Ask(ctx, question)
	if err != nil {
		return err
	}
	if answer != "" {
		r.logger.Warn("사용자가 재시도를 중단했습니다")
		return driver.Unrecoverable("select certificate", ErrAborted)
	}
	return nil
}

func (r *run) fillForm(ctx context.Context, job Job, res *Result) error {
	if err := r.steps.OpenSingleIssue(ctx); err != nil {
		return err
	}
	if err := r.steps.Pause(ctx, issueSettle); err != nil {
		return err
	}
	if err := r.steps.FillBuyerBizNo(ctx, job.BizNo); err != nil {
		return err
	}
	if err := r.steps.SelectBranch(ctx, job.BranchName); err != nil {
		return err
	}
	if err := r.steps.Pause(ctx, branchSettle); err != nil {
		return err
	}
	if err := r.steps.FillBuyerEmail(ctx, job.Email); err != nil {
		return err
	}
	if err := r.steps.FillBuyerNames(ctx, job.Company, job.Representative); err != nil {
		return err
	}
	buyer, err := r.steps.ReadBuyer(ctx)
	if err != nil {
		return err
	}
	res.Buyer = buyer

	if err := r.steps.Pause(ctx, dateSettle); err != nil {
		return err
	}
	if err := r.steps.FillWriteDate(ctx, job.WriteDate); err != nil {
		return err
	}
	if err := r.steps.Pause(ctx, itemSettle); err != nil {
		return err
	}
	row, err := r.steps.FillItem(ctx, job.Item)
	if err != nil {
		return err
	}
	res.Item = row
	if err := r.steps.SelectReceiptKind(ctx, job.ReceiptKind); err != nil {
		return err
	}
	return r.steps.Pause(ctx, receiptSettle)
}

func (r *run) submit(ctx context.Context, res *Result) error {
	totals, err := r.steps.ReadTotals(ctx)
	if err != nil {
		return err
	}
	res.Totals = totals
	return r.steps.Issue(ctx)
}

// confirm waits for the operator's click, then signs if the certificate
// modal comes back. A confirmation timeout is not fatal.
func (r *run) confirm(ctx context.Context, res *Result) error {
	err := r.steps.AwaitUserConfirmation(ctx)
	switch {
	case errors.Is(err, hometax.ErrConfirmationTimeout):
		r.logger.Warn("확인 클릭을 감지하지 못했습니다. 계속 진행합니다")
	case err != nil:
		return err
	default:
		res.Confirmed = true
	}

	resigned, err := r.steps.Resign(ctx)
	if driver.KindOf(err) == driver.KindMissingConfiguration {
		r.logger.Warn("전자서명 비밀번호 설정이 없어 직접 입력이 필요합니다", zap.Error(err))
		err = nil
	}
	res.Resigned = resigned
	return err
}

// complete asks the operator to confirm issuance and marks the sheet row.
func (r *run) complete(ctx context.Context, job Job, res *Result) error {
	if r.ledger == nil || job.Row <= 0 {
		return nil
	}
	answer, err := r.prompter.Ask(ctx, CompletionPrompt)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(answer), "done") {
		r.logger.Warn(`"done"이 입력되지 않아 시트를 업데이트하지 않습니다`)
		return nil
	}
	// The invoice is already issued, so a failed write only needs a manual fix.
	marker, err := r.ledger.MarkIssued(ctx, job.Row, r.now())
	if err != nil {
		r.logger.Warn("시트 완료 표시에 실패했습니다. 직접 입력해주세요",
			zap.Int("row", job.Row),
			zap.Error(err),
		)
		return nil
	}
	res.Marker = marker
	return nil
}
