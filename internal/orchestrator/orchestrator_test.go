// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/hometax"
	"github.com/xkilldash9x/taxgo/internal/mocks"
)

// -- Fake Steps --

// fakeSteps records every call by name. Hooks override the default
// successful behavior of individual steps.
type fakeSteps struct {
	mu     sync.Mutex
	calls  []string
	pauses []time.Duration

	loggedIn     bool
	selectCert   func(n int) (hometax.CertResult, error)
	certCalls    int
	password     func(certText string, clickConfirm bool) error
	passwordArgs []bool
	waitMenu     func(n int) error
	menuCalls    int
	confirmErr   error
	resign       func() (bool, error)
	issueErr     error
	job          Job
}

func (f *fakeSteps) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeSteps) IsLoggedIn(context.Context) (bool, error) {
	f.record("IsLoggedIn")
	return f.loggedIn, nil
}

func (f *fakeSteps) OpenLoginBox(context.Context) error {
	f.record("OpenLoginBox")
	return nil
}

func (f *fakeSteps) SelectCertificate(context.Context) (hometax.CertResult, error) {
	f.record("SelectCertificate")
	f.certCalls++
	if f.selectCert != nil {
		return f.selectCert(f.certCalls)
	}
	return hometax.CertResult{HasCert: true, Text: "김철수()0001", Index: 0}, nil
}

func (f *fakeSteps) EnterPassword(_ context.Context, certText string, clickConfirm bool) error {
	f.record("EnterPassword")
	f.passwordArgs = append(f.passwordArgs, clickConfirm)
	if f.password != nil {
		return f.password(certText, clickConfirm)
	}
	return nil
}

func (f *fakeSteps) WaitMainMenu(context.Context) error {
	f.record("WaitMainMenu")
	f.menuCalls++
	if f.waitMenu != nil {
		return f.waitMenu(f.menuCalls)
	}
	return nil
}

func (f *fakeSteps) OpenSingleIssue(context.Context) error {
	f.record("OpenSingleIssue")
	return nil
}

func (f *fakeSteps) FillBuyerBizNo(_ context.Context, bizNo string) error {
	f.record("FillBuyerBizNo")
	f.job.BizNo = bizNo
	return nil
}

func (f *fakeSteps) SelectBranch(_ context.Context, company string) error {
	f.record("SelectBranch")
	f.job.BranchName = company
	return nil
}

func (f *fakeSteps) FillBuyerEmail(_ context.Context, email string) error {
	f.record("FillBuyerEmail")
	f.job.Email = email
	return nil
}

func (f *fakeSteps) FillBuyerNames(_ context.Context, company, rep string) error {
	f.record("FillBuyerNames")
	f.job.Company, f.job.Representative = company, rep
	return nil
}

func (f *fakeSteps) ReadBuyer(context.Context) (hometax.BuyerRecord, error) {
	f.record("ReadBuyer")
	return hometax.BuyerRecord{BizNo: f.job.BizNo, Company: "주식회사 팔도"}, nil
}

func (f *fakeSteps) FillWriteDate(_ context.Context, date string) error {
	f.record("FillWriteDate")
	f.job.WriteDate = date
	return nil
}

func (f *fakeSteps) FillItem(_ context.Context, item hometax.Item) (hometax.ItemRow, error) {
	f.record("FillItem")
	f.job.Item = item
	return hometax.ItemRow{Item: item, Supply: "10,000", Tax: "1,000"}, nil
}

func (f *fakeSteps) SelectReceiptKind(_ context.Context, kind string) error {
	f.record("SelectReceiptKind")
	f.job.ReceiptKind = kind
	return nil
}

func (f *fakeSteps) ReadTotals(context.Context) (hometax.Totals, error) {
	f.record("ReadTotals")
	return hometax.Totals{Total: "11,000", Supply: "10,000", Tax: "1,000"}, nil
}

func (f *fakeSteps) Issue(context.Context) error {
	f.record("Issue")
	return f.issueErr
}

func (f *fakeSteps) AwaitUserConfirmation(context.Context) error {
	f.record("AwaitUserConfirmation")
	return f.confirmErr
}

func (f *fakeSteps) Resign(context.Context) (bool, error) {
	f.record("Resign")
	if f.resign != nil {
		return f.resign()
	}
	return false, nil
}

func (f *fakeSteps) Pause(_ context.Context, d time.Duration) error {
	f.mu.Lock()
	f.pauses = append(f.pauses, d)
	f.mu.Unlock()
	return nil
}

func (f *fakeSteps) count(name string) int {
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// -- Helpers --

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Retry = config.RetryConfig{MaxAttempts: 30, Delay: time.Second, CertDelay: 1200 * time.Millisecond}
	return cfg
}

func testJob() Job {
	return Job{
		Row:            12,
		BizNo:          "2345678901",
		Email:          "buyer@example.com",
		WriteDate:      "2025-12-28",
		BranchName:     "팔도",
		Company:        "주식회사 팔도",
		Representative: "이팔도",
		Item:           hometax.Item{Day: "28", Name: "컨설팅", Qty: "1", Price: "10000"},
		ReceiptKind:    "청구",
	}
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, steps Steps, p *mocks.ScriptedPrompter, ledger Ledger) *Orchestrator {
	t.Helper()
	o, err := New(cfg, steps, p, ledger, zaptest.NewLogger(t))
	require.NoError(t, err)
	o.now = func() time.Time { return time.Date(2025, 12, 28, 10, 0, 0, 0, time.Local) }
	return o
}

type ledgerMock struct{ mock.Mock }

func (m *ledgerMock) MarkIssued(ctx context.Context, row int, now time.Time) (string, error) {
	args := m.Called(ctx, row, now)
	return args.String(0), args.Error(1)
}

func navErr() error {
	return driver.Classify("evaluate", errors.New("Execution context was destroyed."))
}

// -- Tests --

func TestNew_RejectsNilDependencies(t *testing.T) {
	_, err := New(nil, &fakeSteps{}, &mocks.ScriptedPrompter{}, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = New(testConfig(), nil, &mocks.ScriptedPrompter{}, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
	_, err = New(testConfig(), &fakeSteps{}, nil, nil, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "AwaitLogin", StageAwaitLogin.String())
	assert.Equal(t, "AwaitUserConfirmation", StageAwaitUserConfirmation.String())
	assert.Equal(t, "Failed", StageFailed.String())
	assert.Equal(t, "Unknown", Stage(42).String())
	assert.True(t, StageDone.Terminal())
	assert.False(t, StageSubmit.Terminal())
}

func TestRun_FreshLogin(t *testing.T) {
	steps := &fakeSteps{}
	p := &mocks.ScriptedPrompter{Answers: []string{"done"}}
	ledger := new(ledgerMock)
	ledger.On("MarkIssued", mock.Anything, 12, mock.Anything).Return("발급완료_251228", nil)

	o := newTestOrchestrator(t, testConfig(), steps, p, ledger)
	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"IsLoggedIn", "OpenLoginBox",
		"SelectCertificate", "EnterPassword", "WaitMainMenu",
		"OpenSingleIssue", "FillBuyerBizNo", "SelectBranch", "FillBuyerEmail", "FillBuyerNames", "ReadBuyer",
		"FillWriteDate", "FillItem", "SelectReceiptKind",
		"ReadTotals", "Issue",
		"AwaitUserConfirmation", "Resign",
	}, steps.calls)
	assert.Equal(t, []bool{true}, steps.passwordArgs)
	assert.Equal(t, testJob().Item, steps.job.Item)
	assert.Equal(t, "팔도", steps.job.BranchName)

	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, StageDone, o.Stage())
	assert.NotEmpty(t, res.RunID)
	assert.True(t, res.Confirmed)
	assert.Equal(t, "11,000", res.Totals.Total)
	assert.Equal(t, "발급완료_251228", res.Marker)
	assert.Equal(t, []string{CompletionPrompt}, p.Questions())
	assert.Equal(t, []time.Duration{menuSettle, issueSettle, branchSettle, dateSettle, itemSettle, receiptSettle}, steps.pauses)
	ledger.AssertExpectations(t)
}

func TestRun_AlreadyLoggedIn(t *testing.T) {
	steps := &fakeSteps{loggedIn: true}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, []string{"IsLoggedIn", "WaitMainMenu", "OpenSingleIssue"}, steps.calls[:3])
	assert.Zero(t, steps.count("SelectCertificate"))
	assert.Zero(t, steps.count("EnterPassword"))
	assert.Empty(t, res.Marker, "no ledger, nothing written")
}

func TestRun_NoCertificateUnattendedWaitsCertDelay(t *testing.T) {
	steps := &fakeSteps{selectCert: func(n int) (hometax.CertResult, error) {
		if n < 3 {
			return hometax.CertResult{Text: hometax.NoCertificatePlaceholder, Index: -1}, nil
		}
		return hometax.CertResult{HasCert: true, Text: "김철수()0001"}, nil
	}}
	p := &mocks.ScriptedPrompter{}
	o := newTestOrchestrator(t, testConfig(), steps, p, nil)

	_, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, 3, steps.count("SelectCertificate"))
	assert.Equal(t, 1, steps.count("EnterPassword"), "password entry is skipped while no certificate is listed")
	assert.Equal(t, []time.Duration{1200 * time.Millisecond, 1200 * time.Millisecond}, steps.pauses[:2])
	assert.Empty(t, p.Questions())
}

func TestRun_NoCertificateDevModePrompts(t *testing.T) {
	cfg := testConfig()
	cfg.Dev = true
	steps := &fakeSteps{selectCert: func(n int) (hometax.CertResult, error) {
		if n == 1 {
			return hometax.CertResult{Text: hometax.NoCertificatePlaceholder, Index: -1}, nil
		}
		return hometax.CertResult{HasCert: true, Text: "김철수()0001"}, nil
	}}
	p := &mocks.ScriptedPrompter{Answers: []string{""}}
	o := newTestOrchestrator(t, cfg, steps, p, nil)

	_, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	require.Len(t, p.Questions(), 1)
	assert.Equal(t, "[시도 1/30] 재시도 할까요? (Enter: 재시도, 다른 키: 중단) ", p.Questions()[0])
	assert.Equal(t, 2, steps.count("SelectCertificate"))
}

func TestRun_NoCertificateDevModeAbort(t *testing.T) {
	cfg := testConfig()
	cfg.Dev = true
	steps := &fakeSteps{selectCert: func(int) (hometax.CertResult, error) {
		return hometax.CertResult{Text: hometax.NoCertificatePlaceholder, Index: -1}, nil
	}}
	o := newTestOrchestrator(t, cfg, steps, &mocks.ScriptedPrompter{Answers: []string{"q"}}, nil)

	res, err := o.Run(context.Background(), testJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, StageFailed, res.Stage)
	assert.Equal(t, StageFailed, o.Stage())
	assert.Equal(t, 1, steps.count("SelectCertificate"))
}

func TestRun_NoCertificateExhaustsAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Retry.MaxAttempts = 3
	steps := &fakeSteps{selectCert: func(int) (hometax.CertResult, error) {
		return hometax.CertResult{Text: hometax.NoCertificatePlaceholder, Index: -1}, nil
	}}
	o := newTestOrchestrator(t, cfg, steps, &mocks.ScriptedPrompter{}, nil)

	_, err := o.Run(context.Background(), testJob())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCertificate)
	assert.Equal(t, driver.KindUnrecoverable, driver.KindOf(err))
	assert.Equal(t, 3, steps.count("SelectCertificate"))
	assert.Zero(t, steps.count("EnterPassword"))
	assert.Zero(t, steps.count("OpenSingleIssue"))
}

func TestRun_NavigationRetriesWholeLoginSequence(t *testing.T) {
	steps := &fakeSteps{waitMenu: func(n int) error {
		if n == 1 {
			return navErr()
		}
		return nil
	}}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	_, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, 2, steps.count("SelectCertificate"))
	assert.Equal(t, 2, steps.count("EnterPassword"))
	assert.Equal(t, 2, steps.count("WaitMainMenu"))
	assert.Equal(t, time.Second, steps.pauses[0])
}

func TestRun_MissingPasswordIsNotFatal(t *testing.T) {
	steps := &fakeSteps{password: func(string, bool) error {
		return driver.MissingConfiguration("enter password", "no certificate password configured")
	}}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, StageDone, res.Stage)
	assert.Equal(t, 1, steps.count("WaitMainMenu"))
}

func TestRun_ConfirmationTimeoutContinues(t *testing.T) {
	steps := &fakeSteps{
		confirmErr: hometax.ErrConfirmationTimeout,
		resign:     func() (bool, error) { return true, nil },
	}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.False(t, res.Confirmed)
	assert.True(t, res.Resigned)
	assert.Equal(t, StageDone, res.Stage)
}

func TestRun_ResignMissingPasswordIsNotFatal(t *testing.T) {
	steps := &fakeSteps{resign: func() (bool, error) {
		return true, driver.MissingConfiguration("enter password", "none")
	}}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.True(t, res.Resigned)
}

func TestRun_UnrecoverableStepFails(t *testing.T) {
	boom := driver.NotFound("issue", "#btnIssue")
	steps := &fakeSteps{issueErr: boom}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	res, err := o.Run(context.Background(), testJob())
	assert.Same(t, boom, err)
	assert.Equal(t, StageFailed, res.Stage)
	assert.Zero(t, steps.count("AwaitUserConfirmation"))
}

func TestRun_CompletionRequiresDone(t *testing.T) {
	ledger := new(ledgerMock)
	o := newTestOrchestrator(t, testConfig(), &fakeSteps{}, &mocks.ScriptedPrompter{Answers: []string{"nope"}}, ledger)

	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Empty(t, res.Marker)
	ledger.AssertNotCalled(t, "MarkIssued", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_CompletionWriteFailure(t *testing.T) {
	ledger := new(ledgerMock)
	ledger.On("MarkIssued", mock.Anything, 12, mock.Anything).Return("", errors.New("permission denied"))
	o := newTestOrchestrator(t, testConfig(), &fakeSteps{}, &mocks.ScriptedPrompter{Answers: []string{" DONE "}}, ledger)

	res, err := o.Run(context.Background(), testJob())
	require.NoError(t, err, "an issued invoice is not undone by a sheet error")
	assert.Equal(t, StageDone, res.Stage)
	assert.Empty(t, res.Marker)
	ledger.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	steps := &fakeSteps{}
	o := newTestOrchestrator(t, testConfig(), steps, &mocks.ScriptedPrompter{}, nil)

	id, err := o.Login(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, StageDone, o.Stage())
	assert.Equal(t, []string{"IsLoggedIn", "OpenLoginBox", "SelectCertificate", "EnterPassword", "WaitMainMenu"}, steps.calls)
}
