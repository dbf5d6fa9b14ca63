// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/mocks"
	"github.com/xkilldash9x/taxgo/internal/observability"
	"github.com/xkilldash9x/taxgo/internal/sheet"
)

// -- Helpers --

type fakeSession struct {
	page   *mocks.FakePage
	done   chan struct{}
	closed bool
}

func newFakeSession(page *mocks.FakePage) *fakeSession {
	return &fakeSession{page: page, done: make(chan struct{})}
}

func (s *fakeSession) Page() driver.Page     { return s.page }
func (s *fakeSession) Done() <-chan struct{} { return s.done }
func (s *fakeSession) Close()                { s.closed = true }

// testApp returns an app whose config file points the profile root into a
// temp dir and turns the log file off, plus the output buffer. browserYAML
// holds extra indented keys for the browser section.
func testApp(t *testing.T, browserYAML, extraYAML string) (*app, *bytes.Buffer, string) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	dir := t.TempDir()
	root := filepath.Join(dir, "profiles")
	content := "logger:\n  log_file: \"\"\n  level: error\nbrowser:\n  user_data_parent: " + root + "\n" + browserYAML + extraYAML
	cfgFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte(content), 0o644))

	var out bytes.Buffer
	a := newApp()
	a.cfgFile = cfgFile
	a.out = &out
	a.prompter = &mocks.ScriptedPrompter{}
	a.launch = func(context.Context, config.BrowserConfig, string, *zap.Logger) (browserSession, error) {
		t.Fatal("browser must not be launched")
		return nil, nil
	}
	a.newStore = func(context.Context, config.SheetConfig, *zap.Logger) (sheet.Store, error) {
		t.Fatal("sheet must not be opened")
		return nil, nil
	}
	return a, &out, root
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	// Registering the --config flag resets a.cfgFile to the flag default.
	cfgFile := a.cfgFile
	rootCmd := newRootCommand(a)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", cfgFile}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// -- Tests --

func TestVersion(t *testing.T) {
	Version = "1.2.3"
	defer func() { Version = "dev" }()

	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Equal(t, "taxgo version 1.2.3\n", out.String())
}

func TestRootCmd_NoArgsPrintsHelp(t *testing.T) {
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "홈택스 세금계산서 건별발급 자동화")
	assert.Contains(t, out.String(), "profiles")
}

func TestConfigFileAndEnvironment(t *testing.T) {
	a, _, root := testApp(t, "", "retry:\n  max_attempts: 7\ncertificate:\n  name: 김철수\n")
	t.Setenv("TAXGO_CERT_PASSWORD", "from-env")
	t.Setenv("TAXGO_RETRY_CERT_DELAY", "2s")

	cfgFile := a.cfgFile
	_, err := execute(t, a, "profiles")
	require.NoError(t, err)
	assert.Equal(t, cfgFile, a.v.ConfigFileUsed())
	assert.Equal(t, 7, a.cfg.Retry.MaxAttempts)
	assert.Equal(t, "2s", a.cfg.Retry.CertDelay.String())
	assert.Equal(t, "김철수", a.cfg.Certificate.Name)
	assert.Equal(t, "from-env", a.cfg.Certificate.Password)
	assert.Equal(t, root, a.cfg.Browser.UserDataParent)
}

func TestInvalidConfigFails(t *testing.T) {
	a, _, _ := testApp(t, "", "retry:\n  max_attempts: 0\n")
	_, err := execute(t, a, "profiles")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry.max_attempts")
}

func TestProfilesCmd(t *testing.T) {
	a, _, root := testApp(t, "", "")
	cfgFile := a.cfgFile

	out, err := execute(t, a, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "사용 가능한 프로필이 없습니다.")

	a2, _, _ := testApp(t, "", "")
	a2.cfgFile = cfgFile
	out, err = execute(t, a2, "profiles", "--create", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "'google_work' 프로필이 생성되었습니다.")
	assert.DirExists(t, filepath.Join(root, "google_work", "Default"))

	a3, _, _ := testApp(t, "", "")
	a3.cfgFile = cfgFile
	t.Setenv("TAXGO_BROWSER_DEFAULT_PROFILE", "work")
	out, err = execute(t, a3, "profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "1. work (기본)")
}

func TestRunCmd_RequiresSpreadsheet(t *testing.T) {
	a, _, _ := testApp(t, "", "")
	_, err := execute(t, a, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sheet.spreadsheet_id is required")
}

func TestRunCmd_NoActiveRow(t *testing.T) {
	a, out, _ := testApp(t, "", "sheet:\n  spreadsheet_id: test-sheet\n  credentials_file: /tmp/none.json\n")
	store := new(mocks.MockSheetStore)
	store.On("ReadRange", mock.Anything, "세금계산서(발행)!A1:R2000").Return([][]string{{"header"}}, nil)
	store.On("ReadRange", mock.Anything, "거래처!A:H").Return([][]string{{"header"}}, nil)
	a.newStore = func(context.Context, config.SheetConfig, *zap.Logger) (sheet.Store, error) {
		return store, nil
	}
	p := &mocks.ScriptedPrompter{Answers: []string{"y", "n", "yes"}}
	a.prompter = p

	_, err := execute(t, a, "run")
	assert.ErrorIs(t, err, sheet.ErrNoActiveRow)
	assert.Len(t, p.Questions(), 3)
	assert.Contains(t, out.String(), "https://docs.google.com/spreadsheets/d/test-sheet/edit")
	assert.Contains(t, out.String(), "⚠️ y를 입력해주세요.")
	store.AssertExpectations(t)
}

func TestRunCmd_SkipSheetCheck(t *testing.T) {
	a, _, _ := testApp(t, "", "sheet:\n  spreadsheet_id: test-sheet\n  credentials_file: /tmp/none.json\n")
	boom := errors.New("invalid credentials")
	a.newStore = func(context.Context, config.SheetConfig, *zap.Logger) (sheet.Store, error) {
		return nil, boom
	}
	p := &mocks.ScriptedPrompter{}
	a.prompter = p

	_, err := execute(t, a, "run", "--skip-sheet-check")
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, p.Questions())
}

func TestLoginCmd_ExistingSession(t *testing.T) {
	a, out, root := testApp(t, "  default_profile: work\n  start_url: https://hometax.example/\n", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "google_work", "Default"), 0o755))

	frame := mocks.NewFakeFrame("top", "https://hometax.example/")
	frame.Add("#mf_wfHeader_memUserInfo, #mf_wfHeader_group1503, #tmpUsrNm", &mocks.FakeElement{TextContent: "홍길동님"})
	frame.Add("#mf_wfHeader_wq_uuid_369", &mocks.FakeElement{})
	sess := newFakeSession(mocks.NewFakePage(frame))

	var launchedWith string
	a.launch = func(_ context.Context, _ config.BrowserConfig, dir string, _ *zap.Logger) (browserSession, error) {
		launchedWith = dir
		return sess, nil
	}
	p := &mocks.ScriptedPrompter{}
	a.prompter = p

	_, err := execute(t, a, "login")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "google_work"), launchedWith)
	assert.Equal(t, []string{"https://hometax.example/"}, sess.page.NavigatedTo)
	assert.True(t, sess.closed)
	assert.Contains(t, out.String(), "자동 선택된 프로필: work")
	assert.Equal(t, []string{"종료하려면 Enter를 누르세요: "}, p.Questions())
}

func TestCheckSheetInput(t *testing.T) {
	cfg := config.SheetConfig{SpreadsheetID: "abc"}

	p := &mocks.ScriptedPrompter{Answers: []string{"n"}}
	var out bytes.Buffer
	require.NoError(t, checkSheetInput(context.Background(), p, &out, cfg))
	assert.Empty(t, out.String())

	p = &mocks.ScriptedPrompter{Answers: []string{"Y", "", "y"}}
	out.Reset()
	require.NoError(t, checkSheetInput(context.Background(), p, &out, cfg))
	assert.Len(t, p.Questions(), 3)
	assert.Contains(t, out.String(), "✅ 입력 완료 확인")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := checkSheetInput(ctx, &mocks.ScriptedPrompter{Block: true}, &out, cfg)
	assert.ErrorIs(t, err, context.Canceled)
}
