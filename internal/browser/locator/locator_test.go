package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/mocks"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLocate_FindsElementInNestedFrame(t *testing.T) {
	top := mocks.NewFakeFrame("top", "https://hometax.go.kr/")
	child := mocks.NewFakeFrame("child", "https://hometax.go.kr/websquare/popup.html")
	child.Add("#price", &mocks.FakeElement{})
	l := New(mocks.NewFakePage(top, child), zaptest.NewLogger(t))

	el, err := l.Locate(context.Background(), "#price", Options{Timeout: time.Second, Interval: 10 * time.Millisecond})
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, "child", el.Frame.ID())
	assert.Equal(t, "#price", el.Selector)
}

func TestLocate_ReturnsFirstFrameInPageOrder(t *testing.T) {
	a := mocks.NewFakeFrame("a", "")
	b := mocks.NewFakeFrame("b", "")
	a.Add("#dup", &mocks.FakeElement{})
	b.Add("#dup", &mocks.FakeElement{})
	l := New(mocks.NewFakePage(a, b), zaptest.NewLogger(t))

	el, err := l.Locate(context.Background(), "#dup", Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "a", el.Frame.ID())
}

func TestLocate_WaitsForLateElement(t *testing.T) {
	if testing.Short() {
		t.Skip("waits two seconds")
	}
	frame := mocks.NewFakeFrame("main", "")
	start := time.Now()
	frame.Add("#price", &mocks.FakeElement{AppearAt: start.Add(2 * time.Second)})
	l := New(mocks.NewFakePage(frame), zaptest.NewLogger(t))

	el, err := l.Locate(context.Background(), "#price", Options{Timeout: 5 * time.Second, Interval: 200 * time.Millisecond})
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, el)
	assert.GreaterOrEqual(t, elapsed, 2*time.Second)
	assert.Less(t, elapsed, 5*time.Second)
	// Found within one poll interval of appearing, plus scheduling slack.
	assert.Less(t, elapsed, 2*time.Second+200*time.Millisecond+150*time.Millisecond)
}

func TestLocate_TimeoutPolicy(t *testing.T) {
	frame := mocks.NewFakeFrame("main", "")
	l := New(mocks.NewFakePage(frame), zaptest.NewLogger(t))
	timeout := 120 * time.Millisecond

	t.Run("required element fails with ElementNotFound", func(t *testing.T) {
		start := time.Now()
		el, err := l.Locate(context.Background(), "#missing", Options{Timeout: timeout, Interval: 50 * time.Millisecond})
		elapsed := time.Since(start)

		assert.Nil(t, el)
		require.Error(t, err)
		assert.True(t, driver.IsNotFound(err))
		assert.Contains(t, err.Error(), "selector not found within timeout: #missing")
		assert.GreaterOrEqual(t, elapsed, timeout, "must not give up before the timeout")
	})

	t.Run("optional element returns nil", func(t *testing.T) {
		start := time.Now()
		el, err := l.Locate(context.Background(), "#missing", Options{Timeout: timeout, Interval: 50 * time.Millisecond, Optional: true})
		assert.NoError(t, err)
		assert.Nil(t, el)
		assert.GreaterOrEqual(t, time.Since(start), timeout)
	})
}

func TestLocate_VisibleRequiresRenderedElement(t *testing.T) {
	frame := mocks.NewFakeFrame("main", "")
	hidden := frame.Add("#pw", &mocks.FakeElement{Hidden: true})
	l := New(mocks.NewFakePage(frame), zaptest.NewLogger(t))

	el, err := l.Locate(context.Background(), "#pw", Options{Timeout: 60 * time.Millisecond, Interval: 20 * time.Millisecond, Visible: true, Optional: true})
	require.NoError(t, err)
	assert.Nil(t, el)

	hidden.Hidden = false
	el, err = l.Locate(context.Background(), "#pw", Options{Timeout: 60 * time.Millisecond, Visible: true})
	require.NoError(t, err)
	assert.NotNil(t, el)
}

func TestLocate_ToleratesNavigationRaces(t *testing.T) {
	t.Run("detached frame is skipped", func(t *testing.T) {
		gone := mocks.NewFakeFrame("gone", "")
		gone.Detached = true
		live := mocks.NewFakeFrame("live", "")
		live.Add("#menu", &mocks.FakeElement{})
		l := New(mocks.NewFakePage(gone, live), zaptest.NewLogger(t))

		el, err := l.Locate(context.Background(), "#menu", Options{Timeout: 100 * time.Millisecond})
		require.NoError(t, err)
		assert.Equal(t, "live", el.Frame.ID())
	})

	t.Run("frame tree failure during navigation is retried", func(t *testing.T) {
		frame := mocks.NewFakeFrame("main", "")
		frame.Add("#menu", &mocks.FakeElement{})
		page := mocks.NewFakePage(frame)
		page.FramesErr = func(call int) error {
			if call < 3 {
				return driver.Classify("frame tree", errors.New("Target closed"))
			}
			return nil
		}
		l := New(page, zaptest.NewLogger(t))

		el, err := l.Locate(context.Background(), "#menu", Options{Timeout: time.Second, Interval: 10 * time.Millisecond})
		require.NoError(t, err)
		assert.NotNil(t, el)
		assert.Equal(t, 3, page.FramesCalls())
	})

	t.Run("other errors propagate immediately", func(t *testing.T) {
		frame := mocks.NewFakeFrame("main", "")
		boom := driver.Classify("exists", errors.New("Cannot read properties of undefined"))
		frame.ExistsErr = func(string) error { return boom }
		page := mocks.NewFakePage(frame)
		l := New(page, zaptest.NewLogger(t))

		_, err := l.Locate(context.Background(), "#menu", Options{Timeout: 5 * time.Second})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, page.FramesCalls())
	})
}

func TestLocateAny(t *testing.T) {
	frame := mocks.NewFakeFrame("main", "")
	frame.Add("input.passwd_input", &mocks.FakeElement{})
	l := New(mocks.NewFakePage(frame), zaptest.NewLogger(t))

	el, err := l.LocateAny(context.Background(), []string{"#input_cert_pw", "input.passwd_input"}, Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "input.passwd_input", el.Selector)
}

func TestLocate_ContextCancellation(t *testing.T) {
	l := New(mocks.NewFakePage(mocks.NewFakeFrame("main", "")), zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := l.Locate(ctx, "#never", Options{Timeout: 5 * time.Second, Interval: 10 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestExists(t *testing.T) {
	frame := mocks.NewFakeFrame("main", "")
	frame.Add("#a", &mocks.FakeElement{})
	l := New(mocks.NewFakePage(frame), zaptest.NewLogger(t))

	ok, err := l.Exists(context.Background(), "#a", false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Exists(context.Background(), "#b", false)
	require.NoError(t, err)
	assert.False(t, ok)
}
