package field

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/taxgo/internal/browser/driver"
	"github.com/xkilldash9x/taxgo/internal/browser/humanoid"
	"github.com/xkilldash9x/taxgo/internal/browser/locator"
	"github.com/xkilldash9x/taxgo/internal/config"
	"github.com/xkilldash9x/taxgo/internal/mocks"
)

type fixture struct {
	page   *mocks.FakePage
	frame  *mocks.FakeFrame
	helper *Helper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	frame := mocks.NewFakeFrame("main", "")
	page := mocks.NewFakePage(mocks.NewFakeFrame("top", ""), frame)
	kb := humanoid.New(config.HumanoidConfig{KeyPauseMeanMs: 50, KeyPauseMinMs: 15}, logger, rand.New(rand.NewSource(1)))
	return &fixture{
		page:   page,
		frame:  frame,
		helper: New(locator.New(page, logger), kb, logger),
	}
}

var fastLocate = locator.Options{Timeout: 50 * time.Millisecond, Interval: 10 * time.Millisecond}

func TestSet_TypesValueAndDispatchesEvents(t *testing.T) {
	f := newFixture(t)
	el := f.frame.Add("#item", &mocks.FakeElement{Value: "old value"})

	err := f.helper.Set(context.Background(), "#item", "사무용품", Options{Locate: fastLocate, KeyDelay: 30 * time.Millisecond, ExtraEvents: []string{"keyup"}})
	require.NoError(t, err)

	assert.Equal(t, "사무용품", el.GetValue(), "existing content is replaced, not appended")
	assert.Equal(t, []string{"input", "change", "blur", "keyup"}, el.EventLog())
	assert.Equal(t, []string{"사", "무", "용", "품"}, f.page.SentKeys)
}

func TestSet_DigitsOnlyVerification(t *testing.T) {
	t.Run("formatted read-back matches without retyping", func(t *testing.T) {
		f := newFixture(t)
		el := f.frame.Add("#bizNo", &mocks.FakeElement{})

		err := f.helper.Set(context.Background(), "#bizNo", "010-1234-5678", Options{Locate: fastLocate, Normalize: DigitsOnly})
		require.NoError(t, err)
		assert.Equal(t, "010-1234-5678", el.GetValue())
		assert.Equal(t, "010-1234-5678", f.page.Typed(), "typed exactly once")
	})

	t.Run("lost keystrokes trigger a single retype", func(t *testing.T) {
		f := newFixture(t)
		el := f.frame.Add("#bizNo", &mocks.FakeElement{DropKeys: 2})

		err := f.helper.Set(context.Background(), "#bizNo", "1234567890", Options{Locate: fastLocate, Normalize: DigitsOnly})
		require.NoError(t, err)
		assert.Equal(t, "1234567890", el.GetValue())
		assert.Equal(t, "12345678901234567890", f.page.Typed())
	})

	t.Run("persistent mismatch is reported once", func(t *testing.T) {
		f := newFixture(t)
		el := f.frame.Add("#bizNo", &mocks.FakeElement{DropKeys: 1000})

		err := f.helper.Set(context.Background(), "#bizNo", "1234567890", Options{Locate: fastLocate, Normalize: DigitsOnly})
		require.Error(t, err)
		assert.Equal(t, driver.KindValidationMismatch, driver.KindOf(err))
		assert.Equal(t, 2, el.Focused, "one write plus exactly one retype")
	})
}

func TestSet_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	el := f.frame.Add("#bizNo", &mocks.FakeElement{})
	opts := Options{Locate: fastLocate, Normalize: DigitsOnly}

	require.NoError(t, f.helper.Set(context.Background(), "#bizNo", "123-45-67890", opts))
	first := DigitsOnly(el.GetValue())
	require.NoError(t, f.helper.Set(context.Background(), "#bizNo", "123-45-67890", opts))

	assert.Equal(t, first, DigitsOnly(el.GetValue()))
	assert.Equal(t, "1234567890", first)
}

func TestSet_MissingElement(t *testing.T) {
	f := newFixture(t)

	err := f.helper.Set(context.Background(), "#nope", "x", Options{Locate: fastLocate})
	assert.True(t, driver.IsNotFound(err))

	optional := fastLocate
	optional.Optional = true
	assert.NoError(t, f.helper.Set(context.Background(), "#nope", "x", Options{Locate: optional}))
	assert.Empty(t, f.page.SentKeys)
}

func TestSet_ComponentAPI(t *testing.T) {
	f := newFixture(t)
	el := f.frame.Add("#bizNo", &mocks.FakeElement{})
	var got []any
	f.frame.Handle(ComponentSetValueScript, func(args []any) (any, error) {
		got = args
		return true, nil
	})

	require.NoError(t, f.helper.Set(context.Background(), "#bizNo", "1234567890", Options{Locate: fastLocate, ComponentAPI: true}))
	assert.Equal(t, []any{"#bizNo", "1234567890"}, got)
	assert.Equal(t, "1234567890", el.GetValue())
}

func TestSet_ComponentAPIAbsenceIsTolerated(t *testing.T) {
	f := newFixture(t)
	f.frame.Add("#bizNo", &mocks.FakeElement{})
	// No handler registered: the call fails and is ignored.
	assert.NoError(t, f.helper.Set(context.Background(), "#bizNo", "1", Options{Locate: fastLocate, ComponentAPI: true}))
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	f.frame.Add("#domain", &mocks.FakeElement{})
	f.frame.Handle(SelectOptionScript, func(args []any) (any, error) {
		return args[1] == "직접입력", nil
	})

	assert.NoError(t, f.helper.Select(context.Background(), "#domain", "직접입력", fastLocate))
	err := f.helper.Select(context.Background(), "#domain", "naver.com", fastLocate)
	assert.True(t, driver.IsNotFound(err))
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	el := f.frame.Add("#a", &mocks.FakeElement{Value: "abc"})
	require.NoError(t, f.helper.Clear(context.Background(), &locator.Element{Frame: f.frame, Selector: "#a"}))
	assert.Equal(t, "", el.GetValue())
	assert.Equal(t, []string{"input"}, el.EventLog())
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "01012345678", DigitsOnly("010-1234-5678"))
	assert.Equal(t, "1234567890", DigitsOnly(" 123-45-67890 "))
	assert.Equal(t, "", DigitsOnly("없음"))
	assert.Equal(t, "abc", Trimmed("  abc \n"))
}
