package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of failure categories the automation distinguishes.
type Kind int

const (
	// KindUnrecoverable covers unexpected page structure and driver failures.
	KindUnrecoverable Kind = iota
	// KindElementNotFound means a selector did not match before its timeout.
	KindElementNotFound
	// KindNavigationRace means the frame was torn down mid-query by a navigation.
	KindNavigationRace
	// KindValidationMismatch means a written value did not read back as expected.
	KindValidationMismatch
	// KindMissingConfiguration means a required setting was absent.
	KindMissingConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindElementNotFound:
		return "ElementNotFound"
	case KindNavigationRace:
		return "NavigationRace"
	case KindValidationMismatch:
		return "ValidationMismatch"
	case KindMissingConfiguration:
		return "MissingConfiguration"
	default:
		return "Unrecoverable"
	}
}

// navigationMarkers are the CDP error texts that mean the execution context
// under a query went away because the page navigated.
var navigationMarkers = []string{
	"Execution context was destroyed",
	"Most likely because of a navigation",
	"Target closed",
	"Cannot find context with specified id",
}

// Error is a tagged automation error.
type Error struct {
	Kind     Kind
	Op       string
	Selector string
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Kind == KindElementNotFound && e.Err == nil:
		b.WriteString("selector not found within timeout: ")
		b.WriteString(e.Selector)
	case e.Err != nil:
		if e.Selector != "" {
			fmt.Fprintf(&b, "%s (%s): ", e.Kind, e.Selector)
		}
		b.WriteString(e.Err.Error())
	default:
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Classify tags a raw driver error exactly once. Already-tagged errors and
// context errors are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := KindUnrecoverable
	msg := err.Error()
	for _, marker := range navigationMarkers {
		if strings.Contains(msg, marker) {
			kind = KindNavigationRace
			break
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf reports the tag of err. Untagged non-nil errors are Unrecoverable.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	return KindUnrecoverable
}

// IsNavigation reports whether err was tagged as a navigation race.
func IsNavigation(err error) bool {
	return err != nil && KindOf(err) == KindNavigationRace
}

// IsNotFound reports whether err was tagged as a missing element.
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindElementNotFound
}

// NotFound builds an ElementNotFound error for selector.
func NotFound(op, selector string) error {
	return &Error{Kind: KindElementNotFound, Op: op, Selector: selector}
}

// Mismatch builds a ValidationMismatch error.
func Mismatch(op, selector, want, got string) error {
	return &Error{
		Kind:     KindValidationMismatch,
		Op:       op,
		Selector: selector,
		Err:      fmt.Errorf("expected %q, read back %q", want, got),
	}
}

// MissingConfiguration builds a MissingConfiguration error.
func MissingConfiguration(op, format string, args ...any) error {
	return &Error{Kind: KindMissingConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// Unrecoverable wraps err as Unrecoverable regardless of its previous tag.
func Unrecoverable(op string, err error) error {
	return &Error{Kind: KindUnrecoverable, Op: op, Err: err}
}
