// Package prompt asks the operator questions on the terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrClosed is returned by Ask after Close.
var ErrClosed = errors.New("prompt closed")

// Prompter asks the operator for a line of input.
type Prompter interface {
	// Ask prints question and returns the trimmed answer. It returns
	// io.EOF when input ends and ctx.Err() when ctx is done first.
	Ask(ctx context.Context, question string) (string, error)
	// Confirm asks question and reports whether the answer was y or Y.
	Confirm(ctx context.Context, question string) (bool, error)
	Close() error
}

type line struct {
	text string
	err  error
}

// Console is a Prompter over a line-oriented reader, normally stdin.
// Lines are read by a single goroutine so a cancelled Ask does not lose
// the next answer.
type Console struct {
	in  io.Reader
	out io.Writer

	start sync.Once
	lines chan line
	done  chan struct{}
	close sync.Once

	mu sync.Mutex
	// err is sticky once the reader has failed or reached EOF.
	err error
}

var _ Prompter = (*Console)(nil)

// NewConsole creates a Console. Reading begins with the first Ask.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:    in,
		out:   out,
		lines: make(chan line),
		done:  make(chan struct{}),
	}
}

func (c *Console) readLoop() {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		select {
		case c.lines <- line{text: scanner.Text()}:
		case <-c.done:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case c.lines <- line{err: err}:
	case <-c.done:
	}
}

func (c *Console) Ask(ctx context.Context, question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return "", c.err
	}
	select {
	case <-c.done:
		return "", ErrClosed
	default:
	}
	c.start.Do(func() { go c.readLoop() })

	if question != "" {
		if _, err := fmt.Fprint(c.out, question); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}
	}
	select {
	case l := <-c.lines:
		if l.err != nil {
			c.err = l.err
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.done:
		return "", ErrClosed
	}
}

func (c *Console) Confirm(ctx context.Context, question string) (bool, error) {
	answer, err := c.Ask(ctx, question)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y"), nil
}

// Close stops the reader goroutine once its pending read returns.
func (c *Console) Close() error {
	c.close.Do(func() { close(c.done) })
	return nil
}
