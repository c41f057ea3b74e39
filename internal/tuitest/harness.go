// Package tuitest drives a terminal program inside a pseudo terminal and
// records what it draws, for end-to-end tests of the dashboard binary.
package tuitest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

const (
	defaultWidth   = 120
	defaultHeight  = 32
	defaultTimeout = 5 * time.Second
	pollInterval   = 20 * time.Millisecond
)

// Step is one scripted interaction. Expect, when set, holds the step until
// that text has been drawn; Delay then pauses before Input is written.
type Step struct {
	Expect string
	Delay  time.Duration
	Input  []byte
}

// Config describes the program to spawn and the script to replay.
type Config struct {
	Command          []string
	Dir              string
	Env              []string
	Width            int
	Height           int
	Steps            []Step
	Timeout          time.Duration
	AllowedExitCodes []int
	AllowInterrupt   bool
}

func (c Config) withDefaults() Config {
	if c.Width <= 0 {
		c.Width = defaultWidth
	}
	if c.Height <= 0 {
		c.Height = defaultHeight
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	return c
}

// Recording is everything the program wrote to the terminal.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// Run starts cfg.Command in a PTY, replays the steps and waits for the
// program to exit. The whole run is bounded by cfg.Timeout.
func Run(ctx context.Context, cfg Config) (*Recording, error) {
	if len(cfg.Command) == 0 {
		return nil, errors.New("tuitest: command is required")
	}
	cfg = cfg.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = buildEnv(cfg.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(cfg.Height), Cols: uint16(cfg.Width)})
	if err != nil {
		return nil, fmt.Errorf("tuitest: start program: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	screen := &screenBuffer{}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		responder := newTerminalResponder(ptmx)
		buf := make([]byte, 4096)
		for {
			n, err := ptmx.Read(buf)
			if n > 0 {
				responder.Process(buf[:n])
				_, _ = screen.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	start := time.Now()
	if err := replay(ctx, cfg.Steps, screen, ptmx); err != nil {
		return nil, err
	}
	if err := awaitExit(ctx, cmd, cfg); err != nil {
		return nil, err
	}

	// closing the PTY ends the reader once it has drained
	_ = ptmx.Close()
	<-drained

	raw := screen.Bytes()
	return &Recording{Raw: raw, Frames: parseFrames(raw), Duration: time.Since(start)}, nil
}

func replay(ctx context.Context, steps []Step, screen *screenBuffer, ptmx *os.File) error {
	for _, step := range steps {
		if step.Expect != "" {
			if err := screen.waitFor(ctx, step.Expect); err != nil {
				return fmt.Errorf("tuitest: waiting for %q: %w", step.Expect, err)
			}
		}
		if step.Delay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("tuitest: context cancelled before script finished: %w", ctx.Err())
			case <-time.After(step.Delay):
			}
		}
		if len(step.Input) > 0 {
			if _, err := ptmx.Write(step.Input); err != nil {
				return fmt.Errorf("tuitest: write input: %w", err)
			}
		}
	}
	return nil
}

func awaitExit(ctx context.Context, cmd *exec.Cmd, cfg Config) error {
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	var err error
	select {
	case err = <-exited:
	case <-ctx.Done():
		return fmt.Errorf("tuitest: timeout waiting for program exit: %w", ctx.Err())
	}
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && slices.Contains(cfg.AllowedExitCodes, exitErr.ExitCode()) {
		return nil
	}
	if cfg.AllowInterrupt && strings.Contains(err.Error(), "signal: interrupt") {
		return nil
	}
	return fmt.Errorf("tuitest: program exited with error: %w", err)
}

// buildEnv appends extra to the current environment and defaults TERM so
// lipgloss renders colour.
func buildEnv(extra []string) []string {
	env := append(os.Environ(), extra...)
	hasTerm := slices.ContainsFunc(env, func(entry string) bool {
		return strings.HasPrefix(entry, "TERM=")
	})
	if !hasTerm {
		env = append(env, "TERM=xterm-256color")
	}
	return env
}

var (
	// KeyEnter sends a carriage return.
	KeyEnter = []byte{'\r'}
	// KeyCtrlC interrupts the program.
	KeyCtrlC = []byte{3}
	// KeyEsc closes overlays or cancels.
	KeyEsc = []byte{27}
)

// Key returns the bytes of a single printable key press.
func Key(r rune) []byte {
	return []byte(string(r))
}

// screenBuffer accumulates PTY output for the reader goroutine and the
// step replayer.
type screenBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *screenBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *screenBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}

// waitFor polls until text appears in the escape-stripped output.
func (b *screenBuffer) waitFor(ctx context.Context, text string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if strings.Contains(stripANSI(string(b.Bytes())), text) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
