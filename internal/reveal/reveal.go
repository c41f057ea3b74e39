// Package reveal drives one insight generation at a time and publishes its
// progress as an ordered stream of states.
//
// A request moves Idle -> Busy -> Done or Error. When a reveal step is
// configured the parsed sections are shown block by block, through
// Busy -> Revealing -> Done. Only the LLM call blocks; parsing is
// synchronous.
package reveal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/careahead/vitalscope/internal/insight"
	"github.com/careahead/vitalscope/internal/llm"
	"github.com/careahead/vitalscope/internal/vitals"
)

// Phase is the controller's position in its state machine.
type Phase int

const (
	Idle Phase = iota
	Busy
	Revealing
	Done
	Error
)

func (p Phase) String() string {
	switch p {
	case Busy:
		return "busy"
	case Revealing:
		return "revealing"
	case Done:
		return "done"
	case Error:
		return "error"
	default:
		return "idle"
	}
}

// CanceledMessage is the error text after Cancel interrupts a request.
const CanceledMessage = "Generation canceled."

// State is one published snapshot.
type State struct {
	Phase     Phase
	RequestID string
	Sections  insight.Sections
	// HasSections is set once a response has been parsed.
	HasSections bool
	Tier        insight.Tier
	// Revealed counts the blocks currently visible, out of Total.
	Revealed int
	Total    int
	Err      string
}

// Visible returns the blocks revealed so far.
func (s State) Visible() []insight.Block {
	if !s.HasSections {
		return nil
	}
	blocks := s.Sections.Blocks()
	if s.Revealed < len(blocks) {
		blocks = blocks[:s.Revealed]
	}
	return blocks
}

// Option configures a Controller.
type Option func(*Controller)

// WithRevealStep sets the pause between revealed blocks. Zero shows the
// whole insight at once.
func WithRevealStep(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.step = d
		}
	}
}

// WithLogger attaches a logger for state transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFormat selects the response format requested from the model.
func WithFormat(f insight.Format) Option {
	return func(c *Controller) {
		c.format = f
	}
}

const subscriberBuffer = 16

type subscriber struct {
	ch chan State
}

// offer delivers st without blocking, dropping the oldest queued states
// when the subscriber lags. Callers hold the controller lock.
func (s *subscriber) offer(st State) {
	for {
		select {
		case s.ch <- st:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// Controller owns at most one in-flight generation.
type Controller struct {
	gen    llm.Generator
	step   time.Duration
	format insight.Format
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	seq     uint64
	cancel  context.CancelFunc
	subs    map[int]*subscriber
	nextSub int
	closed  bool
	wg      sync.WaitGroup
}

// New returns an idle controller backed by gen.
func New(gen llm.Generator, opts ...Option) *Controller {
	c := &Controller{
		gen:    gen,
		logger: zap.NewNop(),
		subs:   make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("reveal")
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a stream that starts with the current state. States
// arrive in transition order; a subscriber that falls behind loses older
// intermediate states but always receives the newest. The returned func
// unsubscribes and closes the channel.
func (c *Controller) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := &subscriber{ch: make(chan State, subscriberBuffer)}
	if c.closed {
		close(sub.ch)
		return sub.ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	sub.offer(c.state)

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if s, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(s.ch)
			}
		})
	}
}

// Generate starts an insight request for today. It is ignored, returning
// false, while a request is busy or revealing.
func (c *Controller) Generate(ctx context.Context, today vitals.Sample, history []vitals.Sample) bool {
	prompt := insight.BuildPrompt(today, history, c.format)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.Phase == Busy || c.state.Phase == Revealing {
		c.logger.Debug("generate ignored", zap.Stringer("phase", c.state.Phase))
		return false
	}
	c.startLocked(ctx, prompt)
	return true
}

// Restart cancels an in-progress reveal without waiting for it and starts a
// new request. Like Generate it is ignored while a request is busy.
func (c *Controller) Restart(ctx context.Context, today vitals.Sample, history []vitals.Sample) bool {
	prompt := insight.BuildPrompt(today, history, c.format)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state.Phase == Busy {
		c.logger.Debug("restart ignored", zap.Stringer("phase", c.state.Phase))
		return false
	}
	if c.state.Phase == Revealing {
		c.logger.Info("reveal canceled by restart", zap.String("request_id", c.state.RequestID))
		c.stopLocked()
	}
	c.startLocked(ctx, prompt)
	return true
}

// Cancel interrupts the current request. A busy request ends in Error; a
// reveal in progress jumps straight to Done with every block visible.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state.Phase {
	case Busy:
		c.stopLocked()
		c.state = State{Phase: Error, RequestID: c.state.RequestID, Err: CanceledMessage}
		c.logger.Info("generation canceled", zap.String("request_id", c.state.RequestID))
		c.publishLocked()
	case Revealing:
		c.stopLocked()
		c.state.Phase = Done
		c.state.Revealed = c.state.Total
		c.publishLocked()
	}
}

// Close cancels any in-flight work, waits for it to exit and closes every
// subscriber stream.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopLocked()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.subs {
		delete(c.subs, id)
		close(s.ch)
	}
}

// stopLocked cancels the running task and invalidates its future updates.
func (c *Controller) stopLocked() {
	c.releaseLocked()
	c.seq++
}

func (c *Controller) startLocked(parent context.Context, prompt string) {
	c.seq++
	seq := c.seq
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.state = State{Phase: Busy, RequestID: id}
	c.logger.Info("generation started",
		zap.String("request_id", id),
		zap.String("provider", c.gen.Name()),
		zap.Int("prompt_chars", len(prompt)),
	)
	c.publishLocked()

	c.wg.Add(1)
	go c.run(ctx, seq, id, prompt)
}

func (c *Controller) publishLocked() {
	for _, s := range c.subs {
		s.offer(c.state)
	}
}

// current reports whether seq still owns the controller. Callers hold the
// lock.
func (c *Controller) current(seq uint64) bool {
	return seq == c.seq && !c.closed
}

func (c *Controller) run(ctx context.Context, seq uint64, id string, prompt string) {
	defer c.wg.Done()

	start := time.Now()
	raw, err := c.gen.Generate(ctx, prompt)

	c.mu.Lock()
	if !c.current(seq) {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.releaseLocked()
		c.state = State{Phase: Error, RequestID: id, Err: llm.Describe(err)}
		c.logger.Warn("generation failed",
			zap.String("request_id", id),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	res := insight.ParseResponse(raw, c.format)
	total := len(res.Sections.Blocks())
	c.state = State{
		Phase:       Revealing,
		RequestID:   id,
		Sections:    res.Sections,
		HasSections: true,
		Tier:        res.Tier,
		Revealed:    1,
		Total:       total,
	}
	c.logger.Info("generation finished",
		zap.String("request_id", id),
		zap.Duration("elapsed", time.Since(start)),
		zap.Stringer("tier", res.Tier),
		zap.Int("response_chars", len(raw)),
	)
	if c.step == 0 || total <= 1 {
		c.finishLocked()
		c.mu.Unlock()
		return
	}
	c.publishLocked()
	c.mu.Unlock()

	c.reveal(ctx, seq)
}

func (c *Controller) reveal(ctx context.Context, seq uint64) {
	timer := time.NewTimer(c.step)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			// the caller's context ended mid-reveal; show everything
			c.mu.Lock()
			if c.current(seq) {
				c.logger.Info("reveal cut short", zap.String("request_id", c.state.RequestID), zap.Error(ctx.Err()))
				c.finishLocked()
			}
			c.mu.Unlock()
			return
		case <-timer.C:
		}

		c.mu.Lock()
		if !c.current(seq) {
			c.mu.Unlock()
			return
		}
		c.state.Revealed++
		if c.state.Revealed >= c.state.Total {
			c.finishLocked()
			c.mu.Unlock()
			return
		}
		c.publishLocked()
		c.mu.Unlock()
		timer.Reset(c.step)
	}
}

func (c *Controller) finishLocked() {
	c.state.Phase = Done
	c.state.Revealed = c.state.Total
	c.releaseLocked()
	c.publishLocked()
}

func (c *Controller) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
