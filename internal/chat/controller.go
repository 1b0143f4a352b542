package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"chat-backend/internal/generation"
)

var ErrTurnInProgress = errors.New("a reply is already being generated for this session")

type State int

const (
	Idle State = iota
	Generating
)

func (s State) String() string {
	if s == Generating {
		return "generating"
	}
	return "idle"
}

// Presenter is told to redraw whenever the history or the busy flag changes.
type Presenter interface {
	Render(turns []Turn)

	SetBusy(busy bool)
}

type NopPresenter struct{}

func (NopPresenter) Render([]Turn) {}

func (NopPresenter) SetBusy(bool) {}

// TurnRecorder is called with every turn before it becomes part of the history.
// Returning an error keeps the turn out of the history.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, seq int, turn Turn) error
}

type TurnResult struct {
	Submitted bool
	User      Turn
	Reply     Turn
	// Turns is the history as it stood when the turn finished.
	Turns []Turn
}

type TurnController struct {
	mu      sync.Mutex
	state   State
	closed  bool
	history *ConversationHistory

	backend       generation.Backend
	recorder      TurnRecorder
	thinkingDelay time.Duration
	now           func() time.Time
}

type ControllerOption func(*TurnController)

func WithRecorder(recorder TurnRecorder) ControllerOption {
	return func(c *TurnController) {
		c.recorder = recorder
	}
}

// WithThinkingDelay adds a pause before the backend is called so the busy
// indicator is visible even for instant replies.
func WithThinkingDelay(delay time.Duration) ControllerOption {
	return func(c *TurnController) {
		c.thinkingDelay = delay
	}
}

func NewTurnController(history *ConversationHistory, backend generation.Backend, opts ...ControllerOption) *TurnController {
	if history == nil {
		history = NewConversationHistory()
	}
	c := &TurnController{
		state:   Idle,
		history: history,
		backend: generation.Guard(backend),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TurnController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *TurnController) Busy() bool {
	return c.State() == Generating
}

func (c *TurnController) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Turns()
}

// Submit runs one conversational turn: the user turn is appended and shown, the
// backend is called, and its reply (or a description of its failure) is appended
// as the assistant turn. Blank input is ignored.
func (c *TurnController) Submit(ctx context.Context, text string, presenter Presenter) (TurnResult, error) {
	if presenter == nil {
		presenter = NopPresenter{}
	}

	if strings.TrimSpace(text) == "" {
		return TurnResult{Turns: c.Turns()}, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return TurnResult{}, ErrSessionNotFound
	}
	if c.state == Generating {
		c.mu.Unlock()
		return TurnResult{}, ErrTurnInProgress
	}

	userTurn := Turn{Role: RoleUser, Content: text, CreatedAt: c.now()}
	if err := c.appendLocked(ctx, userTurn); err != nil {
		c.mu.Unlock()
		return TurnResult{}, err
	}
	c.state = Generating
	turns := c.history.Turns()
	c.mu.Unlock()

	presenter.Render(turns)
	presenter.SetBusy(true)

	replyTurn := c.generate(ctx, text)

	c.mu.Lock()
	// the reply is kept even if the caller went away while it was generated
	err := c.appendLocked(context.WithoutCancel(ctx), replyTurn)
	c.state = Idle
	turns = c.history.Turns()
	c.mu.Unlock()

	presenter.SetBusy(false)
	presenter.Render(turns)

	if err != nil {
		return TurnResult{Submitted: true, User: userTurn, Turns: turns}, err
	}
	return TurnResult{Submitted: true, User: userTurn, Reply: replyTurn, Turns: turns}, nil
}

// Close stops the controller from running further turns; Submit then returns
// ErrSessionNotFound. It fails with ErrTurnInProgress while a reply is being
// generated.
func (c *TurnController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Generating {
		return ErrTurnInProgress
	}
	c.closed = true
	return nil
}

func (c *TurnController) generate(ctx context.Context, prompt string) Turn {
	if c.thinkingDelay > 0 {
		select {
		case <-time.After(c.thinkingDelay):
		case <-ctx.Done():
		}
	}

	start := c.now()
	reply, err := c.backend.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("generation failed, replying with error message", "backend", c.backend.Name(), "error", err)
		return Turn{Role: RoleAssistant, Content: generation.Describe(err), Failed: true, CreatedAt: c.now()}
	}

	slog.Debug("generated reply", "backend", c.backend.Name(), "duration", c.now().Sub(start))
	return Turn{Role: RoleAssistant, Content: reply, CreatedAt: c.now()}
}

func (c *TurnController) appendLocked(ctx context.Context, turn Turn) error {
	if c.recorder != nil {
		if err := c.recorder.RecordTurn(ctx, c.history.Len(), turn); err != nil {
			return err
		}
	}
	c.history.Append(turn)
	return nil
}
