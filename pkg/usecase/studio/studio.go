package studio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/m-mizutani/conceptstudio/pkg/adapter"
	"github.com/m-mizutani/conceptstudio/pkg/interfaces"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/service/gateway"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrBusy is returned when a submission arrives while another is in flight
	ErrBusy = goerr.New("another request is in progress")
	// ErrInvalidInput is returned before any remote call is made
	ErrInvalidInput = goerr.New("invalid input")
)

const (
	generationFailedMessage = "An unexpected error occurred."
	refinementFailedMessage = "Refinement failed."
)

// UseCase is the application core shared by every front end. At most one
// generation or refinement runs at a time.
type UseCase struct {
	gateway interfaces.ModelGateway
	store   repository.ResultStore
	storage adapter.Storage
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithClock replaces the clock used to stamp new results
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) {
		uc.now = now
	}
}

// New creates a new studio UseCase instance
func New(
	gw interfaces.ModelGateway,
	store repository.ResultStore,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		gateway: gw,
		store:   store,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Snapshot is what a front end renders
type Snapshot struct {
	Results []*model.Result `json:"results"`
	Busy    bool            `json:"busy"`
	Error   string          `json:"error,omitempty"`
}

// Snapshot returns the current result list together with busy and error status
func (u *UseCase) Snapshot(ctx context.Context) (*Snapshot, error) {
	results, err := u.store.List(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list results")
	}

	s := u.State()
	return &Snapshot{
		Results: results,
		Busy:    s.Busy,
		Error:   s.Err,
	}, nil
}

// State returns a copy of the current busy/error state
func (u *UseCase) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Clear drops every stored result. The busy flag and last error are left as they are.
func (u *UseCase) Clear(ctx context.Context) error {
	if err := u.store.Clear(ctx); err != nil {
		return goerr.Wrap(err, "failed to clear results")
	}
	return nil
}

// acquire marks the studio busy or fails with ErrBusy
func (u *UseCase) acquire() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state.Busy {
		return ErrBusy
	}
	u.state = reduce(u.state, event{kind: eventSubmitted})
	return nil
}

// release clears the busy flag. When err is set it records a user-facing
// message and returns err as a *Failure carrying that message.
func (u *UseCase) release(err error, fallback string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err != nil {
		msg := userMessage(err, fallback)
		u.state = reduce(u.state, event{kind: eventFailed, message: msg})
		return &Failure{Message: msg, err: err}
	}
	u.state = reduce(u.state, event{kind: eventSucceeded})
	return nil
}

// Failure is returned when an accepted submission fails. Message is the text
// recorded as the last error at that moment; the shared state may have moved on.
type Failure struct {
	Message string
	err     error
}

func (x *Failure) Error() string {
	return x.err.Error()
}

func (x *Failure) Unwrap() error {
	return x.err
}

func userMessage(err error, fallback string) string {
	var reqErr *gateway.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return reqErr.Message
	}
	return fallback
}
