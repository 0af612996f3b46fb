// Package mutation runs user-triggered backend writes: one call, one cache
// invalidation, one navigation to the outcome screen.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/signal-miniapp/internal/errors"
	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/navigation"
)

// Action performs the single backend write of a mutation
type Action func(ctx context.Context) (any, error)

// Invalidator marks every cached read stale
type Invalidator interface {
	InvalidateAll()
}

// Observer is told about every settled mutation; used for metrics
type Observer interface {
	MutationSettled(name string, kind OutcomeKind, duration time.Duration)
}

// Scope is the session a mutation runs for
type Scope struct {
	SessionID  string
	TelegramID int64
	Cache      Invalidator
	Navigator  navigation.Navigator
}

// Messages are the texts shown on the outcome screens. Business is used
// instead of Failure when the backend answered success:false, if set.
type Messages struct {
	Success  string
	Failure  string
	Business string
}

// Validate rejects empty outcome texts
func (m Messages) Validate() error {
	if m.Success == "" || m.Failure == "" {
		return errors.New("success and failure messages are required")
	}
	return nil
}

func (m Messages) failureFor(err error) string {
	if m.Business != "" && apperrors.IsBusiness(err) {
		return m.Business
	}
	return m.Failure
}

// OutcomeKind tells a success from a failure
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	if k == OutcomeSuccess {
		return "success"
	}
	return "failure"
}

// Outcome is the terminal state of a mutation: Success carries the backend
// payload, Failure carries the reason. Route is set when Execute navigated.
type Outcome struct {
	Kind    OutcomeKind
	Payload any
	Reason  error
	Route   navigation.Route
}

// Succeeded reports whether the mutation went through
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSuccess
}

// Controller executes mutations
type Controller struct {
	router   *navigation.Router
	observer Observer
	logger   *logging.Logger
	now      func() time.Time
}

// NewController creates a controller. observer may be nil.
func NewController(router *navigation.Router, observer Observer) *Controller {
	return &Controller{
		router:   router,
		observer: observer,
		logger:   logging.GetGlobalLogger().WithField("component", "mutation"),
		now:      time.Now,
	}
}

// Execute runs action once, invalidates the session cache once and
// navigates once: to the success screen with msgs.Success, or to the
// failure screen with the failure text. Backend error text is logged only.
func (c *Controller) Execute(ctx context.Context, scope Scope, name string, action Action, msgs Messages) Outcome {
	if err := msgs.Validate(); err != nil {
		panic(fmt.Sprintf("mutation %s: %v", name, err))
	}

	outcome := c.Settle(ctx, scope, name, action)
	if outcome.Succeeded() {
		outcome.Route = c.router.ToSuccess(scope.Navigator, msgs.Success)
	} else {
		outcome.Route = c.router.ToFailure(scope.Navigator, msgs.failureFor(outcome.Reason))
	}
	return outcome
}

// Settle runs action once and invalidates the session cache once, without
// navigating. Callers that combine several mutations navigate themselves.
func (c *Controller) Settle(ctx context.Context, scope Scope, name string, action Action) Outcome {
	start := c.now()
	payload, err := action(ctx)
	duration := c.now().Sub(start)

	if scope.Cache != nil {
		scope.Cache.InvalidateAll()
	}

	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"mutation": name,
		"session":  scope.SessionID,
		"duration": duration.String(),
	})

	var outcome Outcome
	if err != nil {
		logger.WithError(err).WithField("category", string(apperrors.CategoryOf(err))).Warn("mutation failed")
		outcome = Outcome{Kind: OutcomeFailure, Reason: err}
	} else {
		logger.Info("mutation succeeded")
		outcome = Outcome{Kind: OutcomeSuccess, Payload: payload}
	}

	if c.observer != nil {
		c.observer.MutationSettled(name, outcome.Kind, duration)
	}
	return outcome
}
