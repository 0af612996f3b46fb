package wizard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/navigation"
	"github.com/signal-miniapp/internal/types"
)

// Messages shown after a commit
const (
	CommitSuccessMessage        = "План успешно изменен"
	CommitPlanFailedMessage     = "Не удалось изменить план"
	CommitReinvestFailedMessage = "Не удалось изменить процент реинвестирования"
	CommitBothFailedMessage     = "Не удалось изменить план и процент реинвестирования"
)

const commitGuardName = "plan_wizard_commit"

// Settler settles a mutation without navigating
type Settler interface {
	Settle(ctx context.Context, scope mutation.Scope, name string, action mutation.Action) mutation.Outcome
}

// Actions builds the two writes of a commit
type Actions interface {
	PlanAction(scope mutation.Scope, plan types.Plan) mutation.Action
	ReinvestAction(scope mutation.Scope, percent types.ReinvestPercent) mutation.Action
}

// CommitResult reports both writes and the single navigation that followed
type CommitResult struct {
	Plan     mutation.Outcome
	Reinvest mutation.Outcome
	Route    navigation.Route
}

// Failed lists the steps whose write failed
func (r *CommitResult) Failed() []string {
	var failed []string
	if !r.Plan.Succeeded() {
		failed = append(failed, mutation.NameUpdatePlan)
	}
	if !r.Reinvest.Succeeded() {
		failed = append(failed, mutation.NameUpdateReinvest)
	}
	return failed
}

// Committer issues both wizard writes concurrently and navigates once both settled
type Committer struct {
	settler Settler
	actions Actions
	router  *navigation.Router
	guard   *mutation.Guard
}

// NewCommitter creates a committer
func NewCommitter(settler Settler, actions Actions, router *navigation.Router, guard *mutation.Guard) *Committer {
	return &Committer{settler: settler, actions: actions, router: router, guard: guard}
}

// Commit writes the wizard's plan and reinvest selections in parallel.
// Each write invalidates the session cache when it settles; the client is
// navigated once, after both, to a message naming what failed.
func (c *Committer) Commit(ctx context.Context, scope mutation.Scope, w *PlanWizard) (*CommitResult, error) {
	release, err := c.guard.Acquire(mutation.GuardKey(scope.SessionID, commitGuardName))
	if err != nil {
		return nil, err
	}
	defer release()

	if err := w.markCommitted(); err != nil {
		return nil, err
	}

	plan, percent := w.Plan(), w.Percent()
	result := &CommitResult{}

	var g errgroup.Group
	g.Go(func() error {
		result.Plan = c.settler.Settle(ctx, scope, mutation.NameUpdatePlan, c.actions.PlanAction(scope, plan))
		return nil
	})
	g.Go(func() error {
		result.Reinvest = c.settler.Settle(ctx, scope, mutation.NameUpdateReinvest, c.actions.ReinvestAction(scope, percent))
		return nil
	})
	_ = g.Wait()

	switch {
	case result.Plan.Succeeded() && result.Reinvest.Succeeded():
		result.Route = c.router.ToSuccess(scope.Navigator, CommitSuccessMessage)
	default:
		result.Route = c.router.ToFailure(scope.Navigator, failureMessage(result))
	}
	return result, nil
}

func failureMessage(r *CommitResult) string {
	planFailed, reinvestFailed := !r.Plan.Succeeded(), !r.Reinvest.Succeeded()
	switch {
	case planFailed && reinvestFailed:
		return CommitBothFailedMessage
	case planFailed:
		return CommitPlanFailedMessage
	default:
		return CommitReinvestFailedMessage
	}
}
