// Package wizard implements the two-step plan and reinvest selection flow.
package wizard

import (
	"errors"
	"fmt"

	"github.com/signal-miniapp/internal/types"
)

// Step is the wizard's current screen
type Step string

const (
	StepSelectingPlan     Step = "selecting_plan"
	StepSelectingReinvest Step = "selecting_reinvest"
	StepCommitted         Step = "committed"
)

var (
	// ErrInvalidTransition is returned for an operation the current step does not offer
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrWizardCommitted is returned for any operation after Commit
	ErrWizardCommitted = errors.New("wizard already committed")
)

// PlanWizard holds the pending selection. Selections survive Next and Back;
// nothing reaches the backend before Commit.
type PlanWizard struct {
	step    Step
	plan    types.Plan
	percent types.ReinvestPercent
}

// New starts a wizard on the plan step with the default selections
func New() *PlanWizard {
	return &PlanWizard{
		step:    StepSelectingPlan,
		plan:    types.PlanStandard,
		percent: types.DefaultReinvestPercent,
	}
}

// Step returns the current step
func (w *PlanWizard) Step() Step { return w.step }

// Plan returns the selected plan
func (w *PlanWizard) Plan() types.Plan { return w.plan }

// Percent returns the selected reinvest percentage
func (w *PlanWizard) Percent() types.ReinvestPercent { return w.percent }

func (w *PlanWizard) expect(step Step) error {
	if w.step == StepCommitted {
		return ErrWizardCommitted
	}
	if w.step != step {
		return fmt.Errorf("%w: at %s, need %s", ErrInvalidTransition, w.step, step)
	}
	return nil
}

// SelectPlan records p while on the plan step
func (w *PlanWizard) SelectPlan(p types.Plan) error {
	if err := w.expect(StepSelectingPlan); err != nil {
		return err
	}
	if !p.Valid() {
		return fmt.Errorf("%w: unknown plan %d", ErrInvalidTransition, int(p))
	}
	w.plan = p
	return nil
}

// Next moves from the plan step to the reinvest step
func (w *PlanWizard) Next() error {
	if err := w.expect(StepSelectingPlan); err != nil {
		return err
	}
	w.step = StepSelectingReinvest
	return nil
}

// SelectReinvest records v while on the reinvest step
func (w *PlanWizard) SelectReinvest(v types.ReinvestPercent) error {
	if err := w.expect(StepSelectingReinvest); err != nil {
		return err
	}
	if !v.Valid() {
		return fmt.Errorf("%w: reinvest percent %d not offered", ErrInvalidTransition, int(v))
	}
	w.percent = v
	return nil
}

// Back returns to the plan step
func (w *PlanWizard) Back() error {
	if err := w.expect(StepSelectingReinvest); err != nil {
		return err
	}
	w.step = StepSelectingPlan
	return nil
}

// markCommitted makes the wizard terminal
func (w *PlanWizard) markCommitted() error {
	if err := w.expect(StepSelectingReinvest); err != nil {
		return err
	}
	w.step = StepCommitted
	return nil
}

// State is the persisted form of a wizard
type State struct {
	Step    Step                  `json:"step"`
	Plan    types.Plan            `json:"plan"`
	Percent types.ReinvestPercent `json:"percent"`
}

// Snapshot returns the wizard's state
func (w *PlanWizard) Snapshot() State {
	return State{Step: w.step, Plan: w.plan, Percent: w.percent}
}

// Restore rebuilds a wizard from a snapshot, rejecting corrupt state
func Restore(s State) (*PlanWizard, error) {
	switch s.Step {
	case StepSelectingPlan, StepSelectingReinvest, StepCommitted:
	default:
		return nil, fmt.Errorf("unknown wizard step %q", s.Step)
	}
	if !s.Plan.Valid() || !s.Percent.Valid() {
		return nil, fmt.Errorf("corrupt wizard selection plan=%d percent=%d", int(s.Plan), int(s.Percent))
	}
	return &PlanWizard{step: s.Step, plan: s.Plan, percent: s.Percent}, nil
}
