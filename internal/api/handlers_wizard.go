package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signal-miniapp/internal/logging"
	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/storage"
	"github.com/signal-miniapp/internal/types"
	"github.com/signal-miniapp/internal/wizard"
)

const wizardState = "plan_wizard"

// WizardView is the wizard screen
type WizardView struct {
	Step             wizard.Step             `json:"step"`
	Plan             types.Plan              `json:"plan"`
	Percent          types.ReinvestPercent   `json:"percent"`
	Plans            []types.Plan            `json:"plans"`
	ReinvestPercents []types.ReinvestPercent `json:"reinvest_percents"`
}

func newWizardView(w *wizard.PlanWizard) WizardView {
	return WizardView{
		Step:             w.Step(),
		Plan:             w.Plan(),
		Percent:          w.Percent(),
		Plans:            types.Plans,
		ReinvestPercents: types.ReinvestPercents,
	}
}

// loadWizard restores the session's wizard, or starts a new one when none
// is stored or the stored one is unusable
func (s *Server) loadWizard(r *http.Request) *wizard.PlanWizard {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	var state wizard.State
	found, err := s.deps.Sessions.LoadState(ctx, sess.ID, wizardState, &state)
	if err != nil || !found {
		if err != nil {
			logging.FromContext(ctx).WithError(err).Warn("discarding unreadable wizard state")
		}
		return wizard.New()
	}
	return restoreWizard(state)
}

// decodeWizard is loadWizard for a raw stored snapshot
func decodeWizard(ctx context.Context, data []byte) *wizard.PlanWizard {
	if data == nil {
		return wizard.New()
	}
	var state wizard.State
	if err := json.Unmarshal(data, &state); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("discarding unreadable wizard state")
		return wizard.New()
	}
	return restoreWizard(state)
}

func restoreWizard(state wizard.State) *wizard.PlanWizard {
	w, err := wizard.Restore(state)
	if err != nil || w.Step() == wizard.StepCommitted {
		return wizard.New()
	}
	return w
}

// stepWizard applies step to the stored wizard as one compare-and-set, so
// concurrent steps in a session never overwrite each other
func (s *Server) stepWizard(w http.ResponseWriter, r *http.Request, step func(*wizard.PlanWizard) error) {
	if step == nil {
		respondJSON(w, http.StatusOK, newWizardView(s.loadWizard(r)))
		return
	}

	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	var (
		wiz     *wizard.PlanWizard
		stepErr error
	)
	err := s.deps.Sessions.UpdateState(ctx, sess.ID, wizardState, func(current []byte) (any, error) {
		wiz = decodeWizard(ctx, current)
		if stepErr = step(wiz); stepErr != nil {
			return nil, stepErr
		}
		return wiz.Snapshot(), nil
	})
	switch {
	case stepErr != nil:
		respondError(w, http.StatusConflict, ErrCodeInvalidTransition, stepErr.Error(), map[string]interface{}{
			"step": wiz.Step(),
		})
	case errors.Is(err, storage.ErrStateConflict):
		respondError(w, http.StatusConflict, ErrCodeInFlight, "The wizard was changed by another request", nil)
	case err != nil:
		respondServiceError(w, r, err)
	default:
		respondJSON(w, http.StatusOK, newWizardView(wiz))
	}
}

// handleWizardView handles GET /wizard
func (s *Server) handleWizardView(w http.ResponseWriter, r *http.Request) {
	s.stepWizard(w, r, nil)
}

// handleWizardSelectPlan handles POST /wizard/plan
func (s *Server) handleWizardSelectPlan(w http.ResponseWriter, r *http.Request) {
	var body planBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	s.stepWizard(w, r, func(wiz *wizard.PlanWizard) error { return wiz.SelectPlan(body.Plan) })
}

// handleWizardNext handles POST /wizard/next
func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	s.stepWizard(w, r, (*wizard.PlanWizard).Next)
}

// handleWizardBack handles POST /wizard/back
func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	s.stepWizard(w, r, (*wizard.PlanWizard).Back)
}

// handleWizardSelectReinvest handles POST /wizard/reinvest
func (s *Server) handleWizardSelectReinvest(w http.ResponseWriter, r *http.Request) {
	var body reinvestBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	s.stepWizard(w, r, func(wiz *wizard.PlanWizard) error { return wiz.SelectReinvest(body.Percent) })
}

// handleWizardCommit handles POST /wizard/commit - write plan and reinvest
// percent together and navigate once both settled
func (s *Server) handleWizardCommit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	wiz := s.loadWizard(r)
	scope, nav := s.scope(r)
	result, err := s.deps.Committer.Commit(ctx, scope, wiz)
	switch {
	case errors.Is(err, mutation.ErrMutationInFlight):
		respondError(w, http.StatusConflict, ErrCodeInFlight, "This action is already in progress", nil)
		return
	case errors.Is(err, wizard.ErrInvalidTransition), errors.Is(err, wizard.ErrWizardCommitted):
		respondError(w, http.StatusConflict, ErrCodeInvalidTransition, err.Error(), map[string]interface{}{
			"step": wiz.Step(),
		})
		return
	case err != nil:
		respondServiceError(w, r, err)
		return
	}

	if err := s.deps.Sessions.ClearState(ctx, sess.ID, wizardState); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("failed to clear wizard state")
	}
	if failed := result.Failed(); len(failed) > 0 {
		logging.FromContext(ctx).WithField("failed", failed).Warn("wizard commit partially failed")
	}

	route := result.Route
	if nav.route != nil {
		route = *nav.route
	}
	s.redirect(w, r, route)
}
