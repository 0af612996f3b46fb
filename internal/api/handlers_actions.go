package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/signal-miniapp/internal/mutation"
	"github.com/signal-miniapp/internal/navigation"
	"github.com/signal-miniapp/internal/types"
)

// OutcomeResponse is the JSON form of a navigation, for clients that ask
// for JSON instead of following a redirect
type OutcomeResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// redirect sends the client to route: 303 for browsers, a JSON body otherwise
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, route navigation.Route) {
	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, OutcomeResponse{
			Success:  route.IsSuccess(),
			Message:  route.Message,
			Redirect: route.URL(),
		})
		return
	}
	http.Redirect(w, r, route.URL(), http.StatusSeeOther)
}

// routeRecorder is the Navigator of one request: it keeps the route the
// controller chose so the handler can answer with it
type routeRecorder struct {
	route *navigation.Route
}

func (n *routeRecorder) Navigate(route navigation.Route) {
	n.route = &route
}

func (s *Server) scope(r *http.Request) (mutation.Scope, *routeRecorder) {
	sess, _ := sessionFromContext(r.Context())
	nav := &routeRecorder{}
	return mutation.Scope{
		SessionID:  sess.ID,
		TelegramID: sess.TelegramID,
		Cache:      sess.cache,
		Navigator:  nav,
	}, nav
}

// finish answers a mutation trigger with the route it navigated to
func (s *Server) finish(w http.ResponseWriter, r *http.Request, nav *routeRecorder, outcome mutation.Outcome, err error) {
	if errors.Is(err, mutation.ErrMutationInFlight) {
		respondError(w, http.StatusConflict, ErrCodeInFlight, "This action is already in progress", nil)
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	route := outcome.Route
	if nav.route != nil {
		route = *nav.route
	}
	s.redirect(w, r, route)
}

type amountBody struct {
	Amount float64 `json:"amount"`
}

func parseAmount(w http.ResponseWriter, r *http.Request) (float64, bool) {
	var body amountBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return 0, false
	}
	return body.Amount, true
}

// handleTransferToMain handles POST /actions/transfer-to-main
func (s *Server) handleTransferToMain(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}
	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.TransferToMain(r.Context(), scope, amount)
	s.finish(w, r, nav, outcome, err)
}

// handleTransferToTrading handles POST /actions/transfer-to-trading
func (s *Server) handleTransferToTrading(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}
	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.TransferToTrading(r.Context(), scope, amount)
	s.finish(w, r, nav, outcome, err)
}

// handleTopup handles POST /actions/topup
func (s *Server) handleTopup(w http.ResponseWriter, r *http.Request) {
	amount, ok := parseAmount(w, r)
	if !ok {
		return
	}
	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.Topup(r.Context(), scope, amount)
	s.finish(w, r, nav, outcome, err)
}

type planBody struct {
	Plan types.Plan `json:"plan"`
}

// handleUpdatePlan handles POST /actions/plan
func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var body planBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.UpdatePlan(r.Context(), scope, body.Plan)
	s.finish(w, r, nav, outcome, err)
}

type reinvestBody struct {
	Percent types.ReinvestPercent `json:"percent"`
}

// handleUpdateReinvest handles POST /actions/reinvest
func (s *Server) handleUpdateReinvest(w http.ResponseWriter, r *http.Request) {
	var body reinvestBody
	if err := parseJSONBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.UpdateReinvest(r.Context(), scope, body.Percent)
	s.finish(w, r, nav, outcome, err)
}

// handleToggleAutomod handles POST /actions/automod - flips the current state
func (s *Server) handleToggleAutomod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	user, err := s.user(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.SetAutomod(ctx, scope, !user.Automod)
	s.finish(w, r, nav, outcome, err)
}

// handleJoinSignal handles POST /actions/signals/{id}/join
func (s *Server) handleJoinSignal(w http.ResponseWriter, r *http.Request) {
	signalID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid signal ID", nil)
		return
	}
	scope, nav := s.scope(r)
	outcome, err := s.deps.Flows.JoinSignal(r.Context(), scope, signalID)
	s.finish(w, r, nav, outcome, err)
}
