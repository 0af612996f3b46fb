package api

import (
	"context"
	"net/http"
	"time"

	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/storage"
	"github.com/signal-miniapp/internal/types"
	"github.com/signal-miniapp/internal/worker"
)

// Every read goes through the session's QueryCache, so repeated reads between
// two mutations reach the backend once.

func (s *Server) user(ctx context.Context, sess *requestSession) (*models.User, error) {
	return storage.Fetch(ctx, sess.cache, storage.KeyUser, func(ctx context.Context) (*models.User, error) {
		return s.deps.Users.GetUser(ctx, sess.TelegramID)
	})
}

func (s *Server) balance(ctx context.Context, sess *requestSession) (*models.Balance, error) {
	return storage.Fetch(ctx, sess.cache, storage.KeyBalance, func(ctx context.Context) (*models.Balance, error) {
		return s.deps.Balances.GetBalance(ctx, sess.TelegramID)
	})
}

func (s *Server) activeSignals(ctx context.Context, sess *requestSession) ([]models.Signal, error) {
	return storage.Fetch(ctx, sess.cache, storage.KeyActiveSignals, func(ctx context.Context) ([]models.Signal, error) {
		return s.deps.Signals.Active(ctx, sess.TelegramID)
	})
}

// ProfileView is the home screen
type ProfileView struct {
	User    *models.User    `json:"user"`
	Balance *models.Balance `json:"balance"`
}

// handleProfile handles GET /api/profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	user, err := s.user(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	balance, err := s.balance(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ProfileView{User: user, Balance: balance})
}

// handleBalance handles GET /api/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	balance, err := s.balance(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

// TransactionsView is the ledger screen
type TransactionsView struct {
	Transactions []models.Transaction `json:"transactions"`
	Profits      []models.Profit      `json:"profits"`
}

// handleTransactions handles GET /api/transactions
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	txs, err := storage.Fetch(ctx, sess.cache, storage.KeyTransactions, func(ctx context.Context) ([]models.Transaction, error) {
		return s.deps.Balances.Transactions(ctx, sess.TelegramID)
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	profits, err := storage.Fetch(ctx, sess.cache, storage.KeyProfits, func(ctx context.Context) ([]models.Profit, error) {
		return s.deps.Balances.Profits(ctx, sess.TelegramID)
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, TransactionsView{Transactions: txs, Profits: profits})
}

// InvestmentsView lists the in-progress investments with their total
type InvestmentsView struct {
	Investments []models.Investment `json:"investments"`
	InProgress  float64             `json:"in_progress"`
}

// handleInvestments handles GET /api/investments
func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	inv, err := storage.Fetch(ctx, sess.cache, storage.KeyInvestments, func(ctx context.Context) (*models.Investments, error) {
		return s.deps.Balances.Investments(ctx, sess.TelegramID)
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	items := inv.Items
	if items == nil {
		items = []models.Investment{}
	}
	respondJSON(w, http.StatusOK, InvestmentsView{Investments: items, InProgress: inv.Total()})
}

// SignalView is a signal with its countdown
type SignalView struct {
	models.Signal
	Countdown worker.Countdown `json:"countdown"`
}

// SignalsView is the signals screen
type SignalsView struct {
	Signals    []SignalView `json:"signals"`
	ComputedAt time.Time    `json:"computed_at"`
}

// handleSignals handles GET /api/signals. Countdowns come from the board's
// last tick; signals the board has not seen yet are computed on the spot.
func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	signals, err := s.activeSignals(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	now := time.Now()
	computedAt := now
	ticked := make(map[int64]worker.Countdown)
	if snap, ok := s.deps.Board.Snapshot(sess.ID); ok {
		computedAt = snap.ComputedAt
		for _, c := range snap.Signals {
			ticked[c.SignalID] = c
		}
	}

	byID := make(map[int64]models.Signal, len(signals))
	for _, sig := range signals {
		byID[sig.ID] = sig
	}

	fresh := worker.Compute(signals, now)
	views := make([]SignalView, 0, len(signals))
	for _, c := range fresh.Signals {
		if prev, ok := ticked[c.SignalID]; ok {
			c = prev
		}
		views = append(views, SignalView{Signal: byID[c.SignalID], Countdown: c})
	}
	respondJSON(w, http.StatusOK, SignalsView{Signals: views, ComputedAt: computedAt})
}

// ReferralsView is the referral screen
type ReferralsView struct {
	Tree  *models.Referral `json:"tree"`
	Count int              `json:"count"`
}

// handleReferrals handles GET /api/referrals
func (s *Server) handleReferrals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	tree, err := storage.Fetch(ctx, sess.cache, storage.KeyReferralTree, func(ctx context.Context) (*models.Referral, error) {
		return s.deps.Referrals.Tree(ctx, sess.TelegramID)
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, ReferralsView{Tree: tree, Count: tree.Count()})
}

// handleAutomod handles GET /api/automod
func (s *Server) handleAutomod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	user, err := s.user(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"automod": user.Automod})
}

// PlanView is the current plan with the choices offered
type PlanView struct {
	Plan             types.Plan              `json:"plan"`
	PlanName         string                  `json:"plan_name"`
	ReinvestPercent  types.ReinvestPercent   `json:"reinvest_percent"`
	Plans            []types.Plan            `json:"plans"`
	ReinvestPercents []types.ReinvestPercent `json:"reinvest_percents"`
}

// handlePlan handles GET /api/plan
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, _ := sessionFromContext(ctx)

	user, err := s.user(ctx, sess)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, PlanView{
		Plan:             user.Plan,
		PlanName:         user.Plan.String(),
		ReinvestPercent:  user.ReinvestPercent,
		Plans:            types.Plans,
		ReinvestPercents: types.ReinvestPercents,
	})
}
