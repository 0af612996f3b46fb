package mutation

import (
	"context"
	"fmt"

	"github.com/signal-miniapp/internal/models"
	"github.com/signal-miniapp/internal/types"
)

// Action names, also used as guard keys and metric labels
const (
	NameTransferToMain    = "transfer_to_main"
	NameTransferToTrading = "transfer_to_trading"
	NameTopup             = "topup"
	NameUpdatePlan        = "update_plan"
	NameUpdateReinvest    = "update_reinvest"
	NameEnableAutomod     = "enable_automod"
	NameDisableAutomod    = "disable_automod"
	NameJoinSignal        = "join_signal"
)

const unknownError = "Неизвестная ошибка"

// Outcome screen texts per action
var (
	TransferToMainMessages = Messages{
		Success: "Средства успешно переведены",
		Failure: "Недостаточно средств для перевода с торгового баланса",
	}
	TransferToTradingMessages = Messages{
		Success: "Средства успешно переведены",
		Failure: "Недостаточно средств для перевода",
	}
	TopupMessages = Messages{
		Success: "Баланс успешно пополнен",
		Failure: unknownError,
	}
	UpdatePlanMessages = Messages{
		Success: "План успешно изменен",
		Failure: "Не удалось изменить план",
	}
	UpdateReinvestMessages = Messages{
		Success: "Процент для реинвестирования успешно изменен",
		Failure: "Не удалось изменить процент реинвестирования",
	}
	EnableAutomodMessages = Messages{
		Success:  "Авто-мод успешно включен",
		Failure:  unknownError,
		Business: "Авто-мод не включен, недостаточно средств на балансе",
	}
	DisableAutomodMessages = Messages{
		Success: "Авто-мод успешно отключен",
		Failure: "Не удалось отключить авто-мод",
	}
	JoinSignalMessages = Messages{
		Success: "Вы успешно вошли в сигнал",
		Failure: "Ошибка входа в сигнал, проверьте ваш баланс",
	}
)

// BalanceActions are the balance writes a user can trigger
type BalanceActions interface {
	Deposit(ctx context.Context, telegramID int64, amount float64) (*models.ActionResponse, error)
	TransferToTrading(ctx context.Context, telegramID int64, amount float64) (*models.ActionResponse, error)
	TransferToMain(ctx context.Context, telegramID int64, amount float64) (*models.ActionResponse, error)
}

// PlanActions changes the plan
type PlanActions interface {
	UpdatePlan(ctx context.Context, telegramID int64, plan types.Plan) (*models.ActionResponse, error)
}

// ReinvestActions changes the reinvest percentage
type ReinvestActions interface {
	SetPercent(ctx context.Context, telegramID int64, percent types.ReinvestPercent) (*models.ActionResponse, error)
}

// AutomodActions toggles automatic mode
type AutomodActions interface {
	EnableAutomod(ctx context.Context, telegramID int64) (*models.ActionResponse, error)
	DisableAutomod(ctx context.Context, telegramID int64) (*models.ActionResponse, error)
}

// SignalActions joins signals
type SignalActions interface {
	Join(ctx context.Context, telegramID, signalID int64) (*models.ActionResponse, error)
}

// FlowServices groups the services the flows call
type FlowServices struct {
	Balance  BalanceActions
	Plan     PlanActions
	Reinvest ReinvestActions
	Automod  AutomodActions
	Signals  SignalActions
}

// Flows binds every user action to its backend call and its outcome texts,
// behind a per-session single-in-flight guard.
type Flows struct {
	ctrl     *Controller
	guard    *Guard
	services FlowServices
}

// NewFlows creates the flow set
func NewFlows(ctrl *Controller, guard *Guard, services FlowServices) *Flows {
	return &Flows{ctrl: ctrl, guard: guard, services: services}
}

// Controller returns the controller the flows execute through
func (f *Flows) Controller() *Controller {
	return f.ctrl
}

// Guard returns the in-flight guard shared by the flows
func (f *Flows) Guard() *Guard {
	return f.guard
}

// GuardKey is the guard slot of action name within a session
func GuardKey(sessionID, name string) string {
	return fmt.Sprintf("%s:%s", sessionID, name)
}

func (f *Flows) run(ctx context.Context, scope Scope, name string, msgs Messages, action Action) (Outcome, error) {
	release, err := f.guard.Acquire(GuardKey(scope.SessionID, name))
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	return f.ctrl.Execute(ctx, scope, name, action, msgs), nil
}

func payload(resp *models.ActionResponse, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// TransferToMain moves amount from the trading to the main balance
func (f *Flows) TransferToMain(ctx context.Context, scope Scope, amount float64) (Outcome, error) {
	return f.run(ctx, scope, NameTransferToMain, TransferToMainMessages, func(ctx context.Context) (any, error) {
		return payload(f.services.Balance.TransferToMain(ctx, scope.TelegramID, amount))
	})
}

// TransferToTrading moves amount from the main to the trading balance
func (f *Flows) TransferToTrading(ctx context.Context, scope Scope, amount float64) (Outcome, error) {
	return f.run(ctx, scope, NameTransferToTrading, TransferToTradingMessages, func(ctx context.Context) (any, error) {
		return payload(f.services.Balance.TransferToTrading(ctx, scope.TelegramID, amount))
	})
}

// Topup deposits amount onto the main balance
func (f *Flows) Topup(ctx context.Context, scope Scope, amount float64) (Outcome, error) {
	return f.run(ctx, scope, NameTopup, TopupMessages, func(ctx context.Context) (any, error) {
		return payload(f.services.Balance.Deposit(ctx, scope.TelegramID, amount))
	})
}

// UpdatePlan sets the plan on its own, outside the wizard
func (f *Flows) UpdatePlan(ctx context.Context, scope Scope, plan types.Plan) (Outcome, error) {
	return f.run(ctx, scope, NameUpdatePlan, UpdatePlanMessages, f.PlanAction(scope, plan))
}

// UpdateReinvest sets the reinvest percentage on its own, outside the wizard
func (f *Flows) UpdateReinvest(ctx context.Context, scope Scope, percent types.ReinvestPercent) (Outcome, error) {
	return f.run(ctx, scope, NameUpdateReinvest, UpdateReinvestMessages, f.ReinvestAction(scope, percent))
}

// SetAutomod enables or disables automatic mode
func (f *Flows) SetAutomod(ctx context.Context, scope Scope, enable bool) (Outcome, error) {
	if enable {
		return f.run(ctx, scope, NameEnableAutomod, EnableAutomodMessages, func(ctx context.Context) (any, error) {
			return payload(f.services.Automod.EnableAutomod(ctx, scope.TelegramID))
		})
	}
	return f.run(ctx, scope, NameDisableAutomod, DisableAutomodMessages, func(ctx context.Context) (any, error) {
		return payload(f.services.Automod.DisableAutomod(ctx, scope.TelegramID))
	})
}

// JoinSignal stakes the cost of signalID
func (f *Flows) JoinSignal(ctx context.Context, scope Scope, signalID int64) (Outcome, error) {
	return f.run(ctx, scope, NameJoinSignal, JoinSignalMessages, func(ctx context.Context) (any, error) {
		return payload(f.services.Signals.Join(ctx, scope.TelegramID, signalID))
	})
}

// PlanAction is the bare plan write, for callers that settle it themselves
func (f *Flows) PlanAction(scope Scope, plan types.Plan) Action {
	return func(ctx context.Context) (any, error) {
		return payload(f.services.Plan.UpdatePlan(ctx, scope.TelegramID, plan))
	}
}

// ReinvestAction is the bare reinvest write, for callers that settle it themselves
func (f *Flows) ReinvestAction(scope Scope, percent types.ReinvestPercent) Action {
	return func(ctx context.Context) (any, error) {
		return payload(f.services.Reinvest.SetPercent(ctx, scope.TelegramID, percent))
	}
}
