package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/bistrobonus/internal/ledger/auditsink"
	"github.com/iurnickita/bistrobonus/internal/ledger/config"
	"github.com/iurnickita/bistrobonus/internal/model"
	"github.com/iurnickita/bistrobonus/internal/store"
)

// Ledger ведет счета лояльности: начисление, списание, баланс, история
type Ledger interface {
	Earn(ctx context.Context, req EarnRequest) (EarnResult, error)
	Redeem(ctx context.Context, req RedeemRequest) (RedeemResult, error)
	GetBalance(ctx context.Context, customerID string) (model.Account, error)
	GetTransactions(ctx context.Context, customerID string, limit int) ([]model.Transaction, error)
	GetLeaderboard(ctx context.Context, limit int) ([]model.Account, error)
}

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNotFound          = errors.New("customer not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

const (
	// Базовая ставка начисления: 2 балла за единицу суммы заказа
	earnRate = 2
	// Оплата usdc удваивает начисление
	usdcPaymentMethod = "usdc"

	TransactionsLimit = 50
	LeaderboardLimit  = 10
)

type EarnRequest struct {
	CustomerID    string
	Name          string
	Email         string
	OrderID       int
	OrderAmount   float64
	PaymentMethod string
}

type EarnResult struct {
	TokensEarned int
	NewBalance   int
	Tier         string
	BaseTokens   int
	BonusTokens  int
	Reason       string
}

type RedeemRequest struct {
	CustomerID string
	RewardID   string
	Cost       int
}

type RedeemResult struct {
	TokensRedeemed int
	NewBalance     int
	RewardID       string
}

type ledger struct {
	cfg    config.Config
	store  store.Store
	audit  auditsink.AuditSink
	zaplog *zap.Logger
}

func NewLedger(cfg config.Config, store store.Store, zaplog *zap.Logger) Ledger {
	audit := auditsink.NewAuditSink(cfg.AuditAddr, zaplog)

	return &ledger{
		cfg:    cfg,
		store:  store,
		audit:  audit,
		zaplog: zaplog,
	}
}

func (l *ledger) Earn(ctx context.Context, req EarnRequest) (EarnResult, error) {
	if req.CustomerID == "" {
		return EarnResult{}, ErrInsufficientData
	}
	if req.OrderAmount <= 0 || math.IsInf(req.OrderAmount, 0) || math.IsNaN(req.OrderAmount) {
		return EarnResult{}, ErrInsufficientData
	}

	baseTokens := int(math.Floor(req.OrderAmount * earnRate))
	bonusTokens := 0
	reason := fmt.Sprintf("Standard rate: %d tokens per $1", earnRate)
	if req.PaymentMethod == usdcPaymentMethod {
		bonusTokens = baseTokens
		reason = "USDC payment: 2x token bonus"
	}
	totalTokens := baseTokens + bonusTokens
	if totalTokens <= 0 {
		return EarnResult{}, ErrInsufficientData
	}

	description := fmt.Sprintf("Earned %d tokens for order %d", totalTokens, req.OrderID)
	if bonusTokens > 0 {
		description += " (USDC bonus)"
	}

	txn := model.Transaction{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		Type:        model.TransactionEarned,
		Amount:      totalTokens,
		Description: description,
		OrderID:     req.OrderID,
		CreatedAt:   time.Now(),
	}

	acc, err := l.store.AccountEarn(ctx, req.CustomerID, req.Name, req.Email, txn)
	if err != nil {
		return EarnResult{}, err
	}

	// Запись в журнал аудита не участвует в операции:
	// выполняется в фоне, ошибка не возвращается
	go l.audit.TryRecord(auditsink.Event{
		Type:       model.TransactionEarned,
		CustomerID: req.CustomerID,
		Amount:     totalTokens,
		OrderID:    req.OrderID,
		Timestamp:  txn.CreatedAt,
	})

	return EarnResult{
		TokensEarned: totalTokens,
		NewBalance:   acc.Balance,
		Tier:         acc.Tier,
		BaseTokens:   baseTokens,
		BonusTokens:  bonusTokens,
		Reason:       reason,
	}, nil
}

func (l *ledger) Redeem(ctx context.Context, req RedeemRequest) (RedeemResult, error) {
	if req.CustomerID == "" || req.RewardID == "" {
		return RedeemResult{}, ErrInsufficientData
	}
	if req.Cost <= 0 {
		return RedeemResult{}, ErrInsufficientData
	}

	txn := model.Transaction{
		ID:          uuid.NewString(),
		CustomerID:  req.CustomerID,
		Type:        model.TransactionRedeemed,
		Amount:      req.Cost,
		Description: fmt.Sprintf("Redeemed %d tokens for reward %s", req.Cost, req.RewardID),
		RewardID:    req.RewardID,
		CreatedAt:   time.Now(),
	}

	acc, err := l.store.AccountRedeem(ctx, req.CustomerID, txn)
	if err != nil {
		switch err {
		case store.ErrNoRows:
			return RedeemResult{}, ErrNotFound
		case store.ErrInsufficientFunds:
			return RedeemResult{}, ErrInsufficientFunds
		default:
			return RedeemResult{}, err
		}
	}

	go l.audit.TryRecord(auditsink.Event{
		Type:       model.TransactionRedeemed,
		CustomerID: req.CustomerID,
		Amount:     req.Cost,
		RewardID:   req.RewardID,
		Timestamp:  txn.CreatedAt,
	})

	return RedeemResult{
		TokensRedeemed: req.Cost,
		NewBalance:     acc.Balance,
		RewardID:       req.RewardID,
	}, nil
}

func (l *ledger) GetBalance(ctx context.Context, customerID string) (model.Account, error) {
	if customerID == "" {
		return model.Account{}, ErrInsufficientData
	}

	acc, err := l.store.AccountGet(ctx, customerID)
	if err != nil {
		if err == store.ErrNoRows {
			return model.Account{}, ErrNotFound
		}
		return model.Account{}, err
	}
	return acc, nil
}

func (l *ledger) GetTransactions(ctx context.Context, customerID string, limit int) ([]model.Transaction, error) {
	if customerID == "" {
		return nil, ErrInsufficientData
	}
	if limit <= 0 || limit > TransactionsLimit {
		limit = TransactionsLimit
	}

	// Неизвестный клиент - 404, а не пустой список
	_, err := l.store.AccountGet(ctx, customerID)
	if err != nil {
		if err == store.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return l.store.TransactionList(ctx, customerID, limit)
}

func (l *ledger) GetLeaderboard(ctx context.Context, limit int) ([]model.Account, error) {
	if limit <= 0 || limit > LeaderboardLimit {
		limit = LeaderboardLimit
	}
	return l.store.AccountTop(ctx, limit)
}
