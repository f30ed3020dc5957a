package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iurnickita/bistrobonus/internal/ledger/config"
	"github.com/iurnickita/bistrobonus/internal/model"
	"github.com/iurnickita/bistrobonus/internal/store"
)

func newTestLedger() Ledger {
	return NewLedger(config.Config{}, store.NewMemStore(), zap.NewNop())
}

func TestLedgerEarn(t *testing.T) {
	const customer = "c1"

	l := newTestLedger()
	ctx := context.Background()

	// оплата наличными: 2 балла за единицу суммы
	result, err := l.Earn(ctx, EarnRequest{
		CustomerID:    customer,
		OrderID:       1,
		OrderAmount:   10,
		PaymentMethod: "cash",
	})
	require.NoError(t, err)
	require.Equal(t, 20, result.TokensEarned)
	require.Equal(t, 20, result.BaseTokens)
	require.Equal(t, 0, result.BonusTokens)
	require.Equal(t, 20, result.NewBalance)
	require.Equal(t, model.TierBronze, result.Tier)

	// оплата usdc удваивает начисление
	result, err = l.Earn(ctx, EarnRequest{
		CustomerID:    customer,
		OrderID:       2,
		OrderAmount:   10,
		PaymentMethod: "usdc",
	})
	require.NoError(t, err)
	require.Equal(t, 40, result.TokensEarned)
	require.Equal(t, 20, result.BaseTokens)
	require.Equal(t, 20, result.BonusTokens)
	require.Equal(t, 60, result.NewBalance)
	require.Equal(t, model.TierBronze, result.Tier)

	acc, err := l.GetBalance(ctx, customer)
	require.NoError(t, err)
	require.Equal(t, 60, acc.Balance)
	require.Equal(t, 60, acc.TotalEarned)
	require.Equal(t, 0, acc.TotalRedeemed)
}

func TestLedgerEarnUSDCDoubles(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	cash, err := l.Earn(ctx, EarnRequest{CustomerID: "cash", OrderAmount: 37.5, PaymentMethod: "card"})
	require.NoError(t, err)
	usdc, err := l.Earn(ctx, EarnRequest{CustomerID: "usdc", OrderAmount: 37.5, PaymentMethod: "usdc"})
	require.NoError(t, err)
	require.Equal(t, cash.TokensEarned*2, usdc.TokensEarned)
}

func TestLedgerEarnValidation(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Earn(ctx, EarnRequest{OrderAmount: 10})
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = l.Earn(ctx, EarnRequest{CustomerID: "c1"})
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = l.Earn(ctx, EarnRequest{CustomerID: "c1", OrderAmount: -5})
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestLedgerRedeem(t *testing.T) {
	const customer = "c1"

	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Earn(ctx, EarnRequest{CustomerID: customer, OrderID: 1, OrderAmount: 10, PaymentMethod: "cash"})
	require.NoError(t, err)
	_, err = l.Earn(ctx, EarnRequest{CustomerID: customer, OrderID: 2, OrderAmount: 10, PaymentMethod: "usdc"})
	require.NoError(t, err)

	result, err := l.Redeem(ctx, RedeemRequest{CustomerID: customer, RewardID: "free-drink", Cost: 50})
	require.NoError(t, err)
	require.Equal(t, 50, result.TokensRedeemed)
	require.Equal(t, 10, result.NewBalance)
	require.Equal(t, "free-drink", result.RewardID)

	// уровень при списании не меняется
	acc, err := l.GetBalance(ctx, customer)
	require.NoError(t, err)
	require.Equal(t, 10, acc.Balance)
	require.Equal(t, 50, acc.TotalRedeemed)
	require.Equal(t, model.TierBronze, acc.Tier)

	// недостаточно баллов: баланс не меняется
	_, err = l.Redeem(ctx, RedeemRequest{CustomerID: customer, RewardID: "x", Cost: 100})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	acc, err = l.GetBalance(ctx, customer)
	require.NoError(t, err)
	require.Equal(t, 10, acc.Balance)
	require.Equal(t, 50, acc.TotalRedeemed)
}

func TestLedgerRedeemUnknownCustomer(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Redeem(ctx, RedeemRequest{CustomerID: "nobody", RewardID: "r", Cost: 10})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerBalanceInvariant(t *testing.T) {
	const customer = "c1"

	l := newTestLedger()
	ctx := context.Background()

	checkInvariant := func() {
		acc, err := l.GetBalance(ctx, customer)
		require.NoError(t, err)
		require.Equal(t, acc.TotalEarned-acc.TotalRedeemed, acc.Balance)
	}

	_, err := l.Earn(ctx, EarnRequest{CustomerID: customer, OrderAmount: 100, PaymentMethod: "cash"})
	require.NoError(t, err)
	checkInvariant()

	_, err = l.Redeem(ctx, RedeemRequest{CustomerID: customer, RewardID: "r1", Cost: 30})
	require.NoError(t, err)
	checkInvariant()

	_, err = l.Earn(ctx, EarnRequest{CustomerID: customer, OrderAmount: 15, PaymentMethod: "usdc"})
	require.NoError(t, err)
	checkInvariant()

	_, err = l.Redeem(ctx, RedeemRequest{CustomerID: customer, RewardID: "r2", Cost: 170})
	require.NoError(t, err)
	checkInvariant()
}

func TestLedgerTiers(t *testing.T) {
	const customer = "c1"

	l := newTestLedger()
	ctx := context.Background()

	// 250 * 2 = 500 -> Silver
	result, err := l.Earn(ctx, EarnRequest{CustomerID: customer, OrderAmount: 250, PaymentMethod: "cash"})
	require.NoError(t, err)
	require.Equal(t, model.TierSilver, result.Tier)

	// 500 + 1000 = 1500 -> Gold
	result, err = l.Earn(ctx, EarnRequest{CustomerID: customer, OrderAmount: 500, PaymentMethod: "cash"})
	require.NoError(t, err)
	require.Equal(t, model.TierGold, result.Tier)

	// 1500 + 3500 = 5000 -> Platinum
	result, err = l.Earn(ctx, EarnRequest{CustomerID: customer, OrderAmount: 1750, PaymentMethod: "cash"})
	require.NoError(t, err)
	require.Equal(t, model.TierPlatinum, result.Tier)

	// списание уровень не понижает
	_, err = l.Redeem(ctx, RedeemRequest{CustomerID: customer, RewardID: "r", Cost: 5000})
	require.NoError(t, err)

	acc, err := l.GetBalance(ctx, customer)
	require.NoError(t, err)
	require.Equal(t, 0, acc.Balance)
	require.Equal(t, model.TierPlatinum, acc.Tier)
}

func TestLedgerTransactions(t *testing.T) {
	const customer = "c1"

	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Earn(ctx, EarnRequest{CustomerID: customer, OrderID: 1, OrderAmount: 10, PaymentMethod: "cash"})
	require.NoError(t, err)
	_, err = l.Earn(ctx, EarnRequest{CustomerID: customer, OrderID: 2, OrderAmount: 20, PaymentMethod: "cash"})
	require.NoError(t, err)
	_, err = l.Redeem(ctx, RedeemRequest{CustomerID: customer, RewardID: "free-drink", Cost: 15})
	require.NoError(t, err)

	// от новых к старым
	txns, err := l.GetTransactions(ctx, customer, 0)
	require.NoError(t, err)
	require.Len(t, txns, 3)
	require.Equal(t, model.TransactionRedeemed, txns[0].Type)
	require.Equal(t, "free-drink", txns[0].RewardID)
	require.Equal(t, model.TransactionEarned, txns[1].Type)
	require.Equal(t, 2, txns[1].OrderID)
	require.Equal(t, 1, txns[2].OrderID)

	// неизвестный клиент
	_, err = l.GetTransactions(ctx, "nobody", 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedgerLeaderboard(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	amounts := map[string]float64{"a": 10, "b": 300, "c": 50}
	for customer, amount := range amounts {
		_, err := l.Earn(ctx, EarnRequest{CustomerID: customer, OrderAmount: amount, PaymentMethod: "cash"})
		require.NoError(t, err)
	}

	top, err := l.GetLeaderboard(ctx, 0)
	require.NoError(t, err)
	require.Len(t, top, 3)
	require.Equal(t, "b", top[0].CustomerID)
	require.Equal(t, "c", top[1].CustomerID)
	require.Equal(t, "a", top[2].CustomerID)
}
