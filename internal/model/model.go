package model

import "time"

// Счет лояльности клиента

type Account struct {
	CustomerID    string
	Name          string
	Email         string
	Balance       int
	TotalEarned   int
	TotalRedeemed int
	Tier          string
	CreatedAt     time.Time
}

const (
	TierBronze   = "Bronze"
	TierSilver   = "Silver"
	TierGold     = "Gold"
	TierPlatinum = "Platinum"
)

// TierFor возвращает уровень по накопленным за все время баллам.
// Уровень зависит только от TotalEarned, списания его не понижают
func TierFor(totalEarned int) string {
	switch {
	case totalEarned >= 5000:
		return TierPlatinum
	case totalEarned >= 1500:
		return TierGold
	case totalEarned >= 500:
		return TierSilver
	default:
		return TierBronze
	}
}

// Операции по счету

type Transaction struct {
	ID          string
	CustomerID  string
	Type        string
	Amount      int
	Description string
	OrderID     int    // только для начислений
	RewardID    string // только для списаний
	CreatedAt   time.Time
}

const (
	TransactionEarned   = "earned"
	TransactionRedeemed = "redeemed"
)

// Кухонные станции

type Station struct {
	ID           string
	Name         string
	Color        string
	Categories   []string
	Enabled      bool
	DisplayOrder int
}

type StationAssignment struct {
	OrderID    int
	StationID  string
	Priority   int
	AssignedAt time.Time
}

// Заказ приходит извне (система приема заказов), здесь не хранится

type Order struct {
	ID        int
	Status    string
	CreatedAt time.Time
	Items     []OrderItem
}

type OrderItem struct {
	Name     string
	Quantity int
}

const (
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

type StationStats struct {
	TotalOrders        int
	ActiveOrders       int
	StatusCounts       map[string]int
	AvgPrepTimeMinutes float64
}
