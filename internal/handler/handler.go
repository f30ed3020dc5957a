package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/iurnickita/bistrobonus/internal/auth"
	"github.com/iurnickita/bistrobonus/internal/gzip"
	"github.com/iurnickita/bistrobonus/internal/handler/config"
	"github.com/iurnickita/bistrobonus/internal/ledger"
	"github.com/iurnickita/bistrobonus/internal/logger"
	"github.com/iurnickita/bistrobonus/internal/model"
	"github.com/iurnickita/bistrobonus/internal/station"
)

func Serve(cfg config.Config, auth auth.Auth, ledger ledger.Ledger, router station.Router, zaplog *zap.Logger) error {
	h := newHandler(auth, ledger, router, zaplog)
	mux := h.newRouter()

	// запросы приходят из браузера с других адресов
	// (витрина заказов, админка, кухонный экран)
	corsmdlw := cors.New(cors.Options{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: corsmdlw.Handler(mux),
	}

	return srv.ListenAndServe()
}

type handler struct {
	auth    auth.Auth
	ledger  ledger.Ledger
	station station.Router
	zaplog  *zap.Logger
}

func newHandler(auth auth.Auth, ledger ledger.Ledger, router station.Router, zaplog *zap.Logger) *handler {
	return &handler{
		auth:    auth,
		ledger:  ledger,
		station: router,
		zaplog:  zaplog,
	}
}

func (h *handler) newRouter() *http.ServeMux {
	mux := http.NewServeMux()

	// Счета лояльности: контракт витрины заказов
	mux.HandleFunc("POST /earn", h.mdlw(h.PostEarn))
	mux.HandleFunc("GET /balance/{customerId}", h.mdlw(h.GetBalance))
	mux.HandleFunc("POST /redeem", h.mdlw(h.PostRedeem))
	mux.HandleFunc("GET /transactions/{customerId}", h.mdlw(h.GetTransactions))
	mux.HandleFunc("GET /leaderboard", h.mdlw(h.GetLeaderboard))

	// Персонал
	mux.HandleFunc("POST /api/staff/register", h.mdlw(h.auth.Register))
	mux.HandleFunc("POST /api/staff/login", h.mdlw(h.auth.Login))

	// Станции и назначения
	mux.HandleFunc("GET /api/stations", h.mdlw(h.GetStations))
	mux.HandleFunc("POST /api/stations", h.mdlwAuth(h.PostStation))
	mux.HandleFunc("PUT /api/stations/{stationId}", h.mdlwAuth(h.PutStation))
	mux.HandleFunc("DELETE /api/stations/{stationId}", h.mdlwAuth(h.DeleteStation))
	mux.HandleFunc("POST /api/stations/{stationId}/stats", h.mdlwAuth(h.PostStationStats))
	mux.HandleFunc("POST /api/orders/route", h.mdlwAuth(h.PostRoute))
	mux.HandleFunc("POST /api/orders/assign", h.mdlwAuth(h.PostAssign))
	mux.HandleFunc("DELETE /api/orders/assign/{orderId}", h.mdlwAuth(h.DeleteAssign))
	mux.HandleFunc("POST /api/orders/unassigned", h.mdlwAuth(h.PostUnassigned))

	return mux
}

func (h *handler) mdlw(next http.HandlerFunc) http.HandlerFunc {
	return gzip.GzipMiddleware(logger.RequestLogMdlw(next, h.zaplog))
}

func (h *handler) mdlwAuth(next http.HandlerFunc) http.HandlerFunc {
	return h.mdlw(h.auth.Middleware(next))
}

func (h *handler) writeJSON(w http.ResponseWriter, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(responseJSON)
}

type PostEarnJSONRequest struct {
	CustomerID    string  `json:"customerId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	OrderID       int     `json:"orderId"`
	OrderAmount   float64 `json:"orderAmount"`
	PaymentMethod string  `json:"paymentMethod"`
}

type PostEarnJSONResponse struct {
	Success      bool              `json:"success"`
	TokensEarned int               `json:"tokensEarned"`
	NewBalance   int               `json:"newBalance"`
	Tier         string            `json:"tier"`
	Breakdown    BreakdownJSONBody `json:"breakdown"`
}

type BreakdownJSONBody struct {
	BaseTokens  int    `json:"baseTokens"`
	BonusTokens int    `json:"bonusTokens"`
	Reason      string `json:"reason"`
}

func (h *handler) PostEarn(w http.ResponseWriter, r *http.Request) {
	var earnJSON PostEarnJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&earnJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.ledger.Earn(r.Context(), ledger.EarnRequest{
		CustomerID:    earnJSON.CustomerID,
		Name:          earnJSON.CustomerName,
		Email:         earnJSON.CustomerEmail,
		OrderID:       earnJSON.OrderID,
		OrderAmount:   earnJSON.OrderAmount,
		PaymentMethod: earnJSON.PaymentMethod,
	})
	if err != nil {
		switch err {
		case ledger.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, PostEarnJSONResponse{
		Success:      true,
		TokensEarned: result.TokensEarned,
		NewBalance:   result.NewBalance,
		Tier:         result.Tier,
		Breakdown: BreakdownJSONBody{
			BaseTokens:  result.BaseTokens,
			BonusTokens: result.BonusTokens,
			Reason:      result.Reason,
		},
	})
}

type GetBalanceJSONResponse struct {
	CustomerID    string `json:"customerId"`
	Name          string `json:"customerName,omitempty"`
	Email         string `json:"customerEmail,omitempty"`
	Balance       int    `json:"balance"`
	TotalEarned   int    `json:"totalEarned"`
	TotalRedeemed int    `json:"totalRedeemed"`
	Tier          string `json:"tier"`
}

func (h *handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	acc, err := h.ledger.GetBalance(r.Context(), customerID)
	if err != nil {
		switch err {
		case ledger.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case ledger.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, GetBalanceJSONResponse{
		CustomerID:    acc.CustomerID,
		Name:          acc.Name,
		Email:         acc.Email,
		Balance:       acc.Balance,
		TotalEarned:   acc.TotalEarned,
		TotalRedeemed: acc.TotalRedeemed,
		Tier:          acc.Tier,
	})
}

type PostRedeemJSONRequest struct {
	CustomerID string `json:"customerId"`
	RewardID   string `json:"rewardId"`
	Cost       int    `json:"cost"`
}

type PostRedeemJSONResponse struct {
	Success        bool   `json:"success"`
	TokensRedeemed int    `json:"tokensRedeemed"`
	NewBalance     int    `json:"newBalance"`
	RewardID       string `json:"rewardId"`
}

func (h *handler) PostRedeem(w http.ResponseWriter, r *http.Request) {
	var redeemJSON PostRedeemJSONRequest
	if err := json.NewDecoder(r.Body).Decode(&redeemJSON); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.ledger.Redeem(r.Context(), ledger.RedeemRequest{
		CustomerID: redeemJSON.CustomerID,
		RewardID:   redeemJSON.RewardID,
		Cost:       redeemJSON.Cost,
	})
	if err != nil {
		switch err {
		case ledger.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case ledger.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		case ledger.ErrInsufficientFunds:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, PostRedeemJSONResponse{
		Success:        true,
		TokensRedeemed: result.TokensRedeemed,
		NewBalance:     result.NewBalance,
		RewardID:       result.RewardID,
	})
}

type TransactionJSONBody struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int       `json:"amount"`
	Description string    `json:"description"`
	OrderID     int       `json:"orderId,omitempty"`
	RewardID    string    `json:"rewardId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type GetTransactionsJSONResponse struct {
	Transactions []TransactionJSONBody `json:"transactions"`
}

func (h *handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")

	txns, err := h.ledger.GetTransactions(r.Context(), customerID, ledger.TransactionsLimit)
	if err != nil {
		switch err {
		case ledger.ErrInsufficientData:
			http.Error(w, err.Error(), http.StatusBadRequest)
		case ledger.ErrNotFound:
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	response := GetTransactionsJSONResponse{
		Transactions: make([]TransactionJSONBody, 0, len(txns)),
	}
	for _, txn := range txns {
		response.Transactions = append(response.Transactions, TransactionJSONBody{
			ID:          txn.ID,
			Type:        txn.Type,
			Amount:      txn.Amount,
			Description: txn.Description,
			OrderID:     txn.OrderID,
			RewardID:    txn.RewardID,
			Timestamp:   txn.CreatedAt,
		})
	}
	h.writeJSON(w, response)
}

type LeaderboardJSONBody struct {
	CustomerID  string `json:"customerId"`
	TotalEarned int    `json:"totalEarned"`
	Tier        string `json:"tier"`
}

type GetLeaderboardJSONResponse struct {
	Leaderboard []LeaderboardJSONBody `json:"leaderboard"`
}

func (h *handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	accs, err := h.ledger.GetLeaderboard(r.Context(), ledger.LeaderboardLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := GetLeaderboardJSONResponse{
		Leaderboard: make([]LeaderboardJSONBody, 0, len(accs)),
	}
	for _, acc := range accs {
		response.Leaderboard = append(response.Leaderboard, LeaderboardJSONBody{
			CustomerID:  acc.CustomerID,
			TotalEarned: acc.TotalEarned,
			Tier:        acc.Tier,
		})
	}
	h.writeJSON(w, response)
}

// Заказ в запросах кухонного экрана

type OrderJSONBody struct {
	ID        int                 `json:"id"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	Items     []OrderItemJSONBody `json:"items"`
}

type OrderItemJSONBody struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (o OrderJSONBody) toModel() model.Order {
	order := model.Order{
		ID:        o.ID,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
	for _, item := range o.Items {
		order.Items = append(order.Items, model.OrderItem{
			Name:     item.Name,
			Quantity: item.Quantity,
		})
	}
	return order
}

func ordersToModel(orders []OrderJSONBody) []model.Order {
	converted := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		converted = append(converted, o.toModel())
	}
	return converted
}

func ordersFromModel(orders []model.Order) []OrderJSONBody {
	converted := make([]OrderJSONBody, 0, len(orders))
	for _, order := range orders {
		o := OrderJSONBody{
			ID:        order.ID,
			Status:    order.Status,
			CreatedAt: order.CreatedAt,
		}
		for _, item := range order.Items {
			o.Items = append(o.Items, OrderItemJSONBody{
				Name:     item.Name,
				Quantity: item.Quantity,
			})
		}
		converted = append(converted, o)
	}
	return converted
}
