package station

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iurnickita/bistrobonus/internal/model"
	"github.com/iurnickita/bistrobonus/internal/station/config"
	"github.com/iurnickita/bistrobonus/internal/store"
)

// Router распределяет заказы по кухонным станциям.
// Компонент вспомогательный: если заказ ни к чему не подошел,
// он остается неназначенным и виден через UnassignedOrders
type Router interface {
	AutoAssign(ctx context.Context, order model.Order) (string, error)
	Assign(ctx context.Context, orderID int, stationID string, priority int) error
	Unassign(ctx context.Context, orderID int) error
	StationOrders(ctx context.Context, stationID string, orders []model.Order) ([]model.Order, error)
	UnassignedOrders(ctx context.Context, orders []model.Order) ([]model.Order, error)
	StationStats(ctx context.Context, stationID string, orders []model.Order) (model.StationStats, error)
	Stations(ctx context.Context) ([]model.Station, error)
	AddStation(ctx context.Context, station model.Station) (model.Station, error)
	UpdateStation(ctx context.Context, stationID string, patch StationPatch) (model.Station, error)
	RemoveStation(ctx context.Context, stationID string) error
}

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNotFound         = errors.New("station not found")
)

const defaultPriority = 1

// StationPatch - частичное обновление станции.
// nil-поле означает "не менять"
type StationPatch struct {
	Name         *string
	Color        *string
	Categories   *[]string
	Enabled      *bool
	DisplayOrder *int
}

type router struct {
	store   store.Store
	matcher CategoryMatcher
	zaplog  *zap.Logger
}

func NewRouter(cfg config.Config, store store.Store, zaplog *zap.Logger) (Router, error) {
	r := &router{
		store:   store,
		matcher: NewSubstringMatcher(),
		zaplog:  zaplog,
	}

	if cfg.StationsFile != "" {
		if err := r.seed(cfg.StationsFile); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// seed заполняет пустое хранилище станциями из файла.
// Если станции уже есть, файл игнорируется
func (r *router) seed(path string) error {
	ctx := context.Background()

	existing, err := r.store.StationList(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	stations, err := loadStationsFile(path)
	if err != nil {
		return err
	}
	for _, st := range stations {
		st.ID = uuid.NewString()
		st.Categories = normalizeCategories(st.Categories)
		if err := r.store.StationAdd(ctx, st); err != nil {
			return err
		}
	}
	r.zaplog.Info("stations seeded", zap.Int("count", len(stations)))

	return nil
}

// AutoAssign подбирает станцию по составу заказа и сразу сохраняет
// назначение. Каждая позиция засчитывается не более чем одной станции:
// побеждает самое длинное сработавшее ключевое слово. Побеждает станция
// с наибольшей суммой количеств; при равенстве - с меньшим display_order.
// Пустая строка означает, что заказ не распределен
func (r *router) AutoAssign(ctx context.Context, order model.Order) (string, error) {
	stations, err := r.store.StationList(ctx)
	if err != nil {
		return "", err
	}

	// станции отсортированы по display_order
	scores := make(map[string]int)
	for _, item := range order.Items {
		bestStation := ""
		bestKeyword := ""
		for _, st := range stations {
			if !st.Enabled {
				continue
			}
			keyword, ok := r.matcher.Match(item.Name, st.Categories)
			if ok && len(keyword) > len(bestKeyword) {
				bestStation = st.ID
				bestKeyword = keyword
			}
		}
		if bestStation != "" {
			scores[bestStation] += item.Quantity
		}
	}

	winner := ""
	winnerScore := 0
	for _, st := range stations {
		if score := scores[st.ID]; score > winnerScore {
			winner = st.ID
			winnerScore = score
		}
	}
	if winner == "" {
		return "", nil
	}

	err = r.store.AssignmentPut(ctx, model.StationAssignment{
		OrderID:    order.ID,
		StationID:  winner,
		Priority:   defaultPriority,
		AssignedAt: time.Now(),
	})
	if err != nil {
		return "", err
	}

	return winner, nil
}

func (r *router) Assign(ctx context.Context, orderID int, stationID string, priority int) error {
	if stationID == "" {
		return ErrInsufficientData
	}
	if priority <= 0 {
		priority = defaultPriority
	}

	_, err := r.store.StationGet(ctx, stationID)
	if err != nil {
		if err == store.ErrNoRows {
			return ErrNotFound
		}
		return err
	}

	return r.store.AssignmentPut(ctx, model.StationAssignment{
		OrderID:    orderID,
		StationID:  stationID,
		Priority:   priority,
		AssignedAt: time.Now(),
	})
}

func (r *router) Unassign(ctx context.Context, orderID int) error {
	return r.store.AssignmentDelete(ctx, orderID)
}

func (r *router) StationOrders(ctx context.Context, stationID string, orders []model.Order) ([]model.Order, error) {
	st, err := r.store.StationGet(ctx, stationID)
	if err != nil {
		if err == store.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	// выключенная станция не участвует в отборе
	if !st.Enabled {
		return nil, nil
	}

	assigned, err := r.assignedStations(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []model.Order
	for _, order := range orders {
		if assigned[order.ID] == stationID {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

func (r *router) UnassignedOrders(ctx context.Context, orders []model.Order) ([]model.Order, error) {
	assigned, err := r.assignedStations(ctx)
	if err != nil {
		return nil, err
	}

	var unassigned []model.Order
	for _, order := range orders {
		if _, ok := assigned[order.ID]; !ok {
			unassigned = append(unassigned, order)
		}
	}
	return unassigned, nil
}

func (r *router) StationStats(ctx context.Context, stationID string, orders []model.Order) (model.StationStats, error) {
	assigned, err := r.assignedStations(ctx)
	if err != nil {
		return model.StationStats{}, err
	}

	stats := model.StationStats{
		StatusCounts: make(map[string]int),
	}
	var activeMinutes float64
	now := time.Now()

	for _, order := range orders {
		if assigned[order.ID] != stationID {
			continue
		}
		stats.TotalOrders++
		stats.StatusCounts[order.Status]++
		if order.Status == model.OrderStatusCompleted || order.Status == model.OrderStatusCancelled {
			continue
		}
		stats.ActiveOrders++
		activeMinutes += now.Sub(order.CreatedAt).Minutes()
	}
	if stats.ActiveOrders > 0 {
		stats.AvgPrepTimeMinutes = activeMinutes / float64(stats.ActiveOrders)
	}

	return stats, nil
}

func (r *router) Stations(ctx context.Context) ([]model.Station, error) {
	return r.store.StationList(ctx)
}

func (r *router) AddStation(ctx context.Context, station model.Station) (model.Station, error) {
	if station.Name == "" {
		return model.Station{}, ErrInsufficientData
	}

	station.ID = uuid.NewString()
	station.Categories = normalizeCategories(station.Categories)

	if err := r.store.StationAdd(ctx, station); err != nil {
		return model.Station{}, err
	}
	return station, nil
}

func (r *router) UpdateStation(ctx context.Context, stationID string, patch StationPatch) (model.Station, error) {
	st, err := r.store.StationGet(ctx, stationID)
	if err != nil {
		if err == store.ErrNoRows {
			return model.Station{}, ErrNotFound
		}
		return model.Station{}, err
	}

	if patch.Name != nil {
		st.Name = *patch.Name
	}
	if patch.Color != nil {
		st.Color = *patch.Color
	}
	if patch.Categories != nil {
		st.Categories = normalizeCategories(*patch.Categories)
	}
	if patch.Enabled != nil {
		st.Enabled = *patch.Enabled
	}
	if patch.DisplayOrder != nil {
		st.DisplayOrder = *patch.DisplayOrder
	}

	if err := r.store.StationUpdate(ctx, st); err != nil {
		return model.Station{}, err
	}
	return st, nil
}

func (r *router) RemoveStation(ctx context.Context, stationID string) error {
	err := r.store.StationDelete(ctx, stationID)
	if err != nil {
		if err == store.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *router) assignedStations(ctx context.Context) (map[int]string, error) {
	assignments, err := r.store.AssignmentList(ctx)
	if err != nil {
		return nil, err
	}
	assigned := make(map[int]string, len(assignments))
	for _, a := range assignments {
		assigned[a.OrderID] = a.StationID
	}
	return assigned, nil
}

func normalizeCategories(categories []string) []string {
	var normalized []string
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category != "" {
			normalized = append(normalized, category)
		}
	}
	return normalized
}
