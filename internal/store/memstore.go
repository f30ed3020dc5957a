package store

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/iurnickita/bistrobonus/internal/model"
)

// memStore хранит все в памяти за одним мьютексом.
// Используется в тестах и при запуске без базы данных
type memStore struct {
	mutex       sync.Mutex
	auth        map[string]memAuthRow
	authSeq     int
	accounts    map[string]model.Account
	txns        map[string][]model.Transaction
	stations    map[string]model.Station
	assignments map[int]model.StationAssignment
}

type memAuthRow struct {
	uuid     int
	password string
}

func NewMemStore() Store {
	return &memStore{
		auth:        make(map[string]memAuthRow),
		accounts:    make(map[string]model.Account),
		txns:        make(map[string][]model.Transaction),
		stations:    make(map[string]model.Station),
		assignments: make(map[int]model.StationAssignment),
	}
}

func (store *memStore) AuthRegister(_ context.Context, login string, password string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, ok := store.auth[login]; ok {
		return "", ErrAlreadyExists
	}
	store.authSeq++
	store.auth[login] = memAuthRow{uuid: store.authSeq, password: password}
	return strconv.Itoa(store.authSeq), nil
}

func (store *memStore) AuthLogin(_ context.Context, login string, password string) (string, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	row, ok := store.auth[login]
	if !ok || row.password != password {
		return "", ErrNoRows
	}
	return strconv.Itoa(row.uuid), nil
}

func (store *memStore) AccountGet(_ context.Context, customerID string) (model.Account, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	acc, ok := store.accounts[customerID]
	if !ok {
		return model.Account{}, ErrNoRows
	}
	return acc, nil
}

func (store *memStore) AccountEarn(_ context.Context, customerID string, name string, email string, txn model.Transaction) (model.Account, error) {
	if txn.Amount <= 0 {
		return model.Account{}, ErrPointsIncorrect
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	acc, ok := store.accounts[customerID]
	if !ok {
		acc = model.Account{
			CustomerID: customerID,
			Tier:       model.TierBronze,
			CreatedAt:  txn.CreatedAt,
		}
	}
	if name != "" {
		acc.Name = name
	}
	if email != "" {
		acc.Email = email
	}
	acc.Balance += txn.Amount
	acc.TotalEarned += txn.Amount
	acc.Tier = model.TierFor(acc.TotalEarned)

	store.accounts[customerID] = acc
	store.txns[customerID] = append(store.txns[customerID], txn)

	return acc, nil
}

func (store *memStore) AccountRedeem(_ context.Context, customerID string, txn model.Transaction) (model.Account, error) {
	if txn.Amount <= 0 {
		return model.Account{}, ErrPointsIncorrect
	}

	store.mutex.Lock()
	defer store.mutex.Unlock()

	acc, ok := store.accounts[customerID]
	if !ok {
		return model.Account{}, ErrNoRows
	}
	if acc.Balance < txn.Amount {
		return model.Account{}, ErrInsufficientFunds
	}
	acc.Balance -= txn.Amount
	acc.TotalRedeemed += txn.Amount
	// Уровень при списании не пересчитывается

	store.accounts[customerID] = acc
	store.txns[customerID] = append(store.txns[customerID], txn)

	return acc, nil
}

func (store *memStore) TransactionList(_ context.Context, customerID string, limit int) ([]model.Transaction, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	all := store.txns[customerID]
	// от новых к старым
	var txns []model.Transaction
	for i := len(all) - 1; i >= 0 && len(txns) < limit; i-- {
		txns = append(txns, all[i])
	}
	return txns, nil
}

func (store *memStore) AccountTop(_ context.Context, limit int) ([]model.Account, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	accs := make([]model.Account, 0, len(store.accounts))
	for _, acc := range store.accounts {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		return accs[i].TotalEarned > accs[j].TotalEarned
	})
	if len(accs) > limit {
		accs = accs[:limit]
	}
	return accs, nil
}

func (store *memStore) StationList(_ context.Context) ([]model.Station, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	stations := make([]model.Station, 0, len(store.stations))
	for _, st := range store.stations {
		stations = append(stations, st)
	}
	sort.Slice(stations, func(i, j int) bool {
		return stations[i].DisplayOrder < stations[j].DisplayOrder
	})
	return stations, nil
}

func (store *memStore) StationGet(_ context.Context, stationID string) (model.Station, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	st, ok := store.stations[stationID]
	if !ok {
		return model.Station{}, ErrNoRows
	}
	return st, nil
}

func (store *memStore) StationAdd(_ context.Context, station model.Station) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, ok := store.stations[station.ID]; ok {
		return ErrAlreadyExists
	}
	store.stations[station.ID] = station
	return nil
}

func (store *memStore) StationUpdate(_ context.Context, station model.Station) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, ok := store.stations[station.ID]; !ok {
		return ErrNoRows
	}
	store.stations[station.ID] = station
	return nil
}

func (store *memStore) StationDelete(_ context.Context, stationID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	if _, ok := store.stations[stationID]; !ok {
		return ErrNoRows
	}
	delete(store.stations, stationID)
	// Назначения станции удаляются вместе с ней
	for orderID, a := range store.assignments {
		if a.StationID == stationID {
			delete(store.assignments, orderID)
		}
	}
	return nil
}

func (store *memStore) AssignmentGet(_ context.Context, orderID int) (model.StationAssignment, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	a, ok := store.assignments[orderID]
	if !ok {
		return model.StationAssignment{}, ErrNoRows
	}
	return a, nil
}

func (store *memStore) AssignmentList(_ context.Context) ([]model.StationAssignment, error) {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	assignments := make([]model.StationAssignment, 0, len(store.assignments))
	for _, a := range store.assignments {
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func (store *memStore) AssignmentPut(_ context.Context, a model.StationAssignment) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	// Новое назначение замещает старое
	store.assignments[a.OrderID] = a
	return nil
}

func (store *memStore) AssignmentDelete(_ context.Context, orderID int) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	delete(store.assignments, orderID)
	return nil
}
