package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/bistrobonus/internal/model"
	"github.com/iurnickita/bistrobonus/internal/store/config"
)

type Store interface {
	AuthRegister(ctx context.Context, login string, password string) (string, error)
	AuthLogin(ctx context.Context, login string, password string) (string, error)

	AccountGet(ctx context.Context, customerID string) (model.Account, error)
	AccountEarn(ctx context.Context, customerID string, name string, email string, txn model.Transaction) (model.Account, error)
	AccountRedeem(ctx context.Context, customerID string, txn model.Transaction) (model.Account, error)
	TransactionList(ctx context.Context, customerID string, limit int) ([]model.Transaction, error)
	AccountTop(ctx context.Context, limit int) ([]model.Account, error)

	StationList(ctx context.Context) ([]model.Station, error)
	StationGet(ctx context.Context, stationID string) (model.Station, error)
	StationAdd(ctx context.Context, station model.Station) error
	StationUpdate(ctx context.Context, station model.Station) error
	StationDelete(ctx context.Context, stationID string) error

	AssignmentGet(ctx context.Context, orderID int) (model.StationAssignment, error)
	AssignmentList(ctx context.Context) ([]model.StationAssignment, error)
	AssignmentPut(ctx context.Context, a model.StationAssignment) error
	AssignmentDelete(ctx context.Context, orderID int) error
}

var (
	ErrNoRows            = errors.New("no rows")
	ErrAlreadyExists     = errors.New("already exists")
	ErrPointsIncorrect   = errors.New("points value is incorrect")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// NewStore выбирает реализацию по конфигурации:
// база данных либо хранение в памяти (тесты, локальный запуск)
func NewStore(cfg config.Config) (Store, error) {
	if cfg.DBDsn == "" {
		return NewMemStore(), nil
	}
	return newDBStore(cfg)
}

type dbStore struct {
	database   *sql.DB
	accMutexes sync.Map // мьютекс на каждого клиента
}

func newDBStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	// Таблица учетных записей персонала
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS auth (" +
			" login VARCHAR (20) PRIMARY KEY," +
			" uuid SERIAL UNIQUE," +
			" password VARCHAR (64) NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица счетов лояльности. Одна строка на клиента,
	// инвариант balance = total_earned - total_redeemed
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS account (" +
			" customer_id VARCHAR (40) PRIMARY KEY," +
			" name TEXT NOT NULL DEFAULT ''," +
			" email TEXT NOT NULL DEFAULT ''," +
			" balance INTEGER NOT NULL," +
			" total_earned INTEGER NOT NULL," +
			" total_redeemed INTEGER NOT NULL," +
			" tier VARCHAR (10) NOT NULL," +
			" created_at TIMESTAMP NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица операций по счету. Журнал: записи не редактируются и не удаляются.
	// seq задает порядок внутри одинаковых created_at
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS reward_transaction (" +
			" id VARCHAR (40) PRIMARY KEY," +
			" seq SERIAL UNIQUE," +
			" customer_id VARCHAR (40) NOT NULL," +
			" type VARCHAR (10) NOT NULL," +
			" amount INTEGER NOT NULL," +
			" description TEXT NOT NULL," +
			" purchase_order INTEGER NOT NULL," +
			" reward VARCHAR (40) NOT NULL," +
			" created_at TIMESTAMP NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица станций. Категории хранятся одной строкой через запятую
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS station (" +
			" id VARCHAR (40) PRIMARY KEY," +
			" name TEXT NOT NULL," +
			" color VARCHAR (20) NOT NULL," +
			" categories TEXT NOT NULL," +
			" enabled BOOLEAN NOT NULL," +
			" display_order INTEGER NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	// Таблица назначений. Не больше одного назначения на заказ
	_, err = db.Exec(
		"CREATE TABLE IF NOT EXISTS station_assignment (" +
			" purchase_order INTEGER PRIMARY KEY," +
			" station VARCHAR (40) NOT NULL," +
			" priority INTEGER NOT NULL," +
			" assigned_at TIMESTAMP NOT NULL" +
			" );")
	if err != nil {
		return nil, err
	}

	return &dbStore{
		database: db,
	}, nil
}

func (store *dbStore) accountLock(customerID string) *sync.Mutex {
	m, _ := store.accMutexes.LoadOrStore(customerID, &sync.Mutex{})
	return m.(*sync.Mutex)
}

func (store *dbStore) AuthRegister(ctx context.Context, login string, password string) (string, error) {
	row := store.database.QueryRowContext(ctx,
		"INSERT INTO auth (login, password)"+
			" VALUES ($1, $2)"+
			" RETURNING uuid",
		login,
		password)

	var uuid int
	err := row.Scan(&uuid)
	if err != nil {
		// Проверка: уже существует
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return "", ErrAlreadyExists
			}
		}
		return "", err
	}

	return strconv.Itoa(uuid), nil
}

func (store *dbStore) AuthLogin(ctx context.Context, login string, password string) (string, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT uuid FROM auth"+
			" WHERE login = $1"+
			"   AND password = $2",
		login,
		password)
	var uuid int
	err := row.Scan(&uuid)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNoRows
		}
		return "", err
	}

	return strconv.Itoa(uuid), nil
}

func (store *dbStore) AccountGet(ctx context.Context, customerID string) (model.Account, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT customer_id, name, email, balance, total_earned, total_redeemed, tier, created_at"+
			" FROM account"+
			" WHERE customer_id = $1",
		customerID)
	return scanAccount(row)
}

func scanAccount(row *sql.Row) (model.Account, error) {
	var acc model.Account
	err := row.Scan(&acc.CustomerID,
		&acc.Name,
		&acc.Email,
		&acc.Balance,
		&acc.TotalEarned,
		&acc.TotalRedeemed,
		&acc.Tier,
		&acc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Account{}, ErrNoRows
		}
		return model.Account{}, err
	}
	return acc, nil
}

func (store *dbStore) AccountEarn(ctx context.Context, customerID string, name string, email string, txn model.Transaction) (model.Account, error) {
	if txn.Amount <= 0 {
		return model.Account{}, ErrPointsIncorrect
	}

	// Блокировка счета клиента
	mutex := store.accountLock(customerID)
	mutex.Lock()
	defer mutex.Unlock()

	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return model.Account{}, err
	}
	defer tx.Rollback()

	// Счет создается при первом начислении
	_, err = tx.ExecContext(ctx,
		"INSERT INTO account (customer_id, name, email, balance, total_earned, total_redeemed, tier, created_at)"+
			" VALUES ($1, $2, $3, 0, 0, 0, $4, $5)"+
			" ON CONFLICT (customer_id) DO NOTHING",
		customerID,
		name,
		email,
		model.TierBronze,
		txn.CreatedAt)
	if err != nil {
		return model.Account{}, err
	}

	var acc model.Account
	row := tx.QueryRowContext(ctx,
		"SELECT balance, total_earned, total_redeemed, created_at"+
			" FROM account"+
			" WHERE customer_id = $1"+
			" FOR UPDATE",
		customerID)
	err = row.Scan(&acc.Balance, &acc.TotalEarned, &acc.TotalRedeemed, &acc.CreatedAt)
	if err != nil {
		return model.Account{}, err
	}

	acc.CustomerID = customerID
	acc.Balance += txn.Amount
	acc.TotalEarned += txn.Amount
	acc.Tier = model.TierFor(acc.TotalEarned)

	_, err = tx.ExecContext(ctx,
		"UPDATE account"+
			" SET balance = $1,"+
			"     total_earned = $2,"+
			"     tier = $3,"+
			"     name = CASE WHEN $4 <> '' THEN $4 ELSE name END,"+
			"     email = CASE WHEN $5 <> '' THEN $5 ELSE email END"+
			" WHERE customer_id = $6",
		acc.Balance,
		acc.TotalEarned,
		acc.Tier,
		name,
		email,
		customerID)
	if err != nil {
		return model.Account{}, err
	}

	err = insertTransaction(ctx, tx, txn)
	if err != nil {
		return model.Account{}, err
	}

	err = tx.Commit()
	if err != nil {
		return model.Account{}, err
	}

	return acc, nil
}

func (store *dbStore) AccountRedeem(ctx context.Context, customerID string, txn model.Transaction) (model.Account, error) {
	if txn.Amount <= 0 {
		return model.Account{}, ErrPointsIncorrect
	}

	// Блокировка счета клиента
	mutex := store.accountLock(customerID)
	mutex.Lock()
	defer mutex.Unlock()

	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return model.Account{}, err
	}
	defer tx.Rollback()

	var acc model.Account
	row := tx.QueryRowContext(ctx,
		"SELECT balance, total_earned, total_redeemed, tier, created_at"+
			" FROM account"+
			" WHERE customer_id = $1"+
			" FOR UPDATE",
		customerID)
	err = row.Scan(&acc.Balance, &acc.TotalEarned, &acc.TotalRedeemed, &acc.Tier, &acc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Account{}, ErrNoRows
		}
		return model.Account{}, err
	}

	// Проверка: достаточно баллов
	if acc.Balance < txn.Amount {
		return model.Account{}, ErrInsufficientFunds
	}

	acc.CustomerID = customerID
	acc.Balance -= txn.Amount
	acc.TotalRedeemed += txn.Amount
	// Уровень при списании не пересчитывается

	_, err = tx.ExecContext(ctx,
		"UPDATE account"+
			" SET balance = $1,"+
			"     total_redeemed = $2"+
			" WHERE customer_id = $3",
		acc.Balance,
		acc.TotalRedeemed,
		customerID)
	if err != nil {
		return model.Account{}, err
	}

	err = insertTransaction(ctx, tx, txn)
	if err != nil {
		return model.Account{}, err
	}

	err = tx.Commit()
	if err != nil {
		return model.Account{}, err
	}

	return acc, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, txn model.Transaction) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO reward_transaction (id, customer_id, type, amount, description, purchase_order, reward, created_at)"+
			" VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		txn.ID,
		txn.CustomerID,
		txn.Type,
		txn.Amount,
		txn.Description,
		txn.OrderID,
		txn.RewardID,
		txn.CreatedAt)
	return err
}

func (store *dbStore) TransactionList(ctx context.Context, customerID string, limit int) ([]model.Transaction, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, customer_id, type, amount, description, purchase_order, reward, created_at"+
			" FROM reward_transaction"+
			" WHERE customer_id = $1"+
			" ORDER BY seq DESC"+
			" LIMIT $2",
		customerID,
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var txn model.Transaction
		err := rows.Scan(&txn.ID,
			&txn.CustomerID,
			&txn.Type,
			&txn.Amount,
			&txn.Description,
			&txn.OrderID,
			&txn.RewardID,
			&txn.CreatedAt)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

func (store *dbStore) AccountTop(ctx context.Context, limit int) ([]model.Account, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT customer_id, name, email, balance, total_earned, total_redeemed, tier, created_at"+
			" FROM account"+
			" ORDER BY total_earned DESC"+
			" LIMIT $1",
		limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accs []model.Account
	for rows.Next() {
		var acc model.Account
		err := rows.Scan(&acc.CustomerID,
			&acc.Name,
			&acc.Email,
			&acc.Balance,
			&acc.TotalEarned,
			&acc.TotalRedeemed,
			&acc.Tier,
			&acc.CreatedAt)
		if err != nil {
			return nil, err
		}
		accs = append(accs, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return accs, nil
}

func (store *dbStore) StationList(ctx context.Context) ([]model.Station, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT id, name, color, categories, enabled, display_order"+
			" FROM station"+
			" ORDER BY display_order")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []model.Station
	for rows.Next() {
		var st model.Station
		var categories string
		err := rows.Scan(&st.ID,
			&st.Name,
			&st.Color,
			&categories,
			&st.Enabled,
			&st.DisplayOrder)
		if err != nil {
			return nil, err
		}
		st.Categories = splitCategories(categories)
		stations = append(stations, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stations, nil
}

func (store *dbStore) StationGet(ctx context.Context, stationID string) (model.Station, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT id, name, color, categories, enabled, display_order"+
			" FROM station"+
			" WHERE id = $1",
		stationID)

	var st model.Station
	var categories string
	err := row.Scan(&st.ID,
		&st.Name,
		&st.Color,
		&categories,
		&st.Enabled,
		&st.DisplayOrder)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.Station{}, ErrNoRows
		}
		return model.Station{}, err
	}
	st.Categories = splitCategories(categories)
	return st, nil
}

func (store *dbStore) StationAdd(ctx context.Context, station model.Station) error {
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO station (id, name, color, categories, enabled, display_order)"+
			" VALUES ($1, $2, $3, $4, $5, $6)",
		station.ID,
		station.Name,
		station.Color,
		joinCategories(station.Categories),
		station.Enabled,
		station.DisplayOrder)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" {
				return ErrAlreadyExists
			}
		}
		return err
	}
	return nil
}

func (store *dbStore) StationUpdate(ctx context.Context, station model.Station) error {
	res, err := store.database.ExecContext(ctx,
		"UPDATE station"+
			" SET name = $1,"+
			"     color = $2,"+
			"     categories = $3,"+
			"     enabled = $4,"+
			"     display_order = $5"+
			" WHERE id = $6",
		station.Name,
		station.Color,
		joinCategories(station.Categories),
		station.Enabled,
		station.DisplayOrder,
		station.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}
	return nil
}

func (store *dbStore) StationDelete(ctx context.Context, stationID string) error {
	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Назначения станции удаляются вместе с ней
	_, err = tx.ExecContext(ctx,
		"DELETE FROM station_assignment"+
			" WHERE station = $1",
		stationID)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM station"+
			" WHERE id = $1",
		stationID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoRows
	}

	return tx.Commit()
}

func (store *dbStore) AssignmentGet(ctx context.Context, orderID int) (model.StationAssignment, error) {
	row := store.database.QueryRowContext(ctx,
		"SELECT purchase_order, station, priority, assigned_at"+
			" FROM station_assignment"+
			" WHERE purchase_order = $1",
		orderID)

	var a model.StationAssignment
	err := row.Scan(&a.OrderID, &a.StationID, &a.Priority, &a.AssignedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.StationAssignment{}, ErrNoRows
		}
		return model.StationAssignment{}, err
	}
	return a, nil
}

func (store *dbStore) AssignmentList(ctx context.Context) ([]model.StationAssignment, error) {
	rows, err := store.database.QueryContext(ctx,
		"SELECT purchase_order, station, priority, assigned_at"+
			" FROM station_assignment")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []model.StationAssignment
	for rows.Next() {
		var a model.StationAssignment
		err := rows.Scan(&a.OrderID, &a.StationID, &a.Priority, &a.AssignedAt)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (store *dbStore) AssignmentPut(ctx context.Context, a model.StationAssignment) error {
	// Новое назначение замещает старое
	_, err := store.database.ExecContext(ctx,
		"INSERT INTO station_assignment (purchase_order, station, priority, assigned_at)"+
			" VALUES ($1, $2, $3, $4)"+
			" ON CONFLICT (purchase_order) DO UPDATE"+
			" SET station = $2, priority = $3, assigned_at = $4",
		a.OrderID,
		a.StationID,
		a.Priority,
		a.AssignedAt)
	return err
}

func (store *dbStore) AssignmentDelete(ctx context.Context, orderID int) error {
	_, err := store.database.ExecContext(ctx,
		"DELETE FROM station_assignment"+
			" WHERE purchase_order = $1",
		orderID)
	return err
}

func splitCategories(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinCategories(categories []string) string {
	return strings.Join(categories, ",")
}
