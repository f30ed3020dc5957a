package config

import (
	"flag"
	"os"

	authConfig "github.com/iurnickita/bistrobonus/internal/auth/config"
	handlerConfig "github.com/iurnickita/bistrobonus/internal/handler/config"
	ledgerConfig "github.com/iurnickita/bistrobonus/internal/ledger/config"
	loggerConfig "github.com/iurnickita/bistrobonus/internal/logger/config"
	stationConfig "github.com/iurnickita/bistrobonus/internal/station/config"
	storeConfig "github.com/iurnickita/bistrobonus/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Ledger  ledgerConfig.Config
	Station stationConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Auth    authConfig.Config
}

func GetConfig() Config {
	var cfg Config

	flag.StringVar(&cfg.Handler.ServerAddr, "a", ":8080", "адрес и порт запуска сервиса")
	flag.StringVar(&cfg.Store.DBDsn, "d", "", "адрес подключения к базе данных (пусто - хранение в памяти)")
	flag.StringVar(&cfg.Ledger.AuditAddr, "r", "", "адрес сервиса аудита (пусто - аудит отключен)")
	flag.StringVar(&cfg.Station.StationsFile, "s", "", "файл yaml с начальным списком станций")
	flag.StringVar(&cfg.Logger.LogLevel, "l", "info", "уровень логирования")
	flag.StringVar(&cfg.Auth.Secret, "k", "bistrobonus", "ключ подписи токенов")
	flag.Parse()

	// переменные окружения имеют приоритет над флагами
	if addr := os.Getenv("RUN_ADDRESS"); addr != "" {
		cfg.Handler.ServerAddr = addr
	}
	if dsn := os.Getenv("DATABASE_URI"); dsn != "" {
		cfg.Store.DBDsn = dsn
	}
	if audit := os.Getenv("AUDIT_ADDRESS"); audit != "" {
		cfg.Ledger.AuditAddr = audit
	}
	if stations := os.Getenv("STATIONS_FILE"); stations != "" {
		cfg.Station.StationsFile = stations
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.Logger.LogLevel = lvl
	}
	if secret := os.Getenv("AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}

	return cfg
}
