package main

import (
	"log"

	"github.com/iurnickita/bistrobonus/internal/auth"
	"github.com/iurnickita/bistrobonus/internal/config"
	"github.com/iurnickita/bistrobonus/internal/handler"
	"github.com/iurnickita/bistrobonus/internal/ledger"
	"github.com/iurnickita/bistrobonus/internal/logger"
	"github.com/iurnickita/bistrobonus/internal/station"
	"github.com/iurnickita/bistrobonus/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.GetConfig()

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}

	auth := auth.NewAuth(cfg.Auth, store)
	ledger := ledger.NewLedger(cfg.Ledger, store, zaplog)
	router, err := station.NewRouter(cfg.Station, store, zaplog)
	if err != nil {
		return err
	}

	return handler.Serve(cfg.Handler, auth, ledger, router, zaplog)
}
