package main

import (
	"database/sql"
	"fmt"

	"github.com/dsocial118/SISOC-sub000/common/database"
	"github.com/dsocial118/SISOC-sub000/common/logger"
	"github.com/dsocial118/SISOC-sub000/internal/config"
	"github.com/dsocial118/SISOC-sub000/internal/domain"
	"github.com/dsocial118/SISOC-sub000/internal/repository"
	"github.com/dsocial118/SISOC-sub000/internal/service"

	"go.uber.org/zap"
)

// cliActor runs every admin command with full capabilities.
var cliActor = domain.NewActor("legajos-admin", domain.RoleAdministrator, domain.AllCapabilities...)

type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
}

func loadEnv() (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logger.NewLogger(cfg.Log.Level, "console", "legajos-admin")
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &cliEnv{cfg: cfg, logger: log}, nil
}

// openDB connects to Postgres; DB_ENABLED=false is an error for commands that need it.
func (e *cliEnv) openDB() (*sql.DB, error) {
	if !e.cfg.DBEnabled {
		return nil, fmt.Errorf("DB_ENABLED=false: this command needs Postgres")
	}
	db, err := database.NewPostgresDB(&e.cfg.Database)
	if err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}

// services builds the service layer over Postgres, or over a throwaway memory store when memory is set.
func (e *cliEnv) services(memory bool) (*service.Services, error) {
	if memory {
		return service.New(repository.NewMemoryStore(), service.WithLogger(e.logger)), nil
	}
	db, err := e.openDB()
	if err != nil {
		return nil, err
	}
	return service.New(repository.NewPostgresStore(db), service.WithLogger(e.logger)), nil
}

func (e *cliEnv) close() {
	_ = database.Close(e.db)
	_ = e.logger.Sync()
}
