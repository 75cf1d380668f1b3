package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"

	"github.com/cleared-dev/asientos/internal/accounts"
	"github.com/cleared-dev/asientos/internal/audit"
	"github.com/cleared-dev/asientos/internal/config"
	"github.com/cleared-dev/asientos/internal/journal"
	"github.com/cleared-dev/asientos/internal/logging"
	"github.com/cleared-dev/asientos/internal/notify"
	"github.com/cleared-dev/asientos/internal/store"
	"github.com/cleared-dev/asientos/internal/store/gormstore"
	"github.com/cleared-dev/asientos/internal/store/pgstore"
)

// app bundles the services a command needs.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	store    store.Store
	accounts *accounts.Service
	journal  *journal.Service
}

// openApp loads the config at path, connects to the database and wires the
// services. Call close when done.
func openApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, filepath.Dir(path))
}

func newApp(ctx context.Context, cfg *config.Config, baseDir string) (*app, error) {
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, cfg.Database, baseDir)
	if err != nil {
		return nil, err
	}

	granularity, err := cfg.Ledger.Granularity()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	tolerance, err := cfg.Ledger.ToleranceValue()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var sink audit.Sink = audit.SinkFunc(st.RecordAudit)
	if cfg.Audit.CSVPath != "" {
		sink = audit.Fanout{sink, audit.NewCSVLog(resolvePath(baseDir, cfg.Audit.CSVPath))}
	}

	return &app{
		cfg:      cfg,
		log:      logger,
		store:    st,
		accounts: accounts.NewService(st, logger),
		journal: journal.NewService(st, journal.Options{
			Logger:      logger,
			Notifier:    notify.New(cfg.Mail, logger),
			Recipient:   cfg.Mail.Recipient,
			Audit:       sink,
			Granularity: granularity,
			Tolerance:   tolerance,
		}),
	}, nil
}

// close waits for in-flight audit records and notices, then closes the
// database.
func (a *app) close() {
	a.journal.Wait()
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing database", "err", err)
	}
}

// openStore connects to the backend named by cfg.Driver. Relative SQLite
// paths resolve against baseDir.
func openStore(ctx context.Context, cfg config.DatabaseConfig, baseDir string) (store.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.DSN != ":memory:" {
			cfg.DSN = resolvePath(baseDir, cfg.DSN)
		}
		st, err := gormstore.Open(cfg)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres", "postgresql":
		st, err := pgstore.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q (want sqlite or postgres)", cfg.Driver)
	}
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// defaultActor names the user recorded on entries and in the audit log.
func defaultActor() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "asientos"
}
