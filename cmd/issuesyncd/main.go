// Command issuesyncd serves the issue tracker webhook endpoint over HTTP.
//
// Configuration comes from ISSUESYNC_* environment variables. Nested keys use a
// double underscore, for example ISSUESYNC_STORE__DRIVER=postgres and
// ISSUESYNC_STORE__DSN=postgres://...
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	issuesync "github.com/goliatone/go-issuesync"
	"github.com/goliatone/go-issuesync/adapters/gologger"
	"github.com/goliatone/go-issuesync/core"
	issuemigrations "github.com/goliatone/go-issuesync/migrations"
	sqlstore "github.com/goliatone/go-issuesync/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

func main() {
	provider := gologger.NewJSONProvider(os.Getenv("ISSUESYNC_LOG_LEVEL"))
	logger := provider.GetLogger("issuesyncd")
	if err := run(context.Background(), provider); err != nil {
		logger.Error("issuesyncd stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, provider core.LoggerProvider) error {
	logger := provider.GetLogger("issuesyncd")
	configProvider := core.NewCfgxConfigProvider(core.NewEnvConfigLoader("ISSUESYNC"))
	cfg, err := core.ResolveConfig(ctx, configProvider, core.GoOptionsResolver{}, core.Config{})
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	notifier := core.NewChangeNotifier()
	metrics := core.NewMemoryMetricsRecorder()
	opts := []issuesync.Option{
		issuesync.WithLoggerProvider(provider),
		issuesync.WithMetricsRecorder(metrics),
		issuesync.WithChangeNotifier(notifier),
	}

	if driver := strings.ToLower(strings.TrimSpace(cfg.Store.Driver)); driver != core.StoreDriverMemory {
		client, err := openPersistence(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer func() { _ = client.DB().Close() }()

		factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client,
			sqlstore.WithChangeNotifier(notifier),
			sqlstore.WithProjectCacheTTL(time.Duration(cfg.Store.ProjectCacheTTLSeconds)*time.Second),
		)
		if err != nil {
			return fmt.Errorf("repository factory: %w", err)
		}
		opts = append(opts, issuesync.WithRepositoryFactory(factory))
		logger.Info("sql store ready", "driver", driver)
	}

	svc, err := issuesync.NewService(cfg, opts...)
	if err != nil {
		return err
	}
	handler, err := svc.HTTPHandler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server", "counters", metrics.Counters())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type persistenceConfig struct {
	driver string
	server string
}

func (c persistenceConfig) GetDebug() bool                { return false }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.server }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-issuesync" }

// openPersistence opens the configured database and applies the embedded
// migrations for its dialect.
func openPersistence(ctx context.Context, store core.StoreConfig) (*persistence.Client, error) {
	var (
		sqlDriver string
		dialect   schema.Dialect
		target    string
	)
	switch strings.ToLower(strings.TrimSpace(store.Driver)) {
	case core.StoreDriverPostgres:
		sqlDriver, dialect, target = "postgres", pgdialect.New(), issuemigrations.DialectPostgres
	case core.StoreDriverSQLite:
		sqlDriver, dialect, target = "sqlite3", sqlitedialect.New(), issuemigrations.DialectSQLite
	default:
		return nil, fmt.Errorf("unsupported store driver %q", store.Driver)
	}

	dsn := store.DSN
	if target == issuemigrations.DialectSQLite {
		dsn = sqliteDSN(dsn)
	}
	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", sqlDriver, err)
	}
	if target == issuemigrations.DialectSQLite {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{driver: sqlDriver, server: dsn}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}

	_, err = issuemigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != target {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, issuemigrations.WithValidationTargets(target))
	if err != nil {
		_ = client.DB().Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.DB().Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return client, nil
}

// sqliteDSN turns on foreign key enforcement so project deletes clear issue
// links. An explicit _foreign_keys or _fk parameter is left alone.
func sqliteDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	if strings.Contains(lower, "_foreign_keys=") || strings.Contains(lower, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}
