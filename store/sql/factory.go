package sqlstore

import (
	"fmt"
	"time"

	"github.com/goliatone/go-issuesync/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type FactoryOption func(*RepositoryFactory)

// WithChangeNotifier attaches observers to every store the factory builds.
func WithChangeNotifier(notifier *core.ChangeNotifier) FactoryOption {
	return func(f *RepositoryFactory) {
		f.notifier = notifier
	}
}

// WithProjectCacheTTL puts a go-repository-cache layer in front of project
// lookups. A zero ttl disables the cache.
func WithProjectCacheTTL(ttl time.Duration) FactoryOption {
	return func(f *RepositoryFactory) {
		f.projectCacheTTL = ttl
	}
}

func WithProjectCacheService(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.projectCache = cacheService
	}
}

type RepositoryFactory struct {
	db              *bun.DB
	notifier        *core.ChangeNotifier
	projectCacheTTL time.Duration
	projectCache    repositorycache.CacheService

	issueStore         *IssueStore
	projectStore       *ProjectStore
	cachedProjectStore *CachedProjectStore
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	return newRepositoryFactory(client, opts...)
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	return newRepositoryFactory(db, opts...)
}

func newRepositoryFactory(client any, opts ...FactoryOption) (*RepositoryFactory, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	f := &RepositoryFactory{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) initStores() error {
	issueStore, err := NewIssueStore(f.db, f.notifier)
	if err != nil {
		return err
	}
	projectStore, err := NewProjectStore(f.db, f.notifier)
	if err != nil {
		return err
	}
	f.issueStore = issueStore
	f.projectStore = projectStore

	cacheService := f.projectCache
	if cacheService == nil && f.projectCacheTTL > 0 {
		config := repositorycache.DefaultConfig()
		config.TTL = f.projectCacheTTL
		cacheService, err = repositorycache.NewCacheService(config)
		if err != nil {
			return fmt.Errorf("sqlstore: project cache service: %w", err)
		}
	}
	if cacheService != nil {
		cached, err := NewCachedProjectStore(projectStore, cacheService)
		if err != nil {
			return err
		}
		f.cachedProjectStore = cached
	}
	return nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) IssueStore() *IssueStore {
	if f == nil {
		return nil
	}
	return f.issueStore
}

// ProjectStore returns the cached project store when a cache is configured.
func (f *RepositoryFactory) ProjectStore() core.ProjectStore {
	if f == nil {
		return nil
	}
	if f.cachedProjectStore != nil {
		return f.cachedProjectStore
	}
	return f.projectStore
}

// ProjectResolver resolves issue links through the same store as ProjectStore.
func (f *RepositoryFactory) ProjectResolver() core.ProjectResolver {
	if f == nil {
		return nil
	}
	if f.cachedProjectStore != nil {
		return f.cachedProjectStore
	}
	return f.projectStore
}

// RawProjectStore bypasses the cache.
func (f *RepositoryFactory) RawProjectStore() *ProjectStore {
	if f == nil {
		return nil
	}
	return f.projectStore
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, fmt.Errorf("sqlstore: persistence client is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
