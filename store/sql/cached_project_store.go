package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-issuesync/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const projectCacheKeyPrefix = "issuesync::project_by_external_id::v1"

var errProjectNotCached = errors.New("sqlstore: project not found")

// CachedProjectStore caches external id lookups in front of a project store.
// Misses are never cached; every write drops the entry for its external id.
type CachedProjectStore struct {
	base  core.ProjectStore
	cache repositorycache.CacheService
}

func NewCachedProjectStore(base core.ProjectStore, cacheService repositorycache.CacheService) (*CachedProjectStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base project store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: project cache service is required")
	}
	return &CachedProjectStore{base: base, cache: cacheService}, nil
}

// ProjectCacheKey returns issuesync::project_by_external_id::v1::<external_id>
// with the id URL-path escaped.
func ProjectCacheKey(externalID string) string {
	return projectCacheKeyPrefix + "::" + url.PathEscape(strings.TrimSpace(externalID))
}

func (s *CachedProjectStore) Get(ctx context.Context, id string) (core.Project, error) {
	return s.base.Get(ctx, id)
}

func (s *CachedProjectStore) FindByKey(ctx context.Context, externalID string) (core.Project, bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Project{}, false, fmt.Errorf("sqlstore: cached project store is not configured")
	}
	externalID = strings.TrimSpace(externalID)
	project, err := repositorycache.GetOrFetch(ctx, s.cache, ProjectCacheKey(externalID), func(ctx context.Context) (core.Project, error) {
		fetched, found, fetchErr := s.base.FindByKey(ctx, externalID)
		if fetchErr != nil {
			return core.Project{}, fetchErr
		}
		if !found {
			return core.Project{}, errProjectNotCached
		}
		return cloneProject(fetched), nil
	})
	if err != nil {
		if errors.Is(err, errProjectNotCached) {
			return core.Project{}, false, nil
		}
		return core.Project{}, false, err
	}
	return cloneProject(project), true, nil
}

func (s *CachedProjectStore) ResolveProjectID(ctx context.Context, externalID string) (string, bool, error) {
	project, found, err := s.FindByKey(ctx, externalID)
	if err != nil || !found {
		return "", false, err
	}
	return project.ID, true, nil
}

func (s *CachedProjectStore) Insert(ctx context.Context, project core.Project, opts core.WriteOptions) (core.Project, error) {
	created, err := s.base.Insert(ctx, project, opts)
	if err != nil {
		return core.Project{}, err
	}
	return created, s.invalidate(ctx, created.ExternalID)
}

func (s *CachedProjectStore) Upsert(ctx context.Context, project core.Project, opts core.WriteOptions) (core.Project, error) {
	stored, err := s.base.Upsert(ctx, project, opts)
	if err != nil {
		return core.Project{}, err
	}
	return stored, s.invalidate(ctx, stored.ExternalID)
}

func (s *CachedProjectStore) Delete(ctx context.Context, project core.Project, opts core.WriteOptions) error {
	if err := s.base.Delete(ctx, project, opts); err != nil {
		return err
	}
	return s.invalidate(ctx, project.ExternalID)
}

func (s *CachedProjectStore) invalidate(ctx context.Context, externalID string) error {
	if strings.TrimSpace(externalID) == "" {
		return nil
	}
	return s.cache.Delete(ctx, ProjectCacheKey(externalID))
}

func cloneProject(project core.Project) core.Project {
	project.Description = core.CloneString(project.Description)
	return project
}
