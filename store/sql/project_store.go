package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-issuesync/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProjectStore reconciles projects by external_id. Deleting a project clears
// issue links through the project_id foreign key.
type ProjectStore struct {
	db       *bun.DB
	repo     repository.Repository[*projectRecord]
	notifier *core.ChangeNotifier
	now      func() time.Time
}

func NewProjectStore(db *bun.DB, notifier *core.ChangeNotifier) (*ProjectStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*projectRecord](db, projectHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid project repository wiring: %w", err)
		}
	}
	return &ProjectStore{
		db:       db,
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *ProjectStore) Get(ctx context.Context, id string) (core.Project, error) {
	if s == nil || s.db == nil {
		return core.Project{}, fmt.Errorf("sqlstore: project store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &projectRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.Project{}, core.NotFoundError(core.EntityProject, id)
		}
		return core.Project{}, err
	}
	return record.toDomain(), nil
}

func (s *ProjectStore) FindByKey(ctx context.Context, externalID string) (core.Project, bool, error) {
	if s == nil || s.db == nil {
		return core.Project{}, false, fmt.Errorf("sqlstore: project store is not configured")
	}
	record, err := findProjectByExternalID(ctx, s.db, externalID)
	if err != nil || record == nil {
		return core.Project{}, false, err
	}
	return record.toDomain(), true, nil
}

// FindByProjectKey looks a project up by its short code.
func (s *ProjectStore) FindByProjectKey(ctx context.Context, key string) (core.Project, bool, error) {
	if s == nil || s.repo == nil {
		return core.Project{}, false, fmt.Errorf("sqlstore: project store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("project_key", "=", strings.TrimSpace(key)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Project{}, false, err
	}
	if len(records) == 0 {
		return core.Project{}, false, nil
	}
	return records[0].toDomain(), true, nil
}

func (s *ProjectStore) ResolveProjectID(ctx context.Context, externalID string) (string, bool, error) {
	project, found, err := s.FindByKey(ctx, externalID)
	if err != nil || !found {
		return "", false, err
	}
	return project.ID, true, nil
}

func (s *ProjectStore) Insert(ctx context.Context, project core.Project, opts core.WriteOptions) (core.Project, error) {
	if s == nil || s.repo == nil {
		return core.Project{}, fmt.Errorf("sqlstore: project store is not configured")
	}
	if strings.TrimSpace(project.ExternalID) == "" {
		return core.Project{}, fmt.Errorf("sqlstore: project external id is required")
	}
	record := newProjectRecord(project, s.now())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Project{}, fmt.Errorf("sqlstore: project %q already exists: %w", record.ExternalID, err)
		}
		return core.Project{}, err
	}
	out := created.toDomain()
	s.notify(ctx, core.ChangeCreated, out, opts)
	return out, nil
}

func (s *ProjectStore) Upsert(ctx context.Context, project core.Project, opts core.WriteOptions) (core.Project, error) {
	if s == nil || s.db == nil {
		return core.Project{}, fmt.Errorf("sqlstore: project store is not configured")
	}
	if strings.TrimSpace(project.ExternalID) == "" {
		return core.Project{}, fmt.Errorf("sqlstore: project external id is required")
	}
	record := newProjectRecord(project, s.now())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	var (
		stored *projectRecord
		change = core.ChangeUpdated
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findProjectByExternalID(ctx, tx, record.ExternalID)
		if err != nil {
			return err
		}
		if existing == nil {
			change = core.ChangeCreated
		}
		if _, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (external_id) DO UPDATE").
			Set("project_key = EXCLUDED.project_key").
			Set("name = EXCLUDED.name").
			Set("description = EXCLUDED.description").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}
		stored, err = findProjectByExternalID(ctx, tx, record.ExternalID)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("sqlstore: project %q missing after upsert", record.ExternalID)
		}
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}
	out := stored.toDomain()
	s.notify(ctx, change, out, opts)
	return out, nil
}

func (s *ProjectStore) Delete(ctx context.Context, project core.Project, opts core.WriteOptions) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: project store is not configured")
	}
	id := strings.TrimSpace(project.ID)
	if id == "" {
		return fmt.Errorf("sqlstore: project id is required")
	}
	result, err := s.db.NewDelete().
		Model((*projectRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil
	}
	s.notify(ctx, core.ChangeDeleted, project, opts)
	return nil
}

func (s *ProjectStore) notify(ctx context.Context, change core.ChangeKind, project core.Project, opts core.WriteOptions) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, core.ChangeEvent{
		Entity:   core.EntityProject,
		Change:   change,
		RecordID: project.ID,
		Key:      project.ExternalID,
	}, opts)
}

func findProjectByExternalID(ctx context.Context, db bun.IDB, externalID string) (*projectRecord, error) {
	record := &projectRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.external_id = ?", strings.TrimSpace(externalID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
