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

type IssueStore struct {
	db       *bun.DB
	repo     repository.Repository[*issueRecord]
	notifier *core.ChangeNotifier
	now      func() time.Time
}

func NewIssueStore(db *bun.DB, notifier *core.ChangeNotifier) (*IssueStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*issueRecord](db, issueHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid issue repository wiring: %w", err)
		}
	}
	return &IssueStore{
		db:       db,
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *IssueStore) Get(ctx context.Context, id string) (core.Issue, error) {
	if s == nil || s.db == nil {
		return core.Issue{}, fmt.Errorf("sqlstore: issue store is not configured")
	}
	id = strings.TrimSpace(id)
	record := &issueRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.Issue{}, core.NotFoundError(core.EntityIssue, id)
		}
		return core.Issue{}, err
	}
	return record.toDomain(), nil
}

func (s *IssueStore) FindByKey(ctx context.Context, key string) (core.Issue, bool, error) {
	if s == nil || s.db == nil {
		return core.Issue{}, false, fmt.Errorf("sqlstore: issue store is not configured")
	}
	record, err := findIssueByKey(ctx, s.db, key)
	if err != nil || record == nil {
		return core.Issue{}, false, err
	}
	return record.toDomain(), true, nil
}

// ListByProject returns the issues linked to a local project id, oldest first.
func (s *IssueStore) ListByProject(ctx context.Context, projectID string, limit int, offset int) ([]core.Issue, int, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("sqlstore: issue store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, total, err := s.repo.List(ctx,
		repository.SelectBy("project_id", "=", strings.TrimSpace(projectID)),
		repository.SelectPaginate(limit, offset),
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		return nil, 0, err
	}
	out := make([]core.Issue, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, total, nil
}

func (s *IssueStore) Insert(ctx context.Context, issue core.Issue, opts core.WriteOptions) (core.Issue, error) {
	if s == nil || s.repo == nil {
		return core.Issue{}, fmt.Errorf("sqlstore: issue store is not configured")
	}
	if strings.TrimSpace(issue.Key) == "" {
		return core.Issue{}, fmt.Errorf("sqlstore: issue key is required")
	}
	record := newIssueRecord(issue, s.now())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Issue{}, fmt.Errorf("sqlstore: issue %q already exists: %w", record.Key, err)
		}
		return core.Issue{}, err
	}
	out := created.toDomain()
	s.notify(ctx, core.ChangeCreated, out, opts)
	return out, nil
}

// Upsert writes the issue in one statement keyed on issue_key. The stored id
// and created_at survive a conflict.
func (s *IssueStore) Upsert(ctx context.Context, issue core.Issue, opts core.WriteOptions) (core.Issue, error) {
	if s == nil || s.db == nil {
		return core.Issue{}, fmt.Errorf("sqlstore: issue store is not configured")
	}
	if strings.TrimSpace(issue.Key) == "" {
		return core.Issue{}, fmt.Errorf("sqlstore: issue key is required")
	}
	record := newIssueRecord(issue, s.now())
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	var (
		stored *issueRecord
		change = core.ChangeUpdated
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := findIssueByKey(ctx, tx, record.Key)
		if err != nil {
			return err
		}
		if existing == nil {
			change = core.ChangeCreated
		}
		if _, err := tx.NewInsert().
			Model(record).
			On("CONFLICT (issue_key) DO UPDATE").
			Set("summary = EXCLUDED.summary").
			Set("description = EXCLUDED.description").
			Set("status = EXCLUDED.status").
			Set("issue_type = EXCLUDED.issue_type").
			Set("project_id = EXCLUDED.project_id").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return err
		}
		stored, err = findIssueByKey(ctx, tx, record.Key)
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("sqlstore: issue %q missing after upsert", record.Key)
		}
		return nil
	})
	if err != nil {
		return core.Issue{}, err
	}
	out := stored.toDomain()
	s.notify(ctx, change, out, opts)
	return out, nil
}

func (s *IssueStore) Delete(ctx context.Context, issue core.Issue, opts core.WriteOptions) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: issue store is not configured")
	}
	id := strings.TrimSpace(issue.ID)
	if id == "" {
		return fmt.Errorf("sqlstore: issue id is required")
	}
	result, err := s.db.NewDelete().
		Model((*issueRecord)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil
	}
	s.notify(ctx, core.ChangeDeleted, issue, opts)
	return nil
}

func (s *IssueStore) notify(ctx context.Context, change core.ChangeKind, issue core.Issue, opts core.WriteOptions) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(ctx, core.ChangeEvent{
		Entity:   core.EntityIssue,
		Change:   change,
		RecordID: issue.ID,
		Key:      issue.Key,
	}, opts)
}

func findIssueByKey(ctx context.Context, db bun.IDB, key string) (*issueRecord, error) {
	record := &issueRecord{}
	err := db.NewSelect().
		Model(record).
		Where("?TableAlias.issue_key = ?", strings.TrimSpace(key)).
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
