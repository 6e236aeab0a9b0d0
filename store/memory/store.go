package memory

import (
	"context"
	"time"

	"github.com/goliatone/go-issuesync/core"
)

// Store holds one issue table and one project table. Deleting a project
// clears the link on every issue that referenced it.
type Store struct {
	issues   *IssueStore
	projects *ProjectStore
}

func New(notifier *core.ChangeNotifier) *Store {
	issues := &IssueStore{table: newTable(issueAccessor, notifier)}
	projects := &ProjectStore{table: newTable(projectAccessor, notifier), issues: issues}
	return &Store{issues: issues, projects: projects}
}

func (s *Store) Issues() *IssueStore { return s.issues }

func (s *Store) Projects() *ProjectStore { return s.projects }

// Writes reports successful mutations across both tables.
func (s *Store) Writes() int {
	return s.issues.table.writeCount() + s.projects.table.writeCount()
}

type IssueStore struct {
	table *table[core.Issue]
}

func NewIssueStore(notifier *core.ChangeNotifier) *IssueStore {
	return &IssueStore{table: newTable(issueAccessor, notifier)}
}

func (s *IssueStore) Get(ctx context.Context, id string) (core.Issue, error) {
	return s.table.get(ctx, id)
}

func (s *IssueStore) FindByKey(ctx context.Context, key string) (core.Issue, bool, error) {
	return s.table.findByKey(ctx, key)
}

func (s *IssueStore) Insert(ctx context.Context, issue core.Issue, opts core.WriteOptions) (core.Issue, error) {
	return s.table.insert(ctx, issue, opts)
}

func (s *IssueStore) Upsert(ctx context.Context, issue core.Issue, opts core.WriteOptions) (core.Issue, error) {
	return s.table.upsert(ctx, issue, opts)
}

func (s *IssueStore) Delete(ctx context.Context, issue core.Issue, opts core.WriteOptions) error {
	return s.table.delete(ctx, issue, opts)
}

func (s *IssueStore) List() []core.Issue {
	return s.table.list()
}

// ListByProject pages through the issues linked to projectID in key order.
func (s *IssueStore) ListByProject(_ context.Context, projectID string, limit int, offset int) ([]core.Issue, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	linked := make([]core.Issue, 0)
	for _, issue := range s.table.list() {
		if issue.ProjectID != nil && *issue.ProjectID == projectID {
			linked = append(linked, issue)
		}
	}
	total := len(linked)
	if offset >= total {
		return []core.Issue{}, total, nil
	}
	end := min(offset+limit, total)
	return linked[offset:end], total, nil
}

type ProjectStore struct {
	table  *table[core.Project]
	issues *IssueStore
}

func NewProjectStore(notifier *core.ChangeNotifier) *ProjectStore {
	return &ProjectStore{table: newTable(projectAccessor, notifier)}
}

func (s *ProjectStore) Get(ctx context.Context, id string) (core.Project, error) {
	return s.table.get(ctx, id)
}

// FindByKey looks a project up by its external id.
func (s *ProjectStore) FindByKey(ctx context.Context, externalID string) (core.Project, bool, error) {
	return s.table.findByKey(ctx, externalID)
}

func (s *ProjectStore) Insert(ctx context.Context, project core.Project, opts core.WriteOptions) (core.Project, error) {
	return s.table.insert(ctx, project, opts)
}

func (s *ProjectStore) Upsert(ctx context.Context, project core.Project, opts core.WriteOptions) (core.Project, error) {
	return s.table.upsert(ctx, project, opts)
}

func (s *ProjectStore) Delete(ctx context.Context, project core.Project, opts core.WriteOptions) error {
	if err := s.table.delete(ctx, project, opts); err != nil {
		return err
	}
	if s.issues != nil {
		s.issues.table.clearReferences(project.ID)
	}
	return nil
}

func (s *ProjectStore) ResolveProjectID(ctx context.Context, externalID string) (string, bool, error) {
	project, found, err := s.FindByKey(ctx, externalID)
	if err != nil || !found {
		return "", false, err
	}
	return project.ID, true, nil
}

func (s *ProjectStore) List() []core.Project {
	return s.table.list()
}

var issueAccessor = accessor[core.Issue]{
	entity: core.EntityIssue,
	key:    func(issue core.Issue) string { return issue.Key },
	id:     func(issue core.Issue) string { return issue.ID },
	setID:  func(issue *core.Issue, id string) { issue.ID = id },
	stamp: func(issue *core.Issue, previous *core.Issue, now time.Time) {
		issue.UpdatedAt = now
		if previous != nil {
			issue.CreatedAt = previous.CreatedAt
			return
		}
		if issue.CreatedAt.IsZero() {
			issue.CreatedAt = now
		}
	},
	clone: func(issue core.Issue) core.Issue {
		issue.Description = core.CloneString(issue.Description)
		issue.ProjectID = core.CloneString(issue.ProjectID)
		return issue
	},
	clearRef: func(issue *core.Issue, projectID string) bool {
		if issue.ProjectID == nil || *issue.ProjectID != projectID {
			return false
		}
		issue.ProjectID = nil
		return true
	},
}

var projectAccessor = accessor[core.Project]{
	entity: core.EntityProject,
	key:    func(project core.Project) string { return project.ExternalID },
	id:     func(project core.Project) string { return project.ID },
	setID:  func(project *core.Project, id string) { project.ID = id },
	stamp: func(project *core.Project, previous *core.Project, now time.Time) {
		project.UpdatedAt = now
		if previous != nil {
			project.CreatedAt = previous.CreatedAt
			return
		}
		if project.CreatedAt.IsZero() {
			project.CreatedAt = now
		}
	},
	clone: func(project core.Project) core.Project {
		project.Description = core.CloneString(project.Description)
		return project
	},
}

var (
	_ core.IssueStore      = (*IssueStore)(nil)
	_ core.ProjectStore    = (*ProjectStore)(nil)
	_ core.ProjectResolver = (*ProjectStore)(nil)
)
