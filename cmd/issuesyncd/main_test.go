package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-issuesync/core"
)

func TestSQLiteDSN_EnablesForeignKeys(t *testing.T) {
	cases := map[string]string{
		"file:issues.db":                   "file:issues.db?_foreign_keys=on",
		"file:issues.db?cache=shared":      "file:issues.db?cache=shared&_foreign_keys=on",
		"file:issues.db?_foreign_keys=off": "file:issues.db?_foreign_keys=off",
		"file:issues.db?mode=memory&_fk=1": "file:issues.db?mode=memory&_fk=1",
		" file::memory:?cache=shared ":     "file::memory:?cache=shared&_foreign_keys=on",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Fatalf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenPersistence_SQLiteClearsIssueLinksOnProjectDelete(t *testing.T) {
	ctx := context.Background()
	client, err := openPersistence(ctx, core.StoreConfig{
		Driver: core.StoreDriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "issues.db"),
	})
	if err != nil {
		t.Fatalf("open persistence: %v", err)
	}
	defer func() { _ = client.DB().Close() }()

	db := client.DB()
	if _, err := db.ExecContext(ctx, `INSERT INTO issuesync_projects (id, external_id, project_key, name) VALUES ('p-1', '101', 'ENG', 'Engineering')`); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO issuesync_issues (id, issue_key, summary, project_id) VALUES ('i-1', 'ENG-1', 'S', 'p-1')`); err != nil {
		t.Fatalf("insert issue: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM issuesync_projects WHERE id = 'p-1'`); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	var linked int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issuesync_issues WHERE project_id IS NOT NULL`).Scan(&linked); err != nil {
		t.Fatalf("count links: %v", err)
	}
	if linked != 0 {
		t.Fatalf("expected issue link cleared, %d still linked", linked)
	}
}

func TestOpenPersistence_RejectsUnknownDriver(t *testing.T) {
	if _, err := openPersistence(context.Background(), core.StoreConfig{Driver: "mysql", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}
