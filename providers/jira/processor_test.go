package jira

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-issuesync/core"
	"github.com/goliatone/go-issuesync/store/memory"
)

func newTestProcessor(t *testing.T) (*Processor, *memory.Store) {
	t.Helper()
	store := memory.New(nil)
	processor, err := NewProcessor(Config{
		Issues:   store.Issues(),
		Projects: store.Projects(),
	})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	return processor, store
}

func request(body string) core.WebhookRequest {
	return core.WebhookRequest{Type: WebhookType, Body: []byte(body)}
}

func process(t *testing.T, processor *Processor, body string) {
	t.Helper()
	if err := processor.Process(context.Background(), request(body)); err != nil {
		t.Fatalf("process %s: %v", body, err)
	}
}

func mustIssue(t *testing.T, store *memory.Store, key string) core.Issue {
	t.Helper()
	issue, found, err := store.Issues().FindByKey(context.Background(), key)
	if err != nil || !found {
		t.Fatalf("expected issue %q, found=%v err=%v", key, found, err)
	}
	return issue
}

const issueDocumentJSON = `{
	"key": "ENG-1",
	"fields": {
		"summary": "Broken login",
		"description": "D1",
		"status": {"name": "To Do"},
		"issuetype": {"name": "Bug"},
		"project": {"id": "101", "key": "ENG"}
	}
}`

func TestProcess_IssueUpdatedOnUnseenKeyMatchesCreated(t *testing.T) {
	created, createdStore := newTestProcessor(t)
	process(t, created, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)

	updated, updatedStore := newTestProcessor(t)
	process(t, updated, `{"webhookEvent":"jira:issue_updated","issue":`+issueDocumentJSON+`}`)

	a := mustIssue(t, createdStore, "ENG-1")
	b := mustIssue(t, updatedStore, "ENG-1")
	if a.Summary != b.Summary || a.Status != b.Status || a.IssueType != b.IssueType {
		t.Fatalf("expected equal mapped fields, got %#v and %#v", a, b)
	}
	if a.Description == nil || b.Description == nil || *a.Description != *b.Description {
		t.Fatalf("expected equal descriptions, got %v and %v", a.Description, b.Description)
	}
	if (a.ProjectID == nil) != (b.ProjectID == nil) {
		t.Fatalf("expected equal project linkage")
	}
	if len(updatedStore.Issues().List()) != 1 {
		t.Fatalf("expected exactly one issue")
	}
}

func TestProcess_DeleteMissingRecordIsNoop(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"project_created","project":{"id":7,"key":"OPS","name":"Ops"}}`)
	before := store.Writes()

	process(t, processor, `{"webhookEvent":"jira:issue_deleted","issue":{"key":"NOPE-1"}}`)
	process(t, processor, `{"webhookEvent":"project_deleted","project":{"id":999}}`)

	if store.Writes() != before {
		t.Fatalf("expected no writes, got %d before and %d after", before, store.Writes())
	}
	if len(store.Projects().List()) != 1 {
		t.Fatalf("expected existing project untouched")
	}
}

func TestProcess_DeleteRemovesRecords(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	process(t, processor, `{"webhookEvent":"jira:issue_deleted","issue":{"key":"ENG-1"}}`)
	if len(store.Issues().List()) != 0 {
		t.Fatalf("expected issue removed")
	}

	process(t, processor, `{"webhookEvent":"project_created","project":{"id":101,"key":"ENG","name":"Engineering"}}`)
	process(t, processor, `{"webhookEvent":"project_deleted","project":{"id":"101"}}`)
	if len(store.Projects().List()) != 0 {
		t.Fatalf("expected project removed")
	}
}

func TestProcess_PartialUpdatePreservesAbsentFields(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	process(t, processor, `{"webhookEvent":"jira:issue_updated","issue":{"key":"ENG-1","fields":{"summary":"Login fixed"}}}`)

	issue := mustIssue(t, store, "ENG-1")
	if issue.Summary != "Login fixed" {
		t.Fatalf("expected summary updated, got %q", issue.Summary)
	}
	if issue.Description == nil || *issue.Description != "D1" {
		t.Fatalf("expected description preserved, got %v", issue.Description)
	}
	if issue.Status != "To Do" || issue.IssueType != "Bug" {
		t.Fatalf("expected status and type preserved, got %q %q", issue.Status, issue.IssueType)
	}
}

func TestProcess_ExplicitNullDescriptionClears(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	process(t, processor, `{"webhookEvent":"jira:issue_updated","issue":{"key":"ENG-1","fields":{"description":null,"summary":null}}}`)

	issue := mustIssue(t, store, "ENG-1")
	if issue.Description != nil {
		t.Fatalf("expected description cleared, got %q", *issue.Description)
	}
	if issue.Summary != "Broken login" {
		t.Fatalf("expected null summary ignored, got %q", issue.Summary)
	}
}

func TestProcess_UnrecognizedEventIsNoop(t *testing.T) {
	processor, store := newTestProcessor(t)
	for _, body := range []string{
		`{"webhookEvent":"sprint_started","sprint":{"id":1}}`,
		`{"webhookEvent":"issue_created","issue":` + issueDocumentJSON + `}`,
		`{"webhookEvent":"JIRA:ISSUE_CREATED","issue":` + issueDocumentJSON + `}`,
		`{"webhookEvent":"jira:project_created","project":{"id":1,"key":"X"}}`,
		`{"issue":` + issueDocumentJSON + `}`,
	} {
		process(t, processor, body)
	}
	if store.Writes() != 0 {
		t.Fatalf("expected zero writes, got %d", store.Writes())
	}
}

func TestProcess_ProjectLinkRoundTrip(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"project_created","project":{"id":101,"key":"ENG","name":"Engineering","description":"Core"}}`)
	project, found, err := store.Projects().FindByKey(context.Background(), "101")
	if err != nil || !found {
		t.Fatalf("expected project 101, found=%v err=%v", found, err)
	}
	if project.Key != "ENG" || project.Name != "Engineering" {
		t.Fatalf("unexpected project %#v", project)
	}

	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	issue := mustIssue(t, store, "ENG-1")
	if issue.ProjectID == nil || *issue.ProjectID != project.ID {
		t.Fatalf("expected issue linked to %q, got %v", project.ID, issue.ProjectID)
	}
}

func TestProcess_MissingProjectIsNeverBackfilled(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	if issue := mustIssue(t, store, "ENG-1"); issue.ProjectID != nil {
		t.Fatalf("expected empty project link, got %q", *issue.ProjectID)
	}

	process(t, processor, `{"webhookEvent":"project_created","project":{"id":"101","key":"ENG","name":"Engineering"}}`)
	if issue := mustIssue(t, store, "ENG-1"); issue.ProjectID != nil {
		t.Fatalf("expected link to stay empty, got %q", *issue.ProjectID)
	}
}

func TestProcess_ProjectUpdateMergesAndFallsBack(t *testing.T) {
	processor, store := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"project_updated","project":{"id":5,"key":"WEB","name":"Web","description":"site"}}`)
	process(t, processor, `{"webhookEvent":"project_updated","project":{"id":5,"name":"Website"}}`)

	projects := store.Projects().List()
	if len(projects) != 1 {
		t.Fatalf("expected one project, got %d", len(projects))
	}
	got := projects[0]
	if got.Name != "Website" || got.Key != "WEB" {
		t.Fatalf("expected name merged and key kept, got %#v", got)
	}
	if got.Description == nil || *got.Description != "site" {
		t.Fatalf("expected description kept, got %v", got.Description)
	}
}

func TestProcess_MalformedBody(t *testing.T) {
	processor, store := newTestProcessor(t)
	for _, body := range []string{`{"webhookEvent":`, `not json`, `[1,2]`, ``} {
		err := processor.Process(context.Background(), request(body))
		if !core.IsErrorKind(err, core.ErrorMalformedPayload) {
			t.Fatalf("expected malformed payload for %q, got %v", body, err)
		}
		if processor.Validate(context.Background(), request(body)) {
			t.Fatalf("expected validate false for %q", body)
		}
	}
	if store.Writes() != 0 {
		t.Fatalf("expected zero writes")
	}
}

func TestValidate(t *testing.T) {
	processor, _ := newTestProcessor(t)
	cases := []struct {
		body string
		want bool
	}{
		{`{"webhookEvent":"jira:issue_created"}`, true},
		{`{"webhookEvent":"sprint_started"}`, true},
		{`{"webhookEvent":""}`, false},
		{`{"issue":{"key":"A-1"}}`, false},
	}
	for _, tc := range cases {
		body, want := tc.body, tc.want
		if got := processor.Validate(context.Background(), request(body)); got != want {
			t.Fatalf("validate %s: expected %v, got %v", body, want, got)
		}
	}
}

func TestProcess_IgnoresFieldsOutsideTheMapping(t *testing.T) {
	processor, store := newTestProcessor(t)
	ctx := context.Background()

	for _, body := range []string{
		`{"webhookEvent":"sprint_started","timestamp":"2024-01-01T00:00:00Z"}`,
		`{"webhookEvent":42}`,
		`{"webhookEvent":{"name":"jira:issue_created"},"issue":` + issueDocumentJSON + `}`,
		`{"webhookEvent":"project_deleted_later","project":{"id":"not-a-number"}}`,
	} {
		if !processor.Validate(ctx, request(body)) {
			t.Fatalf("expected validate true for %s", body)
		}
		if err := processor.Process(ctx, request(body)); err != nil {
			t.Fatalf("expected no-op success for %s, got %v", body, err)
		}
	}
	if store.Writes() != 0 {
		t.Fatalf("expected zero writes for unrouted events, got %d", store.Writes())
	}

	process(t, processor, `{"webhookEvent":"project_created","timestamp":"soon","project":{"id":7,"key":"ENG","self":"https://x"}}`)
	process(t, processor, `{
		"webhookEvent": "jira:issue_created",
		"timestamp": 1.7e12,
		"issue": {
			"id": "10001-x",
			"key": "ENG-9",
			"fields": {"summary": "S", "project": {"id": 7, "key": 7}}
		}
	}`)
	issue := mustIssue(t, store, "ENG-9")
	if issue.ProjectID == nil {
		t.Fatalf("expected project link resolved")
	}
}

func TestProcess_MistypedSubDocumentIsMappingFailure(t *testing.T) {
	processor, store := newTestProcessor(t)
	err := processor.Process(context.Background(), request(`{"webhookEvent":"jira:issue_created","issue":{"key":9}}`))
	if !core.IsErrorKind(err, core.ErrorMappingFailure) {
		t.Fatalf("expected mapping failure, got %v", err)
	}
	if store.Writes() != 0 {
		t.Fatalf("expected zero writes")
	}
}

func TestProcess_MissingSubDocumentsAreMappingFailures(t *testing.T) {
	processor, store := newTestProcessor(t)
	for _, body := range []string{
		`{"webhookEvent":"jira:issue_created"}`,
		`{"webhookEvent":"jira:issue_created","issue":{"key":"ENG-1"}}`,
		`{"webhookEvent":"jira:issue_updated","issue":{"key":"ENG-1"}}`,
		`{"webhookEvent":"jira:issue_created","issue":{"fields":{"summary":"x"}}}`,
		`{"webhookEvent":"project_created"}`,
		`{"webhookEvent":"project_created","project":{"key":"ENG"}}`,
		`{"webhookEvent":"project_created","project":{"id":1}}`,
	} {
		err := processor.Process(context.Background(), request(body))
		if !core.IsErrorKind(err, core.ErrorMappingFailure) {
			t.Fatalf("expected mapping failure for %s, got %v", body, err)
		}
	}
	if store.Writes() != 0 {
		t.Fatalf("expected zero writes")
	}
}

func TestProcess_DuplicateCreateSurfacesStoreFailure(t *testing.T) {
	processor, _ := newTestProcessor(t)
	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	err := processor.Process(context.Background(), request(`{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`))
	if !core.IsErrorKind(err, core.ErrorStorePersistenceFailure) {
		t.Fatalf("expected store persistence failure, got %v", err)
	}
}

type failingResolver struct{ err error }

func (r failingResolver) ResolveProjectID(context.Context, string) (string, bool, error) {
	return "", false, r.err
}

func TestProcess_ResolverFailurePropagates(t *testing.T) {
	store := memory.New(nil)
	cause := errors.New("project lookup timed out")
	processor, err := NewProcessor(Config{
		Issues:   store.Issues(),
		Projects: store.Projects(),
		Resolver: failingResolver{err: cause},
	})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	err = processor.Process(context.Background(), request(`{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`))
	if !errors.Is(err, cause) {
		t.Fatalf("expected resolver cause, got %v", err)
	}
	if store.Writes() != 0 {
		t.Fatalf("expected zero writes")
	}
}

func TestProcess_WebhookWritesSuppressAutomation(t *testing.T) {
	var events []core.ChangeEvent
	notifier := core.NewChangeNotifier(core.ChangeObserverFunc(func(_ context.Context, event core.ChangeEvent) error {
		events = append(events, event)
		return nil
	}))
	store := memory.New(notifier)
	processor, err := NewProcessor(Config{Issues: store.Issues(), Projects: store.Projects()})
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	process(t, processor, `{"webhookEvent":"jira:issue_created","issue":`+issueDocumentJSON+`}`)
	if store.Writes() != 1 {
		t.Fatalf("expected one write, got %d", store.Writes())
	}
	if len(events) != 0 {
		t.Fatalf("expected observers suppressed for webhook writes, got %#v", events)
	}
}

func TestNewProcessor_RequiresStores(t *testing.T) {
	if _, err := NewProcessor(Config{}); err == nil {
		t.Fatalf("expected missing store error")
	}
}

func TestCheck_ReportsReason(t *testing.T) {
	processor, _ := newTestProcessor(t)
	if err := processor.Check(context.Background(), request(`{`)); !core.IsErrorKind(err, core.ErrorMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
	if err := processor.Check(context.Background(), request(`{}`)); !core.IsErrorKind(err, core.ErrorMissingDiscriminator) {
		t.Fatalf("expected missing discriminator, got %v", err)
	}
}
