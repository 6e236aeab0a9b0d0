package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-issuesync/core"
	"github.com/goliatone/go-issuesync/query"
	"github.com/goliatone/go-issuesync/webhooks"
	glog "github.com/goliatone/go-logger/glog"
)

const DefaultBodyLimit int64 = 5 << 20

type WebhookHandler interface {
	HandlePath(ctx context.Context, req core.WebhookRequest) webhooks.Response
}

// Config wires the router. Issues and Projects enable the read routes when
// set; the project issue listing needs both Projects and ProjectIssues.
type Config struct {
	Webhooks      WebhookHandler
	Issues        query.IssueReader
	Projects      query.ProjectReader
	ProjectIssues query.ProjectIssueLister
	BodyLimit     int64
	Logger        core.Logger
}

type server struct {
	webhooks      WebhookHandler
	issues        *query.GetIssueQuery
	projects      *query.GetProjectQuery
	projectIssues *query.ListProjectIssuesQuery
	bodyLimit     int64
	logger        core.Logger
	now           func() time.Time
}

// NewRouter mounts the health, read and webhook routes.
func NewRouter(cfg Config) (chi.Router, error) {
	if cfg.Webhooks == nil {
		return nil, fmt.Errorf("httpapi: webhook handler is required")
	}
	_, logger := glog.Resolve("issuesync.httpapi", nil, cfg.Logger)
	s := &server{
		webhooks:  cfg.Webhooks,
		bodyLimit: cfg.BodyLimit,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if s.bodyLimit <= 0 {
		s.bodyLimit = DefaultBodyLimit
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.health)
	if cfg.Issues != nil {
		s.issues = query.NewGetIssueQuery(cfg.Issues)
		r.Get("/issues/{key}", s.getIssue)
	}
	if cfg.Projects != nil {
		s.projects = query.NewGetProjectQuery(cfg.Projects)
		r.Get("/projects/{externalID}", s.getProject)
	}
	if cfg.Projects != nil && cfg.ProjectIssues != nil {
		s.projectIssues = query.NewListProjectIssuesQuery(cfg.ProjectIssues)
		r.Get("/projects/{externalID}/issues", s.listProjectIssues)
	}
	r.Post("/*", s.webhook)
	return r, nil
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// webhook answers 200 for every delivery, including failures and processor
// panics.
func (s *server) webhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error("webhook handler panicked", "path", r.URL.Path, "panic", rec)
			writeJSON(w, http.StatusOK, webhooks.ErrorResponse(core.InternalError(fmt.Sprintf("webhook processing panicked: %v", rec))))
		}
	}()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.bodyLimit))
	if err != nil {
		s.logger.Warn("webhook body read failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusOK, webhooks.ErrorResponse(core.MalformedPayloadError(err)))
		return
	}
	req := core.WebhookRequest{
		Path:       r.URL.Path,
		Headers:    flattenHeaders(r.Header),
		Body:       body,
		ReceivedAt: s.now(),
	}
	writeJSON(w, http.StatusOK, s.webhooks.HandlePath(r.Context(), req))
}

func (s *server) getIssue(w http.ResponseWriter, r *http.Request) {
	msg := query.GetIssueMessage{Key: chi.URLParam(r, "key")}
	if err := msg.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	issue, err := s.issues.Query(r.Context(), msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newIssueView(issue))
}

func (s *server) getProject(w http.ResponseWriter, r *http.Request) {
	msg := query.GetProjectMessage{ExternalID: chi.URLParam(r, "externalID")}
	if err := msg.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	project, err := s.projects.Query(r.Context(), msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newProjectView(project))
}

// listProjectIssues resolves the project by external id and pages through the
// issues linked to its local id.
func (s *server) listProjectIssues(w http.ResponseWriter, r *http.Request) {
	lookup := query.GetProjectMessage{ExternalID: chi.URLParam(r, "externalID")}
	if err := lookup.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	project, err := s.projects.Query(r.Context(), lookup)
	if err != nil {
		s.writeError(w, err)
		return
	}
	msg := query.ListProjectIssuesMessage{
		ProjectID: project.ID,
		Limit:     intParam(r, "limit"),
		Offset:    intParam(r, "offset"),
	}
	if err := msg.Validate(); err != nil {
		s.writeError(w, err)
		return
	}
	page, err := s.projectIssues.Query(r.Context(), msg)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newIssuePageView(page))
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil && rich.Code >= http.StatusBadRequest {
		status = rich.Code
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorView{Error: err.Error(), Code: core.ErrorKind(err)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func flattenHeaders(header http.Header) map[string]string {
	if len(header) == 0 {
		return nil
	}
	out := make(map[string]string, len(header))
	for name, values := range header {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = values[0]
	}
	return out
}

// intParam returns -1 for values that are present but not integers so
// message validation rejects them.
func intParam(r *http.Request, name string) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return value
}
