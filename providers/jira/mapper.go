package jira

import (
	"context"
	"strings"

	"github.com/goliatone/go-issuesync/core"
)

type mapper struct {
	resolver core.ProjectResolver
}

func issueKey(doc issueDocument) (string, error) {
	key := strings.TrimSpace(doc.Key)
	if key == "" {
		return "", core.MappingError(core.EntityIssue, "issue.key is required")
	}
	return key, nil
}

func projectExternalID(doc projectDocument) (string, error) {
	id := strings.TrimSpace(doc.ID.String())
	if id == "" {
		return "", core.MappingError(core.EntityProject, "project.id is required")
	}
	return id, nil
}

// newIssue maps every issue field, absent ones to their zero value.
func (m mapper) newIssue(ctx context.Context, doc issueDocument) (core.Issue, error) {
	key, err := issueKey(doc)
	if err != nil {
		return core.Issue{}, err
	}
	if doc.Fields == nil {
		return core.Issue{}, core.MappingError(core.EntityIssue, "issue.fields is required")
	}
	fields := doc.Fields
	issue := core.Issue{
		Key:         key,
		Summary:     fields.Summary.Value,
		Description: optionalText(fields.Description),
		Status:      fields.Status.Value.Name.Value,
		IssueType:   fields.IssueType.Value.Name.Value,
	}
	if fields.Project.Present() {
		projectID, err := m.resolveProject(ctx, fields.Project.Value)
		if err != nil {
			return core.Issue{}, err
		}
		issue.ProjectID = projectID
	}
	return issue, nil
}

// mergeIssue overwrites only the fields present in doc. A null description or
// project clears the stored value; a null summary, status or type is ignored.
func (m mapper) mergeIssue(ctx context.Context, existing core.Issue, doc issueDocument) (core.Issue, error) {
	if doc.Fields == nil {
		return core.Issue{}, core.MappingError(core.EntityIssue, "issue.fields is required")
	}
	fields := doc.Fields
	merged := existing
	merged.Description = core.CloneString(existing.Description)
	merged.ProjectID = core.CloneString(existing.ProjectID)

	if fields.Summary.Present() {
		merged.Summary = fields.Summary.Value
	}
	if fields.Description.Set {
		merged.Description = optionalText(fields.Description)
	}
	if fields.Status.Present() && fields.Status.Value.Name.Present() {
		merged.Status = fields.Status.Value.Name.Value
	}
	if fields.IssueType.Present() && fields.IssueType.Value.Name.Present() {
		merged.IssueType = fields.IssueType.Value.Name.Value
	}
	if fields.Project.Set {
		merged.ProjectID = nil
		if fields.Project.Present() {
			projectID, err := m.resolveProject(ctx, fields.Project.Value)
			if err != nil {
				return core.Issue{}, err
			}
			merged.ProjectID = projectID
		}
	}
	return merged, nil
}

func (m mapper) newProject(_ context.Context, doc projectDocument) (core.Project, error) {
	externalID, err := projectExternalID(doc)
	if err != nil {
		return core.Project{}, err
	}
	key := strings.TrimSpace(doc.Key.Value)
	if key == "" {
		return core.Project{}, core.MappingError(core.EntityProject, "project.key is required")
	}
	return core.Project{
		ExternalID:  externalID,
		Key:         key,
		Name:        doc.Name.Value,
		Description: optionalText(doc.Description),
	}, nil
}

func (m mapper) mergeProject(_ context.Context, existing core.Project, doc projectDocument) (core.Project, error) {
	merged := existing
	merged.Description = core.CloneString(existing.Description)
	if doc.Key.Present() {
		if key := strings.TrimSpace(doc.Key.Value); key != "" {
			merged.Key = key
		}
	}
	if doc.Name.Present() {
		merged.Name = doc.Name.Value
	}
	if doc.Description.Set {
		merged.Description = optionalText(doc.Description)
	}
	return merged, nil
}

// resolveProject looks up the local project for ref. An unknown project
// leaves the link empty; it is never backfilled later.
func (m mapper) resolveProject(ctx context.Context, ref projectRef) (*string, error) {
	externalID := strings.TrimSpace(ref.ID.String())
	if externalID == "" || m.resolver == nil {
		return nil, nil
	}
	localID, found, err := m.resolver.ResolveProjectID(ctx, externalID)
	if err != nil {
		return nil, core.StorePersistenceError(err, "lookup", core.EntityProject, externalID)
	}
	if !found || strings.TrimSpace(localID) == "" {
		return nil, nil
	}
	return core.StringPtr(localID), nil
}

func optionalText(value optional[text]) *string {
	if !value.Present() {
		return nil
	}
	return core.StringPtr(string(value.Value))
}
