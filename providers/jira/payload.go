package jira

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-issuesync/core"
)

// optional tracks whether a field was present in the document and whether it
// was an explicit null.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Present reports a non-null value.
func (o optional[T]) Present() bool {
	return o.Set && !o.Null
}

// externalID accepts both JSON numbers and strings and keeps the string form.
type externalID string

func (id *externalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*id = externalID(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("providers/jira: id must be a number or string: %w", err)
	}
	if _, err := strconv.ParseInt(number.String(), 10, 64); err != nil {
		return fmt.Errorf("providers/jira: id %s is not an integer", number.String())
	}
	*id = externalID(number.String())
	return nil
}

func (id externalID) String() string {
	return string(id)
}

// text decodes plain strings as-is and keeps any structured value (for
// example an Atlassian document) as compact JSON.
type text string

func (t *text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*t = text(value)
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*t = text(compact.String())
	return nil
}

// eventName keeps a string discriminator trimmed. Any other JSON value is
// kept in compact form so it matches no route.
type eventName string

func (e *eventName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*e = eventName(strings.TrimSpace(value))
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	*e = eventName(compact.String())
	return nil
}

// envelope holds the discriminator and the raw sub-documents. Sub-documents
// are decoded only by the handler of a supported event.
type envelope struct {
	WebhookEvent eventName       `json:"webhookEvent"`
	Issue        json.RawMessage `json:"issue"`
	Project      json.RawMessage `json:"project"`
}

type issueDocument struct {
	Key    string       `json:"key"`
	Fields *issueFields `json:"fields"`
}

type issueFields struct {
	Summary     optional[string]     `json:"summary"`
	Description optional[text]       `json:"description"`
	Status      optional[namedValue] `json:"status"`
	IssueType   optional[namedValue] `json:"issuetype"`
	Project     optional[projectRef] `json:"project"`
}

type namedValue struct {
	Name optional[string] `json:"name"`
}

type projectRef struct {
	ID externalID `json:"id"`
}

type projectDocument struct {
	ID          externalID       `json:"id"`
	Key         optional[string] `json:"key"`
	Name        optional[string] `json:"name"`
	Description optional[text]   `json:"description"`
}

// decodeEnvelope parses a webhook body. Anything other than a JSON object is
// rejected. Fields it does not use are never inspected.
func decodeEnvelope(body []byte) (envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return envelope{}, fmt.Errorf("providers/jira: empty body")
	}
	if trimmed[0] != '{' {
		return envelope{}, fmt.Errorf("providers/jira: body must be a JSON object")
	}
	var out envelope
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return envelope{}, fmt.Errorf("providers/jira: decode body: %w", err)
	}
	return out, nil
}

// decodeDocument decodes a sub-document. An absent or null document reports
// false.
func decodeDocument[T any](raw json.RawMessage, entity core.EntityKind, name string) (T, bool, error) {
	var doc T
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return doc, false, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, false, core.MappingError(entity, fmt.Sprintf("%s: %v", name, err))
	}
	return doc, true, nil
}
