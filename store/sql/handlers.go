package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// keyedRecord is a row with a UUID string primary key and a unique natural
// key column used as the repository identifier.
type keyedRecord interface {
	*projectRecord | *issueRecord
	recordID() string
	setRecordID(id string)
	naturalKey() string
}

func (r *projectRecord) recordID() string { return r.ID }
func (r *projectRecord) setRecordID(id string) { r.ID = id }
func (r *projectRecord) naturalKey() string { return r.ExternalID }

func (r *issueRecord) recordID() string { return r.ID }
func (r *issueRecord) setRecordID(id string) { r.ID = id }
func (r *issueRecord) naturalKey() string { return r.Key }

func projectHandlers() repository.ModelHandlers[*projectRecord] {
	return keyedHandlers(func() *projectRecord { return &projectRecord{} }, "external_id")
}

func issueHandlers() repository.ModelHandlers[*issueRecord] {
	return keyedHandlers(func() *issueRecord { return &issueRecord{} }, "issue_key")
}

func keyedHandlers[R keyedRecord](newRecord func() R, identifier string) repository.ModelHandlers[R] {
	return repository.ModelHandlers[R]{
		NewRecord: newRecord,
		GetID: func(record R) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.recordID())
		},
		SetID: func(record R, id uuid.UUID) {
			if record != nil {
				record.setRecordID(id.String())
			}
		},
		GetIdentifier: func() string {
			return identifier
		},
		GetIdentifierValue: func(record R) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.naturalKey())
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
