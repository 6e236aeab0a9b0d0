package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorMalformedPayload        = "ISSUESYNC_MALFORMED_PAYLOAD"
	ErrorMissingDiscriminator    = "ISSUESYNC_MISSING_DISCRIMINATOR"
	ErrorUnsupportedWebhookType  = "ISSUESYNC_UNSUPPORTED_WEBHOOK_TYPE"
	ErrorStorePersistenceFailure = "ISSUESYNC_STORE_PERSISTENCE_FAILURE"
	ErrorMappingFailure          = "ISSUESYNC_MAPPING_FAILURE"
	ErrorNotFound                = "ISSUESYNC_NOT_FOUND"
	ErrorBadInput                = "ISSUESYNC_BAD_INPUT"
	ErrorConflict                = "ISSUESYNC_CONFLICT"
	ErrorInternal                = "ISSUESYNC_INTERNAL_ERROR"
)

func newError(
	message string,
	category goerrors.Category,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func wrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	textCode string,
	metadata map[string]any,
) *goerrors.Error {
	if source == nil {
		return newError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// MalformedPayloadError reports a request body that is not parseable.
func MalformedPayloadError(source error) error {
	return wrapError(
		source,
		goerrors.CategoryBadInput,
		"malformed webhook payload",
		http.StatusBadRequest,
		ErrorMalformedPayload,
		nil,
	)
}

func MissingDiscriminatorError(field string) error {
	return newError(
		fmt.Sprintf("webhook payload is missing discriminator field %q", field),
		goerrors.CategoryValidation,
		http.StatusBadRequest,
		ErrorMissingDiscriminator,
		map[string]any{"field": field},
	)
}

func UnsupportedWebhookTypeError(webhookType string) error {
	return newError(
		fmt.Sprintf("unsupported webhook type: %q", webhookType),
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		ErrorUnsupportedWebhookType,
		map[string]any{"webhook_type": webhookType},
	)
}

// StorePersistenceError wraps a failure returned by the record store.
func StorePersistenceError(source error, operation string, entity EntityKind, key string) error {
	return wrapError(
		source,
		goerrors.CategoryOperation,
		fmt.Sprintf("%s %s %q failed", entity, operation, key),
		http.StatusInternalServerError,
		ErrorStorePersistenceFailure,
		map[string]any{
			"operation": operation,
			"entity":    string(entity),
			"key":       key,
		},
	)
}

// MappingError reports a payload whose required sub-documents are absent.
func MappingError(entity EntityKind, message string) error {
	return newError(
		fmt.Sprintf("%s mapping failed: %s", entity, message),
		goerrors.CategoryValidation,
		http.StatusUnprocessableEntity,
		ErrorMappingFailure,
		map[string]any{"entity": string(entity)},
	)
}

func NotFoundError(entity EntityKind, id string) error {
	return newError(
		fmt.Sprintf("%s %q not found", entity, id),
		goerrors.CategoryNotFound,
		http.StatusNotFound,
		ErrorNotFound,
		map[string]any{"entity": string(entity), "id": id},
	)
}

func BadInputError(message string) error {
	return newError(message, goerrors.CategoryBadInput, http.StatusBadRequest, ErrorBadInput, nil)
}

func ConflictError(message string, metadata map[string]any) error {
	return newError(message, goerrors.CategoryConflict, http.StatusConflict, ErrorConflict, metadata)
}

func InternalError(message string) error {
	return newError(message, goerrors.CategoryInternal, http.StatusInternalServerError, ErrorInternal, nil)
}

// ErrorKind returns the text code of the outermost go-errors envelope in the
// chain, or an empty string for plain errors.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich == nil {
		return ""
	}
	return strings.TrimSpace(rich.TextCode)
}

func IsErrorKind(err error, textCode string) bool {
	kind := ErrorKind(err)
	return kind != "" && kind == strings.TrimSpace(textCode)
}
