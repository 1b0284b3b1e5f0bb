package app

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"atas/api/internal/auth"
	"atas/api/internal/authpw"
	"atas/api/internal/email"
	"atas/api/internal/export"
	"atas/api/internal/gitrepo"
	"atas/api/internal/storage"
	"atas/api/internal/wizard"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func invalid(field, message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", map[string]string{field: message})
}

// mapError translates service errors into the HTTP status, code, message and
// details written to the client.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}

	var fields validation.Errors
	if errors.As(err, &fields) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Validation failed", fieldErrors(fields)
	}

	var incomplete *wizard.IncompleteError
	if errors.As(err, &incomplete) {
		return http.StatusUnprocessableEntity, "WIZARD_INCOMPLETE", incomplete.Error(), map[string]int{"incomplete": incomplete.Count}
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, authpw.ErrInvalidResetToken):
		return http.StatusBadRequest, "RESET_FAILED", err.Error(), nil
	case errors.Is(err, wizard.ErrEmptyExcerpt):
		return http.StatusUnprocessableEntity, "WIZARD_STEP_INCOMPLETE", err.Error(), nil
	case errors.Is(err, wizard.ErrNotGeneral), errors.Is(err, wizard.ErrNotRegular),
		errors.Is(err, wizard.ErrFragmentGone), errors.Is(err, wizard.ErrFinalized):
		return http.StatusConflict, "WIZARD_STATE", err.Error(), nil
	case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrEmptyFile):
		return http.StatusUnprocessableEntity, "INVALID_UPLOAD", err.Error(), nil
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error(), nil
	case errors.Is(err, storage.ErrObjectNotFound), errors.Is(err, gitrepo.ErrNoHistory):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, email.ErrNotConfigured):
		return http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "Email delivery is not configured", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// fieldErrors flattens ozzo errors into field -> message, including nested
// errors from slices and structs.
func fieldErrors(errs validation.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for field, err := range errs {
		var nested validation.Errors
		if errors.As(err, &nested) {
			for sub, message := range fieldErrors(nested) {
				out[field+"."+sub] = message
			}
			continue
		}
		out[field] = err.Error()
	}
	return out
}
