package service

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/spec-kit/task-distribution/internal/repository"
	apperrors "github.com/spec-kit/task-distribution/pkg/util/errorutil"
)

// MinPasswordLength applies to every newly set password.
const MinPasswordLength = 6

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

func validateAccountFields(name, email, password string, passwordRequired bool) error {
	fields := map[string]any{}
	if name == "" {
		fields["name"] = "required"
	}
	if email == "" {
		fields["email"] = "required"
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = "invalid"
	}
	if passwordRequired || password != "" {
		switch {
		case len(password) < MinPasswordLength:
			fields["password"] = "must be at least 6 characters"
		case len(password) > MaxPasswordBytes:
			fields["password"] = "must be at most 72 bytes"
		}
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid account fields", fields)
	}
	return nil
}

func requireMobile(mobile string) error {
	if strings.TrimSpace(mobile) == "" {
		return apperrors.NewValidationError("invalid account fields", map[string]any{"mobile": "required"})
	}
	return nil
}

func mapPrincipalWriteError(err error, email string) error {
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return apperrors.NewConflict("email already registered", map[string]any{"email": email})
	}
	return apperrors.MapError(err)
}

func lookupError(err error, resource string, details map[string]any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}
