package controller

import (
	"fmt"
	"strings"

	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{e.ErrInvalidInput}, args...)...)
}

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// notBlank rejects an update that sets a required field to an empty value.
func notBlank(field string, value *string) error {
	if value != nil && strings.TrimSpace(*value) == "" {
		return invalid("%s cannot be empty", field)
	}
	return nil
}

func requiredID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return invalid("%s is required", field)
	}
	return nil
}

func notNilID(field string, id *uuid.UUID) error {
	if id != nil && *id == uuid.Nil {
		return invalid("%s cannot be empty", field)
	}
	return nil
}

// defaultStatus sets an empty status to ACTIVE and rejects unknown values.
func defaultStatus(status *models.Status) error {
	if *status == "" {
		*status = models.StatusActive
	}
	return validStatus(status)
}

func validStatus(status *models.Status) error {
	if status != nil && !status.Valid() {
		return invalid("unknown status %q", *status)
	}
	return nil
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
