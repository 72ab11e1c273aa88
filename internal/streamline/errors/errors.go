// Package errors defines the sentinel errors shared by the repository,
// service and transport layers.
package errors

import (
	"fmt"
)

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrDuplicate          = fmt.Errorf("already exists")
	ErrInvalidInput       = fmt.Errorf("invalid input")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUnauthorized       = fmt.Errorf("unauthorized")
	ErrForbidden          = fmt.Errorf("forbidden")
)
