package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var marshaler = &runtime.JSONBuiltin{}

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", marshaler.ContentType(v))
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = marshaler.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := marshaler.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body required", e.ErrInvalidInput)
		}
		return fmt.Errorf("%w: malformed request body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

// pathID parses the named path parameter as a UUID.
func pathID(params map[string]string, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", e.ErrInvalidInput, name)
	}
	return id, nil
}

// listOptions maps whitelisted query parameters to column filters. Columns
// ending in _id are parsed as UUIDs.
func listOptions(r *http.Request, filters map[string]string) (models.ListOptions, error) {
	q := r.URL.Query()
	opts := models.ListOptions{Filters: map[string]any{}}

	for param, column := range filters {
		value := strings.TrimSpace(q.Get(param))
		if value == "" {
			continue
		}
		if strings.HasSuffix(column, "_id") {
			id, err := uuid.Parse(value)
			if err != nil {
				return opts, fmt.Errorf("%w: invalid %s", e.ErrInvalidInput, param)
			}
			opts.Filters[column] = id
			continue
		}
		opts.Filters[column] = value
	}

	var err error
	if opts.Limit, err = nonNegative(q.Get("limit"), "limit"); err != nil {
		return opts, err
	}
	if opts.Offset, err = nonNegative(q.Get("offset"), "offset"); err != nil {
		return opts, err
	}
	return opts, nil
}

func nonNegative(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s", e.ErrInvalidInput, name)
	}
	return n, nil
}

// mapServiceError maps domain or repository errors to HTTP statuses. Unknown
// errors are logged and hidden behind a generic message.
func mapServiceError(logger *zap.Logger, err error) (int, errorBody) {
	switch {
	case errors.Is(err, e.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{"Invalid credentials"}
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{"unauthorized"}
	case errors.Is(err, e.ErrForbidden):
		return http.StatusForbidden, errorBody{"forbidden"}
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, errorBody{err.Error()}
	case errors.Is(err, e.ErrDuplicate):
		return http.StatusConflict, errorBody{err.Error()}
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, errorBody{err.Error()}
	default:
		logger.Error("Internal server error", zap.Error(err))
		return http.StatusInternalServerError, errorBody{"internal server error"}
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := mapServiceError(logger, err)
	writeJSON(w, status, body)
}
