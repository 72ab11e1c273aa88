package handlers

import (
	"context"
	"net/http"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
)

// crudService is the surface shared by the organization services.
type crudService[T any, U any] interface {
	Create(ctx context.Context, item *T) (*T, error)
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, opts models.ListOptions) ([]T, error)
	Update(ctx context.Context, id uuid.UUID, changes *U) (*T, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// crudRoutes exposes list, create, get, update and delete for one resource.
// filters maps query parameters to the columns they narrow.
func crudRoutes[T any, U any](a *API, base string, subject ability.Subject, svc crudService[T, U], filters map[string]string) []route {
	item := base + "/{id}"

	list := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		opts, err := listOptions(r, filters)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		items, err := svc.List(r.Context(), opts)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}

	create := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var in T
		if err := decodeBody(r, &in); err != nil {
			writeError(w, a.logger, err)
			return
		}
		created, err := svc.Create(r.Context(), &in)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}

	get := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		found, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, found)
	}

	update := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		var changes U
		if err := decodeBody(r, &changes); err != nil {
			writeError(w, a.logger, err)
			return
		}
		updated, err := svc.Update(r.Context(), id, &changes)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}

	remove := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.Delete(r.Context(), id); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	return []route{
		{http.MethodGet, base, a.guard(ability.Read, subject, list)},
		{http.MethodPost, base, a.guard(ability.Create, subject, create)},
		{http.MethodGet, item, a.guard(ability.Read, subject, get)},
		{http.MethodPut, item, a.guard(ability.Update, subject, update)},
		{http.MethodPatch, item, a.guard(ability.Update, subject, update)},
		{http.MethodDelete, item, a.guard(ability.Delete, subject, remove)},
	}
}
