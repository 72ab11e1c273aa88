package handlers

import (
	"net/http"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/controller"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
)

type employeeRequest struct {
	models.Employee
	Account *controller.AccountInput `json:"account"`
}

type employeeUpdateRequest struct {
	models.EmployeeUpdate
	Account *controller.AccountInput `json:"account"`
}

type locationAssignment struct {
	LocationID uuid.UUID `json:"locationId"`
}

var employeeFilters = map[string]string{
	"status":     "status",
	"companyId":  "company_id",
	"divisionId": "division_id",
}

var userFilters = map[string]string{
	"status": "status",
	"roleId": "role_id",
}

// requireUserAccess checks the User capabilities needed to write an
// employee's login account alongside the employee.
func (a *API) requireUserAccess(r *http.Request, actions ...ability.Action) error {
	principal, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		return e.ErrUnauthorized
	}
	for _, action := range actions {
		if !principal.Can(action, ability.User) {
			return e.ErrForbidden
		}
	}
	return nil
}

func (a *API) employeeRoutes() []route {
	svc := a.services.Employees

	list := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		opts, err := listOptions(r, employeeFilters)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		employees, err := svc.List(r.Context(), opts)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, employees)
	}

	create := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var req employeeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		req.Employee.User = nil
		req.Employee.Locations = nil
		if req.Account != nil {
			if err := a.requireUserAccess(r, ability.Create); err != nil {
				writeError(w, a.logger, err)
				return
			}
		}
		employee, err := svc.Create(r.Context(), &req.Employee, req.Account)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, employee)
	}

	get := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		employee, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, employee)
	}

	update := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		var req employeeUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		// An account update may also create the login.
		if req.Account != nil {
			if err := a.requireUserAccess(r, ability.Create, ability.Update); err != nil {
				writeError(w, a.logger, err)
				return
			}
		}
		employee, err := svc.Update(r.Context(), id, &req.EmployeeUpdate, req.Account)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, employee)
	}

	deactivate := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	locations := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		assigned, err := svc.Locations(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, assigned)
	}

	assign := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		var req locationAssignment
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.AssignLocation(r.Context(), id, req.LocationID); err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, req)
	}

	unassign := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		locationID, err := pathID(params, "locationId")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.UnassignLocation(r.Context(), id, locationID); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	const base, item = "/api/employees", "/api/employees/{id}"
	return []route{
		{http.MethodGet, base, a.guard(ability.Read, ability.Employee, list)},
		{http.MethodPost, base, a.guard(ability.Create, ability.Employee, create)},
		{http.MethodGet, item, a.guard(ability.Read, ability.Employee, get)},
		{http.MethodPut, item, a.guard(ability.Update, ability.Employee, update)},
		{http.MethodPatch, item, a.guard(ability.Update, ability.Employee, update)},
		{http.MethodDelete, item, a.guard(ability.Delete, ability.Employee, deactivate)},
		{http.MethodGet, item + "/locations", a.guard(ability.Read, ability.Employee, locations)},
		{http.MethodPost, item + "/locations", a.guard(ability.Update, ability.Employee, assign)},
		{http.MethodDelete, item + "/locations/{locationId}", a.guard(ability.Update, ability.Employee, unassign)},
	}
}

func (a *API) userRoutes() []route {
	svc := a.services.Users

	list := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		opts, err := listOptions(r, userFilters)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		users, err := svc.List(r.Context(), opts)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}

	create := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var in controller.UserInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, a.logger, err)
			return
		}
		user, err := svc.Create(r.Context(), &in)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}

	get := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		user, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}

	update := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		var in controller.UserInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, a.logger, err)
			return
		}
		user, err := svc.Update(r.Context(), id, &in)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}

	deactivate := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	const base, item = "/api/users", "/api/users/{id}"
	return []route{
		{http.MethodGet, base, a.guard(ability.Read, ability.User, list)},
		{http.MethodPost, base, a.guard(ability.Create, ability.User, create)},
		{http.MethodGet, item, a.guard(ability.Read, ability.User, get)},
		{http.MethodPut, item, a.guard(ability.Update, ability.User, update)},
		{http.MethodPatch, item, a.guard(ability.Update, ability.User, update)},
		{http.MethodDelete, item, a.guard(ability.Delete, ability.User, deactivate)},
	}
}
