package handlers

import (
	"net/http"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/google/uuid"
)

type groupRequest struct {
	models.PermissionGroup
	PermissionIDs []uuid.UUID `json:"permissionIds"`
}

type groupUpdateRequest struct {
	models.PermissionGroupUpdate
	PermissionIDs *[]uuid.UUID `json:"permissionIds"`
}

type roleRequest struct {
	models.Role
	GroupIDs []uuid.UUID `json:"groupIds"`
}

type roleUpdateRequest struct {
	models.RoleUpdate
	GroupIDs *[]uuid.UUID `json:"groupIds"`
}

var auditFilters = map[string]string{
	"resource":   "resource",
	"resourceId": "resource_id",
	"action":     "action",
}

func (a *API) accessRoutes() []route {
	svc := a.services.Access

	listPermissions := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		permissions, err := svc.ListPermissions(r.Context())
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, permissions)
	}

	createPermission := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var in models.Permission
		if err := decodeBody(r, &in); err != nil {
			writeError(w, a.logger, err)
			return
		}
		permission, err := svc.CreatePermission(r.Context(), &in)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, permission)
	}

	deletePermission := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.DeletePermission(r.Context(), id); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	listGroups := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		groups, err := svc.ListGroups(r.Context())
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	}

	createGroup := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var req groupRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		req.PermissionGroup.Permissions = nil
		group, err := svc.CreateGroup(r.Context(), &req.PermissionGroup, req.PermissionIDs)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, group)
	}

	getGroup := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		group, err := svc.GetGroup(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, group)
	}

	updateGroup := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		var req groupUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		group, err := svc.UpdateGroup(r.Context(), id, &req.PermissionGroupUpdate, req.PermissionIDs)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, group)
	}

	deleteGroup := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.DeleteGroup(r.Context(), id); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	listRoles := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		roles, err := svc.ListRoles(r.Context())
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, roles)
	}

	createRole := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		var req roleRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		req.Role.Groups = nil
		role, err := svc.CreateRole(r.Context(), &req.Role, req.GroupIDs)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, role)
	}

	getRole := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		role, err := svc.GetRole(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	}

	updateRole := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		var req roleUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, a.logger, err)
			return
		}
		role, err := svc.UpdateRole(r.Context(), id, &req.RoleUpdate, req.GroupIDs)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, role)
	}

	deleteRole := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		if err := svc.DeleteRole(r.Context(), id); err != nil {
			writeError(w, a.logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}

	rolePermissions := func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		id, err := pathID(params, "id")
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		names, err := svc.RolePermissions(r.Context(), id)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, names)
	}

	return []route{
		{http.MethodGet, "/api/permissions", a.guard(ability.Read, ability.Permission, listPermissions)},
		{http.MethodPost, "/api/permissions", a.guard(ability.Create, ability.Permission, createPermission)},
		{http.MethodDelete, "/api/permissions/{id}", a.guard(ability.Delete, ability.Permission, deletePermission)},

		{http.MethodGet, "/api/permission-groups", a.guard(ability.Read, ability.Permission, listGroups)},
		{http.MethodPost, "/api/permission-groups", a.guard(ability.Create, ability.Permission, createGroup)},
		{http.MethodGet, "/api/permission-groups/{id}", a.guard(ability.Read, ability.Permission, getGroup)},
		{http.MethodPut, "/api/permission-groups/{id}", a.guard(ability.Update, ability.Permission, updateGroup)},
		{http.MethodDelete, "/api/permission-groups/{id}", a.guard(ability.Delete, ability.Permission, deleteGroup)},

		{http.MethodGet, "/api/roles", a.guard(ability.Read, ability.Role, listRoles)},
		{http.MethodPost, "/api/roles", a.guard(ability.Create, ability.Role, createRole)},
		{http.MethodGet, "/api/roles/{id}", a.guard(ability.Read, ability.Role, getRole)},
		{http.MethodPut, "/api/roles/{id}", a.guard(ability.Update, ability.Role, updateRole)},
		{http.MethodDelete, "/api/roles/{id}", a.guard(ability.Delete, ability.Role, deleteRole)},
		{http.MethodGet, "/api/roles/{id}/permissions", a.guard(ability.Read, ability.Role, rolePermissions)},
	}
}

func (a *API) auditRoutes() []route {
	list := func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		opts, err := listOptions(r, auditFilters)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		logs, err := a.services.Audit.List(r.Context(), opts)
		if err != nil {
			writeError(w, a.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, logs)
	}

	return []route{
		{http.MethodGet, "/api/audit-logs", a.guard(ability.Read, ability.AuditLog, list)},
	}
}
