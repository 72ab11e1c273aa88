package handlers

import (
	"net/http"

	"github.com/gartstein/streamline/internal/streamline/ability"
	"github.com/gartstein/streamline/internal/streamline/auth"
	"github.com/gartstein/streamline/internal/streamline/controller"
	e "github.com/gartstein/streamline/internal/streamline/errors"
	"github.com/gartstein/streamline/internal/streamline/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// Options configures the authentication side of the API. Google is nil when
// Google sign-in is disabled.
type Options struct {
	Issuer        *auth.Issuer
	Sessions      *auth.SessionManager
	Google        *auth.GoogleProvider
	ClientURL     string
	SecureCookies bool
}

// API implements Router for the Streamline JSON API.
type API struct {
	services   *controller.Services
	issuer     *auth.Issuer
	sessions   *auth.SessionManager
	google     *auth.GoogleProvider
	middleware *auth.Middleware
	clientURL  string
	secure     bool
	logger     *zap.Logger
}

// NewAPI wires the REST routes to services. ClientURL defaults to "/".
func NewAPI(services *controller.Services, opts Options, logger *zap.Logger) *API {
	clientURL := opts.ClientURL
	if clientURL == "" {
		clientURL = "/"
	}
	return &API{
		services:   services,
		issuer:     opts.Issuer,
		sessions:   opts.Sessions,
		google:     opts.Google,
		middleware: auth.NewMiddleware(opts.Issuer, opts.Sessions, services.Auth, logger),
		clientURL:  clientURL,
		secure:     opts.SecureCookies,
		logger:     logger.Named("api"),
	}
}

type route struct {
	method  string
	path    string
	handler runtime.HandlerFunc
}

// Register mounts every route on mux.
func (a *API) Register(mux *runtime.ServeMux) error {
	var routes []route
	routes = append(routes, a.authRoutes()...)
	routes = append(routes, crudRoutes[models.Company, models.CompanyUpdate](a, "/api/companies", ability.Company, a.services.Companies, map[string]string{
		"status": "status",
	})...)
	routes = append(routes, crudRoutes[models.Division, models.DivisionUpdate](a, "/api/divisions", ability.Division, a.services.Divisions, map[string]string{
		"status":    "status",
		"companyId": "company_id",
	})...)
	routes = append(routes, crudRoutes[models.Location, models.LocationUpdate](a, "/api/locations", ability.Location, a.services.Locations, map[string]string{
		"status":     "status",
		"companyId":  "company_id",
		"divisionId": "division_id",
	})...)
	routes = append(routes, crudRoutes[models.Contact, models.ContactUpdate](a, "/api/contacts", ability.Contact, a.services.Contacts, map[string]string{
		"status":     "status",
		"companyId":  "company_id",
		"divisionId": "division_id",
		"locationId": "location_id",
	})...)
	routes = append(routes, crudRoutes[models.Contract, models.ContractUpdate](a, "/api/contracts", ability.Contract, a.services.Contracts, map[string]string{
		"status":    "status",
		"companyId": "company_id",
	})...)
	routes = append(routes, a.employeeRoutes()...)
	routes = append(routes, a.userRoutes()...)
	routes = append(routes, a.accessRoutes()...)
	routes = append(routes, a.auditRoutes()...)

	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.path, rt.handler); err != nil {
			return err
		}
	}
	return nil
}

// Wrap authenticates requests before they reach the mux.
func (a *API) Wrap(next http.Handler) http.Handler {
	return a.middleware.Wrap(next)
}

// guard rejects requests whose principal lacks the capability.
func (a *API) guard(action ability.Action, subject ability.Subject, h runtime.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, a.logger, e.ErrUnauthorized)
			return
		}
		if !principal.Can(action, subject) {
			a.logger.Debug("forbidden",
				zap.String("user", principal.Actor()),
				zap.String("action", string(action)),
				zap.String("subject", string(subject)),
			)
			writeError(w, a.logger, e.ErrForbidden)
			return
		}
		h(w, r, params)
	}
}

// authenticated requires a principal but no particular capability.
func (a *API) authenticated(h func(http.ResponseWriter, *http.Request, *auth.Principal)) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		principal, ok := auth.PrincipalFrom(r.Context())
		if !ok {
			writeError(w, a.logger, e.ErrUnauthorized)
			return
		}
		h(w, r, principal)
	}
}
