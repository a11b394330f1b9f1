// Package router assembles the HTTP API: handlers, authentication and
// request logging middleware, and route registration.
package router

import (
	"net/http"

	"github.com/zkvault/zkvault-server/internal/api/http/handler"
	"github.com/zkvault/zkvault-server/internal/api/http/middleware"
	"github.com/zkvault/zkvault-server/internal/logger"
	"github.com/zkvault/zkvault-server/internal/service"
)

// Router wires services into HTTP routes.
type Router struct {
	authService   *service.Auth
	vaultService  *service.Vault
	breachService *service.BreachRelay
	logger        *logger.Logger
}

// New creates a new Router instance.
func New(
	authService *service.Auth,
	vaultService *service.Vault,
	breachService *service.BreachRelay,
	logger *logger.Logger,
) *Router {
	return &Router{
		authService:   authService,
		vaultService:  vaultService,
		breachService: breachService,
		logger:        logger,
	}
}

// Register builds the full route table. Auth ceremony and token routes
// are public; vault and breach routes require a bearer token.
func (r *Router) Register() http.Handler {
	authHandler := handler.NewAuth(r.authService, r.authService.TokenService(), r.logger)
	vaultHandler := handler.NewVault(r.vaultService, r.authService, r.logger)
	breachHandler := handler.NewBreach(r.breachService, r.logger)

	authenticate := middleware.NewAuthenticate(r.authService.TokenService(), r.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register/start", authHandler.RegisterStart)
	mux.HandleFunc("POST /api/auth/register/complete", authHandler.RegisterComplete)
	mux.HandleFunc("POST /api/auth/login/start", authHandler.LoginStart)
	mux.HandleFunc("POST /api/auth/login/complete", authHandler.LoginComplete)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/revoke", authHandler.Revoke)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/vault/manifest", vaultHandler.Manifest)
	protected.HandleFunc("POST /api/vault/items/fetch", vaultHandler.FetchItems)
	protected.HandleFunc("PUT /api/vault/items", vaultHandler.SaveItems)
	protected.HandleFunc("DELETE /api/vault/items", vaultHandler.DeleteItems)
	protected.HandleFunc("POST /api/vault/rotate/start", vaultHandler.RotateStart)
	protected.HandleFunc("POST /api/vault/rotate", vaultHandler.RotateComplete)
	protected.HandleFunc("GET /api/breach/check", breachHandler.Check)

	guarded := authenticate.Wrap(protected)
	mux.Handle("/api/vault/", guarded)
	mux.Handle("/api/breach/", guarded)

	wrapped := middleware.NewRecovery(r.logger).Wrap(mux)
	wrapped = middleware.NewLogging(r.logger).Wrap(wrapped)

	return wrapped
}
