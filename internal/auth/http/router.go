package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/medmigrate/internal/auth/service"
	"github.com/aussiebroadwan/medmigrate/internal/auth/store"
	"github.com/aussiebroadwan/medmigrate/pkg/httpx"
	"github.com/aussiebroadwan/medmigrate/pkg/jwtx"
	"github.com/aussiebroadwan/medmigrate/pkg/slogx"

	_ "github.com/aussiebroadwan/medmigrate/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       jwtx.Signer
	limits       httpx.Limits
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store       store.Store
	AuthService *service.AuthService
}

func NewRouter(
	auth *service.AuthService,
	st store.Store,
	signer jwtx.Signer,
	limits httpx.Limits,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		limits:       limits,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		AuthService:  auth,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerCredentials()
	r.registerProtected()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Medical Data Migration API
//	@version		0.1.0
//	@description	Authentication gate for the medical data migration service.
//	@description
//	@description				Register a username and password, log in with the OAuth2 password form to obtain an HS256 access token, then call protected endpoints with it.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/medmigrate
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerCredentials() {
	// POST /register - strict rate limit by IP (account creation)
	r.Mux.Handle("POST /register",
		httpx.Chain(&RegisterHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// POST /login - strict rate limit by IP + username to slow password guessing
	r.Mux.Handle("POST /login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIPAndFormField(r.limits.Strict, "username"),
		),
	)
}

func (r *Router) registerProtected() {
	// Authenticated endpoint - lenient rate limit by subject
	secured := httpx.Chain(PatientsHandler(),
		httpx.AuthnMiddleware(r.AuthService),
		httpx.RateLimitBySubject(r.limits.Lenient),
	)

	r.Mux.Handle("GET /patients", secured)
}

func (r *Router) registerSystem() {
	// "GET /{$}" matches only the root, not every unmatched path.
	r.Mux.Handle("GET /{$}",
		httpx.Chain(IndexHandler(),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)
}
