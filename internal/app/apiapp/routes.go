package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	assignmentssvc "github.com/ivankudzin/giftexchange/internal/services/assignments"
	authsvc "github.com/ivankudzin/giftexchange/internal/services/auth"
	"github.com/ivankudzin/giftexchange/internal/transport/http/handlers"
)

type Dependencies struct {
	Assignments *assignmentssvc.Service
	JWT         *authsvc.JWTManager
	Health      *handlers.HealthHandler
	Logger      *zap.Logger
}

// NewRouter returns the full admin API with middlewares applied.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	ApplyMiddlewares(r, deps.Logger)
	RegisterRoutes(r, deps)
	return r
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := deps.Health
	if healthHandler == nil {
		healthHandler = handlers.NewHealthHandler()
	}
	assignmentsHandler := handlers.NewAssignmentsHandler(deps.Assignments)
	authMW := AuthMiddleware(deps.JWT, deps.Logger)
	adminRoleMW := RequireRole(authsvc.RoleOwner, authsvc.RoleModerator)

	r.Get("/healthz", healthHandler.Handle)

	r.Route("/v1/admin/collections/{collectionID}/assignments", func(r chi.Router) {
		r.Use(authMW, adminRoleMW)
		r.Get("/", assignmentsHandler.List)
		r.Post("/generate", assignmentsHandler.Generate)
		r.Post("/clear", assignmentsHandler.Clear)
		r.Post("/reconcile", assignmentsHandler.Reconcile)
		r.Post("/send-out", assignmentsHandler.SendOut)
		r.Get("/status", assignmentsHandler.Status)
		r.Patch("/{assignmentID}", assignmentsHandler.Update)
		r.Delete("/{assignmentID}", assignmentsHandler.Delete)
	})
}
