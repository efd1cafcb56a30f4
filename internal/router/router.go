package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mat-tom-creator/fileledger/internal/config"
	"github.com/mat-tom-creator/fileledger/internal/handler"
	"github.com/mat-tom-creator/fileledger/internal/middleware"
	"github.com/mat-tom-creator/fileledger/internal/model"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	fileHandler *handler.FileHandler,
	transferHandler *handler.TransferHandler,
	auditHandler *handler.AuditHandler,
	adminHandler *handler.AdminHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.Metrics)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(authMiddleware.RequireAuth)

		api.Route("/files", func(files chi.Router) {
			files.Post("/", fileHandler.Register)
			files.Get("/{fileID}", fileHandler.Metadata)
			files.Put("/{fileID}", fileHandler.Update)
			files.Delete("/{fileID}", fileHandler.Delete)
			files.Get("/{fileID}/access", fileHandler.CheckAccess)
			files.Post("/{fileID}/grants", fileHandler.Grant)
			files.Get("/{fileID}/grants", fileHandler.Grants)
			files.Delete("/{fileID}/grants/{granteeID}", fileHandler.Revoke)

			files.Post("/{fileID}/audit", auditHandler.Record)
			files.Get("/{fileID}/audit", auditHandler.Trail)
			files.Get("/{fileID}/audit/verify", auditHandler.Verify)
			files.Get("/{fileID}/audit/{recordID}", auditHandler.Lookup)
		})

		api.Route("/transfers", func(transfers chi.Router) {
			transfers.Post("/", transferHandler.Initiate)
			transfers.Get("/{transferID}", transferHandler.Get)
			transfers.Post("/{transferID}/accept", transferHandler.Accept)
			transfers.Post("/{transferID}/reject", transferHandler.Reject)
			transfers.Post("/{transferID}/cancel", transferHandler.Cancel)
			transfers.Post("/{transferID}/complete", transferHandler.Complete)
			transfers.Post("/{transferID}/dispute", transferHandler.Dispute)
			transfers.With(authMiddleware.RequireRoles(model.RoleAdmin)).Post("/{transferID}/resolve", transferHandler.Resolve)
		})

		api.Get("/users/{userID}/files", fileHandler.UserFiles)
		api.Get("/users/{userID}/transfers", transferHandler.UserTransfers)

		api.Route("/admin", func(admin chi.Router) {
			admin.Get("/settings", adminHandler.Settings)
			admin.With(authMiddleware.RequireRoles(model.RoleAdmin)).Put("/settings", adminHandler.UpdateSettings)
			admin.Get("/roles/{identity}", adminHandler.Roles)
			admin.With(authMiddleware.RequireRoles(model.RoleAdmin)).Post("/roles/{identity}", adminHandler.GrantRole)
			admin.With(authMiddleware.RequireRoles(model.RoleAdmin)).Delete("/roles/{identity}/{role}", adminHandler.RevokeRole)
			admin.With(authMiddleware.RequireRoles(model.RoleAdmin)).Post("/trusted-callers/{identity}", adminHandler.AddTrustedCaller)
			admin.With(authMiddleware.RequireRoles(model.RoleAdmin)).Delete("/trusted-callers/{identity}", adminHandler.RemoveTrustedCaller)
		})
	})

	return r
}
