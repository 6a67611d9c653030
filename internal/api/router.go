package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/hhi-dashboard/api/internal/api/handlers"
	mw "github.com/hhi-dashboard/api/internal/api/middleware"
	"github.com/hhi-dashboard/api/internal/permissions"
)

type Dependencies struct {
	JWTSecret   []byte
	CORSOrigins []string
	RateLimiter *mw.RateLimiter
	// Done stops background middleware work such as limiter sweeping.
	Done <-chan struct{}

	Health        *handlers.HealthHandler
	Webhook       *handlers.WebhookHandler
	Communication *handlers.CommunicationHandler
	Projects      *handlers.ProjectsHandler
	Stages        *handlers.StagesHandler
	Users         *handlers.UsersHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins))
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Handler(dep.Done))
	}
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.Health.Liveness)
	r.Get("/readyz", dep.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	r.Route("/api", func(api chi.Router) {
		// Graph cannot send bearer tokens; notifications are authenticated by clientState.
		api.Post("/webhooks/onedrive", dep.Webhook.Receive)
		api.Get("/webhooks/onedrive", dep.Webhook.Status)

		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.JWTSecret))

			protected.Route("/communication", func(cr chi.Router) {
				cr.With(mw.RequirePermission(permissions.CommunicationRead)).Get("/", dep.Communication.ListTemplates)
				cr.With(mw.RequirePermission(permissions.CommunicationSend)).Post("/", dep.Communication.Send)
				cr.With(mw.RequirePermission(permissions.TemplatesWrite)).Put("/", dep.Communication.UpdateTemplate)
			})

			protected.Route("/projects", func(pr chi.Router) {
				read := pr.With(mw.RequirePermission(permissions.ProjectsRead))
				write := pr.With(mw.RequirePermission(permissions.ProjectsWrite))

				read.Get("/", dep.Projects.List)
				write.Post("/", dep.Projects.Create)
				read.Get("/{id}", dep.Projects.Get)
				write.Put("/{id}", dep.Projects.Update)
				pr.With(mw.RequirePermission(permissions.ProjectsDeactivate)).Delete("/{id}", dep.Projects.Delete)
				pr.With(mw.RequirePermission(permissions.ProjectsStage)).Put("/{id}/stage", dep.Projects.OverrideStage)
				read.Get("/{id}/activities", dep.Projects.Activities)
				read.Get("/{id}/notifications", dep.Projects.Notifications)
				pr.With(mw.RequirePermission(permissions.CommunicationSend)).Post("/{id}/notifications", dep.Projects.SendNotification)
				write.Patch("/{id}/notifications/{notificationId}/status", dep.Projects.UpdateNotificationStatus)
				read.Get("/{id}/onedrive", dep.Projects.OneDrive)
				pr.With(mw.RequirePermission(permissions.IntegrationsManage)).Post("/{id}/onedrive", dep.Projects.ProvisionOneDrive)
			})

			protected.Route("/stages", func(sr chi.Router) {
				sr.With(mw.RequirePermission(permissions.ProjectsRead)).Get("/", dep.Stages.List)
				sr.With(mw.RequirePermission(permissions.StagesWrite)).Put("/{stage}", dep.Stages.Update)
			})

			protected.Route("/users", func(ur chi.Router) {
				ur.Get("/me", dep.Users.Me)
				ur.Get("/me/preferences", dep.Users.GetPreferences)
				ur.Put("/me/preferences", dep.Users.UpdatePreferences)
				ur.With(mw.RequirePermission(permissions.UsersRead)).Get("/", dep.Users.List)
				ur.With(mw.RequirePermission(permissions.UsersManage)).Put("/{id}/role", dep.Users.UpdateRole)
			})
		})
	})

	return r
}
