package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

func NewRouter(apiHandler *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("")
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		// browsers refuse credentialed responses with a wildcard origin
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}))

	r.Get("/", apiHandler.RootHandler)
	r.Get("/health", apiHandler.HealthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", apiHandler.APIIndexHandler)

		r.Route("/ai", func(r chi.Router) {
			// Community feed, liked flags need a viewer when one is signed in
			r.With(apiHandler.OptionalAuth).Get("/published-images", apiHandler.PublishedImagesHandler)

			r.Group(func(r chi.Router) {
				r.Use(apiHandler.AuthMiddleware)

				r.Post("/toggle-like", apiHandler.ToggleLikeHandler)

				// Plan-gated routes
				r.Group(func(r chi.Router) {
					r.Use(apiHandler.EntitlementMiddleware)

					r.Post("/generate-article", apiHandler.GenerateArticleHandler)
					r.Post("/generate-blog-title", apiHandler.GenerateBlogTitleHandler)
					r.Post("/generate-image", apiHandler.GenerateImageHandler)
					r.Post("/remove-image-background", apiHandler.RemoveImageBackgroundHandler)
					r.Post("/remove-image-object", apiHandler.RemoveImageObjectHandler)
					r.Post("/resume-review", apiHandler.ResumeReviewHandler)
					r.Get("/user-creations", apiHandler.UserCreationsHandler)
				})
			})
		})
	})

	return r
}
