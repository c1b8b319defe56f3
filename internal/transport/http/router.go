package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"reunion_archive/internal/handler"
	"reunion_archive/internal/httputil"
	authmw "reunion_archive/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	GroupHandler        *handler.GroupHandler
	DirectoryHandler    *handler.DirectoryHandler
	TimelineHandler     *handler.TimelineHandler
	PhotoHandler        *handler.PhotoHandler
	StoryHandler        *handler.StoryHandler
	CommentHandler      *handler.CommentHandler
	MediaHandler        *handler.MediaHandler
	NotificationHandler *handler.NotificationHandler
	AdminHandler        *handler.AdminHandler

	Users  authmw.UserLoader
	Groups authmw.MembershipChecker

	JWTSecret      string
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public routes - no authentication required
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
	})

	// Protected routes - require authentication
	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))
		r.Use(authmw.LoadUser(cfg.Users))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)
		r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", cfg.NotificationHandler.ListDevices)
			r.Post("/", cfg.NotificationHandler.RegisterToken)
			r.Delete("/", cfg.NotificationHandler.RemoveToken)
		})

		// Direct-to-R2 uploads
		r.Post("/media/audio/presign", cfg.MediaHandler.PresignAudioUpload)
		r.Post("/media/images/presign", cfg.MediaHandler.PresignImageUpload)

		r.Get("/groups", cfg.GroupHandler.List)
		r.Post("/groups", cfg.GroupHandler.Create)

		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Use(authmw.RequireGroupMember(cfg.Groups))

			r.Get("/", cfg.GroupHandler.Get)
			r.Patch("/", cfg.GroupHandler.Update)
			r.Post("/logo", cfg.GroupHandler.UploadLogo)
			r.Post("/members", cfg.GroupHandler.AddMember)
			r.Delete("/members/{userID}", cfg.GroupHandler.RemoveMember)

			r.Route("/directory", func(r chi.Router) {
				r.Get("/", cfg.DirectoryHandler.List)
				r.Post("/", cfg.DirectoryHandler.Create)
				r.Get("/{memberID}", cfg.DirectoryHandler.Get)
				r.Patch("/{memberID}", cfg.DirectoryHandler.Update)
				r.Delete("/{memberID}", cfg.DirectoryHandler.Delete)
			})

			r.Route("/events", func(r chi.Router) {
				r.Get("/", cfg.TimelineHandler.List)
				r.Post("/", cfg.TimelineHandler.Create)
				r.Get("/{eventID}", cfg.TimelineHandler.Get)
				r.Patch("/{eventID}", cfg.TimelineHandler.Update)
				r.Delete("/{eventID}", cfg.TimelineHandler.Delete)
			})

			r.Route("/photos", func(r chi.Router) {
				r.Get("/", cfg.PhotoHandler.List)
				r.Post("/", cfg.PhotoHandler.Upload)
				r.Delete("/{photoID}", cfg.PhotoHandler.Delete)
			})

			r.Route("/stories", func(r chi.Router) {
				r.Get("/", cfg.StoryHandler.List)
				r.Post("/", cfg.StoryHandler.Create)

				r.Route("/{storyID}", func(r chi.Router) {
					r.Get("/", cfg.StoryHandler.Get)
					r.Patch("/", cfg.StoryHandler.Update)
					r.Delete("/", cfg.StoryHandler.Delete)

					r.Get("/comments", cfg.CommentHandler.List)
					r.Post("/comments", cfg.CommentHandler.Create)
					r.Patch("/comments/{commentID}", cfg.CommentHandler.Update)
					r.Delete("/comments/{commentID}", cfg.CommentHandler.Delete)
					r.Post("/comments/{commentID}/like", cfg.CommentHandler.ToggleLike)
				})
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authmw.RequireAdmin)

			r.Get("/users", cfg.AdminHandler.ListUsers)
			r.Patch("/users/{userID}/role", cfg.AdminHandler.SetRole)
			r.Delete("/comments/{commentID}", cfg.AdminHandler.DeleteComment)
			r.Get("/stats", cfg.AdminHandler.Stats)
		})
	})

	return r
}
