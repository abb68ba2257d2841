package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lms/internal/accounts"
	"lms/internal/auth"
	"lms/internal/blob"
	"lms/internal/catalog"
	"lms/internal/config"
	"lms/internal/constants"
	"lms/internal/media"
	"lms/internal/recovery"
)

// Dependencies are the services the HTTP layer routes to. Blobs is nil
// unless the local media backend is active.
type Dependencies struct {
	Database    pinger
	Sessions    *auth.JWTService
	Accounts    *accounts.Service
	Recovery    *recovery.Flow
	Catalog     *catalog.Service
	Coordinator *media.Coordinator
	TempArea    *media.TempArea
	Blobs       *blob.Service
}

type Server struct {
	router *chi.Mux
	config *config.Config
}

func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	ipResolver, err := NewClientIPResolver(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("initializing client IP resolver: %w", err)
	}

	uploads := &uploadStager{
		area:        deps.TempArea,
		coordinator: deps.Coordinator,
		maxBytes:    cfg.Media.MaxUploadBytes,
	}
	cookies := sessionCookies{cfg: cfg.Cookie}

	authHandler := NewAuthHandler(deps.Accounts, deps.Recovery, cookies, uploads)
	userHandler := NewUserHandler(deps.Accounts, deps.Recovery, uploads)
	courseHandler := NewCourseHandler(deps.Catalog, deps.Accounts, uploads)
	healthHandler := NewHealthHandler(deps.Database)

	authMiddleware := NewAuthMiddleware(deps.Sessions, cfg.Cookie.Name)
	jsonBody := maxBodySizeMiddleware(constants.MaxJSONBodyBytes)

	r := chi.NewRouter()
	r.Use(slogRequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.Server.AllowedOrigins))
	r.Use(securityHeadersMiddleware)

	r.Get("/health", healthHandler.Check)
	r.Get(constants.DefaultAvatarPath, serveDefaultAvatar)

	if deps.Blobs != nil {
		mediaHandler := NewMediaHandler(deps.Blobs)
		r.Get("/media/*", mediaHandler.Get)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.With(rateLimit(ipResolver, 10, time.Minute)).Post("/register", authHandler.Register)
			r.With(rateLimit(ipResolver, 10, time.Minute), jsonBody).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(rateLimit(ipResolver, 5, time.Minute), jsonBody).Post("/reset", authHandler.ForgotPassword)
			r.With(rateLimit(ipResolver, 10, time.Minute), jsonBody).Post("/reset/{resetToken}", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Get("/me", userHandler.GetMe)
				r.Put("/me", userHandler.UpdateMe)
				r.With(jsonBody).Post("/change-password", userHandler.ChangePassword)
			})
		})

		r.Route("/courses", func(r chi.Router) {
			r.Get("/", courseHandler.List)
			r.Get("/{courseID}", courseHandler.Lectures)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.RequireAuth)
				r.Post("/", courseHandler.Create)
				r.Delete("/", courseHandler.RemoveLecture)
				r.Put("/{courseID}", courseHandler.Update)
				r.Delete("/{courseID}", courseHandler.Remove)
				r.Post("/{courseID}", courseHandler.AddLecture)
			})
		})
	})

	return &Server{
		router: r,
		config: cfg,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware allows the configured origins plus loopback origins, and
// rejects cross-origin requests from anywhere else.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			if _, ok := allowed[origin]; !ok && !isLoopbackOrigin(origin) {
				writeError(w, http.StatusForbidden, constants.ErrCodeInvalidRequest, "Origin not allowed")
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := u.Hostname()
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func maxBodySizeMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"remote", r.RemoteAddr,
		)
	})
}
