// Package server wires the HTTP router: global middleware, the JSON API, the HTML pages
// and the operational endpoints.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/user/cropadvisor-go/docs" // registers the Swagger spec
	"github.com/user/cropadvisor-go/apperror"
	"github.com/user/cropadvisor-go/auth"
	"github.com/user/cropadvisor-go/config"
	"github.com/user/cropadvisor-go/logging"
	"github.com/user/cropadvisor-go/metrics"
	"github.com/user/cropadvisor-go/recommend"
	"github.com/user/cropadvisor-go/users"
	"github.com/user/cropadvisor-go/web"
)

// RequestTimeout bounds every request handled by the router.
const RequestTimeout = 60 * time.Second

// Deps are the constructed handlers the router mounts.
type Deps struct {
	Config    *config.AppConfig
	Sessions  *auth.SessionManager
	Auth      *auth.Handlers
	Users     *users.UserHandlers
	Recommend *recommend.Handlers
	Pages     *web.Pages
}

// NewRouter builds the application router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Chi requires all middleware before any route.
	r.Use(middleware.RequestID)
	r.Use(rememberPeer)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(recoverer)
	r.Use(middleware.Timeout(RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)
	r.Use(d.Sessions.Authenticate)

	// Auth routes. Login and registration are rate limited per connecting address.
	r.Group(func(r chi.Router) {
		if limit := d.Config.Auth.RateLimit; limit > 0 {
			r.Use(httprate.Limit(limit, time.Minute,
				httprate.WithKeyFuncs(peerKey),
				httprate.WithLimitHandler(tooManyRequests),
			))
		}
		r.Post("/register", d.Auth.HandleRegister())
		r.Post("/login", d.Auth.HandleLogin())
	})
	r.Post("/logout", d.Auth.HandleLogout())

	r.Route("/api", func(r chi.Router) {
		r.Post("/detailed-recommend", d.Recommend.HandleRecommend())
		r.Get("/crop-details", d.Recommend.HandleCropDetails())
		r.Get("/dataset-info", d.Recommend.HandleDatasetInfo())

		r.With(auth.RequireAuth).Get("/me", d.Users.HandleGetUserProfile())
	})

	r.Get("/", d.Pages.HandleIndex())
	r.Get("/detailed-recommendations", d.Pages.HandleDetailed())
	r.Handle("/static/*", http.StripPrefix("/static/", web.StaticHandler()))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteError(w, r, apperror.NewNotFoundError("Not found", nil))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		auth.WriteJSON(w, http.StatusMethodNotAllowed, apperror.ErrorResponse{Success: false, Error: "Method not allowed"})
	})

	return r
}

type peerAddrKey struct{}

// rememberPeer keeps the connection's address before RealIP replaces it with a
// forwarded header value.
func rememberPeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), peerAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// peerKey is the rate limit key. X-Forwarded-For and X-Real-IP are client controlled,
// so they never pick the bucket.
func peerKey(r *http.Request) (string, error) {
	addr, ok := r.Context().Value(peerAddrKey{}).(string)
	if !ok {
		addr = r.RemoteAddr
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host, nil
	}
	return addr, nil
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	auth.WriteJSON(w, http.StatusTooManyRequests, apperror.ErrorResponse{Success: false, Error: "Too many requests"})
}

// recoverer turns a handler panic into the standard 500 JSON body.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			logging.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprint(rvr)).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			auth.WriteError(w, r, apperror.NewInternalError("panic", fmt.Errorf("%v", rvr)))
		}()
		next.ServeHTTP(w, r)
	})
}
