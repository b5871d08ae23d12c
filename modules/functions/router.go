package functions

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/storefront/handler"
	"github.com/dmitrymomot/storefront/pkg/clientip"
	"github.com/dmitrymomot/storefront/pkg/httpserver"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/ratelimiter"
	"github.com/dmitrymomot/storefront/pkg/requestid"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services the functions router mounts.
// Each service is optional and is only mounted when provided.
type RouterOptions struct {
	OTP           Mountable
	Notifications Mountable
	Uploads       Mountable

	// APIKey guards the notification and upload services.
	APIKey string
	// AllowedOrigins defaults to "*".
	AllowedOrigins []string
	// Limiter, when set, throttles /otp per client IP.
	Limiter ratelimiter.Limiter
	// IPHeaders overrides the proxy headers trusted for the client address.
	IPHeaders []string
	// Readiness checks reported by /readyz.
	Readiness        []httpserver.Check
	ReadinessTimeout time.Duration

	Logger *slog.Logger
}

// Router builds the HTTP surface of the storefront functions.
//
//	r := functions.Router(functions.RouterOptions{
//	    OTP:           functions.NewOTPService(otpSvc, errorHandler),
//	    Notifications: functions.NewNotificationService(gateway, errorHandler),
//	    APIKey:        cfg.APIKey,
//	})
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := opts.ReadinessTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	r := chi.NewRouter()
	r.Use(
		clientip.Middleware(opts.IPHeaders...),
		requestid.Middleware,
		middleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestid.Header, APIKeyHeader},
			ExposedHeaders:   []string{requestid.Header, "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.ErrNotFound).Render(w, r)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = handler.JSONError(handler.ErrMethodNotAllowed).Render(w, r)
	})

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(log, timeout, opts.Readiness...))

	if opts.OTP != nil {
		r.Route("/otp", func(otp chi.Router) {
			if opts.Limiter != nil {
				otp.Use(ratelimiter.Middleware(opts.Limiter, ratelimiter.ByIP(), log))
			}
			otp.Mount("/", opts.OTP.Handle())
		})
	}

	r.Group(func(protected chi.Router) {
		protected.Use(RequireAPIKey(opts.APIKey))
		if opts.Notifications != nil {
			protected.Mount("/notifications", opts.Notifications.Handle())
		}
		if opts.Uploads != nil {
			protected.Mount("/uploads", opts.Uploads.Handle())
		}
	})

	return r
}
