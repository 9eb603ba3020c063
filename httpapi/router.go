package httpapi

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	goIdentity "github.com/MrEthical07/goIdentity"
	authmw "github.com/MrEthical07/goIdentity/middleware"
)

// RateLimitScope is the limiter scope used for /auth/* requests.
const RateLimitScope = "auth"

// Options configures the router.
type Options struct {
	// AllowedOrigins for CORS. Empty allows any origin.
	AllowedOrigins []string
	// MetricsHandler is mounted on GET /metrics when non-nil.
	MetricsHandler http.Handler
	// RequestTimeout bounds each request. Zero means 30s.
	RequestTimeout time.Duration
	// DisableRateLimit skips the per-IP limiter on /auth/*.
	DisableRateLimit bool
}

// API holds the HTTP handlers for one Engine.
type API struct {
	engine *goIdentity.Engine
	logger *zap.Logger
}

// New builds the API around engine. A nil logger is replaced with a no-op.
func New(engine *goIdentity.Engine, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{engine: engine, logger: logger}
}

// NewRouter is a shorthand for New(engine, logger).Router(opts).
func NewRouter(engine *goIdentity.Engine, logger *zap.Logger, opts Options) http.Handler {
	return New(engine, logger).Router(opts)
}

func (a *API) Router(opts Options) http.Handler {
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(clientContext)

	r.Get("/healthz", a.health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		if !opts.DisableRateLimit {
			r.Use(a.rateLimit(RateLimitScope))
		}
		r.Post("/register", a.register)
		r.Post("/register/verify", a.verifyRegister)
		r.Post("/login", a.login)
		r.Post("/login/google", a.googleLogin)
		r.Post("/password/forgot", a.forgotPassword)
		r.Patch("/password/forgot/verify", a.verifyForgotPassword)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.Guard(a.engine))
		r.Get("/profile", a.getProfile)
		r.Patch("/profile", a.updateProfile)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{Success: false, Message: "method not allowed"})
	})

	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		a.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// clientContext stores the caller IP, user agent and request id for audit
// events.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goIdentity.WithClientIP(r.Context(), clientIP(r))
		ctx = goIdentity.WithUserAgent(ctx, r.UserAgent())
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = goIdentity.WithRequestID(ctx, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP returns the host part of RemoteAddr, which RealIP has already
// rewritten from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
