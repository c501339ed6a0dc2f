package api

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/ableconnect/connect-agent/internal/api/handler"
	"github.com/ableconnect/connect-agent/internal/api/middleware"
	"github.com/ableconnect/connect-agent/internal/core/domain"
	"github.com/ableconnect/connect-agent/internal/core/ports"
	"github.com/ableconnect/connect-agent/internal/pkg/metrics"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Session   ports.SessionService
	Listings  ports.ListingService
	Feed      ports.FeedService
	Chat      ports.ChatService
	Directory ports.NameResolver
	Store     ports.LocalStore
	Backend   Pinger
	Tokens    handler.TokenIssuer
	JWTSecret string
	Log       zerolog.Logger
	// Registry receives the HTTP metrics; nil means the default registry.
	Registry  *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if d.Registry != nil {
		registerer, gatherer = d.Registry, d.Registry
	}
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  metrics.Namespace,
		Subsystem:  "http",
		Registerer: registerer,
	}))

	// --- Handlers ---
	sessionHandler := handler.NewSessionHandler(d.Session, d.Tokens)
	listingHandler := handler.NewListingHandler(d.Listings)
	feedHandler := handler.NewFeedHandler(d.Feed)
	chatHandler := handler.NewChatHandler(d.Chat)
	userHandler := handler.NewUserHandler(d.Directory, d.Store)

	// --- Health probes and docs (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(
		handler.Check{Name: "cache", Ping: d.Store.Ping, Required: true},
		handler.Check{Name: "backend", Ping: d.Backend.Ping},
	)
	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – is the cache up? is the backend reachable?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Session (public) ---
	e.POST("/v1/session/register", sessionHandler.Register)
	e.POST("/v1/session/login", sessionHandler.Login)

	// --- Authenticated ---
	v1 := e.Group("/v1", middleware.Auth(d.JWTSecret), middleware.Session(d.Store))
	v1.GET("/session", sessionHandler.Current)
	v1.POST("/session/logout", sessionHandler.Logout)
	v1.PATCH("/profile", sessionHandler.UpdateProfile)
	v1.GET("/users/:id/name", userHandler.Name)
	v1.DELETE("/cache", userHandler.ResetCache)

	clientOnly := middleware.RBAC(domain.RoleClient)
	pwdOnly := middleware.RBAC(domain.RolePWD)

	for prefix, kind := range map[string]domain.ListingKind{"/gigs": domain.KindGig, "/services": domain.KindService} {
		v1.GET(prefix, listingHandler.List(kind))
		v1.POST(prefix, listingHandler.Create(kind), clientOnly)
		v1.PATCH(prefix+"/:id", listingHandler.Update(kind), clientOnly)
	}
	v1.GET("/listings/mine", listingHandler.Mine, clientOnly)
	v1.POST("/listings/sync", listingHandler.Sync, clientOnly)
	v1.POST("/gigs/:id/bids", listingHandler.PlaceBid, pwdOnly)
	v1.POST("/services/:id/bookings", listingHandler.Book, pwdOnly)

	v1.GET("/feed", feedHandler.Feed)
	v1.POST("/feed/posts", feedHandler.CreatePost)
	v1.POST("/feed/posts/:id/like", feedHandler.ToggleLike)
	v1.GET("/feed/posts/:id/comments", feedHandler.Comments)
	v1.POST("/feed/posts/:id/comments", feedHandler.AddComment)

	v1.GET("/chat/conversations", chatHandler.Conversations)
	v1.GET("/chat/:peer/messages", chatHandler.Messages)
	v1.POST("/chat/:peer/messages", chatHandler.Send)

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
