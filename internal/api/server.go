// Package api is the HTTP surface of the web UI: task and reminder CRUD,
// settings, manual notification triggers and the static frontend.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/directory"
	"github.com/gandash/dash/internal/logger"
	"github.com/gandash/dash/internal/service"
	"github.com/gandash/dash/internal/store"
)

// Checker runs one pass of the notification checks on demand.
type Checker interface {
	RunAllChecks(ctx context.Context) error
}

type Deps struct {
	Tasks     *service.TaskService
	Reminders *service.ReminderService
	Settings  *service.SettingsService
	People    *directory.Directory
	Checker   Checker
	// Wake, if set, asks the scheduler for an early check after a task
	// with notifications enabled is created.
	Wake func()
}

type Options struct {
	CORSAllowedOrigins string
	StaticDir          string
	// Registry enables the HTTP metrics and /metrics when set.
	Registry *prometheus.Registry
}

type Server struct {
	echo *echo.Echo
	log  *logger.Logger
	deps Deps
}

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func newValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := clock.ParseHHMM(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

func New(deps Deps, opts Options, log *logger.Logger) *Server {
	e := echo.New()
	e.Validator = newValidator()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		log:  log.WithComponent("api"),
		deps: deps,
	}
	e.HTTPErrorHandler = customErrorHandler(s.log)

	s.setupMiddleware(opts)
	if opts.Registry != nil {
		s.setupMetrics(opts.Registry)
	}
	s.setupRoutes()
	if opts.StaticDir != "" {
		s.setupStatic(opts.StaticDir)
	}
	return s
}

func (s *Server) setupMiddleware(opts Options) {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.New().String()
		},
	}))

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			fields := []interface{}{
				"method", values.Method,
				"uri", values.URI,
				"status", values.Status,
				"latency_ms", float64(values.Latency.Nanoseconds()) / 1000000,
				"remote_ip", values.RemoteIP,
				"request_id", values.RequestID,
			}

			if values.Error != nil {
				fields = append(fields, "error", values.Error.Error())
				s.log.Errorw("HTTP request failed", fields...)
			} else {
				s.log.Debugw("HTTP request", fields...)
			}
			return nil
		},
	}))

	origins := strings.Split(opts.CORSAllowedOrigins, ",")
	if opts.CORSAllowedOrigins == "" {
		origins = []string{"*"}
	}
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", s.healthCheck)

	tasks := api.Group("/tasks")
	tasks.GET("", s.listTasks)
	tasks.POST("", s.createTask)
	tasks.GET("/:id", s.getTask)
	tasks.PATCH("/:id", s.updateTask)
	tasks.DELETE("/:id", s.deleteTask)
	tasks.POST("/:id/nudge", s.nudgeTask)
	tasks.POST("/:id/remind", s.remindTask)

	reminders := api.Group("/reminders")
	reminders.GET("", s.listReminders)
	reminders.POST("", s.createReminder)
	reminders.PATCH("/:id", s.updateReminder)
	reminders.DELETE("/:id", s.deleteReminder)

	api.GET("/people", s.listPeople)
	api.GET("/settings", s.getSettings)
	api.POST("/settings", s.updateSettings)
	api.POST("/notifications/check", s.triggerCheck)
}

// setupStatic serves the frontend and falls back to its index.html for
// client-side routes.
func (s *Server) setupStatic(root string) {
	s.echo.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Root:  root,
		HTML5: true,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return strings.HasPrefix(p, "/api/") || p == "/metrics"
		},
	}))
}

func (s *Server) setupMetrics(registry *prometheus.Registry) {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dash_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dash_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(requestsTotal, requestDuration)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else {
					status = statusFor(err)
				}
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}

// ServeHTTP lets the server be mounted in tests and other muxes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start(address string) error {
	s.log.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Infow("Shutting down server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verrs),
		errors.Is(err, service.ErrInvalidSetting),
		errors.Is(err, service.ErrNoAssignee),
		errors.Is(err, service.ErrUnknownAssignee):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func customErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  string
		)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		} else {
			code = statusFor(err)
			msg = err.Error()
		}

		if code == http.StatusInternalServerError {
			log.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
			msg = http.StatusText(code)
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, map[string]string{"error": msg})
			}
			if err != nil {
				log.Errorw("Error sending response", "error", err)
			}
		}
	}
}
