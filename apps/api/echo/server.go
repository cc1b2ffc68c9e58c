package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/attendance"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/coursework"
	"github.com/trezcool/academia/core/enrollment"
)

type (
	// Deps holds the services exposed by the API.
	Deps struct {
		CourseSvc      *course.Service
		EnrollmentSvc  *enrollment.Service
		CourseworkSvc  *coursework.Service
		AttendanceSvc  *attendance.Service
		DisableReqLogs bool
	}

	Server struct {
		conf     *core.Config
		logger   core.Logger
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(conf *core.Config, logger core.Logger, translator ut.Translator, deps *Deps) *Server {
	s := &Server{
		conf:     conf,
		logger:   logger,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(translator, deps)
	return s
}

func (s *Server) setup(translator ut.Translator, deps *Deps) {
	s.app.HideBanner = true
	s.app.Debug = s.conf.Debug
	s.app.Server.ReadTimeout = s.conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = s.conf.Server.WriteTimeout

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.conf.Debug || s.conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.logger, translator, s.signalShutdown)

	s.app.GET("/", s.home)

	api := s.app.Group("/api")
	auth := authGroups{
		optional: newJWTMiddleware(s.conf, true),
		required: []echo.MiddlewareFunc{newJWTMiddleware(s.conf, false), authenticatedMiddleware()},
	}

	registerCourseAPI(api, auth, deps.CourseSvc, deps.EnrollmentSvc)
	registerLessonAPI(api, auth, deps.CourseSvc)
	registerAssignmentAPI(api, auth, deps.CourseworkSvc)
	registerSubmissionAPI(api, auth, deps.CourseworkSvc)
	registerAttendanceAPI(api, auth, deps.AttendanceSvc)
}

// authGroups holds the middlewares of the routes readable anonymously and of the authenticated ones.
type authGroups struct {
	optional echo.MiddlewareFunc
	required []echo.MiddlewareFunc
}

func (s *Server) Start() {
	s.logger.Info("API listening on " + s.conf.Server.Host)
	if err := s.app.Start(s.conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// Errors receives the listener errors.
func (s *Server) Errors() <-chan error {
	return s.errors
}

// ShutdownSignal receives the OS signals and the shutdown requests raised by handlers.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.conf.AppName+" API!")
}
