package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/akademyx/admissions/core"
	"github.com/akademyx/admissions/core/analytics"
	"github.com/akademyx/admissions/core/application"
	"github.com/akademyx/admissions/core/course"
	"github.com/akademyx/admissions/core/partner"
	"github.com/akademyx/admissions/core/payment"
	"github.com/akademyx/admissions/core/user"
)

type (
	// Deps is everything the API server needs to serve requests.
	Deps struct {
		Conf           *core.Config
		Logger         core.Logger
		ApplicationSvc *application.Service
		PaymentSvc     *payment.Service
		PartnerSvc     *partner.Service
		CourseSvc      *course.Service
		AnalyticsSvc   *analytics.Service
		UserSvc        user.ServiceInterface
		Validate       *validator.Validate
		Translator     ut.Translator
	}

	Server struct {
		addr     string
		deps     *Deps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(addr string, deps *Deps) *Server {
	initAuth(deps.Conf)

	s := &Server{
		addr:     addr,
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerApplicationAPI(v1, jwt, s.deps)
	registerPaymentAPI(v1, jwt, s.deps)
	registerPartnerAPI(v1, jwt, s.deps)
	registerCourseAPI(v1, jwt, s.deps)
	registerAnalyticsAPI(v1, jwt, s.deps)
	registerUserAPI(v1, jwt, s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// signalShutdown initiates a graceful shutdown on unrecoverable errors.
func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Akademyx Admissions API!")
}
