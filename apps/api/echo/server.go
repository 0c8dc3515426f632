package echoapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/activity"
	"github.com/trezcool/academia/core/chat"
	"github.com/trezcool/academia/core/dashboard"
	"github.com/trezcool/academia/core/role"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/user"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		Session      *session.Adapter
		UserSvc      *user.Service
		RoleSvc      *role.Service
		StudentSvc   *student.Service
		ActivitySvc  *activity.Service
		DashboardSvc *dashboard.Service
		ChatSvc      *chat.Service
		Metrics      http.Handler // optional
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		shutdown chan struct{}
	}
)

func NewServer(deps ServerDeps) *Server {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger()
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		shutdown: make(chan struct{}, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Session.Context(), s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)
	if s.deps.Metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.deps.Metrics))
	}

	registerAuthAPI(s.app.Group("/auth"), s.deps.Session)

	authed := s.app.Group("", requireSession(s.deps.Session.Context()))
	registerDashboardAPI(authed, s.deps.DashboardSvc)
	registerUserAPI(authed, s.deps.UserSvc, s.deps.RoleSvc, s.deps.Session.Context())
	registerStudentAPI(authed, s.deps.StudentSvc)
	registerActivityAPI(authed, s.deps.ActivitySvc)
	registerChatAPI(authed, s.deps.ChatSvc, s.deps.Session.Context())
	registerSettingsAPI(authed, s.deps.UserSvc, s.deps.Session.Context())

	// registered last: it replaces the catch-all the authed group adds for its middleware
	s.app.RouteNotFound("/*", notFound)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "starting server")
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

// ShutdownSignal receives when a handler failed with a shutdown error.
func (s *Server) ShutdownSignal() <-chan struct{} {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- struct{}{}:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

// Pages lists the routes of the application shell.
var Pages = []string{"/dashboard", "/estudiantes", "/actividades", "/crear-actividad", "/chat", "/configuracion", "/usuarios"}

type homeResponse struct {
	App    string   `json:"app"`
	Build  string   `json:"build"`
	State  string   `json:"state"`
	Correo string   `json:"correo,omitempty"`
	Pages  []string `json:"pages"`
}

func (s *Server) home(ctx echo.Context) error {
	sc := s.deps.Session.Context()
	return ctx.JSON(http.StatusOK, homeResponse{
		App:    s.deps.Conf.AppName,
		Build:  s.deps.Conf.Build,
		State:  sc.State().String(),
		Correo: sc.Email(),
		Pages:  Pages,
	})
}

func notFound(ctx echo.Context) error {
	return ctx.JSON(http.StatusNotFound, echo.Map{"error": "página no encontrada", "path": ctx.Request().URL.Path})
}
