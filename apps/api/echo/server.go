package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/report"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/tokens"
)

type (
	// Deps holds the services the handlers need.
	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Tokens     tokens.Store

		UserSvc       user.Service
		ClassSvc      *classroom.Service
		AssignmentSvc *assignment.Service
		AttendanceSvc *attendance.Service
		ReportSvc     *report.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		address  string
		shutdown chan os.Signal
		deps     *Deps
		app      *echo.Echo
		auth     *jwtAuth
	}
)

var _ Server = (*server)(nil)

// NewServer builds the API server. shutdown, when not nil, receives SIGTERM if a handler
// hits a core shutdown error.
func NewServer(address string, shutdown chan os.Signal, deps *Deps) Server {
	s := &server{
		address:  address,
		shutdown: shutdown,
		deps:     deps,
		app:      echo.New(),
		auth:     newJWTAuth(deps.Conf, deps.Tokens, deps.UserSvc),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf
	debug := conf.Debug

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if conf.Server.BodyLimit != "" {
		s.app.Use(middleware.BodyLimit(conf.Server.BodyLimit))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	authed := []echo.MiddlewareFunc{s.auth.middleware(), s.auth.sessionMiddleware()}

	ag := v1.Group("", authed...)

	registerUserAPI(v1, ag, s.auth, s.deps)
	registerClassRoomAPI(ag, s.deps)
	registerAssignmentAPI(ag, s.deps)
	registerAttendanceAPI(ag, s.deps)
	registerReportAPI(ag, s.deps)
}

func (s *server) signalShutdown() {
	if s.shutdown != nil {
		s.shutdown <- syscall.SIGTERM
	}
}

func (s *server) Start() error {
	return s.app.Start(s.address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
