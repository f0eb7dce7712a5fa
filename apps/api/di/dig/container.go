package dig_container

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/KhanhMinhDz/CourseHub-Project/apps/api/echo"
	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/assignment"
	"github.com/KhanhMinhDz/CourseHub-Project/core/attendance"
	"github.com/KhanhMinhDz/CourseHub-Project/core/classroom"
	"github.com/KhanhMinhDz/CourseHub-Project/core/report"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	emailsvc "github.com/KhanhMinhDz/CourseHub-Project/services/email"
	logsvc "github.com/KhanhMinhDz/CourseHub-Project/services/logger"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database"
	inmemdb "github.com/KhanhMinhDz/CourseHub-Project/storage/database/inmem"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/database/sqlxrepos"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/files"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/tokens"
)

const inmemEngine = "inmem"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is the persistence layer selected by the database engine setting.
type Storage struct {
	dig.Out

	DB          io.Closer
	Tx          core.TxRunner
	Users       user.Repository
	ClassRooms  classroom.Repository
	Assignments assignment.Repository
	Attendance  attendance.Repository
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// ServerParams gathers what the API server is built from.
type ServerParams struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator
	Tokens     tokens.Store
	Shutdown   chan os.Signal

	UserSvc       user.Service
	ClassSvc      *classroom.Service
	AssignmentSvc *assignment.Service
	AttendanceSvc *attendance.Service
	ReportSvc     *report.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newDB creates the database if needed, opens it and applies pending migrations.
func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal("setting up database", err)
	}
	return db
}

// newStorage keeps everything in memory when the engine is "inmem", which is only allowed in debug mode.
func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == inmemEngine {
		if !conf.Debug {
			loggerParam.Logger.Fatal("the in-memory database is for debug runs only")
		}
		loggerParam.Logger.Warn("using the in-memory database: data is lost on shutdown")
		db := inmemdb.Open()
		return Storage{
			DB:          closerFunc(func() error { return nil }),
			Tx:          db,
			Users:       inmemdb.NewUserRepository(db),
			ClassRooms:  inmemdb.NewClassRoomRepository(db),
			Assignments: inmemdb.NewAssignmentRepository(db),
			Attendance:  inmemdb.NewAttendanceRepository(db),
		}
	}

	db := newDB(conf, loggerParam)
	return Storage{
		DB:          db,
		Tx:          database.NewTxRunner(db),
		Users:       sqlxrepos.NewUserRepository(db),
		ClassRooms:  sqlxrepos.NewClassRoomRepository(db),
		Assignments: sqlxrepos.NewAssignmentRepository(db),
		Attendance:  sqlxrepos.NewAttendanceRepository(db),
	}
}

func newFileStore(conf *core.Config) (core.FileStore, error) {
	return files.NewLocalStore(conf)
}

func newValidate(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newShutdownChan() chan os.Signal {
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	return shutdown
}

func newClassRoomService(
	repo classroom.Repository,
	tx core.TxRunner,
	usrSvc user.Service,
	assignments assignment.Repository,
	store core.FileStore,
	logger core.Logger,
) *classroom.Service {
	return classroom.NewService(repo, tx, usrSvc, assignments, store, logger)
}

func newAssignmentService(
	repo assignment.Repository,
	tx core.TxRunner,
	classes *classroom.Service,
	usrSvc user.Service,
	store core.FileStore,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *assignment.Service {
	return assignment.NewService(repo, tx, classes, usrSvc, store, mailSvc, logger, conf)
}

func newAttendanceService(
	repo attendance.Repository,
	tx core.TxRunner,
	classes *classroom.Service,
	classRepo classroom.Repository,
) *attendance.Service {
	return attendance.NewService(repo, tx, classes, classRepo)
}

func newReportService(classes *classroom.Service, att *attendance.Service, assignments assignment.Repository) *report.Service {
	return report.NewService(classes, att, assignments)
}

func newServer(p ServerParams) echoapi.Server {
	return echoapi.NewServer(p.Conf.Server.Address, p.Shutdown, &echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Tokens:        p.Tokens,
		UserSvc:       p.UserSvc,
		ClassSvc:      p.ClassSvc,
		AssignmentSvc: p.AssignmentSvc,
		AttendanceSvc: p.AttendanceSvc,
		ReportSvc:     p.ReportSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newFileStore))
	must(c.Provide(tokens.NewStore))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidate))
	must(c.Provide(newShutdownChan))

	must(c.Provide(user.NewService))
	must(c.Provide(newClassRoomService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(newAttendanceService))
	must(c.Provide(newReportService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
