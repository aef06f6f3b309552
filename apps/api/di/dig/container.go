package dig_container

import (
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/lo-maxwell/hkn-rails/apps/api/echo"
	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
	"github.com/lo-maxwell/hkn-rails/core/tour"
	appfs "github.com/lo-maxwell/hkn-rails/fs"
	emailsvc "github.com/lo-maxwell/hkn-rails/services/email"
	logsvc "github.com/lo-maxwell/hkn-rails/services/logger"
	"github.com/lo-maxwell/hkn-rails/services/messenger"
	"github.com/lo-maxwell/hkn-rails/storage/database"
	sqlxrepos "github.com/lo-maxwell/hkn-rails/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Groups     *group.Service
	People     *person.Service
	Slots      *slot.Service
	Events     *event.Service
	Tours      *tour.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newValidator registers the custom tags of every domain package.
func newValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	slot.InitValidators(validate, translator, conf.Tutoring)
	event.InitValidators(validate, translator)
	return validate, translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Groups:     p.Groups,
		People:     p.People,
		Slots:      p.Slots,
		Events:     p.Events,
		Tours:      p.Tours,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxrepos.NewTransactor))
	must(c.Provide(newEmailService))
	must(c.Provide(func(mailSvc core.EmailService, conf *core.Config) event.Messenger {
		return messenger.New(mailSvc, conf)
	}))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewGroupRepository))
	must(c.Provide(sqlxrepos.NewPersonRepository))
	must(c.Provide(sqlxrepos.NewSlotRepository))
	must(c.Provide(sqlxrepos.NewEventRepository))

	// services
	must(c.Provide(group.NewService))
	must(c.Provide(person.NewService))
	must(c.Provide(func(s *person.Service) slot.People { return s }))
	must(c.Provide(func(s *person.Service) event.People { return s }))
	must(c.Provide(slot.NewService))
	must(c.Provide(event.NewService))
	must(c.Provide(tour.NewService))
	must(c.Provide(newServer))

	return c
}

// ParseTemplates loads the embedded email templates; it must run before any mail is sent.
func ParseTemplates() error {
	return core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, false)
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
