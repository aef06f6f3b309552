package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
	appfs "github.com/lo-maxwell/hkn-rails/fs"
	emailsvc "github.com/lo-maxwell/hkn-rails/services/email"
	logsvc "github.com/lo-maxwell/hkn-rails/services/logger"
	"github.com/lo-maxwell/hkn-rails/services/messenger"
	"github.com/lo-maxwell/hkn-rails/storage/database"
	sqlxrepos "github.com/lo-maxwell/hkn-rails/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(logger, err)
	defer func() { _ = db.Close() }()

	errAndDie(logger, core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, false))

	// set up services
	validate, translator := validator.New(), core.NewTranslator()
	core.InitValidators(validate, translator)
	slot.InitValidators(validate, translator, conf.Tutoring)
	event.InitValidators(validate, translator)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	tx := sqlxrepos.NewTransactor(db)
	groups := group.NewService(sqlxrepos.NewGroupRepository(db), validate)
	people := person.NewService(sqlxrepos.NewPersonRepository(db), groups, validate)

	// start CLI
	cli := commandLine{
		conf:   conf,
		db:     db.DB,
		out:    os.Stdout,
		groups: groups,
		people: people,
		slots:  slot.NewService(sqlxrepos.NewSlotRepository(db), tx, people, validate),
		events: event.NewService(
			sqlxrepos.NewEventRepository(db), tx, people, messenger.New(mailSvc, conf), logger, conf, validate,
		),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
