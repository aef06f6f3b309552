package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/event"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
	"github.com/lo-maxwell/hkn-rails/storage/database"
)

var (
	migrateFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	db     *sql.DB
	out    io.Writer
	groups *group.Service
	people *person.Service
	slots  *slot.Service
	events *event.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, redo, version, ...)")
	fmt.Fprintln(cli.out, "  addperson -name NAME -username USERNAME -email EMAIL [-admin] - create a person")
	fmt.Fprintln(cli.out, "  token -username USERNAME - print an API token for a person")
	fmt.Fprintln(cli.out, "  assign -slot SLOT_ID -tutor USERNAME - assign a tutor to an office hours slot")
	fmt.Fprintln(cli.out, "  notify - send the reminders of the events starting soon")
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addPersonCmd := cli.newFlagSet("addperson")
	addPersonName := addPersonCmd.String("name", "", "The person's full name.")
	addPersonUname := addPersonCmd.String("username", "", "The person's username.")
	addPersonEmail := addPersonCmd.String("email", "", "The person's email.")
	addPersonAdmin := addPersonCmd.Bool("admin", false, "Add the person to the admin group.")

	tokenCmd := cli.newFlagSet("token")
	tokenUname := tokenCmd.String("username", "", "The person's username.")

	assignCmd := cli.newFlagSet("assign")
	assignSlot := assignCmd.String("slot", "", "The slot ID.")
	assignTutor := assignCmd.String("tutor", "", "The tutor's username.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addperson":
		if err := addPersonCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addPersonName == "" || *addPersonUname == "" || *addPersonEmail == "" {
			addPersonCmd.Usage()
			return errHelp
		}
		return cli.addPerson(*addPersonName, *addPersonUname, *addPersonEmail, *addPersonAdmin)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenUname == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenUname)
	case "assign":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *assignSlot == "" || *assignTutor == "" {
			assignCmd.Usage()
			return errHelp
		}
		return cli.assign(*assignSlot, *assignTutor)
	case "notify":
		return cli.notify()
	default:
		cli.printUsage()
		return errHelp
	}
}
