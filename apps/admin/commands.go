package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/lo-maxwell/hkn-rails/apps/api/echo"
	"github.com/lo-maxwell/hkn-rails/core/group"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

func (cli *commandLine) migrate(args []string) error {
	return migrateFunc(cli.db, args[0], args[1:]...)
}

// addPerson creates a person, and makes them an admin when asked to.
func (cli *commandLine) addPerson(name, uname, email string, isAdmin bool) error {
	ctx := context.Background()

	np := person.NewPerson{Name: name, Username: uname, Email: email}
	if isAdmin {
		grp, err := cli.adminGroup(ctx)
		if err != nil {
			return err
		}
		np.GroupIDs = []string{grp.ID}
	}

	p, err := cli.people.Create(ctx, np)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s (%s)\n", p.Username, p.ID)
	return nil
}

func (cli *commandLine) adminGroup(ctx context.Context) (group.Group, error) {
	grp, err := cli.groups.GetByName(ctx, cli.conf.AdminGroup)
	if errors.Is(err, group.ErrNotFound) {
		return cli.groups.Create(ctx, group.NewGroup{Name: cli.conf.AdminGroup})
	}
	return grp, err
}

func (cli *commandLine) token(uname string) error {
	p, err := cli.people.GetByUsername(context.Background(), uname)
	if err != nil {
		return err
	}
	token, err := echoapi.GenerateToken(cli.conf, echoapi.GetPersonClaims(cli.conf, p))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

func (cli *commandLine) assign(slotID, tutorUname string) error {
	ctx := context.Background()
	tutor, err := cli.people.GetByUsername(ctx, tutorUname)
	if err != nil {
		return err
	}
	if err = cli.slots.AttemptAssign(ctx, slotID, tutor.ID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "assigned %s\n", tutor.Username)
	return nil
}

func (cli *commandLine) notify() error {
	n, err := cli.events.NotifyDue(context.Background(), time.Now())
	fmt.Fprintf(cli.out, "notified %d event(s)\n", n)
	return err
}
