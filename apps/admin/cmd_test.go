package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lo-maxwell/hkn-rails/core/person"
	"github.com/lo-maxwell/hkn-rails/core/slot"
	testutil "github.com/lo-maxwell/hkn-rails/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Services, *bytes.Buffer) {
	s := testutil.NewServices(t)
	out := new(bytes.Buffer)
	return &commandLine{
		conf:   s.Conf,
		out:    out,
		groups: s.Groups,
		people: s.People,
		slots:  s.Slots,
		events: s.Events,
	}, s, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
}

func runCliTests(t *testing.T, cli *commandLine, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.True(t, errors.Is(err, tt.wantErr), "cli.run() error = %v, wantErr %v", err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _, _ := setup(t)

	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCliTests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
}

func Test_commandLine_addPerson(t *testing.T) {
	cli, s, _ := setup(t)

	runCliTests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "missing email", args: []string{"addperson", "-name", "Ann", "-username", "ann"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"addperson", "-nope"}, wantErrStr: "flag provided but not defined: -nope"},
		{name: "member", args: []string{"addperson", "-name", "Ann", "-username", "ann", "-email", "ann@berkeley.edu"}},
		{name: "duplicate", args: []string{"addperson", "-name", "Ann", "-username", "ANN", "-email", "ann2@berkeley.edu"}, wantErrStr: person.ErrUsernameExists.Error()},
		{name: "admin", args: []string{"addperson", "-name", "Bob", "-username", "bob", "-email", "bob@berkeley.edu", "-admin"}},
		{name: "second admin", args: []string{"addperson", "-name", "Cy", "-username", "cy", "-email", "cy@berkeley.edu", "-admin"}},
	})

	ctx := context.Background()
	ann, err := s.People.GetByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.False(t, ann.InGroupNamed(s.Conf.AdminGroup))

	officers, err := s.Groups.GetByName(ctx, s.Conf.AdminGroup)
	require.NoError(t, err)
	ids, err := s.Groups.MemberIDs(ctx, officers.ID)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func Test_commandLine_token(t *testing.T) {
	cli, s, out := setup(t)
	testutil.CreatePerson(t, s, "ann")

	runCliTests(t, cli, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown person", args: []string{"token", "-username", "bob"}, wantErr: person.ErrNotFound},
	})

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "token", "-username", "ann"}))
	assert.Len(t, strings.Split(strings.TrimSpace(out.String()), "."), 3)
}

func Test_commandLine_assign(t *testing.T) {
	cli, s, _ := setup(t)
	slt := testutil.CreateSlot(t, s, slot.Cory, 1, 11)
	tutor := testutil.CreatePerson(t, s, "tutor")

	runCliTests(t, cli, []cliTest{
		{name: "no args", args: []string{"assign", "-slot", slt.ID}, wantErr: errHelp},
		{name: "unknown tutor", args: []string{"assign", "-slot", slt.ID, "-tutor", "nobody"}, wantErr: person.ErrNotFound},
		{name: "unknown slot", args: []string{"assign", "-slot", "5e7e4b2c-8d36-4d59-9c47-0b1f5c0d1e2f", "-tutor", "tutor"}, wantErr: slot.ErrNotFound},
		{name: "assigned", args: []string{"assign", "-slot", slt.ID, "-tutor", "tutor"}},
	})

	tutors, err := s.Slots.TutorsOf(context.Background(), slt.ID)
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.Equal(t, tutor.ID, tutors[0].ID)
}

func Test_commandLine_notify(t *testing.T) {
	cli, _, out := setup(t)

	require.NoError(t, cli.run([]string{"admin", "notify"}))
	assert.Equal(t, "notified 0 event(s)\n", out.String())
}
