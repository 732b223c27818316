package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/room"
	"github.com/trezcool/ratiba/core/teacher"
	"github.com/trezcool/ratiba/core/timetable"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/services/apiclient"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db   *sqlx.DB
	conf *core.Config
	out  io.Writer

	usrRepo    user.Repository
	usrSvc     *user.Service
	rooms      *room.Service
	teachers   *teacher.Service
	courses    *course.Service
	timetables *timetable.Service
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                     - run a goose command (up, down, status, version, redo, reset, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL   - create or update an active user, the password is prompted")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL    - reset user's password")
	fmt.Fprintln(cli.out, "  rooms|teachers|courses ACTION [FLAGS]      - list, add, edit, delete, summary (add/edit: -file FILE and/or -set field=value)")
	fmt.Fprintln(cli.out, "  timetable ACTION [FLAGS]                   - import, status, export")
	fmt.Fprintln(cli.out, "Records are managed through the local database unless -api URL -token TOKEN are given.")
}

func (cli *commandLine) command(args []string) string {
	return strings.Join(args[1:min(len(args), 3)], " ")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "adduser":
		return cli.runAddUser(args[2:])
	case "resetpassword":
		return cli.runResetPassword(args[2:])
	case "rooms":
		return runResource(cli, "rooms", args[2:], roomBackends(cli))
	case "teachers":
		return runResource(cli, "teachers", args[2:], teacherBackends(cli))
	case "courses":
		return runResource(cli, "courses", args[2:], courseBackends(cli))
	case "timetable":
		return cli.runTimetable(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// remote holds the -api and -token flags shared by the record commands.
type remote struct {
	url   *string
	token *string
}

func addRemoteFlags(fs *flag.FlagSet) remote {
	return remote{
		url:   fs.String("api", "", "Base URL of a Ratiba API (e.g. http://localhost:8000/v1). Uses the local database when empty."),
		token: fs.String("token", "", "Access token for -api."),
	}
}

// client returns nil when the command runs against the local database.
func (r remote) client() (*apiclient.Client, error) {
	if *r.url == "" {
		return nil, nil
	}
	if *r.token == "" {
		return nil, errors.New("-token is required with -api")
	}
	return apiclient.WithToken(*r.url, *r.token, nil), nil
}
