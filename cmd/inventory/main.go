package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-inventory-client/internal/app"
	"github.com/jrsteele09/go-inventory-client/internal/config"
	"github.com/jrsteele09/go-inventory-client/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			code = exitError
		}
	}()

	fs := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayAppname(stdout, "inventory")
			fmt.Fprint(stdout, usage)
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.New(fs)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitUsage
	}

	a, err := app.New(ctx, cfg,
		app.WithLogOutput(stderr),
		app.WithAuthFailureHandler(func(context.Context, error) {
			fmt.Fprintln(stderr, "Your session has expired. Run 'inventory login' to sign in again.")
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "startup: %v\n", err)
		return exitError
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("closing token store")
		}
	}()

	c := &cli{
		app:    a,
		flags:  fs,
		in:     stdin,
		out:    stdout,
		errOut: stderr,
	}
	return c.dispatch(ctx, fs.Args())
}

func newFlagSet(stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("inventory", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(true)
	config.RegisterFlags(fs)

	fs.StringP("output", "o", "table", "output format: table, json, yaml")
	fs.StringP("username", "u", "", "username for login")
	fs.StringP("password", "p", "", "password for login (read from INVENTORY_PASSWORD or stdin when empty)")
	fs.StringArrayP("query", "q", nil, "list filter as key=value, repeatable")
	fs.StringP("file", "f", "", "JSON payload file for create/update, - for stdin")
	fs.Bool("analytics", false, "dashboard: show analytics instead of the summary")

	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	return fs
}

const usage = `Usage: inventory [flags] <command> [args]

Commands:
  login | logout | status | verify | refresh
  dashboard [--analytics]
  categories|suppliers|products|movements|sales list [-q key=value]...
  categories|suppliers|products|movements|sales get <id>
  categories|suppliers|products|movements|sales create -f payload.json
  categories|suppliers|products|movements|sales update <id> -f payload.json
  categories|suppliers|products|movements|sales delete <id>
  products low-stock
  products upload-image <id> <image-path>

Flags:
`

func displayAppname(w io.Writer, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(w, myFigure.String())
}
