package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	"github.com/heysubinoy/kvs/internal/store"
	"github.com/heysubinoy/kvs/pkg/config"
	"github.com/heysubinoy/kvs/pkg/kv"
)

const (
	exitError = 1
	exitUsage = 2
)

type openFunc func(cfg *config.Config, logger hclog.Logger) (kv.Store, io.Closer, error)

// app holds the state of one invocation. The store is opened lazily, after
// the subcommand's arguments have been checked.
type app struct {
	stdout io.Writer
	stderr io.Writer
	open   openFunc

	cfg    *config.Config
	logger hclog.Logger
	store  *store.InstrumentedStore
	closer io.Closer
	stats  bool
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		open:   openStore,
	}
}

// run executes args and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	return newApp(stdout, stderr).run(args)
}

func (a *app) run(args []string) int {
	err := a.cli().Run(args)
	if err == nil {
		return 0
	}

	code := exitError
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		code = ec.ExitCode()
	}
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(a.stderr, "kvs: %s\n", msg)
	}
	return code
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:            "kvs",
		Usage:           "a minimal key-value store",
		Writer:          a.stdout,
		ErrWriter:       a.stderr,
		HideHelpCommand: true,
		// Exit codes are decided in run, never by the library.
		ExitErrHandler: func(*cli.Context, error) {},
		OnUsageError:   a.usageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"KVS_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "path",
				Usage: "backing location of the store",
			},
			&cli.StringFlag{
				Name:  "engine",
				Usage: "storage engine: memory or journal",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "trace, debug, info, warn, error or off",
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "log operation counts and latencies on exit",
			},
		},
		Before: a.setup,
		After:  a.teardown,
		Action: a.root,
		Commands: []*cli.Command{
			{
				Name:         "get",
				Usage:        "print the value of a key",
				ArgsUsage:    "<key>",
				Action:       a.withStore(1, a.get),
				OnUsageError: a.usageError,
			},
			{
				Name:         "set",
				Usage:        "set a key to a value",
				ArgsUsage:    "<key> <value>",
				Action:       a.withStore(2, a.set),
				OnUsageError: a.usageError,
			},
			{
				Name:         "rm",
				Usage:        "remove a key",
				ArgsUsage:    "<key>",
				Action:       a.withStore(1, a.remove),
				OnUsageError: a.usageError,
			},
		},
	}
}

func (a *app) setup(c *cli.Context) error {
	// Validation waits until the flags have been applied, so a flag can
	// replace a bad value from the file or the environment.
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if c.IsSet("path") {
		cfg.Path = c.String("path")
	}
	if c.IsSet("engine") {
		cfg.Engine = c.String("engine")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	a.cfg = cfg
	a.stats = c.Bool("stats")

	level := hclog.LevelFromString(cfg.LogLevel)
	if a.stats && level > hclog.Info {
		level = hclog.Info
	}
	a.logger = hclog.New(&hclog.LoggerOptions{
		Name:              "kvs",
		Level:             level,
		Output:            a.stderr,
		IndependentLevels: true,
	})
	return nil
}

func (a *app) teardown(c *cli.Context) error {
	if a.store == nil {
		return nil
	}

	level := hclog.Debug
	if a.stats {
		level = hclog.Info
	}
	a.logger.Log(level, "store metrics", a.store.Metrics().Fields()...)

	if a.closer != nil {
		if err := a.closer.Close(); err != nil {
			return cli.Exit(fmt.Sprintf("failed to close store: %v", err), exitError)
		}
	}
	return nil
}

// usageError turns a flag parsing failure into a usage exit.
func (a *app) usageError(c *cli.Context, err error, isSubcommand bool) error {
	return cli.Exit(err.Error(), exitUsage)
}

func (a *app) root(c *cli.Context) error {
	if c.NArg() > 0 {
		return cli.Exit(fmt.Sprintf("unknown command %q", c.Args().First()), exitUsage)
	}
	_ = cli.ShowAppHelp(c)
	return cli.Exit("", exitUsage)
}

// withStore checks that the command got exactly n arguments, opens the
// store and runs fn. On an argument mismatch the command help is shown and
// the store is never opened.
func (a *app) withStore(n int, fn func(args cli.Args) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() != n {
			_ = cli.ShowCommandHelp(c, c.Command.Name)
			return cli.Exit("", exitUsage)
		}

		s, closer, err := a.open(a.cfg, a.logger.Named("store"))
		if err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		a.store = store.NewInstrumentedStore(s)
		a.closer = closer

		if err := fn(c.Args()); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		return nil
	}
}

func (a *app) get(args cli.Args) error {
	key := args.Get(0)
	value, found, err := a.store.Get(key)
	if err != nil {
		return err
	}

	if !found {
		fmt.Fprintln(a.stdout, "Key not found")
		return nil
	}
	fmt.Fprintln(a.stdout, value)
	return nil
}

func (a *app) set(args cli.Args) error {
	return a.store.Set(args.Get(0), args.Get(1))
}

func (a *app) remove(args cli.Args) error {
	return a.store.Remove(args.Get(0))
}

// openStore opens the backing store and, for the journal engine, puts the
// raft-backed writer in front of it.
func openStore(cfg *config.Config, logger hclog.Logger) (kv.Store, io.Closer, error) {
	mem, err := store.Open(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Debug("opened store", "path", mem.Path(), "engine", cfg.Engine)

	if cfg.Engine != config.EngineJournal {
		return mem, nil, nil
	}

	// Single-node elections log at warn and info; keep them out of normal
	// output unless debugging.
	raftLogger := logger.Named("raft")
	if !raftLogger.IsDebug() {
		raftLogger.SetLevel(hclog.Error)
	}

	rs, err := store.NewRaftStore(mem, raftLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start journal: %w", err)
	}
	r := rs.GetRaft()
	logger.Debug("journal started", "state", r.State().String(), "last_index", r.LastIndex())
	return rs, rs, nil
}
