// Package cli implements the nutrihub command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/nutrihub/internal/paths"
	"github.com/mesh-intelligence/nutrihub/internal/repository"
	"github.com/mesh-intelligence/nutrihub/internal/workflow"
	"github.com/mesh-intelligence/nutrihub/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// exitError carries the exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode maps an error returned by a command to the process exit code.
// Errors that do not carry a code, such as flag parsing errors, are user
// errors.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitUserError
}

// app holds the state of one invocation.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool

	config *viper.Viper
	log    *slog.Logger
	stderr io.Writer

	store  types.Store
	repo   *repository.Repository
	events *workflow.Emitter
}

func newApp(stderr io.Writer) *app {
	return &app{
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		stderr: stderr,
		events: workflow.NewEmitter(64),
	}
}

// newRootCmd builds the nutrihub command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "nutrihub",
		Short: "Manage patients and their meal plans",
		Long: "nutrihub keeps patients, template meal plans and patient plans in a local\n" +
			"store, and clones templates into plans owned by a patient.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: per-user config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output as JSON")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newPatientCmd(a))
	root.AddCommand(newPlanCmd(a))
	return root
}

// Execute runs the command line and exits with the resulting code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := newApp(stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.report(a.events.Drain())
	if cerr := a.close(); cerr != nil && err == nil {
		err = sysError(fmt.Errorf("close store: %w", cerr))
	}
	if err != nil {
		fmt.Fprintln(stderr, "nutrihub:", err)
	}
	return exitCode(err)
}

// setup loads the configuration and installs the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = configDir

	a.config, err = loadConfig(configDir)
	if err != nil {
		return userError(err)
	}

	a.log, err = newLogger(a.stderr, a.config.GetString(cfgKeyLogLevel), a.verbose)
	if err != nil {
		return userError(err)
	}
	return nil
}
