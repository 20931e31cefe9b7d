package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"superdb/internal/ingest"
	"superdb/internal/store"
	"superdb/internal/telemetry"
	"superdb/lib/fetch"
	libtelemetry "superdb/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	dbFlag      string
	verbose     bool
	stopOnError bool
	dumpHttp    string
)

// state is what the persistent pre-run prepares for every command.
var state struct {
	config    Config
	telemetry libtelemetry.Telemetry
	exitCode  int
}

var rootCmd = &cobra.Command{
	Use:   "superdb",
	Short: "superdb scrapes the official card database into a local sqlite database.",

	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(verbose)

		config, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		if cmd.Flags().Changed("db") {
			config.Db.File = dbFlag
			config.Db.Url = ""
		}
		if cmd.Flags().Changed("stop-on-error") {
			config.StopOnError = stopOnError
		}
		if cmd.Flags().Changed("dump-http") {
			config.DumpHttp = dumpHttp
		}
		state.config = config

		state.telemetry, err = libtelemetry.SetupFromEnv(cmd.Context(), "superdb")
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to setup telemetry, continuing without exporters", "err", err)
		}
		if verbose {
			libtelemetry.InstrumentPerfStats(cmd.Context(), time.Second*30)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "superdb.json5", "The configuration file, <name>.local.json5 is merged over it.")
	flags.StringVar(&dbFlag, "db", "", "The sqlite database file, overrides the configuration.")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	flags.BoolVar(&stopOnError, "stop-on-error", false, "Abort at the first card, set or banlist that fails.")
	flags.StringVar(&dumpHttp, "dump-http", "", "Write every http exchange to this directory.")
	flags.Lookup("dump-http").NoOptDefVal = ".dev/http"
}

// ExecuteContext runs the command line and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)

	// post run hooks are skipped when a command fails
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	shutdownErr := state.telemetry.Shutdown(shutdownCtx)
	if shutdownErr != nil {
		slog.Warn("failed to flush telemetry", "err", shutdownErr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return state.exitCode
}

func openStore(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, state.config.Db)
}

func newClient() (fetch.Client, error) {
	opts, err := state.config.fetchOptions()
	if err != nil {
		return nil, err
	}
	return fetch.NewClient(opts), nil
}

// withService opens the store and builds a sync service around it. The
// store is closed when fn returns.
func withService(ctx context.Context, edit func(*ingest.Options), fn func(*ingest.Service) error) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	opts := state.config.ingestOptions()
	if edit != nil {
		edit(&opts)
	}
	err = fn(ingest.NewService(client, db, opts, telemetry.SlogAPI{}))
	closeErr := db.Close()
	if closeErr != nil {
		slog.Error("failed to close store", "err", closeErr)
	}
	return err
}
