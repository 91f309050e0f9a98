package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Viskores/viskores-sub000/internal/api"
	"github.com/Viskores/viskores-sub000/internal/dispatch"
	"github.com/Viskores/viskores-sub000/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API for running sample dispatches, inspecting devices and
browsing the dispatch journal.

Example:
  viskores serve --addr :9090 --db /tmp/viskores.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address, overrides VISKORES_LISTEN_ADDR")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database, overrides VISKORES_DB_PATH")

	return cmd
}

func serve(cmd *cobra.Command, opts *ServeOptions) error {
	env, err := newEnv(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.close()

	addr, dbPath := env.cfg.ListenAddr, env.cfg.DBPath
	if opts.Addr != "" {
		addr = opts.Addr
	}
	if opts.Database != "" {
		dbPath = opts.Database
	}

	env.logger.Info("viskores: starting", "listen_addr", addr, "db_path", dbPath)

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	events := dispatch.NewEventBroker()
	defer events.Close()

	d := dispatch.New(env.tracker,
		dispatch.WithLogger(env.logger),
		dispatch.WithJournal(db),
		dispatch.WithTracer(env.tracing.Tracer()),
		dispatch.WithEvents(events),
	)

	return api.NewServer(addr, db, d, env.logger).Run()
}
