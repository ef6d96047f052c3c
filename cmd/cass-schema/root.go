package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/logan/cassschema"
	"github.com/logan/cassschema/config"
)

// app holds the state shared by every command of one invocation.
type app struct {
	stdout, stderr io.Writer

	cfgFile  string
	dryRun   bool
	logLevel string

	logger   log.Logger
	cfg      *config.Config
	registry *prometheus.Registry
	fake     *cassschema.FakeCluster
}

// configError marks failures to load or apply the configuration.
type configError struct{ error }

func (e configError) Unwrap() error { return e.error }

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "cass-schema",
		Short: "Create, drop and migrate Cassandra schemas from statement files",
		Long: `cass-schema manages the keyspaces of a set of datastores.

Each datastore reads its statements from <schema_base_path>/<schema>/schema.cql, with
migrations in <schema_base_path>/<schema>/migrations/<name>.cql. Statements are separated
by blank lines; lines starting with # are comments.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			logger, err := newLogger(a.stderr, a.logLevel)
			if err != nil {
				return configError{err}
			}
			a.logger = logger
			if a.cfg, err = config.Load(a.cfgFile, cmd.Root().PersistentFlags()); err != nil {
				return configError{err}
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			cassschema.ResetDefault()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "path to the YAML configuration file")
	flags.String("schema-base-path", "", "directory holding one schema directory per datastore")
	flags.Bool("disallow-drops", false, "refuse drop and drop-all")
	flags.BoolVar(&a.dryRun, "dry-run", false, "run statements against an in-memory cluster instead of Cassandra")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(
		&cobra.Command{
			Use:   "create-all",
			Short: "Create every datastore's keyspace and schema",
			Args:  cobra.NoArgs,
			RunE: a.withRunner(func(r *cassschema.Runner, _ []string) error {
				return r.CreateAll()
			}),
		},
		&cobra.Command{
			Use:   "drop-all",
			Short: "Drop every datastore's keyspace",
			Args:  cobra.NoArgs,
			RunE: a.withRunner(func(r *cassschema.Runner, _ []string) error {
				return r.DropAll()
			}),
		},
		&cobra.Command{
			Use:   "create DATASTORE",
			Short: "Create one datastore's keyspace and schema",
			Args:  cobra.ExactArgs(1),
			RunE: a.withRunner(func(r *cassschema.Runner, args []string) error {
				return r.Create(args[0])
			}),
		},
		&cobra.Command{
			Use:   "drop DATASTORE",
			Short: "Drop one datastore's keyspace",
			Args:  cobra.ExactArgs(1),
			RunE: a.withRunner(func(r *cassschema.Runner, args []string) error {
				return r.Drop(args[0])
			}),
		},
		&cobra.Command{
			Use:   "migrate DATASTORE MIGRATION",
			Short: "Run migrations/MIGRATION.cql against one datastore",
			Args:  cobra.ExactArgs(2),
			RunE: a.withRunner(func(r *cassschema.Runner, args []string) error {
				if a.dryRun {
					// The in-memory cluster starts empty; the migration needs the schema it applies to.
					if err := a.quietly(r, args[0]); err != nil {
						return err
					}
				}
				return r.Migrate(args[0], args[1])
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the configured datastores",
			Args:  cobra.NoArgs,
			RunE: a.withRunner(func(r *cassschema.Runner, _ []string) error {
				return a.list(r)
			}),
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the resolved configuration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.cfg.WriteYAML(a.stdout)
			},
		},
	)
	return root
}

// withRunner installs the default runner for the configured datastores before calling fn, and logs
// how many statements were sent once fn returns.
func (a *app) withRunner(fn func(*cassschema.Runner, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		build := config.BuildOptions{}
		if a.dryRun {
			a.fake = cassschema.FakeCassandra()
			build.Connector = a.fake
		}
		opts, err := a.cfg.Options(build)
		if err != nil {
			return configError{err}
		}
		a.registry = prometheus.NewRegistry()
		opts.Logger = log.With(a.logger, "cmd", cmd.Name())
		opts.Registerer = a.registry
		if _, err := cassschema.Setup(opts); err != nil {
			return configError{err}
		}
		r, err := cassschema.Default()
		if err != nil {
			return err
		}
		err = fn(r, args)
		if n := a.statementCount(); n > 0 {
			level.Info(a.logger).Log("msg", "statements sent", "count", n, "dry_run", a.dryRun)
		}
		return err
	}
}

// quietly creates the named datastore without logging or counting its statements.
func (a *app) quietly(r *cassschema.Runner, name string) error {
	ds, err := r.DataStore(name)
	if err != nil {
		return err
	}
	shadow := cassschema.NewDataStore(ds.Name, ds.Cluster, ds.Keyspace, ds.Replication)
	shadow.Schema = ds.Schema
	quiet, err := cassschema.NewRunner(cassschema.Options{
		DataStores:     []*cassschema.DataStore{shadow},
		SchemaBasePath: r.SchemaBasePath(),
	})
	if err != nil {
		return err
	}
	defer quiet.Close()
	return errors.Wrap(quiet.Create(name), "preparing dry run")
}

func (a *app) statementCount() float64 {
	if a.registry == nil {
		return 0
	}
	families, err := a.registry.Gather()
	if err != nil {
		level.Warn(a.logger).Log("msg", "gathering metrics", "err", err)
		return 0
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != "cass_schema_statements_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func (a *app) list(r *cassschema.Runner) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKEYSPACE\tHOSTS\tSCHEMA")
	for _, ds := range r.DataStores() {
		hosts := strings.Join(ds.Cluster.Hosts, ",")
		if a.dryRun {
			hosts = "(dry run)"
		} else if hosts == "" {
			hosts = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ds.Name, ds.Keyspace, hosts, ds.SchemaPath())
	}
	return tw.Flush()
}

func newLogger(w io.Writer, lvl string) (log.Logger, error) {
	var allow level.Option
	switch strings.ToLower(lvl) {
	case "debug":
		allow = level.AllowDebug()
	case "info", "":
		allow = level.AllowInfo()
	case "warn":
		allow = level.AllowWarn()
	case "error":
		allow = level.AllowError()
	default:
		return nil, errors.Errorf("unknown log level %q", lvl)
	}
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = level.NewFilter(logger, allow)
	return log.With(logger, "ts", log.DefaultTimestampUTC), nil
}
