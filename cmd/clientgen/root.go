package main

import (
	"context"
	"io"
	"io/fs"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tsgonest/clientgen/internal/config"
	"github.com/tsgonest/clientgen/internal/logging"
	"github.com/tsgonest/clientgen/internal/pipeline"
)

// app is the state shared by every subcommand once the root has loaded the
// configuration.
type app struct {
	v          *viper.Viper
	configPath string
	envFile    string

	cfg *config.Config

	stdout io.Writer
	stderr io.Writer

	// coordinatorOptions are appended to the defaults; tests use them to
	// swap the route table, package loading and sink.
	coordinatorOptions []pipeline.Option
}

// flagKeys binds persistent flags to their config keys.
var flagKeys = map[string]string{
	"project":   "project.dir",
	"routes":    "routes.manifest",
	"output":    "output.path",
	"pattern":   "controllers.pattern",
	"client":    "output.clientName",
	"log-level": "log.level",
	"json-logs": "log.json",
}

func newRootCmd(stdout, stderr io.Writer, opts ...pipeline.Option) *cobra.Command {
	a := &app{
		v:                  config.NewViper(),
		stdout:             stdout,
		stderr:             stderr,
		coordinatorOptions: opts,
	}

	root := &cobra.Command{
		Use:   "clientgen",
		Short: "clientgen - typed TypeScript API clients from Go controllers",
		Long: `clientgen joins a route manifest with the controller types of a Go project
and emits one self-contained TypeScript client module.

Examples:
  clientgen generate
  clientgen generate --routes build/routes.json --output web/src/api.ts
  clientgen check
  clientgen dump > routes.dump.json`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to config file (default: clientgen.{yaml,yml,json,toml} in the working directory)")
	flags.StringVar(&a.envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")
	flags.StringP("project", "p", "", "Go project directory")
	flags.String("routes", "", "Route manifest (.json, .yaml or .yml)")
	flags.StringP("output", "o", "", "Generated module path")
	flags.String("pattern", "", "Controller source globs, comma separated")
	flags.String("client", "", "Exported client class name")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Bool("json-logs", false, "Emit JSON logs")
	for name, key := range flagKeys {
		// Lookup cannot fail for flags registered above.
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(
		newGenerateCmd(a),
		newCheckCmd(a),
		newDumpCmd(a),
		newVersionCmd(a),
	)
	return root
}

// load reads .env, the config file, the environment and flags, in that
// order of increasing precedence, then builds the logger and stores it in
// the command context.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "loading %s", a.envFile)
		}
	}
	if err := config.ReadFile(a.v, a.configPath); err != nil {
		return err
	}
	cfg, err := config.LoadWithViper(a.v)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: a.stderr,
	})
	if err != nil {
		return err
	}
	a.cfg = cfg
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debugw("config loaded", "file", used)
	}
	return nil
}

func (a *app) coordinator(ctx context.Context) *pipeline.Coordinator {
	opts := append([]pipeline.Option{pipeline.WithLogger(logging.FromContext(ctx))}, a.coordinatorOptions...)
	return pipeline.New(a.cfg, opts...)
}

// reportDiagnostics prints warnings collected during a run.
func (a *app) reportDiagnostics(run *pipeline.Run) {
	if run == nil || len(run.Diagnostics.Diagnostics()) == 0 {
		return
	}
	io.WriteString(a.stderr, run.Diagnostics.FormatAll())
	io.WriteString(a.stderr, run.Diagnostics.Summary()+"\n")
}
