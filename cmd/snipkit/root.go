package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnana997/snipkit/pkg/util"
)

// app carries what every subcommand shares: the resolved config, the
// logger, and resources to release when the command ends.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	overrides  ProjectConfig

	cfg     *ProjectConfig
	logger  *slog.Logger
	closers []func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "snipkit",
		Short: "Snippet catalog and insertion dialogues for rich-text editors",
		Long: `snipkit serves a catalog of HTML components (notes, tips, cards) that
editors insert into rich text. Components are grouped in categories, themed
by flavors and modified by variants; each user's last choices are saved.

The insertion dialogue is exposed to agents as MCP tools over stdio.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default "+defaultConfigPath+")")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format (text, json)")
	pf.StringVar(&a.overrides.DBPath, "db", "", "SQLite database path")
	pf.StringVar(&a.overrides.CatalogPath, "catalog", "", "catalog JSON snapshot, used when no database is set")
	pf.StringVar(&a.overrides.AssetDir, "asset-dir", "", "directory holding images and extra stylesheets")
	pf.StringVar(&a.overrides.AssetBaseURL, "asset-base-url", "", "URL the assets token expands to")
	pf.StringVar(&a.overrides.Locale, "locale", "", "default locale for string tables")

	root.AddCommand(
		serveCmd(a),
		exportCmd(a),
		importCmd(a),
		renderCmd(a),
		assetsCmd(a),
		setupCmd(a),
		versionCmd(),
	)
	return root
}

// init loads the config file and applies flags set on the command line.
func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := loadProjectConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	override := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	override("db", &cfg.DBPath, a.overrides.DBPath)
	override("catalog", &cfg.CatalogPath, a.overrides.CatalogPath)
	override("asset-dir", &cfg.AssetDir, a.overrides.AssetDir)
	override("asset-base-url", &cfg.AssetBaseURL, a.overrides.AssetBaseURL)
	override("locale", &cfg.Locale, a.overrides.Locale)
	override("log-level", &cfg.LogLevel, a.logLevel)
	a.cfg = cfg

	return a.initLogger()
}

func (a *app) initLogger() error {
	level := util.LevelInfo
	if a.cfg.LogLevel != "" {
		parsed, err := util.ParseLogLevel(a.cfg.LogLevel)
		if err != nil {
			return err
		}
		level = parsed
	}
	format := util.FormatText
	if a.logFormat == string(util.FormatJSON) {
		format = util.FormatJSON
	}

	logCfg := util.LoggerConfig{Level: level, Format: format, Output: os.Stderr}
	if a.cfg.LogPath != "" {
		f, err := util.OpenLogFile(a.cfg.LogPath)
		if err != nil {
			return err
		}
		a.onClose(f.Close)
		logCfg.Output = f
	}
	a.logger = util.NewLogger(logCfg)
	util.SetDefault(a.logger)
	return nil
}

// run wraps a command body so resources registered with onClose are
// released even when the body fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() { err = errors.Join(err, a.close()) }()
		return fn(cmd, args)
	}
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "snipkit %s\n", version)
			return err
		},
	}
}
