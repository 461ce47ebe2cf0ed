package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/gnana997/snipkit/pkg/assets"
	"github.com/gnana997/snipkit/pkg/dialogue"
	mcpserver "github.com/gnana997/snipkit/pkg/mcp"
	"github.com/gnana997/snipkit/pkg/mcplog"
	"github.com/gnana997/snipkit/pkg/render"
	"github.com/gnana997/snipkit/pkg/scriptcheck"
	"github.com/gnana997/snipkit/pkg/watch"
)

func serveCmd(a *app) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Serve insertion dialogues as MCP tools on stdin/stdout.

With a database, asset bundles are served through get_assets and the asset
directory is watched for changes. With a catalog file, the file is watched
and reloaded when it changes.`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not watch the catalog file or asset directory")
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		return a.serve(cmd.Context(), noWatch)
	})
	return cmd
}

func (a *app) serve(ctx context.Context, noWatch bool) error {
	be, err := a.openBackend(ctx)
	if err != nil {
		return err
	}
	strings, err := a.loadStrings()
	if err != nil {
		return err
	}

	cfg := mcpserver.Config{
		Deps: dialogue.Deps{
			Catalog: be.catalog,
			Prefs:   be.prefs,
			Host:    dialogue.HostFunc(a.logInsertion),
			Logger:  a.logger,
			Options: a.cfg.dialogueOptions(),
		},
		Strings:       strings,
		DefaultLocale: a.cfg.locale(),
		Logger:        a.logger,
		MaxSessions:   a.cfg.MaxSessions,
	}

	var pipeline *assets.Pipeline
	if be.store != nil {
		checker := scriptcheck.NewChecker(0, a.logger)
		a.onClose(checker.Close)
		if pipeline, err = a.assetPipeline(be.store, checker); err != nil {
			return err
		}
		cfg.Assets = pipeline
	}

	callLog, err := mcplog.NewLogger(a.cfg.CallLogPath)
	if err != nil {
		return err
	}
	if callLog != nil {
		a.onClose(callLog.Close)
		cfg.CallLog = callLog
	}

	if !noWatch {
		if err := a.startWatcher(be, pipeline); err != nil {
			return err
		}
	}

	srv, err := mcpserver.NewServer(cfg)
	if err != nil {
		return err
	}
	a.logger.Info("mcp server starting",
		"database", a.cfg.DBPath != "",
		"assets", pipeline != nil,
		"locales", strings.Locales())

	err = srv.Serve(ctx, os.Stdin, os.Stdout)
	srv.Shutdown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startWatcher reloads a file catalog and drops changed asset files.
func (a *app) startWatcher(be *backend, pipeline *assets.Pipeline) error {
	watchCatalog := be.file != nil && be.file.Path() != ""
	watchAssets := pipeline != nil && a.cfg.AssetDir != ""
	if !watchCatalog && !watchAssets {
		return nil
	}

	w, err := watch.New(watch.DefaultOptions(), a.logger)
	if err != nil {
		return err
	}
	a.onClose(w.Stop)
	if watchCatalog {
		if err := w.WatchFile(be.file.Path(), watch.ReloadCatalog(be.file, nil, a.logger)); err != nil {
			return err
		}
	}
	if watchAssets {
		if err := w.WatchDir(a.cfg.AssetDir, watch.InvalidateAssets(pipeline, a.logger)); err != nil {
			return err
		}
	}
	return w.Start()
}

// logInsertion is the host for served dialogues. The markup itself
// travels back to the client in the insert_component result.
func (a *app) logInsertion(_ context.Context, ins render.Insertion) error {
	a.logger.Debug("component inserted", "focus_id", ins.FocusID, "bytes", len(ins.HTML))
	return nil
}
