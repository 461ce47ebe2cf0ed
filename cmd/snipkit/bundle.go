package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gnana997/snipkit/pkg/bundle"
)

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the stored catalog and its images to a zip archive",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		st, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		exp := bundle.NewExporter(st, a.cfg.AssetDir, a.fileCache(), a.logger)
		report, err := exp.ExportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a.logger.Info("catalog exported", "path", args[0], "components", report.Components, "files", report.Files)
		return printReport(cmd.OutOrStdout(), report)
	})
	return cmd
}

func importCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a zip archive into the stored catalog",
		Long: `Merge an exported archive into the database. Rows are matched by name and
updated in place; categories keep their stored ids and image paths are
rewritten to match. Images are extracted below the asset directory.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		st, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		// No bundles are cached by this process; a running server picks the
		// new rows up on its next bundle rebuild.
		imp := bundle.NewImporter(st, a.cfg.AssetDir, nil, a.logger)
		report, err := imp.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, skipped := range report.Skipped {
			a.logger.Warn("import skipped entry", "entry", skipped)
		}
		a.logger.Info("catalog imported", "path", args[0], "components", report.Components, "files", report.Files)
		return printReport(cmd.OutOrStdout(), report)
	})
	return cmd
}

func printReport(w io.Writer, report *bundle.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
