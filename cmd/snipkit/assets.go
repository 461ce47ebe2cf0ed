package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gnana997/snipkit/pkg/assets"
	"github.com/gnana997/snipkit/pkg/scriptcheck"
)

func assetsCmd(a *app) *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:       "assets css|js",
		Short:     "Print the CSS or JS bundle built from the stored catalog",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(assets.KindCSS), string(assets.KindJS)},
	}
	cmd.Flags().BoolVar(&check, "check", true, "drop component scripts with syntax errors from the JS bundle")
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		kind, err := assets.ParseKind(args[0])
		if err != nil {
			return err
		}
		st, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		var checker assets.ScriptChecker
		if check && kind == assets.KindJS {
			c := scriptcheck.NewChecker(0, a.logger)
			a.onClose(c.Close)
			checker = c
		}
		pipeline, err := a.assetPipeline(st, checker)
		if err != nil {
			return err
		}
		b, err := pipeline.Get(cmd.Context(), kind)
		if err != nil {
			return err
		}
		for _, r := range b.Skipped {
			for _, issue := range r.Issues {
				a.logger.Warn("script skipped", "component", r.Name, "issue", issue.String())
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), b.Content)
		return err
	})
	return cmd
}
