package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/internal/manifest"
)

func getCheckCmd() *cobra.Command {
	var manifestPath string

	c := &cobra.Command{
		Use:   "check",
		Short: "Verify that a link still resolves as recorded in a manifest",
		Long: `Re-runs the invocation recorded in a manifest written by 'linkset resolve
--manifest' and compares the outcome: input order and content, archive
members, entry point, exports and unresolved symbols.
Exit 0 if everything matches; exit 10 on drift. Suitable for CI pipelines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			result, err := client.Check(cmd.Context(), manifestPath)
			if err != nil {
				return err
			}

			d := result.Diff
			if d.Clean() {
				info("Closure matches %s.", manifestPath)
				return nil
			}
			for _, ch := range d.Changes {
				info("  %s   %s", warnColor.Sprint("changed"), ch.Field)
				detail("expected: %s", ch.Expected)
				detail("actual:   %s", ch.Actual)
			}
			for _, m := range d.Missing {
				info("  %s   %s", errorColor.Sprint("missing"), m)
			}
			for _, a := range d.Added {
				info("  %s     %s", okColor.Sprint("added"), a)
			}
			return errext.WithExitCodeIfNone(
				fmt.Errorf("check failed: %d difference(s) from %s", d.Len(), manifestPath), errext.ManifestDrift)
		},
	}
	c.Flags().StringVar(&manifestPath, "manifest", manifest.FileName, "manifest to check against")
	return c
}
