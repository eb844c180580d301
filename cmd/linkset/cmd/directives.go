package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/errext"
)

func getDirectivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "directives <object>",
		Short: "Show the linker directives embedded in an object file",
		Long: `Parses the .drectve section of an object file and prints the options it
carries: exports, forced includes and every other option, with options the
linker does not know marked as such.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			r, err := client.Directives(args[0])
			if err != nil {
				return err
			}

			info("%s (%s)", r.Path, r.Machine)
			if !r.Present {
				info("  no directive section")
				return nil
			}
			if p := r.Parsed; p != nil {
				for _, ex := range p.Exports {
					output("/export:%s", ex)
				}
				for _, inc := range p.Includes {
					output("/include:%s", inc)
				}
				for _, a := range p.Args {
					line := a.Raw
					if !a.Known {
						line += " " + warnColor.Sprint("(unknown)")
					}
					output("%s", line)
				}
			}
			if r.Err != nil {
				return errext.WithExitCodeIfNone(fmt.Errorf("%s: %w", r.Path, r.Err), errext.CorruptInput)
			}
			return nil
		},
	}
}
