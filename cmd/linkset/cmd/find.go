package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/config"
	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/pkg/linkset"
)

func getFindCmd() *cobra.Command {
	var library bool

	c := &cobra.Command{
		Use:   "find <name>",
		Short: "Show where an input or library name resolves",
		Long: `Searches for name the way resolve does and prints the path found. With
--verbose every candidate path is listed in the order it is tried.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := config.FromFlags(cmd.Flags())
			if err != nil {
				return errext.WithExitCodeIfNone(err, errext.InvalidConfig)
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			kind := linkset.SearchFile
			if library {
				kind = linkset.SearchLibrary
			}
			r, err := client.Find(args[0], kind, cli)
			if err != nil {
				return err
			}

			for _, p := range r.Candidates {
				if p == r.Path {
					detail("%s %s", okColor.Sprint("found"), p)
					break
				}
				detail("%s %s", faintColor.Sprint("tried"), p)
			}
			if r.Path == "" {
				return errext.WithExitCodeIfNone(
					fmt.Errorf("%s %s not found in %d candidate path(s)", r.Kind, args[0], len(r.Candidates)),
					errext.InputNotFound)
			}
			output("%s", r.Path)
			return nil
		},
	}
	c.Flags().AddFlagSet(config.FlagSet())
	c.Flags().BoolVar(&library, "lib", false, "search as a library name")
	return c
}
