package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/config"
	"github.com/bianoble/linkset/internal/engine"
	"github.com/bianoble/linkset/internal/errext"
	"github.com/bianoble/linkset/pkg/linkset"
)

func getResolveCmd() *cobra.Command {
	var manifestPath, reproPath string

	c := &cobra.Command{
		Use:   "resolve [flags] [inputs...]",
		Short: "List the object files a link needs",
		Long: `Resolves the inputs of a link and prints every object file it consumes, in
load order: command-line objects, then archive members as the symbols they
define become referenced.

Link options come from linkset.yaml, then the LINK environment variable, then
the command line. Exit codes: 3 input not found, 4 duplicate symbol,
5 unresolved symbols, 6 directive mismatch, 7 entry point, 8 machine
mismatch, 9 corrupt input or malformed directive.`,
		Example: `  linkset resolve main.obj --defaultlib=libcmt --libpath=C:\sdk\lib
  linkset resolve --flavor=mingw main.o -lmingwex --manifest=linkset.manifest.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := config.FromFlags(cmd.Flags())
			if err != nil {
				return errext.WithExitCodeIfNone(err, errext.InvalidConfig)
			}
			cli.Inputs = append(cli.Inputs, args...)
			invocation := config.Args(cmd.Flags(), args)

			client, err := newClient()
			if err != nil {
				return err
			}
			res, rerr := client.Resolve(cmd.Context(), cli)
			if res == nil || res.Closure == nil {
				return rerr
			}
			printClosure(res)

			if reproPath != "" {
				if err := client.Reproduce(reproPath, res, invocation); err != nil {
					return err
				}
				info("Wrote %s", reproPath)
			}
			if manifestPath != "" && !res.Partial {
				m, err := client.Manifest(res, invocation)
				if err != nil {
					return err
				}
				if err := client.WriteManifest(manifestPath, m); err != nil {
					return err
				}
				info("Wrote %s", manifestPath)
			}
			return rerr
		},
	}
	c.Flags().AddFlagSet(config.FlagSet())
	c.Flags().StringVar(&manifestPath, "manifest", "", "write the resolved closure to this file")
	c.Flags().StringVar(&reproPath, "reproduce", "", "write a .tar.gz of every input and the arguments to this file")
	return c
}

func printClosure(res *linkset.Result) {
	var members, imports int
	for _, f := range res.Objects() {
		output("%s", f.Label())
		detail("%s, %d symbols", f.Kind, f.Symbols)
		switch f.Kind {
		case engine.KindMember:
			members++
		case engine.KindImport:
			imports++
		}
	}
	if res.Partial {
		return
	}

	summary := fmt.Sprintf("%d objects (%d archive members, %d imports), machine %s",
		len(res.Objects()), members, imports, res.Machine)
	if res.Entry != "" {
		summary += fmt.Sprintf(", entry %s (%s)", res.Entry, res.Subsystem)
	}
	info("%s", faintColor.Sprint(summary))
	for _, ex := range res.Exports {
		detail("export %s @%d", ex.Name, ex.Ordinal)
	}
	st := res.Stats
	detail("%d tasks, %d no-ops, %d prefetched, %d cached indices",
		st.Tasks, st.NoOps, st.Prefetched, st.CachedIndexes)
}
