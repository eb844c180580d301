package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/config"
	"github.com/bianoble/linkset/internal/errext"
)

func getInfoCmd() *cobra.Command {
	var clearCache bool

	c := &cobra.Command{
		Use:   "info",
		Short: "Show the effective configuration, search path and cache",
		Long: `Displays the linkset version, the config files consulted, the library search
path in the order it is searched, and the archive index cache directory and
size. Link flags given here are applied as they would be for resolve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := config.FromFlags(cmd.Flags())
			if err != nil {
				return errext.WithExitCodeIfNone(err, errext.InvalidConfig)
			}
			client, err := newClient()
			if err != nil {
				return err
			}
			if clearCache {
				if err := client.ClearCache(cli); err != nil {
					return err
				}
				info("Cache cleared.")
			}
			result, err := client.Info(cli)
			if err != nil {
				return err
			}
			s := result.Settings

			output("linkset %s", version)
			output("  directory:     %s", result.Dir)
			output("  config chain:")
			for _, layer := range s.Layers {
				status := "not found"
				if layer.Loaded {
					status = "loaded"
				}
				output("    %-10s %s (%s)", string(layer.Level)+":", layer.Path, status)
			}
			machine := "from first object"
			if !s.Machine.IsUnknown() {
				machine = s.Machine.String()
			}
			output("  machine:       %s", machine)
			output("  flavor:        %s", s.Flavor)
			output("  search path:")
			for _, d := range s.SearchDirs {
				output("    %s", d)
			}
			for _, d := range s.SysrootDirs {
				output("    %s", d)
			}
			if s.Sysroot != "" && s.Machine.IsUnknown() {
				output("    %s", faintColor.Sprintf("(%s, once the first object fixes the machine)", s.Sysroot))
			}
			for _, opt := range s.Ignored {
				output("  %s %s", warnColor.Sprint("ignored LINK option:"), opt)
			}
			cacheState := "off"
			if s.CacheDir != "" {
				cacheState = "on"
			}
			output("  index cache:   %s", cacheState)
			output("  cache dir:     %s", result.CacheDir)
			output("  cache size:    %s (%d entries)", humanSize(result.CacheBytes), result.CacheEntries)
			return nil
		},
	}
	c.Flags().AddFlagSet(config.FlagSet())
	c.Flags().BoolVar(&clearCache, "clear-cache", false, "remove every cached archive index first")
	return c
}
