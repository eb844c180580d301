package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bianoble/linkset/internal/errext"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	workDir    string
	noInherit  bool
	verbose    bool
	quiet      bool
	noColor    bool
	logFormat  string
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	stdoutTTY = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY = isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	logger = logrus.New()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "linkset",
		Short: "Compute the object files a COFF link needs",
		Long: `linkset resolves the inputs of a PE/COFF link the way a linker does: it
searches for files and libraries, follows the directives embedded in objects
and loads archive members only when a symbol they define is referenced.
The result is the exact, ordered set of objects the link consumes.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: persistentPreRunE,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errext.WithExitCodeIfNone(err, errext.InvalidConfig)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "path to project config file (default <dir>/linkset.yaml)")
	flags.StringVarP(&workDir, "directory", "C", "", "working directory for inputs and outputs")
	flags.BoolVar(&noInherit, "no-inherit", false, "ignore system and user config files")
	flags.BoolVarP(&verbose, "verbose", "v", false, "detailed output and debug logging")
	flags.BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.StringVar(&logFormat, "log-format", "text", "log output format: text or json")

	root.AddCommand(
		getResolveCmd(),
		getCheckCmd(),
		getDirectivesCmd(),
		getFindCmd(),
		getInfoCmd(),
		getInitCmd(),
		getVersionCmd(),
	)
	return root
}

func persistentPreRunE(cmd *cobra.Command, _ []string) error {
	stdout = cmd.OutOrStdout()
	stderr = cmd.ErrOrStderr()
	color.NoColor = noColor || !stdoutTTY
	return setupLogger()
}

func setupLogger() error {
	logger.SetOutput(stderr)
	switch {
	case verbose:
		logger.SetLevel(logrus.DebugLevel)
	case quiet:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	switch logFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{ForceColors: stderrTTY && !noColor, DisableColors: noColor})
	default:
		return errext.WithExitCodeIfNone(
			fmt.Errorf("invalid log format '%s' — must be text or json", logFormat), errext.InvalidConfig)
	}
	return nil
}

func getVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "linkset %s\n", version)
			fmt.Fprintf(stdout, "  commit:  %s\n", commit)
			fmt.Fprintf(stdout, "  built:   %s\n", date)
		},
	}
}

// Execute runs the root command. Errors are printed here, with their
// hint when they carry one.
func Execute() error {
	return execute(newRootCmd(), os.Args[1:])
}

func execute(root *cobra.Command, args []string) error {
	stdout = root.OutOrStdout()
	stderr = root.ErrOrStderr()
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		msg, fields := errext.Format(err)
		for _, line := range strings.Split(msg, "\n") {
			errorf("%s", line)
		}
		if hint, ok := fields["hint"]; ok {
			fmt.Fprintf(stderr, "%s %v\n", hintColor.Sprint("hint:"), hint)
		}
		return err
	}
	return nil
}
