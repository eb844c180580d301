package cmd

import (
	"fmt"

	"github.com/fatih/color"

	"github.com/bianoble/linkset/pkg/linkset"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	hintColor  = color.New(color.FgCyan)
	warnColor  = color.New(color.FgYellow)
	okColor    = color.New(color.FgGreen)
	faintColor = color.New(color.Faint)
)

// newClient creates a library client from the global flags.
func newClient() (*linkset.Client, error) {
	return linkset.New(linkset.Options{
		Dir:        workDir,
		ConfigPath: configPath,
		NoInherit:  noInherit,
		Log:        logger,
	})
}

// output prints a line of primary output. It is never suppressed.
func output(format string, args ...any) {
	fmt.Fprintf(stdout, format+"\n", args...)
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Fprintf(stdout, "  "+format+"\n", args...)
	}
}

// errorf prints an error message to stderr.
func errorf(format string, args ...any) {
	fmt.Fprintf(stderr, errorColor.Sprint("error:")+" "+format+"\n", args...)
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
