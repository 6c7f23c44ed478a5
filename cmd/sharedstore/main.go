package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/sharedstore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd := rootCmd()
	if err := cmd.Execute(); err != nil {
		printError(os.Stderr, cmd, err)
		os.Exit(1)
	}
}

// printError reports a command failure in the format chosen with
// --json-errors.
func printError(w io.Writer, cmd *cobra.Command, err error) {
	if asJSON, _ := cmd.PersistentFlags().GetBool("json-errors"); asJSON {
		errors.FprintJSON(w, err)
		return
	}
	errors.Fprint(w, err)
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "sharedstore",
		Short: "A shared key/value store with change notifications",
		Long: `sharedstore runs a process-local shared state store.

Consumers subscribe to the store, keep a mirror of its state, and
react to every change with the previous state, the changed keys and
the new state.

Commands:
  • demo    mount the example order form and click it
  • serve   run the HTTP inspector for a live store
  • config  create and check sharedstore.json
  • errors  list error codes and explain one`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to sharedstore.json (default: search from the working directory)")
	cmd.PersistentFlags().Bool("json-errors", false, "Print errors as JSON")

	cmd.AddCommand(
		demoCmd(&configPath),
		serveCmd(&configPath),
		configCmd(&configPath),
		errorsCmd(),
		versionCmd(),
	)

	return cmd
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}
