package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ╦┌─┐┌┐┌┌─┐┌─┐  ┬  ┬┬  ┬┌─┐
  ╚╗╔╝├─┤││││ ┬│ │  │  │└┐┌┘├┤
   ╚╝ ┴ ┴┘└┘└─┘└─┘  ┴─┘┴ └┘ └─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "vango-live",
		Short: "Server-driven components over WebSocket",
		Long: `vango-live runs component trees on the server and keeps a browser
view in sync over a WebSocket.

Each connection gets its own layout: events from the client run
handlers on the server, and the changed parts of the tree are sent
back as JSON patches.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
