// Scaffy - learning scaffold service
//
// Turn a programming assignment into a guided task breakdown with
// starter code, so learners build the solution instead of pasting it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	serverURL string
)

var rootCmd = &cobra.Command{
	Use:   "scaffy",
	Short: "Scaffy - learning scaffold service",
	Long: `Scaffy turns a programming assignment into a guided task breakdown
with starter code, so learners build the solution instead of pasting it.

  scaffy serve                            Start the server
  scaffy submit assignment.md --lang go   Submit an assignment
  scaffy list                             List archived sessions
  scaffy status                           Show the current session`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("SCAFFY_SERVER", "http://localhost:7090"), "Scaffy server URL")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
