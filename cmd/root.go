package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "taskintake",
	Short: "Voice and text task intake for school task management",
	Long: `Taskintake turns a free-form voice or text instruction from a teacher
into a structured, confidence-scored task draft. Each extracted field
carries a provenance and confidence, ambiguous class/subject mentions
are returned as ranked candidates, and every attempt is recorded in
the intake log for later review and model-quality analysis.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".taskintake.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
