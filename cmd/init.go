package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/klasroom/taskintake/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file interactively",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(cfgFile); err == nil && !initForce {
			exitOnError(fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile))
		}
		_, err := config.RunWizard(cfgFile)
		exitOnError(err)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
