package codetune

import (
	"github.com/spf13/cobra"
)

// NewRootCommand assembles the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	command := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	command.AddCommand(newRunCommand())
	command.AddCommand(newOptimiseCommand())
	command.AddCommand(newCheckCommand())
	command.AddCommand(newLanguagesCommand())
	return command
}

// Execute runs the root command and returns its error for main to report.
func Execute() error {
	return NewRootCommand().Execute()
}
