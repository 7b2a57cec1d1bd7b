package codetune

import (
	"fmt"

	"github.com/spf13/cobra"

	"codetune/internal/fsops"
)

type checkCommandOptions struct {
	serviceOptions
}

func newCheckCommand() *cobra.Command {
	options := &checkCommandOptions{}

	command := &cobra.Command{
		Use:   checkCommandUse,
		Short: checkCommandShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runCheckCommand(command, *options, arguments[0])
		},
	}

	registerServiceFlags(command, &options.serviceOptions)

	return command
}

// runCheckCommand prints one diagnostic report for the file and nothing else.
// The model commentary block appears when a credential is configured.
func runCheckCommand(command *cobra.Command, options checkCommandOptions, sourcePath string) error {
	fileOperations := fsops.NewOps(fsops.NewOS())

	if !fileOperations.FileExists(sourcePath) {
		return fmt.Errorf(sourceFileNotFoundErrorFormat, sourcePath)
	}
	sourceCode, readErr := fileOperations.ReadSource(sourcePath)
	if readErr != nil {
		return fmt.Errorf(readSourceErrorFormat, sourcePath, readErr)
	}

	services, servicesErr := buildPipelineServices(options.serviceOptions, sourcePath, "")
	if servicesErr != nil {
		return servicesErr
	}
	defer func() { _ = services.logger.Sync() }()

	diagnosticReport := services.reporter.Report(command.Context(), sourceCode)
	_, writeErr := fmt.Fprintln(command.OutOrStdout(), diagnosticReport.String())
	if writeErr != nil {
		return fmt.Errorf(writeResultErrorFormat, writeErr)
	}
	return nil
}
