package codetune

import (
	"fmt"

	"github.com/spf13/cobra"

	"codetune/internal/fsops"
	"codetune/internal/pipeline"
)

type optimiseCommandOptions struct {
	serviceOptions
	outputPath string
}

func newOptimiseCommand() *cobra.Command {
	options := &optimiseCommandOptions{}

	command := &cobra.Command{
		Use:   optimiseCommandUse,
		Short: optimiseCommandShort,
		Args:  cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runOptimiseCommand(command, *options, arguments[0], arguments[1])
		},
	}

	registerServiceFlags(command, &options.serviceOptions)
	command.Flags().StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagUsage)

	return command
}

// runOptimiseCommand rewrites one source file under an instruction and emits
// only the resulting code. No reports are produced on this path.
func runOptimiseCommand(command *cobra.Command, options optimiseCommandOptions, sourcePath string, instruction string) error {
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

	runner := pipeline.Runner{
		Rewriter:  services.rewriter,
		Formatter: services.toolchain.Formatter,
		Logger:    services.logger,
	}
	optimisedCode := runner.Transform(command.Context(), sourceCode, instruction)

	if options.outputPath != "" {
		if writeErr := fileOperations.WriteOutput(options.outputPath, optimisedCode); writeErr != nil {
			return fmt.Errorf(writeOutputErrorFormat, options.outputPath, writeErr)
		}
		return nil
	}

	_, writeErr := fmt.Fprintln(command.OutOrStdout(), optimisedCode)
	if writeErr != nil {
		return fmt.Errorf(writeResultErrorFormat, writeErr)
	}
	return nil
}
