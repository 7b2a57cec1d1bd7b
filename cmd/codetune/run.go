package codetune

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"codetune/internal/fsops"
	"codetune/internal/pipeline"
)

var sectionHeaderColor = color.New(color.Bold)

type runCommandOptions struct {
	serviceOptions
	outputPath string
}

// pipelineJob is the decoded JSON job. Code and query are required; an empty
// string is a legal value for either.
type pipelineJob struct {
	Code     string
	Query    string
	Language string
}

func newRunCommand() *cobra.Command {
	options := &runCommandOptions{}

	command := &cobra.Command{
		Use:   runCommandUse,
		Short: runCommandShort,
		Long:  runCommandLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return runPipelineJob(command, *options, arguments[0])
		},
	}

	registerServiceFlags(command, &options.serviceOptions)
	command.Flags().StringVarP(&options.outputPath, outputFlagName, outputFlagShorthand, "", outputFlagUsage)

	return command
}

func runPipelineJob(command *cobra.Command, options runCommandOptions, jobPath string) error {
	fileOperations := fsops.NewOps(fsops.NewOS())

	if !fileOperations.FileExists(jobPath) {
		return fmt.Errorf(jobFileNotFoundErrorFormat, jobPath)
	}
	jobContent, readErr := fileOperations.ReadSource(jobPath)
	if readErr != nil {
		return fmt.Errorf(readJobErrorFormat, jobPath, readErr)
	}
	job, jobErr := decodePipelineJob(jobPath, jobContent)
	if jobErr != nil {
		return jobErr
	}

	services, servicesErr := buildPipelineServices(options.serviceOptions, "", job.Language)
	if servicesErr != nil {
		return servicesErr
	}
	defer func() { _ = services.logger.Sync() }()

	runner := pipeline.Runner{
		Reporter:  services.reporter,
		Rewriter:  services.rewriter,
		Formatter: services.toolchain.Formatter,
		Logger:    services.logger,
	}
	result := runner.Run(command.Context(), job.Code, job.Query)

	outputWriter := command.OutOrStdout()
	if writeErr := writeReportSection(outputWriter, initialAnalysisHeader, result.InitialReport.String(), false); writeErr != nil {
		return writeErr
	}
	if writeErr := writeReportSection(outputWriter, optimisedAnalysisHeader, result.FinalReport.String(), true); writeErr != nil {
		return writeErr
	}

	if options.outputPath != "" {
		if writeErr := fileOperations.WriteOutput(options.outputPath, result.OptimisedCode); writeErr != nil {
			return fmt.Errorf(writeOutputErrorFormat, options.outputPath, writeErr)
		}
		return nil
	}
	return writeReportSection(outputWriter, optimisedCodeHeader, result.OptimisedCode, true)
}

func decodePipelineJob(jobPath string, jobContent string) (pipelineJob, error) {
	var payload struct {
		Code     *string `json:"code"`
		Query    *string `json:"query"`
		Language string  `json:"language"`
	}
	if decodeErr := json.Unmarshal([]byte(jobContent), &payload); decodeErr != nil {
		return pipelineJob{}, fmt.Errorf(decodeJobErrorFormat, jobPath, decodeErr)
	}
	if payload.Code == nil || payload.Query == nil {
		return pipelineJob{}, errors.New(missingJobFieldsErrorMessage)
	}
	return pipelineJob{Code: *payload.Code, Query: *payload.Query, Language: payload.Language}, nil
}

// writeReportSection prints a bold header followed by the section body. A
// preceding blank line separates every section after the first.
func writeReportSection(writer io.Writer, header string, body string, separate bool) error {
	separator := ""
	if separate {
		separator = "\n"
	}
	_, writeErr := fmt.Fprintf(writer, "%s%s\n%s\n", separator, sectionHeaderColor.Sprint(header), body)
	if writeErr != nil {
		return fmt.Errorf(writeResultErrorFormat, writeErr)
	}
	return nil
}
