package codetune

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const (
	syntaxCapabilityLabel = "syntax"
	lintCapabilityLabel   = "lint"
	formatCapabilityLabel = "format"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   languagesCommandUse,
		Short: languagesCommandShort,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return runLanguagesCommand(command)
		},
	}
}

func runLanguagesCommand(command *cobra.Command) error {
	registry := newToolchainRegistry()
	outputWriter := command.OutOrStdout()

	for _, languageName := range registry.Names() {
		toolchain, found := registry.Lookup(languageName)
		if !found {
			continue
		}

		capabilities := []string{syntaxCapabilityLabel}
		if toolchain.CanAnalyze() {
			capabilities = append(capabilities, lintCapabilityLabel)
		}
		if toolchain.CanFormat() {
			capabilities = append(capabilities, formatCapabilityLabel)
		}

		_, writeErr := fmt.Fprintf(outputWriter, "%s\t(%s, extensions: %s, checks: %s)\n",
			languageName,
			toolchain.Label,
			strings.Join(toolchain.Extensions, " "),
			strings.Join(capabilities, "+"))
		if writeErr != nil {
			return fmt.Errorf(writeLanguageListingErrorFormat, writeErr)
		}
	}

	return nil
}
