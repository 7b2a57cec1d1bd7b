package codetune

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codetune/internal/config"
	"codetune/internal/langs"
	"codetune/internal/langs/golang"
	"codetune/internal/langs/python"
	"codetune/internal/llm"
	"codetune/internal/report"
)

// serviceOptions are the flags shared by every command that talks to a
// toolchain or the model provider.
type serviceOptions struct {
	configPath    string
	languageName  string
	modelOverride string
	timeout       time.Duration
}

func registerServiceFlags(command *cobra.Command, options *serviceOptions) {
	command.Flags().StringVar(&options.configPath, configFlagName, "", configFlagUsage)
	command.Flags().StringVar(&options.languageName, languageFlagName, "", languageFlagUsage)
	command.Flags().StringVar(&options.modelOverride, modelFlagName, "", modelFlagUsage)
	command.Flags().DurationVar(&options.timeout, timeoutFlagName, 0, timeoutFlagUsage)
}

// pipelineServices is everything a command needs to run checks and rewrites
// for one resolved language and model.
type pipelineServices struct {
	rootConfiguration config.Root
	logger            *zap.Logger
	toolchain         *langs.Toolchain
	rewriter          *llm.Rewriter
	reporter          *report.Reporter
}

// buildPipelineServices loads configuration and assembles the toolchain,
// rewriter, and reporter. The language is resolved from, in order, the --lang
// flag, the job's language field, the source file extension, and the
// configured default. A missing credential disables the rewriter silently.
func buildPipelineServices(options serviceOptions, sourcePath string, jobLanguage string) (pipelineServices, error) {
	rootConfiguration, configurationErr := loadRootConfiguration(options.configPath)
	if configurationErr != nil {
		return pipelineServices{}, configurationErr
	}

	logger, loggerErr := buildLogger(rootConfiguration)
	if loggerErr != nil {
		return pipelineServices{}, fmt.Errorf(buildLoggerErrorFormat, loggerErr)
	}

	languageName := strings.TrimSpace(options.languageName)
	if languageName == "" {
		languageName = strings.TrimSpace(jobLanguage)
	}
	toolchain, toolchainErr := resolveToolchain(newToolchainRegistry(), languageName, sourcePath, rootConfiguration)
	if toolchainErr != nil {
		return pipelineServices{}, toolchainErr
	}

	model, modelErr := resolveModel(rootConfiguration, options.modelOverride)
	if modelErr != nil {
		return pipelineServices{}, modelErr
	}

	effectiveTimeout := rootConfiguration.Timeout()
	if options.timeout > 0 {
		effectiveTimeout = options.timeout
	}

	var client *llm.Client
	if apiKey := rootConfiguration.ResolveAPIKey(); apiKey != "" {
		client = llm.NewClient(rootConfiguration.Common.API.Endpoint, apiKey, effectiveTimeout)
	}
	rewriter := llm.NewRewriter(llm.RewriterOptions{
		Client:              client,
		Model:               model.ModelID,
		MaxCompletionTokens: model.MaxCompletionTokens,
		LanguageLabel:       toolchain.Label,
		CommentPrefix:       toolchain.CommentPrefix,
		Timeout:             effectiveTimeout,
		Logger:              logger,
	})

	var advisor report.Advisor
	if rewriter.Enabled() {
		advisor = rewriter
	}
	reporter := report.NewReporter(toolchain.Checker, toolchain.Analyzer, advisor)

	return pipelineServices{
		rootConfiguration: rootConfiguration,
		logger:            logger,
		toolchain:         toolchain,
		rewriter:          rewriter,
		reporter:          reporter,
	}, nil
}

func loadRootConfiguration(configurationPath string) (config.Root, error) {
	configurationLoader, loaderErr := config.NewDefaultRootConfigurationLoader()
	if loaderErr != nil {
		return config.Root{}, fmt.Errorf(configurationLoaderInitializationErrorFormat, loaderErr)
	}
	configurationSource, sourceErr := configurationLoader.Load(configurationPath)
	if sourceErr != nil {
		return config.Root{}, fmt.Errorf(configurationSourceResolutionErrorFormat, sourceErr)
	}
	rootConfiguration, loadErr := config.LoadRoot(configurationSource)
	if loadErr != nil {
		return config.Root{}, fmt.Errorf(rootConfigurationLoadErrorFormat, configurationSource.Reference, loadErr)
	}
	return rootConfiguration, nil
}

// buildLogger derives a zap logger from common.logging. Output goes to stderr
// so stdout stays a clean data channel for reports and code.
func buildLogger(rootConfiguration config.Root) (*zap.Logger, error) {
	level, parseErr := zapcore.ParseLevel(rootConfiguration.Common.Logging.Level)
	if parseErr != nil {
		return nil, parseErr
	}

	loggerConfiguration := zap.NewProductionConfig()
	if rootConfiguration.Common.Logging.Format == consoleLoggingFormatName {
		loggerConfiguration = zap.NewDevelopmentConfig()
	}
	loggerConfiguration.Level = zap.NewAtomicLevelAt(level)
	loggerConfiguration.OutputPaths = []string{"stderr"}
	loggerConfiguration.ErrorOutputPaths = []string{"stderr"}
	return loggerConfiguration.Build()
}

func newToolchainRegistry() *langs.Registry {
	registry := langs.NewRegistry()
	registry.Register(python.NewToolchain())
	registry.Register(golang.NewToolchain())
	return registry
}

func resolveToolchain(registry *langs.Registry, languageName string, sourcePath string, rootConfiguration config.Root) (*langs.Toolchain, error) {
	if languageName != "" {
		toolchain, found := registry.Lookup(languageName)
		if !found {
			return nil, fmt.Errorf(unknownLanguageErrorFormat, languageName, rootCommandUse+" "+languagesCommandUse)
		}
		return toolchain, nil
	}

	if sourcePath != "" {
		if toolchain, found := registry.ByExtension(filepath.Ext(sourcePath)); found {
			return toolchain, nil
		}
	}

	defaultLanguage := rootConfiguration.Common.Defaults.Language
	toolchain, found := registry.Lookup(defaultLanguage)
	if !found {
		return nil, fmt.Errorf(unknownLanguageErrorFormat, defaultLanguage, rootCommandUse+" "+languagesCommandUse)
	}
	return toolchain, nil
}

func resolveModel(rootConfiguration config.Root, modelOverride string) (config.Model, error) {
	override := strings.TrimSpace(modelOverride)
	if override != "" {
		model, found := rootConfiguration.FindModel(override)
		if !found {
			return config.Model{}, fmt.Errorf(unknownModelErrorFormat, override)
		}
		return model, nil
	}

	model, found := rootConfiguration.DefaultModel()
	if !found {
		return config.Model{}, fmt.Errorf(unknownModelErrorFormat, "")
	}
	return model, nil
}
