// Package config loads the root configuration: API endpoint and credential
// source, logging, per-run defaults, and the model catalog. Files are YAML;
// any common.* key may be overridden through CODETUNE_* environment
// variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const (
	environmentVariablePrefix = "CODETUNE"

	defaultAPIEndpoint              = "https://api.groq.com/openai/v1"
	defaultAPIKeyEnvironmentName    = "GROQ_API_KEY"
	defaultLoggingLevel             = "warn"
	defaultLoggingFormat            = "json"
	defaultLanguageName             = "python"
	defaultTimeoutSeconds           = 45
	loggingFormatJSON               = "json"
	loggingFormatConsole            = "console"
	apiEndpointConfigurationKey     = "common.api.endpoint"
	apiKeyEnvConfigurationKey       = "common.api.api_key_env"
	loggingLevelConfigurationKey    = "common.logging.level"
	loggingFormatConfigurationKey   = "common.logging.format"
	defaultLanguageConfigurationKey = "common.defaults.language"
	timeoutSecondsConfigurationKey  = "common.defaults.timeout_seconds"

	emptyModelsErrorMessage                  = "config.models is empty"
	missingDefaultModelErrorMessage          = "no default model found (set models[].default: true)"
	multipleDefaultModelsErrorMessage        = "multiple default models found (set models[].default: true on exactly one)"
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationParseErrorFormat        = "parse root configuration %s: %w"
	rootConfigurationDecodeErrorFormat       = "decode root configuration %s: %w"
	invalidLoggingLevelErrorFormat           = "invalid logging level %q"
	invalidLoggingFormatErrorFormat          = "invalid logging format %q (expected json or console)"
)

type Root struct {
	Common Common  `mapstructure:"common"`
	Models []Model `mapstructure:"models"`
}

type Common struct {
	API struct {
		Endpoint  string `mapstructure:"endpoint"`
		APIKeyEnv string `mapstructure:"api_key_env"`
	} `mapstructure:"api"`
	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
	Defaults struct {
		Language       string `mapstructure:"language"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"defaults"`
}

type Model struct {
	Name                string `mapstructure:"name"`
	ModelID             string `mapstructure:"model_id"`
	Default             bool   `mapstructure:"default"`
	MaxCompletionTokens int    `mapstructure:"max_completion_tokens"`
}

// LoadRoot parses the provided configuration source, applies environment
// overrides, and validates required fields.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	parser := viper.New()
	parser.SetConfigType("yaml")
	parser.SetDefault(apiEndpointConfigurationKey, defaultAPIEndpoint)
	parser.SetDefault(apiKeyEnvConfigurationKey, defaultAPIKeyEnvironmentName)
	parser.SetDefault(loggingLevelConfigurationKey, defaultLoggingLevel)
	parser.SetDefault(loggingFormatConfigurationKey, defaultLoggingFormat)
	parser.SetDefault(defaultLanguageConfigurationKey, defaultLanguageName)
	parser.SetDefault(timeoutSecondsConfigurationKey, defaultTimeoutSeconds)
	parser.SetEnvPrefix(environmentVariablePrefix)
	parser.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	parser.AutomaticEnv()

	if parseError := parser.ReadConfig(bytes.NewReader(source.Content)); parseError != nil {
		return Root{}, fmt.Errorf(rootConfigurationParseErrorFormat, source.Reference, parseError)
	}

	var rootConfiguration Root
	if decodeError := parser.Unmarshal(&rootConfiguration); decodeError != nil {
		return Root{}, fmt.Errorf(rootConfigurationDecodeErrorFormat, source.Reference, decodeError)
	}

	if validationError := rootConfiguration.validate(); validationError != nil {
		return Root{}, validationError
	}
	return rootConfiguration, nil
}

func (root Root) validate() error {
	if len(root.Models) == 0 {
		return errors.New(emptyModelsErrorMessage)
	}
	defaultCount := 0
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Default {
			defaultCount++
		}
	}
	if defaultCount == 0 {
		return errors.New(missingDefaultModelErrorMessage)
	}
	if defaultCount > 1 {
		return errors.New(multipleDefaultModelsErrorMessage)
	}

	if _, levelError := zapcore.ParseLevel(root.Common.Logging.Level); levelError != nil {
		return fmt.Errorf(invalidLoggingLevelErrorFormat, root.Common.Logging.Level)
	}
	loggingFormat := root.Common.Logging.Format
	if loggingFormat != loggingFormatJSON && loggingFormat != loggingFormatConsole {
		return fmt.Errorf(invalidLoggingFormatErrorFormat, loggingFormat)
	}
	return nil
}

func (root Root) DefaultModel() (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Default {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

func (root Root) FindModel(name string) (Model, bool) {
	for _, modelConfiguration := range root.Models {
		if modelConfiguration.Name == name {
			return modelConfiguration, true
		}
	}
	return Model{}, false
}

// Timeout converts the configured timeout seconds into a duration, falling
// back to the default when the value is absent or not positive.
func (root Root) Timeout() time.Duration {
	seconds := root.Common.Defaults.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}
	return time.Duration(seconds) * time.Second
}

// ResolveAPIKey reads the provider credential from the configured environment
// variable. An empty result means LLM behaviors stay disabled.
func (root Root) ResolveAPIKey() string {
	environmentVariableName := root.Common.API.APIKeyEnv
	if environmentVariableName == "" {
		return ""
	}
	return os.Getenv(environmentVariableName)
}
