package codetune

const (
	rootCommandUse   = "codetune"
	rootCommandShort = "Check, optionally rewrite, and format source code"

	runCommandUse   = "run JOB"
	runCommandShort = "Run the full pipeline on a JSON job file"
	runCommandLong  = "Run the full analyse-rewrite-format-reanalyse pipeline on a JSON job file\n" +
		"with string fields 'code' and 'query' (and an optional 'language')."

	optimiseCommandUse   = "optimise FILE INSTRUCTION"
	optimiseCommandShort = "Rewrite a source file according to an instruction"

	checkCommandUse   = "check FILE"
	checkCommandShort = "Report syntax and static-analysis findings for a source file"

	languagesCommandUse   = "languages"
	languagesCommandShort = "List supported languages and their capabilities"

	configFlagName  = "config"
	configFlagUsage = "Path to codetune.yaml (default: ./codetune.yaml, then ~/.codetune/config.yaml)"

	languageFlagName  = "lang"
	languageFlagUsage = "Language toolchain to use (overrides file-extension detection)"

	modelFlagName  = "model"
	modelFlagUsage = "Override the default model by name (must exist in models[])"

	timeoutFlagName  = "timeout"
	timeoutFlagUsage = "Per-request timeout for model calls (e.g., 45s; 0 = use defaults)"

	outputFlagName      = "output"
	outputFlagShorthand = "o"
	outputFlagUsage     = "Write the final code to FILE instead of stdout"

	initialAnalysisHeader   = "Initial code analysis:"
	optimisedAnalysisHeader = "Optimised code analysis:"
	optimisedCodeHeader     = "Optimised code:"

	consoleLoggingFormatName = "console"

	missingJobFieldsErrorMessage = "JSON must contain 'code' and 'query' fields"

	configurationLoaderInitializationErrorFormat = "initialize configuration loader: %v"
	configurationSourceResolutionErrorFormat     = "resolve configuration source: %v"
	rootConfigurationLoadErrorFormat             = "load root configuration %s: %v"
	buildLoggerErrorFormat                       = "build logger: %v"
	unknownLanguageErrorFormat                   = "unknown language %q (run %q to see supported languages)"
	unknownModelErrorFormat                      = "model %q not found in models[]"
	jobFileNotFoundErrorFormat                   = "job file %s does not exist"
	readJobErrorFormat                           = "read job file %s: %w"
	decodeJobErrorFormat                         = "decode job file %s: %w"
	sourceFileNotFoundErrorFormat                = "source file %s does not exist"
	readSourceErrorFormat                        = "read source file %s: %w"
	writeOutputErrorFormat                       = "write output %s: %w"
	writeResultErrorFormat                       = "write result: %w"
	writeLanguageListingErrorFormat              = "write language listing: %w"
)
