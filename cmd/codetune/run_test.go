package codetune_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"

	codetune "codetune/cmd/codetune"
)

const (
	testAPIKeyEnvironmentVariable = "CODETUNE_TEST_API_KEY"
	testAPIKeyValue               = "test-key"
	chatCompletionPath            = "/chat/completions"
	optimiserPromptMarker         = "code optimiser"
	missingJobFieldsMessage       = "JSON must contain 'code' and 'query' fields"
)

const testConfigurationTemplate = `common:
  api:
    endpoint: %s
    api_key_env: %s
  logging:
    level: error
    format: json
  defaults:
    language: python
    timeout_seconds: 5
models:
  - name: test-model
    model_id: test-model-id
    default: true
    max_completion_tokens: 256
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeTestConfiguration(t *testing.T, endpoint string) string {
	t.Helper()
	configurationPath := filepath.Join(t.TempDir(), "codetune.yaml")
	configurationContent := fmt.Sprintf(testConfigurationTemplate, endpoint, testAPIKeyEnvironmentVariable)
	if writeErr := os.WriteFile(configurationPath, []byte(configurationContent), 0o600); writeErr != nil {
		t.Fatalf("write configuration: %v", writeErr)
	}
	return configurationPath
}

func writeJobFile(t *testing.T, jobContent string) string {
	t.Helper()
	jobPath := filepath.Join(t.TempDir(), "job.json")
	if writeErr := os.WriteFile(jobPath, []byte(jobContent), 0o600); writeErr != nil {
		t.Fatalf("write job file: %v", writeErr)
	}
	return jobPath
}

func writeSourceFile(t *testing.T, fileName string, sourceContent string) string {
	t.Helper()
	sourcePath := filepath.Join(t.TempDir(), fileName)
	if writeErr := os.WriteFile(sourcePath, []byte(sourceContent), 0o600); writeErr != nil {
		t.Fatalf("write source file: %v", writeErr)
	}
	return sourcePath
}

func marshalJob(t *testing.T, job map[string]string) string {
	t.Helper()
	jobBytes, marshalErr := json.Marshal(job)
	if marshalErr != nil {
		t.Fatalf("marshal job: %v", marshalErr)
	}
	return string(jobBytes)
}

func executeCommand(arguments ...string) (string, error) {
	rootCommand := codetune.NewRootCommand()
	rootCommand.SetArgs(arguments)
	var commandOutput bytes.Buffer
	rootCommand.SetOut(&commandOutput)
	rootCommand.SetErr(&commandOutput)
	executionErr := rootCommand.Execute()
	return commandOutput.String(), executionErr
}

// providerCallCounts tracks how often the mock provider served each prompt
// kind; the optimiser prompt selects the rewrite reply, anything else the
// advisory reply.
type providerCallCounts struct {
	rewrite  int32
	advisory int32
}

func newMockProviderServer(t *testing.T, rewriteReply string, advisoryReply string, counts *providerCallCounts) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		if request.URL.Path != chatCompletionPath {
			t.Errorf("unexpected request path: %s", request.URL.Path)
		}

		requestBody, readErr := io.ReadAll(request.Body)
		if readErr != nil {
			t.Errorf("read request body: %v", readErr)
		}

		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if decodeErr := json.Unmarshal(requestBody, &payload); decodeErr != nil {
			t.Errorf("decode request body: %v", decodeErr)
		}
		if len(payload.Messages) == 0 {
			t.Errorf("request carries no messages")
		}

		reply := advisoryReply
		if len(payload.Messages) > 0 && strings.Contains(payload.Messages[0].Content, optimiserPromptMarker) {
			atomic.AddInt32(&counts.rewrite, 1)
			reply = rewriteReply
		} else {
			atomic.AddInt32(&counts.advisory, 1)
		}

		responseWriter.Header().Set("Content-Type", "application/json")
		responsePayload := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		}
		if encodeErr := json.NewEncoder(responseWriter).Encode(responsePayload); encodeErr != nil {
			t.Errorf("encode response: %v", encodeErr)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newFailingProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		http.Error(responseWriter, "backend unavailable", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunCommandWithoutCredentialKeepsCodeIntact(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	jobPath := writeJobFile(t, marshalJob(t, map[string]string{"code": "x=1", "query": "make it faster"}))

	commandOutput, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", executionErr, commandOutput)
	}

	expectedOutput := "Initial code analysis:\n" +
		"No syntax errors detected.\n" +
		"Lint: no issues found.\n" +
		"\n" +
		"Optimised code analysis:\n" +
		"No syntax errors detected.\n" +
		"Lint: no issues found.\n" +
		"\n" +
		"Optimised code:\n" +
		"x=1\n"
	if commandOutput != expectedOutput {
		t.Fatalf("unexpected output:\n%q\nwant:\n%q", commandOutput, expectedOutput)
	}
}

func TestRunCommandSyntaxErrorJobReportsLocation(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	jobPath := writeJobFile(t, marshalJob(t, map[string]string{"code": "def f(:\n    pass", "query": "fix it"}))

	commandOutput, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", executionErr, commandOutput)
	}

	if !strings.Contains(commandOutput, "Syntax error: line 1, column ") {
		t.Fatalf("expected syntax error with location, got:\n%s", commandOutput)
	}
	if !strings.HasSuffix(commandOutput, "Optimised code:\ndef f(:\n    pass\n") {
		t.Fatalf("expected broken code to pass through unchanged, got:\n%s", commandOutput)
	}
}

func TestRunCommandJobLanguageSelectsToolchain(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	jobPath := writeJobFile(t, marshalJob(t, map[string]string{
		"code":     "package main\nfunc  main( ) {}\n",
		"query":    "tidy",
		"language": "go",
	}))

	commandOutput, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", executionErr, commandOutput)
	}

	if !strings.HasSuffix(commandOutput, "Optimised code:\npackage main\n\nfunc main() {}\n\n") {
		t.Fatalf("expected formatted go code in output, got:\n%s", commandOutput)
	}
}

func TestRunCommandMissingFieldsFails(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")

	scenarios := []struct {
		name       string
		jobContent string
	}{
		{name: "missing code", jobContent: `{"query":"speed this up"}`},
		{name: "missing query", jobContent: `{"code":"x=1"}`},
		{name: "null code", jobContent: `{"code":null,"query":"speed this up"}`},
	}

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.name, func(t *testing.T) {
			jobPath := writeJobFile(t, scenario.jobContent)

			_, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
			if executionErr == nil {
				t.Fatalf("expected run to fail")
			}
			if executionErr.Error() != missingJobFieldsMessage {
				t.Fatalf("unexpected error: %v", executionErr)
			}
		})
	}
}

func TestRunCommandRejectsMalformedJob(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	jobPath := writeJobFile(t, "not json at all")

	_, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr == nil || !strings.Contains(executionErr.Error(), "decode job file") {
		t.Fatalf("expected decode error, got: %v", executionErr)
	}
}

func TestRunCommandMissingJobFileFails(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	missingPath := filepath.Join(t.TempDir(), "absent.json")

	_, executionErr := executeCommand("run", missingPath, "--config", configurationPath)
	if executionErr == nil || executionErr.Error() != "job file "+missingPath+" does not exist" {
		t.Fatalf("expected a not-found error, got: %v", executionErr)
	}
}

func TestRunCommandUnknownLanguageFails(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	jobPath := writeJobFile(t, marshalJob(t, map[string]string{"code": "x=1", "query": "speed", "language": "rust"}))

	_, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr == nil || !strings.Contains(executionErr.Error(), `unknown language "rust"`) {
		t.Fatalf("expected unknown language error, got: %v", executionErr)
	}
}

func TestRunCommandRewritesAndAdvisesThroughProvider(t *testing.T) {
	var counts providerCallCounts
	server := newMockProviderServer(t, "```python\ny = 2\n```", "Consider better naming.", &counts)
	configurationPath := writeTestConfiguration(t, server.URL)
	t.Setenv(testAPIKeyEnvironmentVariable, testAPIKeyValue)

	jobPath := writeJobFile(t, marshalJob(t, map[string]string{"code": "x=1", "query": "rename x"}))

	commandOutput, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", executionErr, commandOutput)
	}

	if got := atomic.LoadInt32(&counts.rewrite); got != 1 {
		t.Fatalf("expected exactly one rewrite call, got %d", got)
	}
	if got := atomic.LoadInt32(&counts.advisory); got != 2 {
		t.Fatalf("expected one advisory call per report, got %d", got)
	}
	if !strings.HasSuffix(commandOutput, "Optimised code:\ny = 2\n") {
		t.Fatalf("expected fenced reply to be unwrapped, got:\n%s", commandOutput)
	}
	if strings.Count(commandOutput, "Consider better naming.") != 2 {
		t.Fatalf("expected advisory in both reports, got:\n%s", commandOutput)
	}
}

func TestRunCommandProviderFailureAnnotatesCode(t *testing.T) {
	server := newFailingProviderServer(t)
	configurationPath := writeTestConfiguration(t, server.URL)
	t.Setenv(testAPIKeyEnvironmentVariable, testAPIKeyValue)

	jobPath := writeJobFile(t, marshalJob(t, map[string]string{"code": "x=1", "query": "speed this up"}))

	commandOutput, executionErr := executeCommand("run", jobPath, "--config", configurationPath)
	if executionErr != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", executionErr, commandOutput)
	}

	if !strings.Contains(commandOutput, "\nx=1\n# Error contacting Groq: ") {
		t.Fatalf("expected original code with failure annotation, got:\n%s", commandOutput)
	}
	if strings.Count(commandOutput, "Error contacting Groq: ") != 3 {
		t.Fatalf("expected two advisory failures and one annotation, got:\n%s", commandOutput)
	}
}

func TestRunCommandWritesOutputFile(t *testing.T) {
	configurationPath := writeTestConfiguration(t, "http://127.0.0.1:1")
	jobPath := writeJobFile(t, marshalJob(t, map[string]string{"code": "x=1", "query": "make it faster"}))
	outputPath := filepath.Join(t.TempDir(), "out", "result.py")

	commandOutput, executionErr := executeCommand("run", jobPath, "--config", configurationPath, "-o", outputPath)
	if executionErr != nil {
		t.Fatalf("execute run: %v\noutput:\n%s", executionErr, commandOutput)
	}

	if strings.Contains(commandOutput, "Optimised code:") {
		t.Fatalf("expected no code section when writing to a file, got:\n%s", commandOutput)
	}
	writtenBytes, readErr := os.ReadFile(outputPath)
	if readErr != nil {
		t.Fatalf("read output file: %v", readErr)
	}
	if string(writtenBytes) != "x=1" {
		t.Fatalf("unexpected output file content: %q", string(writtenBytes))
	}
}
