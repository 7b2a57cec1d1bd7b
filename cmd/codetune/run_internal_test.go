package codetune

import (
	"strings"
	"testing"

	"codetune/internal/config"
)

func TestDecodePipelineJob(t *testing.T) {
	testCases := []struct {
		name          string
		jobContent    string
		expected      pipelineJob
		expectedError string
	}{
		{
			name:       "complete job",
			jobContent: `{"code":"x=1","query":"speed","language":"go"}`,
			expected:   pipelineJob{Code: "x=1", Query: "speed", Language: "go"},
		},
		{
			name:       "empty strings are legal values",
			jobContent: `{"code":"","query":""}`,
			expected:   pipelineJob{},
		},
		{
			name:          "missing code",
			jobContent:    `{"query":"speed"}`,
			expectedError: missingJobFieldsErrorMessage,
		},
		{
			name:          "missing query",
			jobContent:    `{"code":"x=1"}`,
			expectedError: missingJobFieldsErrorMessage,
		},
		{
			name:          "null query",
			jobContent:    `{"code":"x=1","query":null}`,
			expectedError: missingJobFieldsErrorMessage,
		},
		{
			name:          "malformed payload",
			jobContent:    `{"code":`,
			expectedError: "decode job file",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			job, decodeErr := decodePipelineJob("job.json", testCase.jobContent)

			if testCase.expectedError != "" {
				if decodeErr == nil || !strings.Contains(decodeErr.Error(), testCase.expectedError) {
					t.Fatalf("expected error containing %q, got: %v", testCase.expectedError, decodeErr)
				}
				return
			}
			if decodeErr != nil {
				t.Fatalf("decode job: %v", decodeErr)
			}
			if job != testCase.expected {
				t.Fatalf("unexpected job: %+v", job)
			}
		})
	}
}

func TestResolveToolchainPrecedence(t *testing.T) {
	registry := newToolchainRegistry()
	rootConfiguration := config.Root{}
	rootConfiguration.Common.Defaults.Language = "python"

	testCases := []struct {
		name         string
		languageName string
		sourcePath   string
		expectedName string
	}{
		{name: "explicit name wins over extension", languageName: "GO", sourcePath: "script.py", expectedName: "go"},
		{name: "extension selects toolchain", sourcePath: "script.py", expectedName: "python"},
		{name: "unknown extension falls back to default", sourcePath: "notes.txt", expectedName: "python"},
		{name: "no hints uses configured default", expectedName: "python"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			toolchain, resolveErr := resolveToolchain(registry, testCase.languageName, testCase.sourcePath, rootConfiguration)
			if resolveErr != nil {
				t.Fatalf("resolve toolchain: %v", resolveErr)
			}
			if toolchain.Name != testCase.expectedName {
				t.Fatalf("expected toolchain %q, got %q", testCase.expectedName, toolchain.Name)
			}
		})
	}
}

func TestResolveToolchainUnknownLanguage(t *testing.T) {
	registry := newToolchainRegistry()
	rootConfiguration := config.Root{}
	rootConfiguration.Common.Defaults.Language = "python"

	if _, resolveErr := resolveToolchain(registry, "rust", "", rootConfiguration); resolveErr == nil {
		t.Fatalf("expected error for unknown explicit language")
	}

	rootConfiguration.Common.Defaults.Language = "rust"
	if _, resolveErr := resolveToolchain(registry, "", "", rootConfiguration); resolveErr == nil {
		t.Fatalf("expected error for unknown default language")
	}
}

func TestResolveModel(t *testing.T) {
	rootConfiguration := config.Root{
		Models: []config.Model{
			{Name: "primary", ModelID: "model-1", Default: true},
			{Name: "alternate", ModelID: "model-2"},
		},
	}

	model, resolveErr := resolveModel(rootConfiguration, "")
	if resolveErr != nil || model.Name != "primary" {
		t.Fatalf("expected default model, got %+v (err: %v)", model, resolveErr)
	}

	model, resolveErr = resolveModel(rootConfiguration, "alternate")
	if resolveErr != nil || model.ModelID != "model-2" {
		t.Fatalf("expected override model, got %+v (err: %v)", model, resolveErr)
	}

	if _, resolveErr = resolveModel(rootConfiguration, "missing"); resolveErr == nil {
		t.Fatalf("expected error for unknown model override")
	}
}
