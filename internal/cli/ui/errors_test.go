package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestFormatError(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "UNKNOWN WEIGHT",
				Problem: "No weight 'Blod' in this project.",
			},
			contains: []string{
				"❌",
				"UNKNOWN WEIGHT",
				"No weight 'Blod' in this project.",
			},
		},
		{
			name: "error with suggestions",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "UNKNOWN WEIGHT",
				Problem:     "No weight 'Blod' in this project.",
				Suggestions: []string{"Bold", "Black"},
			},
			contains: []string{
				"Did you mean: Bold, Black?",
			},
		},
		{
			name: "error with help commands",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "BUILD FAILED",
				Problem: "Compiler exited with status 1",
				HelpCommands: []string{
					"Check the sources: fontmill lint",
					"Get help: fontmill build --help",
				},
			},
			contains: []string{
				"→ Check the sources: fontmill lint",
				"→ Get help: fontmill build --help",
			},
		},
		{
			name: "error with consequence",
			opts: ErrorOptions{
				Level:       ErrorLevelError,
				Context:     "COMPILER FAILED",
				Problem:     "fontmake not found in PATH",
				Consequence: "No binaries were produced.",
			},
			contains: []string{
				"No binaries were produced.",
			},
		},
		{
			name: "warning level",
			opts: ErrorOptions{
				Level:   ErrorLevelWarning,
				Problem: "Stray drawing not named in the import config",
			},
			contains: []string{
				"⚠️",
				"Stray drawing not named in the import config",
			},
		},
		{
			name: "info level",
			opts: ErrorOptions{
				Level:   ErrorLevelInfo,
				Problem: "Nothing to rebuild",
			},
			contains: []string{
				"ℹ️",
				"Nothing to rebuild",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.NoColor = true
			result := FormatError(tt.opts)
			for _, want := range tt.contains {
				if !strings.Contains(result, want) {
					t.Errorf("FormatError() = %q, want it to contain %q", result, want)
				}
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	var buf bytes.Buffer
	WriteError(&buf, ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: "family must be set",
		NoColor: true,
	})

	if !strings.Contains(buf.String(), "CONFIGURATION ERROR") {
		t.Errorf("WriteError() wrote %q", buf.String())
	}
}

func TestFormatSuccess(t *testing.T) {
	result := FormatSuccess("Built 2 weights", true)
	if !strings.Contains(result, "✓ Built 2 weights") {
		t.Errorf("FormatSuccess() = %q", result)
	}
}

func TestWriteSuccess(t *testing.T) {
	var buf bytes.Buffer
	WriteSuccess(&buf, "Sources are clean", true)
	if !strings.Contains(buf.String(), "✓ Sources are clean") {
		t.Errorf("WriteSuccess() wrote %q", buf.String())
	}
}

func TestWeightNotFoundError(t *testing.T) {
	result := WeightNotFoundError("Blod", []string{"Bold"}, true)

	for _, want := range []string{
		"UNKNOWN WEIGHT",
		"No weight 'Blod' in this project.",
		"Did you mean: Bold?",
		"cat fontmill.yaml",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("WeightNotFoundError() = %q, want it to contain %q", result, want)
		}
	}
}

func TestBuildError(t *testing.T) {
	result := BuildError("Compiler exited with status 1", nil, true)

	for _, want := range []string{
		"BUILD FAILED",
		"fontmill lint",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("BuildError() = %q, want it to contain %q", result, want)
		}
	}
}

func TestCompilerError(t *testing.T) {
	result := CompilerError("fontmake not found in PATH", "No binaries were produced.", true)

	for _, want := range []string{
		"COMPILER FAILED",
		"No binaries were produced.",
		"fontmake --version",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("CompilerError() = %q, want it to contain %q", result, want)
		}
	}
}

func TestConfigError(t *testing.T) {
	result := ConfigError("designspace must be set", nil, true)

	if !strings.Contains(result, "CONFIGURATION ERROR") {
		t.Errorf("ConfigError() = %q", result)
	}
}

func TestWarningAndInfo(t *testing.T) {
	if !strings.Contains(Warning("heads up", nil, true), "heads up") {
		t.Error("Warning() lost the message")
	}
	if !strings.Contains(Info("fyi", true), "fyi") {
		t.Error("Info() lost the message")
	}
}
