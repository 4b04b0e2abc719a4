package rtasm

import (
	"os"
	"testing"

	"github.com/xyproto/env/v2"
)

func TestLoadConfigReadsEnvVars(t *testing.T) {
	for _, kv := range [][2]string{
		{"RTASM_VALIDATE", "1"},
		{"RTASM_OPTIMIZED_ALIGN", "1"},
		{"RTASM_LOG", ""},
	} {
		if kv[1] == "" {
			os.Unsetenv(kv[0])
		} else {
			os.Setenv(kv[0], kv[1])
		}
	}
	defer os.Unsetenv("RTASM_VALIDATE")
	defer os.Unsetenv("RTASM_OPTIMIZED_ALIGN")
	env.Load()

	cfg := LoadConfig()
	if !cfg.Validate {
		t.Error("RTASM_VALIDATE=1 should set Config.Validate")
	}
	if !cfg.OptimizedAlign {
		t.Error("RTASM_OPTIMIZED_ALIGN=1 should set Config.OptimizedAlign")
	}
	if cfg.Log {
		t.Error("unset RTASM_LOG should leave Config.Log false")
	}
}

func TestConfigDiagnosticAndEncodingOptions(t *testing.T) {
	cfg := Config{Validate: true, OptimizedAlign: true}
	if cfg.diagnosticOptions()&ValidateAssembler == 0 {
		t.Error("Validate should set ValidateAssembler")
	}
	if cfg.encodingOptions()&OptimizedAlign == 0 {
		t.Error("OptimizedAlign should set the OptimizedAlign encoding bit")
	}

	off := Config{}
	if off.diagnosticOptions() != DiagnosticOptionNone {
		t.Error("zero-value Config should produce no diagnostic options")
	}
	if off.encodingOptions() != EncodingOptionNone {
		t.Error("zero-value Config should produce no encoding options")
	}
}
