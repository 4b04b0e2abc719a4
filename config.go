package rtasm

import "github.com/xyproto/env/v2"

// Config holds the process-environment-derived defaults consulted once by
// CodeHolder.Init. Overridable in code afterward — env only supplies the
// starting point, the same one-shot-default role the teacher's own
// env-var knobs play (VerboseMode and friends, read once at startup).
type Config struct {
	Validate       bool
	OptimizedAlign bool
	Log            bool
}

// LoadConfig reads RTASM_VALIDATE, RTASM_OPTIMIZED_ALIGN, and RTASM_LOG via
// github.com/xyproto/env/v2, each a truthy/falsy "1"-style flag.
func LoadConfig() Config {
	return Config{
		Validate:       env.Bool("RTASM_VALIDATE"),
		OptimizedAlign: env.Bool("RTASM_OPTIMIZED_ALIGN"),
		Log:            env.Bool("RTASM_LOG"),
	}
}

// diagnosticOptions/encodingOptions translate cfg into the bit flags
// NewAssembler/NewBuilder/NewCompiler seed a freshly constructed emitter
// with; callers can override either afterward through the normal
// SetDiagnosticOptions/SetEncodingOptions setters.
func (cfg Config) diagnosticOptions() DiagnosticOptions {
	var d DiagnosticOptions
	if cfg.Validate {
		d |= ValidateAssembler
	}
	return d
}

func (cfg Config) encodingOptions() EncodingOptions {
	var e EncodingOptions
	if cfg.OptimizedAlign {
		e |= OptimizedAlign
	}
	return e
}
