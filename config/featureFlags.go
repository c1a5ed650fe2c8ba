package config

import (
	"os"
	"strings"
	"time"
)

// StrictPipelineFailures switches the pipeline from degrade-and-continue to
// halting: a failed validation/assessment capability moves the report into the
// terminal validation_failed/analysis_failed states instead of synthesizing a
// low-confidence fallback outcome.
//
// Set via env:
// - STRICT_PIPELINE_FAILURES=true
func StrictPipelineFailures() bool {
	return boolFromEnv("STRICT_PIPELINE_FAILURES")
}

// PipelineStageTimeout bounds every single capability call
// (validate / assess / compose). After the timeout the pipeline proceeds with
// the fallback outcome; the call is never retried.
//
// Set via env:
// - PIPELINE_STAGE_TIMEOUT_SECONDS=30
func PipelineStageTimeout() time.Duration {
	seconds := intFromEnv("PIPELINE_STAGE_TIMEOUT_SECONDS", 30)
	if seconds <= 0 {
		seconds = 30
	}
	return time.Duration(seconds) * time.Second
}

// DisableBackgroundPipeline makes report submission run the assessment
// pipeline inline instead of in a per-report goroutine. Meant for debugging
// and one-off tooling, not production.
//
// Set via env:
// - DISABLE_BACKGROUND_PIPELINE=true
func DisableBackgroundPipeline() bool {
	return boolFromEnv("DISABLE_BACKGROUND_PIPELINE")
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
