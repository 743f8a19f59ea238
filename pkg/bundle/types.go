package bundle

import "time"

// VersionBundle is a reproducibility snapshot: everything needed to answer
// "what code, model, and configuration produced the decisions of this
// run". One bundle per pipeline run, created at run start, immutable
// thereafter, referenced by every system decision the run produces.
type VersionBundle struct {
	// BundleID uniquely identifies the bundle.
	BundleID string `json:"bundle_id"`

	// RunID is the pipeline run the bundle snapshots. 1:1 with bundles.
	RunID string `json:"run_id"`

	// GitCommit is the source revision at run start, nil when the process
	// is not running from a git checkout (deployed artifact). Absence is
	// recorded, not invented.
	GitCommit *string `json:"git_commit"`

	// GitDirty is true when the checkout had uncommitted changes, nil when
	// no checkout was found.
	GitDirty *bool `json:"git_dirty"`

	// ApplicationVersion is the running binary's semantic version.
	ApplicationVersion string `json:"application_version"`

	// ExtractorVersion is the extraction pipeline's own version.
	ExtractorVersion string `json:"extractor_version"`

	// ModelName and ModelVersion identify the LLM the run used.
	ModelName    string `json:"model_name"`
	ModelVersion string `json:"model_version"`

	// PromptTemplateHash and ExtractionSpecHash pin the prompt and field
	// specification content the run executed with.
	PromptTemplateHash string `json:"prompt_template_hash"`
	ExtractionSpecHash string `json:"extraction_spec_hash"`

	// CreatedAt is the bundle creation time.
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput is the caller-supplied portion of a bundle. Git state is
// captured by the store, not supplied.
type CreateInput struct {
	RunID              string
	ApplicationVersion string
	ExtractorVersion   string
	ModelName          string
	ModelVersion       string
	PromptTemplateHash string
	ExtractionSpecHash string
}
