package api

// v0 contains public types for early SDK usage.

// CompiledUnit names one contract produced by a compiler invocation and
// the raw artifact record it emitted.
type CompiledUnit struct {
	Name         string `json:"name" yaml:"name"`
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path"`
}

// CompilerInput is the payload handed to the external compiler: source
// manifests plus pass-through command options.
type CompilerInput struct {
	Sources []string          `json:"sources" yaml:"sources"`
	Options map[string]string `json:"options" yaml:"options"`
}

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is one row of the task run history.
type RunRecord struct {
	ID         string    `json:"id"`
	Task       string    `json:"task"`
	Network    string    `json:"network"`
	Status     RunStatus `json:"status"`
	Error      string    `json:"error,omitempty"`
	StartedAt  string    `json:"started_at"`
	FinishedAt string    `json:"finished_at,omitempty"`
}
