package estimation

const (
	WorkflowName = "batch_estimation"
	ActivityRun  = "batch_estimation_run"
	// WorkflowID is fixed so Temporal rejects a second concurrent run.
	WorkflowID = "adaptive-engine-batch-estimation"
	ScheduleID = "adaptive-engine-batch-estimation-schedule"
)

// Input overrides the engine's thresholds for one run. Nil keeps the configured value.
type Input struct {
	RelevanceThreshold   *float64 `json:"relevance_threshold,omitempty"`
	InformationThreshold *float64 `json:"information_threshold,omitempty"`
}

type Output struct {
	Learners    int            `json:"learners"`
	Submissions int            `json:"submissions"`
	Sparse      map[string]int `json:"sparse,omitempty"`
	Degenerate  map[string]int `json:"degenerate,omitempty"`
}
