package dto

// SchedulerRunResponse reports the aggregate outcome of a manually triggered
// scheduler pass
type SchedulerRunResponse struct {
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}
