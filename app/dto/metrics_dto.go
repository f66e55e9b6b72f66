package dto

// SubmitMetricsRequest carries evidence screenshots per platform. Keys are
// platform names, values are evidence references (uploaded screenshot ids or
// URLs).
type SubmitMetricsRequest struct {
	DeliverableUUID string              `json:"-"`
	CreatorID       uint                `json:"-"`
	Evidence        map[string][]string `json:"evidence" validate:"required"`
}

// PlatformMetricsDTO represents one platform's extracted counters
type PlatformMetricsDTO struct {
	Platform       string   `json:"platform"`
	Views          uint64   `json:"views"`
	Likes          uint64   `json:"likes"`
	Comments       uint64   `json:"comments"`
	Shares         uint64   `json:"shares"`
	Saves          uint64   `json:"saves"`
	EngagementRate float64  `json:"engagement_rate"`
	AIExtracted    bool     `json:"ai_extracted"`
	AIConfidence   *float64 `json:"ai_confidence,omitempty"`
	EvidenceCount  int      `json:"evidence_count"`
}

// SubmitMetricsResponse reports one created record per submitted platform
type SubmitMetricsResponse struct {
	Message              string               `json:"message"`
	RecordUUIDs          []string             `json:"record_uuids"`
	Platforms            []PlatformMetricsDTO `json:"platforms"`
	DeliverableStatus    string               `json:"deliverable_status"`
	DeliverableCompleted bool                 `json:"deliverable_completed"`
}
