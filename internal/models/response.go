package models

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// PlanListResponse lists the current plan of every cluster
type PlanListResponse struct {
	Plans []*ClusterPlan `json:"plans"`
	Count int            `json:"count"`
}

// PlanRunResponse is the result of computing a deployment
type PlanRunResponse struct {
	Plans     []*ClusterPlan `json:"plans"`
	Committed bool           `json:"committed"`
	RequestID string         `json:"request_id,omitempty"`
}

// PlanHistoryResponse lists the committed plan ids of a cluster
type PlanHistoryResponse struct {
	Cluster string   `json:"cluster"`
	PlanIDs []string `json:"plan_ids"`
}

// CapacityValidationResponse describes a parsed capacity declaration
type CapacityValidationResponse struct {
	Cluster   string        `json:"cluster"`
	Valid     bool          `json:"valid"`
	Nodes     string        `json:"nodes"`
	Groups    string        `json:"groups,omitempty"`
	GroupSize string        `json:"group_size,omitempty"`
	Grouped   bool          `json:"grouped"`
	Resources ResourceRange `json:"resources"`
}

// HostListResponse lists registered hosts
type HostListResponse struct {
	Hosts []HostRecord `json:"hosts"`
	Count int          `json:"count"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
