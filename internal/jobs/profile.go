package jobs

// QueryProfile is the structured representation of user intent produced by
// the external NLP layer. The matcher consumes it as immutable input and
// never parses natural language itself.
type QueryProfile struct {
	Skills     []string `json:"skills,omitempty"`
	Location   string   `json:"location,omitempty"`
	Experience string   `json:"experience,omitempty"`
	JobType    string   `json:"job_type,omitempty"`
	RawQuery   string   `json:"raw_query,omitempty"`
}

// MatchResult pairs a record with its fused relevance score and the
// per-factor breakdown. Recomputed per query, never persisted.
type MatchResult struct {
	Record    Record             `json:"record"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown"`
}
