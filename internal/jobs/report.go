package jobs

import "time"

// SessionState tracks the crawl session state machine.
type SessionState string

// Session states in lifecycle order. Errors during extraction absorb back
// into StateExtracting for the next candidate rather than halting.
const (
	StateIdle        SessionState = "idle"
	StateDiscovering SessionState = "discovering_urls"
	StateClassifying SessionState = "classifying_urls"
	StateExtracting  SessionState = "extracting_pages"
	StateDone        SessionState = "done"
)

// CrawlReport summarizes a finished crawl session. A crawl always completes
// and reports counts rather than aborting on first error.
type CrawlReport struct {
	SessionID      string        `json:"session_id"`
	Discovered     int           `json:"discovered"`
	ClassifiedJob  int           `json:"classified_job"`
	Extracted      int           `json:"extracted"`
	Persisted      int           `json:"persisted"`
	Skipped        int           `json:"skipped"`
	FetchFailures  int           `json:"fetch_failures"`
	InvalidRecords int           `json:"invalid_records"`
	StoreFailures  int           `json:"store_failures"`
	UsedPagination bool          `json:"used_pagination"`
	Started        time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
}
