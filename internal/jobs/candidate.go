package jobs

// Classification labels a discovered URL.
type Classification string

// Classification values produced by the URL classifier.
const (
	ClassJob     Classification = "job"
	ClassNonJob  Classification = "non_job"
	ClassUnknown Classification = "unknown"
)

// CrawlCandidate is an ephemeral URL discovered from a sitemap or link
// graph. It exists only for the duration of a crawl session and is never
// persisted.
type CrawlCandidate struct {
	URL   string
	Class Classification
	Depth int
}
