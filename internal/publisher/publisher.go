// Package publisher defines the event publishing contract. The crawler
// announces persisted records so downstream consumers (alerting, search
// indexing) can react without polling the store.
package publisher

import "context"

// Publisher delivers a JSON-serializable payload to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RecordEvent is the payload published for every persisted record.
type RecordEvent struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Company   string `json:"company"`
	ScrapedAt string `json:"scraped_at"`
}
