// Package archive stores raw fetched HTML so extraction selectors can be
// re-run against historical pages without re-crawling.
package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Provider writes an artifact and returns a stable URI for it.
type Provider interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// ObjectPath derives the archive path for a fetched page. Pages are
// grouped per crawl session and named by URL digest so re-crawls of the
// same URL in one session overwrite rather than accumulate.
func ObjectPath(sessionID, pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return fmt.Sprintf("sessions/%s/%s.html", sessionID, hex.EncodeToString(sum[:8]))
}
