// Package blob stores uploaded artwork and hands back a public URL.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists an object under key and returns the URL it is served from.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// NewKey returns a collision-free object key under prefix, keeping the
// extension of filename.
func NewKey(prefix, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return fmt.Sprintf("%s/%04d/%02d/%s%s", strings.Trim(prefix, "/"), now.Year(), now.Month(), uuid.NewString(), ext)
}
