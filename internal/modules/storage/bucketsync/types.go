package bucketsync

import (
	"errors"
	"path"
	"strings"
	"time"
)

var (
	ErrConfigRequired = errors.New("config id required")
	// ErrSyncRunning is returned while another sync of the same source holds the guard.
	ErrSyncRunning = errors.New("sync already running for this config")
	ErrStorage     = errors.New("object storage error")
)

// Result summarises one sync run. Every listed object lands in exactly one
// of Imported, Skipped or Errors.
type Result struct {
	ConfigID          string    `json:"configId"`
	Total             int       `json:"total"`
	Imported          int       `json:"imported"`
	Skipped           int       `json:"skipped"`
	Errors            int       `json:"errors"`
	ShortlinksCreated int       `json:"shortlinksCreated"`
	ShortlinksFailed  int       `json:"shortlinksFailed"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
}

type outcome string

const (
	outcomeImported outcome = "imported"
	outcomeClaimed  outcome = "claimed"
	outcomeSkipped  outcome = "skipped"
	outcomeError    outcome = "error"
)

var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
}

// MIMEFromKey infers a MIME type from the object key's extension.
func MIMEFromKey(key string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
	if m, ok := mimeByExt[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
