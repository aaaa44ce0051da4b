package file

import (
	"errors"
	"time"

	"github.com/minpic/core/internal/models"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrStorage wraps a failure of the object store on a non-best-effort path.
	ErrStorage = errors.New("object storage error")
	// ErrShortlinkUnavailable is returned when a link is requested explicitly but
	// no short-link service is registered.
	ErrShortlinkUnavailable = errors.New("shortlink service not configured")
)

// DeleteMode selects whether the stored objects go along with the catalog row.
type DeleteMode string

const (
	DeleteFull       DeleteMode = "full"
	DeleteRecordOnly DeleteMode = "record-only"
)

// ParseDeleteMode maps a query value to a mode; empty means full.
func ParseDeleteMode(s string) (DeleteMode, bool) {
	switch DeleteMode(s) {
	case "", DeleteFull:
		return DeleteFull, true
	case DeleteRecordOnly:
		return DeleteRecordOnly, true
	}
	return "", false
}

type UploadInput struct {
	Data     []byte
	Filename string
	MimeType string
	// ConfigID is the resolver hint; empty selects the legacy record.
	ConfigID  string
	ExpiresAt *time.Time
}

// UploadResult is the stored record plus the short URL when one was minted.
type UploadResult struct {
	*models.File
	Shortlink string `json:"shortlink,omitempty"`
}

type ListQuery struct {
	Page     int
	PageSize int
	FileType models.FileType
	Search   string
}

type UpdateInput struct {
	Filename *string
	Tags     *[]string
}

// BatchDeleteResult counts processed rows; failures of best-effort remote
// cleanups are reported but never reduce DeletedCount.
type BatchDeleteResult struct {
	DeletedCount      int `json:"deletedCount"`
	StorageFailures   int `json:"storageFailures"`
	ShortlinkFailures int `json:"shortlinkFailures"`
}

// Media is a downloaded object ready to stream.
type Media struct {
	Data     []byte
	MimeType string
	Filename string
}
