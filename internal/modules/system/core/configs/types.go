package configs

import (
	"errors"
	"strconv"

	"github.com/minpic/core/internal/models"
)

var (
	// ErrConfigNotFound means neither the hint nor the legacy slot yields a config.
	ErrConfigNotFound = errors.New("storage config not found")
	// ErrActiveConfigMissing is returned when activeId names no config in the saved list.
	ErrActiveConfigMissing = errors.New("active config not found in configs")
	// ErrShortlinkNotConfigured is returned when no short-link record was ever stored.
	ErrShortlinkNotConfigured = errors.New("shortlink config not found")
	// ErrInvalidShortlink wraps a field error of a short-link registration.
	ErrInvalidShortlink = errors.New("invalid shortlink config")
)

// Option keys written by releases that stored the source list as a JSON blob.
const (
	legacyMinioConfigs  = "minio_configs"
	legacyMinioActiveID = "minio_active_id"
	legacyDefaultName   = "Default MinIO"
)

// StorageState is the list of sources plus the active pointer, as edited by the UI.
type StorageState struct {
	Configs  []models.StorageConfig `json:"configs"`
	ActiveID string                 `json:"activeId"`
}

// ValidationError wraps a per-config field error from a save request.
type ValidationError struct {
	Index int
	ID    string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.ID != "" {
		return "config " + e.ID + ": " + e.Err.Error()
	}
	return "config #" + strconv.Itoa(e.Index) + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
