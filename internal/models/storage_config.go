package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// LegacyConfigID names the single-config slot used before multi-source support.
// File rows with a NULL config_id belong to it as well.
const LegacyConfigID = OptionMinioDefault

type ArchiveStrategy string

const (
	ArchiveNone  ArchiveStrategy = "none"
	ArchiveYear  ArchiveStrategy = "year"
	ArchiveMonth ArchiveStrategy = "month"
	ArchiveDay   ArchiveStrategy = "day"
)

// DuplicateHandling is stored per source. Object keys are timestamp-prefixed so
// the upload path never collides and does not consult it yet.
type DuplicateHandling string

const (
	DuplicateSkip      DuplicateHandling = "skip"
	DuplicateOverwrite DuplicateHandling = "overwrite"
	DuplicateKeepBoth  DuplicateHandling = "keep-both"
)

const (
	defaultStoragePort   = 9000
	defaultStorageBucket = "minpic"
)

// StorageConfig is one registered S3-compatible source.
type StorageConfig struct {
	ID                string            `json:"id"                gorm:"type:varchar(64);primaryKey"`
	Name              string            `json:"name"`
	Endpoint          string            `json:"endpoint"          gorm:"not null"`
	Port              int               `json:"port"`
	UseSSL            bool              `json:"useSSL"`
	AccessKey         string            `json:"accessKey"`
	SecretKey         string            `json:"secretKey"`
	Bucket            string            `json:"bucket"            gorm:"not null"`
	Region            string            `json:"region"`
	CustomDomain      string            `json:"customDomain"`
	BaseDir           string            `json:"baseDir"`
	ArchiveStrategy   ArchiveStrategy   `json:"archiveStrategy"   gorm:"type:varchar(16)"`
	DuplicateHandling DuplicateHandling `json:"duplicateHandling" gorm:"type:varchar(16)"`
	ExpirationDays    int               `json:"expirationDays"`
	Position          int               `json:"-"                 gorm:"index"`
	CreatedAt         time.Time         `json:"-"`
	UpdatedAt         time.Time         `json:"-"`
}

func (StorageConfig) TableName() string { return "storage_configs" }

// UnmarshalJSON accepts the legacy boolean autoArchive, which meant monthly folders.
func (c *StorageConfig) UnmarshalJSON(data []byte) error {
	type alias StorageConfig
	aux := struct {
		*alias
		AutoArchive *bool `json:"autoArchive"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ArchiveStrategy == "" && aux.AutoArchive != nil && *aux.AutoArchive {
		c.ArchiveStrategy = ArchiveMonth
	}
	return nil
}

// Normalize trims user input and fills defaults. It is applied once at the API boundary.
func (c *StorageConfig) Normalize() {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	c.AccessKey = strings.TrimSpace(c.AccessKey)
	c.SecretKey = strings.TrimSpace(c.SecretKey)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	c.CustomDomain = strings.TrimRight(strings.TrimSpace(c.CustomDomain), "/")
	c.BaseDir = strings.Trim(strings.TrimSpace(c.BaseDir), "/")
	if c.Port == 0 && !strings.Contains(c.Endpoint, "://") {
		c.Port = defaultStoragePort
	}
	if c.Bucket == "" {
		c.Bucket = defaultStorageBucket
	}
	c.ArchiveStrategy = ArchiveStrategy(strings.ToLower(strings.TrimSpace(string(c.ArchiveStrategy))))
	if c.ArchiveStrategy == "" {
		c.ArchiveStrategy = ArchiveNone
	}
	c.DuplicateHandling = DuplicateHandling(strings.ToLower(strings.TrimSpace(string(c.DuplicateHandling))))
	if c.DuplicateHandling == "" {
		c.DuplicateHandling = DuplicateKeepBoth
	}
}

// Validate reports the first invalid field of a normalized config.
func (c *StorageConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	switch c.ArchiveStrategy {
	case ArchiveNone, ArchiveYear, ArchiveMonth, ArchiveDay:
	default:
		return fmt.Errorf("invalid archiveStrategy %q", c.ArchiveStrategy)
	}
	switch c.DuplicateHandling {
	case DuplicateSkip, DuplicateOverwrite, DuplicateKeepBoth:
	default:
		return fmt.Errorf("invalid duplicateHandling %q", c.DuplicateHandling)
	}
	if c.ExpirationDays < 0 {
		return fmt.Errorf("invalid expirationDays %d", c.ExpirationDays)
	}
	return nil
}

// EndpointURL returns the base URL for the S3 API. An endpoint that already
// carries a scheme is used as-is.
func (c *StorageConfig) EndpointURL() string {
	if strings.Contains(c.Endpoint, "://") {
		return c.Endpoint
	}
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}
	host := c.Endpoint
	if c.Port > 0 && !(c.UseSSL && c.Port == 443) && !(!c.UseSSL && c.Port == 80) {
		host = net.JoinHostPort(c.Endpoint, strconv.Itoa(c.Port))
	}
	return scheme + "://" + host
}

// IsLegacy reports whether c was read from the single-config slot.
func (c *StorageConfig) IsLegacy() bool { return c.ID == LegacyConfigID }

// MarshalLogObject keeps credentials out of logs.
func (c *StorageConfig) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", c.ID)
	enc.AddString("name", c.Name)
	enc.AddString("endpoint", c.EndpointURL())
	enc.AddString("bucket", c.Bucket)
	if c.Region != "" {
		enc.AddString("region", c.Region)
	}
	enc.AddString("archiveStrategy", string(c.ArchiveStrategy))
	return nil
}
