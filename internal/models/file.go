package models

import (
	"strings"
	"time"
)

type FileType string

const (
	FileImage FileType = "image"
	FileVideo FileType = "video"
	FileAudio FileType = "audio"
)

// ThumbnailInDatabase marks a preview stored in files.thumbnail_data.
const ThumbnailInDatabase = "database"

// FileTypeFromMIME maps a MIME type to a catalog file type; ok is false for anything else.
func FileTypeFromMIME(mimeType string) (FileType, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileImage, true
	case strings.HasPrefix(mimeType, "video/"):
		return FileVideo, true
	case strings.HasPrefix(mimeType, "audio/"):
		return FileAudio, true
	}
	return "", false
}

// File is one catalogued object. MinioPath is the dedup key for bucket imports.
type File struct {
	Base
	Filename      string      `json:"filename"      gorm:"type:varchar(512);not null"`
	MinioPath     string      `json:"minioPath"     gorm:"type:varchar(512);uniqueIndex;not null"`
	FileSize      int64       `json:"fileSize"`
	MimeType      string      `json:"mimeType"      gorm:"type:varchar(191)"`
	FileType      FileType    `json:"fileType"      gorm:"type:varchar(16);index"`
	ThumbnailData []byte      `json:"-"             gorm:"type:longblob"`
	ThumbnailPath *string     `json:"thumbnailPath" gorm:"type:varchar(512)"`
	Width         *int        `json:"width"`
	Height        *int        `json:"height"`
	ShortlinkCode *string     `json:"shortlinkCode" gorm:"type:varchar(191);index"`
	ConfigID      *string     `json:"configId"      gorm:"type:varchar(64);index"`
	Tags          StringArray `json:"tags"          gorm:"type:text"`
	Pinyin        string      `json:"-"             gorm:"type:varchar(1024)"`
	ExpiresAt     *time.Time  `json:"expiresAt"     gorm:"index"`
}

func (File) TableName() string { return "files" }

// EffectiveConfigID folds NULL into the legacy slot.
func (f *File) EffectiveConfigID() string {
	if f.ConfigID == nil || *f.ConfigID == "" {
		return LegacyConfigID
	}
	return *f.ConfigID
}

// ConfigHint is the resolver hint for this row; empty for legacy rows.
func (f *File) ConfigHint() string {
	if f.ConfigID == nil {
		return ""
	}
	return *f.ConfigID
}

// LegacyThumbnailKey returns the remote preview key of rows that predate
// in-database previews.
func (f *File) LegacyThumbnailKey() (string, bool) {
	if f.ThumbnailPath == nil {
		return "", false
	}
	p := strings.TrimSpace(*f.ThumbnailPath)
	if p == "" || p == ThumbnailInDatabase {
		return "", false
	}
	return p, true
}
