package models

// Catalog KV keys.
const (
	OptionStorageActiveID = "storage_active_id"
	OptionMinioDefault    = "minio_default"
	OptionStorageConfigs  = "storage_configs"
	OptionShortlink       = "shortlink_default"
)

// OptionModel is a generic key-value store for singleton settings.
type OptionModel struct {
	ID    uint   `json:"-"     gorm:"primaryKey;autoIncrement"`
	Name  string `json:"name"  gorm:"type:varchar(191);uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:longtext"` // JSON-encoded value
}

func (OptionModel) TableName() string { return "options" }
