package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// ShortlinkConfig is the global short-link service registration.
type ShortlinkConfig struct {
	APIURL       string `json:"apiUrl"`
	APIKey       string `json:"apiKey"`
	Enabled      bool   `json:"enabled"`
	AutoGenerate bool   `json:"autoGenerate"`
	ExpiresIn    int    `json:"expiresIn"` // hours, 0 = permanent
}

// UnmarshalJSON applies the defaults of records written before enabled existed:
// such a record is enabled when it carries credentials, and autoGenerate defaults to true.
func (c *ShortlinkConfig) UnmarshalJSON(data []byte) error {
	type alias ShortlinkConfig
	aux := struct {
		*alias
		Enabled      *bool `json:"enabled"`
		AutoGenerate *bool `json:"autoGenerate"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Enabled != nil {
		c.Enabled = *aux.Enabled
	} else {
		c.Enabled = strings.TrimSpace(c.APIURL) != "" && strings.TrimSpace(c.APIKey) != ""
	}
	c.AutoGenerate = aux.AutoGenerate == nil || *aux.AutoGenerate
	return nil
}

func (c *ShortlinkConfig) Normalize() {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.ExpiresIn < 0 {
		c.ExpiresIn = 0
	}
}

// Validate requires credentials only when the integration is switched on.
func (c *ShortlinkConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.APIURL == "" {
		return errors.New("apiUrl is required")
	}
	if c.APIKey == "" {
		return errors.New("apiKey is required")
	}
	return nil
}

// Usable reports whether calls to the remote service can be made at all.
func (c *ShortlinkConfig) Usable() bool {
	return c != nil && c.Enabled && c.APIURL != "" && c.APIKey != ""
}

// AutoCreate reports whether uploads and imports should mint links.
func (c *ShortlinkConfig) AutoCreate() bool {
	return c.Usable() && c.AutoGenerate
}
