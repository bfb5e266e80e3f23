// Package configsave provides models and repository for saved furniture
// configurations: a named snapshot of a customer's design together with
// the price and generated asset links at save time.
package configsave

import (
	"errors"
	"strings"
	"time"
)

// Common errors for saved configuration operations.
var (
	ErrConfigurationNotFound = errors.New("configuration not found")
	ErrConfigurationDeleted  = errors.New("configuration has been deleted")
	ErrInvalidName           = errors.New("configuration name is invalid")
)

// MaxNameLength bounds user-supplied configuration names.
const MaxNameLength = 120

// Configuration is a saved design. Prompt is the canonical encoded
// structure; dimensions, finish and sample are denormalized for listing
// without a decode.
type Configuration struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"owner_id"`
	TemplateID string `json:"template_id"`
	Prompt     string `json:"prompt"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`

	FinishKey string `json:"finish_key"`
	SampleID  string `json:"sample_id,omitempty"`

	// Price is the quoted total in whole currency units at save time.
	Price int `json:"price"`

	AssetURL   string `json:"asset_url,omitempty"`
	CutFileURL string `json:"cut_file_url,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// ValidateName checks a user-supplied configuration name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrInvalidName
	}
	if len(trimmed) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}
