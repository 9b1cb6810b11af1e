package models

import "time"

// Resource is a bookable amenity as reported by the catalog.
type Resource struct {
	ID           string    `yaml:"id" json:"id"`
	Name         string    `yaml:"name" json:"name"`
	Description  string    `yaml:"description" json:"description,omitempty"`
	PricePerHour float64   `yaml:"price_per_hour" json:"price_per_hour"`
	Active       bool      `yaml:"active" json:"active"`
	CreatedAt    time.Time `yaml:"-" json:"created_at"`
	UpdatedAt    time.Time `yaml:"-" json:"updated_at"`
}
