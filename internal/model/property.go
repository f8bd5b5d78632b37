// Package model defines the typed records shared across the resolution engine.
package model

import "time"

// Property is a canonical property record from the property registry.
// The engine reads these; it never creates or mutates them.
type Property struct {
	ID      int64  `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	Address string `json:"address,omitempty" db:"address"`
	City    string `json:"city,omitempty" db:"city"`
	State   string `json:"state,omitempty" db:"state"`
}

// AliasType classifies how an alias relates to its property.
type AliasType string

// Alias types.
const (
	AliasAbbreviation AliasType = "abbreviation"
	AliasCommonName   AliasType = "common_name"
	AliasLegalName    AliasType = "legal_name"
)

// Alias is an alternate name for a canonical property. Uniqueness is
// enforced per (property_id, alias_name); the same string may alias two
// different properties, in which case resolution order picks one.
type Alias struct {
	ID           int64     `json:"id" db:"id"`
	PropertyID   int64     `json:"property_id" db:"property_id"`
	PropertyName string    `json:"property_name,omitempty" db:"property_name"`
	Name         string    `json:"alias_name" db:"alias_name"`
	Type         AliasType `json:"alias_type" db:"alias_type"`
	IsPrimary    bool      `json:"is_primary" db:"is_primary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MatchMethod identifies which resolution pass produced an alias match.
type MatchMethod string

// Match methods.
const (
	MethodExact        MatchMethod = "exact"
	MethodFuzzy        MatchMethod = "fuzzy"
	MethodAbbreviation MatchMethod = "abbreviation"
)

// AliasMatch is the result of resolving a name through the alias table.
type AliasMatch struct {
	PropertyID   int64       `json:"property_id"`
	PropertyName string      `json:"property_name"`
	Alias        string      `json:"alias"`
	Method       MatchMethod `json:"match_method"`
	Confidence   float64     `json:"confidence"`
}

// Document is an uploaded document in the corpus. Content holds whatever
// text the upstream extraction layer produced; it may be empty, in which
// case only the filename is available for name extraction.
type Document struct {
	ID               string    `json:"id" db:"id"`
	Filename         string    `json:"filename" db:"filename"`
	Content          string    `json:"content,omitempty" db:"content"`
	TargetPropertyID *int64    `json:"target_property_id,omitempty" db:"target_property_id"`
	UploadedAt       time.Time `json:"uploaded_at" db:"uploaded_at"`
}
