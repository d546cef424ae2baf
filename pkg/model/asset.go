// Package model defines the value types exchanged with the Metalake API:
// assets, type definitions, principals, search requests, and mutation
// responses.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// Relational asset type names. Table, View, and MaterialisedView are
// interchangeable for fuzzy reconciliation because source systems sometimes
// reclassify a relation between them.
const (
	TypeTable            = "Table"
	TypeView             = "View"
	TypeMaterialisedView = "MaterialisedView"
)

// Asset is a catalog entity. QualifiedName is the hierarchical human-assigned
// identifier (e.g. "connection/db/schema/table"); GUID is the server-generated
// opaque identifier.
type Asset struct {
	TypeName       string                    `json:"typeName"`
	GUID           string                    `json:"guid,omitempty"`
	QualifiedName  string                    `json:"qualifiedName"`
	Name           string                    `json:"name,omitempty"`
	Status         string                    `json:"status,omitempty"`
	IsPartial      bool                      `json:"isPartial,omitempty"`
	Attributes     map[string]any            `json:"attributes,omitempty"`
	Tags           []string                  `json:"tags,omitempty"`
	CustomMetadata map[string]map[string]any `json:"customMetadata,omitempty"`
}

// placeholderPrefix marks client-assigned GUIDs that the server replaces on
// save. Assignments are reported back via MutationResponse.GUIDAssignments.
const placeholderPrefix = "-"

// NewPlaceholderGUID returns a client-side placeholder GUID for an asset that
// has not been saved yet.
func NewPlaceholderGUID() string {
	return placeholderPrefix + uuid.NewString()
}

// IsPlaceholderGUID reports whether guid is a client-side placeholder.
func IsPlaceholderGUID(guid string) bool {
	return strings.HasPrefix(guid, placeholderPrefix)
}
