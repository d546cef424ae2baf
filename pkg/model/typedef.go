package model

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// TypeDefCategory selects which definition families a typedef request returns.
type TypeDefCategory string

const (
	CategoryEnum           TypeDefCategory = "ENUM"
	CategoryStruct         TypeDefCategory = "STRUCT"
	CategoryTag            TypeDefCategory = "TAG"
	CategoryCustomMetadata TypeDefCategory = "CUSTOM_METADATA"
)

// TypeDefResponse is the authoritative set of type definitions for the
// requested categories.
type TypeDefResponse struct {
	EnumDefs           []EnumDef           `json:"enumDefs"`
	StructDefs         []StructDef         `json:"structDefs"`
	TagDefs            []TagDef            `json:"tagDefs"`
	CustomMetadataDefs []CustomMetadataDef `json:"customMetadataDefs"`
}

// Empty reports whether the response carries no definitions at all. The
// catalog always has built-in definitions, so an empty response means the
// credential was rejected rather than "nothing exists".
func (r *TypeDefResponse) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.EnumDefs) == 0 && len(r.StructDefs) == 0 &&
		len(r.TagDefs) == 0 && len(r.CustomMetadataDefs) == 0
}

// TagDef defines a tag. Name is the server-internal hashed identifier;
// DisplayName is the human-readable label.
type TagDef struct {
	Name        string            `json:"name"`
	GUID        string            `json:"guid,omitempty"`
	DisplayName string            `json:"displayName"`
	Options     map[string]string `json:"options,omitempty"`
}

// EnumDef defines an enumeration and its allowed values.
type EnumDef struct {
	Name        string        `json:"name"`
	GUID        string        `json:"guid"`
	ElementDefs []EnumElement `json:"elementDefs,omitempty"`
}

// EnumElement is one allowed value of an enumeration.
type EnumElement struct {
	Value   string `json:"value"`
	Ordinal int    `json:"ordinal"`
}

// StructDef defines a struct type. Carried for completeness; the caches do
// not index structs.
type StructDef struct {
	Name          string         `json:"name"`
	GUID          string         `json:"guid,omitempty"`
	AttributeDefs []AttributeDef `json:"attributeDefs,omitempty"`
}

// CustomMetadataDef defines a custom metadata set. Name is the internal
// hashed identifier; DisplayName is the human-readable set name.
type CustomMetadataDef struct {
	Name          string         `json:"name"`
	GUID          string         `json:"guid,omitempty"`
	DisplayName   string         `json:"displayName"`
	AttributeDefs []AttributeDef `json:"attributeDefs,omitempty"`
}

// AttributeDef defines one attribute within a custom metadata set or struct.
type AttributeDef struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName"`
	TypeName    string           `json:"typeName,omitempty"`
	Options     AttributeOptions `json:"options,omitempty"`
}

// AttributeOptions is the normalized form of an attribute's options blob.
// The wire format is loose: booleans may arrive as strings and
// applicableEntityTypes may arrive either as a JSON array or as a
// JSON-encoded string containing an array. Normalization happens once, here,
// so downstream code never branches on the encoding.
type AttributeOptions struct {
	IsArchived            bool
	ArchivedAttributeID   string
	ApplicableEntityTypes []string
	CustomType            string
}

type rawAttributeOptions struct {
	IsArchived            json.RawMessage `json:"isArchived"`
	ArchivedAttributeID   string          `json:"archivedAttributeId"`
	ApplicableEntityTypes json.RawMessage `json:"applicableEntityTypes"`
	CustomType            string          `json:"customType"`
}

// UnmarshalJSON normalizes the loosely-typed options blob.
func (o *AttributeOptions) UnmarshalJSON(data []byte) error {
	var raw rawAttributeOptions
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding attribute options: %w", err)
	}

	archived, err := decodeLooseBool(raw.IsArchived)
	if err != nil {
		return fmt.Errorf("decoding isArchived: %w", err)
	}

	types, err := decodeLooseStrings(raw.ApplicableEntityTypes)
	if err != nil {
		return fmt.Errorf("decoding applicableEntityTypes: %w", err)
	}

	o.IsArchived = archived
	o.ArchivedAttributeID = raw.ArchivedAttributeID
	o.ApplicableEntityTypes = types
	o.CustomType = raw.CustomType
	return nil
}

// MarshalJSON writes the canonical encoding.
func (o AttributeOptions) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if o.IsArchived {
		out["isArchived"] = true
	}
	if o.ArchivedAttributeID != "" {
		out["archivedAttributeId"] = o.ArchivedAttributeID
	}
	if len(o.ApplicableEntityTypes) > 0 {
		out["applicableEntityTypes"] = o.ApplicableEntityTypes
	}
	if o.CustomType != "" {
		out["customType"] = o.CustomType
	}
	return json.Marshal(out)
}

func decodeLooseBool(raw json.RawMessage) (bool, error) {
	if len(raw) == 0 {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, err
	}
	return s == "true", nil
}

func decodeLooseStrings(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var direct []string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	if encoded == "" {
		return nil, nil
	}
	var nested []string
	if err := json.Unmarshal([]byte(encoded), &nested); err != nil {
		return nil, err
	}
	return nested, nil
}
