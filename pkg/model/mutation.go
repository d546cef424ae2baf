package model

// CustomMetadataHandling selects how a bulk save treats custom metadata
// already present on the assets being written.
type CustomMetadataHandling string

const (
	// CustomMetadataIgnore leaves existing custom metadata untouched.
	CustomMetadataIgnore CustomMetadataHandling = "ignore"

	// CustomMetadataMerge merges supplied custom metadata into what exists.
	CustomMetadataMerge CustomMetadataHandling = "merge"

	// CustomMetadataOverwrite replaces existing custom metadata wholesale.
	CustomMetadataOverwrite CustomMetadataHandling = "overwrite"
)

// SaveOptions tunes a bulk save call.
type SaveOptions struct {
	CustomMetadataHandling CustomMetadataHandling `json:"-"`
}

// MutationResponse reports the outcome of a bulk save. Assets sent but
// present in neither GUID set were touched without change ("restored").
type MutationResponse struct {
	CreatedGUIDs    []string          `json:"createdGuids"`
	UpdatedGUIDs    []string          `json:"updatedGuids"`
	GUIDAssignments map[string]string `json:"guidAssignments"`
}
