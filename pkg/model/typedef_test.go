package model

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeOptions_NormalizesArrayForm(t *testing.T) {
	raw := `{"isArchived":false,"applicableEntityTypes":["Table","View"]}`

	var opts AttributeOptions
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	assert.False(t, opts.IsArchived)
	assert.Equal(t, []string{"Table", "View"}, opts.ApplicableEntityTypes)
}

func TestAttributeOptions_NormalizesStringEncodedForm(t *testing.T) {
	raw := `{"isArchived":"true","archivedAttributeId":"attr-old","applicableEntityTypes":"[\"Table\"]"}`

	var opts AttributeOptions
	require.NoError(t, json.Unmarshal([]byte(raw), &opts))
	assert.True(t, opts.IsArchived)
	assert.Equal(t, "attr-old", opts.ArchivedAttributeID)
	assert.Equal(t, []string{"Table"}, opts.ApplicableEntityTypes)
}

func TestAttributeOptions_EmptyBlob(t *testing.T) {
	var opts AttributeOptions
	require.NoError(t, json.Unmarshal([]byte(`{}`), &opts))
	assert.False(t, opts.IsArchived)
	assert.Empty(t, opts.ApplicableEntityTypes)
}

func TestAttributeOptions_RoundTrip(t *testing.T) {
	opts := AttributeOptions{
		IsArchived:            true,
		ArchivedAttributeID:   "attr-1",
		ApplicableEntityTypes: []string{"Table"},
	}
	data, err := json.Marshal(opts)
	require.NoError(t, err)

	var got AttributeOptions
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, opts, got)
}

func TestTypeDefResponse_Empty(t *testing.T) {
	var nilResp *TypeDefResponse
	assert.True(t, nilResp.Empty())
	assert.True(t, (&TypeDefResponse{}).Empty())
	assert.False(t, (&TypeDefResponse{TagDefs: []TagDef{{Name: "t"}}}).Empty())
}

func TestPlaceholderGUID(t *testing.T) {
	guid := NewPlaceholderGUID()
	assert.True(t, IsPlaceholderGUID(guid))
	assert.False(t, IsPlaceholderGUID("3f1c0a34-real-guid"))
	assert.NotEqual(t, guid, NewPlaceholderGUID())
}

func TestAPIToken_Username(t *testing.T) {
	token := APIToken{GUID: "tok-1", ClientID: "etl"}
	assert.Equal(t, "service-account-etl", token.Username())
}
