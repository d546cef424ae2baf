package cache

import (
	"context"
	"fmt"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// TypeSourceTag is the asset type of tags mirrored from external source
// systems.
const TypeSourceTag = "SourceTag"

// SourceTagCache translates between source-tag qualified names and their
// GUIDs. Source tags are assets, not typedefs, so the listing comes from a
// search rather than the typedef endpoint.
type SourceTagCache struct {
	api client.ApiCaller
	bidi
}

// NewSourceTagCache creates a source-tag cache backed by api.
func NewSourceTagCache(api client.ApiCaller) *SourceTagCache {
	c := &SourceTagCache{api: api}
	c.bidi.kind = "source tag"
	c.bidi.load = c.loadSourceTags
	return c
}

func (c *SourceTagCache) loadSourceTags(ctx context.Context) (map[string]string, error) {
	results, err := c.api.Search(ctx, model.SearchRequest{
		TypeNames:  []string{TypeSourceTag},
		Attributes: []string{"qualifiedName", "name"},
	})
	if err != nil {
		return nil, err
	}

	idToName := make(map[string]string)
	for results.Next(ctx) {
		for _, asset := range results.Page() {
			idToName[asset.GUID] = asset.QualifiedName
		}
	}
	if err := results.Err(); err != nil {
		return nil, fmt.Errorf("listing source tags: %w", err)
	}
	return idToName, nil
}

// GetIDForName resolves a source-tag qualified name to its GUID.
func (c *SourceTagCache) GetIDForName(ctx context.Context, name string) (string, error) {
	return c.idForName(ctx, name, apierror.CodeSourceTagNotFoundByName)
}

// GetNameForID resolves a source-tag GUID to its qualified name.
func (c *SourceTagCache) GetNameForID(ctx context.Context, id string) (string, error) {
	return c.nameForID(ctx, id, apierror.CodeSourceTagNotFoundByID)
}

// RefreshCache forces a full reload.
func (c *SourceTagCache) RefreshCache(ctx context.Context) error {
	return c.refresh(ctx)
}
