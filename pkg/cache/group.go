package cache

import (
	"context"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
)

// GroupCache translates between group names and internal group IDs.
type GroupCache struct {
	api client.ApiCaller
	bidi
}

// NewGroupCache creates a group cache backed by api.
func NewGroupCache(api client.ApiCaller) *GroupCache {
	c := &GroupCache{api: api}
	c.bidi.kind = "group"
	c.bidi.load = c.loadGroups
	return c
}

func (c *GroupCache) loadGroups(ctx context.Context) (map[string]string, error) {
	resp, err := c.api.SearchGroups(ctx)
	if err != nil {
		return nil, err
	}
	idToName := make(map[string]string, len(resp.Records))
	for _, g := range resp.Records {
		idToName[g.ID] = g.Name
	}
	return idToName, nil
}

// GetIDForName resolves a group name to its internal ID.
func (c *GroupCache) GetIDForName(ctx context.Context, name string) (string, error) {
	return c.idForName(ctx, name, apierror.CodeGroupNotFoundByName)
}

// GetNameForID resolves an internal group ID to its name.
func (c *GroupCache) GetNameForID(ctx context.Context, id string) (string, error) {
	return c.nameForID(ctx, id, apierror.CodeGroupNotFoundByID)
}

// RefreshCache forces a full reload.
func (c *GroupCache) RefreshCache(ctx context.Context) error {
	return c.refresh(ctx)
}
