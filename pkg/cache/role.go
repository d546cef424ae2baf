package cache

import (
	"context"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
)

// RoleCache translates between workspace role names and internal role IDs.
type RoleCache struct {
	api client.ApiCaller
	bidi
}

// NewRoleCache creates a role cache backed by api.
func NewRoleCache(api client.ApiCaller) *RoleCache {
	c := &RoleCache{api: api}
	c.bidi.kind = "role"
	c.bidi.load = c.loadRoles
	return c
}

func (c *RoleCache) loadRoles(ctx context.Context) (map[string]string, error) {
	resp, err := c.api.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	idToName := make(map[string]string, len(resp.Records))
	for _, r := range resp.Records {
		idToName[r.ID] = r.Name
	}
	return idToName, nil
}

// GetIDForName resolves a role name to its internal ID.
func (c *RoleCache) GetIDForName(ctx context.Context, name string) (string, error) {
	return c.idForName(ctx, name, apierror.CodeRoleNotFoundByName)
}

// GetNameForID resolves an internal role ID to its name.
func (c *RoleCache) GetNameForID(ctx context.Context, id string) (string, error) {
	return c.nameForID(ctx, id, apierror.CodeRoleNotFoundByID)
}

// RefreshCache forces a full reload.
func (c *RoleCache) RefreshCache(ctx context.Context) error {
	return c.refresh(ctx)
}
