package cache

import (
	"context"
	"strings"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// UserCache translates between usernames and internal user IDs.
//
// API tokens appear as principals under the reserved
// "service-account-<clientId>" username but are never returned by the user
// listing endpoint, so both lookup directions fall through to a direct token
// lookup instead of refreshing; a refresh would never find them and would
// waste a round trip every time.
type UserCache struct {
	api client.ApiCaller
	bidi
}

// NewUserCache creates a user cache backed by api.
func NewUserCache(api client.ApiCaller) *UserCache {
	c := &UserCache{api: api}
	c.bidi.kind = "user"
	c.bidi.load = c.loadUsers
	return c
}

func (c *UserCache) loadUsers(ctx context.Context) (map[string]string, error) {
	resp, err := c.api.SearchUsers(ctx)
	if err != nil {
		return nil, err
	}
	idToName := make(map[string]string, len(resp.Records))
	for _, u := range resp.Records {
		idToName[u.ID] = u.Username
	}
	return idToName, nil
}

// GetIDForName resolves a username to its internal user ID. Names carrying
// the service-account prefix resolve via a direct token lookup.
func (c *UserCache) GetIDForName(ctx context.Context, name string) (string, error) {
	if err := validateIdentifier(name, "username"); err != nil {
		return "", err
	}
	if id, ok := c.getID(name); ok {
		return id, nil
	}

	if strings.HasPrefix(name, model.ServiceAccountPrefix) {
		clientID := strings.TrimPrefix(name, model.ServiceAccountPrefix)
		token, err := c.api.GetTokenByClientID(ctx, clientID)
		if err != nil {
			return "", err
		}
		if token == nil {
			return "", apierror.NewNotFound(apierror.CodeUserNotFoundByName, "user with name %s does not exist", name)
		}
		c.insert(token.GUID, name)
		return token.GUID, nil
	}

	return c.idForName(ctx, name, apierror.CodeUserNotFoundByName)
}

// GetNameForID resolves an internal user ID to its username. IDs still
// unknown after a refresh are checked against the token endpoint before
// reporting absence.
func (c *UserCache) GetNameForID(ctx context.Context, id string) (string, error) {
	if err := validateIdentifier(id, "user ID"); err != nil {
		return "", err
	}
	if name, ok := c.getName(id); ok {
		return name, nil
	}
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	if name, ok := c.getName(id); ok {
		return name, nil
	}

	token, err := c.api.GetTokenByGUID(ctx, id)
	if err != nil {
		return "", err
	}
	if token == nil {
		return "", apierror.NewNotFound(apierror.CodeUserNotFoundByID, "user with ID %s does not exist", id)
	}
	name := token.Username()
	c.insert(id, name)
	return name, nil
}

// RefreshCache forces a full reload. Token entries resolved through the
// short-circuit are discarded and re-resolved on demand.
func (c *UserCache) RefreshCache(ctx context.Context) error {
	return c.refresh(ctx)
}
