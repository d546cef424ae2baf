package cache

import (
	"context"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// TagCache translates between tag display names and internal tag IDs.
//
// Unlike the other caches, lookups that miss after a refresh return an empty
// string rather than an error, and the miss is negatively cached. Tag lookups
// are routinely run against historical data (audit logs) that references
// deleted tags, so absence is an expected outcome and must not trigger a
// refresh storm.
type TagCache struct {
	api client.ApiCaller
	bidi

	deletedIDs   map[string]struct{}
	deletedNames map[string]struct{}
}

// NewTagCache creates a tag cache backed by api.
func NewTagCache(api client.ApiCaller) *TagCache {
	c := &TagCache{
		api:          api,
		deletedIDs:   make(map[string]struct{}),
		deletedNames: make(map[string]struct{}),
	}
	c.bidi.kind = "tag"
	c.bidi.load = c.loadTagDefs
	return c
}

func (c *TagCache) loadTagDefs(ctx context.Context) (map[string]string, error) {
	resp, err := c.api.GetTypeDefs(ctx, model.CategoryTag)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return nil, apierror.NewExpiredCredential("tag typedef request returned no definitions")
	}
	idToName := make(map[string]string, len(resp.TagDefs))
	for _, def := range resp.TagDefs {
		idToName[def.Name] = def.DisplayName
	}
	return idToName, nil
}

// GetIDForName resolves a tag display name to its internal ID. Returns an
// empty string (and no error) when the tag does not exist; the miss is
// remembered so repeated lookups of the same missing name stay local.
func (c *TagCache) GetIDForName(ctx context.Context, name string) (string, error) {
	if err := validateIdentifier(name, "tag name"); err != nil {
		return "", err
	}
	if id, ok := c.getID(name); ok {
		return id, nil
	}
	if c.isDeletedName(name) {
		return "", nil
	}
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	if id, ok := c.getID(name); ok {
		return id, nil
	}
	c.markDeletedName(name)
	return "", nil
}

// GetNameForID resolves an internal tag ID to its display name. Returns an
// empty string (and no error) when the tag does not exist.
func (c *TagCache) GetNameForID(ctx context.Context, id string) (string, error) {
	if err := validateIdentifier(id, "tag ID"); err != nil {
		return "", err
	}
	if name, ok := c.getName(id); ok {
		return name, nil
	}
	if c.isDeletedID(id) {
		return "", nil
	}
	if err := c.refresh(ctx); err != nil {
		return "", err
	}
	if name, ok := c.getName(id); ok {
		return name, nil
	}
	c.markDeletedID(id)
	return "", nil
}

// RefreshCache forces a full reload and clears the negative caches. This is
// the only way a tag deleted and later recreated under the same name becomes
// visible again within one process lifetime.
func (c *TagCache) RefreshCache(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.deletedIDs = make(map[string]struct{})
	c.deletedNames = make(map[string]struct{})
	c.mu.Unlock()
	return nil
}

func (c *TagCache) isDeletedName(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.deletedNames[name]
	return ok
}

func (c *TagCache) isDeletedID(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.deletedIDs[id]
	return ok
}

func (c *TagCache) markDeletedName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletedNames[name] = struct{}{}
}

func (c *TagCache) markDeletedID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletedIDs[id] = struct{}{}
}
