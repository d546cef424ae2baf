package cache

import (
	"context"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// EnumCache translates between enumeration names and their GUIDs, and keeps
// the full definitions for value validation.
type EnumCache struct {
	api client.ApiCaller
	bidi

	defsByName map[string]model.EnumDef
}

// NewEnumCache creates an enum cache backed by api.
func NewEnumCache(api client.ApiCaller) *EnumCache {
	c := &EnumCache{api: api}
	c.bidi.kind = "enum"
	c.bidi.load = c.loadEnumDefs
	return c
}

func (c *EnumCache) loadEnumDefs(ctx context.Context) (map[string]string, error) {
	resp, err := c.api.GetTypeDefs(ctx, model.CategoryEnum)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return nil, apierror.NewExpiredCredential("enum typedef request returned no definitions")
	}
	idToName := make(map[string]string, len(resp.EnumDefs))
	defsByName := make(map[string]model.EnumDef, len(resp.EnumDefs))
	for _, def := range resp.EnumDefs {
		idToName[def.GUID] = def.Name
		defsByName[def.Name] = def
	}
	c.mu.Lock()
	c.defsByName = defsByName
	c.mu.Unlock()
	return idToName, nil
}

// GetIDForName resolves an enum name to its GUID.
func (c *EnumCache) GetIDForName(ctx context.Context, name string) (string, error) {
	return c.idForName(ctx, name, apierror.CodeEnumNotFoundByName)
}

// GetNameForID resolves an enum GUID to its name.
func (c *EnumCache) GetNameForID(ctx context.Context, id string) (string, error) {
	return c.nameForID(ctx, id, apierror.CodeEnumNotFoundByID)
}

// GetByName returns the full enum definition, refreshing on a miss.
func (c *EnumCache) GetByName(ctx context.Context, name string) (*model.EnumDef, error) {
	if err := validateIdentifier(name, "enum name"); err != nil {
		return nil, err
	}
	if def, ok := c.defByName(name); ok {
		return def, nil
	}
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}
	if def, ok := c.defByName(name); ok {
		return def, nil
	}
	return nil, apierror.NewNotFound(apierror.CodeEnumNotFoundByName, "enum with name %s does not exist", name)
}

// RefreshCache forces a full reload.
func (c *EnumCache) RefreshCache(ctx context.Context) error {
	return c.refresh(ctx)
}

func (c *EnumCache) defByName(name string) (*model.EnumDef, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defsByName[name]
	if !ok {
		return nil, false
	}
	return &def, true
}
