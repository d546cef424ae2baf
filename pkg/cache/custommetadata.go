package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// CustomMetadataCache translates between custom-metadata set display names
// and internal set IDs, and one level deeper between attribute display names
// and internal attribute IDs within each set.
//
// Archived attributes are excluded from name resolution but remain reachable
// by ID, including under the identifier they carried before archival, so
// historical data (audit logs) referencing retired attribute IDs still
// resolves forward to the attribute's current identity.
type CustomMetadataCache struct {
	api client.ApiCaller

	refreshMu sync.Mutex
	mu        sync.RWMutex

	defsByID    map[string]model.CustomMetadataDef
	setIDToName map[string]string
	setNameToID map[string]string

	// attrIDToName includes archived attributes; attrNameToID holds active
	// attributes only. Both are keyed by set ID.
	attrIDToName map[string]map[string]string
	attrNameToID map[string]map[string]string

	// archivedAttrIDs redirects an attribute's pre-archival identifier to
	// its current one.
	archivedAttrIDs map[string]string

	// typesByAsset maps an asset type name to the display names of the
	// custom-metadata sets applicable to it.
	typesByAsset map[string]map[string]struct{}
}

// NewCustomMetadataCache creates a custom-metadata cache backed by api.
func NewCustomMetadataCache(api client.ApiCaller) *CustomMetadataCache {
	return &CustomMetadataCache{api: api}
}

// RefreshCache replaces the entire cache from the authoritative typedefs.
// A duplicate active attribute display name within one set aborts the
// refresh with a LogicError and leaves the cache in its last-good state: the
// server-side definition is corrupted in a way this client cannot safely
// disambiguate.
func (c *CustomMetadataCache) RefreshCache(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	resp, err := c.api.GetTypeDefs(ctx, model.CategoryCustomMetadata)
	if err != nil {
		return err
	}
	if resp.Empty() {
		return apierror.NewExpiredCredential("custom metadata typedef request returned no definitions")
	}

	defsByID := make(map[string]model.CustomMetadataDef, len(resp.CustomMetadataDefs))
	setIDToName := make(map[string]string, len(resp.CustomMetadataDefs))
	setNameToID := make(map[string]string, len(resp.CustomMetadataDefs))
	attrIDToName := make(map[string]map[string]string, len(resp.CustomMetadataDefs))
	attrNameToID := make(map[string]map[string]string, len(resp.CustomMetadataDefs))
	archivedAttrIDs := make(map[string]string)
	typesByAsset := make(map[string]map[string]struct{})

	for _, def := range resp.CustomMetadataDefs {
		defsByID[def.Name] = def
		setIDToName[def.Name] = def.DisplayName
		setNameToID[def.DisplayName] = def.Name
		idToName := make(map[string]string, len(def.AttributeDefs))
		nameToID := make(map[string]string)

		for _, attr := range def.AttributeDefs {
			idToName[attr.Name] = attr.DisplayName

			if attr.Options.IsArchived {
				if prior := attr.Options.ArchivedAttributeID; prior != "" {
					archivedAttrIDs[prior] = attr.Name
				}
				continue
			}

			if _, exists := nameToID[attr.DisplayName]; exists {
				return apierror.NewLogicError(
					"multiple active attributes named %q exist in custom metadata set %q",
					attr.DisplayName, def.DisplayName)
			}
			nameToID[attr.DisplayName] = attr.Name

			for _, assetType := range attr.Options.ApplicableEntityTypes {
				sets, ok := typesByAsset[assetType]
				if !ok {
					sets = make(map[string]struct{})
					typesByAsset[assetType] = sets
				}
				sets[def.DisplayName] = struct{}{}
			}
		}

		attrIDToName[def.Name] = idToName
		attrNameToID[def.Name] = nameToID
	}

	c.mu.Lock()
	c.defsByID = defsByID
	c.setIDToName = setIDToName
	c.setNameToID = setNameToID
	c.attrIDToName = attrIDToName
	c.attrNameToID = attrNameToID
	c.archivedAttrIDs = archivedAttrIDs
	c.typesByAsset = typesByAsset
	c.mu.Unlock()

	slog.Debug("cache: refreshed", "kind", "custom metadata", "sets", len(setIDToName))
	return nil
}

// GetIDForName resolves a set display name to its internal set ID.
func (c *CustomMetadataCache) GetIDForName(ctx context.Context, name string) (string, error) {
	if err := validateIdentifier(name, "custom metadata set name"); err != nil {
		return "", err
	}
	if id, ok := c.setID(name); ok {
		return id, nil
	}
	if err := c.RefreshCache(ctx); err != nil {
		return "", err
	}
	if id, ok := c.setID(name); ok {
		return id, nil
	}
	return "", apierror.NewNotFound(apierror.CodeCMNotFoundByName,
		"custom metadata set with name %s does not exist", name)
}

// GetNameForID resolves an internal set ID to its display name.
func (c *CustomMetadataCache) GetNameForID(ctx context.Context, id string) (string, error) {
	if err := validateIdentifier(id, "custom metadata set ID"); err != nil {
		return "", err
	}
	if name, ok := c.setName(id); ok {
		return name, nil
	}
	if err := c.RefreshCache(ctx); err != nil {
		return "", err
	}
	if name, ok := c.setName(id); ok {
		return name, nil
	}
	return "", apierror.NewNotFound(apierror.CodeCMNotFoundByID,
		"custom metadata set with ID %s does not exist", id)
}

// GetAttrIDForName resolves an attribute display name within a set,
// two-level: the set name resolution may refresh once, and a miss on the
// attribute within a known set may refresh a second time (the attribute may
// have been added after the set was last cached).
func (c *CustomMetadataCache) GetAttrIDForName(ctx context.Context, setName, attrName string) (string, error) {
	if err := validateIdentifier(attrName, "custom metadata attribute name"); err != nil {
		return "", err
	}
	setID, err := c.GetIDForName(ctx, setName)
	if err != nil {
		return "", err
	}
	if attrID, ok := c.attrID(setID, attrName); ok {
		return attrID, nil
	}
	if err := c.RefreshCache(ctx); err != nil {
		return "", err
	}
	if attrID, ok := c.attrID(setID, attrName); ok {
		return attrID, nil
	}
	return "", apierror.NewNotFound(apierror.CodeCMAttrNotFoundByName,
		"attribute with name %s does not exist in custom metadata set %s", attrName, setName)
}

// GetAttrNameForID resolves an attribute ID within a set to its display
// name. IDs superseded by archival are redirected to the attribute's current
// identity.
func (c *CustomMetadataCache) GetAttrNameForID(ctx context.Context, setID, attrID string) (string, error) {
	if err := validateIdentifier(setID, "custom metadata set ID"); err != nil {
		return "", err
	}
	if err := validateIdentifier(attrID, "custom metadata attribute ID"); err != nil {
		return "", err
	}
	if name, ok := c.attrName(setID, attrID); ok {
		return name, nil
	}
	if err := c.RefreshCache(ctx); err != nil {
		return "", err
	}
	if name, ok := c.attrName(setID, attrID); ok {
		return name, nil
	}
	if _, ok := c.setName(setID); !ok {
		return "", apierror.NewNotFound(apierror.CodeCMNotFoundByID,
			"custom metadata set with ID %s does not exist", setID)
	}
	return "", apierror.NewNotFound(apierror.CodeCMAttrNotFoundByID,
		"attribute with ID %s does not exist in custom metadata set %s", attrID, setID)
}

// GetAllCustomAttributes returns every set's attribute definitions keyed by
// set display name. Archived attributes are excluded unless includeDeleted.
// The cache is refreshed only when empty or when forceRefresh is set;
// structure changes are rare but high-stakes to miss, so this is the one read
// that supports explicit cache-busting.
func (c *CustomMetadataCache) GetAllCustomAttributes(ctx context.Context, includeDeleted, forceRefresh bool) (map[string][]model.AttributeDef, error) {
	if forceRefresh || c.empty() {
		if err := c.RefreshCache(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string][]model.AttributeDef, len(c.defsByID))
	for _, def := range c.defsByID {
		attrs := make([]model.AttributeDef, 0, len(def.AttributeDefs))
		for _, attr := range def.AttributeDefs {
			if attr.Options.IsArchived && !includeDeleted {
				continue
			}
			attrs = append(attrs, attr)
		}
		out[def.DisplayName] = attrs
	}
	return out, nil
}

// ApplicableSets returns the display names of the custom-metadata sets whose
// attributes may attach to the given asset type.
func (c *CustomMetadataCache) ApplicableSets(ctx context.Context, assetType string) ([]string, error) {
	if err := validateIdentifier(assetType, "asset type name"); err != nil {
		return nil, err
	}
	if c.empty() {
		if err := c.RefreshCache(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	sets := c.typesByAsset[assetType]
	out := make([]string, 0, len(sets))
	for name := range sets {
		out = append(out, name)
	}
	return out, nil
}

func (c *CustomMetadataCache) empty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.setIDToName) == 0
}

func (c *CustomMetadataCache) setID(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.setNameToID[name]
	return id, ok
}

func (c *CustomMetadataCache) setName(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.setIDToName[id]
	return name, ok
}

func (c *CustomMetadataCache) attrID(setID, attrName string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.attrNameToID[setID][attrName]
	return id, ok
}

func (c *CustomMetadataCache) attrName(setID, attrID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name, ok := c.attrIDToName[setID][attrID]; ok {
		return name, ok
	}
	// Redirect identifiers superseded by archival.
	if current, ok := c.archivedAttrIDs[attrID]; ok {
		name, ok := c.attrIDToName[setID][current]
		return name, ok
	}
	return "", false
}
