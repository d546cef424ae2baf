// Package cache provides lazily-populated translation caches between
// human-readable identifiers and server-internal IDs for tags, enums, users,
// groups, roles, source tags, and custom metadata.
//
// All caches follow the same lookup protocol: consult the in-memory map; on a
// miss, perform exactly one refresh (a full replace of the maps from the
// authoritative server listing) and retry; only then apply the per-kind miss
// policy. Refreshes on one cache instance are serialized; lookups never block
// behind the network call of an in-flight refresh against the old maps.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/metalake/metalake-go/pkg/apierror"
	"github.com/metalake/metalake-go/pkg/client"
)

// loadFunc fetches the complete authoritative ID-to-name mapping.
type loadFunc func(ctx context.Context) (map[string]string, error)

// bidi is the shared bidirectional map core. Refreshes rebuild both maps
// wholesale and swap them in atomically, so readers never observe a
// partially-rebuilt bijection.
type bidi struct {
	kind string
	load loadFunc

	// refreshMu serializes refreshes; mu guards map access. The network
	// fetch happens under refreshMu only, so readers keep hitting the
	// previous maps until the swap.
	refreshMu sync.Mutex
	mu        sync.RWMutex
	idToName  map[string]string
	nameToID  map[string]string
}

func (b *bidi) getID(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.nameToID[name]
	return id, ok
}

func (b *bidi) getName(id string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	name, ok := b.idToName[id]
	return name, ok
}

// insert adds a single pair without a refresh. Used for principals that the
// listing endpoints never return (API tokens).
func (b *bidi) insert(id, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.idToName == nil {
		b.idToName = make(map[string]string)
		b.nameToID = make(map[string]string)
	}
	b.idToName[id] = name
	b.nameToID[name] = id
}

// refresh replaces both maps from the authoritative listing. On error the
// previous maps remain in place.
func (b *bidi) refresh(ctx context.Context) error {
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	idToName, err := b.load(ctx)
	if err != nil {
		return err
	}
	nameToID := make(map[string]string, len(idToName))
	for id, name := range idToName {
		nameToID[name] = id
	}

	b.mu.Lock()
	b.idToName = idToName
	b.nameToID = nameToID
	b.mu.Unlock()

	slog.Debug("cache: refreshed", "kind", b.kind, "entries", len(idToName))
	return nil
}

// idForName resolves name to an ID with the miss-then-refresh-then-retry
// protocol, returning a kind-specific NotFoundError on genuine absence.
func (b *bidi) idForName(ctx context.Context, name string, code apierror.Code) (string, error) {
	if err := validateIdentifier(name, b.kind+" name"); err != nil {
		return "", err
	}
	if id, ok := b.getID(name); ok {
		return id, nil
	}
	if err := b.refresh(ctx); err != nil {
		return "", err
	}
	if id, ok := b.getID(name); ok {
		return id, nil
	}
	return "", apierror.NewNotFound(code, "%s with name %s does not exist", b.kind, name)
}

// nameForID is the reverse of idForName.
func (b *bidi) nameForID(ctx context.Context, id string, code apierror.Code) (string, error) {
	if err := validateIdentifier(id, b.kind+" ID"); err != nil {
		return "", err
	}
	if name, ok := b.getName(id); ok {
		return name, nil
	}
	if err := b.refresh(ctx); err != nil {
		return "", err
	}
	if name, ok := b.getName(id); ok {
		return name, nil
	}
	return "", apierror.NewNotFound(code, "%s with ID %s does not exist", b.kind, id)
}

// validateIdentifier rejects empty or whitespace-only input before any
// network activity.
func validateIdentifier(value, what string) error {
	if strings.TrimSpace(value) == "" {
		return apierror.NewMissingIdentifier(what)
	}
	return nil
}

// Caches bundles one instance of every cache, all sharing one ApiCaller.
// Each client value owns its own bundle; there is no process-wide state.
type Caches struct {
	Tags           *TagCache
	Enums          *EnumCache
	Users          *UserCache
	Groups         *GroupCache
	Roles          *RoleCache
	SourceTags     *SourceTagCache
	CustomMetadata *CustomMetadataCache
}

// New creates a cache bundle backed by api.
func New(api client.ApiCaller) *Caches {
	return &Caches{
		Tags:           NewTagCache(api),
		Enums:          NewEnumCache(api),
		Users:          NewUserCache(api),
		Groups:         NewGroupCache(api),
		Roles:          NewRoleCache(api),
		SourceTags:     NewSourceTagCache(api),
		CustomMetadata: NewCustomMetadataCache(api),
	}
}
