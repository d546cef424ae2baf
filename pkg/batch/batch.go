package batch

import (
	"context"
	"fmt"
	"strings"

	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// CreationHandling selects what happens to an asset that matches nothing on
// the server.
type CreationHandling string

const (
	// CreationFull creates unmatched assets as full assets.
	CreationFull CreationHandling = "full"

	// CreationPartial creates unmatched assets as partial stubs (the asset
	// is sent with its partial flag set; the server defines the semantics).
	CreationPartial CreationHandling = "partial"

	// CreationNone skips unmatched assets entirely.
	CreationNone CreationHandling = "none"
)

// defaultMaxSize bounds a batch when the caller does not choose a size.
const defaultMaxSize = 20

// tableViewTypes are the interchangeable relational types probed by
// table/view-agnostic reconciliation.
var tableViewTypes = []string{model.TypeTable, model.TypeView, model.TypeMaterialisedView}

// FailedBatch records one failed bulk save when failure capture is enabled.
type FailedBatch struct {
	Assets []*model.Asset
	Err    error
}

// Config tunes a Batch.
type Config struct {
	// MaxSize is the number of pending assets that triggers an automatic
	// flush. Defaults to 20.
	MaxSize int

	// Track retains the created/updated/restored/skipped assets themselves,
	// not just their counts.
	Track bool

	// CaseInsensitive matches qualified names against existing assets
	// ignoring case. Matched assets are rewritten to the server's casing.
	CaseInsensitive bool

	// TableViewAgnostic lets a pending Table/View/MaterialisedView match an
	// existing asset of either sibling type; the pending asset is retyped
	// to follow the object rather than create a duplicate.
	TableViewAgnostic bool

	// UpdateOnly sends only assets that matched something on the server.
	UpdateOnly bool

	// CreationHandling selects full or partial creation for unmatched
	// assets. Defaults to CreationFull.
	CreationHandling CreationHandling

	// CustomMetadataHandling is passed through to the bulk save call.
	CustomMetadataHandling model.CustomMetadataHandling

	// CaptureFailures records failed saves in Failures instead of returning
	// the error, so a long load can continue with subsequent batches.
	CaptureFailures bool
}

// Batch accumulates assets and persists them in bulk. One Batch instance is
// not safe for concurrent use; callers ingesting from multiple goroutines
// must serialize externally or use one Batch per worker.
type Batch struct {
	api client.ApiCaller
	cfg Config

	pending []*model.Asset

	created  []*model.Asset
	updated  []*model.Asset
	restored []*model.Asset
	skipped  []*model.Asset

	numCreated  int
	numUpdated  int
	numRestored int
	numSkipped  int

	resolvedGUIDs          map[string]string
	resolvedQualifiedNames map[string]string

	failures []FailedBatch
}

// New creates a Batch backed by api.
func New(api client.ApiCaller, cfg Config) *Batch {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if cfg.CreationHandling == "" {
		cfg.CreationHandling = CreationFull
	}
	return &Batch{
		api:                    api,
		cfg:                    cfg,
		resolvedGUIDs:          make(map[string]string),
		resolvedQualifiedNames: make(map[string]string),
	}
}

// Add appends an asset to the pending list, flushing first-in first-out when
// the list reaches capacity. It returns the flush result when a flush
// occurred, nil otherwise. Assets without a GUID are assigned a placeholder
// that resolves to the server GUID after the save.
func (b *Batch) Add(ctx context.Context, asset *model.Asset) (*model.MutationResponse, error) {
	if asset.GUID == "" {
		asset.GUID = model.NewPlaceholderGUID()
	}
	b.pending = append(b.pending, asset)
	if len(b.pending) >= b.cfg.MaxSize {
		return b.Flush(ctx)
	}
	return nil, nil
}

// Flush reconciles and persists all pending assets in one bulk call.
//
// A reconciliation-query failure propagates immediately and leaves the batch
// untouched (a setup failure, not a data failure). A save failure clears the
// pending list either way: by default it is returned; with CaptureFailures it
// is recorded in Failures and Flush returns nil so the caller can continue.
func (b *Batch) Flush(ctx context.Context) (*model.MutationResponse, error) {
	if len(b.pending) == 0 {
		return nil, nil
	}

	revised := b.pending
	if b.needsReconciliation() {
		found, err := b.lookupExisting(ctx)
		if err != nil {
			return nil, err
		}
		revised = b.classify(found)
	}

	sent := revised
	b.pending = nil

	if len(sent) == 0 {
		return nil, nil
	}

	resp, err := b.api.Save(ctx, sent, model.SaveOptions{
		CustomMetadataHandling: b.cfg.CustomMetadataHandling,
	})
	if err != nil {
		if b.cfg.CaptureFailures {
			b.failures = append(b.failures, FailedBatch{Assets: sent, Err: err})
			return nil, nil
		}
		return nil, err
	}

	b.track(sent, resp)
	return resp, nil
}

// needsReconciliation reports whether a pre-save lookup of existing assets is
// required. Plain create-or-update loads skip it; it costs one search per
// flush.
func (b *Batch) needsReconciliation() bool {
	return b.cfg.UpdateOnly ||
		b.cfg.TableViewAgnostic ||
		b.cfg.CreationHandling != CreationFull
}

// lookupExisting runs one search covering every pending asset and returns the
// identities found, mapped to the server's actual qualified-name casing.
func (b *Batch) lookupExisting(ctx context.Context) (map[AssetIdentity]string, error) {
	typeNames := make(map[string]struct{}, len(b.pending))
	qualifiedNames := make([]string, 0, len(b.pending))
	for _, asset := range b.pending {
		typeNames[asset.TypeName] = struct{}{}
		qualifiedNames = append(qualifiedNames, asset.QualifiedName)
	}
	if b.cfg.TableViewAgnostic {
		for _, t := range tableViewTypes {
			if _, ok := typeNames[t]; ok {
				for _, sibling := range tableViewTypes {
					typeNames[sibling] = struct{}{}
				}
				break
			}
		}
	}

	req := model.SearchRequest{
		TypeNames:       make([]string, 0, len(typeNames)),
		QualifiedNames:  qualifiedNames,
		CaseInsensitive: b.cfg.CaseInsensitive,
		Attributes:      []string{"qualifiedName"},
	}
	for t := range typeNames {
		req.TypeNames = append(req.TypeNames, t)
	}

	results, err := b.api.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("looking up existing assets: %w", err)
	}

	found := make(map[AssetIdentity]string)
	for results.Next(ctx) {
		for _, asset := range results.Page() {
			key := NewAssetIdentity(asset.TypeName, asset.QualifiedName, b.cfg.CaseInsensitive)
			found[key] = asset.QualifiedName
		}
	}
	if err := results.Err(); err != nil {
		return nil, fmt.Errorf("looking up existing assets: %w", err)
	}
	return found, nil
}

// classify decides, per pending asset, whether it is an update of an existing
// asset (possibly under a sibling relational type), a creation, or a skip.
func (b *Batch) classify(found map[AssetIdentity]string) []*model.Asset {
	revised := make([]*model.Asset, 0, len(b.pending))

	for _, asset := range b.pending {
		qn := asset.QualifiedName
		if prior, ok := b.resolvedQualifiedNames[strings.ToLower(qn)]; ok {
			// Saved earlier in this session; follow the casing the server
			// confirmed then.
			qn = prior
		}

		key := NewAssetIdentity(asset.TypeName, qn, b.cfg.CaseInsensitive)
		if actual, ok := found[key]; ok {
			asset.QualifiedName = actual
			revised = append(revised, asset)
			continue
		}

		if b.cfg.TableViewAgnostic && isTableViewType(asset.TypeName) {
			if matched := b.matchSiblingType(found, asset, qn); matched {
				revised = append(revised, asset)
				continue
			}
		}

		switch {
		case b.cfg.CreationHandling == CreationPartial:
			asset.IsPartial = true
			revised = append(revised, asset)
		case b.cfg.CreationHandling == CreationFull && !b.cfg.UpdateOnly:
			revised = append(revised, asset)
		default:
			b.numSkipped++
			if b.cfg.Track {
				b.skipped = append(b.skipped, asset)
			}
		}
	}
	return revised
}

// matchSiblingType probes the found map under the other relational types and
// retypes the asset on a hit.
func (b *Batch) matchSiblingType(found map[AssetIdentity]string, asset *model.Asset, qn string) bool {
	for _, sibling := range tableViewTypes {
		if sibling == asset.TypeName {
			continue
		}
		if actual, ok := found[NewAssetIdentity(sibling, qn, b.cfg.CaseInsensitive)]; ok {
			asset.TypeName = sibling
			asset.QualifiedName = actual
			return true
		}
	}
	return false
}

// track classifies every sent asset against the response. Assets present in
// neither GUID set were confirmed without change and count as restored.
// Placeholder GUIDs are resolved so forward references in later batches of
// the same session land on the real server GUIDs.
func (b *Batch) track(sent []*model.Asset, resp *model.MutationResponse) {
	createdSet := toSet(resp.CreatedGUIDs)
	updatedSet := toSet(resp.UpdatedGUIDs)

	for placeholder, real := range resp.GUIDAssignments {
		b.resolvedGUIDs[placeholder] = real
	}

	for _, asset := range sent {
		if real, ok := resp.GUIDAssignments[asset.GUID]; ok {
			asset.GUID = real
		}
		b.resolvedQualifiedNames[strings.ToLower(asset.QualifiedName)] = asset.QualifiedName

		switch {
		case contains(createdSet, asset.GUID):
			b.numCreated++
			if b.cfg.Track {
				b.created = append(b.created, asset)
			}
		case contains(updatedSet, asset.GUID):
			b.numUpdated++
			if b.cfg.Track {
				b.updated = append(b.updated, asset)
			}
		default:
			b.numRestored++
			if b.cfg.Track {
				b.restored = append(b.restored, asset)
			}
		}
	}
}

// Created returns the assets created so far. Populated only with Track.
func (b *Batch) Created() []*model.Asset { return b.created }

// Updated returns the assets updated so far. Populated only with Track.
func (b *Batch) Updated() []*model.Asset { return b.updated }

// Restored returns the assets confirmed without change. Populated only with
// Track.
func (b *Batch) Restored() []*model.Asset { return b.restored }

// Skipped returns the assets excluded from saving. Populated only with Track.
func (b *Batch) Skipped() []*model.Asset { return b.skipped }

// Failures returns the captured save failures.
func (b *Batch) Failures() []FailedBatch { return b.failures }

// NumCreated returns the count of created assets.
func (b *Batch) NumCreated() int { return b.numCreated }

// NumUpdated returns the count of updated assets.
func (b *Batch) NumUpdated() int { return b.numUpdated }

// NumRestored returns the count of restored assets.
func (b *Batch) NumRestored() int { return b.numRestored }

// NumSkipped returns the count of skipped assets.
func (b *Batch) NumSkipped() int { return b.numSkipped }

// NumPending returns the count of assets awaiting the next flush.
func (b *Batch) NumPending() int { return len(b.pending) }

// ResolvedGUID returns the server GUID assigned to a placeholder GUID used
// earlier in this session.
func (b *Batch) ResolvedGUID(placeholder string) (string, bool) {
	real, ok := b.resolvedGUIDs[placeholder]
	return real, ok
}

// ResolvedQualifiedName returns the server-confirmed casing for a qualified
// name saved earlier in this session.
func (b *Batch) ResolvedQualifiedName(qualifiedName string) (string, bool) {
	actual, ok := b.resolvedQualifiedNames[strings.ToLower(qualifiedName)]
	return actual, ok
}

func isTableViewType(typeName string) bool {
	for _, t := range tableViewTypes {
		if t == typeName {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func contains(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
