// Package client provides the ApiCaller capability interface consumed by the
// caches and the batch engine, plus a concrete HTTP implementation.
package client

import (
	"context"

	"github.com/metalake/metalake-go/pkg/model"
)

// ApiCaller is the capability the caches and the batch engine need from the
// catalog API: send a request, get decoded JSON back. Implementations must be
// safe for concurrent use.
type ApiCaller interface {
	// GetTypeDefs fetches the complete authoritative definitions for the
	// given categories.
	GetTypeDefs(ctx context.Context, categories ...model.TypeDefCategory) (*model.TypeDefResponse, error)

	// SearchUsers returns the full user listing.
	SearchUsers(ctx context.Context) (*model.UserResponse, error)

	// SearchGroups returns the full group listing.
	SearchGroups(ctx context.Context) (*model.GroupResponse, error)

	// ListRoles returns the full role listing.
	ListRoles(ctx context.Context) (*model.RoleResponse, error)

	// GetTokenByClientID looks up an API token by its client ID. Returns
	// nil, nil when no such token exists.
	GetTokenByClientID(ctx context.Context, clientID string) (*model.APIToken, error)

	// GetTokenByGUID looks up an API token by its GUID. Returns nil, nil
	// when no such token exists.
	GetTokenByGUID(ctx context.Context, guid string) (*model.APIToken, error)

	// Search runs an asset search and returns a lazy page iterator.
	Search(ctx context.Context, req model.SearchRequest) (*SearchResults, error)

	// Save persists assets in one bulk call.
	Save(ctx context.Context, assets []*model.Asset, opts model.SaveOptions) (*model.MutationResponse, error)
}

// PageFunc fetches one page of assets starting at the given offset.
type PageFunc func(ctx context.Context, from, size int) ([]model.Asset, error)

// SearchResults is a lazy, resumable sequence of assets. Pages are fetched on
// demand:
//
//	for results.Next(ctx) {
//		for _, a := range results.Page() { ... }
//	}
//	if err := results.Err(); err != nil { ... }
type SearchResults struct {
	fetch    PageFunc
	pageSize int
	from     int
	page     []model.Asset
	err      error
	done     bool
}

// NewSearchResults creates a page iterator over fetch. Fakes in tests build
// these directly around an in-memory slice.
func NewSearchResults(pageSize int, fetch PageFunc) *SearchResults {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &SearchResults{fetch: fetch, pageSize: pageSize}
}

// Next fetches the next page. It returns false when the results are exhausted
// or a fetch failed; check Err afterwards.
func (r *SearchResults) Next(ctx context.Context) bool {
	if r.done || r.err != nil {
		return false
	}
	page, err := r.fetch(ctx, r.from, r.pageSize)
	if err != nil {
		r.err = err
		r.done = true
		return false
	}
	if len(page) == 0 {
		r.done = true
		return false
	}
	r.page = page
	r.from += len(page)
	if len(page) < r.pageSize {
		r.done = true
	}
	return true
}

// Page returns the current page of assets.
func (r *SearchResults) Page() []model.Asset { return r.page }

// Err returns the first fetch error, if any.
func (r *SearchResults) Err() error { return r.err }
