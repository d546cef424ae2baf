package batch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalake/metalake-go/pkg/client"
	"github.com/metalake/metalake-go/pkg/model"
)

// fakeAPI implements client.ApiCaller for batch tests: searches serve a fixed
// set of "existing" assets and saves are recorded.
type fakeAPI struct {
	existing []model.Asset

	searchCalls int
	searchErr   error

	saves     [][]*model.Asset
	saveOpts  []model.SaveOptions
	saveErr   error
	responses []*model.MutationResponse
}

// Verify interface compliance.
var _ client.ApiCaller = (*fakeAPI)(nil)

func (f *fakeAPI) GetTypeDefs(_ context.Context, _ ...model.TypeDefCategory) (*model.TypeDefResponse, error) {
	return &model.TypeDefResponse{}, nil
}

func (f *fakeAPI) SearchUsers(_ context.Context) (*model.UserResponse, error) {
	return &model.UserResponse{}, nil
}

func (f *fakeAPI) SearchGroups(_ context.Context) (*model.GroupResponse, error) {
	return &model.GroupResponse{}, nil
}

func (f *fakeAPI) ListRoles(_ context.Context) (*model.RoleResponse, error) {
	return &model.RoleResponse{}, nil
}

func (f *fakeAPI) GetTokenByClientID(_ context.Context, _ string) (*model.APIToken, error) {
	return nil, nil
}

func (f *fakeAPI) GetTokenByGUID(_ context.Context, _ string) (*model.APIToken, error) {
	return nil, nil
}

func (f *fakeAPI) Search(_ context.Context, req model.SearchRequest) (*client.SearchResults, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	matches := matchExisting(f.existing, req)
	return client.NewSearchResults(100, func(_ context.Context, from, size int) ([]model.Asset, error) {
		f.searchCalls++
		if from >= len(matches) {
			return nil, nil
		}
		end := from + size
		if end > len(matches) {
			end = len(matches)
		}
		return matches[from:end], nil
	}), nil
}

// matchExisting applies the request's type and qualified-name filters the way
// the server would.
func matchExisting(existing []model.Asset, req model.SearchRequest) []model.Asset {
	types := make(map[string]struct{}, len(req.TypeNames))
	for _, t := range req.TypeNames {
		types[t] = struct{}{}
	}
	names := make(map[string]struct{}, len(req.QualifiedNames))
	for _, qn := range req.QualifiedNames {
		names[fold(qn, req.CaseInsensitive)] = struct{}{}
	}

	var out []model.Asset
	for _, a := range existing {
		if _, ok := types[a.TypeName]; !ok {
			continue
		}
		if _, ok := names[fold(a.QualifiedName, req.CaseInsensitive)]; !ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

func fold(s string, insensitive bool) string {
	if insensitive {
		return strings.ToLower(s)
	}
	return s
}

func (f *fakeAPI) Save(_ context.Context, assets []*model.Asset, opts model.SaveOptions) (*model.MutationResponse, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saves = append(f.saves, assets)
	f.saveOpts = append(f.saveOpts, opts)
	if len(f.responses) > 0 {
		resp := f.responses[0]
		f.responses = f.responses[1:]
		return resp, nil
	}
	// Default: everything sent was created under a fresh server GUID.
	resp := &model.MutationResponse{GUIDAssignments: make(map[string]string)}
	for i, a := range assets {
		real := "srv-" + a.QualifiedName + "-" + string(rune('a'+i))
		resp.GUIDAssignments[a.GUID] = real
		resp.CreatedGUIDs = append(resp.CreatedGUIDs, real)
	}
	return resp, nil
}

func tableAsset(qn string) *model.Asset {
	return &model.Asset{TypeName: model.TypeTable, QualifiedName: qn}
}

func TestBatch_FlushAtCapacity(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, Config{MaxSize: 3})
	ctx := context.Background()

	for i, qn := range []string{"c/db/s/t1", "c/db/s/t2", "c/db/s/t3", "c/db/s/t4"} {
		resp, err := b.Add(ctx, tableAsset(qn))
		require.NoError(t, err)
		if i == 2 {
			assert.NotNil(t, resp, "third add must trigger the automatic flush")
		} else {
			assert.Nil(t, resp)
		}
	}

	require.Len(t, api.saves, 1)
	assert.Len(t, api.saves[0], 3)
	assert.Equal(t, 1, b.NumPending())
}

func TestBatch_PlainLoadSkipsReconciliation(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, Config{MaxSize: 10})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/t1"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)

	assert.Zero(t, api.searchCalls, "default create-or-update loads must not pre-query")
	require.Len(t, api.saves, 1)
}

func TestBatch_FlushEmptyIsNoop(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, Config{})

	resp, err := b.Flush(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.Empty(t, api.saves)
}

func TestBatch_UpdateOnlySkipsUnmatched(t *testing.T) {
	api := &fakeAPI{existing: []model.Asset{
		{TypeName: model.TypeTable, QualifiedName: "c/db/s/known"},
	}}
	b := New(api, Config{UpdateOnly: true, CreationHandling: CreationNone, Track: true})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/known"))
	require.NoError(t, err)
	_, err = b.Add(ctx, tableAsset("c/db/s/unknown"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)

	require.Len(t, api.saves, 1)
	require.Len(t, api.saves[0], 1)
	assert.Equal(t, "c/db/s/known", api.saves[0][0].QualifiedName)

	assert.Equal(t, 1, b.NumSkipped())
	require.Len(t, b.Skipped(), 1)
	assert.Equal(t, "c/db/s/unknown", b.Skipped()[0].QualifiedName)
}

func TestBatch_PartialCreationSetsFlag(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, Config{CreationHandling: CreationPartial})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/new"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)

	require.Len(t, api.saves, 1)
	assert.True(t, api.saves[0][0].IsPartial)
}

func TestBatch_CaseInsensitiveRewritesToServerCasing(t *testing.T) {
	api := &fakeAPI{existing: []model.Asset{
		{TypeName: model.TypeTable, QualifiedName: "c/db/s/orders"},
	}}
	b := New(api, Config{UpdateOnly: true, CreationHandling: CreationNone, CaseInsensitive: true})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/ORDERS"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)

	require.Len(t, api.saves, 1)
	assert.Equal(t, "c/db/s/orders", api.saves[0][0].QualifiedName,
		"matched assets must carry the server's actual casing")
}

func TestBatch_TableViewAgnosticRetypes(t *testing.T) {
	api := &fakeAPI{existing: []model.Asset{
		{TypeName: model.TypeView, QualifiedName: "c/db/s/orders"},
	}}
	b := New(api, Config{UpdateOnly: true, CreationHandling: CreationNone, TableViewAgnostic: true, Track: true})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/orders"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)

	require.Len(t, api.saves, 1, "the asset must follow the object, not create a duplicate")
	sent := api.saves[0][0]
	assert.Equal(t, model.TypeView, sent.TypeName)
	assert.Zero(t, b.NumSkipped())
}

func TestBatch_CaptureFailures(t *testing.T) {
	api := &fakeAPI{saveErr: errors.New("bulk endpoint exploded")}
	b := New(api, Config{CaptureFailures: true})
	ctx := context.Background()

	asset := tableAsset("c/db/s/t1")
	_, err := b.Add(ctx, asset)
	require.NoError(t, err)

	resp, err := b.Flush(ctx)
	require.NoError(t, err, "captured failures must not surface")
	assert.Nil(t, resp)

	require.Len(t, b.Failures(), 1)
	assert.Equal(t, []*model.Asset{asset}, b.Failures()[0].Assets)
	assert.ErrorContains(t, b.Failures()[0].Err, "bulk endpoint exploded")
	assert.Zero(t, b.NumPending(), "the batch must be ready for the next add cycle")

	// Subsequent batches continue normally.
	api.saveErr = nil
	_, err = b.Add(ctx, tableAsset("c/db/s/t2"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)
	require.Len(t, api.saves, 1)
}

func TestBatch_SaveFailureWithoutCapture(t *testing.T) {
	api := &fakeAPI{saveErr: errors.New("boom")}
	b := New(api, Config{})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/t1"))
	require.NoError(t, err)

	_, err = b.Flush(ctx)
	require.Error(t, err)
	assert.Zero(t, b.NumPending(), "the pending list is cleared even when the save fails")
}

func TestBatch_ReconciliationFailurePropagates(t *testing.T) {
	api := &fakeAPI{searchErr: errors.New("search down")}
	b := New(api, Config{UpdateOnly: true, CaptureFailures: true})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/t1"))
	require.NoError(t, err)

	_, err = b.Flush(ctx)
	require.Error(t, err, "setup failures are never captured")
	assert.Empty(t, b.Failures())
	assert.Equal(t, 1, b.NumPending(), "a setup failure leaves the batch untouched")
}

func TestBatch_TracksOutcomes(t *testing.T) {
	api := &fakeAPI{responses: []*model.MutationResponse{{
		CreatedGUIDs:    []string{"srv-1"},
		UpdatedGUIDs:    []string{"srv-2"},
		GUIDAssignments: map[string]string{},
	}}}
	b := New(api, Config{Track: true})
	ctx := context.Background()

	created := &model.Asset{TypeName: model.TypeTable, GUID: "srv-1", QualifiedName: "c/db/s/t1"}
	updated := &model.Asset{TypeName: model.TypeTable, GUID: "srv-2", QualifiedName: "c/db/s/t2"}
	touched := &model.Asset{TypeName: model.TypeTable, GUID: "srv-3", QualifiedName: "c/db/s/t3"}
	for _, a := range []*model.Asset{created, updated, touched} {
		_, err := b.Add(ctx, a)
		require.NoError(t, err)
	}

	_, err := b.Flush(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, b.NumCreated())
	assert.Equal(t, 1, b.NumUpdated())
	assert.Equal(t, 1, b.NumRestored(), "sent but in neither GUID set counts as restored")
	assert.Equal(t, []*model.Asset{created}, b.Created())
	assert.Equal(t, []*model.Asset{updated}, b.Updated())
	assert.Equal(t, []*model.Asset{touched}, b.Restored())
}

func TestBatch_ResolvesPlaceholderGUIDs(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, Config{})
	ctx := context.Background()

	asset := tableAsset("c/db/s/t1")
	_, err := b.Add(ctx, asset)
	require.NoError(t, err)
	placeholder := asset.GUID
	require.True(t, model.IsPlaceholderGUID(placeholder))

	_, err = b.Flush(ctx)
	require.NoError(t, err)

	real, ok := b.ResolvedGUID(placeholder)
	require.True(t, ok)
	assert.Equal(t, real, asset.GUID, "the sent asset is rewritten to the server GUID")
	assert.False(t, model.IsPlaceholderGUID(asset.GUID))

	actual, ok := b.ResolvedQualifiedName("C/DB/S/T1")
	require.True(t, ok)
	assert.Equal(t, "c/db/s/t1", actual)
}

func TestBatch_CustomMetadataHandlingPassedThrough(t *testing.T) {
	api := &fakeAPI{}
	b := New(api, Config{CustomMetadataHandling: model.CustomMetadataMerge})
	ctx := context.Background()

	_, err := b.Add(ctx, tableAsset("c/db/s/t1"))
	require.NoError(t, err)
	_, err = b.Flush(ctx)
	require.NoError(t, err)

	require.Len(t, api.saveOpts, 1)
	assert.Equal(t, model.CustomMetadataMerge, api.saveOpts[0].CustomMetadataHandling)
}
