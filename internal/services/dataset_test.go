package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDatasetFixture() (*DatasetService, *fakeDatasetRepo, *fakeBlobStore, *memAudit) {
	sink := &memAudit{}
	repo := newFakeDatasetRepo()
	blobs := newFakeBlobStore()
	return NewDatasetService(repo, blobs, sink), repo, blobs, sink
}

func TestDatasetCreateDefaultsToGroup(t *testing.T) {
	svc, _, _, sink := newDatasetFixture()
	actor := types.User{ID: 2, Role: types.RoleResearcher}

	created, err := svc.Create(context.Background(), actor, types.Dataset{Name: "ct-lung"}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, types.VisibilityGroup, created.Visibility)
	assert.Equal(t, actor.ID, created.CreatedBy)

	entry := sink.last()
	assert.Equal(t, "create_dataset", entry.Action)
	assert.Equal(t, types.AuditOK, entry.Result)
}

func TestDatasetCreateDuplicateName(t *testing.T) {
	svc, _, _, sink := newDatasetFixture()
	actor := types.User{ID: 2, Role: types.RoleResearcher}

	_, err := svc.Create(context.Background(), actor, types.Dataset{Name: "ct-lung"}, "")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), actor, types.Dataset{Name: "ct-lung"}, "")
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Equal(t, "duplicate name", sink.last().Detail)
}

func TestDatasetGetVisibilityGate(t *testing.T) {
	svc, repo, _, sink := newDatasetFixture()
	owner := types.User{ID: 1, Role: types.RoleResearcher}
	stranger := types.User{ID: 9, Role: types.RoleResearcher}
	dataAdmin := types.User{ID: 3, Role: types.RoleDataAdmin}

	private, err := repo.Create(context.Background(), types.Dataset{Name: "secret", Visibility: types.VisibilityPrivate, CreatedBy: owner.ID})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), owner, private.ID, "")
	require.NoError(t, err)
	assert.Equal(t, types.AuditOK, sink.last().Result)

	_, err = svc.Get(context.Background(), stranger, private.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	entry := sink.last()
	assert.Equal(t, types.AuditDeny, entry.Result)
	assert.Equal(t, "private dataset", entry.Detail)

	_, err = svc.Get(context.Background(), dataAdmin, private.ID, "")
	require.NoError(t, err)
}

func TestDatasetListFiltersHiddenRows(t *testing.T) {
	svc, repo, _, _ := newDatasetFixture()
	owner := types.User{ID: 1, Role: types.RoleResearcher}
	stranger := types.User{ID: 9, Role: types.RoleResearcher}
	admin := types.User{ID: 3, Role: types.RoleAdmin}

	_, err := repo.Create(context.Background(), types.Dataset{Name: "open", Visibility: types.VisibilityGroup, CreatedBy: owner.ID})
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), types.Dataset{Name: "secret", Visibility: types.VisibilityPrivate, CreatedBy: owner.ID})
	require.NoError(t, err)

	listed, err := svc.List(context.Background(), stranger)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "open", listed[0].Name)

	listed, err = svc.List(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	listed, err = svc.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestDatasetDeleteRemovesArtifacts(t *testing.T) {
	svc, repo, blobs, sink := newDatasetFixture()
	owner := types.User{ID: 1, Role: types.RoleResearcher}

	created, err := repo.Create(context.Background(), types.Dataset{Name: "ct-lung", Visibility: types.VisibilityGroup, CreatedBy: owner.ID})
	require.NoError(t, err)
	require.NoError(t, blobs.Put(context.Background(), "dataset_1/a.png", bytes.NewReader([]byte("a")), 1, "image/png"))
	require.NoError(t, blobs.Put(context.Background(), "dataset_2/keep.png", bytes.NewReader([]byte("k")), 1, "image/png"))

	require.NoError(t, svc.Delete(context.Background(), owner, created.ID, ""))

	_, err = repo.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NotContains(t, blobs.objects, "dataset_1/a.png")
	assert.Contains(t, blobs.objects, "dataset_2/keep.png")
	assert.Equal(t, types.AuditOK, sink.last().Result)
}

func TestDatasetDeleteForbiddenForNonOwner(t *testing.T) {
	svc, repo, _, sink := newDatasetFixture()
	owner := types.User{ID: 1, Role: types.RoleResearcher}
	stranger := types.User{ID: 9, Role: types.RoleResearcher}

	created, err := repo.Create(context.Background(), types.Dataset{Name: "ct-lung", Visibility: types.VisibilityGroup, CreatedBy: owner.ID})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), stranger, created.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "not owner", sink.last().Detail)

	_, err = repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
}

func TestDatasetDeleteSurvivesArtifactFailure(t *testing.T) {
	svc, repo, blobs, sink := newDatasetFixture()
	owner := types.User{ID: 1, Role: types.RoleResearcher}

	created, err := repo.Create(context.Background(), types.Dataset{Name: "ct-lung", Visibility: types.VisibilityGroup, CreatedBy: owner.ID})
	require.NoError(t, err)

	blobs.failDeletePrefix = true
	require.NoError(t, svc.Delete(context.Background(), owner, created.ID, ""))

	// The database deletion stands; the filesystem fault becomes an
	// error-level audit entry pointing at the orphaned prefix.
	_, err = repo.Get(context.Background(), created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	entry := sink.last()
	assert.Equal(t, types.AuditError, entry.Result)
	assert.Contains(t, entry.Detail, "dataset_1/")
}
