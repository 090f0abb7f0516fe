package services

import (
	"context"
	"testing"
	"time"

	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApprovalFixture() (*ApprovalService, *fakeApprovalRepo, *memAudit) {
	sink := &memAudit{}
	repo := newFakeApprovalRepo(sink)
	svc := NewApprovalService(repo, sink)
	return svc, repo, sink
}

func TestApprovalRequestStartsPending(t *testing.T) {
	svc, _, sink := newApprovalFixture()
	applicant := types.User{ID: 7, Role: types.RoleResearcher}

	created, err := svc.Request(context.Background(), applicant, types.ResourceDataset, 3, "training run", "10.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, types.DecisionPending, created.Decision)
	assert.Nil(t, created.ExpiresAt)
	assert.Nil(t, created.ReviewedBy)

	entry := sink.last()
	assert.Equal(t, "request_approval", entry.Action)
	assert.Equal(t, types.AuditOK, entry.Result)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, applicant.ID, *entry.ActorID)
}

func TestApprovalReviewWithTTL(t *testing.T) {
	svc, _, _ := newApprovalFixture()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	applicant := types.User{ID: 7, Role: types.RoleResearcher}
	reviewer := types.User{ID: 1, Role: types.RoleAdmin}

	created, err := svc.Request(context.Background(), applicant, types.ResourceDataset, 3, "", "")
	require.NoError(t, err)

	ttl := 60
	reviewed, err := svc.Review(context.Background(), reviewer, created.ID, types.DecisionApproved, &ttl, "")
	require.NoError(t, err)

	assert.Equal(t, types.DecisionApproved, reviewed.Decision)
	require.NotNil(t, reviewed.ExpiresAt)
	assert.Equal(t, base.Add(time.Hour), *reviewed.ExpiresAt)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, reviewer.ID, *reviewed.ReviewedBy)
}

func TestApprovalReviewWithoutTTLIsPermanent(t *testing.T) {
	svc, _, _ := newApprovalFixture()
	applicant := types.User{ID: 7, Role: types.RoleResearcher}
	reviewer := types.User{ID: 1, Role: types.RoleAdmin}

	created, err := svc.Request(context.Background(), applicant, types.ResourceSample, 9, "", "")
	require.NoError(t, err)

	reviewed, err := svc.Review(context.Background(), reviewer, created.ID, types.DecisionApproved, nil, "")
	require.NoError(t, err)
	assert.Nil(t, reviewed.ExpiresAt)
}

func TestApprovalRejectionIgnoresTTL(t *testing.T) {
	svc, _, _ := newApprovalFixture()
	applicant := types.User{ID: 7, Role: types.RoleResearcher}
	reviewer := types.User{ID: 1, Role: types.RoleAdmin}

	created, err := svc.Request(context.Background(), applicant, types.ResourceDataset, 3, "", "")
	require.NoError(t, err)

	ttl := 30
	reviewed, err := svc.Review(context.Background(), reviewer, created.ID, types.DecisionRejected, &ttl, "")
	require.NoError(t, err)
	assert.Equal(t, types.DecisionRejected, reviewed.Decision)
	assert.Nil(t, reviewed.ExpiresAt)
}

func TestApprovalReviewRejectsBadDecision(t *testing.T) {
	svc, _, _ := newApprovalFixture()
	reviewer := types.User{ID: 1, Role: types.RoleAdmin}

	_, err := svc.Review(context.Background(), reviewer, 1, types.DecisionPending, nil, "")
	assert.ErrorIs(t, err, store.ErrInvalidState)

	_, err = svc.Review(context.Background(), reviewer, 1, types.Decision("maybe"), nil, "")
	assert.ErrorIs(t, err, store.ErrInvalidState)
}

func TestApprovalDecidedExactlyOnce(t *testing.T) {
	svc, _, sink := newApprovalFixture()
	applicant := types.User{ID: 7, Role: types.RoleResearcher}
	first := types.User{ID: 1, Role: types.RoleAdmin}
	second := types.User{ID: 2, Role: types.RoleDataAdmin}

	created, err := svc.Request(context.Background(), applicant, types.ResourceDataset, 3, "", "")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), first, created.ID, types.DecisionApproved, nil, "")
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), second, created.ID, types.DecisionRejected, nil, "")
	assert.ErrorIs(t, err, store.ErrInvalidState)

	// The losing reviewer leaves a deny entry; the record keeps the
	// first decision.
	entry := sink.last()
	assert.Equal(t, "review_approval", entry.Action)
	assert.Equal(t, types.AuditDeny, entry.Result)
	assert.Equal(t, "already decided", entry.Detail)

	latest, err := svc.LatestFor(context.Background(), applicant.ID, types.ResourceDataset, 3)
	require.NoError(t, err)
	assert.Equal(t, types.DecisionApproved, latest.Decision)
}

func TestApprovalLatestForPicksNewestRequest(t *testing.T) {
	svc, _, _ := newApprovalFixture()
	applicant := types.User{ID: 7, Role: types.RoleResearcher}
	reviewer := types.User{ID: 1, Role: types.RoleAdmin}

	old, err := svc.Request(context.Background(), applicant, types.ResourceDataset, 3, "", "")
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), reviewer, old.ID, types.DecisionRejected, nil, "")
	require.NoError(t, err)

	_, err = svc.Request(context.Background(), applicant, types.ResourceDataset, 3, "second attempt", "")
	require.NoError(t, err)

	latest, err := svc.LatestFor(context.Background(), applicant.ID, types.ResourceDataset, 3)
	require.NoError(t, err)
	assert.Equal(t, types.DecisionPending, latest.Decision)
	assert.Equal(t, "second attempt", latest.Purpose)
}
