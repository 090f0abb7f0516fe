package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/medimg-lab/apiserver/internal/storage"
	"github.com/medimg-lab/apiserver/internal/store"
	"github.com/medimg-lab/apiserver/types"
)

var errFSFault = errors.New("backend fault")

// memAudit is an in-memory AuditSink capturing the exact entry sequence.
type memAudit struct {
	mu      sync.Mutex
	entries []types.AuditEntry
}

func (m *memAudit) Record(ctx context.Context, entry types.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ActorID = SanitizeActorID(entry.ActorID)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memAudit) all() []types.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.AuditEntry(nil), m.entries...)
}

func (m *memAudit) last() types.AuditEntry {
	entries := m.all()
	return entries[len(entries)-1]
}

type fakeDatasetRepo struct {
	nextID   int
	datasets map[int]types.Dataset
}

func newFakeDatasetRepo() *fakeDatasetRepo {
	return &fakeDatasetRepo{datasets: make(map[int]types.Dataset)}
}

func (r *fakeDatasetRepo) Get(ctx context.Context, id int) (types.Dataset, error) {
	dataset, ok := r.datasets[id]
	if !ok {
		return types.Dataset{}, store.ErrNotFound
	}
	return dataset, nil
}

func (r *fakeDatasetRepo) ListVisible(ctx context.Context, viewer types.User) ([]types.Dataset, error) {
	ids := make([]int, 0, len(r.datasets))
	for id := range r.datasets {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]types.Dataset, 0, len(ids))
	for _, id := range ids {
		dataset := r.datasets[id]
		if viewer.Role.Privileged() || dataset.Visibility == types.VisibilityGroup || dataset.CreatedBy == viewer.ID {
			out = append(out, dataset)
		}
	}
	return out, nil
}

func (r *fakeDatasetRepo) Create(ctx context.Context, dataset types.Dataset) (types.Dataset, error) {
	for _, existing := range r.datasets {
		if existing.Name == dataset.Name {
			return types.Dataset{}, store.ErrConflict
		}
	}
	r.nextID++
	dataset.ID = r.nextID
	dataset.CreatedAt = time.Now()
	r.datasets[dataset.ID] = dataset
	return dataset, nil
}

func (r *fakeDatasetRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.datasets[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.datasets, id)
	return nil
}

type fakeSampleRepo struct {
	nextID   int
	samples  map[int]types.Sample
	datasets *fakeDatasetRepo
}

func newFakeSampleRepo(datasets *fakeDatasetRepo) *fakeSampleRepo {
	return &fakeSampleRepo{samples: make(map[int]types.Sample), datasets: datasets}
}

func (r *fakeSampleRepo) Get(ctx context.Context, id int) (types.Sample, error) {
	sample, ok := r.samples[id]
	if !ok {
		return types.Sample{}, store.ErrNotFound
	}
	return sample, nil
}

func (r *fakeSampleRepo) GetBySHA256(ctx context.Context, digest string) (types.Sample, error) {
	for _, sample := range r.samples {
		if sample.SHA256 == digest {
			return sample, nil
		}
	}
	return types.Sample{}, store.ErrNotFound
}

func (r *fakeSampleRepo) ListByDataset(ctx context.Context, datasetID int) ([]types.Sample, error) {
	out := make([]types.Sample, 0)
	for _, sample := range r.samples {
		if sample.DatasetID == datasetID {
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeSampleRepo) ListVisible(ctx context.Context, viewer types.User) ([]types.Sample, error) {
	out := make([]types.Sample, 0)
	for _, sample := range r.samples {
		dataset, err := r.datasets.Get(ctx, sample.DatasetID)
		if err != nil {
			continue
		}
		if viewer.Role.Privileged() || dataset.Visibility == types.VisibilityGroup || dataset.CreatedBy == viewer.ID {
			out = append(out, sample)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeSampleRepo) Create(ctx context.Context, sample types.Sample) (types.Sample, error) {
	for _, existing := range r.samples {
		if existing.SHA256 == sample.SHA256 {
			return types.Sample{}, store.ErrConflict
		}
	}
	r.nextID++
	sample.ID = r.nextID
	sample.CreatedAt = time.Now()
	r.samples[sample.ID] = sample
	return sample, nil
}

func (r *fakeSampleRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.samples[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.samples, id)
	return nil
}

type fakeAnnotationRepo struct {
	nextID int
	annos  map[int]types.Annotation
}

func newFakeAnnotationRepo() *fakeAnnotationRepo {
	return &fakeAnnotationRepo{annos: make(map[int]types.Annotation)}
}

func (r *fakeAnnotationRepo) Get(ctx context.Context, id int) (types.Annotation, error) {
	anno, ok := r.annos[id]
	if !ok {
		return types.Annotation{}, store.ErrNotFound
	}
	return anno, nil
}

func (r *fakeAnnotationRepo) ListBySample(ctx context.Context, sampleID int) ([]types.Annotation, error) {
	out := make([]types.Annotation, 0)
	for _, anno := range r.annos {
		if anno.SampleID == sampleID {
			out = append(out, anno)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (r *fakeAnnotationRepo) Create(ctx context.Context, anno types.Annotation) (types.Annotation, error) {
	maxVersion := 0
	for _, existing := range r.annos {
		if existing.SampleID == anno.SampleID && existing.Version > maxVersion {
			maxVersion = existing.Version
		}
	}
	r.nextID++
	anno.ID = r.nextID
	anno.Version = maxVersion + 1
	anno.Status = types.AnnoSubmitted
	anno.CreatedAt = time.Now()
	r.annos[anno.ID] = anno
	return anno, nil
}

func (r *fakeAnnotationRepo) Review(ctx context.Context, id int, reviewerID int, status types.AnnoStatus) (types.Annotation, error) {
	anno, ok := r.annos[id]
	if !ok {
		return types.Annotation{}, store.ErrNotFound
	}
	if anno.Status != types.AnnoSubmitted {
		return types.Annotation{}, store.ErrInvalidState
	}
	now := time.Now()
	anno.Status = status
	anno.ReviewedBy = &reviewerID
	anno.ReviewedAt = &now
	r.annos[id] = anno
	return anno, nil
}

// fakeApprovalRepo mirrors the transactional Review contract: the decision
// update and its audit entry land together, and a non-pending record
// yields ErrInvalidState.
type fakeApprovalRepo struct {
	nextID    int
	approvals map[int]types.Approval
	sink      *memAudit
}

func newFakeApprovalRepo(sink *memAudit) *fakeApprovalRepo {
	return &fakeApprovalRepo{approvals: make(map[int]types.Approval), sink: sink}
}

func (r *fakeApprovalRepo) Get(ctx context.Context, id int) (types.Approval, error) {
	approval, ok := r.approvals[id]
	if !ok {
		return types.Approval{}, store.ErrNotFound
	}
	return approval, nil
}

func (r *fakeApprovalRepo) List(ctx context.Context) ([]types.Approval, error) {
	out := make([]types.Approval, 0, len(r.approvals))
	for _, approval := range r.approvals {
		out = append(out, approval)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeApprovalRepo) LatestFor(ctx context.Context, applicantID int, resourceType types.ResourceType, resourceID int) (types.Approval, error) {
	var (
		found  bool
		latest types.Approval
	)
	for _, approval := range r.approvals {
		if approval.ApplicantID != applicantID || approval.ResourceType != resourceType || approval.ResourceID != resourceID {
			continue
		}
		if !found || approval.ID > latest.ID {
			latest = approval
			found = true
		}
	}
	if !found {
		return types.Approval{}, store.ErrNotFound
	}
	return latest, nil
}

func (r *fakeApprovalRepo) Create(ctx context.Context, approval types.Approval) (types.Approval, error) {
	r.nextID++
	approval.ID = r.nextID
	approval.Decision = types.DecisionPending
	approval.CreatedAt = time.Now()
	r.approvals[approval.ID] = approval
	return approval, nil
}

func (r *fakeApprovalRepo) Review(ctx context.Context, id int, reviewerID int, decision types.Decision, expiresAt *time.Time, audit types.AuditEntry) (types.Approval, error) {
	approval, ok := r.approvals[id]
	if !ok {
		return types.Approval{}, store.ErrNotFound
	}
	if approval.Decision != types.DecisionPending {
		return types.Approval{}, store.ErrInvalidState
	}
	now := time.Now()
	approval.Decision = decision
	approval.ExpiresAt = expiresAt
	approval.ReviewedBy = &reviewerID
	approval.ReviewedAt = &now
	r.approvals[id] = approval
	_ = r.sink.Record(ctx, audit)
	return approval, nil
}

// fakeBlobStore keeps objects in a map and can simulate backend failures.
type fakeBlobStore struct {
	objects          map[string][]byte
	failDelete       bool
	failDeletePrefix bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobStore) Stat(ctx context.Context, key string) error {
	if _, ok := b.objects[key]; !ok {
		return storage.ErrObjectMissing
	}
	return nil
}

func (b *fakeBlobStore) Delete(ctx context.Context, key string) error {
	if b.failDelete {
		return errFSFault
	}
	delete(b.objects, key)
	return nil
}

func (b *fakeBlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	if b.failDeletePrefix {
		return errFSFault
	}
	for key := range b.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(b.objects, key)
		}
	}
	return nil
}
