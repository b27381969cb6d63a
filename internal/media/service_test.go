package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmuebles/service/internal/storage"
)

// fakeStore is an in-memory ObjectStore. PresignGet embeds the expiry as a
// query parameter so tests can verify signature windows.
type fakeStore struct {
	objects map[string][]byte

	uploadErr      error
	deleteFailures int // fail this many Delete calls before succeeding
	signErr        error

	uploadCalls int
	deleteCalls int

	now func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, now: time.Now}
}

func (f *fakeStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	f.uploadCalls++
	if f.uploadErr != nil {
		return f.uploadErr
	}
	b, _ := io.ReadAll(r)
	f.objects[key] = b
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.deleteCalls++
	if f.deleteFailures > 0 {
		f.deleteFailures--
		return &storage.StoreError{Kind: storage.KindTransient, Key: key, Err: errors.New("timeout")}
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return fmt.Sprintf("https://store.test/%s?expires=%d", key, f.now().Add(expiry).Unix()), nil
}

// signedURLValidAt mimics the backing store's signature check: the URL is
// valid strictly before its embedded expiry.
func signedURLValidAt(t *testing.T, signed string, at time.Time) bool {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	exp, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
	require.NoError(t, err)
	return at.Unix() < exp
}

// memRepo is an in-memory Repository preserving the real one's semantics:
// primary demotion inside Insert, ownership check before Promote, ordering
// on list.
type memRepo struct {
	assets    map[int64]*Asset
	orphans   map[string]bool
	nextID    int64
	insertErr error
	clock     time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{
		assets:  map[int64]*Asset{},
		orphans: map[string]bool{},
		nextID:  1,
		clock:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memRepo) Insert(_ context.Context, a *Asset, markPrimary bool) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if markPrimary {
		for _, other := range m.assets {
			if other.OwnerKind == a.OwnerKind && other.OwnerID == a.OwnerID {
				other.IsPrimary = false
			}
		}
	}
	a.ID = m.nextID
	m.nextID++
	a.IsPrimary = markPrimary
	a.CreatedAt = m.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.assets[a.ID] = &cp
	return nil
}

func (m *memRepo) ListByOwner(_ context.Context, ref OwnerRef) ([]Asset, error) {
	var out []Asset
	for _, a := range m.assets {
		if a.OwnerKind == ref.Kind && a.OwnerID == ref.ID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memRepo) GetByOwner(_ context.Context, ref OwnerRef, assetID int64) (*Asset, error) {
	a, ok := m.assets[assetID]
	if !ok || a.OwnerKind != ref.Kind || a.OwnerID != ref.ID {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) Promote(ctx context.Context, ref OwnerRef, assetID int64) error {
	if _, err := m.GetByOwner(ctx, ref, assetID); err != nil {
		return err
	}
	for _, a := range m.assets {
		if a.OwnerKind == ref.Kind && a.OwnerID == ref.ID {
			a.IsPrimary = a.ID == assetID
		}
	}
	return nil
}

func (m *memRepo) Delete(ctx context.Context, ref OwnerRef, assetID int64) error {
	if _, err := m.GetByOwner(ctx, ref, assetID); err != nil {
		return err
	}
	delete(m.assets, assetID)
	return nil
}

func (m *memRepo) DeleteRecordingOrphan(ctx context.Context, ref OwnerRef, assetID int64, storageKey string) error {
	if err := m.Delete(ctx, ref, assetID); err != nil {
		return err
	}
	m.orphans[storageKey] = true
	return nil
}

func (m *memRepo) RecordOrphan(_ context.Context, storageKey string) error {
	m.orphans[storageKey] = true
	return nil
}

func (m *memRepo) ListOrphans(_ context.Context, limit int) ([]string, error) {
	var keys []string
	for k := range m.orphans {
		if len(keys) == limit {
			break
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *memRepo) RemoveOrphan(_ context.Context, storageKey string) error {
	delete(m.orphans, storageKey)
	return nil
}

// seqReader is a deterministic random source that never repeats an 8-byte
// window, so derived keys stay distinct within a test.
type seqReader struct{ n byte }

func (r *seqReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.n
		r.n++
	}
	return len(p), nil
}

func newTestService(repo Repository, store storage.ObjectStore) *Service {
	keys := NewKeyDeriverWith(time.Now, &seqReader{})
	return NewService(repo, store, keys, time.Hour, 24*time.Hour)
}

func jpegUpload(markPrimary bool, order int) Upload {
	return Upload{
		Filename:    "kitchen.jpg",
		ContentType: "image/jpeg",
		Size:        4,
		Order:       order,
		MarkPrimary: markPrimary,
	}
}

var saleOwner = OwnerRef{Kind: "house_for_sale", ID: 42}

func countPrimaries(t *testing.T, repo *memRepo, ref OwnerRef) int {
	t.Helper()
	assets, err := repo.ListByOwner(context.Background(), ref)
	require.NoError(t, err)
	n := 0
	for _, a := range assets {
		if a.IsPrimary {
			n++
		}
	}
	return n
}

func TestAttachKeepsExactlyOnePrimary(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, newFakeStore())

	for i := 0; i < 5; i++ {
		_, err := svc.Attach(context.Background(), saleOwner, bytes.NewReader([]byte("data")), jpegUpload(true, i))
		require.NoError(t, err)
		assert.Equal(t, 1, countPrimaries(t, repo, saleOwner), "after attach %d", i)
	}
}

func TestAttachInvalidFilenameSkipsStore(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(newMemRepo(), store)

	up := jpegUpload(false, 0)
	up.Filename = "no-extension"
	_, err := svc.Attach(context.Background(), saleOwner, bytes.NewReader(nil), up)

	assert.ErrorIs(t, err, ErrInvalidFilename)
	assert.Zero(t, store.uploadCalls)
}

func TestAttachUploadFailureWritesNoRecord(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	store.uploadErr = &storage.StoreError{Kind: storage.KindTransient, Err: errors.New("connection reset")}
	svc := newTestService(repo, store)

	_, err := svc.Attach(context.Background(), saleOwner, bytes.NewReader([]byte("data")), jpegUpload(false, 0))

	assert.Error(t, err)
	assets, _ := repo.ListByOwner(context.Background(), saleOwner)
	assert.Empty(t, assets)
}

func TestAttachInsertFailureRollsBackUpload(t *testing.T) {
	repo := newMemRepo()
	repo.insertErr = errors.New("constraint violation")
	store := newFakeStore()
	svc := newTestService(repo, store)

	_, err := svc.Attach(context.Background(), saleOwner, bytes.NewReader([]byte("data")), jpegUpload(false, 0))

	assert.Error(t, err)
	assert.Empty(t, store.objects, "uploaded object must be rolled back")
	assert.Empty(t, repo.orphans)
}

func TestAttachInsertFailureRollbackFailureRecordsOrphan(t *testing.T) {
	repo := newMemRepo()
	repo.insertErr = errors.New("constraint violation")
	store := newFakeStore()
	store.deleteFailures = 1
	svc := newTestService(repo, store)

	_, err := svc.Attach(context.Background(), saleOwner, bytes.NewReader([]byte("data")), jpegUpload(false, 0))

	assert.Error(t, err)
	assert.Len(t, store.objects, 1, "object left behind")
	assert.Len(t, repo.orphans, 1, "orphan recorded for reconciliation")
}

func TestAttachValidation(t *testing.T) {
	svc := newTestService(newMemRepo(), newFakeStore())

	var verr *ValidationError

	_, err := svc.Attach(context.Background(), OwnerRef{}, bytes.NewReader(nil), jpegUpload(false, 0))
	assert.ErrorAs(t, err, &verr)

	up := jpegUpload(false, 0)
	up.Order = -1
	_, err = svc.Attach(context.Background(), saleOwner, bytes.NewReader(nil), up)
	assert.ErrorAs(t, err, &verr)
}

func TestListOrderAndCreatedAtTieBreak(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, newFakeStore())
	ctx := context.Background()

	a, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("a")), jpegUpload(false, 0))
	require.NoError(t, err)
	b, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("b")), jpegUpload(true, 0))
	require.NoError(t, err)

	got, err := svc.List(ctx, saleOwner)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// same order value: creation time breaks the tie
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
	assert.False(t, got[0].IsPrimary)
	assert.True(t, got[1].IsPrimary)
}

func TestSetPrimaryForeignAssetFailsWithoutMutation(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, newFakeStore())
	ctx := context.Background()

	mine, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("a")), jpegUpload(true, 0))
	require.NoError(t, err)

	otherOwner := OwnerRef{Kind: "house_for_rent", ID: 7}
	foreign, err := svc.Attach(ctx, otherOwner, bytes.NewReader([]byte("b")), jpegUpload(false, 0))
	require.NoError(t, err)

	err = svc.SetPrimary(ctx, saleOwner, foreign.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// the original primary is untouched
	current, err := repo.GetByOwner(ctx, saleOwner, mine.ID)
	require.NoError(t, err)
	assert.True(t, current.IsPrimary)
	assert.Equal(t, 1, countPrimaries(t, repo, saleOwner))
}

func TestDetachRemovesObjectAndRecord(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	svc := newTestService(repo, store)
	ctx := context.Background()

	a, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("a")), jpegUpload(false, 0))
	require.NoError(t, err)
	require.Len(t, store.objects, 1)

	require.NoError(t, svc.Detach(ctx, saleOwner, a.ID))

	assert.Empty(t, store.objects)
	_, err = repo.GetByOwner(ctx, saleOwner, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDetachUnknownAssetLeavesStateUnchanged(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	svc := newTestService(repo, store)
	ctx := context.Background()

	a, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("a")), jpegUpload(false, 0))
	require.NoError(t, err)

	err = svc.Detach(ctx, saleOwner, a.ID+999)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Len(t, store.objects, 1)
	_, err = repo.GetByOwner(ctx, saleOwner, a.ID)
	assert.NoError(t, err)
}

func TestDetachRetriesObjectDeleteOnce(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	svc := newTestService(repo, store)
	ctx := context.Background()

	a, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("a")), jpegUpload(false, 0))
	require.NoError(t, err)

	store.deleteFailures = 1
	store.deleteCalls = 0
	require.NoError(t, svc.Detach(ctx, saleOwner, a.ID))

	assert.Equal(t, 2, store.deleteCalls)
	assert.Empty(t, store.objects)
	assert.Empty(t, repo.orphans)
}

func TestDetachObjectDeleteFailingTwiceRecordsOrphan(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	svc := newTestService(repo, store)
	ctx := context.Background()

	a, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("a")), jpegUpload(false, 0))
	require.NoError(t, err)

	store.deleteFailures = 2
	require.NoError(t, svc.Detach(ctx, saleOwner, a.ID))

	// record is gone but the unreachable bytes are tracked
	_, err = repo.GetByOwner(ctx, saleOwner, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, repo.orphans[a.StorageKey])

	// later sweep reclaims the object and clears the entry
	cleared, err := svc.SweepOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)
	assert.Empty(t, store.objects)
	assert.Empty(t, repo.orphans)
}

func TestDetachAllCascades(t *testing.T) {
	repo := newMemRepo()
	store := newFakeStore()
	svc := newTestService(repo, store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Attach(ctx, saleOwner, bytes.NewReader([]byte("x")), jpegUpload(false, i))
		require.NoError(t, err)
	}
	keep, err := svc.Attach(ctx, OwnerRef{Kind: "house_for_rent", ID: 9}, bytes.NewReader([]byte("y")), jpegUpload(false, 0))
	require.NoError(t, err)

	require.NoError(t, svc.DetachAll(ctx, saleOwner))

	assets, err := svc.List(ctx, saleOwner)
	require.NoError(t, err)
	assert.Empty(t, assets)

	// the other owner's asset survives
	_, err = repo.GetByOwner(ctx, keep.Owner(), keep.ID)
	assert.NoError(t, err)
}

func TestSecureURLWindows(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.now = func() time.Time { return base }
	svc := newTestService(newMemRepo(), store)

	a := &Asset{StorageKey: "house_for_sale/42/20260501_120000_abcd1234.jpg"}

	short, err := svc.SecureURL(context.Background(), a, 60*time.Second)
	require.NoError(t, err)
	long, err := svc.SecureURL(context.Background(), a, 600*time.Second)
	require.NoError(t, err)

	// both valid inside their windows
	assert.True(t, signedURLValidAt(t, short, base.Add(30*time.Second)))
	assert.True(t, signedURLValidAt(t, long, base.Add(30*time.Second)))

	// the short URL dies first, the long one survives
	assert.False(t, signedURLValidAt(t, short, base.Add(120*time.Second)))
	assert.True(t, signedURLValidAt(t, long, base.Add(120*time.Second)))
	assert.False(t, signedURLValidAt(t, long, base.Add(601*time.Second)))
}

func TestSecureURLDefaultAndClamp(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.now = func() time.Time { return base }
	svc := newTestService(newMemRepo(), store)

	a := &Asset{StorageKey: "house_for_sale/42/20260501_120000_abcd1234.jpg"}

	// zero ttl falls back to the configured default (1h)
	def, err := svc.SecureURL(context.Background(), a, 0)
	require.NoError(t, err)
	assert.True(t, signedURLValidAt(t, def, base.Add(59*time.Minute)))
	assert.False(t, signedURLValidAt(t, def, base.Add(61*time.Minute)))

	// oversized ttl is clamped to the configured maximum (24h)
	huge, err := svc.SecureURL(context.Background(), a, 1000*time.Hour)
	require.NoError(t, err)
	assert.False(t, signedURLValidAt(t, huge, base.Add(25*time.Hour)))
}

func TestSecureURLNoKeyIsAbsentNotError(t *testing.T) {
	svc := newTestService(newMemRepo(), newFakeStore())

	u, err := svc.SecureURL(context.Background(), &Asset{}, time.Minute)
	assert.NoError(t, err)
	assert.Empty(t, u)
}

func TestSecureURLSignFailurePropagates(t *testing.T) {
	store := newFakeStore()
	store.signErr = &storage.StoreError{Kind: storage.KindAccessDenied, Err: errors.New("expired credentials")}
	svc := newTestService(newMemRepo(), store)

	_, err := svc.SecureURL(context.Background(), &Asset{StorageKey: "k.jpg"}, time.Minute)
	assert.Error(t, err)
}
