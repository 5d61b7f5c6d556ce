package settings

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-solar/billdesk/internal/platform/cache"
	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/storage"
)

type memoryRepo struct {
	mu      sync.Mutex
	current *Settings
	inserts int
}

func (m *memoryRepo) Get(ctx context.Context) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNotFound
	}
	copied := *m.current
	return &copied, nil
}

func (m *memoryRepo) InsertIfAbsent(ctx context.Context, s Settings) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return false, nil
	}
	m.inserts++
	m.current = &s
	return true, nil
}

func (m *memoryRepo) Update(ctx context.Context, s *Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return ErrNotFound
	}
	copied := *s
	m.current = &copied
	return nil
}

func (m *memoryRepo) SetImage(ctx context.Context, kind ImageKind, fileName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return "", ErrNotFound
	}
	var previous string
	switch kind {
	case ImageLogo:
		previous, m.current.LogoFile = m.current.LogoFile, fileName
	case ImageStamp:
		previous, m.current.StampFile = m.current.StampFile, fileName
	}
	return previous, nil
}

type recordingRemover struct{ removed []string }

func (r *recordingRemover) Remove(ctx context.Context, fileName string) error {
	r.removed = append(r.removed, fileName)
	return nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func newTestService(t *testing.T) (*Service, *memoryRepo, *recordingRemover) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir(), "/files", 1<<16)
	require.NoError(t, err)
	repo := &memoryRepo{}
	remover := &recordingRemover{}
	return NewService(repo, store, remover, nil), repo, remover
}

func TestEnsureIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	s, err := svc.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, Defaults().CompanyName, s.CompanyName)

	req := UpdateRequest{
		CompanyName:    "Aspire Solar Systems",
		AddressLine1:   "14 Station Road",
		GSTNumber:      "27aaapz1234c1zv",
		ProprietorName: "R. Kulkarni",
		IFSCCode:       "sbin0001234",
	}
	updated, err := svc.Update(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "27AAAPZ1234C1ZV", updated.GSTNumber)
	assert.Equal(t, "SBIN0001234", updated.IFSCCode)

	again, err := svc.Ensure(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aspire Solar Systems", again.CompanyName)
	assert.Equal(t, 1, repo.inserts)
}

func TestUpdateRejectsInvalidFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Ensure(context.Background())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), UpdateRequest{Email: "nope", IFSCCode: "short"})
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"companyName", "addressLine1", "gstNumber", "proprietorName", "email", "ifscCode"} {
		assert.Contains(t, verr.Fields, field)
	}
}

func TestUploadImageReplacesPreviousFile(t *testing.T) {
	svc, _, remover := newTestService(t)
	ctx := context.Background()
	_, err := svc.Ensure(ctx)
	require.NoError(t, err)

	first, err := svc.UploadImage(ctx, ImageLogo, pngHeader)
	require.NoError(t, err)
	require.NotEmpty(t, first.LogoFile)

	data, err := svc.Image(ctx, first, ImageLogo)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	second, err := svc.UploadImage(ctx, ImageLogo, pngHeader)
	require.NoError(t, err)
	assert.NotEqual(t, first.LogoFile, second.LogoFile)
	assert.Equal(t, []string{first.LogoFile}, remover.removed)

	stamp, err := svc.Image(ctx, second, ImageStamp)
	require.NoError(t, err)
	assert.Nil(t, stamp)

	_, err = svc.UploadImage(ctx, ImageStamp, []byte("%PDF-1.4\n"))
	require.ErrorIs(t, err, storage.ErrMimeNotAllowed)
}

func TestCachedGetIsInvalidatedByWrites(t *testing.T) {
	svc, repo, _ := newTestService(t)
	mr := miniredis.RunT(t)
	svc.WithCache(cache.NewJSON(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "billdesk", time.Minute, nil))
	ctx := context.Background()
	_, err := svc.Ensure(ctx)
	require.NoError(t, err)

	s, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aspire Solar", s.CompanyName)
	require.True(t, mr.Exists("billdesk:settings"))

	repo.mu.Lock()
	repo.current.CompanyName = "changed behind the cache"
	repo.mu.Unlock()
	s, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aspire Solar", s.CompanyName)

	_, err = svc.Update(ctx, UpdateRequest{CompanyName: "Aspire Solar LLP", AddressLine1: "14 Station Road", GSTNumber: "27AAAPZ1234C1ZV", ProprietorName: "R. Kulkarni", IFSCCode: "SBIN0001234"})
	require.NoError(t, err)
	s, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aspire Solar LLP", s.CompanyName)
}
