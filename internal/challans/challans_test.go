package challans

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/storage"
)

type memoryRepo struct {
	mu       sync.Mutex
	challans map[string]*Challan
	fail     error
}

func key(c *Challan) string {
	return fmt.Sprintf("%s/%d/%d", c.Type, c.Year, c.Month)
}

func (m *memoryRepo) Upsert(ctx context.Context, c *Challan) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return "", m.fail
	}
	previous := ""
	if existing, ok := m.challans[key(c)]; ok {
		previous = existing.FileName
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = fmt.Sprintf("challan-%d", len(m.challans)+1)
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = time.Now()
	stored := *c
	m.challans[key(c)] = &stored
	return previous, nil
}

func (m *memoryRepo) List(ctx context.Context, filter Filter) ([]Challan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Challan
	for _, c := range m.challans {
		if (filter.Type == "" || c.Type == filter.Type) && (filter.Year == 0 || c.Year == filter.Year) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, c := range m.challans {
		if c.ID == id {
			delete(m.challans, k)
			return c.FileName, nil
		}
	}
	return "", ErrNotFound
}

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
}

func (r *recordingRemover) Remove(ctx context.Context, fileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, fileName)
	return nil
}

var pdfBytes = []byte("%PDF-1.4\n% challan\n%%EOF\n")

func newService(t *testing.T) (*Service, *memoryRepo, *recordingRemover) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir(), "/files", 1<<20)
	require.NoError(t, err)
	repo := &memoryRepo{challans: map[string]*Challan{}}
	remover := &recordingRemover{}
	return NewService(repo, store, remover, nil), repo, remover
}

func TestReuploadReplacesAndSchedulesOldFile(t *testing.T) {
	svc, repo, remover := newService(t)
	ctx := context.Background()

	first, err := svc.Upload(ctx, UploadRequest{Type: "pf", Month: 5, Year: 2024, Data: pdfBytes, UploadedBy: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, TypePF, first.Type)
	assert.Empty(t, remover.removed)

	second, err := svc.Upload(ctx, UploadRequest{Type: TypePF, Month: 5, Year: 2024, Data: pdfBytes})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.FileName, second.FileName)
	assert.Equal(t, []string{first.FileName}, remover.removed)
	assert.Len(t, repo.challans, 1)

	_, err = svc.Upload(ctx, UploadRequest{Type: TypeESI, Month: 5, Year: 2024, Data: pdfBytes})
	require.NoError(t, err)
	assert.Len(t, repo.challans, 2)

	require.NoError(t, svc.Delete(ctx, second.ID))
	assert.Equal(t, []string{first.FileName, second.FileName}, remover.removed)
	require.ErrorIs(t, svc.Delete(ctx, second.ID), ErrNotFound)
}

func TestConcurrentFirstUploadsRemoveEveryLoser(t *testing.T) {
	svc, repo, remover := newService(t)
	ctx := context.Background()

	const uploads = 8
	var wg sync.WaitGroup
	names := make([]string, uploads)
	for i := range uploads {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := svc.Upload(ctx, UploadRequest{Type: TypePF, Month: 7, Year: 2024, Data: pdfBytes})
			assert.NoError(t, err)
			if c != nil {
				names[i] = c.FileName
			}
		}()
	}
	wg.Wait()

	require.Len(t, repo.challans, 1)
	kept := repo.challans[key(&Challan{Type: TypePF, Month: 7, Year: 2024})].FileName
	assert.Len(t, remover.removed, uploads-1)
	assert.NotContains(t, remover.removed, kept)
	for _, name := range names {
		if name != kept {
			assert.Contains(t, remover.removed, name)
		}
	}
}

func TestUploadValidationAndRollback(t *testing.T) {
	svc, repo, remover := newService(t)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadRequest{Type: "TDS", Month: 0, Year: 2024, Data: pdfBytes})
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "month")

	_, err = svc.Upload(ctx, UploadRequest{Type: TypeESI, Month: 1, Year: 2024, Data: []byte("not a document")})
	require.ErrorIs(t, err, storage.ErrMimeNotAllowed)

	repo.fail = errors.New("db down")
	_, err = svc.Upload(ctx, UploadRequest{Type: TypeESI, Month: 1, Year: 2024, Data: pdfBytes})
	require.Error(t, err)
	require.Len(t, remover.removed, 1)
}

func TestHandlerUploadMultipart(t *testing.T) {
	svc, _, _ := newService(t)
	h := NewHandler(nil, svc, rbac.Middleware{}, 1<<20)

	newRequest := func() *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField("type", "ESI")
		_ = mw.WriteField("month", "7")
		_ = mw.WriteField("year", "2024")
		part, _ := mw.CreateFormFile(httpx.UploadField, "esi.pdf")
		_, _ = part.Write(pdfBytes)
		_ = mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/challans/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}
	serve := func(role shared.Role, req *http.Request) int {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(shared.ContextWithIdentity(req.Context(), "user-1", role)))
			})
		})
		r.Route("/challans", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, serve(shared.RoleEmployee, newRequest()))
	assert.Equal(t, http.StatusOK, serve(shared.RoleAccountant, newRequest()))
	assert.Equal(t, http.StatusOK, serve(shared.RoleEmployee, httptest.NewRequest(http.MethodGet, "/challans/?type=esi", nil)))
}
