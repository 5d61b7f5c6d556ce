package employees

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
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
	mu        sync.Mutex
	employees map[string]*Employee
	documents []Document
	nextID    int
	// slugCollisions makes the next n creates fail with ErrSlugTaken.
	slugCollisions int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{employees: map[string]*Employee{}}
}

func (m *memoryRepo) Create(ctx context.Context, e *Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugCollisions > 0 {
		m.slugCollisions--
		return ErrSlugTaken
	}
	m.nextID++
	e.ID = fmt.Sprintf("emp-%d", m.nextID)
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	stored := *e
	m.employees[e.ID] = &stored
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (*Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (m *memoryRepo) GetBySlug(ctx context.Context, slug string) (*Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if e.UniqueSlug == slug {
			copied := *e
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context, limit, offset int) ([]Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (m *memoryRepo) Update(ctx context.Context, e *Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *e
	m.employees[e.ID] = &stored
	return nil
}

func (m *memoryRepo) DeleteMany(ctx context.Context, ids []string) (int, []string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := 0
	var files []string
	for _, id := range ids {
		if _, ok := m.employees[id]; !ok {
			continue
		}
		delete(m.employees, id)
		deleted++
		kept := m.documents[:0]
		for _, d := range m.documents {
			if d.EmployeeID == id {
				files = append(files, d.FileName)
				continue
			}
			kept = append(kept, d)
		}
		m.documents = kept
	}
	return deleted, files, nil
}

func (m *memoryRepo) InsertDocument(ctx context.Context, d *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = fmt.Sprintf("doc-%d", m.nextID)
	d.CreatedAt = time.Now()
	m.documents = append(m.documents, *d)
	return nil
}

func (m *memoryRepo) ListDocuments(ctx context.Context, employeeID string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Document
	for _, d := range m.documents {
		if d.EmployeeID == employeeID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryRepo) DeleteDocument(ctx context.Context, employeeID, documentID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.documents {
		if d.ID == documentID && d.EmployeeID == employeeID {
			m.documents = append(m.documents[:i], m.documents[i+1:]...)
			return d.FileName, nil
		}
	}
	return "", ErrDocumentNotFound
}

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
	fail    map[string]bool
}

func (r *recordingRemover) Remove(ctx context.Context, fileName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail[fileName] {
		return errors.New("queue unavailable")
	}
	r.removed = append(r.removed, fileName)
	return nil
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

type fixture struct {
	repo    *memoryRepo
	store   *storage.Local
	remover *recordingRemover
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir(), "/files", 1<<20)
	require.NoError(t, err)
	f := &fixture{repo: newMemoryRepo(), store: store, remover: &recordingRemover{}}
	f.service = NewService(f.repo, store, f.remover, nil)
	return f
}

func TestNewSlug(t *testing.T) {
	pattern := regexp.MustCompile(`^ravi-k-patil-[0-9a-f]{8}$`)
	assert.Regexp(t, pattern, NewSlug("  Ravi K. Patil "))
	assert.NotEqual(t, NewSlug("Ravi"), NewSlug("Ravi"))
	assert.Regexp(t, `^[0-9a-f]{8}$`, NewSlug("ज्ञान"))
	assert.LessOrEqual(t, len(NewSlug(strings.Repeat("a", 100))), 57)
}

func TestCreateRetriesSlugCollisions(t *testing.T) {
	f := newFixture(t)
	f.repo.slugCollisions = 2

	e, err := f.service.Create(context.Background(), Request{Name: "Meena Joshi", JoinDate: "2023-04-01"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(e.UniqueSlug, "meena-joshi-"))
	require.NotNil(t, e.JoinDate)
	assert.Equal(t, "2023-04-01", e.JoinDate.Format(DateLayout))

	f.repo.slugCollisions = 3
	_, err = f.service.Create(context.Background(), Request{Name: "Meena Joshi"})
	require.ErrorIs(t, err, ErrSlugTaken)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Create(context.Background(), Request{Email: "bad", JoinDate: "01/04/2023"})
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "joinDate")
}

func TestProfileBySlug(t *testing.T) {
	f := newFixture(t)
	e, err := f.service.Create(context.Background(), Request{Name: "Ravi Patil", Designation: "Site Engineer", Phone: "9800000000"})
	require.NoError(t, err)

	p, err := f.service.Profile(context.Background(), strings.ToUpper(e.UniqueSlug))
	require.NoError(t, err)
	assert.Equal(t, "Ravi Patil", p.Name)
	assert.Equal(t, "Site Engineer", p.Designation)

	_, err = f.service.Profile(context.Background(), "nobody-00000000")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentsUploadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e, err := f.service.Create(ctx, Request{Name: "Ravi Patil"})
	require.NoError(t, err)

	doc, err := f.service.UploadDocument(ctx, e.ID, "Aadhaar", pdfBytes)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.True(t, strings.HasPrefix(doc.FileName, "employees/"+e.ID+"/"))

	_, err = f.service.UploadDocument(ctx, e.ID, "Notes", []byte("just some plain text"))
	require.ErrorIs(t, err, storage.ErrMimeNotAllowed)

	_, err = f.service.UploadDocument(ctx, e.ID, " ", pdfBytes)
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.service.UploadDocument(ctx, "missing", "Aadhaar", pdfBytes)
	require.ErrorIs(t, err, ErrNotFound)

	details, err := f.service.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, details.Documents, 1)

	require.NoError(t, f.service.DeleteDocument(ctx, e.ID, doc.ID))
	assert.Equal(t, []string{doc.FileName}, f.remover.removed)
	require.ErrorIs(t, f.service.DeleteDocument(ctx, e.ID, doc.ID), ErrDocumentNotFound)
}

func TestBulkDeleteRemovesFilesAndCountsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	var files []string
	for i := 0; i < 3; i++ {
		e, err := f.service.Create(ctx, Request{Name: fmt.Sprintf("Employee %d", i)})
		require.NoError(t, err)
		ids = append(ids, e.ID)
		for j := 0; j < 3; j++ {
			doc, err := f.service.UploadDocument(ctx, e.ID, fmt.Sprintf("doc %d", j), pdfBytes)
			require.NoError(t, err)
			files = append(files, doc.FileName)
		}
	}
	f.remover.fail = map[string]bool{files[4]: true}

	result, err := f.service.BulkDelete(ctx, BulkDeleteRequest{IDs: append(ids, ids[0], "missing")})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Deleted)
	assert.Equal(t, 9, result.Files)
	assert.Equal(t, 1, result.FileErrors)
	assert.ElementsMatch(t, append(append([]string{}, files[:4]...), files[5:]...), f.remover.removed)

	_, err = f.service.BulkDelete(ctx, BulkDeleteRequest{})
	require.ErrorIs(t, err, httpx.ErrValidation)
	require.ErrorIs(t, f.service.Delete(ctx, ids[0]), ErrNotFound)
}

func newEmployeeRouter(f *fixture, role shared.Role) http.Handler {
	h := NewHandler(nil, f.service, rbac.Middleware{}, 1<<20)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				req = req.WithContext(shared.ContextWithIdentity(req.Context(), "user-1", role))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/employees", h.MountRoutes)
	r.Route("/profiles", h.MountPublicRoutes)
	return r
}

func TestHandlerDocumentUploadAndPublicProfile(t *testing.T) {
	f := newFixture(t)
	e, err := f.service.Create(context.Background(), Request{Name: "Ravi Patil", Designation: "Technician", Email: "ravi@example.com"})
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("title", "PAN card"))
	part, err := mw.CreateFormFile(httpx.UploadField, "pan.pdf")
	require.NoError(t, err)
	_, _ = part.Write(pdfBytes)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/employees/"+e.ID+"/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newEmployeeRouter(f, shared.RoleAccountant).ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var doc Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "PAN card", doc.Title)

	rec = httptest.NewRecorder()
	newEmployeeRouter(f, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profiles/"+e.UniqueSlug, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Technician")
	assert.NotContains(t, rec.Body.String(), "ravi@example.com")

	rec = httptest.NewRecorder()
	newEmployeeRouter(f, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees/"+e.ID, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	newEmployeeRouter(f, shared.RoleAccountant).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/employees/bulk-delete", strings.NewReader(`{"ids":["`+e.ID+`"]}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newEmployeeRouter(f, shared.RoleAdmin).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/employees/bulk-delete", strings.NewReader(`{"ids":["`+e.ID+`"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deleted":1,"files":1,"fileErrors":0}`, rec.Body.String())
}
