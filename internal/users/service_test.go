package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/rbac"
	"github.com/aspire-solar/billdesk/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	users []User
}

func (m *memoryRepo) Create(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrEmailTaken
		}
	}
	u.ID = fmt.Sprintf("user-%d", len(m.users)+1)
	m.users = append(m.users, *u)
	return nil
}

func (m *memoryRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copied := u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) Get(ctx context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			copied := u
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]User(nil), m.users...), nil
}

func (m *memoryRepo) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == id {
			m.users[i].IsActive = active
			return nil
		}
	}
	return ErrNotFound
}

func newTestService() (*Service, *memoryRepo) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func TestCreateHashesPasswordAndNormalizes(t *testing.T) {
	svc, repo := newTestService()
	u, err := svc.Create(context.Background(), CreateRequest{Email: "  Owner@AspireSolar.in ", Password: "long-enough", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "owner@aspiresolar.in", u.Email)
	assert.Equal(t, shared.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[0].PasswordHash), []byte("long-enough")))

	found, err := svc.FindByEmail(context.Background(), "OWNER@aspiresolar.in")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestCreateRejectsDuplicatesAndBadInput(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Create(ctx, CreateRequest{Email: "a@b.in", Password: "password1", Role: shared.RoleEmployee})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateRequest{Email: "A@B.in", Password: "password2", Role: shared.RoleEmployee})
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	_, err = svc.Create(ctx, CreateRequest{Email: "nope", Password: "short", Role: "OWNER"})
	var verr *httpx.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "role")
}

func newRouter(svc *Service, userID string, role shared.Role) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				req = req.WithContext(shared.ContextWithIdentity(req.Context(), userID, role))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/users", NewHandler(nil, svc, rbac.Middleware{}).MountRoutes)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerIsAdminOnly(t *testing.T) {
	svc, _ := newTestService()
	accountant := newRouter(svc, "user-9", shared.RoleAccountant)
	assert.Equal(t, http.StatusForbidden, serve(accountant, http.MethodGet, "/users/", "").Code)

	admin := newRouter(svc, "user-9", shared.RoleAdmin)
	rec := serve(admin, http.MethodPost, "/users/", `{"email":"staff@aspiresolar.in","password":"password1","role":"EMPLOYEE"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = serve(admin, http.MethodGet, "/users/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "staff@aspiresolar.in")
}

func TestHandlerSetActive(t *testing.T) {
	svc, repo := newTestService()
	u, err := svc.Create(context.Background(), CreateRequest{Email: "staff@aspiresolar.in", Password: "password1", Role: shared.RoleEmployee})
	require.NoError(t, err)

	admin := newRouter(svc, "user-admin", shared.RoleAdmin)
	rec := serve(admin, http.MethodPut, "/users/"+u.ID+"/active", `{"active":false}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, repo.users[0].IsActive)

	self := newRouter(svc, u.ID, shared.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, serve(self, http.MethodPut, "/users/"+u.ID+"/active", `{"active":false}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(admin, http.MethodPut, "/users/ghost/active", `{"active":true}`).Code)
}
