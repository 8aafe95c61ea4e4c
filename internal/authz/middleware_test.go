package authz

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domus-admin/domus-admin/internal/db/models"
	"github.com/domus-admin/domus-admin/internal/web/session"
)

// testStorage is a minimal in-memory fiber.Storage implementation for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ fiber.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

// startSession writes a session for the given user and returns the cookie value.
func startSession(t *testing.T, user models.User) string {
	t.Helper()

	sessionID, err := session.GenerateSessionID()
	require.NoError(t, err)

	data := &session.Data{User: user}
	require.NoError(t, data.Write(sessionID, time.Minute))

	return sessionID
}

func newMiddlewareApp(svc *Service) *fiber.App {
	app := fiber.New()

	app.Get("/building/:buildingID/documents",
		RequirePermission(svc, PermViewDocuments),
		func(c *fiber.Ctx) error { return c.SendString("documents") },
	)
	app.Get("/building/:buildingID/staff",
		RequireAnyPermission(svc, PermManageIssues, PermViewAllIssues),
		func(c *fiber.Ctx) error { return c.SendString("staff") },
	)
	app.Get("/admin",
		RequireSuperUser(svc),
		func(c *fiber.Ctx) error { return c.SendString("admin") },
	)

	return app
}

func doRequest(t *testing.T, app *fiber.App, path, sessionID string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: sessionID})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	return resp
}

func TestRequirePermission(t *testing.T) {
	svc, db := newTestService(t)
	session.Init(&testStorage{})

	actor := createUser(t, db, "actor", true)
	holder := createUser(t, db, "holder", false)
	outsider := createUser(t, db, "outsider", false)
	building := createBuilding(t, db, "Main St 1")

	require.NoError(t, svc.Grant(
		actor.ID, holder.ID, building.ID, []Permission{PermViewDocuments}, nil, ""))

	app := newMiddlewareApp(svc)

	tests := []struct {
		name       string
		path       string
		sessionID  string
		wantStatus int
	}{
		{
			name:       "no session",
			path:       "/building/1/documents",
			wantStatus: fiber.StatusUnauthorized,
		},
		{
			name:       "holder allowed",
			path:       "/building/1/documents",
			sessionID:  startSession(t, holder),
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "outsider denied",
			path:       "/building/1/documents",
			sessionID:  startSession(t, outsider),
			wantStatus: fiber.StatusForbidden,
		},
		{
			name:       "super-user allowed",
			path:       "/building/1/documents",
			sessionID:  startSession(t, actor),
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "bad building id",
			path:       "/building/abc/documents",
			sessionID:  startSession(t, holder),
			wantStatus: fiber.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, app, tt.path, tt.sessionID)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireAnyPermission(t *testing.T) {
	svc, db := newTestService(t)
	session.Init(&testStorage{})

	actor := createUser(t, db, "actor", true)
	staff := createUser(t, db, "staff", false)
	tenant := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	// staff holds only one of the two accepted permissions
	require.NoError(t, svc.Grant(
		actor.ID, staff.ID, building.ID, []Permission{PermViewAllIssues}, nil, ""))

	app := newMiddlewareApp(svc)

	resp := doRequest(t, app, "/building/1/staff", startSession(t, staff))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "/building/1/staff", startSession(t, tenant))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireSuperUser(t *testing.T) {
	svc, db := newTestService(t)
	session.Init(&testStorage{})

	admin := createUser(t, db, "root", true)
	user := createUser(t, db, "tenant", false)
	building := createBuilding(t, db, "Main St 1")

	// even a building admin is not a platform admin
	require.NoError(t, svc.GrantRole(admin.ID, user.ID, building.ID, models.RoleBuildingAdmin))

	app := newMiddlewareApp(svc)

	resp := doRequest(t, app, "/admin", startSession(t, admin))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "/admin", startSession(t, user))
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, "/admin", "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestBuildingIDFromRequestQueryFallback(t *testing.T) {
	app := fiber.New()

	app.Get("/probe", func(c *fiber.Ctx) error {
		id, err := BuildingIDFromRequest(c)
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}

		return c.JSON(fiber.Map{"id": id})
	})

	req := httptest.NewRequest(http.MethodGet, "/probe?buildingId=42", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/probe", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
