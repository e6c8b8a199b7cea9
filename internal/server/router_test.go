package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restoran-api/internal/auth"
	"restoran-api/internal/config"
	"restoran-api/internal/database/dbtest"
	"restoran-api/internal/models"
	"restoran-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Token      string           `json:"token"`
	Count      int              `json:"count"`
	User       *models.User     `json:"user"`
	Data       json.RawMessage  `json:"data"`
	Pagination store.Pagination `json:"pagination"`
}

type testServer struct {
	t   *testing.T
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.Open(t)
	cfg := &config.Config{
		JWTSecret:   "0123456789abcdef0123456789abcdef",
		JWTTTL:      time.Hour,
		CORSOrigins: "http://localhost:3000",
	}
	return &testServer{t: t, app: New(cfg, db), db: db}
}

func (s *testServer) do(method, path, token string, payload any) (int, apiResponse) {
	s.t.Helper()
	var buf bytes.Buffer
	if payload != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out apiResponse
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// seed creates a user directly in the database and logs them in.
func (s *testServer) seed(email string, role models.UserRole) (*models.User, string) {
	s.t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(s.t, err)
	u := &models.User{FullName: "Seeded " + string(role), Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(s.t, store.NewUserStore(s.db).Create(context.Background(), u))

	status, out := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(s.t, http.StatusOK, status, out.Message)
	return u, out.Token
}

func (s *testServer) register(email string) (*models.User, string) {
	s.t.Helper()
	status, out := s.do(http.MethodPost, "/api/auth/register", "", map[string]any{
		"fullName": "Reg " + email,
		"email":    email,
		"password": "secret123",
		"phone":    map[string]string{"code": "+234", "number": "8012345678"},
		"address":  "12 Marina Rd",
	})
	require.Equal(s.t, http.StatusCreated, status, out.Message)
	return out.User, out.Token
}

func (s *testServer) createBranch(token, name string, lng, lat float64) models.Branch {
	s.t.Helper()
	status, out := s.do(http.MethodPost, "/api/branches", token, map[string]any{
		"name":        name,
		"email":       fmt.Sprintf("%s@example.com", name),
		"phone":       map[string]string{"code": "+234", "number": "8012345678"},
		"address":     "1 Main St",
		"state":       "Lagos",
		"coordinates": map[string]any{"type": "Point", "coordinates": []float64{lng, lat}},
	})
	require.Equal(s.t, http.StatusCreated, status, out.Message)
	var b models.Branch
	require.NoError(s.t, json.Unmarshal(out.Data, &b))
	return b
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	status, out := s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
}

func TestRegisterLoginAndRoleGate(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register("ada@example.com")

	status, out := s.do(http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, out.User)
	assert.Equal(t, models.RoleCustomer, out.User.Role)

	status, out = s.do(http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized, insufficient permissions", out.Message)

	status, _ = s.do(http.MethodGet, "/api/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSuspendedUserIsLockedOut(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	user, token := s.register("ada@example.com")

	status, out := s.do(http.MethodPatch, "/api/users/"+user.ID.String()+"/toggle-status", superToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User account has been suspended", out.Message)

	status, out = s.do(http.MethodGet, "/api/auth/profile", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, auth.SuspendedMessage, out.Message)

	status, _ = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAssignAndListStaff(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	branch := s.createBranch(superToken, "ikeja", 3.34, 6.60)

	ann, _ := s.register("ann@example.com")
	bob, _ := s.register("bob@example.com")
	for _, u := range []*models.User{ann, bob} {
		status, out := s.do(http.MethodPatch, "/api/users/"+u.ID.String()+"/assign-branch", superToken,
			map[string]string{"branchId": branch.ID.String(), "role": "staff"})
		require.Equal(t, http.StatusOK, status, out.Message)
		assert.Equal(t, "Assigned staff to branch", out.Message)
	}

	status, out := s.do(http.MethodGet, "/api/users?role=staff&search=ANN", superToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, out.Count)
	var users []models.User
	require.NoError(t, json.Unmarshal(out.Data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, ann.ID, users[0].ID)
	assert.Equal(t, int64(1), out.Pagination.Total)

	status, out = s.do(http.MethodGet, "/api/branches/"+branch.ID.String(), superToken, nil)
	require.Equal(t, http.StatusOK, status)
	var got models.Branch
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.ElementsMatch(t, []uuid.UUID{ann.ID, bob.ID}, got.Staff)

	status, out = s.do(http.MethodPatch, "/api/users/"+ann.ID.String()+"/remove-branch", superToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Branch unassigned from "+ann.FullName, out.Message)

	status, out = s.do(http.MethodPatch, "/api/users/"+ann.ID.String()+"/remove-branch", superToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "User is not assigned to any branch", out.Message)

	status, out = s.do(http.MethodGet, "/api/audit-logs?action=assign_branch", superToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), out.Pagination.Total)
}

func TestBranchAdminScope(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	own := s.createBranch(superToken, "ikeja", 3.34, 6.60)
	other := s.createBranch(superToken, "lekki", 3.47, 6.44)

	admin, _ := s.register("boss@example.com")
	status, out := s.do(http.MethodPatch, "/api/users/"+admin.ID.String()+"/assign-branch", superToken,
		map[string]string{"branchId": own.ID.String(), "role": "admin"})
	require.Equal(t, http.StatusOK, status, out.Message)
	_, login := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "boss@example.com", "password": "secret123"})
	adminToken := login.Token

	status, _ = s.do(http.MethodGet, "/api/branches/"+own.ID.String(), adminToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, out = s.do(http.MethodGet, "/api/branches/"+other.ID.String()+"/users", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admins can only access their own branch", out.Message)

	status, _ = s.do(http.MethodPost, "/api/branches", adminToken, map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)

	cook, _ := s.register("cook@example.com")
	status, out = s.do(http.MethodPatch, "/api/users/"+cook.ID.String()+"/assign-branch", adminToken,
		map[string]string{"branchId": other.ID.String(), "role": "staff"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admins can only assign staff to their own branch", out.Message)

	status, out = s.do(http.MethodPatch, "/api/users/"+cook.ID.String()+"/assign-branch", adminToken,
		map[string]string{"branchId": own.ID.String(), "role": "admin"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Only superadmin can assign admin role", out.Message)

	status, _ = s.do(http.MethodPatch, "/api/users/"+cook.ID.String()+"/assign-branch", adminToken,
		map[string]string{"branchId": own.ID.String(), "role": "staff"})
	assert.Equal(t, http.StatusOK, status)
}

func TestAdminCapacityOverHTTP(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	b := s.createBranch(superToken, "ikeja", 3.34, 6.60)

	assign := func(email string) (int, apiResponse) {
		u, _ := s.register(email)
		return s.do(http.MethodPatch, "/api/users/"+u.ID.String()+"/assign-branch", superToken,
			map[string]string{"branchId": b.ID.String(), "role": "admin"})
	}
	for i := 0; i < models.MaxBranchAdmins; i++ {
		status, out := assign(fmt.Sprintf("admin%d@example.com", i))
		require.Equal(t, http.StatusOK, status, out.Message)
	}

	status, out := assign("admin8@example.com")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Branch already has maximum number of admins (7)", out.Message)

	_, out = s.do(http.MethodGet, "/api/branches/"+b.ID.String(), superToken, nil)
	var got models.Branch
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.Len(t, got.Admins, models.MaxBranchAdmins)
}

func TestNearbyBranches(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	s.createBranch(superToken, "far", 3.5, 6.7)
	s.createBranch(superToken, "here", 3.3, 6.5)
	s.createBranch(superToken, "near", 3.31, 6.51)

	status, out := s.do(http.MethodGet, "/api/branches/nearby?lat=6.5&lng=3.3", "", nil)
	require.Equal(t, http.StatusOK, status, out.Message)
	assert.Equal(t, 2, out.Count)

	var got []store.NearbyBranch
	require.NoError(t, json.Unmarshal(out.Data, &got))
	require.Len(t, got, 2)
	assert.Equal(t, "here", got[0].Name)
	assert.Equal(t, "near", got[1].Name)
	assert.Less(t, got[0].Distance, got[1].Distance)

	status, out = s.do(http.MethodGet, "/api/branches/nearby?lat=6.5&lng=3.3&maxDistance=50000", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, out.Count)

	status, out = s.do(http.MethodGet, "/api/branches/nearby?lat=6.5", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Latitude and longitude are required", out.Message)

	status, out = s.do(http.MethodGet, "/api/branches/nearby?lat=abc&lng=3.3", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Latitude and longitude must be valid numbers", out.Message)
}

func TestDeleteBranchUnaffiliates(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	b := s.createBranch(superToken, "ikeja", 3.34, 6.60)
	u, _ := s.register("ann@example.com")
	status, _ := s.do(http.MethodPatch, "/api/users/"+u.ID.String()+"/assign-branch", superToken,
		map[string]string{"branchId": b.ID.String(), "role": "staff"})
	require.Equal(t, http.StatusOK, status)

	status, out := s.do(http.MethodDelete, "/api/branches/"+b.ID.String(), superToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Branch deleted successfully", out.Message)

	status, out = s.do(http.MethodGet, "/api/users/"+u.ID.String(), superToken, nil)
	require.Equal(t, http.StatusOK, status)
	var got models.User
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.Nil(t, got.BranchID)

	status, out = s.do(http.MethodGet, "/api/branches/"+b.ID.String(), superToken, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Branch not found", out.Message)
}

func TestBranchAdminCannotSuspendSuperadmin(t *testing.T) {
	s := newTestServer(t)
	root, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	b := s.createBranch(superToken, "ikeja", 3.34, 6.60)

	admin, _ := s.register("boss@example.com")
	status, _ := s.do(http.MethodPatch, "/api/users/"+admin.ID.String()+"/assign-branch", superToken,
		map[string]string{"branchId": b.ID.String(), "role": "admin"})
	require.Equal(t, http.StatusOK, status)
	_, login := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "boss@example.com", "password": "secret123"})

	status, out := s.do(http.MethodPatch, "/api/users/"+root.ID.String()+"/toggle-status", login.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Admins cannot manage other admins", out.Message)

	status, _ = s.do(http.MethodGet, "/api/auth/profile", superToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestBranchNameMustNotBeBlank(t *testing.T) {
	s := newTestServer(t)
	_, superToken := s.seed("root@example.com", models.RoleSuperAdmin)
	b := s.createBranch(superToken, "ikeja", 3.34, 6.60)

	status, out := s.do(http.MethodPut, "/api/branches/"+b.ID.String(), superToken, map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name is required", out.Message)

	status, out = s.do(http.MethodPost, "/api/branches", superToken, map[string]any{
		"name":        "   ",
		"email":       "blank@example.com",
		"phone":       map[string]string{"code": "+234", "number": "8012345678"},
		"address":     "1 Main St",
		"state":       "Lagos",
		"coordinates": map[string]any{"type": "Point", "coordinates": []float64{3.3, 6.5}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "name is required", out.Message)

	_, out = s.do(http.MethodGet, "/api/branches/"+b.ID.String(), superToken, nil)
	var got models.Branch
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.Equal(t, "ikeja", got.Name)
}
