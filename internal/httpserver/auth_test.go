package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pchauvet/authgate/internal/middleware"
	"github.com/pchauvet/authgate/internal/models"
	"github.com/pchauvet/authgate/internal/repo"
	"github.com/pchauvet/authgate/internal/service"
	"github.com/pchauvet/authgate/internal/tokens"
)

type testEnv struct {
	e   *echo.Echo
	db  *gorm.DB
	svc *service.AuthService
}

func newTestEnv(t *testing.T, production bool) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Every pooled connection to :memory: is a distinct database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Conversation{},
		&models.Message{},
		&models.UsageRecord{},
	))

	issuer, err := tokens.NewIssuer([]byte("test-secret"), "HS256", 8*24*time.Hour)
	require.NoError(t, err)

	userRepo := &repo.UserRepo{DB: db}
	svc := &service.AuthService{Repo: userRepo, Tokens: issuer}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		TestHandler: &TestHTTP{Svc: svc, Production: production},
		Auth:        middleware.NewBearerAuth(issuer, userRepo),
	})

	return &testEnv{e: e, db: db, svc: svc}
}

func (env *testEnv) doJSON(method, path, token string, payload any) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) doLogin(username, password string) *httptest.ResponseRecorder {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// bootstrapAdmin creates the first admin through the test endpoint and
// returns its access token.
func (env *testEnv) bootstrapAdmin(t *testing.T) string {
	t.Helper()

	rec := env.doJSON(http.MethodPost, "/test/create-first-user", "", map[string]any{
		"username": "admin",
		"email":    "admin@example.com",
		"password": "AdminSecret",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	loginRec := env.doLogin("admin", "AdminSecret")
	require.Equal(t, http.StatusOK, loginRec.Code, loginRec.Body.String())

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, false)
	env.bootstrapAdmin(t)

	rec := env.doLogin("admin", "AdminSecret")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, "admin", resp.User.Username)
	assert.NotNil(t, resp.User.LastLogin)

	// The password hash never appears in a response.
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, false)
	env.bootstrapAdmin(t)

	rec := env.doLogin("admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.doLogin("nobody", "AdminSecret")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv(t, false)
	env.bootstrapAdmin(t)
	require.NoError(t, env.db.Model(&models.User{}).Where("username = ?", "admin").Update("is_active", false).Error)

	rec := env.doLogin("admin", "AdminSecret")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.bootstrapAdmin(t)

	rec := env.doJSON(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view UserView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "admin", view.Username)
	assert.True(t, view.IsAdmin)

	rec = env.doJSON(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_NoServerSideEffect(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.bootstrapAdmin(t)

	rec := env.doJSON(http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Logout is client-side only: the token keeps working.
	rec = env.doJSON(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false)
	adminToken := env.bootstrapAdmin(t)
	username := "u_" + uuid.NewString()

	rec := env.doJSON(http.MethodPost, "/auth/register", adminToken, map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view UserView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, username, view.Username)
	assert.True(t, view.IsActive)
	assert.False(t, view.IsAdmin)
}

func TestRegister_InactiveFlagFromInput(t *testing.T) {
	env := newTestEnv(t, false)
	adminToken := env.bootstrapAdmin(t)
	username := "u_" + uuid.NewString()

	rec := env.doJSON(http.MethodPost, "/auth/register", adminToken, map[string]any{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "Secret123",
		"is_active": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var view UserView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.False(t, view.IsActive)

	var stored models.User
	require.NoError(t, env.db.Where("username = ?", username).First(&stored).Error)
	assert.False(t, stored.IsActive)

	assert.Equal(t, http.StatusBadRequest, env.doLogin(username, "Secret123").Code)
}

func TestRegister_RequiresAdmin(t *testing.T) {
	env := newTestEnv(t, false)
	adminToken := env.bootstrapAdmin(t)

	username := "u_" + uuid.NewString()
	rec := env.doJSON(http.MethodPost, "/auth/register", adminToken, map[string]any{
		"username": username,
		"email":    username + "@example.com",
		"password": "Secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	loginRec := env.doLogin(username, "Secret123")
	require.Equal(t, http.StatusOK, loginRec.Code)
	var resp tokenResponse
	require.NoError(t, json.Unmarshal(loginRec.Body.Bytes(), &resp))

	rec = env.doJSON(http.MethodPost, "/auth/register", resp.AccessToken, map[string]any{
		"username": "another",
		"email":    "another@example.com",
		"password": "Secret123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRegister_Conflicts(t *testing.T) {
	env := newTestEnv(t, false)
	adminToken := env.bootstrapAdmin(t)

	rec := env.doJSON(http.MethodPost, "/auth/register", adminToken, map[string]any{
		"username": "admin",
		"email":    "fresh@example.com",
		"password": "Secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.doJSON(http.MethodPost, "/auth/register", adminToken, map[string]any{
		"username": "u_" + uuid.NewString(),
		"email":    "admin@example.com",
		"password": "Secret123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.bootstrapAdmin(t)

	rec := env.doJSON(http.MethodPut, "/auth/password", token, map[string]any{
		"current_password": "wrong",
		"new_password":     "NewSecret",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	loginRec := env.doLogin("admin", "AdminSecret")
	assert.Equal(t, http.StatusOK, loginRec.Code)

	rec = env.doJSON(http.MethodPut, "/auth/password", token, map[string]any{
		"current_password": "AdminSecret",
		"new_password":     "NewSecret",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, env.doLogin("admin", "AdminSecret").Code)
	assert.Equal(t, http.StatusOK, env.doLogin("admin", "NewSecret").Code)
}

func TestTestRoutes_SecondBootstrapRejected(t *testing.T) {
	env := newTestEnv(t, false)
	env.bootstrapAdmin(t)

	rec := env.doJSON(http.MethodPost, "/test/create-first-user", "", map[string]any{
		"username": "other",
		"email":    "other@example.com",
		"password": "Secret123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestRoutes_ResetDatabase(t *testing.T) {
	env := newTestEnv(t, false)
	env.bootstrapAdmin(t)

	rec := env.doJSON(http.MethodPost, "/test/reset-database", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTestRoutes_DisabledInProduction(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.doJSON(http.MethodPost, "/test/create-first-user", "", map[string]any{
		"username": "admin",
		"email":    "admin@example.com",
		"password": "Secret123",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.doJSON(http.MethodPost, "/test/reset-database", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.doJSON(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
