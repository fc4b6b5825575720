package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/frotalog/registro/internal/apiserver/database"
	"github.com/frotalog/registro/internal/apiserver/middleware"
	"github.com/frotalog/registro/internal/apiserver/sync"
	"github.com/frotalog/registro/internal/auth/jwt"
	"github.com/frotalog/registro/internal/common/cnst"
	"github.com/frotalog/registro/internal/common/config"
	"github.com/frotalog/registro/internal/common/dto"
)

const testJWTSecret = "handler-test-secret-key-with-32-chars!"

type testServer struct {
	router   *gin.Engine
	db       database.Database
	jwtSvc   *jwt.Service
	empresa  database.Empresa
	usuario  database.Usuario
	password string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.NewSQLite(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	jwtSvc, err := jwt.NewService(jwt.Config{SecretKey: testJWTSecret, Duration: time.Hour})
	require.NoError(t, err)

	logger := zap.NewNop()
	h := NewHandler(db, jwtSvc, sync.NewService(db, logger), nil, logger)

	router := gin.New()
	router.GET("/health", h.Health)
	router.POST("/auth/login", h.Login)
	authed := router.Group("/", middleware.JWTAuthMiddleware(jwtSvc))
	authed.GET("/users/profile", h.Profile)
	authed.GET("/sync/pull", h.Pull)
	authed.POST("/sync/push", h.Push)

	ts := &testServer{router: router, db: db, jwtSvc: jwtSvc, password: "123456"}

	hash, err := bcrypt.GenerateFromPassword([]byte(ts.password), bcrypt.DefaultCost)
	require.NoError(t, err)

	g := db.GORM()
	ts.empresa = database.Empresa{Nome: "Alfa Transportes", CNPJ: "11.111.111/0001-11"}
	require.NoError(t, g.Create(&ts.empresa).Error)
	ts.usuario = database.Usuario{Nome: "Ana", Email: "ana@alfa.com.br", SenhaHash: string(hash), EmpresaID: ts.empresa.ID}
	require.NoError(t, g.Create(&ts.usuario).Error)

	return ts
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	tok, err := ts.jwtSvc.GenerateToken(ts.usuario.ID, ts.usuario.Email, ts.empresa.ID)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w := ts.request(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: ts.usuario.Email, Senha: ts.password})
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, ts.usuario.Email, resp.User.Email)
	assert.Equal(t, ts.empresa.ID, resp.User.EmpresaID)

	claims, err := ts.jwtSvc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, ts.usuario.ID, claims.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: ts.usuario.Email, Senha: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.request(http.MethodPost, "/auth/login", "", dto.LoginRequest{Email: "nobody@alfa.com.br", Senha: "123456"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The two failures are not distinguishable from the body.
	assert.Contains(t, w.Body.String(), "invalid email or password")
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodGet, "/users/profile", ts.token(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var info dto.UserInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, ts.usuario.ID, info.ID)
	assert.Equal(t, "Ana", info.Nome)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/users/profile", "/sync/pull"} {
		w := ts.request(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := ts.request(http.MethodGet, "/sync/pull", "not-a-valid-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPullEndpoint(t *testing.T) {
	ts := newTestServer(t)

	r := database.Registro{
		UUID: "reg-1", EmpresaID: ts.empresa.ID, UsuarioID: ts.usuario.ID,
		Tipo: cnst.TipoVenda, DataHora: time.Now(), Descricao: "venda de pecas usadas",
	}
	require.NoError(t, ts.db.GORM().Create(&r).Error)

	w := ts.request(http.MethodGet, "/sync/pull", ts.token(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.PullResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Greater(t, resp.Timestamp, int64(0))
	require.Len(t, resp.Changes[cnst.TableRegistros].Created, 1)
	assert.Equal(t, "saida", resp.Changes[cnst.TableRegistros].Created[0].String("tipo"))

	w = ts.request(http.MethodGet, "/sync/pull?lastPulledAt=bogus", ts.token(t), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPushEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := dto.PushRequest{
		Changes: dto.Changes{
			cnst.TableRegistros: dto.TableChanges{
				Created: []dto.RawRecord{{
					"id":         "reg-1",
					"tipo":       "entrada",
					"data_hora":  time.Now().UnixMilli(),
					"descricao":  "compra de combustivel",
					"usuario_id": ts.usuario.ID,
				}},
			},
		},
	}
	w := ts.request(http.MethodPost, "/sync/push", ts.token(t), req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())

	var n int64
	require.NoError(t, ts.db.GORM().Model(&database.Registro{}).Where("uuid = ?", "reg-1").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestPushEndpointRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(http.MethodPost, "/sync/push", ts.token(t), map[string]any{"changes": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/sync/push", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Authorization", "Bearer "+ts.token(t))
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushEndpointReportsRejections(t *testing.T) {
	ts := newTestServer(t)

	req := dto.PushRequest{
		Changes: dto.Changes{
			cnst.TableRegistros: dto.TableChanges{
				Created: []dto.RawRecord{{
					"id":         "reg-bad",
					"tipo":       "entrada",
					"data_hora":  time.Now().UnixMilli(),
					"descricao":  "abc",
					"usuario_id": ts.usuario.ID,
				}},
			},
		},
	}
	w := ts.request(http.MethodPost, "/sync/push", ts.token(t), req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.PushResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"reg-bad"}, resp.RejectedIDs)
}
