package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ai-teacher/internal/pkg/jwtutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testSession = SessionConfig{Secret: "s3cret", CookieName: "sid", TTL: time.Hour}

func sessionRouter() *gin.Engine {
	r := gin.New()
	r.Use(UserSession(testSession))
	r.GET("/whoami", func(c *gin.Context) {
		id, _ := UserID(c)
		c.String(http.StatusOK, id)
	})
	return r
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == testSession.CookieName {
			return ck
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestUserSessionIssuesIDAndReusesIt(t *testing.T) {
	r := sessionRouter()

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.Equal(t, http.StatusOK, first.Code)
	id := first.Body.String()
	require.NotEmpty(t, id)
	ck := sessionCookie(t, first)
	assert.True(t, ck.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(ck)
	second := httptest.NewRecorder()
	r.ServeHTTP(second, req)
	assert.Equal(t, id, second.Body.String())
}

func TestUserSessionReplacesForgedCookie(t *testing.T) {
	r := sessionRouter()
	forged, err := jwtutil.GenerateToken("other-secret", jwtutil.NewUserID(), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: testSession.CookieName, Value: forged})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	claims, err := jwtutil.ParseToken(testSession.Secret, sessionCookie(t, rec).Value)
	require.NoError(t, err)
	assert.Equal(t, rec.Body.String(), claims.UserID)
}

func TestUserIDMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := UserID(c)
	assert.False(t, ok)
}

func adminRouter(hash string) *gin.Engine {
	r := gin.New()
	r.POST("/add-topic/", AdminKey(hash), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAdminKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	r := adminRouter(string(hash))

	cases := []struct {
		name   string
		key    string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "guess", http.StatusUnauthorized},
		{"valid", "letmein", http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/add-topic/", nil)
			if tc.key != "" {
				req.Header.Set(AdminKeyHeader, tc.key)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAdminKeyDisabledWithoutHash(t *testing.T) {
	rec := httptest.NewRecorder()
	adminRouter("").ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/add-topic/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.POST("/simplify/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/simplify/", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "X-Classified-Topic", rec.Header().Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/topics/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/topics/", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
