package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/store"
)

const (
	testKey    = "test-signing-key"
	testIssuer = "faceattend-test"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("cam-1", RoleCamera, testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	assert.True(t, pair.RefreshExp.After(pair.AccessExp))

	claims, err := Parse(pair.AccessToken, testKey, testIssuer)
	require.NoError(t, err)
	assert.Equal(t, "cam-1", claims.Subject)
	assert.Equal(t, RoleCamera, claims.Role)

	_, err = Parse(pair.AccessToken, "other-key", testIssuer)
	assert.Error(t, err)
	_, err = Parse(pair.AccessToken, testKey, "someone-else")
	assert.Error(t, err)

	_, err = Issue("cam-1", RoleCamera, testIssuer, "", time.Minute, time.Hour)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	pair, err := Issue("cam-1", RoleCamera, testIssuer, testKey, -time.Minute, time.Hour)
	require.NoError(t, err)
	_, err = Parse(pair.AccessToken, testKey, testIssuer)
	assert.Error(t, err)
}

func TestBearerAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", BearerAuth(testKey, testIssuer, RoleCamera), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Subject)
	})

	camera, err := Issue("cam-9", RoleCamera, testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)
	admin, err := Issue("ops", "admin", testIssuer, testKey, time.Minute, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
		{"wrong role", "Bearer " + admin.AccessToken, http.StatusForbidden},
		{"ok", "Bearer " + camera.AccessToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "cam-9", w.Body.String())
			}
		})
	}
}

func TestCamerasRepository(t *testing.T) {
	ctx := context.Background()
	db, err := store.NewDB(ctx, store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cams := NewCameras(db.Client)
	assert.ErrorIs(t, cams.Register(ctx, "  "), ErrCameraIDRequired)
	require.NoError(t, cams.Register(ctx, "cam-1"))
	require.NoError(t, cams.Register(ctx, "cam-1"))

	require.NoError(t, cams.SaveRefreshToken(ctx, "cam-1", "t1", time.Now().Add(time.Hour)))
	require.NoError(t, cams.SaveRefreshToken(ctx, "cam-1", "t2", time.Now().Add(time.Hour)))
	n, err := cams.RevokeTokens(ctx, "cam-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	assert.Error(t, cams.SaveRefreshToken(ctx, "unknown", "t3", time.Now()))
}
