package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/repository"
	"github.com/noah-isme/uninotes-api/pkg/config"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
)

func testConfig() *config.Config {
	gin.SetMode(gin.TestMode)
	return &config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		Store:     config.StoreConfig{Driver: config.StoreMemory, WriteRetries: 3},
		JWT:       config.JWTConfig{Secret: "app-test", Expiration: time.Hour},
		Admin:     config.AdminConfig{Email: "admin@uninotes.com", Password: "admin123"},
		Uploads: config.UploadConfig{
			MaxFileSizeBytes:  1 << 20,
			PendingTTL:        time.Hour,
			DownloadURLSecret: "download",
			DownloadURLTTL:    time.Minute,
		},
	}
}

func TestNewRunsStartupSequence(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	notes := repository.NewNoteRepository(store, 3)
	require.NoError(t, notes.Create(ctx, models.Note{
		ID: "1700000000000", Title: "No file", UploadedBy: "alice@x.com", UploadStatus: models.UploadComplete,
		CreatedAt: "2023-11-14T22:13:20.000Z",
	}))

	a, err := NewWithStore(ctx, testConfig(), store, nil)
	require.NoError(t, err)
	defer a.Close()

	admin, err := repository.NewUserRepository(store, 3).FindByEmail(ctx, "admin@uninotes.com")
	require.NoError(t, err)
	assert.True(t, admin.IsSuperAdmin)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.PasswordHash)

	live, err := notes.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)

	quarantined, err := repository.NewQuarantineRepository(store, 3).List(ctx)
	require.NoError(t, err)
	require.Len(t, quarantined, 1)
	assert.Equal(t, models.QuarantineMissingFile, quarantined[0].Reason)

	var schema int
	_, err = kvstore.GetJSON(ctx, store, repository.KeySchemaVersion, &schema)
	require.NoError(t, err)
	assert.Equal(t, 3, schema)
}

func TestRouterServesHealthAndReady(t *testing.T) {
	a, err := NewWithStore(context.Background(), testConfig(), kvstore.NewMemoryStore(0), nil)
	require.NoError(t, err)
	defer a.Close()

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestStartAndCloseSweeper(t *testing.T) {
	cfg := testConfig()
	cfg.Uploads.SweepInterval = 10 * time.Millisecond
	a, err := NewWithStore(context.Background(), cfg, kvstore.NewMemoryStore(0), nil)
	require.NoError(t, err)

	a.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	a.Close()
}

func TestNewFailsOnMalformedUsers(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore(0)
	_, err := store.Set(ctx, repository.KeyUsers, []byte(`"not an object"`), kvstore.AnyVersion)
	require.NoError(t, err)

	_, err = NewWithStore(ctx, testConfig(), store, nil)
	require.Error(t, err)
}
