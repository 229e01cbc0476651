package service

import (
	"context"
	"errors"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/repository"
	appErrors "github.com/noah-isme/uninotes-api/pkg/errors"
	"github.com/noah-isme/uninotes-api/pkg/kvstore"
	"github.com/noah-isme/uninotes-api/pkg/markdown"
	"github.com/noah-isme/uninotes-api/pkg/storage"
	"github.com/noah-isme/uninotes-api/pkg/validation"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90wS\xde")
)

var (
	adminActor = models.Actor{Email: "admin@uninotes.com", Role: models.RoleAdmin}
	aliceActor = models.Actor{Email: "alice@x.com", Role: models.RoleUser}
	bobActor   = models.Actor{Email: "bob@x.com", Role: models.RoleUser}
)

type fixture struct {
	store      *kvstore.MemoryStore
	notes      *repository.NoteRepository
	users      *repository.UserRepository
	logs       *repository.AdminLogRepository
	sessions   *repository.SessionRepository
	quarantine *repository.QuarantineRepository
	noteSvc    *NoteService
	userSvc    *UserService
	adminSvc   *AdminService
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kvstore.NewMemoryStore(0)
	f := &fixture{
		store:      store,
		notes:      repository.NewNoteRepository(store, 3),
		users:      repository.NewUserRepository(store, 3),
		logs:       repository.NewAdminLogRepository(store, 3),
		sessions:   repository.NewSessionRepository(store),
		quarantine: repository.NewQuarantineRepository(store, 3),
		now:        time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
	}
	validate := validation.New()
	f.noteSvc = NewNoteService(f.notes, f.quarantine, f.users, f.logs, nil, markdown.NewRenderer(),
		storage.NewSignedURLSigner("test-secret", time.Minute), validate, zap.NewNop(),
		NoteConfig{MaxFileSize: 1024, PendingTTL: time.Hour, DownloadBaseURL: "/api/v1/downloads/"})
	f.noteSvc.now = func() time.Time { return f.now }
	f.userSvc = NewUserService(f.users, f.sessions, f.logs, nil, validate, zap.NewNop())
	f.adminSvc = NewAdminService(f.noteSvc, f.logs, f.logs, nil, zap.NewNop())

	ctx := context.Background()
	for _, u := range []models.User{
		{FullName: "Super Admin", Email: "admin@uninotes.com", Faculty: "Administrator", Prodi: "System Management", Role: models.RoleAdmin, IsSuperAdmin: true},
		{FullName: "Alice", Email: "alice@x.com", Faculty: "Engineering", Prodi: "CS", Role: models.RoleUser},
		{FullName: "Bob", Email: "bob@x.com", Faculty: "Economics", Prodi: "Management", Role: models.RoleUser},
	} {
		require.NoError(t, f.users.Upsert(ctx, u.Email, u))
	}
	return f
}

func (f *fixture) actions(t *testing.T) []string {
	t.Helper()
	logs, err := f.logs.List(context.Background())
	require.NoError(t, err)
	result := make([]string, 0, len(logs))
	for _, l := range logs {
		result = append(result, l.ActionType+":"+l.TargetID)
	}
	return result
}

func requireCode(t *testing.T, err error, template *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T: %v", err, err)
	require.Equal(t, template.Code, appErr.Code, appErr.Message)
}

// failingLog records nothing and always fails.
type failingLog struct{}

func (failingLog) Append(ctx context.Context, entry models.AdminLog) (*models.AdminLog, error) {
	return nil, errors.New("log store unavailable")
}

// failingQuarantine rejects every write.
type failingQuarantine struct{}

func (failingQuarantine) Add(ctx context.Context, entries ...models.QuarantinedNote) error {
	return errors.New("quarantine unavailable")
}

func (failingQuarantine) List(ctx context.Context) ([]models.QuarantinedNote, error) {
	return nil, nil
}

func (failingQuarantine) Take(ctx context.Context, noteID string) (*models.QuarantinedNote, error) {
	return nil, repository.ErrNotFound
}

// memoryCacheRepo is an in-process CacheRepository.
type memoryCacheRepo struct {
	mu      sync.Mutex
	values  map[string]interface{}
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string]interface{}{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if overview, ok := dest.(*models.StatsOverview); ok {
		*overview = *(v.(*models.StatsOverview))
	}
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.values {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.values, k)
			m.deleted = append(m.deleted, k)
		}
	}
	return nil
}
