package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/models"
)

// StatsCacheKey is where the dashboard overview is cached.
const StatsCacheKey = "stats:overview"

const statsCachePattern = "stats:*"

const (
	trendDays     = 7
	recentActions = 5
)

type statsNoteSource interface {
	GetAll(ctx context.Context) ([]models.Note, error)
}

type statsUserSource interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

type statsLogSource interface {
	Recent(ctx context.Context, n int) ([]models.AdminLog, error)
}

// StatsService computes the admin dashboard overview.
type StatsService struct {
	notes  statsNoteSource
	users  statsUserSource
	logs   statsLogSource
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(notes statsNoteSource, users statsUserSource, logs statsLogSource, cache *CacheService, ttl time.Duration, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{notes: notes, users: users, logs: logs, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Overview returns the dashboard figures, from cache when available. cacheHit reports which.
func (s *StatsService) Overview(ctx context.Context) (*models.StatsOverview, bool, error) {
	return Remember(ctx, s.cache, StatsCacheKey, s.ttl, s.compute)
}

// Invalidate drops every cached stats entry.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s == nil {
		return
	}
	s.cache.InvalidatePattern(ctx, statsCachePattern)
}

func (s *StatsService) compute(ctx context.Context) (*models.StatsOverview, error) {
	notes, err := s.notes.GetAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load notes")
	}
	users, err := s.users.List(ctx, models.UserFilter{})
	if err != nil {
		return nil, storeError(err, "failed to load users")
	}
	recent, err := s.logs.Recent(ctx, recentActions)
	if err != nil {
		return nil, storeError(err, "failed to load admin log")
	}

	overview := &models.StatsOverview{
		TotalPosts:      len(notes),
		TotalUsers:      len(users),
		PostsByFaculty:  map[string]int{},
		PostsByFileType: map[string]int{},
		UploadTrend:     uploadTrend(notes, s.now().UTC()),
		RecentActions:   recent,
	}
	for _, u := range users {
		if u.IsAdmin() {
			overview.TotalAdmins++
		}
	}
	overview.RegularUsers = overview.TotalUsers - overview.TotalAdmins
	for _, n := range notes {
		faculty := n.Faculty
		if faculty == "" {
			faculty = "Unknown"
		}
		overview.PostsByFaculty[faculty]++
		overview.PostsByFileType[string(n.Kind())]++
	}
	return overview, nil
}

// uploadTrend counts notes created on each of the last seven UTC days, oldest first.
func uploadTrend(notes []models.Note, now time.Time) []models.DailyUploads {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	trend := make([]models.DailyUploads, trendDays)
	index := make(map[string]int, trendDays)
	for i := 0; i < trendDays; i++ {
		day := today.AddDate(0, 0, i-(trendDays-1)).Format("2006-01-02")
		trend[i] = models.DailyUploads{Date: day}
		index[day] = i
	}
	for _, n := range notes {
		created := n.Created()
		if created.IsZero() {
			continue
		}
		if i, ok := index[created.UTC().Format("2006-01-02")]; ok {
			trend[i].Count++
		}
	}
	return trend
}
