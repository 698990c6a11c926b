package courses

import (
	"context"
	"sync"
	"time"

	"corsi_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// equivalenceTTL bounds how stale a cached equivalence table may get.
// Alias pairs change rarely (an admin action), duplicate detection reads
// them on every report, so a short cache keeps the hot path off the DB.
const equivalenceTTL = 5 * time.Minute

type AliasSource interface {
	ListAliasPairs(ctx context.Context, tenantID uuid.UUID) ([]AliasPair, error)
}

type cachedEquivalence struct {
	table     domain.CourseEquivalence
	expiresAt time.Time
}

type Service struct {
	repo AliasSource

	mu    sync.Mutex
	cache map[uuid.UUID]cachedEquivalence
	now   func() time.Time
}

func NewService(repo AliasSource) *Service {
	return &Service{
		repo:  repo,
		cache: make(map[uuid.UUID]cachedEquivalence),
		now:   time.Now,
	}
}

// Equivalence returns the tenant's course equivalence table, cached for a
// few minutes.
func (s *Service) Equivalence(ctx context.Context, tenantID uuid.UUID) (domain.CourseEquivalence, error) {
	now := s.now()

	s.mu.Lock()
	if cached, ok := s.cache[tenantID]; ok && now.Before(cached.expiresAt) {
		s.mu.Unlock()
		return cached.table, nil
	}
	s.mu.Unlock()

	pairs, err := s.repo.ListAliasPairs(ctx, tenantID)
	if err != nil {
		return domain.CourseEquivalence{}, err
	}

	aliasMap := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		aliasMap[pair.AliasCourseID.String()] = pair.CanonicalCourseID.String()
	}
	table := domain.NewCourseEquivalence(aliasMap)

	s.mu.Lock()
	s.cache[tenantID] = cachedEquivalence{table: table, expiresAt: now.Add(equivalenceTTL)}
	s.mu.Unlock()

	return table, nil
}

// Invalidate drops a tenant's cached table; call after alias changes.
func (s *Service) Invalidate(tenantID uuid.UUID) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	s.mu.Unlock()
}
