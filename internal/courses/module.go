package courses

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module bundles the courses context. It registers no HTTP routes; other
// modules consume it through Service().
type Module struct {
	repo    *Repository
	service *Service
}

func NewModule(pool *pgxpool.Pool) *Module {
	repo := NewRepository(pool)
	return &Module{
		repo:    repo,
		service: NewService(repo),
	}
}

func (m *Module) Name() string {
	return "courses"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) Repository() *Repository {
	return m.repo
}
