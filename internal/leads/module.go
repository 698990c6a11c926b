// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"corsi_crm_backend/internal/courses"
	"corsi_crm_backend/internal/events"
	apphttp "corsi_crm_backend/internal/http"
	"corsi_crm_backend/internal/leads/handler"
	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/internal/leads/service"
	"corsi_crm_backend/platform/logger"
	"corsi_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
// The courses module supplies the course equivalence table used by duplicate
// detection and merge validation.
func NewModule(pool *pgxpool.Pool, coursesModule *courses.Module, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, coursesModule.Service(), eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Sweeper exposes the batch expiry writer for the scheduler.
func (m *Module) Sweeper() repository.Sweeper {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
