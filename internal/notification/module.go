// Package notification reacts to lead lifecycle events with in-app
// notifications and emails. Domain modules publish events and stay unaware
// of delivery; this module owns the fan-out.
package notification

import (
	"context"
	"fmt"

	"corsi_crm_backend/internal/email"
	"corsi_crm_backend/internal/events"
	apphttp "corsi_crm_backend/internal/http"
	notifhandler "corsi_crm_backend/internal/notification/handler"
	"corsi_crm_backend/internal/notification/inapp"
	"corsi_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	inapp     *inapp.Service
	handler   *notifhandler.Handler
	sender    email.Sender
	directory RecipientResolver
	log       *logger.Logger
}

func NewModule(pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) *Module {
	inappSvc := inapp.NewService(inapp.NewRepository(pool), log)
	return &Module{
		inapp:     inappSvc,
		handler:   notifhandler.New(inappSvc),
		sender:    sender,
		directory: newUserDirectory(pool),
		log:       log,
	}
}

func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the notification inbox endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

// RegisterHandlers subscribes to the lead lifecycle events this module
// delivers notifications for. Handlers run on the bus's async path, so a
// slow SMTP server never blocks the request that published the event.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadClaimed{}.EventName(), events.HandlerFunc(m.onLeadClaimed))
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.onLeadAssigned))
	bus.Subscribe(events.LeadLost{}.EventName(), events.HandlerFunc(m.onLeadLost))
}

func (m *Module) onLeadClaimed(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadClaimed)
	if !ok || e.PreviousOwner == nil || *e.PreviousOwner == e.ClaimedBy {
		return nil
	}

	leadID := e.LeadID
	m.notify(ctx, inapp.SendParams{
		TenantID: e.TenantID,
		UserID:   *e.PreviousOwner,
		Title:    "Lead rivendicato",
		Content:  fmt.Sprintf("Il lead %s che avevi in gestione è stato rivendicato da un altro commerciale.", e.LeadName),
		LeadID:   &leadID,
		Category: "warning",
	})

	claimer, err := m.directory.Resolve(ctx, e.ClaimedBy)
	if err != nil {
		claimer.FullName = "un altro commerciale"
	}
	m.email(ctx, *e.PreviousOwner, func(recipient Recipient) error {
		return m.sender.SendLeadClaimedEmail(ctx, recipient.Email, e.LeadName, claimer.FullName)
	})
	return nil
}

func (m *Module) onLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok || e.NewOwner == nil || *e.NewOwner == e.AssignedByID {
		return nil
	}

	leadID := e.LeadID
	m.notify(ctx, inapp.SendParams{
		TenantID: e.TenantID,
		UserID:   *e.NewOwner,
		Title:    "Nuovo lead assegnato",
		Content:  fmt.Sprintf("Ti è stato assegnato il lead %s.", e.LeadName),
		LeadID:   &leadID,
		Category: "info",
	})

	m.email(ctx, *e.NewOwner, func(recipient Recipient) error {
		return m.sender.SendLeadAssignedEmail(ctx, recipient.Email, e.LeadName)
	})
	return nil
}

func (m *Module) onLeadLost(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadLost)
	if !ok || e.AssignedTo == nil {
		return nil
	}

	leadID := e.LeadID
	m.notify(ctx, inapp.SendParams{
		TenantID: e.TenantID,
		UserID:   *e.AssignedTo,
		Title:    "Lead perso",
		Content:  fmt.Sprintf("Un tuo lead è passato a PERSO: %s.", e.Reason),
		LeadID:   &leadID,
		Category: "error",
	})
	return nil
}

func (m *Module) notify(ctx context.Context, params inapp.SendParams) {
	if err := m.inapp.Send(ctx, params); err != nil {
		m.log.Error("in-app notification failed", "error", err, "userId", params.UserID)
	}
}

// email resolves the recipient and hands off to send. Unknown users are
// skipped silently: assignees may predate the user directory.
func (m *Module) email(ctx context.Context, userID uuid.UUID, send func(Recipient) error) {
	recipient, err := m.directory.Resolve(ctx, userID)
	if err != nil {
		if err != errUserUnknown {
			m.log.Error("resolve notification recipient failed", "error", err, "userId", userID)
		}
		return
	}
	if err := send(recipient); err != nil {
		m.log.Error("notification email failed", "error", err, "userId", userID)
	}
}

var _ apphttp.Module = (*Module)(nil)
