package service

import (
	"context"
	"testing"
	"time"

	"corsi_crm_backend/internal/events"
	"corsi_crm_backend/internal/leads/domain"
	"corsi_crm_backend/internal/leads/repository"
	"corsi_crm_backend/internal/leads/transport"
	"corsi_crm_backend/platform/apperr"
	"corsi_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository that mimics the conditional-update
// semantics of the real one, including the attempt-counter guard.
type fakeRepo struct {
	leads      map[uuid.UUID]repository.Lead
	activities []repository.AddActivityParams
	now        time.Time
}

func newFakeRepo(now time.Time) *fakeRepo {
	return &fakeRepo{leads: make(map[uuid.UUID]repository.Lead), now: now}
}

func (f *fakeRepo) put(lead repository.Lead) {
	f.leads[lead.ID] = lead
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.TenantID != tenantID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	items := make([]repository.Lead, 0)
	for _, lead := range f.leads {
		if lead.TenantID == params.TenantID {
			items = append(items, lead)
		}
	}
	return items, len(items), nil
}

func (f *fakeRepo) CountByStatus(_ context.Context, tenantID uuid.UUID, _ time.Time) (repository.StatusCounts, error) {
	counts := make(map[string]int)
	for _, lead := range f.leads {
		if lead.TenantID == tenantID {
			counts[lead.Status]++
		}
	}
	return repository.StatusCounts{Counts: counts}, nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	lead := repository.Lead{
		ID:         uuid.New(),
		TenantID:   params.TenantID,
		FirstName:  params.FirstName,
		LastName:   params.LastName,
		Phone:      params.Phone,
		Email:      params.Email,
		CourseID:   params.CourseID,
		Campaign:   params.Campaign,
		Status:     string(domain.StatusNuovo),
		IsTarget:   params.IsTarget,
		AssignedTo: params.AssignedTo,
		Notes:      params.Notes,
		CreatedAt:  f.now,
		UpdatedAt:  f.now,
	}
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) Update(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, id, tenantID)
	if err != nil {
		return repository.Lead{}, err
	}
	if params.FirstName != nil {
		lead.FirstName = *params.FirstName
	}
	if params.Notes != nil {
		lead.Notes = params.Notes
	}
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) Assign(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, assignee *uuid.UUID) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, id, tenantID)
	if err != nil {
		return repository.Lead{}, err
	}
	lead.AssignedTo = assignee
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) SetTarget(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, isTarget bool) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, id, tenantID)
	if err != nil {
		return repository.Lead{}, err
	}
	lead.IsTarget = isTarget
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	if _, err := f.GetByID(ctx, id, tenantID); err != nil {
		return err
	}
	delete(f.leads, id)
	return nil
}

func (f *fakeRepo) ApplyCallOutcome(ctx context.Context, params repository.ApplyOutcomeParams) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, params.LeadID, params.TenantID)
	if err != nil {
		return repository.Lead{}, repository.ErrStateConflict
	}
	if lead.Status == string(domain.StatusPerso) || lead.Status == string(domain.StatusIscritto) || lead.Enrolled {
		return repository.Lead{}, repository.ErrStateConflict
	}
	if lead.CallAttempts != params.ExpectedAttempts {
		return repository.Lead{}, repository.ErrStateConflict
	}

	result := params.Result
	lead.Status = string(result.Status)
	outcome := string(result.Outcome)
	lead.CallOutcome = &outcome
	lead.CallAttempts++
	lead.Contacted = true
	if lead.ContactedAt == nil {
		contactedAt := result.ContactedAt
		lead.ContactedAt = &contactedAt
	}
	if lead.FirstAttemptAt == nil {
		firstAt := result.FirstAttemptAt
		lead.FirstAttemptAt = &firstAt
	}
	lastAt := result.LastAttemptAt
	lead.LastAttemptAt = &lastAt
	if result.LostReason != "" {
		reason := result.LostReason
		lead.LostReason = &reason
		lead.LostAt = result.LostAt
	} else {
		lead.LostReason = nil
		lead.LostAt = nil
	}
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) StartNegotiation(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, id, tenantID)
	if err != nil || lead.Status != string(domain.StatusContattato) {
		return repository.Lead{}, repository.ErrStateConflict
	}
	lead.Status = string(domain.StatusInTrattativa)
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) Enroll(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, id, tenantID)
	if err != nil || lead.Enrolled || lead.Status == string(domain.StatusPerso) || lead.Status == string(domain.StatusIscritto) {
		return repository.Lead{}, repository.ErrStateConflict
	}
	lead.Status = string(domain.StatusIscritto)
	lead.Enrolled = true
	enrolledAt := f.now
	lead.EnrolledAt = &enrolledAt
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) Claim(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, claimedBy uuid.UUID) (repository.Lead, error) {
	lead, err := f.GetByID(ctx, id, tenantID)
	if err != nil {
		return repository.Lead{}, repository.ErrClaimConflict
	}
	expired := domain.IsExpired(domain.ExpiryState{
		Status:        domain.LeadStatus(lead.Status),
		Enrolled:      lead.Enrolled,
		LastAttemptAt: lead.LastAttemptAt,
	}, f.now)
	if lead.Enrolled || (lead.Status != string(domain.StatusPerso) && !expired) {
		return repository.Lead{}, repository.ErrClaimConflict
	}
	lead.AssignedTo = &claimedBy
	lead.Status = string(domain.StatusContattato)
	lead.CallAttempts = 0
	lead.CallOutcome = nil
	lead.FirstAttemptAt = nil
	lead.LastAttemptAt = nil
	lead.LostReason = nil
	lead.LostAt = nil
	f.put(lead)
	return lead, nil
}

func (f *fakeRepo) Merge(ctx context.Context, params repository.MergeParams) (repository.Lead, error) {
	primary, err := f.GetByID(ctx, params.PrimaryID, params.TenantID)
	if err != nil {
		return repository.Lead{}, repository.ErrMergeConflict
	}
	for _, id := range params.DuplicateIDs {
		dup, err := f.GetByID(ctx, id, params.TenantID)
		if err != nil {
			return repository.Lead{}, repository.ErrMergeConflict
		}
		if domain.NormalizeName(dup.FirstName+" "+dup.LastName) != domain.NormalizeName(primary.FirstName+" "+primary.LastName) {
			return repository.Lead{}, repository.ErrInvalidMerge
		}
		if dup.Enrolled {
			primary.Enrolled = true
			primary.Status = string(domain.StatusIscritto)
			if primary.EnrolledAt == nil || (dup.EnrolledAt != nil && dup.EnrolledAt.Before(*primary.EnrolledAt)) {
				primary.EnrolledAt = dup.EnrolledAt
			}
		}
		if dup.CallAttempts > primary.CallAttempts {
			primary.CallAttempts = dup.CallAttempts
		}
		delete(f.leads, id)
	}
	f.put(primary)
	return primary, nil
}

func (f *fakeRepo) AddActivity(_ context.Context, params repository.AddActivityParams) error {
	f.activities = append(f.activities, params)
	return nil
}

func (f *fakeRepo) ListActivity(_ context.Context, leadID uuid.UUID, tenantID uuid.UUID, _ int) ([]repository.Activity, error) {
	entries := make([]repository.Activity, 0)
	for _, params := range f.activities {
		if params.LeadID == leadID && params.TenantID == tenantID {
			entries = append(entries, repository.Activity{
				ID:       uuid.New(),
				TenantID: params.TenantID,
				LeadID:   params.LeadID,
				ActorID:  params.ActorID,
				Kind:     params.Kind,
				Message:  params.Message,
				Meta:     params.Meta,
			})
		}
	}
	return entries, nil
}

func (f *fakeRepo) ListDuplicateCandidates(_ context.Context, tenantID uuid.UUID) ([]domain.DuplicateCandidate, error) {
	candidates := make([]domain.DuplicateCandidate, 0)
	for _, lead := range f.leads {
		if lead.TenantID != tenantID {
			continue
		}
		candidates = append(candidates, domain.DuplicateCandidate{
			ID:        lead.ID,
			Name:      lead.FirstName + " " + lead.LastName,
			CourseKey: lead.CourseID.String(),
			Enrolled:  lead.Enrolled,
			CreatedAt: lead.CreatedAt,
		})
	}
	return candidates, nil
}

type fakeCourses struct {
	equivalence domain.CourseEquivalence
}

func (f fakeCourses) Equivalence(context.Context, uuid.UUID) (domain.CourseEquivalence, error) {
	return f.equivalence, nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	names := make([]string, 0, len(b.published))
	for _, event := range b.published {
		names = append(names, event.EventName())
	}
	return names
}

func newTestService(repo *fakeRepo, bus *recordingBus, now time.Time) *Service {
	svc := New(repo, fakeCourses{}, bus, logger.New("test"))
	svc.now = func() time.Time { return now }
	return svc
}

func seedLead(repo *fakeRepo, tenantID uuid.UUID, status domain.LeadStatus, attempts int) repository.Lead {
	lead := repository.Lead{
		ID:           uuid.New(),
		TenantID:     tenantID,
		FirstName:    "Mario",
		LastName:     "Rossi",
		Phone:        "+393331234567",
		CourseID:     uuid.New(),
		Status:       string(status),
		CallAttempts: attempts,
		CreatedAt:    repo.now,
		UpdatedAt:    repo.now,
	}
	repo.put(lead)
	return lead
}

func TestLogCallOutcomeFirstCall(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	bus := &recordingBus{}
	svc := newTestService(repo, bus, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusNuovo, 0)

	resp, err := svc.LogCallOutcome(context.Background(), lead.ID, tenantID, uuid.New(), transport.LogCallOutcomeRequest{Outcome: "RICHIAMARE"})
	if err != nil {
		t.Fatalf("LogCallOutcome: %v", err)
	}
	if resp.Attempt != 1 {
		t.Fatalf("attempt = %d, want 1", resp.Attempt)
	}
	if resp.Lead.Status != string(domain.StatusContattato) {
		t.Fatalf("status = %s, want CONTATTATO", resp.Lead.Status)
	}
	if resp.Lead.AttemptsLeft != domain.MaxCallAttempts-1 {
		t.Fatalf("attemptsLeft = %d, want %d", resp.Lead.AttemptsLeft, domain.MaxCallAttempts-1)
	}
	if resp.BecamePerso {
		t.Fatal("first RICHIAMARE should not lose the lead")
	}

	got := bus.names()
	if len(got) != 1 || got[0] != "leads.call_outcome.logged" {
		t.Fatalf("published events = %v", got)
	}
}

func TestLogCallOutcomeEighthAttemptLoses(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	bus := &recordingBus{}
	svc := newTestService(repo, bus, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusContattato, domain.MaxCallAttempts-1)
	lastAt := now.Add(-time.Hour)
	lead.LastAttemptAt = &lastAt
	repo.put(lead)

	resp, err := svc.LogCallOutcome(context.Background(), lead.ID, tenantID, uuid.New(), transport.LogCallOutcomeRequest{Outcome: "NON_RISPONDE"})
	if err != nil {
		t.Fatalf("LogCallOutcome: %v", err)
	}
	if !resp.BecamePerso {
		t.Fatal("eighth non-positive outcome must lose the lead")
	}
	if resp.Lead.Status != string(domain.StatusPerso) {
		t.Fatalf("status = %s, want PERSO", resp.Lead.Status)
	}
	if resp.Lead.LostReason == nil || *resp.Lead.LostReason != domain.LostReasonMaxAttempts {
		t.Fatalf("lostReason = %v, want %q", resp.Lead.LostReason, domain.LostReasonMaxAttempts)
	}

	got := bus.names()
	if len(got) != 2 || got[1] != "leads.lost" {
		t.Fatalf("published events = %v, want call_outcome.logged then lost", got)
	}
}

func TestLogCallOutcomeTerminalLeadRejected(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusPerso, 3)

	_, err := svc.LogCallOutcome(context.Background(), lead.ID, tenantID, uuid.New(), transport.LogCallOutcomeRequest{Outcome: "POSITIVO"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestLogCallOutcomeExpiredLeadRejected(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusContattato, 2)
	staleAt := now.Add(-16 * 24 * time.Hour)
	lead.LastAttemptAt = &staleAt
	repo.put(lead)

	// Sixteen days of silence: the lead reads as PERSO even though the
	// sweeper has not persisted the transition yet.
	_, err := svc.LogCallOutcome(context.Background(), lead.ID, tenantID, uuid.New(), transport.LogCallOutcomeRequest{Outcome: "POSITIVO"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestLogCallOutcomeCounterRaceMapsToConflict(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusContattato, 2)

	// Simulate a concurrent writer bumping the counter between the
	// service's read and its conditional write.
	svc.now = func() time.Time {
		stored := repo.leads[lead.ID]
		if stored.CallAttempts == 2 {
			stored.CallAttempts = 3
			repo.put(stored)
		}
		return now
	}

	_, err := svc.LogCallOutcome(context.Background(), lead.ID, tenantID, uuid.New(), transport.LogCallOutcomeRequest{Outcome: "RICHIAMARE"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestClaimResetsAndNotifies(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	bus := &recordingBus{}
	svc := newTestService(repo, bus, now)

	tenantID := uuid.New()
	previousOwner := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusPerso, domain.MaxCallAttempts)
	lead.AssignedTo = &previousOwner
	reason := domain.LostReasonMaxAttempts
	lead.LostReason = &reason
	repo.put(lead)

	claimer := uuid.New()
	resp, err := svc.Claim(context.Background(), lead.ID, tenantID, claimer)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if resp.Status != string(domain.StatusContattato) {
		t.Fatalf("status = %s, want CONTATTATO", resp.Status)
	}
	if resp.CallAttempts != 0 {
		t.Fatalf("callAttempts = %d, want 0", resp.CallAttempts)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != claimer {
		t.Fatalf("assignedTo = %v, want %s", resp.AssignedTo, claimer)
	}
	if resp.LostReason != nil {
		t.Fatalf("lostReason = %v, want cleared", resp.LostReason)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	claimed, ok := bus.published[0].(events.LeadClaimed)
	if !ok {
		t.Fatalf("event = %T, want LeadClaimed", bus.published[0])
	}
	if claimed.PreviousOwner == nil || *claimed.PreviousOwner != previousOwner {
		t.Fatalf("previousOwner = %v, want %s", claimed.PreviousOwner, previousOwner)
	}
}

func TestClaimActiveLeadConflicts(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusInTrattativa, 3)

	_, err := svc.Claim(context.Background(), lead.ID, tenantID, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestMergeKeepsEnrollment(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	bus := &recordingBus{}
	svc := newTestService(repo, bus, now)

	tenantID := uuid.New()
	primary := seedLead(repo, tenantID, domain.StatusContattato, 2)
	duplicate := seedLead(repo, tenantID, domain.StatusIscritto, 5)
	duplicate.Enrolled = true
	enrolledAt := now.Add(-48 * time.Hour)
	duplicate.EnrolledAt = &enrolledAt
	repo.put(duplicate)

	resp, err := svc.Merge(context.Background(), tenantID, uuid.New(), transport.MergeLeadsRequest{
		PrimaryID:    primary.ID,
		DuplicateIDs: []uuid.UUID{duplicate.ID},
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !resp.Enrolled || resp.Status != string(domain.StatusIscritto) {
		t.Fatalf("merged lead = %s enrolled=%v, want ISCRITTO enrolled", resp.Status, resp.Enrolled)
	}
	if resp.CallAttempts != 5 {
		t.Fatalf("callAttempts = %d, want max of members", resp.CallAttempts)
	}
	if _, survives := repo.leads[duplicate.ID]; survives {
		t.Fatal("duplicate must be removed after merge")
	}

	got := bus.names()
	if len(got) != 1 || got[0] != "leads.merged" {
		t.Fatalf("published events = %v", got)
	}
}

func TestMergeDifferentPersonRejected(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	primary := seedLead(repo, tenantID, domain.StatusContattato, 1)
	other := seedLead(repo, tenantID, domain.StatusContattato, 1)
	other.FirstName = "Luigi"
	repo.put(other)

	_, err := svc.Merge(context.Background(), tenantID, uuid.New(), transport.MergeLeadsRequest{
		PrimaryID:    primary.ID,
		DuplicateIDs: []uuid.UUID{other.ID},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestListAppliesEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusContattato, 2)
	staleAt := now.Add(-16 * 24 * time.Hour)
	lead.LastAttemptAt = &staleAt
	repo.put(lead)

	resp, err := svc.List(context.Background(), tenantID, transport.ListLeadsRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(resp.Items))
	}
	item := resp.Items[0]
	if item.Status != string(domain.StatusPerso) {
		t.Fatalf("status = %s, want PERSO via inactivity", item.Status)
	}
	if item.LostReason == nil || *item.LostReason != domain.LostReasonInactivity {
		t.Fatalf("lostReason = %v, want %q", item.LostReason, domain.LostReasonInactivity)
	}
}

func TestStartNegotiationRequiresContattato(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	svc := newTestService(repo, &recordingBus{}, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusNuovo, 0)

	_, err := svc.StartNegotiation(context.Background(), lead.ID, tenantID, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestEnrollPublishesEvent(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo(now)
	bus := &recordingBus{}
	svc := newTestService(repo, bus, now)

	tenantID := uuid.New()
	lead := seedLead(repo, tenantID, domain.StatusInTrattativa, 4)
	lastAt := now.Add(-time.Hour)
	lead.LastAttemptAt = &lastAt
	repo.put(lead)

	resp, err := svc.Enroll(context.Background(), lead.ID, tenantID, uuid.New())
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if !resp.Enrolled || resp.Status != string(domain.StatusIscritto) {
		t.Fatalf("lead = %s enrolled=%v, want ISCRITTO enrolled", resp.Status, resp.Enrolled)
	}

	got := bus.names()
	if len(got) != 1 || got[0] != "leads.enrolled" {
		t.Fatalf("published events = %v", got)
	}
}
