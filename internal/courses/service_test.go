package courses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeAliasSource struct {
	pairs []AliasPair
	calls int
	err   error
}

func (f *fakeAliasSource) ListAliasPairs(_ context.Context, _ uuid.UUID) ([]AliasPair, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pairs, nil
}

func TestEquivalenceResolvesBothSides(t *testing.T) {
	alias := uuid.New()
	canonical := uuid.New()
	src := &fakeAliasSource{pairs: []AliasPair{{AliasCourseID: alias, CanonicalCourseID: canonical}}}
	svc := NewService(src)

	table, err := svc.Equivalence(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Equivalence: %v", err)
	}
	if got := table.Canonical(alias.String()); got != canonical.String() {
		t.Fatalf("alias side: got %s, want %s", got, canonical)
	}
	if got := table.Canonical(canonical.String()); got != canonical.String() {
		t.Fatalf("canonical side: got %s, want %s", got, canonical)
	}
	if got := table.Canonical("unrelated"); got != "unrelated" {
		t.Fatalf("unmapped key: got %s, want unrelated", got)
	}
}

func TestEquivalenceCachesPerTenant(t *testing.T) {
	src := &fakeAliasSource{}
	svc := NewService(src)
	tenantA := uuid.New()
	tenantB := uuid.New()

	for i := 0; i < 3; i++ {
		if _, err := svc.Equivalence(context.Background(), tenantA); err != nil {
			t.Fatalf("Equivalence: %v", err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected 1 repo call for cached tenant, got %d", src.calls)
	}

	if _, err := svc.Equivalence(context.Background(), tenantB); err != nil {
		t.Fatalf("Equivalence: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected separate cache entry per tenant, got %d calls", src.calls)
	}
}

func TestEquivalenceCacheExpires(t *testing.T) {
	src := &fakeAliasSource{}
	svc := NewService(src)

	current := time.Now()
	svc.now = func() time.Time { return current }

	tenantID := uuid.New()
	if _, err := svc.Equivalence(context.Background(), tenantID); err != nil {
		t.Fatalf("Equivalence: %v", err)
	}

	current = current.Add(equivalenceTTL + time.Second)
	if _, err := svc.Equivalence(context.Background(), tenantID); err != nil {
		t.Fatalf("Equivalence: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected cache to expire after TTL, got %d calls", src.calls)
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	src := &fakeAliasSource{}
	svc := NewService(src)
	tenantID := uuid.New()

	if _, err := svc.Equivalence(context.Background(), tenantID); err != nil {
		t.Fatalf("Equivalence: %v", err)
	}
	svc.Invalidate(tenantID)
	if _, err := svc.Equivalence(context.Background(), tenantID); err != nil {
		t.Fatalf("Equivalence: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected reload after Invalidate, got %d calls", src.calls)
	}
}
