package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func candidate(name, course string, enrolled bool, created time.Time) DuplicateCandidate {
	return DuplicateCandidate{
		ID:        uuid.New(),
		Name:      name,
		CourseKey: course,
		Enrolled:  enrolled,
		CreatedAt: created,
	}
}

func TestDetectDuplicates_SameNameSameCourse(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	plain := candidate("Mario Rossi", "excel-avanzato", false, base)
	enrolled := candidate("mario  rossi", "excel-avanzato", true, base.Add(48*time.Hour))
	unrelated := candidate("Lucia Bianchi", "excel-avanzato", false, base)

	groups := DetectDuplicates([]DuplicateCandidate{plain, enrolled, unrelated}, NewCourseEquivalence(nil))

	if len(groups) != 1 {
		t.Fatalf("expected 1 duplicate group, got %d", len(groups))
	}

	group := groups[0]
	if group.NormalizedName != "mario rossi" {
		t.Fatalf("expected normalized name 'mario rossi', got %q", group.NormalizedName)
	}
	if len(group.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(group.Members))
	}
	if group.Severity != SeverityWarning {
		t.Fatalf("expected warning severity with one enrolled member, got %s", group.Severity)
	}
	if group.RecommendedPrimary != enrolled.ID {
		t.Fatal("expected the enrolled member recommended as primary")
	}
}

func TestDetectDuplicates_CourseAliasBidirectional(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	equivalence := NewCourseEquivalence(map[string]string{
		"excel-avanzato-2024": "excel-avanzato",
	})

	onAlias := candidate("Mario Rossi", "excel-avanzato-2024", false, base)
	onCanonical := candidate("Mario Rossi", "excel-avanzato", false, base.Add(time.Hour))

	groups := DetectDuplicates([]DuplicateCandidate{onAlias, onCanonical}, equivalence)
	if len(groups) != 1 {
		t.Fatalf("alias and canonical course must land in one group, got %d", len(groups))
	}
	if groups[0].CourseKey != "excel-avanzato" {
		t.Fatalf("expected canonical course key, got %q", groups[0].CourseKey)
	}

	// The lookup must resolve from either side of the pair.
	if equivalence.Canonical("excel-avanzato-2024") != "excel-avanzato" {
		t.Fatal("alias did not resolve to canonical")
	}
	if equivalence.Canonical("excel-avanzato") != "excel-avanzato" {
		t.Fatal("canonical did not resolve to itself")
	}
}

func TestDetectDuplicates_SeverityLevels(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name          string
		enrolledFlags []bool
		want          Severity
	}{
		{"nobody enrolled", []bool{false, false}, SeverityInfo},
		{"one enrolled", []bool{true, false}, SeverityWarning},
		{"double enrollment", []bool{true, true, false}, SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			members := make([]DuplicateCandidate, 0, len(tc.enrolledFlags))
			for i, enrolled := range tc.enrolledFlags {
				members = append(members, candidate("Anna Verdi", "contabilita-base", enrolled, base.Add(time.Duration(i)*time.Hour)))
			}

			groups := DetectDuplicates(members, NewCourseEquivalence(nil))
			if len(groups) != 1 {
				t.Fatalf("expected 1 group, got %d", len(groups))
			}
			if groups[0].Severity != tc.want {
				t.Fatalf("expected severity %s, got %s", tc.want, groups[0].Severity)
			}
		})
	}
}

func TestDetectDuplicates_PrimaryPrefersEarliestEnrolled(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	laterEnrolled := candidate("Anna Verdi", "contabilita-base", true, base.Add(72*time.Hour))
	earlierEnrolled := candidate("Anna Verdi", "contabilita-base", true, base.Add(24*time.Hour))
	notEnrolled := candidate("Anna Verdi", "contabilita-base", false, base)

	groups := DetectDuplicates([]DuplicateCandidate{laterEnrolled, earlierEnrolled, notEnrolled}, NewCourseEquivalence(nil))
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].RecommendedPrimary != earlierEnrolled.ID {
		t.Fatal("expected the earliest enrolled member recommended as primary")
	}
}

func TestDetectDuplicates_NoGroupsForDistinctCourses(t *testing.T) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	a := candidate("Mario Rossi", "excel-avanzato", false, base)
	b := candidate("Mario Rossi", "inglese-b2", false, base)

	groups := DetectDuplicates([]DuplicateCandidate{a, b}, NewCourseEquivalence(nil))
	if len(groups) != 0 {
		t.Fatalf("same name on unrelated courses is not a duplicate, got %d groups", len(groups))
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"  Mario   Rossi ": "mario rossi",
		"MARIO ROSSI":      "mario rossi",
		"":                 "",
		"  ":               "",
	}
	for input, want := range cases {
		if got := NormalizeName(input); got != want {
			t.Fatalf("NormalizeName(%q) = %q, want %q", input, got, want)
		}
	}
}
