package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity classifies how risky a duplicate group is.
type Severity string

const (
	// SeverityCritical marks groups with more than one enrolled member:
	// a concrete double-billing risk.
	SeverityCritical Severity = "critical"
	// SeverityWarning marks groups with exactly one enrolled member.
	SeverityWarning Severity = "warning"
	// SeverityInfo marks groups where nobody is enrolled yet.
	SeverityInfo Severity = "info"
)

// DuplicateCandidate is the projection of a lead the detector needs.
type DuplicateCandidate struct {
	ID        uuid.UUID
	Name      string
	CourseKey string
	Enrolled  bool
	CreatedAt time.Time
}

// DuplicateGroup is a set of leads believed to be the same person signed up
// for the same course offering.
type DuplicateGroup struct {
	NormalizedName     string
	CourseKey          string
	Members            []DuplicateCandidate
	Severity           Severity
	RecommendedPrimary uuid.UUID
}

// CourseEquivalence maps course keys that name the same offering onto a
// shared representative, so "Excel Avanzato" and its rebranded alias land
// in the same duplicate group. Lookups work from either side of a pair.
type CourseEquivalence struct {
	representative map[string]string
}

// NewCourseEquivalence builds an equivalence table from alias→canonical
// pairs. Both the alias and the canonical key resolve to the canonical
// representative, which makes the lookup bidirectional.
func NewCourseEquivalence(pairs map[string]string) CourseEquivalence {
	rep := make(map[string]string, len(pairs)*2)
	for alias, canonical := range pairs {
		rep[alias] = canonical
		rep[canonical] = canonical
	}
	return CourseEquivalence{representative: rep}
}

// Canonical returns the representative key for a course, or the key itself
// when no equivalence is registered.
func (ce CourseEquivalence) Canonical(courseKey string) string {
	if ce.representative == nil {
		return courseKey
	}
	if canonical, ok := ce.representative[courseKey]; ok {
		return canonical
	}
	return courseKey
}

// NormalizeName lowercases, trims, and collapses internal whitespace so
// "Mario  Rossi " and "mario rossi" compare equal.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// DetectDuplicates groups candidates by (normalized name, canonical course)
// and reports every group with more than one member. Detection is a pure
// read-side report: it never mutates anything, and running it against a
// slightly stale snapshot is acceptable because it is advisory.
func DetectDuplicates(candidates []DuplicateCandidate, equivalence CourseEquivalence) []DuplicateGroup {
	type groupKey struct {
		name   string
		course string
	}

	grouped := make(map[groupKey][]DuplicateCandidate)
	order := make([]groupKey, 0)
	for _, candidate := range candidates {
		key := groupKey{
			name:   NormalizeName(candidate.Name),
			course: equivalence.Canonical(candidate.CourseKey),
		}
		if key.name == "" {
			continue
		}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], candidate)
	}

	groups := make([]DuplicateGroup, 0)
	for _, key := range order {
		members := grouped[key]
		if len(members) < 2 {
			continue
		}

		sort.Slice(members, func(i, j int) bool {
			if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
				return members[i].CreatedAt.Before(members[j].CreatedAt)
			}
			return members[i].ID.String() < members[j].ID.String()
		})

		groups = append(groups, DuplicateGroup{
			NormalizedName:     key.name,
			CourseKey:          key.course,
			Members:            members,
			Severity:           classifySeverity(members),
			RecommendedPrimary: recommendPrimary(members),
		})
	}

	return groups
}

func classifySeverity(members []DuplicateCandidate) Severity {
	enrolled := 0
	for _, member := range members {
		if member.Enrolled {
			enrolled++
		}
	}
	switch {
	case enrolled > 1:
		return SeverityCritical
	case enrolled == 1:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// recommendPrimary picks the survivor of a prospective merge: the enrolled
// member when there is one, the earliest-created enrolled member when there
// are several, and the earliest-created member otherwise. Members arrive
// sorted by creation time, so the first match wins.
func recommendPrimary(members []DuplicateCandidate) uuid.UUID {
	for _, member := range members {
		if member.Enrolled {
			return member.ID
		}
	}
	return members[0].ID
}
