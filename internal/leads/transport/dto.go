// Package transport defines the HTTP request and response shapes of the
// leads bounded context. DTOs carry validation tags; the handler binds and
// validates, the service works with these types plus repository params.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	FirstName  string     `json:"firstName" validate:"required,min=1,max=100"`
	LastName   string     `json:"lastName" validate:"required,min=1,max=100"`
	Phone      string     `json:"phone" validate:"required,min=5,max=20"`
	Email      string     `json:"email,omitempty" validate:"omitempty,email"`
	CourseID   uuid.UUID  `json:"courseId" validate:"required"`
	Campaign   string     `json:"campaign,omitempty" validate:"max=200"`
	IsTarget   bool       `json:"isTarget,omitempty"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	Notes      string     `json:"notes,omitempty" validate:"max=4000"`
}

type UpdateLeadRequest struct {
	FirstName *string    `json:"firstName,omitempty" validate:"omitempty,min=1,max=100"`
	LastName  *string    `json:"lastName,omitempty" validate:"omitempty,min=1,max=100"`
	Phone     *string    `json:"phone,omitempty" validate:"omitempty,min=5,max=20"`
	Email     *string    `json:"email,omitempty" validate:"omitempty,email"`
	CourseID  *uuid.UUID `json:"courseId,omitempty"`
	Campaign  *string    `json:"campaign,omitempty" validate:"omitempty,max=200"`
	Notes     *string    `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

type AssignLeadRequest struct {
	AssignedTo *uuid.UUID `json:"assignedTo" validate:"omitempty"`
}

type SetTargetRequest struct {
	IsTarget *bool `json:"isTarget" validate:"required"`
}

type LogCallOutcomeRequest struct {
	Outcome string `json:"outcome" validate:"required,oneof=POSITIVO RICHIAMARE NEGATIVO NON_RISPONDE"`
	Note    string `json:"note,omitempty" validate:"max=2000"`
}

type MergeLeadsRequest struct {
	PrimaryID    uuid.UUID   `json:"primaryId" validate:"required"`
	DuplicateIDs []uuid.UUID `json:"duplicateIds" validate:"required,min=1,max=20"`
}

type ListLeadsRequest struct {
	Status     *string    `form:"status" validate:"omitempty,oneof=NUOVO CONTATTATO IN_TRATTATIVA ISCRITTO PERSO"`
	CourseID   *uuid.UUID `form:"courseId"`
	AssignedTo *uuid.UUID `form:"assignedTo"`
	IsTarget   *bool      `form:"isTarget"`
	Campaign   *string    `form:"campaign"`
	Search     string     `form:"search" validate:"max=200"`
	Page       int        `form:"page" validate:"omitempty,min=1"`
	PageSize   int        `form:"pageSize" validate:"omitempty,min=1,max=200"`
	SortBy     string     `form:"sortBy" validate:"omitempty,oneof=firstName lastName status callAttempts lastAttemptAt createdAt"`
	SortOrder  string     `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

// Response DTOs

type LeadResponse struct {
	ID             uuid.UUID  `json:"id"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone"`
	Email          *string    `json:"email,omitempty"`
	CourseID       uuid.UUID  `json:"courseId"`
	Campaign       *string    `json:"campaign,omitempty"`
	Status         string     `json:"status"`
	Contacted      bool       `json:"contacted"`
	ContactedAt    *time.Time `json:"contactedAt,omitempty"`
	CallOutcome    *string    `json:"callOutcome,omitempty"`
	CallAttempts   int        `json:"callAttempts"`
	AttemptsLeft   int        `json:"attemptsLeft"`
	FirstAttemptAt *time.Time `json:"firstAttemptAt,omitempty"`
	LastAttemptAt  *time.Time `json:"lastAttemptAt,omitempty"`
	Enrolled       bool       `json:"enrolled"`
	EnrolledAt     *time.Time `json:"enrolledAt,omitempty"`
	IsTarget       bool       `json:"isTarget"`
	AssignedTo     *uuid.UUID `json:"assignedTo,omitempty"`
	LostReason     *string    `json:"lostReason,omitempty"`
	LostAt         *time.Time `json:"lostAt,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type ListLeadsResponse struct {
	Items    []LeadResponse `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

type CallOutcomeResponse struct {
	Lead        LeadResponse `json:"lead"`
	Attempt     int          `json:"attempt"`
	BecamePerso bool         `json:"becamePerso"`
}

type StatsResponse struct {
	Counts       map[string]int `json:"counts"`
	Total        int            `json:"total"`
	ExpiringSoon int            `json:"expiringSoon"`
}

type DuplicateMemberResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Enrolled  bool      `json:"enrolled"`
	CreatedAt time.Time `json:"createdAt"`
}

type DuplicateGroupResponse struct {
	NormalizedName     string                    `json:"normalizedName"`
	CourseKey          string                    `json:"courseKey"`
	Severity           string                    `json:"severity"`
	RecommendedPrimary uuid.UUID                 `json:"recommendedPrimary"`
	Members            []DuplicateMemberResponse `json:"members"`
}

type ActivityResponse struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"leadId"`
	ActorID   *uuid.UUID     `json:"actorId,omitempty"`
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
