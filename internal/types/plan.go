package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Plan is a user's giving allocation for one year: a target amount split
// across ordered buckets. Derived bucket fields (amounts, unallocated
// remainders) are recomputed by the allocation engine on every edit.
type Plan struct {
	Year        int       `json:"year"`
	TargetCents int64     `json:"targetCents"`
	Currency    string    `json:"currency"`
	Buckets     []Bucket  `json:"buckets"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Bucket is one allocation category inside a plan. Percent is the share of
// the plan target at two-decimal precision; AmountCents is the derived (or
// directly edited) dollar amount in cents. Position orders buckets; the
// highest position is the one that absorbs rounding corrections.
type Bucket struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Causes         []string           `json:"causes,omitempty"`
	Percent        float64            `json:"percent"`
	AmountCents    int64              `json:"amountCents"`
	Position       int                `json:"position"`
	CharityTargets []CharitySubTarget `json:"charityTargets,omitempty"`

	// Derived, read-only.
	UnallocatedCents int64 `json:"unallocatedCents"`
	OverAllocated    bool  `json:"overAllocated,omitempty"`
}

// CharitySubTarget is a per-charity dollar target inside a bucket.
type CharitySubTarget struct {
	EIN         string `json:"ein"`
	AmountCents int64  `json:"amountCents"`
}

// CreateBucketRequest is the POST /api/me/plan/buckets body.
type CreateBucketRequest struct {
	Name   string   `json:"name" validate:"required,max=100"`
	Causes []string `json:"causes,omitempty" validate:"max=10,dive,max=50"`
}

// PatchBucketRequest is the PATCH /api/me/plan/buckets/{id} body. At most one
// of Percent and AmountCents may be set; the one present drives the
// reconcile. Name and cause edits never reconcile.
type PatchBucketRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,max=100"`
	Causes      *[]string `json:"causes,omitempty" validate:"omitempty,max=10,dive,max=50"`
	Percent     *float64  `json:"percent,omitempty" validate:"omitempty,gte=0,lte=100"`
	AmountCents *int64    `json:"amountCents,omitempty" validate:"omitempty,gte=0"`
}

// SavePlanRequest is the PUT /api/me/plan body: the client's full plan state.
// The server normalizes it before persisting and echoes the canonical result.
type SavePlanRequest struct {
	Year        int      `json:"year" validate:"required,gte=2000,lte=2200"`
	TargetCents int64    `json:"targetCents" validate:"gte=0"`
	Currency    string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	Buckets     []Bucket `json:"buckets" validate:"max=50"`
}

// Validate validates the CreateBucketRequest using the validator.
func (r *CreateBucketRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the PatchBucketRequest using the validator.
func (r *PatchBucketRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SavePlanRequest using the validator.
func (r *SavePlanRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
