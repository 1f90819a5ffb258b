package types

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// GivingKind classifies a donation.
type GivingKind string

// Donation kinds. Zakat is obligatory almsgiving; sadaqah is voluntary giving.
const (
	KindZakat   GivingKind = "zakat"
	KindSadaqah GivingKind = "sadaqah"
	KindOther   GivingKind = "other"
)

// ErrInvalidGivingKind is returned when a donation names an unknown kind.
var ErrInvalidGivingKind = errors.New("kind must be one of zakat, sadaqah, other")

// IsValid reports whether k is one of the known giving kinds.
func (k GivingKind) IsValid() bool {
	switch k {
	case KindZakat, KindSadaqah, KindOther:
		return true
	}
	return false
}

// Donation is one giving-history entry. EIN is empty for gifts outside the
// catalog; BucketID ties the gift to a giving bucket when the user assigned
// one. Amounts are integer cents.
type Donation struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"userId"`
	EIN         string     `json:"ein,omitempty"`
	BucketID    *uuid.UUID `json:"bucketId,omitempty"`
	AmountCents int64      `json:"amountCents"`
	Currency    string     `json:"currency"`
	Kind        GivingKind `json:"kind"`
	Note        string     `json:"note,omitempty"`
	DonatedOn   Date       `json:"donatedOn"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateDonationRequest is the POST /api/me/donations body.
type CreateDonationRequest struct {
	EIN         string     `json:"ein,omitempty"`
	BucketID    *uuid.UUID `json:"bucketId,omitempty"`
	AmountCents int64      `json:"amountCents" validate:"required,gt=0"`
	Currency    string     `json:"currency,omitempty" validate:"omitempty,len=3"`
	Kind        GivingKind `json:"kind,omitempty"`
	Note        string     `json:"note,omitempty" validate:"max=500"`
	DonatedOn   Date       `json:"donatedOn"`
}

// Validate validates the CreateDonationRequest using the validator.
func (r *CreateDonationRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Kind != "" && !r.Kind.IsValid() {
		return ErrInvalidGivingKind
	}
	return nil
}

// UpdateDonationRequest is the PUT /api/me/donations/{id} body. The whole
// record is replaced; mutations return the canonical post-write state so
// optimistic clients can reconcile or roll back.
type UpdateDonationRequest = CreateDonationRequest

// DonationSummary aggregates a user's giving for one calendar year.
type DonationSummary struct {
	Year        int                  `json:"year"`
	TotalCents  int64                `json:"totalCents"`
	Currency    string               `json:"currency"`
	CountByKind map[GivingKind]int   `json:"countByKind"`
	TotalByKind map[GivingKind]int64 `json:"totalByKind"`
	TotalByEIN  map[string]int64     `json:"totalByEin"`
}

// SummarizeDonations aggregates the donations made in one calendar year.
// Gifts dated in other years are ignored.
func SummarizeDonations(donations []Donation, year int, currency string) DonationSummary {
	s := DonationSummary{
		Year:        year,
		Currency:    currency,
		CountByKind: make(map[GivingKind]int),
		TotalByKind: make(map[GivingKind]int64),
		TotalByEIN:  make(map[string]int64),
	}
	for _, d := range donations {
		if d.DonatedOn.Year() != year {
			continue
		}
		s.TotalCents += d.AmountCents
		s.CountByKind[d.Kind]++
		s.TotalByKind[d.Kind] += d.AmountCents
		if d.EIN != "" {
			s.TotalByEIN[d.EIN] += d.AmountCents
		}
	}
	return s
}

// Bookmark marks a charity saved by a user.
type Bookmark struct {
	UserID    uuid.UUID `json:"userId"`
	EIN       string    `json:"ein"`
	CreatedAt time.Time `json:"createdAt"`
}

// CharityTarget is a user's dollar target for one charity, optionally tied to
// a giving bucket. The (UserID, EIN) pair is unique.
type CharityTarget struct {
	UserID      uuid.UUID  `json:"userId"`
	EIN         string     `json:"ein"`
	BucketID    *uuid.UUID `json:"bucketId,omitempty"`
	AmountCents int64      `json:"amountCents"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SetTargetRequest is the PUT /api/me/targets/{ein} body.
type SetTargetRequest struct {
	AmountCents int64      `json:"amountCents" validate:"gte=0"`
	BucketID    *uuid.UUID `json:"bucketId,omitempty"`
}

// Validate validates the SetTargetRequest using the validator.
func (r *SetTargetRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// UserProfile carries donor-facing profile settings, distinct from the auth
// user record.
type UserProfile struct {
	UserID       uuid.UUID `json:"userId"`
	DisplayName  string    `json:"displayName,omitempty"`
	Currency     string    `json:"currency"`
	ZakatDueDate *Date     `json:"zakatDueDate,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UpdateProfileRequest is the PUT /api/me/profile body.
type UpdateProfileRequest struct {
	DisplayName  string `json:"displayName,omitempty" validate:"max=100"`
	Currency     string `json:"currency,omitempty" validate:"omitempty,len=3"`
	ZakatDueDate *Date  `json:"zakatDueDate,omitempty"`
}

// Validate validates the UpdateProfileRequest using the validator.
func (r *UpdateProfileRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
