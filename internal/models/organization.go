package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant that owns a lesson corpus and its analyses.
type Organization struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	ProfileText string    `json:"profile_text"` // programs and procedures already in place
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrganizationProfile is the oracle-facing view of an organization.
type OrganizationProfile struct {
	Name        string `json:"name"`
	ProfileText string `json:"profile_text"`
}

// Profile returns the oracle context for the organization.
func (o *Organization) Profile() OrganizationProfile {
	if o == nil {
		return OrganizationProfile{}
	}
	return OrganizationProfile{Name: o.Name, ProfileText: o.ProfileText}
}
