package models

import "github.com/google/uuid"

// Principal is the authenticated caller injected by the auth middleware.
type Principal struct {
	Subject       string      `json:"sub"`
	Email         string      `json:"email,omitempty"`
	Organizations []uuid.UUID `json:"organizations"`

	// AllOrganizations is set when authentication is disabled (development).
	AllOrganizations bool `json:"-"`
}

// CanAccess returns true if the principal may act on the organization.
func (p *Principal) CanAccess(orgID uuid.UUID) bool {
	if p == nil {
		return false
	}
	if p.AllOrganizations {
		return true
	}
	for _, id := range p.Organizations {
		if id == orgID {
			return true
		}
	}
	return false
}
