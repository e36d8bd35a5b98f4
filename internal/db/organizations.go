package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sowmatch/internal/models"
)

const orgColumns = `id, name, slug, profile_text, created_at, updated_at`

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var org models.Organization
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.ProfileText, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrgNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// UpsertOrganization creates an organization or updates the name and profile
// of the one with the same slug.
func (d *DB) UpsertOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	query := `
		INSERT INTO organizations (name, slug, profile_text)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, profile_text = EXCLUDED.profile_text, updated_at = NOW()
		RETURNING ` + orgColumns
	return scanOrganization(d.Pool.QueryRow(ctx, query, org.Name, org.Slug, org.ProfileText))
}

// GetOrganizationByID retrieves an organization by ID.
func (d *DB) GetOrganizationByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = $1`
	return scanOrganization(d.Pool.QueryRow(ctx, query, id))
}

// GetOrganizationBySlug retrieves an organization by its slug.
func (d *DB) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slug = $1`
	return scanOrganization(d.Pool.QueryRow(ctx, query, slug))
}
