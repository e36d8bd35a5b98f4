package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sowmatch/internal/models"
)

const analysisColumns = `id, organization_id, filename, work_type_filter, sow_text, corpus_size, results, created_at`

func scanAnalysis(row pgx.Row) (*models.SOWAnalysis, error) {
	var (
		a       models.SOWAnalysis
		results []byte
	)
	err := row.Scan(&a.ID, &a.OrganizationID, &a.Filename, &a.WorkTypeFilter, &a.SOWText, &a.CorpusSize, &results, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(results, &a.Results); err != nil {
		return nil, fmt.Errorf("failed to decode analysis results: %w", err)
	}
	if a.Results.Matches == nil {
		a.Results.Matches = []models.Match{}
	}
	return &a, nil
}

// CreateAnalysis inserts an analysis and sets its ID and CreatedAt. The
// results are serialized, so later changes to a do not reach the stored row.
func (d *DB) CreateAnalysis(ctx context.Context, a *models.SOWAnalysis) error {
	results, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("failed to encode analysis results: %w", err)
	}

	query := `
		INSERT INTO sow_analyses (organization_id, filename, work_type_filter, sow_text, corpus_size, results)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING id, created_at
	`
	err = d.Pool.QueryRow(ctx, query,
		a.OrganizationID, a.Filename, a.WorkTypeFilter, a.SOWText, a.CorpusSize, results,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetAnalysis retrieves an analysis scoped to an organization. An analysis
// owned by another organization is reported as not found.
func (d *DB) GetAnalysis(ctx context.Context, orgID, id uuid.UUID) (*models.SOWAnalysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM sow_analyses WHERE id = $1 AND organization_id = $2`
	return scanAnalysis(d.Pool.QueryRow(ctx, query, id, orgID))
}

// ListAnalyses returns an organization's analyses, most recent first.
func (d *DB) ListAnalyses(ctx context.Context, orgID uuid.UUID) ([]models.SOWAnalysis, error) {
	query := `
		SELECT ` + analysisColumns + `
		FROM sow_analyses
		WHERE organization_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := d.Pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	analyses := []models.SOWAnalysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}

	return analyses, rows.Err()
}

// SetDeliverable replaces results.deliverables[type] in one statement.
func (d *DB) SetDeliverable(ctx context.Context, orgID, id uuid.UUID, del models.Deliverable) error {
	content, err := json.Marshal(del)
	if err != nil {
		return fmt.Errorf("failed to encode deliverable: %w", err)
	}

	query := `
		UPDATE sow_analyses
		SET results = jsonb_set(
			results,
			'{deliverables}',
			coalesce(results->'deliverables', '{}'::jsonb) || jsonb_build_object($3::text, $4::jsonb)
		)
		WHERE id = $1 AND organization_id = $2
	`
	tag, err := d.Pool.Exec(ctx, query, id, orgID, string(del.Type), content)
	if err != nil {
		return fmt.Errorf("failed to store deliverable: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

// CountAnalysesByOrganization returns the number of analyses per organization slug.
func (d *DB) CountAnalysesByOrganization(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT o.slug, COUNT(a.id)
		FROM organizations o
		LEFT JOIN sow_analyses a ON a.organization_id = o.id
		GROUP BY o.slug
	`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			slug  string
			count int64
		)
		if err := rows.Scan(&slug, &count); err != nil {
			return nil, err
		}
		counts[slug] = count
	}

	return counts, rows.Err()
}
