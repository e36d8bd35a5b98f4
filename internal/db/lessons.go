package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sowmatch/internal/models"
)

// ListLessons returns an organization's lessons ordered by id. The read runs
// in a single statement, so the result is a consistent snapshot.
func (d *DB) ListLessons(ctx context.Context, orgID uuid.UUID, filter models.LessonFilter) ([]models.Lesson, error) {
	query := `
		SELECT id, organization_id, title, description, root_cause, recommendation, impact,
		       discipline, work_type, phase, severity, environment, project, location, keywords,
		       created_at, updated_at
		FROM lessons
		WHERE organization_id = $1
		  AND ($2 = '' OR lower(regexp_replace(work_type, '\s', '', 'g')) = $2)
		ORDER BY id ASC
	`

	rows, err := d.Pool.Query(ctx, query, orgID, models.NormalizeWorkType(filter.WorkType))
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		var l models.Lesson
		if err := rows.Scan(
			&l.ID, &l.OrganizationID, &l.Title, &l.Description, &l.RootCause, &l.Recommendation, &l.Impact,
			&l.Discipline, &l.WorkType, &l.Phase, &l.Severity, &l.Environment, &l.Project, &l.Location, &l.Keywords,
			&l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, l)
	}

	return lessons, rows.Err()
}

// CreateLesson inserts a lesson. The engine never writes lessons; this
// exists for seeding and tests.
func (d *DB) CreateLesson(ctx context.Context, l *models.Lesson) error {
	severity := l.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	query := `
		INSERT INTO lessons (organization_id, title, description, root_cause, recommendation, impact,
		                     discipline, work_type, phase, severity, environment, project, location, keywords)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, severity, created_at, updated_at
	`
	return d.Pool.QueryRow(ctx, query,
		l.OrganizationID, l.Title, l.Description, l.RootCause, l.Recommendation, l.Impact,
		l.Discipline, l.WorkType, l.Phase, severity, l.Environment, l.Project, l.Location, l.Keywords,
	).Scan(&l.ID, &l.Severity, &l.CreatedAt, &l.UpdatedAt)
}
