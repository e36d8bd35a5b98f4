package db

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sowmatch/internal/models"
	"sowmatch/migrations"
)

// DB wraps a pgxpool connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new database connection pool.
func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// RunMigrations runs all embedded SQL migrations.
func (d *DB) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Ping checks the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() {
	d.Pool.Close()
}

// DevSeeder is the store surface needed to seed development data. Both the
// Postgres and the in-memory store implement it.
type DevSeeder interface {
	UpsertOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error)
	ListLessons(ctx context.Context, orgID uuid.UUID, filter models.LessonFilter) ([]models.Lesson, error)
	CreateLesson(ctx context.Context, l *models.Lesson) error
}

// SeedDevData creates a development organization with a small lesson corpus.
// Skips seeding when the organization already has lessons.
func SeedDevData(ctx context.Context, d DevSeeder) (*models.Organization, error) {
	org, err := d.UpsertOrganization(ctx, &models.Organization{
		Name:        "Dev Pipeline Constructors",
		Slug:        "dev",
		ProfileText: "Established QA/QC manual, welding procedure qualification program, NDE Level III oversight, and a field audit schedule.",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to seed organization: %w", err)
	}

	existing, err := d.ListLessons(ctx, org.ID, models.LessonFilter{})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return org, nil
	}

	lessons := []models.Lesson{
		{Title: "Inadvertent return during HDD pilot hole", Description: "Drilling fluid surfaced in the river during the pilot bore.", RootCause: "Annular pressure was not monitored through a gravel layer.", Recommendation: "Require continuous annular pressure monitoring and a frac-out contingency plan.", Discipline: "Construction", WorkType: "HDD/Bore", Phase: "Construction", Severity: models.SeverityHigh, Environment: "River crossing"},
		{Title: "Cold weather preheat failures", Description: "Repair rate doubled when ambient temperatures fell below -20C.", RootCause: "Preheat was measured before the wind shield was installed.", Recommendation: "Verify preheat inside heated enclosures at the weld, not at the torch.", Discipline: "Welding", WorkType: "Mainline", Phase: "Construction", Severity: models.SeverityCritical, Environment: "Arctic"},
		{Title: "Coating holidays at field joints", Description: "Jeep testing found holidays at 8% of field joints.", RootCause: "Surface profile was not checked after abrasive blasting.", Recommendation: "Add a surface profile hold point before coating application.", Discipline: "Coating", WorkType: "Mainline", Phase: "Construction", Severity: models.SeverityMedium},
		{Title: "Late hydrotest water discharge permit", Description: "Commissioning slipped two weeks waiting on a discharge permit.", RootCause: "Permit application was not started until mechanical completion.", Recommendation: "File discharge permits during detailed design.", Discipline: "Environmental", WorkType: "Commissioning", Phase: "Commissioning", Severity: models.SeverityLow},
	}
	for i := range lessons {
		lessons[i].OrganizationID = org.ID
		if err := d.CreateLesson(ctx, &lessons[i]); err != nil {
			return nil, fmt.Errorf("failed to seed lesson %q: %w", lessons[i].Title, err)
		}
	}

	return org, nil
}
