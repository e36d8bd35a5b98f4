package middleware

import (
	"context"
	"errors"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
)

func TestOrgSlugs(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []string
	}{
		{name: "single string", value: "northline", expected: []string{"northline"}},
		{name: "array", value: []any{"northline", "dev"}, expected: []string{"northline", "dev"}},
		{name: "array skips non-strings and blanks", value: []any{"a", 3, " ", "b"}, expected: []string{"a", "b"}},
		{name: "trimmed", value: "  dev ", expected: []string{"dev"}},
		{name: "blank string", value: "  ", expected: nil},
		{name: "missing claim", value: nil, expected: nil},
		{name: "wrong type", value: 42.0, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := orgSlugs(tt.value)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("orgSlugs(%v) = %v, want %v", tt.value, got, tt.expected)
			}
		})
	}
}

type fakeVerifier map[string]*Claims

func (f fakeVerifier) Verify(_ context.Context, raw string) (*Claims, error) {
	if c, ok := f[raw]; ok {
		return c, nil
	}
	return nil, errors.New("signature invalid")
}

type fakeOrgs map[string]*models.Organization

func (f fakeOrgs) Organization(_ context.Context, slug string) (*models.Organization, error) {
	if org, ok := f[slug]; ok {
		return org, nil
	}
	return nil, errs.E(errs.OrganizationNotFound, "test", "organization %q not found", slug)
}

func newTestApp(verifier TokenVerifier) *fiber.App {
	orgs := fakeOrgs{
		"northline": {ID: uuid.New(), Slug: "northline"},
		"other":     {ID: uuid.New(), Slug: "other"},
	}
	m := NewAuthMiddleware(verifier, orgs, nil)

	app := fiber.New()
	app.Get("/orgs/:org", m.RequireAuth, m.RequireOrgAccess, func(c fiber.Ctx) error {
		org, ok := Organization(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendString(org.Slug)
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	verifier := fakeVerifier{
		"good":  {Subject: "u1", Organizations: []string{"northline", "retired"}},
		"empty": {Subject: "u2"},
	}

	tests := []struct {
		name     string
		verifier TokenVerifier
		path     string
		header   string
		expected int
	}{
		{name: "member", verifier: verifier, path: "/orgs/northline", header: "Bearer good", expected: fiber.StatusOK},
		{name: "non-member", verifier: verifier, path: "/orgs/other", header: "Bearer good", expected: fiber.StatusNotFound},
		{name: "no organizations", verifier: verifier, path: "/orgs/northline", header: "Bearer empty", expected: fiber.StatusNotFound},
		{name: "unknown organization", verifier: verifier, path: "/orgs/nowhere", header: "Bearer good", expected: fiber.StatusNotFound},
		{name: "missing header", verifier: verifier, path: "/orgs/northline", expected: fiber.StatusUnauthorized},
		{name: "wrong scheme", verifier: verifier, path: "/orgs/northline", header: "Basic good", expected: fiber.StatusUnauthorized},
		{name: "bad token", verifier: verifier, path: "/orgs/northline", header: "Bearer forged", expected: fiber.StatusUnauthorized},
		{name: "dev mode any org", verifier: nil, path: "/orgs/other", expected: fiber.StatusOK},
		{name: "dev mode unknown org", verifier: nil, path: "/orgs/nowhere", expected: fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.verifier)
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.expected {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expected)
			}
		})
	}
}
