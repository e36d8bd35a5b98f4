package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gofiber/fiber/v3"

	"sowmatch/internal/errs"
	"sowmatch/internal/models"
)

// Claims are the verified token fields the service relies on.
type Claims struct {
	Subject       string
	Email         string
	Organizations []string // organization slugs
}

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// OrgResolver resolves organization slugs.
type OrgResolver interface {
	Organization(ctx context.Context, slug string) (*models.Organization, error)
}

// OIDCVerifier verifies ID tokens issued by an OIDC provider.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	orgClaim string
}

// NewOIDCVerifier discovers the issuer and builds a verifier for clientID.
// orgClaim names the claim carrying organization slugs.
func NewOIDCVerifier(ctx context.Context, issuer, clientID, orgClaim string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, err
	}
	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
		orgClaim: orgClaim,
	}, nil
}

// Verify checks the token signature, audience and expiry and extracts claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	claimsMap := make(map[string]any)
	if err := idToken.Claims(&claimsMap); err != nil {
		return nil, err
	}
	email, _ := claimsMap["email"].(string)
	return &Claims{
		Subject:       idToken.Subject,
		Email:         email,
		Organizations: orgSlugs(claimsMap[v.orgClaim]),
	}, nil
}

// orgSlugs accepts a single slug or an array of slugs.
func orgSlugs(value any) []string {
	var out []string
	switch v := value.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

// AuthMiddleware authenticates API callers and scopes them to organizations.
type AuthMiddleware struct {
	verifier TokenVerifier
	orgs     OrgResolver
	logger   *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance. A nil verifier
// disables authentication and grants every organization (development only).
func NewAuthMiddleware(verifier TokenVerifier, orgs OrgResolver, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{verifier: verifier, orgs: orgs, logger: logger}
}

// RequireAuth verifies the bearer token and stores the principal in Locals.
func (m *AuthMiddleware) RequireAuth(c fiber.Ctx) error {
	if m.verifier == nil {
		c.Locals("principal", &models.Principal{Subject: "dev", AllOrganizations: true})
		return c.Next()
	}

	header := c.Get(fiber.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return deny(c, fiber.StatusUnauthorized, "missing bearer token")
	}

	claims, err := m.verifier.Verify(c.Context(), strings.TrimSpace(raw))
	if err != nil {
		m.logger.Debug("bearer token rejected", "error", err)
		return deny(c, fiber.StatusUnauthorized, "invalid bearer token")
	}

	p := &models.Principal{Subject: claims.Subject, Email: claims.Email}
	for _, slug := range claims.Organizations {
		org, err := m.orgs.Organization(c.Context(), slug)
		if err != nil {
			if !errors.Is(err, errs.ErrOrgNotFound) {
				return deny(c, fiber.StatusInternalServerError, "failed to resolve organization")
			}
			continue
		}
		p.Organizations = append(p.Organizations, org.ID)
	}

	c.Locals("principal", p)
	return c.Next()
}

// RequireOrgAccess resolves the :org route parameter and checks the
// principal may act on it. Must run after RequireAuth.
func (m *AuthMiddleware) RequireOrgAccess(c fiber.Ctx) error {
	p, ok := c.Locals("principal").(*models.Principal)
	if !ok {
		return deny(c, fiber.StatusUnauthorized, "unauthorized")
	}

	org, err := m.orgs.Organization(c.Context(), c.Params("org"))
	if err != nil {
		if errors.Is(err, errs.ErrOrgNotFound) {
			return deny(c, fiber.StatusNotFound, "organization not found")
		}
		return deny(c, fiber.StatusInternalServerError, "failed to resolve organization")
	}
	if !p.CanAccess(org.ID) {
		// Same answer as a missing organization so slugs cannot be probed.
		return deny(c, fiber.StatusNotFound, "organization not found")
	}

	c.Locals("organization", org)
	return c.Next()
}

// Organization returns the organization resolved by RequireOrgAccess.
func Organization(c fiber.Ctx) (*models.Organization, bool) {
	org, ok := c.Locals("organization").(*models.Organization)
	return org, ok
}

func deny(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "error",
		"error":  message,
	})
}
