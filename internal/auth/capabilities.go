package auth

import "context"

// Capabilities answers permission questions from the principal carried by a
// request context.
type Capabilities struct {
	overrideTier int
	defaultTier  int
}

// NewCapabilities returns Capabilities granting cover overrides to callers
// at or above overrideTier. Contexts without a principal are treated as
// anonymous callers at defaultTier.
func NewCapabilities(overrideTier, defaultTier int) *Capabilities {
	return &Capabilities{overrideTier: overrideTier, defaultTier: defaultTier}
}

func (c *Capabilities) tier(ctx context.Context) int {
	if p, ok := PrincipalFrom(ctx); ok {
		return p.Tier
	}
	return c.defaultTier
}

// CanOverrideCovers reports whether the caller may replace cover images.
func (c *Capabilities) CanOverrideCovers(ctx context.Context) bool {
	return c.tier(ctx) >= c.overrideTier
}
