// internal/tenant/slug.go
//
// Slug derivation for tenants.
//
// • MakeSlug(name) ─ converts arbitrary text into a URL-safe slug restricted
//   to ASCII a-z, 0-9 and “-”.
// • UniqueSlug(ctx, db, base) ─ resolves collisions with a numeric suffix
//   (acme, acme-2, acme-3, …) against the tenant table.
//
// Rules (MakeSlug)
// ----------------
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one “-”.  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Collapse consecutive “-” to a single “-”.
// 4. Trim leading / trailing “-”.
// 5. If the result is empty, return "site".
//
// The slug feeds the tenant's document-root path, so it must stay stable
// once issued; only creation consults these helpers.

package tenant

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// MakeSlug converts a display name → lower-kebab ASCII.
func MakeSlug(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastWasDash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		default:
			// any non-ASCII or punctuation becomes a single dash
			if !lastWasDash {
				b.WriteRune('-')
				lastWasDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "site"
	}
	if len(slug) > 63 {
		slug = slug[:63]
		slug = strings.TrimRightFunc(slug, func(r rune) bool { return r == '-' })
	}
	return slug
}

// UniqueSlug returns base unchanged when free, otherwise the first
// numeric-suffixed variant that is.  The suffix starts at 2 so the second
// "acme" becomes "acme-2", matching what customers expect to see.
func UniqueSlug(ctx context.Context, db *sqlx.DB, base string) (string, error) {
	taken, err := SlugExists(ctx, db, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		taken, err := SlugExists(ctx, db, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}
