// Package slug derives unique URL slugs for vendor storefronts.
package slug

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
	"github.com/angelmondragon/koumale-backend/pkg/textmatch"
)

const (
	// Fallback is used when a name has no slug-safe characters.
	Fallback = "vendor"
	// MaxAttempts bounds how many suffixed candidates are checked.
	MaxAttempts = 5
	suffixRange = 10000
)

var (
	disallowed = regexp.MustCompile(`[^a-z0-9_\s-]`)
	separators = regexp.MustCompile(`[\s_-]+`)
)

// Slugify converts a business name into its base slug.
func Slugify(name string) string {
	s := strings.TrimSpace(textmatch.Fold(name))
	s = disallowed.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Checker reports whether a slug is already taken.
type Checker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, slug string) (bool, error)

func (f CheckerFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

// Allocator hands out slugs that are free at check time. The unique index on
// vendors.slug stays the final arbiter.
type Allocator struct {
	checker Checker
	suffix  func() int
}

// NewAllocator builds an allocator backed by the given existence check.
func NewAllocator(checker Checker) (*Allocator, error) {
	if checker == nil {
		return nil, fmt.Errorf("slug checker required")
	}
	return &Allocator{
		checker: checker,
		suffix:  func() int { return rand.IntN(suffixRange) },
	}, nil
}

// Allocate returns the base slug of name, or base-<n> with n in [0, 10000)
// when the base is taken.
func (a *Allocator) Allocate(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	taken, err := a.checker.SlugExists(ctx, base)
	if err != nil {
		return "", fmt.Errorf("check slug %q: %w", base, err)
	}
	if !taken {
		return base, nil
	}

	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate := fmt.Sprintf("%s-%d", base, a.suffix())
		taken, err := a.checker.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a unique vendor slug").
		WithDetails(map[string]any{"slug": base})
}
