package slug

import (
	"context"
	"errors"
	"regexp"
	"testing"

	pkgerrors "github.com/angelmondragon/koumale-backend/pkg/errors"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Café Déluxe!!":         "cafe-deluxe",
		"  Acme  ":              "acme",
		"Mode_Africaine -- Abj": "mode-africaine-abj",
		"Chez Aïcha & Co.":      "chez-aicha-co",
		"---":                   Fallback,
		"!!!":                   Fallback,
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAllocateReturnsBaseWhenFree(t *testing.T) {
	alloc, err := NewAllocator(CheckerFunc(func(ctx context.Context, slug string) (bool, error) {
		return false, nil
	}))
	if err != nil {
		t.Fatalf("new allocator: %v", err)
	}
	got, err := alloc.Allocate(context.Background(), "Café Déluxe!!")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "cafe-deluxe" {
		t.Fatalf("expected cafe-deluxe, got %q", got)
	}
}

func TestAllocateAppendsSuffixOnCollision(t *testing.T) {
	taken := map[string]bool{"cafe-deluxe": true}
	alloc, _ := NewAllocator(CheckerFunc(func(ctx context.Context, slug string) (bool, error) {
		return taken[slug], nil
	}))

	got, err := alloc.Allocate(context.Background(), "Café Déluxe")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if !regexp.MustCompile(`^cafe-deluxe-\d{1,4}$`).MatchString(got) {
		t.Fatalf("expected suffixed slug, got %q", got)
	}
}

func TestAllocateRetriesSuffixCollisions(t *testing.T) {
	taken := map[string]bool{"acme": true, "acme-1": true, "acme-2": true}
	alloc, _ := NewAllocator(CheckerFunc(func(ctx context.Context, slug string) (bool, error) {
		return taken[slug], nil
	}))
	seq := []int{1, 2, 3}
	alloc.suffix = func() int {
		n := seq[0]
		seq = seq[1:]
		return n
	}

	got, err := alloc.Allocate(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if got != "acme-3" {
		t.Fatalf("expected acme-3, got %q", got)
	}
}

func TestAllocateGivesUpWithConflict(t *testing.T) {
	alloc, _ := NewAllocator(CheckerFunc(func(ctx context.Context, slug string) (bool, error) {
		return true, nil
	}))
	_, err := alloc.Allocate(context.Background(), "Acme")
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAllocatePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("db down")
	alloc, _ := NewAllocator(CheckerFunc(func(ctx context.Context, slug string) (bool, error) {
		return false, boom
	}))
	if _, err := alloc.Allocate(context.Background(), "Acme"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}
