package slug

import (
	"context"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input    string
		expected string
	}{
		{"Hello, World!", "hello-world"},
		{"Hello World", "hello-world"},
		{"  Leading and Trailing  ", "leading-and-trailing"},
		{"Multiple---Hyphens   and	spaces", "multiple-hyphens-and-spaces"},
		{"UPPER case Title", "upper-case-title"},
		{"Symbols & Punctuation: 100% tested?", "symbols-punctuation-100-tested"},
		{"already-a-slug", "already-a-slug"},
		{"-hyphen wrapped-", "hyphen-wrapped"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tc := range cases {
		if got := Normalize(tc.input); got != tc.expected {
			t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestNormalizeTruncatesToLimit(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 50)
	got := Normalize(long)

	if len([]rune(got)) > maxLength {
		t.Fatalf("expected normalized slug to be at most %d chars, got %d", maxLength, len([]rune(got)))
	}

	if strings.HasSuffix(got, "-") {
		t.Fatalf("expected no trailing hyphen after truncation, got %q", got)
	}
}

func existsIn(taken ...string) ExistsFunc {
	set := make(map[string]struct{}, len(taken))
	for _, slug := range taken {
		set[slug] = struct{}{}
	}
	return func(ctx context.Context, slug string, excludeID uint) (bool, error) {
		_, ok := set[slug]
		return ok, nil
	}
}

func TestAssignReturnsBaseWhenFree(t *testing.T) {
	t.Parallel()

	assigner, err := NewAssigner(existsIn())
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}

	got, err := assigner.Assign(context.Background(), "Hello, World!", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if got != "hello-world" {
		t.Fatalf("expected slug 'hello-world', got %q", got)
	}
}

func TestAssignAppendsFirstFreeSuffix(t *testing.T) {
	t.Parallel()

	assigner, err := NewAssigner(existsIn("hello-world"))
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}

	got, err := assigner.Assign(context.Background(), "Hello, World!", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if got != "hello-world-1" {
		t.Fatalf("expected slug 'hello-world-1', got %q", got)
	}
}

func TestAssignSkipsTakenSuffixes(t *testing.T) {
	t.Parallel()

	assigner, err := NewAssigner(existsIn("science", "science-1", "science-2"))
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}

	got, err := assigner.Assign(context.Background(), "Science", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if got != "science-3" {
		t.Fatalf("expected slug 'science-3', got %q", got)
	}
}

func TestAssignIsDeterministicAgainstSameSet(t *testing.T) {
	t.Parallel()

	assigner, err := NewAssigner(existsIn("science", "science-1"))
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}

	first, err := assigner.Assign(context.Background(), "Science", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	second, err := assigner.Assign(context.Background(), "Science", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if first != second {
		t.Fatalf("expected deterministic result, got %q then %q", first, second)
	}
}

func TestAssignHonoursExcludeID(t *testing.T) {
	t.Parallel()

	exists := func(ctx context.Context, slug string, excludeID uint) (bool, error) {
		// Row 7 owns "science"; every other row sees it as taken.
		if slug == "science" {
			return excludeID != 7, nil
		}
		return false, nil
	}

	assigner, err := NewAssigner(exists)
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}

	got, err := assigner.Assign(context.Background(), "Science", 7)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if got != "science" {
		t.Fatalf("expected updating row to keep its own slug, got %q", got)
	}
}

func TestAssignFallsBackToTokenOnEmptyBase(t *testing.T) {
	t.Parallel()

	assigner, err := NewAssigner(existsIn())
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}
	assigner.token = func() string { return "abcd1234" }

	got, err := assigner.Assign(context.Background(), "!!!", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if got != "abcd1234" {
		t.Fatalf("expected token fallback slug, got %q", got)
	}
}

func TestAssignRandomDisambiguationPastCap(t *testing.T) {
	t.Parallel()

	exists := func(ctx context.Context, slug string, excludeID uint) (bool, error) {
		// Base and every numeric suffix are taken; only the token form is free.
		return !strings.HasSuffix(slug, "-ffff0000"), nil
	}

	assigner, err := NewAssigner(exists)
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}
	assigner.token = func() string { return "ffff0000" }

	got, err := assigner.Assign(context.Background(), "Science", 0)
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if got != "science-ffff0000" {
		t.Fatalf("expected random disambiguation, got %q", got)
	}
}

func TestAssignErrorsWhenNamespaceExhausted(t *testing.T) {
	t.Parallel()

	everythingTaken := func(ctx context.Context, slug string, excludeID uint) (bool, error) {
		return true, nil
	}

	assigner, err := NewAssigner(everythingTaken)
	if err != nil {
		t.Fatalf("NewAssigner returned error: %v", err)
	}

	if _, err := assigner.Assign(context.Background(), "Science", 0); err == nil {
		t.Fatalf("expected error when every candidate is taken")
	}
}

func TestNewAssignerRequiresExistenceCheck(t *testing.T) {
	t.Parallel()

	if _, err := NewAssigner(nil); err == nil {
		t.Fatalf("expected error when existence check is nil")
	}
}
