package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

const (
	// maxLength bounds the base slug; numeric suffixes may extend past it.
	maxLength = 100

	// maxSuffixAttempts caps the sequential suffix search. Past the cap the
	// assigner disambiguates with a random token instead of scanning further.
	maxSuffixAttempts = 1000
)

var (
	invalidChars = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)
	separators   = regexp.MustCompile(`[\s-]+`)
)

// ExistsFunc reports whether a slug is already taken within an entity type's
// namespace. A non-zero excludeID skips the row being updated.
type ExistsFunc func(ctx context.Context, slug string, excludeID uint) (bool, error)

// Assigner derives unique, URL-safe slugs against a single entity namespace.
// Articles and categories each get their own Assigner.
type Assigner struct {
	exists ExistsFunc
	token  func() string
}

// NewAssigner constructs an assigner over the given existence check.
func NewAssigner(exists ExistsFunc) (*Assigner, error) {
	if exists == nil {
		return nil, eris.New("slug existence check is required")
	}

	return &Assigner{
		exists: exists,
		token:  func() string { return uuid.NewString()[:8] },
	}, nil
}

// Normalize derives the base slug from free-form text: lowercase, strip
// everything that is not alphanumeric, whitespace, or hyphen, collapse
// whitespace/hyphen runs into single hyphens, trim, truncate to 100 chars.
// Input that is entirely symbols normalizes to the empty string.
func Normalize(text string) string {
	s := strings.ToLower(text)
	s = invalidChars.ReplaceAllString(s, "")
	s = separators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if runes := []rune(s); len(runes) > maxLength {
		s = strings.TrimRight(string(runes[:maxLength]), "-")
	}

	return s
}

// Assign returns a slug derived from text that is not in use within the
// namespace, excluding the row being updated when excludeID is non-zero.
// Collisions are resolved with 1-based integer suffixes; the first free
// candidate wins, so repeated calls against the same stored set are
// deterministic. An empty base (symbol-only input) falls back to a random
// token. The assignment is read-only: the caller persists the returned slug,
// and the store's unique constraint remains the backstop under concurrent
// writers.
func (a *Assigner) Assign(ctx context.Context, text string, excludeID uint) (string, error) {
	base := Normalize(text)
	if base == "" {
		base = a.token()
	}

	taken, err := a.exists(ctx, base, excludeID)
	if err != nil {
		return "", eris.Wrapf(err, "checking slug: %s", base)
	}
	if !taken {
		return base, nil
	}

	for i := 1; i <= maxSuffixAttempts; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		taken, err := a.exists(ctx, candidate, excludeID)
		if err != nil {
			return "", eris.Wrapf(err, "checking slug: %s", candidate)
		}
		if !taken {
			return candidate, nil
		}
	}

	// Sequential search exhausted. Random disambiguation keeps assignment
	// from degrading into an unbounded scan on pathological inputs.
	candidate := base + "-" + a.token()
	taken, err = a.exists(ctx, candidate, excludeID)
	if err != nil {
		return "", eris.Wrapf(err, "checking slug: %s", candidate)
	}
	if taken {
		return "", eris.Errorf("could not assign a unique slug for base: %s", base)
	}

	return candidate, nil
}
