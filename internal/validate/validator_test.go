package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quill/app/internal/faults"
)

func validRegistration() Registration {
	return Registration{
		Email:     "writer@example.com",
		Username:  "writer_01",
		Password:  "Str0ng!Pass",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestValidateRegistrationAcceptsValidPayload(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRegistration(validRegistration()))
}

func TestValidateRegistrationRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Registration)
	}{
		{"missing email", func(r *Registration) { r.Email = "" }},
		{"malformed email", func(r *Registration) { r.Email = "not-an-email" }},
		{"short username", func(r *Registration) { r.Username = "ab" }},
		{"long username", func(r *Registration) { r.Username = strings.Repeat("a", 31) }},
		{"username charset", func(r *Registration) { r.Username = "bad name!" }},
		{"short password", func(r *Registration) { r.Password = "S1!a" }},
		{"password without upper", func(r *Registration) { r.Password = "weak1pass!" }},
		{"password without digit", func(r *Registration) { r.Password = "Weakpass!" }},
		{"password without special", func(r *Registration) { r.Password = "Weakpass1" }},
		{"long first name", func(r *Registration) { r.FirstName = strings.Repeat("a", 51) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := validRegistration()
			tc.mutate(&in)

			err := ValidateRegistration(in)
			require.Error(t, err)
			assert.True(t, faults.IsKind(err, faults.KindSecurity), "expected security classification, got %v", faults.KindOf(err))
			assert.NotEmpty(t, faults.DetailsOf(err))
		})
	}
}

func TestValidateLogin(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateLogin(Login{Email: "writer@example.com", Password: "anything"}))

	err := ValidateLogin(Login{Email: "writer@example.com"})
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindSecurity))

	err = ValidateLogin(Login{Email: "nope", Password: "pw"})
	require.Error(t, err)
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidatePassword("Str0ng!Pass"))
	assert.False(t, ValidatePassword("short1!"))
	assert.False(t, ValidatePassword("alllowercase1!"))
	assert.False(t, ValidatePassword("ALLUPPERCASE1!"))
	assert.False(t, ValidatePassword("NoDigits!!"))
	assert.False(t, ValidatePassword("NoSpecial11"))
	assert.False(t, ValidatePassword(strings.Repeat("Aa1!", 40)))
}

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hello", SanitizeString("  hello  ", 255))
	assert.Equal(t, "hello", SanitizeString("he\x00l\x1flo\x7f", 255))
	assert.Equal(t, "abc", SanitizeString("abcdef", 3))
	assert.Equal(t, "", SanitizeString("", 255))
}

func TestSanitizeHTMLKeepsAllowedMarkup(t *testing.T) {
	t.Parallel()

	s := NewSanitizer()

	input := `<h2>Title</h2><p>Some <strong>bold</strong> and <em>italic</em> text.</p>` +
		`<ul><li>one</li><li>two</li></ul><blockquote>quoted</blockquote>`
	assert.Equal(t, input, s.SanitizeHTML(input))
}

func TestSanitizeHTMLStripsDangerousMarkup(t *testing.T) {
	t.Parallel()

	s := NewSanitizer()

	cases := []struct {
		name     string
		input    string
		excluded []string
	}{
		{
			"script tag",
			`<p>hi</p><script>alert("xss")</script>`,
			[]string{"<script", "alert"},
		},
		{
			"event handler",
			`<p onclick="steal()">hi</p>`,
			[]string{"onclick", "steal"},
		},
		{
			"iframe",
			`<iframe src="https://evil.example"></iframe><p>ok</p>`,
			[]string{"<iframe"},
		},
		{
			"style tag",
			`<style>body{display:none}</style><p>ok</p>`,
			[]string{"<style"},
		},
		{
			"javascript href",
			`<a href="javascript:alert(1)">link</a>`,
			[]string{"javascript:"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := s.SanitizeHTML(tc.input)
			for _, fragment := range tc.excluded {
				assert.NotContains(t, got, fragment)
			}
		})
	}
}

func TestSanitizeHTMLKeepsLinkAndImageAttributes(t *testing.T) {
	t.Parallel()

	s := NewSanitizer()

	got := s.SanitizeHTML(`<a href="https://example.com" title="ref" target="_blank">link</a>`)
	assert.Contains(t, got, `href="https://example.com"`)
	assert.Contains(t, got, `title="ref"`)
	assert.NotContains(t, got, "target=")

	got = s.SanitizeHTML(`<img src="https://example.com/cat.png" alt="cat" width="100" height="80" data-track="1">`)
	assert.Contains(t, got, `src="https://example.com/cat.png"`)
	assert.Contains(t, got, `alt="cat"`)
	assert.Contains(t, got, `width="100"`)
	assert.Contains(t, got, `height="80"`)
	assert.NotContains(t, got, "data-track")
}
