package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"Valid", "hello", "hello", false},
		{"Trimmed", "  hello \n", "hello", false},
		{"Empty", "", "", true},
		{"Whitespace Only", "   ", "", true},
		{"Exactly Max", strings.Repeat("a", 10), strings.Repeat("a", 10), false},
		{"Too Long", strings.Repeat("a", 11), "", true},
		{"Multibyte Counted As Runes", strings.Repeat("é", 10), strings.Repeat("é", 10), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text("content", tt.in, 10)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptionalText(t *testing.T) {
	t.Parallel()
	got, err := OptionalText("bio", "  ", 5)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = OptionalText("bio", "toolong", 5)
	assert.Error(t, err)
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "health-wellness", Slugify("Health & Wellness"))
	assert.Equal(t, "diy", Slugify("  DIY!! "))
	assert.NoError(t, ValidateCategorySlug(Slugify("Local Events 2024")))
}

func TestValidateCategorySlug(t *testing.T) {
	t.Parallel()
	tests := []struct {
		slug string
		ok   bool
	}{
		{"health", true},
		{"local-events", true},
		{"a", false},
		{"Upper", false},
		{"-lead", false},
		{"trail-", false},
		{"under_score", false},
	}
	for _, tc := range tests {
		t.Run(tc.slug, func(t *testing.T) {
			err := ValidateCategorySlug(tc.slug)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateMedia(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateMedia("image/png", 1024))
	assert.NoError(t, ValidateMedia("IMAGE/JPEG", 1))
	assert.Error(t, ValidateMedia("application/pdf", 1024))
	assert.Error(t, ValidateMedia("image/png", 0))
	assert.Error(t, ValidateMedia("image/png", MaxMediaBytes+1))
}

func TestCheckMutableFields(t *testing.T) {
	t.Parallel()

	keys, err := CheckMutableFields(map[string]any{"visibility": "public", "content": "x"}, "content", "visibility")
	require.NoError(t, err)
	assert.Equal(t, []string{"content", "visibility"}, keys)

	_, err = CheckMutableFields(map[string]any{"content": "x", "author_id": 4, "id": 1}, "content")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "author_id, id")

	_, err = CheckMutableFields(map[string]any{}, "content")
	assert.Error(t, err)
}
