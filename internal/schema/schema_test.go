package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uitestgen/internal/domain"
	"uitestgen/internal/pattern"
)

const homeSchema = `{
  "screen": "home",
  "components": [
    {"id": "login_button", "type": "button", "action": "submit", "text": "Log in"},
    {"id": "news_feed", "type": "webview", "url": "https://example.com/news", "requires_auth": true},
    {"type": "carousel"}
  ]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "home.json", homeSchema)

	screen, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "home", screen.Name)
	assert.Equal(t, path, screen.Source)
	require.Len(t, screen.Components, 3)

	assert.Equal(t, "login_button", screen.Components[0].ID)
	assert.Equal(t, "submit", screen.Components[0].Properties["action"])
	assert.True(t, screen.Components[1].RequiresAuth)
	assert.Equal(t, "https://example.com/news", screen.Components[1].URL)
	assert.Equal(t, "unknown_carousel", screen.Components[2].ID)
}

func TestLoadNameFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.json", `{"components": []}`)

	screen, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "settings", screen.Name)
	assert.Empty(t, screen.Components)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"missing components": `{"screen": "x"}`,
		"component not object": `{"components": ["button"]}`,
		"type not string":    `{"components": [{"id": "a", "type": 3}]}`,
		"auth not bool":      `{"components": [{"type": "button", "requires_auth": "yes"}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidSchema)

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.NotEmpty(t, verrs)
		})
	}
}

func TestParseMissingTypeIsUnknown(t *testing.T) {
	screen, err := Parse([]byte(`{"components":[{"id":"promo"},{"id":"b","type":"button","action":"go"},{}]}`))
	require.NoError(t, err)
	require.Len(t, screen.Components, 3)

	assert.Equal(t, "promo", screen.Components[0].ID)
	assert.Equal(t, "unknown", screen.Components[0].Type)
	assert.Equal(t, "button", screen.Components[1].Type)
	assert.Equal(t, "unknown_unknown", screen.Components[2].ID)

	p, err := pattern.NewExtractor().ExtractComponent(screen.Components[0])
	require.NoError(t, err)
	assert.True(t, p.Generic)
	assert.Equal(t, []string{"basic_rendering", "visibility_check"}, p.Strategies)
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"components": [`))
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	b := writeFile(t, dir, "b.json", `{"screen": "b", "components": []}`)
	a := writeFile(t, dir, "a.json", `{"screen": "a", "components": []}`)
	writeFile(t, dir, "notes.txt", "ignored")

	paths, err := Expand([]string{filepath.Join(dir, "*"), a})
	require.NoError(t, err)
	assert.Equal(t, []string{a, b}, paths)
}

func TestExpandNothingMatched(t *testing.T) {
	_, err := Expand([]string{filepath.Join(t.TempDir(), "*.txt")})
	assert.ErrorIs(t, err, domain.ErrNoSchemas)
}
