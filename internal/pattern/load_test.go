package pattern

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uitestgen/internal/domain"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `[
		{"id": "toggle_switch", "component_type": "toggle", "description": "Switch flips state",
		 "template": "def test_{component_id}_toggle():\n    pass", "tags": ["toggle", "state"]},
		{"id": "chip", "component_type": "chip", "template": "def test_{component_id}():\n    pass"}
	]`)
	got, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "toggle_switch", got[0].ID)
	assert.Equal(t, []string{"toggle", "state"}, got[0].Tags)
	assert.Equal(t, domain.SourceSeed, got[0].Source)
	assert.Equal(t, "medium", got[1].Complexity)
	assert.Equal(t, []string{"chip"}, got[1].Tags)
}

func TestLoadFileRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"no id":       `[{"component_type": "chip", "template": "def test_x():\n    pass"}]`,
		"no type":     `[{"id": "a", "template": "def test_x():\n    pass"}]`,
		"no function": `[{"id": "a", "component_type": "chip", "template": "print(1)"}]`,
		"not json":    `{"id": "a"`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, body))
			assert.Error(t, err)
		})
	}
}
