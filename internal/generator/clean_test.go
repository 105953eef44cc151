package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanCode(t *testing.T) {
	reply := "```python\nimport time\nfrom selenium import webdriver\n\nclass TestX:\n    def test_inside(self):\n        driver = webdriver.Chrome()\n        driver.quit()\n```"
	code, ok := CleanCode(reply)
	assert.True(t, ok)
	assert.Equal(t, "def test_inside(self):\n    driver = webdriver.Chrome()\n    driver.quit()", code)

	_, ok = CleanCode("no code here")
	assert.False(t, ok)
}

func TestCleanCodeKeepsBodyImports(t *testing.T) {
	reply := "from selenium import webdriver\n\ndef test_feed():\n    \"\"\"Checks the feed.\n    from the top down.\n    \"\"\"\n    import json\n    data = json.loads('[]')\n    assert data == []"
	code, ok := CleanCode(reply)
	assert.True(t, ok)
	assert.NotContains(t, code, "from selenium")
	assert.Contains(t, code, "    from the top down.")
	assert.Contains(t, code, "    import json\n    data = json.loads")
	assert.True(t, strings.HasPrefix(code, "def test_feed():"))
}

func TestRenameFunction(t *testing.T) {
	code := "def test_old(driver):\n    pass\n\ndef test_other():\n    pass"
	assert.Equal(t, "def test_new(driver):\n    pass\n\ndef test_other():\n    pass", RenameFunction(code, "test_new"))
}

func TestParseEdgeCases(t *testing.T) {
	cases := map[string]struct {
		reply string
		want  []string
	}{
		"bare array": {
			reply: `["Empty list state", "Very long item titles", "abc"]`,
			want:  []string{"Empty list state", "Very long item titles"},
		},
		"fenced array": {
			reply: "Sure:\n```json\n[\"Network timeout\", \"Offline mode\"]\n```",
			want:  []string{"Network timeout", "Offline mode"},
		},
		"lines": {
			reply: "Here are some edge cases:\n1. Empty payload handling\n- Slow network response\n* Unicode in labels\n[",
			want:  []string{"Empty payload handling", "Slow network response", "Unicode in labels"},
		},
		"capped at five": {
			reply: `["aaaaaa1","aaaaaa2","aaaaaa3","aaaaaa4","aaaaaa5","aaaaaa6"]`,
			want:  []string{"aaaaaa1", "aaaaaa2", "aaaaaa3", "aaaaaa4", "aaaaaa5"},
		},
		"junk only": {
			reply: "```json\n```",
			want:  nil,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseEdgeCases(tc.reply))
		})
	}
}

func TestFallbackEdgeCases(t *testing.T) {
	assert.Equal(t, []string{"Empty data handling", "Network timeout", "Invalid input"}, FallbackEdgeCases("chart"))
	assert.Len(t, FallbackEdgeCases("video"), 6)
	assert.Contains(t, FallbackEdgeCases("form"), "Required field validation")
}

func TestPyIdent(t *testing.T) {
	assert.Equal(t, "login_button", PyIdent("login-button"))
	assert.Equal(t, "c_3d_view", PyIdent("3d view"))
	assert.Equal(t, "element", PyIdent("--"))
	assert.Equal(t, "newsfeed", PyIdent("NewsFeed"))
}
