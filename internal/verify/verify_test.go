package verify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/generator"
	"uitestgen/internal/pattern"
)

var button = domain.Component{ID: "login_button", Type: "button"}

func checks(issues []domain.Issue) []string {
	var out []string
	for _, i := range issues {
		out = append(out, i.Check)
	}
	return out
}

func TestCheckCleanTest(t *testing.T) {
	test := domain.GeneratedTest{
		Name: "test_login_button_functionality",
		Code: "def test_login_button_functionality():\n    driver = webdriver.Chrome()\n    try:\n        driver.find_element(By.ID, \"login_button\").click()\n        print(f\"clicked {driver.title}\")\n    finally:\n        driver.quit()",
	}
	assert.Empty(t, NewChecker().Check(context.Background(), test, &button))
}

func TestCheckFindsProblems(t *testing.T) {
	k := NewChecker()
	ctx := context.Background()

	cases := map[string]struct {
		test domain.GeneratedTest
		want []string
	}{
		"empty": {
			test: domain.GeneratedTest{Name: "test_x"},
			want: []string{CheckEmpty},
		},
		"leftover slot": {
			test: domain.GeneratedTest{Name: "test_x", Code: "def test_x():\n    driver.get('{base_url}')\n    assert 'login_button'"},
			want: []string{CheckPlaceholder},
		},
		"mock object": {
			test: domain.GeneratedTest{Name: "test_x", Code: "def test_x():\n    element = Mock()\n    assert 'login_button'"},
			want: []string{CheckMock},
		},
		"wrong component": {
			test: domain.GeneratedTest{Name: "test_x", Code: "def test_x():\n    assert 'other'"},
			want: []string{CheckComponentID},
		},
		"wrong name": {
			test: domain.GeneratedTest{Name: "test_x", Code: "def test_y():\n    assert 'login_button'"},
			want: []string{CheckName},
		},
		"syntax": {
			test: domain.GeneratedTest{Name: "test_x", Code: "def test_x(:\n    assert 'login_button'"},
			want: []string{CheckSyntax},
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, checks(k.Check(ctx, tc.test, &button)))
		})
	}
}

func TestCheckScreenLevelSkipsComponentID(t *testing.T) {
	test := domain.GeneratedTest{Name: "test_home_integration", Code: "def test_home_integration():\n    pass"}
	assert.Empty(t, NewChecker().Check(context.Background(), test, nil))
}

func TestSyntaxReportsLocation(t *testing.T) {
	err := NewChecker().Syntax(context.Background(), "def test_ok():\n    pass\n\ndef test_bad(:\n    pass\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 4")
}

func TestTemplatesPassEveryCheck(t *testing.T) {
	g := generator.New(nil, generator.Config{
		Credentials: generator.Credentials{Username: "qa@example.com", Password: "pw"},
	}, zap.NewNop())
	k := NewChecker()
	ctx := context.Background()

	var components []domain.Component
	for _, typ := range []string{"button", "form", "image", "video", "list", "webview", "modal", "text", "navigation", "chart"} {
		components = append(components, domain.Component{ID: typ + "_1", Type: typ, RequiresAuth: typ == "webview"})
	}
	components = append(components, domain.Component{ID: "scores_api", Type: "api_endpoint", URL: "/api/scores", RequiresAuth: true})

	for _, c := range components {
		c := c
		for _, test := range []domain.GeneratedTest{
			g.GenerateForComponent(ctx, c),
			g.EdgeCaseTest(ctx, c, "Network timeout", 0),
		} {
			assert.Empty(t, k.Check(ctx, test, &c), "%s:\n%s", test.Name, test.Code)
		}
	}

	test, ok := g.IntegrationTest(ctx, domain.Screen{Name: "Home", Components: components})
	require.True(t, ok)
	assert.Empty(t, k.Check(ctx, test, nil), test.Code)

	secured := domain.Component{ID: "feed", Type: "webview", URL: "https://example.com/feed", RequiresAuth: true}
	for _, p := range pattern.Seeds() {
		test := g.Adapt(domain.Match{Pattern: p, Score: 0.9}, secured)
		assert.Empty(t, k.Check(ctx, test, &secured), test.Code)
	}
}
