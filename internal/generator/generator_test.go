package generator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/llm"
)

// scriptedChat answers by system prompt.
type scriptedChat struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	prompts []string
}

func (s *scriptedChat) Name() string { return "fake-model" }

func (s *scriptedChat) Complete(_ context.Context, msgs []llm.Message, _ llm.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, msgs[len(msgs)-1].Content)
	if s.err != nil {
		return "", s.err
	}
	return s.replies[msgs[0].Content], nil
}

var button = domain.Component{
	ID: "login_button", Type: "button",
	Properties: map[string]any{"id": "login_button", "type": "button", "action": "submit"},
}

var securedFeed = domain.Component{
	ID: "news_feed", Type: "webview", URL: "https://example.com/news", RequiresAuth: true,
	Properties: map[string]any{"id": "news_feed", "type": "webview", "url": "https://example.com/news", "requires_auth": true},
}

func newGen(chat llm.ChatModel) *Generator {
	return New(chat, Config{
		BaseURL:     "http://localhost:3000",
		Credentials: Credentials{Username: "qa@example.com", Password: "s3cret"},
		Temperature: 0.3,
	}, zap.NewNop())
}

func TestGenerateWithoutModelUsesTemplate(t *testing.T) {
	g := newGen(nil)
	test := g.GenerateForComponent(context.Background(), button)

	assert.Equal(t, "template", g.Name())
	assert.Equal(t, domain.KindFallback, test.Kind)
	assert.False(t, test.AIGenerated)
	assert.Equal(t, "test_login_button_functionality", test.Name)
	assert.True(t, strings.HasPrefix(test.Code, "def test_login_button_functionality():"))
	assert.Contains(t, test.Code, `(By.ID, "login_button")`)
	assert.Contains(t, test.Code, "element.click()")
	assert.NotContains(t, test.Code, "{{")
	assert.Equal(t, FallbackEdgeCases("button"), test.EdgeCases)
}

func TestTemplateInjectsAuth(t *testing.T) {
	test := newGen(nil).GenerateForComponent(context.Background(), securedFeed)

	assert.Contains(t, test.Code, `driver.get("https://example.com/news")`)
	assert.Contains(t, test.Code, `username_field.send_keys("qa@example.com")`)
	assert.Contains(t, test.Code, "verify_authentication_setup")
	assert.Contains(t, test.Code, "driver.switch_to.frame(element)")
}

func TestTemplateAPIEndpoint(t *testing.T) {
	ep := domain.Component{
		ID: "scores_api", Type: "api_endpoint", URL: "/api/scores", RequiresAuth: true,
		Properties: map[string]any{"id": "scores_api", "type": "api_endpoint", "url": "/api/scores", "method": "post"},
	}
	test := newGen(nil).GenerateForComponent(context.Background(), ep)

	assert.Equal(t, "test_scores_api_functionality", test.Name)
	assert.Contains(t, test.Code, `requests.request("POST", "http://localhost:3000/api/scores"`)
	assert.Contains(t, test.Code, `headers["Authorization"] = "Bearer test_token"`)
	assert.NotContains(t, test.Code, "webdriver")
}

func TestGenerateWithModel(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{
		systemTestEngineer: "Here you go:\n```python\nimport pytest\nfrom selenium import webdriver\n\ndef test_something():\n    driver = webdriver.Chrome()\n    driver.find_element(By.ID, \"login_button\").click()\n    driver.quit()\n```\n",
		systemDescriber:    "  Verifies the login\n button submits.  ",
		systemEdgeCases:    "```json\n[\"Double submit\", \"Button hidden\", \"x\"]\n```",
	}}
	test := newGen(chat).GenerateForComponent(context.Background(), button)

	assert.Equal(t, domain.KindFunctional, test.Kind)
	assert.True(t, test.AIGenerated)
	assert.Equal(t, "fake-model", test.Generator)
	assert.Equal(t, "test_login_button_functionality", test.Name)
	assert.Equal(t, "def test_login_button_functionality():\n    driver = webdriver.Chrome()\n    driver.find_element(By.ID, \"login_button\").click()\n    driver.quit()", test.Code)
	assert.Equal(t, "Verifies the login button submits.", test.Description)
	assert.Equal(t, []string{"Double submit", "Button hidden"}, test.EdgeCases)

	require.NotEmpty(t, chat.prompts)
	assert.Contains(t, chat.prompts[0], "test_login_button_functionality")
	assert.Contains(t, chat.prompts[0], "Additional: Test click events")
}

func TestGenerateModelFailureFallsBack(t *testing.T) {
	chat := &scriptedChat{err: errors.New("503")}
	test := newGen(chat).GenerateForComponent(context.Background(), button)
	assert.Equal(t, domain.KindFallback, test.Kind)
	assert.False(t, test.AIGenerated)
}

func TestGenerateReplyWithoutFunctionFallsBack(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{systemTestEngineer: "I cannot help with that."}}
	test := newGen(chat).GenerateForComponent(context.Background(), button)
	assert.Equal(t, domain.KindFallback, test.Kind)
}

func TestPromptRequiresAuthBlock(t *testing.T) {
	p := TestPrompt(securedFeed, Credentials{Username: "qa@example.com", Password: "s3cret"})
	assert.Contains(t, p, "CRITICAL: This component requires authentication")
	assert.Contains(t, p, "qa@example.com / s3cret")
	assert.Contains(t, p, "Authentication Required: true")
	assert.Contains(t, p, "Additional: Test iframe loading")

	p = TestPrompt(button, Credentials{})
	assert.NotContains(t, p, "CRITICAL")
	assert.NotContains(t, p, "Test Strategies")
}

func TestPromptListsStrategies(t *testing.T) {
	chat := &scriptedChat{replies: map[string]string{}}
	newGen(chat).GenerateForComponent(context.Background(), button, "click_interaction", "state_validation")
	require.NotEmpty(t, chat.prompts)
	assert.Contains(t, chat.prompts[0], "Authentication Required: false\nTest Strategies: click_interaction, state_validation\n\nRequirements:")
}

func TestEdgeCaseTest(t *testing.T) {
	test := newGen(nil).EdgeCaseTest(context.Background(), button, "Multiple rapid clicks", 1)
	assert.Equal(t, "test_login_button_edge_case_1", test.Name)
	assert.Equal(t, domain.KindEdgeCase, test.Kind)
	assert.Contains(t, test.Code, `edge_case = "Multiple rapid clicks"`)
	assert.Contains(t, test.Code, `(By.ID, "login_button")`)

	chat := &scriptedChat{replies: map[string]string{systemEdgeCase: "def test_rapid():\n    pass"}}
	test = newGen(chat).EdgeCaseTest(context.Background(), button, "Multiple rapid clicks", 0)
	assert.True(t, test.AIGenerated)
	assert.Equal(t, "def test_login_button_edge_case_0():\n    pass", test.Code)
}

func TestIntegrationTest(t *testing.T) {
	g := newGen(nil)
	_, ok := g.IntegrationTest(context.Background(), domain.Screen{Name: "Home", Components: []domain.Component{button}})
	assert.False(t, ok)

	screen := domain.Screen{Name: "Home", Components: []domain.Component{button, securedFeed}}
	test, ok := g.IntegrationTest(context.Background(), screen)
	require.True(t, ok)
	assert.Equal(t, "test_home_integration", test.Name)
	assert.Equal(t, domain.KindIntegration, test.Kind)
	assert.Contains(t, test.Code, `driver.get("http://localhost:3000/home")`)
	assert.Contains(t, test.Code, "login_button_element.click()")
	assert.Contains(t, test.Code, `component_ids = ["login_button", "news_feed"]`)
	assert.Contains(t, test.Code, `f"{cid} missing after interactions"`)
	assert.NotContains(t, test.Code, "{component_id}")
}

func TestAdapt(t *testing.T) {
	g := newGen(nil)
	m := domain.Match{Score: 0.82, Pattern: domain.Pattern{
		ID: "button_click_validation", Description: "Button click",
		Template: "def test_{component_id}_button_functionality():\n    driver = webdriver.Chrome()\n    try:\n        driver.get('{base_url}')\n        driver.find_element(By.ID, \"{component_id}\").click()\n    finally:\n        driver.quit()",
	}}

	test := g.Adapt(m, button)
	assert.Equal(t, "test_login_button_adapted", test.Name)
	assert.Equal(t, domain.KindAdapted, test.Kind)
	assert.Equal(t, "button_click_validation", test.AdaptedFrom)
	assert.Equal(t, 0.82, test.Similarity)
	assert.True(t, strings.HasPrefix(test.Code, "def test_login_button_adapted():"))
	assert.Contains(t, test.Code, "driver.get('http://localhost:3000')")
	assert.NotContains(t, test.Code, "{component_id}")

	secured := button
	secured.RequiresAuth = true
	test = g.Adapt(m, secured)
	assert.Equal(t, "test_login_button_auth_adapted", test.Name)
	assert.Contains(t, test.Description, "(with auth)")
	lines := strings.Split(test.Code, "\n")
	var getLine, authLine int
	for i, l := range lines {
		if strings.Contains(l, "driver.get(") {
			getLine = i
		}
		if strings.Contains(l, "# Authentication setup") {
			authLine = i
			assert.True(t, strings.HasPrefix(l, "        # Authentication"), "auth block must match the indentation of the page load")
		}
	}
	assert.Greater(t, authLine, getLine)
}

func TestInjectAuthWithoutDriver(t *testing.T) {
	code := "def test_api():\n    requests.get('x')"
	assert.Equal(t, code, InjectAuth(code, Credentials{}))
}

func TestInjectAuthAfterTry(t *testing.T) {
	code := "def test_x(driver):\n    try:\n        driver.find_element(By.ID, 'a')\n    finally:\n        pass"
	out := InjectAuth(code, Credentials{Username: "u", Password: "p"})
	assert.Contains(t, out, "    try:\n\n        # Authentication setup")
}

func TestFill(t *testing.T) {
	c := domain.Component{ID: "scores", Type: "api_endpoint", URL: "https://api.example.com/scores"}
	out := Fill("{component_id} {url} {endpoint_url} {auth_token} {base_url}", c, Slots{BaseURL: "http://localhost:3000"})
	assert.Equal(t, "scores https://api.example.com/scores https://api.example.com/scores test_token http://localhost:3000", out)

	out = Fill("{url} {endpoint_url}", domain.Component{ID: "b"}, Slots{BaseURL: "http://h/"})
	assert.Equal(t, "http://h/ http://h/api/endpoint", out)
}
