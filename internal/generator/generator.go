// Package generator writes pytest functions for UI components, with a chat model when one
// is configured and from built-in templates otherwise.
package generator

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"uitestgen/internal/domain"
	"uitestgen/internal/llm"
)

// ErrNoTestFunction is returned when a model reply contains no test function.
var ErrNoTestFunction = errors.New("reply contains no test function")

// Config tunes the generator.
type Config struct {
	BaseURL     string
	Credentials Credentials
	Temperature float64
	MaxTokens   int
}

// Generator produces tests for components and screens. A nil chat model selects the templates.
type Generator struct {
	chat   llm.ChatModel
	cfg    Config
	logger *zap.Logger
}

// New returns a Generator. chat may be nil.
func New(chat llm.ChatModel, cfg Config, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1500
	}
	return &Generator{chat: chat, cfg: cfg, logger: logger}
}

// Name identifies the generator in reports.
func (g *Generator) Name() string {
	if g.chat == nil {
		return "template"
	}
	return g.chat.Name()
}

// FunctionalName is the function name of the main test of c.
func FunctionalName(c domain.Component) string {
	return "test_" + PyIdent(c.ID) + "_functionality"
}

// EdgeCaseName is the function name of the i-th edge case test of c.
func EdgeCaseName(c domain.Component, i int) string {
	return "test_" + PyIdent(c.ID) + "_edge_case_" + strconv.Itoa(i)
}

// IntegrationName is the function name of the screen integration test.
func IntegrationName(screen domain.Screen) string {
	return "test_" + PyIdent(screen.Name) + "_integration"
}

// GenerateForComponent writes the main test of c, asking the model to cover strategies.
// Model failures fall back to the template test.
func (g *Generator) GenerateForComponent(ctx context.Context, c domain.Component, strategies ...string) domain.GeneratedTest {
	if g.chat == nil {
		return g.fallback(c)
	}
	name := FunctionalName(c)
	code, err := g.completeCode(ctx, systemTestEngineer, TestPrompt(c, g.cfg.Credentials, strategies...), name)
	if err != nil {
		if ctx.Err() == nil {
			g.logger.Warn("model test generation failed, using template",
				zap.String("component", c.ID), zap.Error(err))
		}
		return g.fallback(c)
	}
	return domain.GeneratedTest{
		Name:          name,
		Code:          code,
		Description:   g.Describe(ctx, c),
		ComponentID:   c.ID,
		ComponentType: c.Type,
		Kind:          domain.KindFunctional,
		Generator:     g.chat.Name(),
		AIGenerated:   true,
		RequiresAuth:  c.RequiresAuth,
		EdgeCases:     g.EdgeCases(ctx, c),
	}
}

// Describe returns a one-line description of the test for c.
func (g *Generator) Describe(ctx context.Context, c domain.Component) string {
	fallback := "Test for " + c.Type + " component '" + c.ID + "' - validates functionality, interactions, and edge cases"
	if g.chat == nil {
		return fallback
	}
	reply, err := g.chat.Complete(ctx, llm.Conversation(systemDescriber, descriptionPrompt(c)),
		llm.Options{Temperature: g.cfg.Temperature, MaxTokens: 100})
	if err != nil {
		g.logger.Debug("description generation failed", zap.String("component", c.ID), zap.Error(err))
		return fallback
	}
	return strings.Join(strings.Fields(reply), " ")
}

// EdgeCases asks the model for edge cases of c, falling back to the per-type list.
func (g *Generator) EdgeCases(ctx context.Context, c domain.Component) []string {
	if g.chat == nil {
		return FallbackEdgeCases(c.Type)
	}
	reply, err := g.chat.Complete(ctx, llm.Conversation(systemEdgeCases, edgeCasesPrompt(c)),
		llm.Options{Temperature: g.cfg.Temperature, MaxTokens: 200})
	if err != nil {
		g.logger.Debug("edge case discovery failed", zap.String("component", c.ID), zap.Error(err))
		return FallbackEdgeCases(c.Type)
	}
	cases := ParseEdgeCases(reply)
	if len(cases) == 0 {
		return FallbackEdgeCases(c.Type)
	}
	return cases
}

// EdgeCaseTest writes the test for one edge case of c.
func (g *Generator) EdgeCaseTest(ctx context.Context, c domain.Component, edgeCase string, i int) domain.GeneratedTest {
	name := EdgeCaseName(c, i)
	t := domain.GeneratedTest{
		Name:          name,
		Description:   "Edge case test: " + edgeCase,
		ComponentID:   c.ID,
		ComponentType: c.Type,
		Kind:          domain.KindEdgeCase,
		RequiresAuth:  c.RequiresAuth,
		EdgeCases:     []string{edgeCase},
	}
	if g.chat != nil {
		code, err := g.completeCode(ctx, systemEdgeCase, edgeCaseTestPrompt(c, edgeCase, name), name)
		if err == nil {
			t.Code, t.Generator, t.AIGenerated = code, g.chat.Name(), true
			return t
		}
		if ctx.Err() == nil {
			g.logger.Warn("edge case generation failed, using template",
				zap.String("component", c.ID), zap.String("edge_case", edgeCase), zap.Error(err))
		}
	}
	t.Code = render("edge_case", struct {
		Name, ID, URL, EdgeCase, Auth string
	}{name, c.ID, g.pageURL(c), edgeCase, g.authFor(c)})
	t.Generator = "template"
	t.Description += " (template implementation)"
	return t
}

// IntegrationTest writes the cross-component test of a screen. It reports false for
// screens with fewer than two components.
func (g *Generator) IntegrationTest(ctx context.Context, screen domain.Screen) (domain.GeneratedTest, bool) {
	if len(screen.Components) < 2 {
		return domain.GeneratedTest{}, false
	}
	name := IntegrationName(screen)
	t := domain.GeneratedTest{
		Name:        name,
		Description: "Integration test for " + screen.Name + " screen components",
		Kind:        domain.KindIntegration,
	}
	if g.chat != nil {
		code, err := g.completeCode(ctx, systemIntegration, integrationPrompt(screen, name), name)
		if err == nil {
			t.Code, t.Generator, t.AIGenerated = code, g.chat.Name(), true
			return t, true
		}
		if ctx.Err() == nil {
			g.logger.Warn("integration test generation failed, using template",
				zap.String("screen", screen.Name), zap.Error(err))
		}
	}
	ids := make([]string, 0, len(screen.Components))
	for _, c := range screen.Components {
		ids = append(ids, c.ID)
	}
	t.Code = render("integration", struct {
		Name, Screen, URL string
		Components        []domain.Component
		IDs               []string
	}{name, strings.ToLower(screen.Name), strings.TrimRight(g.cfg.BaseURL, "/") + "/" + strings.ToLower(screen.Name), screen.Components, ids})
	t.Generator = "template"
	t.Description += " (template implementation)"
	return t, true
}

func (g *Generator) completeCode(ctx context.Context, system, prompt, name string) (string, error) {
	reply, err := g.chat.Complete(ctx, llm.Conversation(system, prompt),
		llm.Options{Temperature: g.cfg.Temperature, MaxTokens: g.cfg.MaxTokens})
	if err != nil {
		return "", err
	}
	code, ok := CleanCode(reply)
	if !ok {
		return "", ErrNoTestFunction
	}
	return RenameFunction(code, name), nil
}

// fallback is the template test used when no model answer is available.
func (g *Generator) fallback(c domain.Component) domain.GeneratedTest {
	name := FunctionalName(c)
	var code string
	if c.Type == "api_endpoint" {
		method, _ := c.Properties["method"].(string)
		if method == "" {
			method = "GET"
		}
		code = render("api", struct {
			Name, ID, Method, URL string
			RequiresAuth          bool
		}{name, c.ID, strings.ToUpper(method), g.endpointURL(c), c.RequiresAuth})
	} else {
		code = render("functional", struct {
			Name, Type, ID, URL, Auth string
		}{name, c.Type, c.ID, g.pageURL(c), g.authFor(c)})
	}
	return domain.GeneratedTest{
		Name:          name,
		Code:          code,
		Description:   "Template test for " + c.Type + " component '" + c.ID + "'",
		ComponentID:   c.ID,
		ComponentType: c.Type,
		Kind:          domain.KindFallback,
		Generator:     "template",
		RequiresAuth:  c.RequiresAuth,
		EdgeCases:     FallbackEdgeCases(c.Type),
	}
}

func (g *Generator) pageURL(c domain.Component) string {
	if c.URL != "" && c.Type == "webview" {
		return c.URL
	}
	return g.cfg.BaseURL
}

func (g *Generator) endpointURL(c domain.Component) string {
	if strings.HasPrefix(c.URL, "http://") || strings.HasPrefix(c.URL, "https://") {
		return c.URL
	}
	return strings.TrimRight(g.cfg.BaseURL, "/") + "/" + strings.TrimLeft(c.URL, "/")
}

func (g *Generator) authFor(c domain.Component) string {
	if !c.RequiresAuth {
		return ""
	}
	return AuthBlock(g.cfg.Credentials, "        ")
}
