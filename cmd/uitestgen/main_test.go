package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"uitestgen/internal/config"
	"uitestgen/internal/domain"
)

const loginSchema = `{
  "screen": "Login",
  "components": [
    {"id": "login_btn", "type": "button", "action": "submit", "text": "Sign in"},
    {"id": "news", "type": "list", "items": ["a", "b"]}
  ]
}`

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "uitestgen.yaml")
	body := "embedder:\n  type: tfidf\ngenerator:\n  type: template\nvector_store:\n  type: memory\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath, verbose = "", false
	generateOut, generateWatch, generateReport, generatePretty = "", false, "", false
	ingestReset, ingestExternal, ingestTrending = false, false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestGenerateWritesSuiteAndReport(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	schemaPath := filepath.Join(dir, "login.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(loginSchema), 0o644))
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "--config", cfg, "generate", schemaPath, "--out", out, "--report", "junit")
	require.NoError(t, err)
	assert.Contains(t, stdout, "OK")
	assert.Contains(t, stdout, "coverage 100%")
	assert.Contains(t, stdout, "review 2/2 valid")

	suite, err := os.ReadFile(filepath.Join(out, "test_login.py"))
	require.NoError(t, err)
	assert.Contains(t, string(suite), "class TestLogin")
	assert.Contains(t, string(suite), "login_btn")

	report, err := os.ReadFile(filepath.Join(out, "report.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "<testsuites")
}

func TestGenerateJSONReportCarriesReview(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	schemaPath := filepath.Join(dir, "login.json")
	require.NoError(t, os.WriteFile(schemaPath, []byte(loginSchema), 0o644))
	out := filepath.Join(dir, "out")

	_, err := execute(t, "--config", cfg, "generate", schemaPath, "--out", out, "--report", "json")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "report.json"))
	require.NoError(t, err)
	var got []struct {
		Review struct {
			Summary struct {
				Components int `json:"components"`
				Valid      int `json:"valid"`
			} `json:"summary"`
			Validations []struct {
				ComponentID string `json:"component_id"`
			} `json:"validations"`
		} `json:"review"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Review.Summary.Components)
	assert.Equal(t, 2, got[0].Review.Summary.Valid)
	require.Len(t, got[0].Review.Validations, 2)
	assert.Equal(t, "login_btn", got[0].Review.Validations[0].ComponentID)
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsage(&buf, nil, 3)
	assert.Empty(t, buf.String())

	printUsage(&buf, map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	assert.Equal(t, "Most discovered patterns: c (5), a (2), b (2)\n", buf.String())
}

func TestIngestTrendingNeedsSearch(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "ingest", "--trending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trending ingest failed")

	_, err = execute(t, "--config", writeConfig(t, dir), "ingest", "--trending=year")
	assert.ErrorContains(t, err, "want day, week or month")
}

func TestGenerateSkipsInvalidScreens(t *testing.T) {
	dir := t.TempDir()
	cfg := writeConfig(t, dir)
	good := filepath.Join(dir, "a_login.json")
	bad := filepath.Join(dir, "b_broken.json")
	require.NoError(t, os.WriteFile(good, []byte(loginSchema), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(`{"screen": "Broken"}`), 0o644))
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "--config", cfg, "generate", filepath.Join(dir, "*.json"), "--out", out)
	require.Error(t, err)
	assert.Contains(t, stdout, "FAIL "+bad)
	assert.FileExists(t, filepath.Join(out, "test_login.py"))
}

func TestGenerateRejectsUnknownReport(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "generate", filepath.Join(dir, "x.json"), "--report", "yaml")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestGenerateWithoutSchemas(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--config", writeConfig(t, dir), "generate", filepath.Join(dir, "*.txt"))
	assert.ErrorIs(t, err, domain.ErrNoSchemas)
}

func TestIngestWithPatternFile(t *testing.T) {
	dir := t.TempDir()
	patterns := filepath.Join(dir, "patterns.json")
	require.NoError(t, os.WriteFile(patterns, []byte(`[{"id": "chip", "component_type": "chip", "template": "def test_{component_id}():\n    pass"}]`), 0o644))

	stdout, err := execute(t, "--config", writeConfig(t, dir), "ingest", "--reset", patterns)
	require.NoError(t, err)
	assert.Contains(t, stdout, "(1 from files)")
}

func TestStatus(t *testing.T) {
	dir := t.TempDir()
	stdout, err := execute(t, "--config", writeConfig(t, dir), "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Embedder:  tfidf")
	assert.Contains(t, stdout, "Generator: template")
	assert.Contains(t, stdout, "Search:    disabled")
}

func TestBuildChatFallsBackWithoutKey(t *testing.T) {
	t.Setenv("UITESTGEN_TEST_MISSING_KEY", "")
	cfg := &config.AppConfig{Generator: config.GeneratorConfig{
		Type:   "openai",
		OpenAI: &config.OpenAIConfig{APIKeyEnv: "UITESTGEN_TEST_MISSING_KEY"},
	}}
	a := &app{cfg: cfg, logger: zap.NewNop()}
	chat, err := a.buildChat(context.Background())
	require.NoError(t, err)
	assert.Nil(t, chat)

	cfg.Generator.Type = "parrot"
	_, err = a.buildChat(context.Background())
	assert.Error(t, err)
}

func TestBuildStoreRejectsUnknownType(t *testing.T) {
	a := &app{cfg: &config.AppConfig{VectorStore: config.VectorStoreConfig{Type: "faiss"}}, logger: zap.NewNop()}
	_, err := a.buildStore()
	assert.Error(t, err)
}

func TestBuildSearchDisabled(t *testing.T) {
	a := &app{cfg: &config.AppConfig{}, logger: zap.NewNop()}
	assert.Nil(t, a.buildSearch(context.Background()))
}

func TestReportExt(t *testing.T) {
	assert.Equal(t, "xml", reportExt("junit"))
	assert.Equal(t, "md", reportExt("markdown"))
	assert.Equal(t, "json", reportExt("JSON"))
	assert.True(t, validFormat("md"))
	assert.False(t, validFormat("yaml"))
}

func TestWatchSchemasDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "login.json")
	require.NoError(t, os.WriteFile(path, []byte(loginSchema), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- watchSchemas(ctx, []string{path}, 50*time.Millisecond, zap.NewNop(), func(p string) { changed <- p })
	}()

	// give the watcher time to register
	time.Sleep(200 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte(loginSchema), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	abs, _ := filepath.Abs(path)
	select {
	case got := <-changed:
		assert.Equal(t, abs, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case got := <-changed:
		t.Fatalf("unexpected second change for %s", got)
	case <-time.After(300 * time.Millisecond):
	}
	cancel()
	require.NoError(t, <-done)
}
