package agents

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"uitestgen/internal/domain"
)

// TestPattern is a test the analyzer recommends for an endpoint.
type TestPattern struct {
	Name        string
	Description string
	Kind        string
}

// GraphQLQuery summarises a GraphQL operation.
type GraphQLQuery struct {
	Operation string
	Name      string
	Fields    []string
	Variables map[string]string
}

// Analysis is the review of one API endpoint component.
type Analysis struct {
	ComponentID     string
	URL             string
	Method          string
	GraphQL         bool
	Query           *GraphQLQuery
	Errors          []string
	Warnings        []string
	Recommendations []string
	Security        []string
	TestPatterns    []TestPattern
	Complexity      string
}

var (
	graphqlMarkers = []string{"/graphql", "/query", "/api/graphql"}
	operationRe    = regexp.MustCompile(`(?i)(query|mutation|subscription)\s*(\w+)?\s*[({]`)
	fieldRe        = regexp.MustCompile(`(\w+)\s*(?:\([^)]*\))?\s*\{`)
	variableRe     = regexp.MustCompile(`\$(\w+)\s*:\s*(\w+!?)`)
	versionRe      = regexp.MustCompile(`^v\d+$`)
	pathVerbs      = []string{"get", "create", "update", "delete", "fetch", "add", "remove"}
	secretParams   = []string{"token", "access_token", "api_key", "apikey", "key", "password", "secret"}
	sensitiveWords = []string{"user", "profile", "personal", "account", "player", "payment"}
	datasetWords   = []string{"stats", "schedule", "games", "history", "search"}
)

// Analyzer reviews api_endpoint components.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger}
}

// Analyze reviews the endpoint described by c.
func (a *Analyzer) Analyze(c domain.Component) Analysis {
	p := props(c.Properties)
	raw := c.URL
	if raw == "" {
		raw = p.str("endpoint")
	}
	method := strings.ToUpper(p.str("method"))
	if method == "" {
		method = "GET"
	}
	res := Analysis{ComponentID: c.ID, URL: raw, Method: method, Complexity: "medium"}
	lower := strings.ToLower(raw)
	for _, m := range graphqlMarkers {
		if strings.Contains(lower, m) {
			res.GraphQL = true
			break
		}
	}

	if res.GraphQL {
		a.graphql(p, &res)
	} else {
		a.rest(raw, method, &res)
	}
	if headers, ok := c.Properties["headers"].(map[string]any); ok && len(headers) > 0 {
		for _, h := range []string{"Content-Type", "Authorization", "User-Agent"} {
			if !hasHeader(headers, h) {
				res.Recommendations = append(res.Recommendations, "Consider including "+h+" header")
			}
		}
		if c.RequiresAuth && !hasHeader(headers, "Authorization") {
			res.Security = append(res.Security, "Endpoint requires auth but declares no Authorization header")
		}
	}
	a.security(raw, c.RequiresAuth, &res)

	if res.GraphQL {
		res.Complexity = "high"
		res.Recommendations = append(res.Recommendations, "Consider query complexity analysis for GraphQL")
	}
	for _, w := range datasetWords {
		if strings.Contains(lower, w) {
			res.Recommendations = append(res.Recommendations, "Consider pagination for large datasets")
			break
		}
	}

	res.TestPatterns = testPatterns(method, raw, res.GraphQL, p.truthy("performance_critical"), c.RequiresAuth)
	a.logger.Debug("endpoint analyzed",
		zap.String("component", c.ID),
		zap.String("url", raw),
		zap.Bool("graphql", res.GraphQL),
		zap.Int("security_notes", len(res.Security)))
	return res
}

func (a *Analyzer) graphql(p props, res *Analysis) {
	query := p.str("query")
	if query == "" && !p.truthy("introspection") {
		res.Errors = append(res.Errors, "GraphQL endpoint missing query or introspection flag")
		return
	}
	if query == "" {
		return
	}
	q := ParseGraphQL(query)
	res.Query = &q

	vars, _ := p["variables"].(map[string]any)
	var missing, unused []string
	for name := range q.Variables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range vars {
		if _, ok := q.Variables[name]; !ok {
			unused = append(unused, name)
		}
	}
	sort.Strings(missing)
	sort.Strings(unused)
	if len(missing) > 0 {
		res.Errors = append(res.Errors, "Missing required variables: "+strings.Join(missing, ", "))
	}
	if len(unused) > 0 {
		res.Warnings = append(res.Warnings, "Unused variables provided: "+strings.Join(unused, ", "))
	}
}

func (a *Analyzer) rest(raw, method string, res *Analysis) {
	u, err := url.Parse(raw)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("Invalid endpoint URL: %v", err))
		return
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	versioned := false
	for _, s := range segments {
		if versionRe.MatchString(s) {
			versioned = true
		}
		for _, verb := range pathVerbs {
			if strings.EqualFold(s, verb) || strings.HasPrefix(strings.ToLower(s), verb+"_") {
				res.Warnings = append(res.Warnings, fmt.Sprintf("Path segment %q is a verb; let the HTTP method carry the action", s))
			}
		}
	}
	if !versioned {
		res.Recommendations = append(res.Recommendations, "Consider including API version in URL path")
	}
	if n := len(segments); n > 0 && method == "GET" {
		last := segments[n-1]
		if !strings.HasSuffix(last, "s") && !isDigits(last) && !versionRe.MatchString(last) {
			res.Recommendations = append(res.Recommendations, "Consider using plural nouns for collection resources")
		}
	}
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		res.Warnings = append(res.Warnings, "Trailing slash in endpoint path")
	}
	if u.Scheme != "" && u.Scheme != "https" {
		res.Warnings = append(res.Warnings, "Consider using HTTPS for secure communication")
	}
}

func (a *Analyzer) security(raw string, requiresAuth bool, res *Analysis) {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") {
		res.Security = append(res.Security, "Endpoint should use HTTPS")
	}
	if u, err := url.Parse(raw); err == nil {
		q := u.Query()
		for _, name := range secretParams {
			if q.Has(name) {
				res.Security = append(res.Security, fmt.Sprintf("Credential %q passed in the query string", name))
			}
		}
	}
	for _, w := range sensitiveWords {
		if strings.Contains(lower, w) {
			res.Security = append(res.Security, "Endpoint may contain sensitive data - ensure proper authentication")
			break
		}
	}
	if requiresAuth {
		res.Security = append(res.Security, "Endpoint requires authentication - verify token validation")
	}
}

// ParseGraphQL extracts the operation, top-level selections and variables of a query.
func ParseGraphQL(query string) GraphQLQuery {
	q := GraphQLQuery{Operation: "query", Variables: map[string]string{}}
	if m := operationRe.FindStringSubmatch(query); m != nil {
		q.Operation = strings.ToLower(m[1])
		q.Name = m[2]
	}
	for _, m := range fieldRe.FindAllStringSubmatch(query, -1) {
		if m[1] == q.Name || m[1] == q.Operation {
			continue
		}
		q.Fields = append(q.Fields, m[1])
	}
	for _, m := range variableRe.FindAllStringSubmatch(query, -1) {
		q.Variables[m[1]] = m[2]
	}
	return q
}

func testPatterns(method, raw string, graphql, perfCritical, requiresAuth bool) []TestPattern {
	out := []TestPattern{{
		Name:        "happy_path_test",
		Description: fmt.Sprintf("Test successful %s request to %s", method, raw),
		Kind:        "positive",
	}, {
		Name:        "test_404_handling",
		Description: "Test handling of not found errors",
		Kind:        "negative",
	}, {
		Name:        "test_timeout_handling",
		Description: "Test handling of request timeouts",
		Kind:        "negative",
	}}
	if graphql {
		out = append(out, TestPattern{Name: "test_graphql_errors", Description: "Test the errors array on an invalid query", Kind: "negative"})
	}
	if perfCritical {
		out = append(out, TestPattern{Name: "test_response_time", Description: "Test API response time performance", Kind: "performance"})
	}
	out = append(out, TestPattern{Name: "test_security_headers", Description: "Test presence of security headers", Kind: "security"})
	if requiresAuth {
		out = append(out, TestPattern{Name: "test_unauthorized_rejected", Description: "Test that requests without a token are rejected", Kind: "security"})
	}
	return out
}

func hasHeader(headers map[string]any, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
