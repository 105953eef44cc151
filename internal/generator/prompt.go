package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"uitestgen/internal/domain"
)

const (
	systemTestEngineer = "You are an expert test engineer specializing in Selenium WebDriver and pytest. " +
		"Generate only the test function code without imports or explanations."
	systemDescriber   = "You are a test documentation expert. Generate concise, clear test descriptions."
	systemEdgeCases   = "You are a QA expert specializing in edge case discovery."
	systemEdgeCase    = "Generate concise edge case tests. Focus on the specific edge case scenario."
	systemIntegration = "Generate integration tests that verify multiple components work together correctly."
)

var typeRequirements = map[string]string{
	"webview":      "Test iframe loading, content accessibility, and JavaScript execution.",
	"button":       "Test click events, disabled state, and visual feedback.",
	"list":         "Test scrolling, item selection, and lazy loading.",
	"api_endpoint": "Test response time, error handling, and data validation.",
	"form":         "Test required field validation, invalid input rejection, and successful submission.",
	"modal":        "Test opening, closing, focus trapping, and the overlay click behaviour.",
}

// TestPrompt builds the user prompt asking for the functional test of c.
// strategies, when given, name the kinds of checks the test should cover.
func TestPrompt(c domain.Component, creds Credentials, strategies ...string) string {
	props, err := json.MarshalIndent(c.Properties, "", "  ")
	if err != nil {
		props = []byte("{}")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a pytest test function for a %s component with the following details:\n", c.Type)
	fmt.Fprintf(&b, "Component ID: %s\n", c.ID)
	fmt.Fprintf(&b, "Component Type: %s\n", c.Type)
	fmt.Fprintf(&b, "Properties: %s\n", props)
	fmt.Fprintf(&b, "Authentication Required: %t\n", c.RequiresAuth)
	if len(strategies) > 0 {
		fmt.Fprintf(&b, "Test Strategies: %s\n", strings.Join(strategies, ", "))
	}
	b.WriteString("\n")
	b.WriteString("Requirements:\n")
	b.WriteString("1. Use Selenium WebDriver for browser automation\n")
	b.WriteString("2. Include proper waits and assertions\n")
	b.WriteString("3. Test both positive and negative scenarios\n")
	b.WriteString("4. Check for element visibility and interactability\n")
	b.WriteString("5. Validate state changes after interactions\n")
	b.WriteString("6. Include performance checks where relevant\n")
	fmt.Fprintf(&b, "7. The function should be named %s\n", FunctionalName(c))
	fmt.Fprintf(&b, "8. Locate the component with By.ID, \"%s\" and never use placeholder objects such as Mock()\n\n", c.ID)
	b.WriteString("Generate only the test function, assuming these imports are available:\n")
	b.WriteString(strings.Join(pytestImports, "\n"))
	b.WriteString("\n")

	if c.RequiresAuth {
		fmt.Fprintf(&b, `
CRITICAL: This component requires authentication. Your test MUST include:
- Login form detection and interaction
- Test credentials setup (use %s / %s)
- Authentication completion verification
- Error handling for auth failures
- Session management validation
- Include 'verify_authentication_setup' assertion
`, creds.Username, creds.Password)
	}
	if extra, ok := typeRequirements[c.Type]; ok {
		b.WriteString("\nAdditional: " + extra)
	}
	return b.String()
}

func descriptionPrompt(c domain.Component) string {
	props, _ := json.MarshalIndent(c.Properties, "", "  ")
	return fmt.Sprintf("Describe a test for a %s component with properties: %s. Keep it under 50 words.", c.Type, props)
}

func edgeCasesPrompt(c domain.Component) string {
	return fmt.Sprintf("List 3-5 edge cases to test for a %s component. Return as a JSON array of strings.", c.Type)
}

func edgeCaseTestPrompt(c domain.Component, edgeCase, name string) string {
	return fmt.Sprintf("Generate a pytest test for this edge case: %s for a %s component with ID %s. "+
		"Name the function %s and locate the component with By.ID, \"%s\".", edgeCase, c.Type, c.ID, name, c.ID)
}

func integrationPrompt(screen domain.Screen, name string) string {
	types := make([]string, 0, len(screen.Components))
	ids := make([]string, 0, len(screen.Components))
	for _, c := range screen.Components {
		types = append(types, c.Type)
		ids = append(ids, c.ID)
	}
	typesJSON, _ := json.MarshalIndent(types, "", "  ")
	return fmt.Sprintf("Generate an integration test for %s screen that tests multiple components working together.\n"+
		"Components: %s\nComponent IDs: %s\n"+
		"Test the interaction between components and overall screen functionality. Name the function %s.",
		screen.Name, typesJSON, strings.Join(ids, ", "), name)
}

// pytestImports are assumed by every generated test and emitted once per file.
var pytestImports = []string{
	"from selenium import webdriver",
	"from selenium.webdriver.common.by import By",
	"from selenium.webdriver.support.ui import WebDriverWait",
	"from selenium.webdriver.support import expected_conditions as EC",
	"from selenium.common.exceptions import TimeoutException, NoSuchElementException",
	"import requests",
	"import time",
	"import pytest",
}

// Imports returns the import block every generated test relies on.
func Imports() []string {
	return append([]string(nil), pytestImports...)
}
