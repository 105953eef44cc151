package generator

import (
	"fmt"
	"strings"

	"uitestgen/internal/domain"
)

// Credentials are the test account used by tests of components that require auth.
type Credentials struct {
	Username string
	Password string
}

const authBlock = `# Authentication setup for secure component
try:
    auth_elements = driver.find_elements(By.CSS_SELECTOR, '.login, .auth, [data-auth="true"], .sign-in')
    if auth_elements or 'login' in driver.current_url.lower():
        username_field = driver.find_element(By.CSS_SELECTOR, 'input[type="email"], input[name="username"], input[id*="email"]')
        password_field = driver.find_element(By.CSS_SELECTOR, 'input[type="password"], input[name="password"]')
        login_button = driver.find_element(By.CSS_SELECTOR, 'button[type="submit"], .login-btn, .sign-in')

        username_field.send_keys(%q)
        password_field.send_keys(%q)
        login_button.click()

        WebDriverWait(driver, 10).until(lambda d: 'login' not in d.current_url.lower())

    verify_authentication_setup = True
    assert verify_authentication_setup, 'Authentication setup should complete successfully'
except Exception as auth_error:
    print(f'Auth setup failed: {auth_error}, continuing with unauthenticated test')`

// AuthBlock returns the login snippet indented by indent.
func AuthBlock(creds Credentials, indent string) string {
	block := fmt.Sprintf(authBlock, creds.Username, creds.Password)
	lines := strings.Split(block, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = indent + l
		}
	}
	return strings.Join(lines, "\n")
}

// InjectAuth inserts the login snippet after the first page load, else after the
// driver is created, else at the top of the first try block. Code without a
// browser driver is returned unchanged.
func InjectAuth(code string, creds Credentials) string {
	lines := strings.Split(code, "\n")
	at := -1
	extra := ""
	for _, marker := range []string{"driver.get(", "driver = webdriver.Chrome()"} {
		for i, l := range lines {
			if strings.Contains(l, marker) {
				at = i
				break
			}
		}
		if at != -1 {
			break
		}
	}
	if at == -1 {
		for i, l := range lines {
			if strings.TrimSpace(l) == "try:" {
				at, extra = i, "    "
				break
			}
		}
	}
	if at == -1 || !strings.Contains(code, "driver") {
		return code
	}
	indent := lines[at][:len(lines[at])-len(strings.TrimLeft(lines[at], " \t"))] + extra
	out := make([]string, 0, len(lines)+20)
	out = append(out, lines[:at+1]...)
	out = append(out, "", AuthBlock(creds, indent), "")
	out = append(out, lines[at+1:]...)
	return strings.Join(out, "\n")
}

// Slots are the values substituted into pattern templates.
type Slots struct {
	BaseURL   string
	AuthToken string
}

// Fill replaces every template slot with the component's values.
func Fill(template string, c domain.Component, slots Slots) string {
	url := c.URL
	if url == "" {
		url = slots.BaseURL
	}
	endpoint := c.URL
	if endpoint == "" {
		endpoint = strings.TrimRight(slots.BaseURL, "/") + "/api/endpoint"
	}
	token := slots.AuthToken
	if token == "" {
		token = "test_token"
	}
	r := strings.NewReplacer(
		"{component_id}", c.ID,
		"{url}", url,
		"{endpoint_url}", endpoint,
		"{auth_token}", token,
		"{base_url}", slots.BaseURL,
	)
	return r.Replace(template)
}

// AdaptedName is the function name of a test adapted from a stored pattern.
func AdaptedName(c domain.Component) string {
	if c.RequiresAuth {
		return "test_" + PyIdent(c.ID) + "_auth_adapted"
	}
	return "test_" + PyIdent(c.ID) + "_adapted"
}

// Adapt specialises a stored pattern for c.
func (g *Generator) Adapt(m domain.Match, c domain.Component) domain.GeneratedTest {
	name := AdaptedName(c)
	code := Fill(m.Pattern.Template, c, Slots{BaseURL: g.cfg.BaseURL})
	if c.RequiresAuth {
		code = InjectAuth(code, g.cfg.Credentials)
	}
	code = RenameFunction(code, name)

	desc := "Adapted from similar pattern: " + m.Pattern.Description
	if c.RequiresAuth {
		desc += " (with auth)"
	}
	return domain.GeneratedTest{
		Name:          name,
		Code:          code,
		Description:   desc,
		ComponentID:   c.ID,
		ComponentType: c.Type,
		Kind:          domain.KindAdapted,
		Generator:     "pattern",
		AdaptedFrom:   m.Pattern.ID,
		Similarity:    m.Score,
		RequiresAuth:  c.RequiresAuth,
	}
}
