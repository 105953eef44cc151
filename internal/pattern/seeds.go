package pattern

import "uitestgen/internal/domain"

// Seeds returns the built-in pattern library stored on first ingest.
func Seeds() []domain.Pattern {
	return []domain.Pattern{
		{
			ID:            "webview_interaction",
			ComponentType: "webview",
			Description:   "Interactive WebView component with URL loading and JavaScript bridge",
			Tags:          []string{"webview", "selenium", "interaction", "iframe", "javascript"},
			Complexity:    "medium",
			Source:        domain.SourceSeed,
			Template: `def test_{component_id}_webview_interaction():
    driver = webdriver.Chrome()
    try:
        driver.get('{url}')

        # Wait for WebView to load
        wait = WebDriverWait(driver, 10)
        webview = wait.until(EC.presence_of_element_located((By.ID, "{component_id}")))

        # Switch to WebView frame
        driver.switch_to.frame(webview)

        assert driver.page_source != ""
        assert "error" not in driver.page_source.lower()
    finally:
        driver.quit()`,
		},
		{
			ID:            "button_click_validation",
			ComponentType: "button",
			Description:   "Button click with state validation and response checking",
			Tags:          []string{"button", "selenium", "click", "validation", "state"},
			Complexity:    "simple",
			Source:        domain.SourceSeed,
			Template: `def test_{component_id}_button_functionality():
    driver = webdriver.Chrome()
    try:
        driver.get('{base_url}')

        button = driver.find_element(By.ID, "{component_id}")

        # Verify button is clickable
        assert button.is_enabled()
        assert button.is_displayed()

        initial_text = button.text
        initial_class = button.get_attribute("class")
        button.click()

        # Wait for response and validate state change
        time.sleep(1)
        assert button.text != initial_text or button.get_attribute("class") != initial_class
    finally:
        driver.quit()`,
		},
		{
			ID:            "api_endpoint_testing",
			ComponentType: "api_endpoint",
			Description:   "REST API endpoint testing with authentication and response validation",
			Tags:          []string{"api", "rest", "authentication", "validation", "json"},
			Complexity:    "medium",
			Source:        domain.SourceSeed,
			Template: `def test_{component_id}_api_endpoint():
    headers = {'Authorization': 'Bearer {auth_token}'}

    response = requests.get('{endpoint_url}', headers=headers, timeout=10)

    # Validate response structure
    assert response.status_code == 200
    data = response.json()

    required_fields = ['data', 'status', 'timestamp']
    for field in required_fields:
        assert field in data, f"Missing required field: {field}"

    assert isinstance(data['data'], (list, dict))
    assert isinstance(data['status'], str)
    assert data['status'] in ['success', 'partial', 'error']`,
		},
		{
			ID:            "list_scroll_performance",
			ComponentType: "list",
			Description:   "List scrolling with performance monitoring and item validation",
			Tags:          []string{"list", "scroll", "performance", "lazy-loading", "selenium"},
			Complexity:    "complex",
			Source:        domain.SourceSeed,
			Template: `def test_{component_id}_scroll_performance():
    driver = webdriver.Chrome()
    try:
        driver.get('{base_url}')

        list_container = driver.find_element(By.ID, "{component_id}")
        initial_items = len(list_container.find_elements(By.CLASS_NAME, "list-item"))

        start_time = time.time()
        driver.execute_script("arguments[0].scrollTop = arguments[0].scrollHeight", list_container)

        # Wait for lazy loading
        WebDriverWait(driver, 5).until(
            lambda d: len(list_container.find_elements(By.CLASS_NAME, "list-item")) > initial_items
        )

        scroll_time = time.time() - start_time
        final_items = len(list_container.find_elements(By.CLASS_NAME, "list-item"))

        assert scroll_time < 2.0, f"Scroll took {scroll_time}s, expected < 2s"
        assert final_items > initial_items, "No new items loaded after scroll"
    finally:
        driver.quit()`,
		},
		{
			ID:            "form_submission_validation",
			ComponentType: "form",
			Description:   "Form input validation with required fields and successful submission",
			Tags:          []string{"form", "selenium", "input", "validation", "submit"},
			Complexity:    "medium",
			Source:        domain.SourceSeed,
			Template: `def test_{component_id}_form_submission():
    driver = webdriver.Chrome()
    try:
        driver.get('{base_url}')
        wait = WebDriverWait(driver, 10)

        form = wait.until(EC.presence_of_element_located((By.ID, "{component_id}")))
        inputs = form.find_elements(By.CSS_SELECTOR, "input:not([type=hidden]), textarea")
        assert len(inputs) > 0, "Form should expose input fields"

        # Submitting empty form must surface validation errors
        form.find_element(By.CSS_SELECTOR, "[type=submit]").click()
        errors = form.find_elements(By.CSS_SELECTOR, ".error, [aria-invalid=true]")
        assert len(errors) > 0, "Empty submission should be rejected"

        for field in inputs:
            field.clear()
            field.send_keys("valid input")
        form.find_element(By.CSS_SELECTOR, "[type=submit]").click()

        wait.until(lambda d: not form.find_elements(By.CSS_SELECTOR, ".error"))
    finally:
        driver.quit()`,
		},
		{
			ID:            "modal_show_hide",
			ComponentType: "modal",
			Description:   "Modal dialog open and close with focus handling and overlay behaviour",
			Tags:          []string{"modal", "dialog", "selenium", "accessibility", "overlay"},
			Complexity:    "simple",
			Source:        domain.SourceSeed,
			Template: `def test_{component_id}_show_hide():
    driver = webdriver.Chrome()
    try:
        driver.get('{base_url}')
        wait = WebDriverWait(driver, 10)

        trigger = driver.find_element(By.CSS_SELECTOR, '[data-target="{component_id}"]')
        trigger.click()

        modal = wait.until(EC.visibility_of_element_located((By.ID, "{component_id}")))
        assert modal.get_attribute("role") in ("dialog", "alertdialog")

        modal.find_element(By.CSS_SELECTOR, ".close, [aria-label=Close]").click()
        wait.until(EC.invisibility_of_element_located((By.ID, "{component_id}")))
    finally:
        driver.quit()`,
		},
	}
}
