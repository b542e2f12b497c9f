package e2e

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"kycgate/internal/webhook"
)

// RegisterSteps registers all step definitions.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Account steps
	ctx.Step(`^I register with email "([^"]*)" and password "([^"]*)"$`, tc.register)
	ctx.Step(`^I log in with email "([^"]*)" and password "([^"]*)"$`, tc.login)
	ctx.Step(`^I log out$`, tc.logout)
	ctx.Step(`^I drop my session cookie$`, tc.dropSession)

	// Verification steps
	ctx.Step(`^I request a verification access token$`, tc.requestAccessToken)
	ctx.Step(`^I submit document "([^"]*)" of type "([^"]*)"$`, tc.submitDocument)
	ctx.Step(`^the provider sends a signed "([^"]*)" event for the last check$`, tc.sendSignedEvent)
	ctx.Step(`^the provider sends an unsigned "([^"]*)" event for the last check$`, tc.sendUnsignedEvent)
	ctx.Step(`^the last check status should be "([^"]*)"$`, tc.lastCheckStatusShouldBe)

	// Request steps
	ctx.Step(`^I GET "([^"]*)"$`, tc.getPath)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
}

func (tc *TestContext) register(email, password string) error {
	return tc.POST("/register", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"email":     email,
		"password":  password,
	})
}

func (tc *TestContext) login(email, password string) error {
	return tc.POST("/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

func (tc *TestContext) logout() error {
	return tc.POST("/logout", nil)
}

func (tc *TestContext) dropSession() error {
	tc.ClearCookies()
	return nil
}

func (tc *TestContext) requestAccessToken() error {
	return tc.GET("/kyc-token")
}

func (tc *TestContext) submitDocument(documentID, documentType string) error {
	return tc.POST("/capture_document", map[string]any{
		"documentCapture": map[string]string{
			"documentId":   documentID,
			"documentType": documentType,
		},
	})
}

func (tc *TestContext) sendSignedEvent(eventType string) error {
	body := tc.eventBody(eventType)
	return tc.POSTRaw("/webhook", body, map[string]string{
		webhook.SignatureHeader: webhook.Sign(webhookSecret, body),
	})
}

func (tc *TestContext) sendUnsignedEvent(eventType string) error {
	return tc.POSTRaw("/webhook", tc.eventBody(eventType), nil)
}

func (tc *TestContext) eventBody(eventType string) []byte {
	tc.mu.Lock()
	checkID := tc.LastCheckID
	tc.mu.Unlock()
	return []byte(fmt.Sprintf(`{"type":%q,"payload":{"id":%q}}`, eventType, checkID))
}

func (tc *TestContext) lastCheckStatusShouldBe(expected string) error {
	tc.mu.Lock()
	checkID := tc.LastCheckID
	tc.mu.Unlock()

	check, err := tc.Checks.FindByCheckID(context.Background(), checkID)
	if err != nil {
		return fmt.Errorf("look up check %s: %w", checkID, err)
	}
	if string(check.Status) != expected {
		return fmt.Errorf("expected status %s, got %s", expected, check.Status)
	}
	return nil
}

func (tc *TestContext) getPath(path string) error {
	return tc.GET(path)
}

func (tc *TestContext) responseStatusShouldBe(expected int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s",
			expected, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(expected string) error {
	if !strings.Contains(string(tc.LastResponseBody), expected) {
		return fmt.Errorf("response does not contain %q: %s", expected, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected field %q to equal %q, got %v", field, expected, value)
	}
	return nil
}
