package e2e

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the Movido server is running$`, tc.serverIsRunning)

	// Checkout steps
	ctx.Step(`^I request a checkout session for price "([^"]*)"$`, tc.requestCheckout)
	ctx.Step(`^I request a checkout session with empty body$`, tc.requestCheckoutEmpty)
	ctx.Step(`^I request a checkout session with malformed JSON$`, tc.requestCheckoutMalformed)
	ctx.Step(`^I send a preflight request to "([^"]*)"$`, tc.preflight)

	// Catalog steps
	ctx.Step(`^I fetch the plan catalog$`, tc.fetchPlans)

	// Health steps
	ctx.Step(`^I check liveness$`, tc.checkLiveness)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the catalog should list (\d+) plans$`, tc.catalogShouldListPlans)
	ctx.Step(`^the response header "([^"]*)" should equal "([^"]*)"$`, tc.responseHeaderShouldEqual)
}

func (tc *TestContext) serverIsRunning(ctx context.Context) error {
	return nil
}

func (tc *TestContext) requestCheckout(ctx context.Context, priceID string) error {
	return tc.POST("/create-checkout-session", map[string]interface{}{
		"priceId": priceID,
	})
}

func (tc *TestContext) requestCheckoutEmpty(ctx context.Context) error {
	return tc.POST("/create-checkout-session", map[string]interface{}{})
}

func (tc *TestContext) requestCheckoutMalformed(ctx context.Context) error {
	return tc.POSTRaw("/create-checkout-session", `{"priceId":`)
}

func (tc *TestContext) preflight(ctx context.Context, path string) error {
	return tc.OPTIONS(path)
}

func (tc *TestContext) fetchPlans(ctx context.Context) error {
	return tc.GET("/billing/plans")
}

func (tc *TestContext) checkLiveness(ctx context.Context) error {
	return tc.GET("/health/live")
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, status int) error {
	if tc.GetLastResponseStatus() != status {
		return fmt.Errorf("expected status %d, got %d: %s",
			status, tc.GetLastResponseStatus(), string(tc.GetLastResponseBody()))
	}
	return nil
}

func (tc *TestContext) responseShouldContain(ctx context.Context, text string) error {
	if !tc.ResponseContains(text) {
		return fmt.Errorf("response does not contain %q: %s", text, string(tc.GetLastResponseBody()))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("expected field %s to equal %q, got %v", field, expected, value)
	}
	return nil
}

func (tc *TestContext) catalogShouldListPlans(ctx context.Context, count int) error {
	var data struct {
		Plans []json.RawMessage `json:"plans"`
	}
	if err := json.Unmarshal(tc.GetLastResponseBody(), &data); err != nil {
		return fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	if len(data.Plans) != count {
		return fmt.Errorf("expected %d plans, got %d", count, len(data.Plans))
	}
	return nil
}

func (tc *TestContext) responseHeaderShouldEqual(ctx context.Context, header, expected string) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response recorded")
	}
	if got := tc.LastResponse.Header.Get(header); got != expected {
		return fmt.Errorf("expected header %s to equal %q, got %q", header, expected, got)
	}
	return nil
}
