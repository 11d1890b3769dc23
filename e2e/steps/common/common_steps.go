package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	Do(principal, method, path string, body any) error
	StatusCode() int
	Body() []byte
	ErrorCode() (string, error)
	ResponseField(path string) (any, error)
	AuditActions(ctx context.Context) ([]string, error)
}

// RegisterSteps registers request and assertion steps shared by all features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I request "([^"]*)"$`, steps.anonymousGet)
	ctx.Step(`^"([^"]*)" sends a (GET|POST|PUT) request to "([^"]*)"$`, steps.send)
	ctx.Step(`^I send a (GET|POST|PUT) request to "([^"]*)" without a token$`, steps.sendAnonymous)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the request should fail with "([^"]*)"$`, steps.shouldFailWith)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the audit log should record (\d+) "([^"]*)" events?$`, steps.auditShouldRecord)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) anonymousGet(path string) error {
	return s.tc.Do("", "GET", path, nil)
}

func (s *commonSteps) send(principal, method, path string) error {
	return s.tc.Do(principal, method, path, nil)
}

func (s *commonSteps) sendAnonymous(method, path string) error {
	return s.tc.Do("", method, path, nil)
}

func (s *commonSteps) statusShouldBe(expected int) error {
	if got := s.tc.StatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.Body())
	}
	return nil
}

func (s *commonSteps) shouldFailWith(code string) error {
	if s.tc.StatusCode() < 400 {
		return fmt.Errorf("expected failure %q, got status %d: %s", code, s.tc.StatusCode(), s.tc.Body())
	}
	got, err := s.tc.ErrorCode()
	if err != nil {
		return err
	}
	if got != code {
		return fmt.Errorf("expected error %q, got %q", code, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(field, expected string) error {
	value, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	var got string
	switch v := value.(type) {
	case float64:
		got = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		got = fmt.Sprint(v)
	}
	if got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) auditShouldRecord(ctx context.Context, count int, action string) error {
	actions, err := s.tc.AuditActions(ctx)
	if err != nil {
		return err
	}
	got := 0
	for _, a := range actions {
		if a == action {
			got++
		}
	}
	if got != count {
		return fmt.Errorf("expected %d %q events, got %d (%v)", count, action, got, actions)
	}
	return nil
}
