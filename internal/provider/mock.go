package provider

import "context"

// Mock is the deterministic fallback used when a named provider's
// credentials are absent. Its response is stable so integration tests can
// assert on it.
type Mock struct{}

func (Mock) Name() string { return "mock" }

func (Mock) Complete(_ context.Context, _ string, prompt string) (string, error) {
	return "[mock] " + prompt, nil
}

// Echo answers for provider names outside the known variant set.
type Echo struct{}

func (Echo) Name() string { return "echo" }

func (Echo) Complete(_ context.Context, _ string, prompt string) (string, error) {
	return "[echo] " + prompt, nil
}
