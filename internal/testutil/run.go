package testutil

// DefaultRunToken is used when a scenario does not name its run.
const DefaultRunToken = "test-run-default"

// FixedRunGenerator generates the same run token every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedRunGenerator produces byte-identical
// journals.
//
// Unlike engine.FixedGenerator which returns tokens in sequence, this generator
// always returns the same token.
//
// Thread-safety: FixedRunGenerator is stateless and safe for concurrent use.
type FixedRunGenerator struct {
	token string
}

// NewFixedRunGenerator creates a new fixed run token generator.
//
// If token is empty, Generate() returns DefaultRunToken.
func NewFixedRunGenerator(token string) *FixedRunGenerator {
	if token == "" {
		token = DefaultRunToken
	}
	return &FixedRunGenerator{token: token}
}

// Generate returns the fixed run token.
//
// Implements engine.RunTokenGenerator interface.
func (g *FixedRunGenerator) Generate() string {
	return g.token
}
