package engine

import (
	"sync"

	"github.com/google/uuid"
)

// UUIDv7Generator names runs with UUIDv7 tokens. The timestamp prefix makes
// tokens of later runs sort after earlier ones. Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate implements RunTokenGenerator.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of run tokens, one per interpreter,
// so journal rows and golden traces are reproducible.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
}

// NewFixedGenerator returns a generator that yields tokens in order.
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate implements RunTokenGenerator. It panics once the list is used
// up: more runs were started than tokens were declared.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.tokens) == 0 {
		panic("engine: FixedGenerator has no tokens left")
	}
	token := g.tokens[0]
	g.tokens = g.tokens[1:]
	return token
}
