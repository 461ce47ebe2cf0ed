package render

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces element ids for {{@ID}} tokens and insertion focus
// markers. Implementations must not repeat an id within a dialogue.
type IDGenerator interface {
	NewID() string
}

// IDPrefix starts every generated id so it is a valid HTML id.
const IDPrefix = "R"

// UUIDGenerator generates time-ordered ids from UUIDv7 values. A per-generator
// counter is mixed in so ids stay distinct even if the clock stalls.
type UUIDGenerator struct {
	seq atomic.Uint64
}

// NewUUIDGenerator returns a ready generator.
func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID implements IDGenerator.
func (g *UUIDGenerator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	n := g.seq.Add(1)

	var b strings.Builder
	b.Grow(len(IDPrefix) + 32 + 17)
	b.WriteString(IDPrefix)
	b.WriteString(strings.ReplaceAll(id.String(), "-", ""))
	b.WriteByte('-')
	b.WriteString(formatSeq(n))
	return b.String()
}

func formatSeq(n uint64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if n == 0 {
		return "0"
	}
	var buf [13]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = digits[n%36]
		n /= 36
	}
	return string(buf[i:])
}

// SequenceGenerator yields prefix1, prefix2, ... It is deterministic and
// meant for tests and golden output.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Uint64
}

// NewID implements IDGenerator.
func (g *SequenceGenerator) NewID() string {
	return g.Prefix + formatSeq(g.n.Add(1))
}
