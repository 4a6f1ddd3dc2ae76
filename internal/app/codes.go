package app

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCodeLength is the join-code length when none is configured.
	DefaultCodeLength = 6
	// DefaultCodeAlphabet omits 0/O/1/I/L to keep codes easy to type.
	DefaultCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// codeAllocator draws random join codes from a configured alphabet. Codes are
// generated uppercase and matched case-insensitively; collision checking is
// the store's job (ErrCodeInUse).
type codeAllocator struct {
	length   int
	alphabet string

	mu  sync.Mutex
	rnd *rand.Rand
}

func newCodeAllocator(length int, alphabet string) *codeAllocator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if alphabet == "" {
		alphabet = DefaultCodeAlphabet
	}
	return &codeAllocator{
		length:   length,
		alphabet: strings.ToUpper(alphabet),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *codeAllocator) newCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := make([]byte, c.length)
	for i := range b {
		b[i] = c.alphabet[c.rnd.Intn(len(c.alphabet))]
	}
	return string(b)
}

// normalizeCode folds participant-typed codes to the stored uppercase form.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
