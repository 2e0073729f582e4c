package links

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"unicode"

	"github.com/jaevor/go-nanoid"
)

const (
	DefaultKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	DefaultKeyLength   = 5
)

// RandomSource returns a uniform integer in [0, n). *math/rand/v2.Rand
// satisfies it, which keeps draws reproducible in tests.
type RandomSource interface {
	IntN(n int) int
}

// CryptoSource draws from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) IntN(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return int(v.Int64())
}

// RandomDrawer picks every position independently from the alphabet.
type RandomDrawer struct {
	alphabet []rune
	length   int
	src      RandomSource
}

func NewRandomDrawer(alphabet string, length int, src RandomSource) (*RandomDrawer, error) {
	chars := []rune(alphabet)
	if len(chars) == 0 {
		return nil, errors.New("key alphabet is empty")
	}
	if length <= 0 {
		return nil, fmt.Errorf("key length must be positive (got %d)", length)
	}
	if src == nil {
		src = CryptoSource{}
	}

	return &RandomDrawer{alphabet: chars, length: length, src: src}, nil
}

func (d *RandomDrawer) Draw() (string, error) {
	out := make([]rune, d.length)
	for i := range out {
		out[i] = d.alphabet[d.src.IntN(len(d.alphabet))]
	}
	return string(out), nil
}

// NanoidDrawer delegates to go-nanoid. It only accepts ASCII alphabets of
// 2 to 255 characters and lengths of 2 to 255.
type NanoidDrawer struct {
	generate func() string
}

func NewNanoidDrawer(alphabet string, length int) (*NanoidDrawer, error) {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > unicode.MaxASCII {
			return nil, errors.New("nanoid drawer: alphabet is not ascii")
		}
	}
	if len(alphabet) < 2 || len(alphabet) > 255 || length < 2 || length > 255 {
		return nil, fmt.Errorf("nanoid drawer: unsupported alphabet size %d or length %d", len(alphabet), length)
	}

	gen, err := nanoid.CustomASCII(alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("nanoid drawer: %w", err)
	}
	return &NanoidDrawer{generate: gen}, nil
}

func (d *NanoidDrawer) Draw() (string, error) {
	return d.generate(), nil
}

// NewKeyDrawer prefers nanoid and falls back to a crypto-backed RandomDrawer
// for configurations nanoid rejects.
func NewKeyDrawer(kind, alphabet string, length int) (KeyDrawer, error) {
	if kind != "random" {
		if d, err := NewNanoidDrawer(alphabet, length); err == nil {
			return d, nil
		}
	}
	return NewRandomDrawer(alphabet, length, CryptoSource{})
}
