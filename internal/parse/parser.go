// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package parse

import (
	"errors"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrMissingEquals is returned in strict mode for a token with no '='.
var ErrMissingEquals = errors.New("token has no '='")

// Pairs holds the key/value pairs of one line in first-seen key order.
// Setting an existing key replaces its value but keeps its position.
type Pairs struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewPairs returns an empty Pairs.
func NewPairs() *Pairs {
	return &Pairs{m: orderedmap.New[string, string]()}
}

// Set stores value under key.
func (p *Pairs) Set(key, value string) {
	p.m.Set(key, value)
}

// Get returns the value stored under key.
func (p *Pairs) Get(key string) (string, bool) {
	return p.m.Get(key)
}

// Len returns the number of distinct keys.
func (p *Pairs) Len() int {
	return p.m.Len()
}

// Keys returns the keys in first-seen order.
func (p *Pairs) Keys() []string {
	keys := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// SplitToken cuts a raw token on its first '=' and strips the wrapping
// punctuation from both halves. ok is false when the token has no '='.
func SplitToken(tok string) (key, value string, ok bool) {
	k, v, found := strings.Cut(tok, "=")
	if !found {
		return "", "", false
	}
	return StripKey(k), StripValue(v), true
}

// Parser turns audit lines into Records.
type Parser struct {
	// Strict makes a token without '=' an error instead of skipping it.
	Strict bool
}

// ParsePairs splits line into its key/value pairs. It returns the number of
// tokens skipped for lacking '='; in strict mode the first such token is an
// error wrapping ErrMissingEquals.
func (p Parser) ParsePairs(line string) (*Pairs, int, error) {
	pairs := NewPairs()
	skipped := 0
	for _, tok := range Tokens(line) {
		key, value, ok := SplitToken(tok)
		if !ok {
			if p.Strict {
				return nil, skipped, fmt.Errorf("%w: %q", ErrMissingEquals, tok)
			}
			skipped++
			continue
		}
		pairs.Set(key, value)
	}
	return pairs, skipped, nil
}

// Parse parses one line into a Record.
func (p Parser) Parse(line string) (*Record, int, error) {
	pairs, skipped, err := p.ParsePairs(line)
	if err != nil {
		return nil, skipped, err
	}
	return NewRecord(pairs), skipped, nil
}

// ParseLine parses line leniently.
func ParseLine(line string) *Record {
	r, _, _ := Parser{}.Parse(line)
	return r
}
