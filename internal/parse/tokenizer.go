// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package parse

import "strings"

// NextSplit returns the byte offset of the next space in line that is outside
// any quoted span and at parenthesis depth zero. It returns 0 when no such
// space exists, meaning the remainder of line is a single token.
//
// Paren depth is not clamped, so unbalanced ')' in malformed input drives it
// negative and suppresses splitting until it returns to zero.
func NextSplit(line string) int {
	depth := 0
	single := false
	double := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ':
			if depth == 0 && !single && !double {
				return i
			}
		case '"':
			if !single && depth == 0 {
				double = !double
			}
		case '\'':
			if !double && depth == 0 {
				single = !single
			}
		case '(':
			if !single && !double {
				depth++
			}
		case ')':
			if !single && !double {
				depth--
			}
		}
	}
	return 0
}

// Tokens splits a line into raw key=value tokens using NextSplit.
// The line is trimmed first, so a zero split offset always means the
// remainder is the final token.
func Tokens(line string) []string {
	var tokens []string
	line = strings.TrimSpace(line)
	for line != "" {
		next := NextSplit(line)
		if next == 0 {
			tokens = append(tokens, line)
			break
		}
		if tok := strings.TrimSpace(line[:next]); tok != "" {
			tokens = append(tokens, tok)
		}
		line = strings.TrimSpace(line[next:])
	}
	return tokens
}
