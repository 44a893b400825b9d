// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package parse

import (
	"strconv"
	"strings"
)

// Record is one parsed audit line. A nil field means the key did not appear
// on the line. A present numeric field whose text was not a valid number
// holds 0.
type Record struct {
	Type *string // record type, e.g. SYSCALL
	Msg  *string // audit(<time>:<serial>)
	File *string
	Hash *string
	TTY  *string
	Ses  *string
	Comm *string
	Exe  *string

	PPID  *uint32
	PID   *uint32
	AUID  *uint32
	UID   *uint32
	GID   *uint32
	EUID  *uint32
	SUID  *uint32
	FSUID *uint32
	EGID  *uint32
	SGID  *uint32
	FSGID *uint32
	Sig   *uint32
}

// Unknown is the subject of a record that names no file, executable,
// command or hash.
const Unknown = "UNKNOWN"

type field struct {
	name string
	str  func(r *Record) **string
	num  func(r *Record) **uint32
}

var fields = []field{
	{name: "type", str: func(r *Record) **string { return &r.Type }},
	{name: "msg", str: func(r *Record) **string { return &r.Msg }},
	{name: "file", str: func(r *Record) **string { return &r.File }},
	{name: "hash", str: func(r *Record) **string { return &r.Hash }},
	{name: "ppid", num: func(r *Record) **uint32 { return &r.PPID }},
	{name: "pid", num: func(r *Record) **uint32 { return &r.PID }},
	{name: "auid", num: func(r *Record) **uint32 { return &r.AUID }},
	{name: "uid", num: func(r *Record) **uint32 { return &r.UID }},
	{name: "gid", num: func(r *Record) **uint32 { return &r.GID }},
	{name: "euid", num: func(r *Record) **uint32 { return &r.EUID }},
	{name: "suid", num: func(r *Record) **uint32 { return &r.SUID }},
	{name: "fsuid", num: func(r *Record) **uint32 { return &r.FSUID }},
	{name: "egid", num: func(r *Record) **uint32 { return &r.EGID }},
	{name: "sgid", num: func(r *Record) **uint32 { return &r.SGID }},
	{name: "fsgid", num: func(r *Record) **uint32 { return &r.FSGID }},
	{name: "sig", num: func(r *Record) **uint32 { return &r.Sig }},
	{name: "tty", str: func(r *Record) **string { return &r.TTY }},
	{name: "ses", str: func(r *Record) **string { return &r.Ses }},
	{name: "comm", str: func(r *Record) **string { return &r.Comm }},
	{name: "exe", str: func(r *Record) **string { return &r.Exe }},
}

var fieldIndex = func() map[string]field {
	m := make(map[string]field, len(fields))
	for _, f := range fields {
		m[f.name] = f
	}
	return m
}()

// FieldNames returns the keys a Record understands.
func FieldNames() []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}

// IsNumeric reports whether the named field holds a number.
func IsNumeric(name string) bool {
	f, ok := fieldIndex[name]
	return ok && f.num != nil
}

// NewRecord builds a Record from the key/value pairs of one line. Keys that
// are not known fields are ignored.
func NewRecord(p *Pairs) *Record {
	r := &Record{}
	for _, f := range fields {
		v, ok := p.Get(f.name)
		if !ok {
			continue
		}
		if f.str != nil {
			s := v
			*f.str(r) = &s
		} else {
			n := parseUint(v)
			*f.num(r) = &n
		}
	}
	return r
}

// parseUint parses base-10 text, yielding 0 for anything malformed or out of
// range.
func parseUint(s string) uint32 {
	if len(s) > 1 && s[0] == '+' {
		s = s[1:]
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// Lookup returns the value of the named field as a string or uint32.
// It reports false when the field is absent or unknown.
func (r *Record) Lookup(name string) (any, bool) {
	f, ok := fieldIndex[name]
	if !ok {
		return nil, false
	}
	if f.str != nil {
		if p := *f.str(r); p != nil {
			return *p, true
		}
		return nil, false
	}
	if p := *f.num(r); p != nil {
		return *p, true
	}
	return nil, false
}

// Text returns the named field rendered as text, numbers in base 10.
func (r *Record) Text(name string) (string, bool) {
	v, ok := r.Lookup(name)
	if !ok {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	}
	return "", false
}

// Subject picks the entity a record is attributed to: file, then exe, then
// comm, then hash, then Unknown.
func (r *Record) Subject() string {
	for _, p := range []*string{r.File, r.Exe, r.Comm, r.Hash} {
		if p != nil {
			return *p
		}
	}
	return Unknown
}

// StripKey removes any mix of quotes and parentheses wrapping a key.
func StripKey(key string) string {
	return strings.Trim(key, `"'()`)
}

// StripValue removes any mix of quotes wrapping a value. Parentheses are kept.
func StripValue(value string) string {
	return strings.Trim(value, `"'`)
}
