// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/marcelocantos/auditsum/internal/parse"
)

// Counted lists the fields folded into the table, in the order they are
// first recorded for a new subject. hash is deliberately absent: it only
// takes part in choosing the subject.
var Counted = []string{
	"type", "exe", "msg", "file",
	"sig", "ppid", "pid", "auid",
	"uid", "gid", "euid", "suid", "fsuid",
	"egid", "sgid", "fsgid",
	"tty", "ses", "comm",
}

type (
	valueCounts = orderedmap.OrderedMap[string, int]
	fieldCounts = orderedmap.OrderedMap[string, *valueCounts]
)

// Table counts subject -> field -> value occurrences. Keys at every level
// iterate in first-insertion order. A Table is not safe for concurrent use.
type Table struct {
	subjects *orderedmap.OrderedMap[string, *fieldCounts]
}

// ValueCount is one value and how often it was seen.
type ValueCount struct {
	Value string
	Count int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{subjects: orderedmap.New[string, *fieldCounts]()}
}

// Add folds one record into the table. The record's subject gets a bucket
// even when none of its counted fields are present.
func (t *Table) Add(r *parse.Record) {
	subject := r.Subject()
	fields := t.bucket(subject)
	for _, name := range Counted {
		if value, ok := r.Text(name); ok {
			incr(fields, name, value, 1)
		}
	}
}

// Increment adds one to the count of (subject, field, value).
func (t *Table) Increment(subject, field, value string) {
	incr(t.bucket(subject), field, value, 1)
}

// Merge adds every count in other to t. New keys are appended in other's
// order after t's existing keys.
func (t *Table) Merge(other *Table) {
	for sp := other.subjects.Oldest(); sp != nil; sp = sp.Next() {
		fields := t.bucket(sp.Key)
		for fp := sp.Value.Oldest(); fp != nil; fp = fp.Next() {
			for vp := fp.Value.Oldest(); vp != nil; vp = vp.Next() {
				incr(fields, fp.Key, vp.Key, vp.Value)
			}
		}
	}
}

func (t *Table) bucket(subject string) *fieldCounts {
	fields, ok := t.subjects.Get(subject)
	if !ok {
		fields = orderedmap.New[string, *valueCounts]()
		t.subjects.Set(subject, fields)
	}
	return fields
}

func incr(fields *fieldCounts, field, value string, n int) {
	values, ok := fields.Get(field)
	if !ok {
		values = orderedmap.New[string, int]()
		fields.Set(field, values)
	}
	count, _ := values.Get(value)
	values.Set(value, count+n)
}

// Count returns how often value was seen for (subject, field), or 0.
func (t *Table) Count(subject, field, value string) int {
	fields, ok := t.subjects.Get(subject)
	if !ok {
		return 0
	}
	values, ok := fields.Get(field)
	if !ok {
		return 0
	}
	n, _ := values.Get(value)
	return n
}

// Len returns the number of subjects.
func (t *Table) Len() int {
	return t.subjects.Len()
}

// Subjects returns subject keys in first-seen order.
func (t *Table) Subjects() []string {
	keys := make([]string, 0, t.subjects.Len())
	for p := t.subjects.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Fields returns the field names recorded for subject in first-seen order.
func (t *Table) Fields(subject string) []string {
	fields, ok := t.subjects.Get(subject)
	if !ok {
		return nil
	}
	keys := make([]string, 0, fields.Len())
	for p := fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Values returns the values and counts recorded for (subject, field) in
// first-seen order.
func (t *Table) Values(subject, field string) []ValueCount {
	fields, ok := t.subjects.Get(subject)
	if !ok {
		return nil
	}
	values, ok := fields.Get(field)
	if !ok {
		return nil
	}
	out := make([]ValueCount, 0, values.Len())
	for p := values.Oldest(); p != nil; p = p.Next() {
		out = append(out, ValueCount{Value: p.Key, Count: p.Value})
	}
	return out
}

// MarshalJSON encodes the table as nested JSON objects in insertion order.
func (t *Table) MarshalJSON() ([]byte, error) {
	return t.subjects.MarshalJSON()
}
