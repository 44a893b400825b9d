// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package filter selects records with a Starlark boolean expression.
//
// Every known record field is bound by name: strings as str, numbers as int
// and absent fields as None. The record's subject is bound as subject.
//
//	type == "SYSCALL" and uid == 0
//	exe != None and exe.startswith("/usr/bin/")
package filter

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/marcelocantos/auditsum/internal/parse"
)

var fileOptions = &syntax.FileOptions{}

// Filter is a validated expression. Match parses its own syntax tree on
// every call, so a Filter is safe for concurrent use.
type Filter struct {
	src string
}

// Compile parses expr. Syntax errors are reported here rather than on first
// use.
func Compile(expr string) (*Filter, error) {
	if _, err := fileOptions.ParseExpr("filter", expr, 0); err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return &Filter{src: expr}, nil
}

// String returns the source expression.
func (f *Filter) String() string {
	return f.src
}

// Match evaluates the expression against r and returns its truth value.
func (f *Filter) Match(r *parse.Record) (bool, error) {
	thread := &starlark.Thread{Name: "filter"}
	v, err := starlark.EvalOptions(fileOptions, thread, "filter", f.src, env(r))
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q: %w", f.src, err)
	}
	return bool(v.Truth()), nil
}

func env(r *parse.Record) starlark.StringDict {
	names := parse.FieldNames()
	d := make(starlark.StringDict, len(names)+1)
	for _, name := range names {
		v, ok := r.Lookup(name)
		if !ok {
			d[name] = starlark.None
			continue
		}
		switch v := v.(type) {
		case string:
			d[name] = starlark.String(v)
		case uint32:
			d[name] = starlark.MakeUint(uint(v))
		}
	}
	d["subject"] = starlark.String(r.Subject())
	return d
}
