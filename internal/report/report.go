// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/marcelocantos/auditsum/internal/stats"
)

// Format selects the report encoding.
type Format int

const (
	FormatYAML Format = iota // block-structured mapping (default)
	FormatJSON               // pretty-printed nested objects
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown format")

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat converts a format name to a Format. The empty string selects
// YAML.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return 0, fmt.Errorf("%w: %q (want yaml or json)", ErrUnknownFormat, s)
	}
}

// Write serializes t to w. Nothing is written if encoding fails.
func Write(w io.Writer, t *stats.Table, f Format) error {
	data, err := Render(t, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Render returns the encoded report.
func Render(t *stats.Table, f Format) ([]byte, error) {
	switch f {
	case FormatYAML:
		return renderYAML(t)
	case FormatJSON:
		data, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json report: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
}

func renderYAML(t *stats.Table) ([]byte, error) {
	root := mapping()
	for _, subject := range t.Subjects() {
		fields := mapping()
		for _, field := range t.Fields(subject) {
			values := mapping()
			for _, vc := range t.Values(subject, field) {
				values.Content = append(values.Content, key(vc.Value), count(vc.Count))
			}
			fields.Content = append(fields.Content, key(field), values)
		}
		root.Content = append(root.Content, key(subject), fields)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode yaml report: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml report: %w", err)
	}
	return buf.Bytes(), nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// key always encodes as a string, so values like 0 or "yes" round-trip as
// text rather than numbers or booleans.
func key(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func count(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(n)}
}
