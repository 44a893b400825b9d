// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package input

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// Format describes how lines of the input are laid out.
type Format int

const (
	FormatAuto    Format = iota // journal if the first line is a journal entry, else raw
	FormatRaw                   // one audit record per line (default)
	FormatJournal               // journalctl -o json; the record is MESSAGE
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown input format")

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatRaw:
		return "raw"
	case FormatJournal:
		return "journal"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ParseFormat converts a name to a Format. The empty string is raw.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "auto":
		return FormatAuto, nil
	case "raw", "":
		return FormatRaw, nil
	case "journal":
		return FormatJournal, nil
	default:
		return 0, fmt.Errorf("%w: %q (want auto, raw or journal)", ErrUnknownFormat, s)
	}
}

// Document is the fully read input.
type Document struct {
	Source  string   // path, or "-" for stdin
	Format  Format   // resolved format, never FormatAuto
	Lines   []string // audit records, in input order
	Dropped int      // journal lines without a usable MESSAGE
}

// Open returns a reader for path. Stdin is wrapped so that closing it is a
// no-op.
func Open(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "" || path == Stdin {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	return f, nil
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Decode wraps r in a decompressor when it starts with a gzip or zstd
// header. Plain text passes through.
func Decode(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read input: %w", err)
	}
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return dec.IOReadCloser(), nil
	case bytes.HasPrefix(head, gzipMagic):
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	default:
		return io.NopCloser(br), nil
	}
}

// Load reads the whole input at path (or stdin), decompresses it and splits
// it into records. Nothing is parsed until everything has been read.
func Load(ctx context.Context, path string, stdin io.Reader, format Format) (*Document, error) {
	if path == "" {
		path = Stdin
	}
	src, err := Open(path, stdin)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	r, err := Decode(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(contextReader{ctx: ctx, r: r})
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}

	doc := &Document{Source: path}
	lines := Lines(string(data))
	if format == FormatAuto {
		format = sniff(lines)
	}
	doc.Format = format
	if format == FormatJournal {
		doc.Lines, doc.Dropped = Messages(lines)
	} else {
		doc.Lines = lines
	}
	return doc, nil
}

// Lines splits text on '\n', dropping one trailing '\r' per line. A final
// newline does not produce an empty last line.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// sniff picks journal only when the first non-blank line is a JSON object
// carrying a string MESSAGE. Raw audit text may itself start with '{'.
func sniff(lines []string) Format {
	var p fastjson.Parser
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		if _, ok := message(&p, l); ok {
			return FormatJournal
		}
		return FormatRaw
	}
	return FormatRaw
}

// Messages extracts the MESSAGE string of each journal JSON line. Blank
// lines are ignored; lines that are not objects or carry no string MESSAGE
// are dropped and counted.
func Messages(lines []string) ([]string, int) {
	var p fastjson.Parser
	out := make([]string, 0, len(lines))
	dropped := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		msg, ok := message(&p, l)
		if !ok {
			dropped++
			continue
		}
		out = append(out, msg)
	}
	return out, dropped
}

func message(p *fastjson.Parser, line string) (string, bool) {
	v, err := p.Parse(line)
	if err != nil || v.Type() != fastjson.TypeObject {
		return "", false
	}
	msg := v.Get("MESSAGE")
	if msg == nil || msg.Type() != fastjson.TypeString {
		return "", false
	}
	return string(msg.GetStringBytes()), true
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
