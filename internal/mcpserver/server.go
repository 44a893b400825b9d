// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package mcpserver exposes the audit summarizer as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/marcelocantos/auditsum/internal/filter"
	"github.com/marcelocantos/auditsum/internal/input"
	"github.com/marcelocantos/auditsum/internal/logging"
	"github.com/marcelocantos/auditsum/internal/report"
	"github.com/marcelocantos/auditsum/internal/runlog"
	"github.com/marcelocantos/auditsum/internal/summary"
)

// ToolName is the name of the summarizer tool.
const ToolName = "summarize_audit_log"

// Source is recorded in the run history for tool calls.
const Source = "mcp"

// Defaults apply when a tool call omits an argument.
type Defaults struct {
	Format  report.Format
	Strict  bool
	Filter  string
	Workers int
}

// Server handles summarize_audit_log calls.
type Server struct {
	defaults Defaults
	log      *zap.SugaredLogger
	history  *runlog.Logger // nil disables run history
}

// New returns a Server. history may be nil.
func New(defaults Defaults, log *zap.SugaredLogger, history *runlog.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{defaults: defaults, log: log, history: history}
}

// Tool describes the summarizer tool.
func Tool() mcp.Tool {
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Summarize Linux audit log text into per-subject field/value frequency counts."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Audit log records, one per line, as space-separated key=value tokens."),
		),
		mcp.WithString("format",
			mcp.Description("Report format."),
			mcp.Enum("yaml", "json"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Fail on tokens without '=' instead of skipping them."),
		),
		mcp.WithString("filter",
			mcp.Description("Starlark expression selecting records, e.g. uid == 0."),
		),
	)
}

// MCP builds the protocol server with the tool registered.
func (s *Server) MCP(version string) *server.MCPServer {
	ms := server.NewMCPServer("auditsum", version, server.WithToolCapabilities(false))
	ms.AddTool(Tool(), s.Handle)
	return ms
}

// Serve speaks MCP on stdin/stdout until ctx is cancelled or stdin closes.
func (s *Server) Serve(ctx context.Context, version string, stdin io.Reader, stdout io.Writer) error {
	return server.NewStdioServer(s.MCP(version)).Listen(ctx, stdin, stdout)
}

// Handle runs one summary. Input, parse and filter failures are reported as
// tool errors.
func (s *Server) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	format := s.defaults.Format
	if v := req.GetString("format", ""); v != "" {
		if format, err = report.ParseFormat(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	strict := req.GetBool("strict", s.defaults.Strict)
	expr := req.GetString("filter", s.defaults.Filter)

	out, res, subjects, err := s.summarize(ctx, text, format, strict, expr)
	entry := runlog.Entry{
		Source:        Source,
		Format:        format.String(),
		InputFormat:   input.FormatRaw.String(),
		Strict:        strict,
		Filter:        expr,
		Lines:         res.Lines,
		Records:       res.Records,
		Filtered:      res.Filtered,
		Subjects:      subjects,
		SkippedTokens: res.SkippedTokens,
	}
	if err != nil {
		entry.ExitCode, entry.Error = 1, err.Error()
		s.record(entry, time.Since(start))
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.record(entry, time.Since(start))
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) summarize(ctx context.Context, text string, format report.Format, strict bool, expr string) ([]byte, summary.Result, int, error) {
	opts := summary.Options{Strict: strict, Workers: s.defaults.Workers, Logger: s.log}
	if expr != "" {
		f, err := filter.Compile(expr)
		if err != nil {
			return nil, summary.Result{}, 0, err
		}
		opts.Filter = f
	}
	table, res, err := summary.Summarize(ctx, input.Lines(text), opts)
	if err != nil {
		return nil, res, 0, err
	}
	out, err := report.Render(table, format)
	if err != nil {
		return nil, res, table.Len(), fmt.Errorf("render report: %w", err)
	}
	return out, res, table.Len(), nil
}

func (s *Server) record(e runlog.Entry, d time.Duration) {
	if s.history == nil {
		return
	}
	if _, err := s.history.Log(e, d); err != nil {
		s.log.Warnw("run history write failed", "error", err)
	}
}
