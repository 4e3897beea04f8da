package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hasaranga/wmi-mcp/internal/wmi"
)

const defaultMaxLineBytes = 1024 * 1024

// QueryExecutor runs one WQL query against one namespace.
type QueryExecutor interface {
	Execute(namespace, query string) wmi.QueryResult
}

type Options struct {
	Name             string
	Version          string
	ProtocolVersion  string
	DefaultNamespace string
	MaxLineBytes     int
	Input            io.Reader
	Output           io.Writer
	Logger           *logrus.Logger
}

type Server struct {
	mu       sync.Mutex
	logger   *logrus.Logger
	executor QueryExecutor
	input    io.Reader
	output   io.Writer
	encoder  *json.Encoder

	info             Implementation
	protocolVersion  string
	defaultNamespace string
	maxLineBytes     int
	capabilities     Capabilities
	tools            []Tool
}

func NewServer(executor QueryExecutor, opts Options) *Server {
	if opts.Name == "" {
		opts.Name = "wmi-query-mcp"
	}
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}
	if opts.ProtocolVersion == "" {
		opts.ProtocolVersion = "2024-11-05"
	}
	if opts.DefaultNamespace == "" {
		opts.DefaultNamespace = wmi.DefaultNamespace
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = defaultMaxLineBytes
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}

	encoder := json.NewEncoder(opts.Output)
	encoder.SetEscapeHTML(false)

	return &Server{
		logger:           opts.Logger,
		executor:         executor,
		input:            opts.Input,
		output:           opts.Output,
		encoder:          encoder,
		info:             Implementation{Name: opts.Name, Version: opts.Version},
		protocolVersion:  opts.ProtocolVersion,
		defaultNamespace: opts.DefaultNamespace,
		maxLineBytes:     opts.MaxLineBytes,
		capabilities: Capabilities{
			Tools: &ToolsCapabilities{},
		},
		tools: initializeTools(opts.DefaultNamespace),
	}
}

// Run serves requests until the input ends or ctx is cancelled. Each request
// is answered before the next line is read.
func (s *Server) Run(ctx context.Context) error {
	reader := bufio.NewReader(s.input)

	for {
		line, tooLong, err := readLine(reader, s.maxLineBytes)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read error: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var resp *Response
		switch {
		case tooLong:
			s.logger.WithField("max_line_bytes", s.maxLineBytes).Warn("Request line too long")
			resp = parseError()
		case len(line) == 0:
			continue
		default:
			resp = s.HandleLine(line)
		}

		if err := s.write(resp); err != nil {
			s.logger.WithError(err).Error("Failed to encode response")
		}
	}
}

// readLine returns the next line without its line ending. A line longer than
// limit is drained up to the next newline and reported as tooLong. io.EOF is
// returned only once no bytes are left.
func readLine(r *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	read := false
	for {
		chunk, rerr := r.ReadSlice('\n')
		if len(chunk) > 0 {
			read = true
		}
		if !tooLong {
			// Room for a trailing "\r\n".
			if len(line)+len(chunk) > limit+2 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}

		if rerr == bufio.ErrBufferFull {
			continue
		}
		if rerr != nil && !(rerr == io.EOF && read) {
			return nil, false, rerr
		}
		break
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !tooLong && len(line) > limit {
		return nil, true, nil
	}
	return line, tooLong, nil
}

func parseError() *Response {
	return NewErrorResponse(nil, NewError(CodeParseError, "Parse error", nil))
}

// HandleLine answers one raw request line.
func (s *Server) HandleLine(line []byte) *Response {
	req, err := parseRequest(line)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to unmarshal request")
		return parseError()
	}
	if len(req.ID) == 0 {
		req.ID = json.RawMessage("null")
	}
	return s.handleRequest(req)
}

// parseRequest accepts only JSON objects. Keys are matched exactly and only
// id, method and params are read; method must be a string when present.
func parseRequest(line []byte) (*Request, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("request is not a JSON object")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, err
	}

	req := &Request{ID: fields["id"], Params: fields["params"]}
	if raw, ok := fields["method"]; ok {
		method, err := stringField(raw)
		if err != nil {
			return nil, fmt.Errorf("method: %w", err)
		}
		req.Method = RequestMethod(method)
	}
	return req, nil
}

// stringField decodes raw as a JSON string. null is not a string.
func stringField(raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", errors.New("expected string, got null")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}

func (s *Server) write(resp *Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.encoder.Encode(resp); err != nil {
		return err
	}
	if f, ok := s.output.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func (s *Server) handleRequest(req *Request) *Response {
	s.logger.WithField("method", req.Method).Debug("Handling request")

	switch req.Method {
	case MethodInitialize:
		return s.handleInitialize(req)
	case MethodListTools:
		return s.handleListTools(req)
	case MethodCallTool:
		return s.handleCallTool(req)
	case MethodPing:
		return s.handlePing(req)
	default:
		return methodNotFound(req)
	}
}

func methodNotFound(req *Request) *Response {
	return NewErrorResponse(req.ID, NewError(CodeMethodNotFound, "Method not found", nil))
}

func (s *Server) handleInitialize(req *Request) *Response {
	result := InitializeResult{
		ProtocolVersion: s.protocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.info,
	}

	return s.respond(req, result)
}

func (s *Server) handleListTools(req *Request) *Response {
	return s.respond(req, ListToolsResult{Tools: s.tools})
}

func (s *Server) handleCallTool(req *Request) *Response {
	params, ok := decodeCallToolParams(req.Params)
	if !ok || params.Name != queryToolName {
		return methodNotFound(req)
	}

	result, rpcErr := s.executeQueryTool(params.Arguments)
	if rpcErr != nil {
		return NewErrorResponse(req.ID, rpcErr)
	}

	return s.respond(req, result)
}

func (s *Server) handlePing(req *Request) *Response {
	return s.respond(req, map[string]interface{}{})
}

func (s *Server) respond(req *Request, result interface{}) *Response {
	resp, err := NewResponse(req.ID, result)
	if err != nil {
		s.logger.WithError(err).WithField("method", req.Method).Error("Failed to build response")
		return NewErrorResponse(req.ID, NewError(CodeInternalError, "Internal error", err.Error()))
	}

	return resp
}
