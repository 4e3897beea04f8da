package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type RequestMethod string

const (
	MethodInitialize RequestMethod = "initialize"
	MethodListTools  RequestMethod = "tools/list"
	MethodCallTool   RequestMethod = "tools/call"
	MethodPing       RequestMethod = "ping"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request holds the members the server reads. jsonrpc is not checked.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method RequestMethod   `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response always carries an id; a nil ID is written as null.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type InitializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
}

type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type Capabilities struct {
	Tools *ToolsCapabilities `json:"tools,omitempty"`
}

type ToolsCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Default     interface{} `json:"default,omitempty"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// CallToolParams keeps Arguments raw so that a malformed arguments value
// can be treated as absent.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// decodeCallToolParams reads the exact name and arguments members of raw.
// It reports false unless raw is an object with a string name.
func decodeCallToolParams(raw json.RawMessage) (CallToolParams, bool) {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return CallToolParams{}, false
	}
	nameRaw, ok := fields["name"]
	if !ok {
		return CallToolParams{}, false
	}
	name, err := stringField(nameRaw)
	if err != nil {
		return CallToolParams{}, false
	}
	return CallToolParams{Name: name, Arguments: fields["arguments"]}, true
}

type CallToolResult struct {
	Content []Content `json:"content"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func TextContent(text string) Content {
	return Content{Type: "text", Text: text}
}

func NewError(code int, message string, data interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewResponse(id json.RawMessage, result interface{}) (*Response, error) {
	resultBytes, err := marshal(result, "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  resultBytes,
	}, nil
}

func NewErrorResponse(id json.RawMessage, err *Error) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   err,
	}
}

// marshal encodes v without HTML escaping, indenting nested levels by indent
// when it is non-empty.
func marshal(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
