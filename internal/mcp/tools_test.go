package mcp

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasaranga/wmi-mcp/internal/wmi"
	"github.com/hasaranga/wmi-mcp/internal/wmi/wmitest"
)

func testOSLocator() *wmitest.Locator {
	return wmitest.New().Add(wmi.DefaultNamespace, osQuery, wmitest.Object{
		Props: []wmi.NamedVariant{wmitest.String("Name", "TestOS")},
	})
}

func callResult(t *testing.T, resp rpcResponse) CallToolResult {
	t.Helper()
	require.Nil(t, resp.Error)
	var result CallToolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	return result
}

func TestCallTool_EndToEnd(t *testing.T) {
	locator := testOSLocator()
	resp := runOne(t, locator,
		`{"id":2,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":"SELECT Name FROM Win32_OperatingSystem"}}}`)

	assert.Equal(t, "2", string(resp.ID))
	result := callResult(t, resp)
	require.Len(t, result.Content, 2)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Contains(t, result.Content[0].Text, "Found 1 objects.")
	assert.Equal(t, "WMI query executed successfully. Found 1 objects.", result.Content[0].Text)

	raw, ok := strings.CutPrefix(result.Content[1].Text, "Raw JSON data:\n")
	require.True(t, ok)

	var data struct {
		Success   bool                `json:"success"`
		Namespace string              `json:"namespace"`
		Objects   []map[string]string `json:"objects"`
		Count     int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &data))
	assert.True(t, data.Success)
	assert.Equal(t, 1, data.Count)
	require.Len(t, data.Objects, 1)
	assert.Equal(t, "TestOS", data.Objects[0]["Name"])
	assert.Equal(t, `ROOT\CIMV2`, data.Namespace)
}

func TestCallTool_RawJSONIsIndented(t *testing.T) {
	result := callResult(t, runOne(t, testOSLocator(),
		`{"id":2,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":"SELECT Name FROM Win32_OperatingSystem"}}}`))

	assert.Contains(t, result.Content[1].Text, "\n  \"success\": true,")
	assert.Contains(t, result.Content[1].Text, "\n  \"count\": 1,")
}

func TestCallTool_DefaultNamespace(t *testing.T) {
	implicit := testOSLocator()
	explicit := testOSLocator()

	a := runOne(t, implicit,
		`{"id":1,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":"SELECT Name FROM Win32_OperatingSystem"}}}`)
	b := runOne(t, explicit,
		`{"id":1,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"namespace":"ROOT\\CIMV2","query":"SELECT Name FROM Win32_OperatingSystem"}}}`)

	assert.Equal(t, string(a.Result), string(b.Result))
	assert.Equal(t, []string{`ROOT\CIMV2`}, implicit.Connects)
	assert.Equal(t, []string{`ROOT\CIMV2`}, explicit.Connects)
}

func TestCallTool_MissingQuery(t *testing.T) {
	for _, line := range []string{
		`{"id":3,"method":"tools/call","params":{"name":"executeWMIQuery"}}`,
		`{"id":3,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{}}}`,
		`{"id":3,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":""}}}`,
		`{"id":3,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":null}}}`,
		`{"id":3,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":["SELECT 1"]}}`,
		`{"id":3,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"namespace":"ROOT\\WMI"}}}`,
	} {
		locator := wmitest.New()
		resp := runOne(t, locator, line)

		require.NotNil(t, resp.Error, line)
		assert.Equal(t, CodeInvalidParams, resp.Error.Code, line)
		assert.Equal(t, "Invalid params: query parameter is required", resp.Error.Message, line)
		assert.Empty(t, locator.Connects, "no subsystem access expected for %s", line)
	}
}

func TestCallTool_NonStringArguments(t *testing.T) {
	locator := wmitest.New()
	resp := runOne(t, locator,
		`{"id":4,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":"SELECT * FROM X","namespace":7}}}`)

	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, "Invalid params: namespace must be a string", resp.Error.Message)
	assert.Empty(t, locator.Connects)
}

func TestCallTool_QueryFailure(t *testing.T) {
	locator := wmitest.New()
	locator.ConnectErr = errors.New("invalid namespace")

	resp := runOne(t, locator,
		`{"id":5,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"namespace":"ROOT\\Nope","query":"SELECT * FROM X"}}}`)

	result := callResult(t, resp)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, `WMI query failed: Failed to connect to WMI namespace: ROOT\Nope`, result.Content[0].Text)
}

func TestCallTool_KeepsMarkupUnescaped(t *testing.T) {
	locator := wmitest.New().Add(wmi.DefaultNamespace, "SELECT Caption FROM Win32_Service", wmitest.Object{
		Props: []wmi.NamedVariant{wmitest.String("Caption", "<none> & more")},
	})
	resp := runOne(t, locator,
		`{"id":6,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":"SELECT Caption FROM Win32_Service"}}}`)

	result := callResult(t, resp)
	assert.Contains(t, result.Content[1].Text, `"Caption": "<none> & more"`)
}

type countingExecutor struct {
	calls int
}

func (c *countingExecutor) Execute(namespace, query string) wmi.QueryResult {
	c.calls++
	return wmi.QueryResult{Success: true, Namespace: namespace, Query: query, Objects: []*wmi.Record{}}
}

func TestCallTool_UsesExecutorInterface(t *testing.T) {
	exec := &countingExecutor{}
	server := NewServer(exec, Options{Logger: quietServerLogger()})

	resp := server.HandleLine([]byte(`{"id":9,"method":"tools/call","params":{"name":"executeWMIQuery","arguments":{"query":"SELECT * FROM Win32_BIOS"}}}`))

	require.Nil(t, resp.Error)
	assert.Equal(t, 1, exec.calls)
	assert.Contains(t, string(resp.Result), "Found 0 objects.")
}
