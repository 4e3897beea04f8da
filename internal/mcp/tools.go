package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const queryToolName = "executeWMIQuery"

const queryToolDescription = "Executes WMI (Windows Management Instrumentation) queries to retrieve system information " +
	"from Windows computers. This tool can query hardware details, running processes, services, system configuration, " +
	"network information, disk usage, and much more. Common namespaces include ROOT\\CIMV2 (most common system info), " +
	"ROOT\\WMI (hardware sensors), and ROOT\\RSOP (policy info). Use WQL (WMI Query Language) syntax similar to SQL."

func initializeTools(defaultNamespace string) []Tool {
	return []Tool{
		{
			Name:        queryToolName,
			Description: queryToolDescription,
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"namespace": {
						Type:        "string",
						Description: "WMI namespace to query (e.g., ROOT\\CIMV2, ROOT\\WMI)",
						Default:     defaultNamespace,
					},
					"query": {
						Type:        "string",
						Description: "WQL query to execute (e.g., SELECT ExecutablePath FROM Win32_Process, SELECT Name, Size FROM Win32_LogicalDisk)",
					},
				},
				Required: []string{"query"},
			},
		},
	}
}

// executeQueryTool validates the tool arguments and runs the query. Query
// failures are reported as tool content, not as RPC errors.
func (s *Server) executeQueryTool(rawArgs json.RawMessage) (*CallToolResult, *Error) {
	var args map[string]json.RawMessage
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			args = nil
		}
	}

	namespace, err := stringArg(args, "namespace", s.defaultNamespace)
	if err != nil {
		return nil, NewError(CodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}
	query, err := stringArg(args, "query", "")
	if err != nil {
		return nil, NewError(CodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}
	if query == "" {
		return nil, NewError(CodeInvalidParams, "Invalid params: query parameter is required", nil)
	}

	log := s.logger.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"namespace":  namespace,
		"query":      query,
	})
	log.Info("Executing WMI query")

	result := s.executor.Execute(namespace, query)
	if !result.Success {
		log.WithField("error", result.Error).Warn("WMI query failed")
		return &CallToolResult{
			Content: []Content{TextContent("WMI query failed: " + result.Error)},
		}, nil
	}

	data, err := marshal(result, "  ")
	if err != nil {
		log.WithError(err).Error("Failed to marshal query result")
		return nil, NewError(CodeInternalError, "Internal error", err.Error())
	}

	log.WithField("count", result.Count).Info("WMI query completed")
	return &CallToolResult{
		Content: []Content{
			TextContent(fmt.Sprintf("WMI query executed successfully. Found %d objects.", result.Count)),
			TextContent("Raw JSON data:\n" + string(data)),
		},
	}, nil
}

// stringArg reads a string argument. Absent and null arguments yield def.
func stringArg(args map[string]json.RawMessage, name, def string) (string, error) {
	raw, ok := args[name]
	if !ok || string(raw) == "null" {
		return def, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return s, nil
}
