package command

import (
	"context"
	"fmt"
	"log/slog"
)

// Baseline command names reserved for the Godot editor bridge.
const (
	CmdGetProjectInfo     = "GetProjectInfo"
	CmdGetFileContent     = "GetFileContent"
	CmdSetFileContent     = "SetFileContent"
	CmdGetSceneNodes      = "GetSceneNodes"
	CmdAddNode            = "AddNode"
	CmdRemoveNode         = "RemoveNode"
	CmdGetNodeProperty    = "GetNodeProperty"
	CmdSetNodeProperty    = "SetNodeProperty"
	CmdFindAllFilesByType = "FindAllFilesByType"
	CmdRunToolMethod      = "RunToolMethod"
)

// baseline holds the stub handlers for the reserved commands.
//
// The stubs acknowledge every invocation and echo the relevant parameters
// back in the payload. Real project/scene access — and any domain-level
// validation such as rejecting an unknown file path — belongs to the
// embedding application, which replaces these entries via
// Registry.Register before the server starts.
type baseline struct {
	logger *slog.Logger
}

// NewBaseline builds a registry populated with the ten reserved Godot
// commands.
func NewBaseline(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	b := &baseline{logger: logger.With("component", "command")}

	r := NewRegistry()
	r.RegisterFunc(CmdGetProjectInfo, b.getProjectInfo)
	r.RegisterFunc(CmdGetFileContent, b.getFileContent)
	r.RegisterFunc(CmdSetFileContent, b.setFileContent)
	r.RegisterFunc(CmdGetSceneNodes, b.getSceneNodes)
	r.RegisterFunc(CmdAddNode, b.addNode)
	r.RegisterFunc(CmdRemoveNode, b.removeNode)
	r.RegisterFunc(CmdGetNodeProperty, b.getNodeProperty)
	r.RegisterFunc(CmdSetNodeProperty, b.setNodeProperty)
	r.RegisterFunc(CmdFindAllFilesByType, b.findAllFilesByType)
	r.RegisterFunc(CmdRunToolMethod, b.runToolMethod)
	return r
}

func (b *baseline) getProjectInfo(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	b.logger.Info("get project info", "params", params)

	return map[string]any{
		"project_name":  "GodotMCPProject",
		"godot_version": "4.5",
		"project_path":  "/path/to/project",
		"message":       "Project info retrieved successfully",
	}, nil
}

func (b *baseline) getFileContent(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	filePath := stringParam(params, "file_path")
	b.logger.Info("get file content", "file_path", filePath)

	return map[string]any{
		"file_path": filePath,
		"content":   "",
		"message":   fmt.Sprintf("File content retrieved for: %s", filePath),
	}, nil
}

func (b *baseline) setFileContent(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	filePath := stringParam(params, "file_path")
	content := stringParam(params, "content")
	b.logger.Info("set file content", "file_path", filePath, "content_length", len(content))

	return map[string]any{
		"file_path":     filePath,
		"bytes_written": len(content),
		"message":       fmt.Sprintf("File content set successfully for: %s", filePath),
	}, nil
}

func (b *baseline) getSceneNodes(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	scenePath := stringParam(params, "scene_path")
	b.logger.Info("get scene nodes", "scene_path", scenePath)

	return map[string]any{
		"scene_path": scenePath,
		"nodes":      []any{},
		"message":    fmt.Sprintf("Scene nodes retrieved for: %s", scenePath),
	}, nil
}

func (b *baseline) addNode(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	parentPath := stringParam(params, "parent_path")
	nodeType := stringParam(params, "node_type")
	nodeName := stringParam(params, "node_name")
	b.logger.Info("add node", "parent_path", parentPath, "node_type", nodeType, "node_name", nodeName)

	return map[string]any{
		"parent_path": parentPath,
		"node_type":   nodeType,
		"node_name":   nodeName,
		"node_path":   fmt.Sprintf("%s/%s", parentPath, nodeName),
		"message":     fmt.Sprintf("Node %s added successfully", nodeName),
	}, nil
}

func (b *baseline) removeNode(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	nodePath := stringParam(params, "node_path")
	b.logger.Info("remove node", "node_path", nodePath)

	return map[string]any{
		"node_path": nodePath,
		"message":   fmt.Sprintf("Node %s removed successfully", nodePath),
	}, nil
}

func (b *baseline) getNodeProperty(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	nodePath := stringParam(params, "node_path")
	propertyName := stringParam(params, "property_name")
	b.logger.Info("get node property", "node_path", nodePath, "property_name", propertyName)

	return map[string]any{
		"node_path":      nodePath,
		"property_name":  propertyName,
		"property_value": nil,
		"message":        fmt.Sprintf("Property %s retrieved for node %s", propertyName, nodePath),
	}, nil
}

func (b *baseline) setNodeProperty(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	nodePath := stringParam(params, "node_path")
	propertyName := stringParam(params, "property_name")
	propertyValue := params["property_value"]
	b.logger.Info("set node property", "node_path", nodePath, "property_name", propertyName, "property_value", propertyValue)

	return map[string]any{
		"node_path":      nodePath,
		"property_name":  propertyName,
		"property_value": propertyValue,
		"message":        fmt.Sprintf("Property %s set successfully for node %s", propertyName, nodePath),
	}, nil
}

func (b *baseline) findAllFilesByType(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	fileType := stringParam(params, "file_type")
	searchPath := stringParam(params, "search_path")
	b.logger.Info("find all files by type", "file_type", fileType, "search_path", searchPath)

	return map[string]any{
		"file_type":   fileType,
		"search_path": searchPath,
		"files":       []any{},
		"message":     fmt.Sprintf("Files of type %s found in %s", fileType, searchPath),
	}, nil
}

func (b *baseline) runToolMethod(_ context.Context, params map[string]any, _ *string) (map[string]any, error) {
	methodName := stringParam(params, "method_name")
	methodParams, _ := params["method_params"].(map[string]any)
	b.logger.Info("run tool method", "method_name", methodName, "method_params", methodParams)

	return map[string]any{
		"method_name": methodName,
		"result":      nil,
		"message":     fmt.Sprintf("Tool method %s executed successfully", methodName),
	}, nil
}

// stringParam extracts a string-valued parameter, defaulting to "" when the
// key is absent or holds a non-string value.
func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
