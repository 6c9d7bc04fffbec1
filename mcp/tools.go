package mcp

import (
	"encoding/json"
	"fmt"
)

// toolRunners maps tool names to their implementations. Every runner returns
// the text to surface to the assistant plus an error flag; transport or
// back-end failures become readable strings here, never JSON-RPC errors.
var toolRunners = map[string]func(s *Server, args map[string]any) (string, bool){
	"get_scene_info":       (*Server).runGetSceneInfo,
	"create_node":          (*Server).runCreateNode,
	"modify_node":          (*Server).runModifyNode,
	"delete_node":          (*Server).runDeleteNode,
	"get_node_info":        (*Server).runGetNodeInfo,
	"execute_houdini_code": (*Server).runExecuteCode,
	"set_material":         (*Server).runSetMaterial,
	"get_asset_lib_status": (*Server).runGetAssetLibStatus,
	"get_asset_categories": (*Server).runGetAssetCategories,
	"search_assets":        (*Server).runSearchAssets,
	"import_asset":         (*Server).runImportAsset,
}

func toolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_scene_info",
			Description: "Get information about the current Houdini scene: file name, frame range, FPS, and a sample of top-level nodes.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "create_node",
			Description: "Create a new node in Houdini under the given parent network.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"node_type": {
						Type:        "string",
						Description: "Houdini node type to create (e.g. geo, cam, box)",
					},
					"parent_path": {
						Type:        "string",
						Description: "Parent network path (defaults to /obj)",
					},
					"name": {
						Type:        "string",
						Description: "Optional node name; auto-numbered if taken",
					},
					"position": {
						Type:        "array",
						Description: "Optional [x, y] network editor position",
					},
					"parameters": {
						Type:        "object",
						Description: "Optional parameter name/value overrides",
					},
				},
				Required: []string{"node_type"},
			},
		},
		{
			Name:        "modify_node",
			Description: "Modify an existing node: rename it, move it, or set parameter values.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"path": {
						Type:        "string",
						Description: "Absolute path of the node to modify",
					},
					"name": {
						Type:        "string",
						Description: "Optional new name",
					},
					"position": {
						Type:        "array",
						Description: "Optional [x, y] network editor position",
					},
					"parameters": {
						Type:        "object",
						Description: "Optional parameter name/value overrides",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "delete_node",
			Description: "Delete a node from the Houdini scene.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"path": {
						Type:        "string",
						Description: "Absolute path of the node to delete",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "get_node_info",
			Description: "Get detailed information about a single node: parameters, flags, and connections.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"path": {
						Type:        "string",
						Description: "Absolute path of the node to inspect",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "execute_houdini_code",
			Description: "Execute arbitrary Python code inside Houdini's environment.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"code": {
						Type:        "string",
						Description: "Python code to run; the hou module is available",
					},
				},
				Required: []string{"code"},
			},
		},
		{
			Name:        "set_material",
			Description: "Create or reuse a material and assign it to an object-level node.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"node_path": {
						Type:        "string",
						Description: "Absolute path of the OBJ node to assign the material to",
					},
					"material_type": {
						Type:        "string",
						Description: "Material node type (defaults to principledshader)",
					},
					"name": {
						Type:        "string",
						Description: "Optional material node name; reused if it already exists",
					},
					"parameters": {
						Type:        "object",
						Description: "Optional material parameter overrides",
					},
				},
				Required: []string{"node_path"},
			},
		},
		{
			Name:        "get_asset_lib_status",
			Description: "Check whether asset library commands are enabled in the Houdini session.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "get_asset_categories",
			Description: "List asset library categories. Requires asset library usage to be enabled in Houdini.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "search_assets",
			Description: "Search the asset library. Requires asset library usage to be enabled in Houdini.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
		{
			Name:        "import_asset",
			Description: "Import an asset from the asset library. Requires asset library usage to be enabled in Houdini.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{},
			},
		},
	}
}

// isErrorEnvelope reports whether a back-end response is an error envelope
func isErrorEnvelope(resp map[string]any) bool {
	return resp["status"] == "error"
}

// formatResult renders a back-end result for display: strings pass through
// untouched, everything else pretty-prints as JSON
func formatResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}

func (s *Server) runGetSceneInfo(map[string]any) (string, bool) {
	resp, err := s.relay.SendCommand("get_scene_info", nil)
	if err != nil {
		return fmt.Sprintf("Error retrieving scene info: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Houdini error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}

func (s *Server) runCreateNode(args map[string]any) (string, bool) {
	nodeType, _ := args["node_type"].(string)
	if nodeType == "" {
		return "Error: node_type is required", true
	}

	params := map[string]any{"node_type": nodeType}
	if parent, _ := args["parent_path"].(string); parent != "" {
		params["parent_path"] = parent
	}
	if name, _ := args["name"].(string); name != "" {
		params["name"] = name
	}
	if pos, ok := args["position"]; ok {
		params["position"] = pos
	}
	if parms, ok := args["parameters"]; ok {
		params["parameters"] = parms
	}

	resp, err := s.relay.SendCommand("create_node", params)
	if err != nil {
		return fmt.Sprintf("Error creating node: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Error: %v", resp["message"]), true
	}
	return "Node created: " + formatResult(resp["result"]), false
}

func (s *Server) runModifyNode(args map[string]any) (string, bool) {
	path, _ := args["path"].(string)
	if path == "" {
		return "Error: path is required", true
	}

	params := map[string]any{"path": path}
	if name, _ := args["name"].(string); name != "" {
		params["name"] = name
	}
	if pos, ok := args["position"]; ok {
		params["position"] = pos
	}
	if parms, ok := args["parameters"]; ok {
		params["parameters"] = parms
	}

	resp, err := s.relay.SendCommand("modify_node", params)
	if err != nil {
		return fmt.Sprintf("Error modifying node: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Error: %v", resp["message"]), true
	}
	return "Node modified: " + formatResult(resp["result"]), false
}

func (s *Server) runDeleteNode(args map[string]any) (string, bool) {
	path, _ := args["path"].(string)
	if path == "" {
		return "Error: path is required", true
	}

	resp, err := s.relay.SendCommand("delete_node", map[string]any{"path": path})
	if err != nil {
		return fmt.Sprintf("Error deleting node: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Error: %v", resp["message"]), true
	}
	return "Node deleted: " + formatResult(resp["result"]), false
}

func (s *Server) runGetNodeInfo(args map[string]any) (string, bool) {
	path, _ := args["path"].(string)
	if path == "" {
		return "Error: path is required", true
	}

	resp, err := s.relay.SendCommand("get_node_info", map[string]any{"path": path})
	if err != nil {
		return fmt.Sprintf("Error retrieving node info: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Houdini error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}

func (s *Server) runExecuteCode(args map[string]any) (string, bool) {
	code, _ := args["code"].(string)
	if code == "" {
		return "Error: code is required", true
	}

	resp, err := s.relay.SendCommand("execute_code", map[string]any{"code": code})
	if err != nil {
		return fmt.Sprintf("Error executing code: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Error: %v", resp["message"]), true
	}
	return "Code executed successfully in Houdini.", false
}

func (s *Server) runSetMaterial(args map[string]any) (string, bool) {
	nodePath, _ := args["node_path"].(string)
	if nodePath == "" {
		return "Error: node_path is required", true
	}

	params := map[string]any{"node_path": nodePath}
	if matType, _ := args["material_type"].(string); matType != "" {
		params["material_type"] = matType
	}
	if name, _ := args["name"].(string); name != "" {
		params["name"] = name
	}
	if parms, ok := args["parameters"]; ok {
		params["parameters"] = parms
	}

	resp, err := s.relay.SendCommand("set_material", params)
	if err != nil {
		return fmt.Sprintf("Error setting material: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}

func (s *Server) runGetAssetLibStatus(map[string]any) (string, bool) {
	resp, err := s.relay.SendCommand("get_asset_lib_status", nil)
	if err != nil {
		return fmt.Sprintf("Error retrieving asset library status: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Houdini error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}

func (s *Server) runGetAssetCategories(map[string]any) (string, bool) {
	resp, err := s.relay.SendCommand("get_asset_categories", nil)
	if err != nil {
		return fmt.Sprintf("Error retrieving asset categories: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Houdini error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}

func (s *Server) runSearchAssets(map[string]any) (string, bool) {
	resp, err := s.relay.SendCommand("search_assets", nil)
	if err != nil {
		return fmt.Sprintf("Error searching assets: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Houdini error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}

func (s *Server) runImportAsset(map[string]any) (string, bool) {
	resp, err := s.relay.SendCommand("import_asset", nil)
	if err != nil {
		return fmt.Sprintf("Error importing asset: %s", err), true
	}
	if isErrorEnvelope(resp) {
		return fmt.Sprintf("Houdini error: %v", resp["message"]), true
	}
	return formatResult(resp["result"]), false
}
