package bridge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/nemurigi/houdini-mcp/scene"
)

// Handler executes one command against the scene. The raw params are the
// command envelope's params object; each handler decodes them into its own
// parameter struct. A returned error becomes an error envelope.
type Handler func(params json.RawMessage) (any, error)

// sceneInfoContexts are the networks scanned when summarizing the scene. The
// scan is capped, so the order matters: object-level nodes win.
var sceneInfoContexts = []string{"obj", "shop", "out", "ch", "vex", "stage"}

const (
	sceneInfoNodeCap = 10
	nodeInfoParmCap  = 20
)

// handlerSet binds the command handlers to a scene and session. Handlers run
// on the server's tick thread and must not be called concurrently.
type handlerSet struct {
	scene   scene.Scene
	session *Session
	log     *slog.Logger
}

// baseHandlers returns the always-available dispatch table.
func (h *handlerSet) baseHandlers() map[string]Handler {
	return map[string]Handler{
		"get_scene_info":       h.getSceneInfo,
		"create_node":          h.createNode,
		"modify_node":          h.modifyNode,
		"delete_node":          h.deleteNode,
		"get_node_info":        h.getNodeInfo,
		"execute_code":         h.executeCode,
		"set_material":         h.setMaterial,
		"get_asset_lib_status": h.getAssetLibStatus,
	}
}

// assetHandlers returns the commands that are only dispatchable while the
// session's asset-library toggle is on.
func (h *handlerSet) assetHandlers() map[string]Handler {
	return map[string]Handler{
		"get_asset_categories": h.getAssetCategories,
		"search_assets":        h.searchAssets,
		"import_asset":         h.importAsset,
	}
}

// --- get_scene_info ---

type sceneNodeSummary struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

type sceneInfo struct {
	Name       string             `json:"name"`
	Filepath   string             `json:"filepath"`
	NodeCount  int                `json:"node_count"`
	Nodes      []sceneNodeSummary `json:"nodes"`
	FPS        float64            `json:"fps"`
	StartFrame float64            `json:"start_frame"`
	EndFrame   float64            `json:"end_frame"`
}

func (h *handlerSet) getSceneInfo(json.RawMessage) (any, error) {
	docPath := h.scene.DocumentPath()
	name := "Untitled"
	if docPath != "" {
		name = filepath.Base(docPath)
	}
	start, end := h.scene.FrameRange()

	info := sceneInfo{
		Name:       name,
		Filepath:   docPath,
		NodeCount:  h.scene.NodeCount(),
		Nodes:      []sceneNodeSummary{},
		FPS:        h.scene.FPS(),
		StartFrame: start,
		EndFrame:   end,
	}

	// Summarize a handful of nodes from the key contexts, in context order
	for _, ctx := range sceneInfoContexts {
		ctxNode := h.scene.Node("/" + ctx)
		if ctxNode == nil {
			continue
		}
		for _, child := range ctxNode.Children() {
			if len(info.Nodes) >= sceneInfoNodeCap {
				return info, nil
			}
			info.Nodes = append(info.Nodes, sceneNodeSummary{
				Name:     child.Name(),
				Path:     child.Path(),
				Type:     child.TypeName(),
				Category: ctx,
			})
		}
	}
	return info, nil
}

// --- create_node ---

type createNodeParams struct {
	NodeType   string         `json:"node_type"`
	ParentPath string         `json:"parent_path"`
	Name       string         `json:"name"`
	Position   []float64      `json:"position"`
	Parameters *orderedObject `json:"parameters"`
}

type createNodeResult struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Type     string    `json:"type"`
	Position []float64 `json:"position"`
}

func (h *handlerSet) createNode(raw json.RawMessage) (any, error) {
	var p createNodeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.ParentPath == "" {
		p.ParentPath = "/obj"
	}

	parent := h.scene.Node(p.ParentPath)
	if parent == nil {
		return nil, fmt.Errorf("Failed to create node: Parent path not found: %s", p.ParentPath)
	}

	node, err := parent.CreateNode(p.NodeType, p.Name)
	if err != nil {
		return nil, fmt.Errorf("Failed to create node: %s", err)
	}
	if len(p.Position) >= 2 {
		node.SetPosition(p.Position[0], p.Position[1])
	}
	if p.Parameters != nil {
		p.Parameters.Each(func(name string, value any) {
			if parm := node.Parm(name); parm != nil {
				parm.Set(value)
			}
		})
	}

	x, y := node.Position()
	return createNodeResult{
		Name:     node.Name(),
		Path:     node.Path(),
		Type:     node.TypeName(),
		Position: []float64{x, y},
	}, nil
}

// --- modify_node ---

type modifyNodeParams struct {
	Path       string         `json:"path"`
	Parameters *orderedObject `json:"parameters"`
	Position   []float64      `json:"position"`
	Name       string         `json:"name"`
}

type modifyNodeResult struct {
	Path    string   `json:"path"`
	Changes []string `json:"changes"`
}

func (h *handlerSet) modifyNode(raw json.RawMessage) (any, error) {
	var p modifyNodeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	node := h.scene.Node(p.Path)
	if node == nil {
		return nil, fmt.Errorf("Node not found: %s", p.Path)
	}

	changes := []string{}

	if oldName := node.Name(); p.Name != "" && p.Name != oldName {
		if err := node.SetName(p.Name); err != nil {
			return nil, err
		}
		changes = append(changes, fmt.Sprintf("Renamed from %s to %s", oldName, p.Name))
	}

	if len(p.Position) >= 2 {
		node.SetPosition(p.Position[0], p.Position[1])
		changes = append(changes, fmt.Sprintf("Position set to [%v, %v]", p.Position[0], p.Position[1]))
	}

	if p.Parameters != nil {
		p.Parameters.Each(func(name string, value any) {
			parm := node.Parm(name)
			if parm == nil {
				return
			}
			oldVal := parm.Eval()
			parm.Set(value)
			changes = append(changes, fmt.Sprintf("Parameter %s changed from %v to %v", name, oldVal, value))
		})
	}

	return modifyNodeResult{Path: node.Path(), Changes: changes}, nil
}

// --- delete_node ---

type deleteNodeParams struct {
	Path string `json:"path"`
}

func (h *handlerSet) deleteNode(raw json.RawMessage) (any, error) {
	var p deleteNodeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	node := h.scene.Node(p.Path)
	if node == nil {
		return nil, fmt.Errorf("Node not found: %s", p.Path)
	}
	path := node.Path()
	name := node.Name()
	node.Destroy()
	return map[string]any{"deleted": path, "name": name}, nil
}

// --- get_node_info ---

type getNodeInfoParams struct {
	Path string `json:"path"`
}

type parmInfo struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	RawValue string `json:"raw_value"`
	Type     string `json:"type"`
}

type inputInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	Type  string `json:"type"`
}

type outputInfo struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	Type       string `json:"type"`
	InputIndex int    `json:"input_index"`
}

type nodeInfo struct {
	Name        string       `json:"name"`
	Path        string       `json:"path"`
	Type        string       `json:"type"`
	Category    string       `json:"category"`
	Position    []float64    `json:"position"`
	Color       []float64    `json:"color"`
	IsBypassed  bool         `json:"is_bypassed"`
	IsDisplayed bool         `json:"is_displayed"`
	IsRendered  bool         `json:"is_rendered"`
	Parameters  []parmInfo   `json:"parameters"`
	Inputs      []inputInfo  `json:"inputs"`
	Outputs     []outputInfo `json:"outputs"`
}

func (h *handlerSet) getNodeInfo(raw json.RawMessage) (any, error) {
	var p getNodeInfoParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}

	node := h.scene.Node(p.Path)
	if node == nil {
		return nil, fmt.Errorf("Node not found: %s", p.Path)
	}

	x, y := node.Position()
	info := nodeInfo{
		Name:        node.Name(),
		Path:        node.Path(),
		Type:        node.TypeName(),
		Category:    node.CategoryName(),
		Position:    []float64{x, y},
		Color:       node.Color(),
		IsBypassed:  node.IsBypassed(),
		IsDisplayed: node.IsDisplayFlagSet(),
		IsRendered:  node.IsRenderFlagSet(),
		Parameters:  []parmInfo{},
		Inputs:      []inputInfo{},
		Outputs:     []outputInfo{},
	}

	for i, parm := range node.Parms() {
		if i >= nodeInfoParmCap {
			break
		}
		info.Parameters = append(info.Parameters, parmInfo{
			Name:     parm.Name(),
			Label:    parm.Label(),
			Value:    fmt.Sprint(parm.Eval()),
			RawValue: parm.RawValue(),
			Type:     parm.TypeName(),
		})
	}

	// Unconnected inputs keep their index but produce no entry
	for i, in := range node.Inputs() {
		if in == nil {
			continue
		}
		info.Inputs = append(info.Inputs, inputInfo{
			Index: i,
			Name:  in.Name(),
			Path:  in.Path(),
			Type:  in.TypeName(),
		})
	}

	for i, conn := range node.OutputConnections() {
		info.Outputs = append(info.Outputs, outputInfo{
			Index:      i,
			Name:       conn.Node.Name(),
			Path:       conn.Node.Path(),
			Type:       conn.Node.TypeName(),
			InputIndex: conn.InputIndex,
		})
	}

	return info, nil
}

// --- execute_code ---

type executeCodeParams struct {
	Code string `json:"code"`
}

func (h *handlerSet) executeCode(raw json.RawMessage) (any, error) {
	var p executeCodeParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if err := h.scene.ExecuteCode(p.Code); err != nil {
		return nil, fmt.Errorf("Code execution error: %s", err)
	}
	return map[string]any{"executed": true}, nil
}

// --- set_material ---

type setMaterialParams struct {
	NodePath     string         `json:"node_path"`
	MaterialType string         `json:"material_type"`
	Name         string         `json:"name"`
	Parameters   *orderedObject `json:"parameters"`
}

// setMaterial never fails the command: any problem is reported inside a
// success envelope as {"status":"error", "message", "node"}, so the caller
// sees which node the assignment was aimed at.
func (h *handlerSet) setMaterial(raw json.RawMessage) (any, error) {
	var p setMaterialParams
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	if p.MaterialType == "" {
		p.MaterialType = "principledshader"
	}

	matPath, appliedTo, err := h.assignMaterial(p)
	if err != nil {
		h.log.Warn("set_material failed", "node", p.NodePath, "error", err)
		return map[string]any{
			"status":  StatusError,
			"message": err.Error(),
			"node":    p.NodePath,
		}, nil
	}
	return map[string]any{
		"status":        "ok",
		"material_node": matPath,
		"applied_to":    appliedTo,
	}, nil
}

func (h *handlerSet) assignMaterial(p setMaterialParams) (matPath, appliedTo string, err error) {
	target := h.scene.Node(p.NodePath)
	if target == nil {
		return "", "", fmt.Errorf("Node not found: %s", p.NodePath)
	}
	if target.CategoryName() != "Object" {
		return "", "", fmt.Errorf("Node %s is not an OBJ-level node and cannot accept direct materials.", p.NodePath)
	}

	matContext := h.scene.Node("/mat")
	if matContext == nil {
		matContext = h.scene.Node("/shop")
		if matContext == nil {
			return "", "", fmt.Errorf("No /mat or /shop context found to create materials.")
		}
	}

	matName := p.Name
	if matName == "" {
		matName = p.MaterialType + "_auto"
	}
	matNode := matContext.Child(matName)
	if matNode == nil {
		matNode, err = matContext.CreateNode(p.MaterialType, matName)
		if err != nil {
			return "", "", err
		}
	}

	if p.Parameters != nil {
		p.Parameters.Each(func(name string, value any) {
			if parm := matNode.Parm(name); parm != nil {
				parm.Set(value)
			}
		})
	}

	// Prefer the OBJ-level material parameter; fall back to a Material SOP
	// inside the node's geometry network
	if matParm := target.Parm("shop_materialpath"); matParm != nil {
		matParm.Set(matNode.Path())
		return matNode.Path(), target.Path(), nil
	}

	geoSop := target.Child("geometry")
	if geoSop == nil {
		return "", "", fmt.Errorf("No 'geometry' node found inside OBJ to apply material to.")
	}

	materialSop := geoSop.Child("material1")
	if materialSop == nil {
		materialSop, err = geoSop.CreateNode("material", "material1")
		if err != nil {
			return "", "", err
		}
		// Hook the new SOP onto whatever is currently displayed
		for _, c := range geoSop.Children() {
			if c.IsDisplayFlagSet() {
				materialSop.SetFirstInput(c)
				break
			}
		}
		materialSop.SetDisplayFlag(true)
		materialSop.SetRenderFlag(true)
	}

	matSopParm := materialSop.Parm("shop_materialpath1")
	if matSopParm == nil {
		return "", "", fmt.Errorf("No shop_materialpath1 on Material SOP to assign the material.")
	}
	matSopParm.Set(matNode.Path())
	return matNode.Path(), target.Path(), nil
}

// --- asset library ---

func (h *handlerSet) getAssetLibStatus(json.RawMessage) (any, error) {
	enabled := h.session.AssetLibraryEnabled()
	msg := "Asset library usage is disabled."
	if enabled {
		msg = "Asset library usage is enabled."
	}
	return map[string]any{"enabled": enabled, "message": msg}, nil
}

// The asset-library commands are dispatchable but not yet backed by a
// provider. TODO: wire a Poly Haven client behind these.

func (h *handlerSet) getAssetCategories(json.RawMessage) (any, error) {
	return map[string]any{"error": "get_asset_categories not implemented"}, nil
}

func (h *handlerSet) searchAssets(json.RawMessage) (any, error) {
	return map[string]any{"error": "search_assets not implemented"}, nil
}

func (h *handlerSet) importAsset(json.RawMessage) (any, error) {
	return map[string]any{"error": "import_asset not implemented"}, nil
}
