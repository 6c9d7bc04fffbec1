package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/nemurigi/houdini-mcp/logger"
	"github.com/nemurigi/houdini-mcp/scene"
)

func newHandlerSet() (*handlerSet, *scene.MemScene, *Session) {
	s := scene.NewMemScene()
	sess := NewSession(false)
	h := &handlerSet{scene: s, session: sess, log: logger.Get()}
	return h, s, sess
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return data
}

func TestGetSceneInfo_FreshScene(t *testing.T) {
	h, s, _ := newHandlerSet()

	result, err := h.getSceneInfo(nil)
	if err != nil {
		t.Fatalf("getSceneInfo: %v", err)
	}
	info := result.(sceneInfo)

	if info.Name != "Untitled" {
		t.Errorf("name = %q, want Untitled", info.Name)
	}
	if info.Filepath != "" {
		t.Errorf("filepath = %q, want empty", info.Filepath)
	}
	if info.NodeCount != s.NodeCount() {
		t.Errorf("node_count = %d, want %d", info.NodeCount, s.NodeCount())
	}
	if len(info.Nodes) != 0 {
		t.Errorf("nodes = %v, want empty", info.Nodes)
	}
	if info.FPS != 24 {
		t.Errorf("fps = %v, want 24", info.FPS)
	}
	if info.StartFrame != 1 || info.EndFrame != 240 {
		t.Errorf("frames = %v..%v, want 1..240", info.StartFrame, info.EndFrame)
	}
}

func TestGetSceneInfo_UsesDocumentName(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.SetDocument("/projects/shot010.hip")

	result, _ := h.getSceneInfo(nil)
	info := result.(sceneInfo)

	if info.Name != "shot010.hip" {
		t.Errorf("name = %q, want shot010.hip", info.Name)
	}
	if info.Filepath != "/projects/shot010.hip" {
		t.Errorf("filepath = %q", info.Filepath)
	}
}

func TestGetSceneInfo_CapsNodeList(t *testing.T) {
	h, s, _ := newHandlerSet()
	obj := s.Node("/obj")
	for i := 0; i < 12; i++ {
		if _, err := obj.CreateNode("geo", fmt.Sprintf("geo_%d", i)); err != nil {
			t.Fatalf("CreateNode: %v", err)
		}
	}

	result, _ := h.getSceneInfo(nil)
	info := result.(sceneInfo)

	if len(info.Nodes) != 10 {
		t.Fatalf("nodes len = %d, want 10", len(info.Nodes))
	}
	first := info.Nodes[0]
	if first.Name != "geo_0" || first.Path != "/obj/geo_0" || first.Type != "geo" || first.Category != "obj" {
		t.Errorf("first node = %+v", first)
	}
}

func TestGetSceneInfo_Idempotent(t *testing.T) {
	h, s, _ := newHandlerSet()
	if _, err := s.Node("/obj").CreateNode("geo", "still"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	first, err := h.getSceneInfo(nil)
	if err != nil {
		t.Fatalf("first getSceneInfo: %v", err)
	}
	second, err := h.getSceneInfo(nil)
	if err != nil {
		t.Fatalf("second getSceneInfo: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated query diverged:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCreateNode(t *testing.T) {
	h, s, _ := newHandlerSet()

	params := json.RawMessage(`{
		"node_type": "geo",
		"name": "torus_geo",
		"position": [1.5, -2],
		"parameters": {"scale": 2.5, "no_such_parm": 1}
	}`)

	result, err := h.createNode(params)
	if err != nil {
		t.Fatalf("createNode: %v", err)
	}
	got := result.(createNodeResult)

	if got.Name != "torus_geo" || got.Path != "/obj/torus_geo" || got.Type != "geo" {
		t.Errorf("result = %+v", got)
	}
	if got.Position[0] != 1.5 || got.Position[1] != -2 {
		t.Errorf("position = %v, want [1.5 -2]", got.Position)
	}

	node := s.Node("/obj/torus_geo")
	if node == nil {
		t.Fatal("node not created in scene")
	}
	if node.Parm("scale").Eval() != 2.5 {
		t.Errorf("scale = %v, want 2.5", node.Parm("scale").Eval())
	}
}

func TestCreateNode_DefaultsToObj(t *testing.T) {
	h, s, _ := newHandlerSet()

	result, err := h.createNode(raw(t, map[string]any{"node_type": "cam"}))
	if err != nil {
		t.Fatalf("createNode: %v", err)
	}
	got := result.(createNodeResult)
	if got.Path != "/obj/cam1" {
		t.Errorf("path = %q, want /obj/cam1", got.Path)
	}
	if s.Node("/obj/cam1") == nil {
		t.Error("node missing from /obj")
	}
}

func TestCreateNode_ParentNotFound(t *testing.T) {
	h, _, _ := newHandlerSet()

	_, err := h.createNode(raw(t, map[string]any{
		"node_type":   "geo",
		"parent_path": "/obj/missing",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Failed to create node: Parent path not found: /obj/missing"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
}

func TestCreateNode_EmptyType(t *testing.T) {
	h, _, _ := newHandlerSet()

	_, err := h.createNode(raw(t, map[string]any{"node_type": ""}))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), "Failed to create node: ") {
		t.Errorf("error = %q, want Failed to create node prefix", err)
	}
}

func TestModifyNode(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.Node("/obj").CreateNode("geo", "old_name")

	params := json.RawMessage(`{
		"path": "/obj/old_name",
		"name": "new_name",
		"position": [0.5, 1.5],
		"parameters": {"scale": 3, "shop_materialpath": "/mat/m"}
	}`)

	result, err := h.modifyNode(params)
	if err != nil {
		t.Fatalf("modifyNode: %v", err)
	}
	got := result.(modifyNodeResult)

	if got.Path != "/obj/new_name" {
		t.Errorf("path = %q, want /obj/new_name", got.Path)
	}

	want := []string{
		"Renamed from old_name to new_name",
		"Position set to [0.5, 1.5]",
		"Parameter scale changed from 1 to 3",
		"Parameter shop_materialpath changed from  to /mat/m",
	}
	if len(got.Changes) != len(want) {
		t.Fatalf("changes = %v, want %v", got.Changes, want)
	}
	for i := range want {
		if got.Changes[i] != want[i] {
			t.Errorf("changes[%d] = %q, want %q", i, got.Changes[i], want[i])
		}
	}

	node := s.Node("/obj/new_name")
	if node == nil {
		t.Fatal("renamed node not found")
	}
	if x, y := node.Position(); x != 0.5 || y != 1.5 {
		t.Errorf("position = %v,%v", x, y)
	}
	if node.Parm("scale").Eval() != float64(3) {
		t.Errorf("scale = %v, want 3", node.Parm("scale").Eval())
	}
}

func TestModifyNode_NoChanges(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.Node("/obj").CreateNode("geo", "g")

	// Same name is not a rename; unknown parameters are skipped
	result, err := h.modifyNode(json.RawMessage(`{"path":"/obj/g","name":"g","parameters":{"nope":1}}`))
	if err != nil {
		t.Fatalf("modifyNode: %v", err)
	}
	got := result.(modifyNodeResult)
	if len(got.Changes) != 0 {
		t.Errorf("changes = %v, want none", got.Changes)
	}
}

func TestModifyNode_NotFound(t *testing.T) {
	h, _, _ := newHandlerSet()

	_, err := h.modifyNode(raw(t, map[string]any{"path": "/obj/missing"}))
	if err == nil || err.Error() != "Node not found: /obj/missing" {
		t.Errorf("error = %v, want Node not found: /obj/missing", err)
	}
}

func TestDeleteNode(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.Node("/obj").CreateNode("geo", "doomed")

	result, err := h.deleteNode(raw(t, map[string]any{"path": "/obj/doomed"}))
	if err != nil {
		t.Fatalf("deleteNode: %v", err)
	}
	got := result.(map[string]any)
	if got["deleted"] != "/obj/doomed" || got["name"] != "doomed" {
		t.Errorf("result = %v", got)
	}
	if s.Node("/obj/doomed") != nil {
		t.Error("node still in scene")
	}
}

func TestDeleteNode_NotFound(t *testing.T) {
	h, _, _ := newHandlerSet()

	_, err := h.deleteNode(raw(t, map[string]any{"path": "/obj/missing"}))
	if err == nil || err.Error() != "Node not found: /obj/missing" {
		t.Errorf("error = %v, want Node not found: /obj/missing", err)
	}
}

func TestGetNodeInfo(t *testing.T) {
	h, s, _ := newHandlerSet()
	geo, _ := s.Node("/obj").CreateNode("geo", "g")
	box, _ := geo.CreateNode("box", "box1")
	mat, _ := geo.CreateNode("material", "material1")
	mat.SetFirstInput(box)
	mat.SetDisplayFlag(true)

	result, err := h.getNodeInfo(raw(t, map[string]any{"path": "/obj/g/material1"}))
	if err != nil {
		t.Fatalf("getNodeInfo: %v", err)
	}
	info := result.(nodeInfo)

	if info.Name != "material1" || info.Path != "/obj/g/material1" || info.Type != "material" {
		t.Errorf("identity = %+v", info)
	}
	if info.Category != "Sop" {
		t.Errorf("category = %q, want Sop", info.Category)
	}
	if !info.IsDisplayed || info.IsRendered || info.IsBypassed {
		t.Errorf("flags = displayed=%v rendered=%v bypassed=%v", info.IsDisplayed, info.IsRendered, info.IsBypassed)
	}
	if info.Color != nil {
		t.Errorf("color = %v, want nil", info.Color)
	}

	if len(info.Parameters) != 1 {
		t.Fatalf("parameters = %+v, want one", info.Parameters)
	}
	p := info.Parameters[0]
	if p.Name != "shop_materialpath1" || p.Type != "String" || p.Value != "" {
		t.Errorf("parm = %+v", p)
	}

	if len(info.Inputs) != 1 {
		t.Fatalf("inputs = %+v, want one", info.Inputs)
	}
	if info.Inputs[0].Index != 0 || info.Inputs[0].Path != "/obj/g/box1" {
		t.Errorf("input = %+v", info.Inputs[0])
	}
}

func TestGetNodeInfo_Color(t *testing.T) {
	h, s, _ := newHandlerSet()
	geo, _ := s.Node("/obj").CreateNode("geo", "tinted")
	geo.SetColor(1, 0.5, 0)

	result, err := h.getNodeInfo(raw(t, map[string]any{"path": "/obj/tinted"}))
	if err != nil {
		t.Fatalf("getNodeInfo: %v", err)
	}
	info := result.(nodeInfo)

	if !reflect.DeepEqual(info.Color, []float64{1, 0.5, 0}) {
		t.Errorf("color = %v, want [1 0.5 0]", info.Color)
	}
}

func TestGetNodeInfo_Outputs(t *testing.T) {
	h, s, _ := newHandlerSet()
	geo, _ := s.Node("/obj").CreateNode("geo", "g")
	box, _ := geo.CreateNode("box", "box1")
	mat, _ := geo.CreateNode("material", "material1")
	mat.SetFirstInput(box)

	result, err := h.getNodeInfo(raw(t, map[string]any{"path": "/obj/g/box1"}))
	if err != nil {
		t.Fatalf("getNodeInfo: %v", err)
	}
	info := result.(nodeInfo)

	if len(info.Outputs) != 1 {
		t.Fatalf("outputs = %+v, want one", info.Outputs)
	}
	out := info.Outputs[0]
	if out.Path != "/obj/g/material1" || out.InputIndex != 0 {
		t.Errorf("output = %+v", out)
	}
}

func TestGetNodeInfo_ParameterCap(t *testing.T) {
	h, s, _ := newHandlerSet()

	specs := make([]scene.ParmSpec, 25)
	for i := range specs {
		specs[i] = scene.ParmSpec{
			Name:    fmt.Sprintf("parm%d", i),
			Label:   fmt.Sprintf("Parm %d", i),
			Type:    "Float",
			Default: 0.0,
		}
	}
	s.DefineType("manyparms", specs...)
	s.Node("/obj").CreateNode("manyparms", "m")

	result, err := h.getNodeInfo(raw(t, map[string]any{"path": "/obj/m"}))
	if err != nil {
		t.Fatalf("getNodeInfo: %v", err)
	}
	info := result.(nodeInfo)
	if len(info.Parameters) != 20 {
		t.Errorf("parameters len = %d, want 20", len(info.Parameters))
	}
}

func TestGetNodeInfo_NotFound(t *testing.T) {
	h, _, _ := newHandlerSet()

	_, err := h.getNodeInfo(raw(t, map[string]any{"path": "/obj/missing"}))
	if err == nil || err.Error() != "Node not found: /obj/missing" {
		t.Errorf("error = %v", err)
	}
}

func TestExecuteCode(t *testing.T) {
	h, s, _ := newHandlerSet()

	result, err := h.executeCode(raw(t, map[string]any{"code": "hou.node('/obj')"}))
	if err != nil {
		t.Fatalf("executeCode: %v", err)
	}
	got := result.(map[string]any)
	if got["executed"] != true {
		t.Errorf("result = %v", got)
	}
	if len(s.ExecutedCode()) != 1 || s.ExecutedCode()[0] != "hou.node('/obj')" {
		t.Errorf("executed = %v", s.ExecutedCode())
	}
}

func TestExecuteCode_Failure(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.OnExecute = func(string) error { return errors.New("name 'foo' is not defined") }

	_, err := h.executeCode(raw(t, map[string]any{"code": "foo"}))
	if err == nil {
		t.Fatal("expected error")
	}
	want := "Code execution error: name 'foo' is not defined"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err, want)
	}
}

func TestSetMaterial_ObjParm(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.Node("/obj").CreateNode("geo", "g")

	params := json.RawMessage(`{
		"node_path": "/obj/g",
		"parameters": {"basecolorr": 0.9}
	}`)
	result, err := h.setMaterial(params)
	if err != nil {
		t.Fatalf("setMaterial: %v", err)
	}
	got := result.(map[string]any)

	if got["status"] != "ok" {
		t.Fatalf("result = %v", got)
	}
	if got["material_node"] != "/mat/principledshader_auto" || got["applied_to"] != "/obj/g" {
		t.Errorf("result = %v", got)
	}

	matNode := s.Node("/mat/principledshader_auto")
	if matNode == nil {
		t.Fatal("material node not created")
	}
	if matNode.Parm("basecolorr").Eval() != 0.9 {
		t.Errorf("basecolorr = %v, want 0.9", matNode.Parm("basecolorr").Eval())
	}
	if s.Node("/obj/g").Parm("shop_materialpath").Eval() != "/mat/principledshader_auto" {
		t.Errorf("shop_materialpath = %v", s.Node("/obj/g").Parm("shop_materialpath").Eval())
	}
}

func TestSetMaterial_ReusesExistingMaterial(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.Node("/obj").CreateNode("geo", "g")
	s.Node("/mat").CreateNode("principledshader", "gold")

	result, err := h.setMaterial(raw(t, map[string]any{"node_path": "/obj/g", "name": "gold"}))
	if err != nil {
		t.Fatalf("setMaterial: %v", err)
	}
	got := result.(map[string]any)
	if got["material_node"] != "/mat/gold" {
		t.Errorf("material_node = %v, want /mat/gold", got["material_node"])
	}
	if len(s.Node("/mat").Children()) != 1 {
		t.Error("existing material should be reused, not duplicated")
	}
}

func TestSetMaterial_MaterialSOPFallback(t *testing.T) {
	h, s, _ := newHandlerSet()
	s.DefineType("null") // OBJ type with no shop_materialpath
	obj, _ := s.Node("/obj").CreateNode("null", "n")
	geoSop, _ := obj.CreateNode("geo", "geometry")
	box, _ := geoSop.CreateNode("box", "box1")
	box.SetDisplayFlag(true)

	result, err := h.setMaterial(raw(t, map[string]any{"node_path": "/obj/n"}))
	if err != nil {
		t.Fatalf("setMaterial: %v", err)
	}
	got := result.(map[string]any)
	if got["status"] != "ok" {
		t.Fatalf("result = %v", got)
	}

	matSop := s.Node("/obj/n/geometry/material1")
	if matSop == nil {
		t.Fatal("material SOP not created")
	}
	if matSop.Parm("shop_materialpath1").Eval() != "/mat/principledshader_auto" {
		t.Errorf("shop_materialpath1 = %v", matSop.Parm("shop_materialpath1").Eval())
	}
	if !matSop.IsDisplayFlagSet() || !matSop.IsRenderFlagSet() {
		t.Error("material SOP should take display and render flags")
	}
	inputs := matSop.Inputs()
	if len(inputs) != 1 || inputs[0] == nil || inputs[0].Name() != "box1" {
		t.Errorf("inputs = %v, want [box1]", inputs)
	}
}

func TestSetMaterial_ErrorsReportedInResult(t *testing.T) {
	h, s, _ := newHandlerSet()
	geo, _ := s.Node("/obj").CreateNode("geo", "g")
	geo.CreateNode("box", "box1")
	s.DefineType("null")
	s.Node("/obj").CreateNode("null", "bare")

	tests := []struct {
		name    string
		params  map[string]any
		message string
	}{
		{
			name:    "node not found",
			params:  map[string]any{"node_path": "/obj/missing"},
			message: "Node not found: /obj/missing",
		},
		{
			name:    "not an OBJ node",
			params:  map[string]any{"node_path": "/obj/g/box1"},
			message: "Node /obj/g/box1 is not an OBJ-level node and cannot accept direct materials.",
		},
		{
			name:    "no geometry network",
			params:  map[string]any{"node_path": "/obj/bare"},
			message: "No 'geometry' node found inside OBJ to apply material to.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.setMaterial(raw(t, tt.params))
			if err != nil {
				t.Fatalf("setMaterial should not fail the command: %v", err)
			}
			got := result.(map[string]any)
			if got["status"] != StatusError {
				t.Fatalf("status = %v, want error", got["status"])
			}
			if got["message"] != tt.message {
				t.Errorf("message = %q, want %q", got["message"], tt.message)
			}
			if got["node"] != tt.params["node_path"] {
				t.Errorf("node = %v, want %v", got["node"], tt.params["node_path"])
			}
		})
	}
}

func TestGetAssetLibStatus(t *testing.T) {
	h, _, sess := newHandlerSet()

	result, _ := h.getAssetLibStatus(nil)
	got := result.(map[string]any)
	if got["enabled"] != false || got["message"] != "Asset library usage is disabled." {
		t.Errorf("result = %v", got)
	}

	sess.SetAssetLibrary(true)
	result, _ = h.getAssetLibStatus(nil)
	got = result.(map[string]any)
	if got["enabled"] != true || got["message"] != "Asset library usage is enabled." {
		t.Errorf("result = %v", got)
	}
}

func TestAssetPlaceholders(t *testing.T) {
	h, _, _ := newHandlerSet()

	tests := []struct {
		name    string
		handler Handler
	}{
		{"get_asset_categories", h.getAssetCategories},
		{"search_assets", h.searchAssets},
		{"import_asset", h.importAsset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(nil)
			if err != nil {
				t.Fatalf("handler: %v", err)
			}
			got := result.(map[string]any)
			want := tt.name + " not implemented"
			if got["error"] != want {
				t.Errorf("result = %v, want error %q", got, want)
			}
		})
	}
}
