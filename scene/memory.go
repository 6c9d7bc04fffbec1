package scene

import (
	"fmt"
	"sort"
	"strings"
)

// Contexts are the top-level networks seeded into every MemScene, matching
// the host's default document layout.
var Contexts = []string{"obj", "shop", "out", "ch", "vex", "stage", "mat"}

// ParmSpec describes one parameter a node type carries by default.
type ParmSpec struct {
	Name    string
	Label   string
	Type    string // "String", "Float", "Int", "Toggle"
	Default any
}

// defaultTypeParms maps node type names to the parameters instances of that
// type start with. Covers the types the bridge's handlers touch; tests and
// embedders register more via DefineType.
var defaultTypeParms = map[string][]ParmSpec{
	"geo": {
		{Name: "shop_materialpath", Label: "Material", Type: "String", Default: ""},
		{Name: "scale", Label: "Uniform Scale", Type: "Float", Default: 1.0},
	},
	"cam": {
		{Name: "focal", Label: "Focal Length", Type: "Float", Default: 50.0},
	},
	"principledshader": {
		{Name: "basecolorr", Label: "Base Color R", Type: "Float", Default: 0.2},
		{Name: "basecolorg", Label: "Base Color G", Type: "Float", Default: 0.2},
		{Name: "basecolorb", Label: "Base Color B", Type: "Float", Default: 0.2},
		{Name: "rough", Label: "Roughness", Type: "Float", Default: 0.3},
	},
	"material": {
		{Name: "shop_materialpath1", Label: "Material", Type: "String", Default: ""},
	},
	"box": {
		{Name: "scale", Label: "Uniform Scale", Type: "Float", Default: 1.0},
	},
	"sphere": {
		{Name: "scale", Label: "Uniform Scale", Type: "Float", Default: 1.0},
	},
}

// MemScene is an in-memory Scene implementation. It backs the handler tests
// and the standalone dev server; the real host binds its own scene graph
// behind the Scene interface instead.
type MemScene struct {
	root      *memNode
	docPath   string
	fps       float64
	start     float64
	end       float64
	typeParms map[string][]ParmSpec
	executed  []string

	// OnExecute, when non-nil, is invoked by ExecuteCode after recording the
	// code. Tests use it to inject execution failures.
	OnExecute func(code string) error
}

// NewMemScene creates a MemScene seeded with the standard top-level contexts.
func NewMemScene() *MemScene {
	s := &MemScene{
		fps:       24,
		start:     1,
		end:       240,
		typeParms: make(map[string][]ParmSpec),
	}
	for name, parms := range defaultTypeParms {
		s.typeParms[name] = parms
	}
	s.root = &memNode{scene: s, name: "", typeName: "root", category: "Director"}
	for _, ctx := range Contexts {
		s.root.addChild(&memNode{
			scene:    s,
			name:     ctx,
			typeName: ctx,
			category: "Manager",
			parent:   s.root,
		})
	}
	return s
}

// SetDocument sets the document file path reported by DocumentPath.
func (s *MemScene) SetDocument(path string) { s.docPath = path }

// SetFPS sets the frames-per-second reported by FPS.
func (s *MemScene) SetFPS(fps float64) { s.fps = fps }

// SetFrameRange sets the playback range reported by FrameRange.
func (s *MemScene) SetFrameRange(start, end float64) { s.start, s.end = start, end }

// DefineType registers (or replaces) the default parameters for a node type.
func (s *MemScene) DefineType(typeName string, parms ...ParmSpec) {
	s.typeParms[typeName] = parms
}

// ExecutedCode returns every code string passed to ExecuteCode, in order.
func (s *MemScene) ExecutedCode() []string { return s.executed }

func (s *MemScene) DocumentPath() string { return s.docPath }

func (s *MemScene) FPS() float64 { return s.fps }

func (s *MemScene) FrameRange() (float64, float64) { return s.start, s.end }

func (s *MemScene) NodeCount() int {
	return s.root.descendantCount()
}

func (s *MemScene) Node(path string) Node {
	if path == "/" {
		return s.root
	}
	if !strings.HasPrefix(path, "/") {
		return nil
	}
	cur := s.root
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			return nil
		}
		next := cur.child(part)
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

func (s *MemScene) ExecuteCode(code string) error {
	s.executed = append(s.executed, code)
	if s.OnExecute != nil {
		return s.OnExecute(code)
	}
	return nil
}

// memNode implements Node over an in-memory tree.
type memNode struct {
	scene     *MemScene
	name      string
	typeName  string
	category  string
	parent    *memNode
	children  []*memNode
	parmOrder []string
	parms     map[string]*memParm
	posX      float64
	posY      float64
	color     []float64
	bypassed  bool
	display   bool
	render    bool
	inputs    []*memNode
}

func (n *memNode) Name() string { return n.name }

func (n *memNode) Path() string {
	if n.parent == nil {
		return "/"
	}
	parentPath := n.parent.Path()
	if parentPath == "/" {
		return "/" + n.name
	}
	return parentPath + "/" + n.name
}

func (n *memNode) TypeName() string     { return n.typeName }
func (n *memNode) CategoryName() string { return n.category }

func (n *memNode) Position() (float64, float64) { return n.posX, n.posY }
func (n *memNode) SetPosition(x, y float64)     { n.posX, n.posY = x, y }

func (n *memNode) Color() []float64         { return n.color }
func (n *memNode) SetColor(r, g, b float64) { n.color = []float64{r, g, b} }

func (n *memNode) IsBypassed() bool        { return n.bypassed }
func (n *memNode) IsDisplayFlagSet() bool  { return n.display }
func (n *memNode) SetDisplayFlag(on bool)  { n.display = on }
func (n *memNode) IsRenderFlagSet() bool   { return n.render }
func (n *memNode) SetRenderFlag(on bool)   { n.render = on }

func (n *memNode) Parm(name string) Parm {
	p, ok := n.parms[name]
	if !ok {
		return nil
	}
	return p
}

func (n *memNode) Parms() []Parm {
	out := make([]Parm, 0, len(n.parmOrder))
	for _, name := range n.parmOrder {
		out = append(out, n.parms[name])
	}
	return out
}

func (n *memNode) Children() []Node {
	out := make([]Node, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	return out
}

func (n *memNode) Child(name string) Node {
	c := n.child(name)
	if c == nil {
		return nil
	}
	return c
}

func (n *memNode) child(name string) *memNode {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *memNode) CreateNode(typeName, name string) (Node, error) {
	if typeName == "" {
		return nil, fmt.Errorf("empty node type")
	}
	child := &memNode{
		scene:    n.scene,
		typeName: typeName,
		category: childCategory(n),
		parent:   n,
		parms:    make(map[string]*memParm),
	}
	child.name = n.uniquifyName(name, typeName)
	for _, spec := range n.scene.typeParms[typeName] {
		child.parms[spec.Name] = &memParm{spec: spec, value: spec.Default}
		child.parmOrder = append(child.parmOrder, spec.Name)
	}
	// Lay new nodes out in a simple vertical stack, like the host's network
	// editor does on scripted creation.
	child.posY = float64(len(n.children)) * -1
	n.addChild(child)
	return child, nil
}

func (n *memNode) SetName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid node name %q", name)
	}
	if n.parent != nil {
		if existing := n.parent.child(name); existing != nil && existing != n {
			return fmt.Errorf("node name %q already in use", name)
		}
	}
	n.name = name
	return nil
}

func (n *memNode) Destroy() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}

func (n *memNode) Inputs() []Node {
	out := make([]Node, len(n.inputs))
	for i, in := range n.inputs {
		if in != nil {
			out[i] = in
		}
	}
	return out
}

func (n *memNode) SetFirstInput(input Node) {
	mn, _ := input.(*memNode)
	if len(n.inputs) == 0 {
		n.inputs = []*memNode{mn}
		return
	}
	n.inputs[0] = mn
}

func (n *memNode) OutputConnections() []OutputConnection {
	if n.parent == nil {
		return nil
	}
	var out []OutputConnection
	for _, sibling := range n.parent.children {
		for idx, in := range sibling.inputs {
			if in == n {
				out = append(out, OutputConnection{Node: sibling, InputIndex: idx})
			}
		}
	}
	return out
}

func (n *memNode) addChild(c *memNode) {
	n.children = append(n.children, c)
}

func (n *memNode) descendantCount() int {
	count := len(n.children)
	for _, c := range n.children {
		count += c.descendantCount()
	}
	return count
}

// uniquifyName picks a name for a new child: the requested name if free,
// otherwise (or when empty) the type name with the lowest free numeric suffix.
func (n *memNode) uniquifyName(requested, typeName string) string {
	if requested != "" && n.child(requested) == nil {
		return requested
	}
	base := requested
	if base == "" {
		base = typeName
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if n.child(candidate) == nil {
			return candidate
		}
	}
}

// childCategory derives a new child's node category from its parent, mirroring
// the host's network-type rules closely enough for the bridge's handlers.
func childCategory(parent *memNode) string {
	switch {
	case parent.parent == nil:
		return "Manager"
	case parent.category == "Object":
		return "Sop"
	case parent.category == "Sop":
		return "Sop"
	}
	switch parent.name {
	case "obj":
		return "Object"
	case "mat":
		return "Vop"
	case "shop":
		return "Shop"
	case "out":
		return "Driver"
	case "ch":
		return "Chop"
	case "vex":
		return "Vex"
	case "stage":
		return "Lop"
	}
	return parent.category
}

// memParm implements Parm.
type memParm struct {
	spec  ParmSpec
	value any
}

func (p *memParm) Name() string     { return p.spec.Name }
func (p *memParm) Label() string    { return p.spec.Label }
func (p *memParm) Eval() any        { return p.value }
func (p *memParm) RawValue() string { return fmt.Sprint(p.value) }
func (p *memParm) TypeName() string { return p.spec.Type }
func (p *memParm) Set(value any)    { p.value = value }

// SortedTypeNames returns the registered node type names, for diagnostics.
func (s *MemScene) SortedTypeNames() []string {
	names := make([]string, 0, len(s.typeParms))
	for name := range s.typeParms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
