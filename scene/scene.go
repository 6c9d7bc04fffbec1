// Package scene abstracts the host application's scripting API as seen by the
// command server. Handlers are written against the Scene and Node interfaces;
// the in-process host binds its real scene graph behind them, while MemScene
// provides an in-memory stand-in for tests and the standalone dev server.
package scene

// Scene is the host application's document and node-graph surface.
// Implementations are not safe for concurrent use — every call must happen on
// the single thread driving the command server's poll loop, because the real
// host API is not thread-safe.
type Scene interface {
	// DocumentPath returns the current document's file path, or "" for an
	// unsaved document.
	DocumentPath() string

	// FPS returns the document's frames-per-second setting.
	FPS() float64

	// FrameRange returns the playback start and end frames.
	FrameRange() (start, end float64)

	// NodeCount returns the total number of nodes in the document.
	NodeCount() int

	// Node resolves an absolute path ("/obj/geo1") to a node, or nil if the
	// path does not resolve.
	Node(path string) Node

	// ExecuteCode runs caller-supplied code with the host API bound into its
	// namespace. Output and return values are not captured.
	ExecuteCode(code string) error
}

// Node is a single node in the host's scene graph.
type Node interface {
	Name() string
	Path() string
	TypeName() string
	CategoryName() string

	Position() (x, y float64)
	SetPosition(x, y float64)

	// Color returns the node's RGB color, or nil if unset.
	Color() []float64
	SetColor(r, g, b float64)

	IsBypassed() bool
	IsDisplayFlagSet() bool
	SetDisplayFlag(on bool)
	IsRenderFlagSet() bool
	SetRenderFlag(on bool)

	// Parm returns the named parameter, or nil if the node has no such
	// parameter.
	Parm(name string) Parm

	// Parms returns all parameters in definition order.
	Parms() []Parm

	// Children returns direct child nodes in creation order.
	Children() []Node

	// Child returns the direct child with the given name, or nil.
	Child(name string) Node

	// CreateNode creates a child node of the given type. An empty name, or a
	// name already taken by a sibling, is uniquified with a numeric suffix.
	CreateNode(typeName, name string) (Node, error)

	// SetName renames the node. Fails on empty names, names containing path
	// separators, or sibling collisions.
	SetName(name string) error

	// Destroy removes the node and its children from the scene.
	Destroy()

	// Inputs returns the node's input connections by index; entries may be
	// nil for unconnected inputs.
	Inputs() []Node

	// SetFirstInput connects n to input 0.
	SetFirstInput(n Node)

	// OutputConnections returns every connection where this node feeds
	// another node's input.
	OutputConnections() []OutputConnection
}

// Parm is a single node parameter.
type Parm interface {
	Name() string
	Label() string

	// Eval returns the parameter's current value.
	Eval() any

	// RawValue returns the unevaluated value as a string.
	RawValue() string

	// TypeName returns the parameter template's type name ("String",
	// "Float", "Int", "Toggle").
	TypeName() string

	// Set replaces the parameter value.
	Set(value any)
}

// OutputConnection describes one downstream connection of a node.
type OutputConnection struct {
	Node       Node // the node consuming this node's output
	InputIndex int  // which input on the consuming node
}
