package mcp

import (
	"errors"
	"strings"
	"testing"
)

// fakeRelay records commands and plays back canned envelopes.
type fakeRelay struct {
	response map[string]any
	err      error

	lastCommand string
	lastParams  map[string]any
	calls       int
}

func (f *fakeRelay) SendCommand(cmdType string, params map[string]any) (map[string]any, error) {
	f.calls++
	f.lastCommand = cmdType
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func successEnvelope(result any) map[string]any {
	return map[string]any{"status": "success", "result": result}
}

func errorEnvelope(message string) map[string]any {
	return map[string]any{"status": "error", "message": message}
}

func newFakeServer(relay Relay) *Server {
	return NewServer(strings.NewReader(""), &strings.Builder{}, relay)
}

func TestFormatResult(t *testing.T) {
	if got := formatResult("plain text"); got != "plain text" {
		t.Errorf("string result = %q, want passthrough", got)
	}

	got := formatResult(map[string]any{"name": "geo1"})
	if !strings.Contains(got, `"name": "geo1"`) {
		t.Errorf("map result = %q, want pretty JSON", got)
	}
}

func TestToolDefinitionsMatchRunners(t *testing.T) {
	defs := toolDefinitions()
	if len(defs) != len(toolRunners) {
		t.Errorf("definitions = %d, runners = %d", len(defs), len(toolRunners))
	}
	for _, def := range defs {
		if _, ok := toolRunners[def.Name]; !ok {
			t.Errorf("tool %q has a definition but no runner", def.Name)
		}
	}
}

func TestRunGetSceneInfo(t *testing.T) {
	t.Run("success pretty-prints result", func(t *testing.T) {
		relay := &fakeRelay{response: successEnvelope(map[string]any{"name": "Untitled", "fps": 24})}
		s := newFakeServer(relay)

		text, isError := s.runGetSceneInfo(nil)
		if isError {
			t.Fatalf("unexpected error: %s", text)
		}
		if !strings.Contains(text, `"name": "Untitled"`) {
			t.Errorf("text = %q", text)
		}
		if relay.lastCommand != "get_scene_info" {
			t.Errorf("command = %q", relay.lastCommand)
		}
	})

	t.Run("error envelope", func(t *testing.T) {
		s := newFakeServer(&fakeRelay{response: errorEnvelope("scene unavailable")})

		text, isError := s.runGetSceneInfo(nil)
		if !isError || text != "Houdini error: scene unavailable" {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
	})

	t.Run("relay failure", func(t *testing.T) {
		s := newFakeServer(&fakeRelay{err: errors.New("connection refused")})

		text, isError := s.runGetSceneInfo(nil)
		if !isError || text != "Error retrieving scene info: connection refused" {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
	})
}

func TestRunCreateNode(t *testing.T) {
	t.Run("forwards params and wraps result", func(t *testing.T) {
		relay := &fakeRelay{response: successEnvelope(map[string]any{"path": "/obj/geo1"})}
		s := newFakeServer(relay)

		text, isError := s.runCreateNode(map[string]any{
			"node_type":   "geo",
			"parent_path": "/obj",
			"name":        "geo1",
			"position":    []any{1.0, 2.0},
			"parameters":  map[string]any{"scale": 2},
		})
		if isError {
			t.Fatalf("unexpected error: %s", text)
		}
		if !strings.HasPrefix(text, "Node created: ") {
			t.Errorf("text = %q", text)
		}
		if relay.lastParams["node_type"] != "geo" || relay.lastParams["name"] != "geo1" {
			t.Errorf("params = %v", relay.lastParams)
		}
		if _, ok := relay.lastParams["position"]; !ok {
			t.Error("position not forwarded")
		}
	})

	t.Run("missing node_type never hits the relay", func(t *testing.T) {
		relay := &fakeRelay{}
		s := newFakeServer(relay)

		text, isError := s.runCreateNode(map[string]any{})
		if !isError || text != "Error: node_type is required" {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
		if relay.calls != 0 {
			t.Errorf("relay called %d times", relay.calls)
		}
	})

	t.Run("error envelope", func(t *testing.T) {
		s := newFakeServer(&fakeRelay{response: errorEnvelope("Failed to create node: Parent path not found: /nope")})

		text, isError := s.runCreateNode(map[string]any{"node_type": "geo", "parent_path": "/nope"})
		if !isError || text != "Error: Failed to create node: Parent path not found: /nope" {
			t.Errorf("text = %q", text)
		}
	})
}

func TestRunModifyNode(t *testing.T) {
	relay := &fakeRelay{response: successEnvelope(map[string]any{
		"path":    "/obj/geo1",
		"changes": []any{"Position set to [1, 2]"},
	})}
	s := newFakeServer(relay)

	text, isError := s.runModifyNode(map[string]any{"path": "/obj/geo1", "position": []any{1.0, 2.0}})
	if isError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.HasPrefix(text, "Node modified: ") {
		t.Errorf("text = %q", text)
	}

	text, isError = s.runModifyNode(map[string]any{})
	if !isError || text != "Error: path is required" {
		t.Errorf("missing path: text = %q", text)
	}
}

func TestRunDeleteNode(t *testing.T) {
	relay := &fakeRelay{response: errorEnvelope("Node not found: /obj/missing")}
	s := newFakeServer(relay)

	text, isError := s.runDeleteNode(map[string]any{"path": "/obj/missing"})
	if !isError || text != "Error: Node not found: /obj/missing" {
		t.Errorf("text = %q, isError = %v", text, isError)
	}
	if relay.lastCommand != "delete_node" {
		t.Errorf("command = %q", relay.lastCommand)
	}
}

func TestRunExecuteCode(t *testing.T) {
	t.Run("success is a fixed phrase", func(t *testing.T) {
		relay := &fakeRelay{response: successEnvelope(map[string]any{"executed": true})}
		s := newFakeServer(relay)

		text, isError := s.runExecuteCode(map[string]any{"code": "print('hi')"})
		if isError || text != "Code executed successfully in Houdini." {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
		if relay.lastCommand != "execute_code" {
			t.Errorf("command = %q", relay.lastCommand)
		}
		if relay.lastParams["code"] != "print('hi')" {
			t.Errorf("params = %v", relay.lastParams)
		}
	})

	t.Run("back-end failure", func(t *testing.T) {
		s := newFakeServer(&fakeRelay{response: errorEnvelope("Code execution error: bad syntax")})

		text, isError := s.runExecuteCode(map[string]any{"code": "bad"})
		if !isError || text != "Error: Code execution error: bad syntax" {
			t.Errorf("text = %q", text)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		s := newFakeServer(&fakeRelay{})
		text, isError := s.runExecuteCode(map[string]any{})
		if !isError || text != "Error: code is required" {
			t.Errorf("text = %q", text)
		}
	})
}

func TestRunSetMaterial(t *testing.T) {
	// set_material reports its own failures inside a success envelope, so the
	// structured result comes back pretty-printed either way
	relay := &fakeRelay{response: successEnvelope(map[string]any{
		"status":  "error",
		"message": "Node not found: /obj/missing",
		"node":    "/obj/missing",
	})}
	s := newFakeServer(relay)

	text, isError := s.runSetMaterial(map[string]any{"node_path": "/obj/missing"})
	if isError {
		t.Fatalf("unexpected error flag: %s", text)
	}
	if !strings.Contains(text, `"message": "Node not found: /obj/missing"`) {
		t.Errorf("text = %q", text)
	}
}

func TestRunAssetTools(t *testing.T) {
	t.Run("unknown command string passes through", func(t *testing.T) {
		// With the asset toggle off, the back end answers with a success
		// envelope carrying an explanatory string
		relay := &fakeRelay{response: successEnvelope("Unknown command type: search_assets")}
		s := newFakeServer(relay)

		text, isError := s.runSearchAssets(nil)
		if isError || text != "Unknown command type: search_assets" {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
	})

	t.Run("placeholder result", func(t *testing.T) {
		relay := &fakeRelay{response: successEnvelope(map[string]any{"error": "import_asset not implemented"})}
		s := newFakeServer(relay)

		text, isError := s.runImportAsset(nil)
		if isError || !strings.Contains(text, "import_asset not implemented") {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
	})

	t.Run("status toggle", func(t *testing.T) {
		relay := &fakeRelay{response: successEnvelope(map[string]any{"enabled": false, "message": "Asset library usage is disabled."})}
		s := newFakeServer(relay)

		text, isError := s.runGetAssetLibStatus(nil)
		if isError || !strings.Contains(text, "Asset library usage is disabled.") {
			t.Errorf("text = %q, isError = %v", text, isError)
		}
	})
}
