package registry

import (
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const regTestResearch = "research"

// mockToolkit is a simple mock for testing.
type mockToolkit struct {
	kind       string
	name       string
	tools      []string
	registered int
	closeCalls int
	closeErr   error
}

func (m *mockToolkit) Kind() string                { return m.kind }
func (m *mockToolkit) Name() string                { return m.name }
func (m *mockToolkit) RegisterTools(_ *mcp.Server) { m.registered++ }
func (m *mockToolkit) Tools() []string             { return m.tools }
func (m *mockToolkit) Close() error                { m.closeCalls++; return m.closeErr }

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestResearch, name: "primary"}

	if err := reg.Register(toolkit); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, ok := reg.Get(regTestResearch, "primary")
	if !ok {
		t.Fatal("Get() returned false")
	}
	if got.Kind() != regTestResearch {
		t.Errorf("Kind() = %q, want %q", got.Kind(), regTestResearch)
	}
	if _, ok := reg.Get("nonexistent", "name"); ok {
		t.Error("Get() returned true for nonexistent toolkit")
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	reg := NewRegistry()
	toolkit := &mockToolkit{kind: regTestResearch, name: "primary"}

	_ = reg.Register(toolkit)
	if err := reg.Register(toolkit); err == nil {
		t.Error("Register() expected error for duplicate")
	}
}

func TestRegistry_RegisterDuplicateToolName(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: regTestResearch, name: "a", tools: []string{"autocomplete", "session_enrich"}})

	err := reg.Register(&mockToolkit{kind: "businesses", name: "b", tools: []string{"match_businesses", "autocomplete"}})
	if err == nil {
		t.Fatal("Register() expected error for a tool name collision")
	}
	if !strings.Contains(err.Error(), `"autocomplete"`) {
		t.Errorf("error = %v, want the colliding tool name", err)
	}
	if len(reg.All()) != 1 {
		t.Errorf("All() returned %d toolkits, want 1", len(reg.All()))
	}
	if _, _, found := reg.GetToolkitForTool("match_businesses"); found {
		t.Error("rejected toolkit's tools must not be indexed")
	}
}

func TestRegistry_AllKeepsOrder(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: "sessiondata", name: "x", tools: []string{"create_new_session"}})
	_ = reg.Register(&mockToolkit{kind: regTestResearch, name: "y", tools: []string{"create_search_session", "session_view_data"}})

	all := reg.All()
	if len(all) != 2 || all[0].Kind() != "sessiondata" || all[1].Kind() != regTestResearch {
		t.Errorf("All() order = %v", all)
	}

	tools := reg.AllTools()
	want := []string{"create_new_session", "create_search_session", "session_view_data"}
	if strings.Join(tools, ",") != strings.Join(want, ",") {
		t.Errorf("AllTools() = %v, want %v", tools, want)
	}
}

func TestRegistry_GetToolkitForTool(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: regTestResearch, name: "primary", tools: []string{"session_enrich"}})

	kind, name, found := reg.GetToolkitForTool("session_enrich")
	if !found || kind != regTestResearch || name != "primary" {
		t.Errorf("GetToolkitForTool() = %q, %q, %v", kind, name, found)
	}
	if _, _, found := reg.GetToolkitForTool("unknown"); found {
		t.Error("GetToolkitForTool() found an unknown tool")
	}
}

func TestRegistry_RegisterAllTools(t *testing.T) {
	reg := NewRegistry()
	a := &mockToolkit{kind: regTestResearch, name: "a"}
	b := &mockToolkit{kind: "businesses", name: "b"}
	_ = reg.Register(a)
	_ = reg.Register(b)

	server := mcp.NewServer(&mcp.Implementation{Name: "test", Version: "1.0.0"}, nil)
	reg.RegisterAllTools(server)

	if a.registered != 1 || b.registered != 1 {
		t.Errorf("registered = %d, %d, want 1, 1", a.registered, b.registered)
	}
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry()
	ok := &mockToolkit{kind: regTestResearch, name: "ok"}
	failing := &mockToolkit{kind: regTestResearch, name: "failing", closeErr: errors.New("close error")}
	_ = reg.Register(ok)
	_ = reg.Register(failing)

	err := reg.Close()
	if err == nil {
		t.Fatal("Close() expected error when a toolkit fails")
	}
	if !strings.Contains(err.Error(), "research:failing") {
		t.Errorf("Close() error = %v, want the failing toolkit named", err)
	}
	if ok.closeCalls != 1 || failing.closeCalls != 1 {
		t.Errorf("closeCalls = %d, %d, want 1, 1", ok.closeCalls, failing.closeCalls)
	}
}

func TestRegistry_Factory(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFactory("custom", func(name string, _ Deps) (Toolkit, error) {
		return &mockToolkit{kind: "custom", name: name}, nil
	})

	if err := reg.CreateAndRegister(ToolkitConfig{Kind: "custom", Name: "test"}, Deps{}); err != nil {
		t.Fatalf("CreateAndRegister() error = %v", err)
	}
	if _, ok := reg.Get("custom", "test"); !ok {
		t.Error("Get() returned false after CreateAndRegister")
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFactory("failing", func(_ string, _ Deps) (Toolkit, error) {
		return nil, errors.New("factory error")
	})

	err := reg.CreateAndRegister(ToolkitConfig{Kind: "failing", Name: "test"}, Deps{})
	if err == nil || !strings.Contains(err.Error(), "factory error") {
		t.Errorf("CreateAndRegister() error = %v, want factory error", err)
	}
}

func TestRegistry_UnknownKind(t *testing.T) {
	reg := NewRegistry()
	if err := reg.CreateAndRegister(ToolkitConfig{Kind: "missing", Name: "x"}, Deps{}); err == nil {
		t.Error("CreateAndRegister() expected error for unknown kind")
	}
}

func TestRegistry_RejectedToolkitIsClosed(t *testing.T) {
	reg := NewRegistry()
	_ = reg.Register(&mockToolkit{kind: "custom", name: "dup"})

	created := &mockToolkit{kind: "custom", name: "dup"}
	reg.RegisterFactory("custom", func(string, Deps) (Toolkit, error) { return created, nil })

	if err := reg.CreateAndRegister(ToolkitConfig{Kind: "custom", Name: "dup"}, Deps{}); err == nil {
		t.Fatal("CreateAndRegister() expected duplicate error")
	}
	if created.closeCalls != 1 {
		t.Errorf("closeCalls = %d, want 1", created.closeCalls)
	}
}
