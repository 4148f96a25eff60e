package mcp

import (
	"testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(&Config{
		Name:    "panelwell",
		Version: "test",
		Root:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	if s.server == nil {
		t.Error("sdk server should be initialized")
	}
	if s.store == nil {
		t.Error("store should be initialized")
	}
	if s.cfg == nil {
		t.Error("config should be initialized")
	}
}

func TestNewServer_ToolLimiters(t *testing.T) {
	s := newTestServer(t)

	if s.toolLimiters == nil {
		t.Fatal("toolLimiters should be initialized")
	}

	for _, tool := range []string{"panel_simulate", "panel_describe", "panel_fit"} {
		if _, ok := s.toolLimiters[tool]; !ok {
			t.Errorf("missing rate limiter for tool: %s", tool)
		}
	}
}
