package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AdaptChat/harmony/pkg/events"
	"github.com/AdaptChat/harmony/pkg/gateway"
	"github.com/AdaptChat/harmony/pkg/presence"
	"github.com/AdaptChat/harmony/pkg/session"
	"github.com/AdaptChat/harmony/pkg/wire"
)

// executeCommand runs the root command with a fresh flag state and captures
// its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile = filepath.Join(t.TempDir(), "absent.yaml")
	gatewayURL = ""
	token = ""
	format = ""
	device = ""

	buf := new(bytes.Buffer)
	root := RootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func startGateway(t *testing.T) string {
	t.Helper()
	dir := session.NewMemoryDirectory()
	dir.AddUser(wire.User{ID: 1, Username: "alice"}, "alice-token")
	dir.AddGuild(wire.Guild{ID: 100, Name: "general", OwnerID: 1}, 1)

	gw := gateway.New(dir, presence.NewMemoryStore(), events.NewHub())
	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gw.Close()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	if err != nil {
		t.Fatalf("version command failed: %v", err)
	}
	if !strings.Contains(out, "harmonyctl version") {
		t.Errorf("expected output to contain 'harmonyctl version', got: %s", out)
	}
	if !strings.Contains(out, "gateway protocol: v1") {
		t.Errorf("expected output to contain 'gateway protocol: v1', got: %s", out)
	}
}

func TestProbeCommand(t *testing.T) {
	url := startGateway(t)
	out, err := executeCommand(t, "probe", "--gateway", url, "--token", "alice-token")
	if err != nil {
		t.Fatalf("probe command failed: %v\noutput: %s", err, out)
	}
	if !strings.Contains(out, `"op":"hello"`) {
		t.Errorf("expected a hello frame, got: %s", out)
	}
	if !strings.Contains(out, `"op":"ready"`) {
		t.Errorf("expected a ready frame, got: %s", out)
	}
	if !strings.Contains(out, `"username":"alice"`) {
		t.Errorf("expected the user in the ready frame, got: %s", out)
	}
}

func TestProbeCommandMsgpack(t *testing.T) {
	url := startGateway(t)
	out, err := executeCommand(t, "probe", "--gateway", url, "--token", "alice-token", "-f", "msgpack")
	if err != nil {
		t.Fatalf("probe command failed: %v\noutput: %s", err, out)
	}
	// Frames are rendered as JSON whatever the wire format was.
	if !strings.Contains(out, `"op":"ready"`) {
		t.Errorf("expected a ready frame, got: %s", out)
	}
}

func TestProbeCommandBadToken(t *testing.T) {
	url := startGateway(t)
	out, err := executeCommand(t, "probe", "--gateway", url, "--token", "wrong")
	if err == nil {
		t.Fatalf("expected probe to fail, output: %s", out)
	}
}

func TestProbeCommandNoToken(t *testing.T) {
	out, err := executeCommand(t, "probe", "--gateway", "ws://localhost:1")
	if err == nil {
		t.Fatalf("expected probe to fail without a token, output: %s", out)
	}
	if !strings.Contains(err.Error(), "no token configured") {
		t.Errorf("error: got %v", err)
	}
}

func TestProbeCommandBadFormat(t *testing.T) {
	_, err := executeCommand(t, "probe", "--gateway", "ws://localhost:1", "--token", "x", "-f", "xml")
	if err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}
