package transfer

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/gemctl/internal/auth"
	"github.com/danmuck/gemctl/internal/sandbox"
	"github.com/danmuck/gemctl/internal/testutil/testlog"
)

type testConn struct {
	t      *testing.T
	client net.Conn
	reader *bufio.Reader
	done   chan struct{}
}

// startSession wires a handler session to one end of a pipe and returns the
// client side.
func startSession(t *testing.T, root string, validator auth.Validator) *testConn {
	t.Helper()
	resolver, err := sandbox.NewResolver(root)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	h := NewHandler(DefaultConfig(), resolver, validator)

	server, client := net.Pipe()
	sess := h.NewSession(server, "test-peer")
	done := make(chan struct{})
	go func() {
		sess.Run()
		close(done)
	}()
	tc := &testConn{t: t, client: client, reader: bufio.NewReader(client), done: done}
	t.Cleanup(func() {
		_ = client.Close()
		<-done
	})
	return tc
}

func (tc *testConn) send(line string) {
	tc.t.Helper()
	if _, err := tc.client.Write([]byte(line + "\n")); err != nil {
		tc.t.Fatalf("send %q: %v", line, err)
	}
}

func (tc *testConn) recv() string {
	tc.t.Helper()
	_ = tc.client.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := tc.reader.ReadString('\n')
	if err != nil {
		tc.t.Fatalf("recv: %v", err)
	}
	return strings.TrimRight(line, "\n")
}

func TestListDirectory(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "docs", "b"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "docs", "a.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tc := startSession(t, root, nil)

	tc.send("LIST docs")
	if got := tc.recv(); got != "10B a.txt" {
		t.Fatalf("line 1 = %q", got)
	}
	if got := tc.recv(); got != "<DIR> b" {
		t.Fatalf("line 2 = %q", got)
	}
}

func TestListMissingDirectory(t *testing.T) {
	testlog.Start(t)
	tc := startSession(t, t.TempDir(), nil)

	tc.send("LIST nope")
	if got := tc.recv(); got != "ERROR nope not found" {
		t.Fatalf("got %q", got)
	}
}

func TestUploadOutOfOrder(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	tc := startSession(t, root, nil)

	tc.send("UPLOAD f.txt 2")
	tc.send("SEQ1|World")
	tc.send("SEQ0|Hello ")
	tc.send("END f.txt")
	if got := tc.recv(); got != "OK f.txt" {
		t.Fatalf("got %q", got)
	}

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	if err != nil {
		t.Fatalf("read uploaded file: %v", err)
	}
	if string(data) != "Hello World" {
		t.Fatalf("content=%q", data)
	}
}

func TestUploadPreservesCarriageReturn(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	tc := startSession(t, root, nil)

	// Payload bytes up to the newline terminator must survive verbatim,
	// including a trailing 0x0D.
	tc.send("UPLOAD f.bin 1")
	tc.send("SEQ0|abc\r")
	tc.send("END f.bin")
	if got := tc.recv(); got != "OK f.bin" {
		t.Fatalf("got %q", got)
	}

	data, err := os.ReadFile(filepath.Join(root, "f.bin"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "abc\r" {
		t.Fatalf("content=%q, want %q", data, "abc\r")
	}
}

func TestUploadReplacesPriorSession(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	tc := startSession(t, root, nil)

	// A second announcement supersedes the first on the same connection.
	tc.send("UPLOAD a.txt 1")
	tc.send("UPLOAD b.txt 1")
	tc.send("SEQ0|x")
	tc.send("END b.txt")
	if got := tc.recv(); got != "OK b.txt" {
		t.Fatalf("got %q", got)
	}

	data, err := os.ReadFile(filepath.Join(root, "b.txt"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "x" {
		t.Fatalf("content=%q", data)
	}

	// The superseded session is gone, so its END finds nothing.
	tc.send("END a.txt")
	if got := tc.recv(); got != "ERROR a.txt not found" {
		t.Fatalf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("superseded upload was written, err=%v", err)
	}
}

func TestUploadMissingChunkGapFilled(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	tc := startSession(t, root, nil)

	tc.send("UPLOAD f.txt 3")
	tc.send("SEQ0|ab")
	tc.send("SEQ2|cd")
	tc.send("END f.txt")
	if got := tc.recv(); got != "OK f.txt" {
		t.Fatalf("got %q", got)
	}

	data, err := os.ReadFile(filepath.Join(root, "f.txt"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "abcd" {
		t.Fatalf("content=%q", data)
	}
}

func TestEndWithoutUpload(t *testing.T) {
	testlog.Start(t)
	tc := startSession(t, t.TempDir(), nil)

	tc.send("END orphan.txt")
	if got := tc.recv(); got != "ERROR orphan.txt not found" {
		t.Fatalf("got %q", got)
	}
}

func TestDelete(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "gone.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tc := startSession(t, root, nil)

	tc.send("DELETE gone.txt")
	if got := tc.recv(); got != "DELETED gone.txt" {
		t.Fatalf("got %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "gone.txt")); !os.IsNotExist(err) {
		t.Fatalf("file still present, err=%v", err)
	}

	tc.send("DELETE missing.txt")
	if got := tc.recv(); got != "ERROR missing.txt not found" {
		t.Fatalf("got %q", got)
	}
}

func TestUploadTraversalRejected(t *testing.T) {
	testlog.Start(t)
	tc := startSession(t, t.TempDir(), nil)

	tc.send("UPLOAD ../evil.txt 1")
	tc.send("SEQ0|payload")
	tc.send("END ../evil.txt")
	if got := tc.recv(); got != "ERROR ../evil.txt rejected" {
		t.Fatalf("got %q", got)
	}
}

func TestAuthGatesMutations(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tc := startSession(t, root, auth.StaticToken{Token: "s3cret"})

	tc.send("DELETE keep.txt")
	if got := tc.recv(); got != "ERROR unauthorized" {
		t.Fatalf("got %q", got)
	}
	tc.send("AUTH wrong")
	if got := tc.recv(); got != "ERROR unauthorized" {
		t.Fatalf("got %q", got)
	}
	tc.send("AUTH s3cret")
	if got := tc.recv(); got != "OK authenticated" {
		t.Fatalf("got %q", got)
	}
	tc.send("DELETE keep.txt")
	if got := tc.recv(); got != "DELETED keep.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestListOpenWithoutAuth(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tc := startSession(t, root, auth.StaticToken{Token: "s3cret"})

	tc.send("LIST")
	if got := tc.recv(); got != "1B a.txt" {
		t.Fatalf("got %q", got)
	}
}

func TestClientPutRoundTrip(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	resolver, err := sandbox.NewResolver(root)
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	h := NewHandler(DefaultConfig(), resolver, nil)

	server, clientConn := net.Pipe()
	sess := h.NewSession(server, "test-peer")
	done := make(chan struct{})
	go func() {
		sess.Run()
		close(done)
	}()

	cfg := DefaultClientConfig()
	cfg.ChunkSize = 4
	c := NewClient(clientConn, cfg)
	payload := []byte("chunked payload body")
	if err := c.Put("out.bin", payload); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = c.Close()
	<-done

	data, err := os.ReadFile(filepath.Join(root, "out.bin"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("content=%q", data)
	}
}
