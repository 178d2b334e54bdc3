package lsp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	id := json.RawMessage(`1`)
	in := &Message{JSONRPC: "2.0", ID: &id, Method: "textDocument/hover", Params: json.RawMessage(`{"x":1}`)}
	if err := writeMessage(&buf, in); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("Content-Length: ")) {
		t.Fatalf("missing header: %q", buf.String())
	}

	out, err := readMessage(bufio.NewReader(&buf))
	if err != nil {
		t.Fatal(err)
	}
	if out.Method != in.Method || string(*out.ID) != "1" {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestReplyCarriesNullResult(t *testing.T) {
	var out bytes.Buffer
	s := NewServer(bytes.NewReader(nil), &out, nil)
	id := json.RawMessage(`7`)
	s.reply(&id, nil)
	if !bytes.Contains(out.Bytes(), []byte(`"result":null`)) {
		t.Fatalf("a miss response must carry an explicit null result, got %q", out.String())
	}
}

func TestReadMessageEOF(t *testing.T) {
	_, err := readMessage(bufio.NewReader(bytes.NewReader(nil)))
	if err != io.EOF {
		t.Errorf("want io.EOF, got %v", err)
	}
}

// client drives a server over in-memory pipes, collecting everything
// the server writes.
type client struct {
	t      *testing.T
	toSrv  io.WriteCloser
	msgs   chan *Message
	nextID int
}

func startClient(t *testing.T, root string) *client {
	t.Helper()
	clientOut, srvIn := io.Pipe()
	srvOut, clientIn := io.Pipe()

	srv := NewServer(clientOut, clientIn, func(_ string) *workspace.Workspace {
		cfg := workspace.DefaultConfig(root)
		cfg.Watch = false
		cfg.PhpcsBin = filepath.Join(root, "no-phpcs")
		cfg.PhpcbfBin = filepath.Join(root, "no-phpcbf")
		w := workspace.New(cfg)
		w.ScanAndPopulate()
		return w
	})
	go func() {
		if err := srv.Run(context.Background()); err != nil {
			t.Errorf("server stopped: %v", err)
		}
		clientIn.Close()
	}()

	c := &client{t: t, toSrv: srvIn, msgs: make(chan *Message, 16)}
	go func() {
		r := bufio.NewReader(srvOut)
		for {
			msg, err := readMessage(r)
			if err != nil {
				close(c.msgs)
				return
			}
			c.msgs <- msg
		}
	}()
	return c
}

func (c *client) request(method string, params interface{}) *Message {
	c.t.Helper()
	c.nextID++
	id := json.RawMessage(fmt.Sprintf("%d", c.nextID))
	c.send(&Message{JSONRPC: "2.0", ID: &id, Method: method, Params: mustMarshal(c.t, params)})
	for {
		msg := c.recv()
		if msg.ID != nil && string(*msg.ID) == string(id) {
			return msg
		}
	}
}

func (c *client) notify(method string, params interface{}) {
	c.t.Helper()
	c.send(&Message{JSONRPC: "2.0", Method: method, Params: mustMarshal(c.t, params)})
}

func (c *client) send(msg *Message) {
	c.t.Helper()
	var buf bytes.Buffer
	if err := writeMessage(&buf, msg); err != nil {
		c.t.Fatal(err)
	}
	if _, err := c.toSrv.Write(buf.Bytes()); err != nil {
		c.t.Fatal(err)
	}
}

func (c *client) recv() *Message {
	c.t.Helper()
	select {
	case msg, ok := <-c.msgs:
		if !ok {
			c.t.Fatal("server output closed")
		}
		return msg
	case <-time.After(5 * time.Second):
		c.t.Fatal("timed out waiting for server message")
	}
	return nil
}

func (c *client) waitNotification(method string) *Message {
	c.t.Helper()
	for {
		msg := c.recv()
		if msg.Method == method {
			return msg
		}
	}
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func serverRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	path := filepath.Join(root, "modules/custom/site/site.services.yml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	content := "services:\n  site.mailer:\n    class: Drupal\\site\\Mailer\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestServerLifecycle(t *testing.T) {
	root := serverRoot(t)
	c := startClient(t, root)

	resp := c.request("initialize", InitializeParams{RootURI: pathToURI(root)})
	if resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp.Error)
	}
	var init InitializeResult
	if err := json.Unmarshal(mustMarshal(t, resp.Result), &init); err != nil {
		t.Fatal(err)
	}
	if !init.Capabilities.HoverProvider || init.Capabilities.CompletionProvider == nil {
		t.Errorf("capabilities incomplete: %+v", init.Capabilities)
	}
	c.notify("initialized", struct{}{})

	uri := "file:///work/thing.php"
	c.notify("textDocument/didOpen", DidOpenParams{
		TextDocument: TextDocumentItem{URI: uri, Version: 1,
			Text: `$m = \Drupal::service('site.maile');`},
	})
	pub := c.waitNotification("textDocument/publishDiagnostics")
	var diags PublishDiagnosticsParams
	if err := json.Unmarshal(pub.Params, &diags); err != nil {
		t.Fatal(err)
	}
	if len(diags.Diagnostics) != 1 {
		t.Fatalf("want 1 diagnostic for the typo, got %+v", diags.Diagnostics)
	}

	// Fixing the buffer clears the diagnostic on the next change.
	c.notify("textDocument/didChange", map[string]interface{}{
		"textDocument":   map[string]interface{}{"uri": uri, "version": 2},
		"contentChanges": []map[string]string{{"text": `$m = \Drupal::service('site.mailer');`}},
	})
	pub = c.waitNotification("textDocument/publishDiagnostics")
	if err := json.Unmarshal(pub.Params, &diags); err != nil {
		t.Fatal(err)
	}
	if len(diags.Diagnostics) != 0 {
		t.Fatalf("diagnostics should clear, got %+v", diags.Diagnostics)
	}

	resp = c.request("textDocument/completion", PositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Position:     Position{Line: 0, Character: 27},
	})
	var items []CompletionItem
	if err := json.Unmarshal(mustMarshal(t, resp.Result), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) == 0 || items[0].Label != "site.mailer" {
		t.Errorf("completion = %+v", items)
	}

	resp = c.request("no/such/method", struct{}{})
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Errorf("unknown method should error, got %+v", resp)
	}

	resp = c.request("shutdown", nil)
	if resp.Error != nil {
		t.Errorf("shutdown: %+v", resp.Error)
	}
	c.notify("exit", nil)
	for range c.msgs { // drain until the server closes its side
	}
}
