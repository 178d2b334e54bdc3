package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/syntlyx/drupal-lsp-server/pkg/workspace"
)

// FixCommand is the workspace/executeCommand name for phpcbf.
const FixCommand = "drupal.fixFile"

// Server speaks LSP over a reader/writer pair, stdio in production.
// The workspace is created lazily on initialize, when the client
// tells us the root.
type Server struct {
	in  *bufio.Reader
	out io.Writer

	newWorkspace func(root string) *workspace.Workspace
	ws           *workspace.Workspace
	docs         *DocumentStore
	registry     *Registry

	writeMu sync.Mutex
}

// NewServer wires a server. newWorkspace builds and opens the session
// once the client announces its root directory.
func NewServer(in io.Reader, out io.Writer, newWorkspace func(root string) *workspace.Workspace) *Server {
	return &Server{
		in:           bufio.NewReader(in),
		out:          out,
		newWorkspace: newWorkspace,
		docs:         NewDocumentStore(),
		registry:     NewRegistry(),
	}
}

func (s *Server) setupProviders() {
	s.registry.AddCompletion(&EntityCompletion{WS: s.ws})
	s.registry.AddHover(&EntityHover{WS: s.ws})
	// Class file first; entity definition answers when no class
	// resolves.
	s.registry.AddDefinition(&ClassDefinition{WS: s.ws})
	s.registry.AddDefinition(&EntityDefinition{WS: s.ws})
	s.registry.AddDiagnostics(&EntityDiagnostics{WS: s.ws})
	s.registry.AddDiagnostics(&StyleDiagnostics{WS: s.ws})
}

// Run processes messages until EOF or an exit notification. Handler
// failures degrade to empty results; nothing here can take the
// process down.
func (s *Server) Run(ctx context.Context) error {
	for {
		msg, err := readMessage(s.in)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if msg.Method == "exit" {
			if s.ws != nil {
				s.ws.Close()
			}
			return nil
		}
		s.dispatch(ctx, msg)
	}
}

func (s *Server) reply(id *json.RawMessage, result interface{}) {
	if id == nil {
		return
	}
	if result == nil {
		// A response must carry result or error; a miss is "result":
		// null, not an absent key.
		result = json.RawMessage("null")
	}
	s.send(&Message{ID: id, Result: result})
}

func (s *Server) replyError(id *json.RawMessage, code int, message string) {
	if id == nil {
		return
	}
	s.send(&Message{ID: id, Error: &ResponseError{Code: code, Message: message}})
}

func (s *Server) notify(method string, params interface{}) {
	raw, err := json.Marshal(params)
	if err != nil {
		slog.Error("marshal notification", "method", method, "err", err)
		return
	}
	s.send(&Message{Method: method, Params: raw})
}

func (s *Server) send(msg *Message) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := writeMessage(s.out, msg); err != nil {
		slog.Error("write message", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, msg *Message) {
	switch msg.Method {
	case "initialize":
		s.handleInitialize(msg)
	case "initialized", "$/cancelRequest", "$/setTrace":
		// Nothing to do.
	case "shutdown":
		s.reply(msg.ID, nil)
	case "textDocument/didOpen":
		s.handleDidOpen(ctx, msg)
	case "textDocument/didChange":
		s.handleDidChange(ctx, msg)
	case "textDocument/didSave":
		s.handleDidSave(ctx, msg)
	case "textDocument/didClose":
		s.handleDidClose(msg)
	case "textDocument/completion":
		s.handleCompletion(msg)
	case "textDocument/hover":
		s.handleHover(msg)
	case "textDocument/definition":
		s.handleDefinition(msg)
	case "workspace/didChangeWatchedFiles":
		s.handleWatchedFiles(msg)
	case "workspace/executeCommand":
		s.handleExecuteCommand(ctx, msg)
	default:
		s.replyError(msg.ID, codeMethodNotFound, "unsupported method "+msg.Method)
	}
}

func (s *Server) handleInitialize(msg *Message) {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.replyError(msg.ID, codeInvalidParams, err.Error())
		return
	}
	root := params.RootPath
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}

	s.ws = s.newWorkspace(root)
	s.setupProviders()
	slog.Info("initialized", "root", root, "entities", len(s.ws.ListAll("")))

	s.reply(msg.ID, InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync:   1,
			CompletionProvider: &CompletionOptions{TriggerCharacters: []string{"'", "\"", "@", "."}},
			HoverProvider:      true,
			DefinitionProvider: true,
			ExecuteCommandProvider: &ExecuteCommandOptions{
				Commands: []string{FixCommand},
			},
		},
	})
}

func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	if s.ws == nil {
		return
	}
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         doc.URI,
		Diagnostics: s.registry.Diagnose(ctx, doc),
	})
}

func (s *Server) handleDidOpen(ctx context.Context, msg *Message) {
	var params DidOpenParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	doc := s.docs.Open(params.TextDocument.URI, params.TextDocument.Text, params.TextDocument.Version)
	s.publishDiagnostics(ctx, doc)
}

func (s *Server) handleDidChange(ctx context.Context, msg *Message) {
	var params DidChangeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil || len(params.ContentChanges) == 0 {
		return
	}
	// Full sync: the last change carries the whole buffer.
	text := params.ContentChanges[len(params.ContentChanges)-1].Text
	doc := s.docs.Update(params.TextDocument.URI, text, params.TextDocument.Version)
	if doc == nil {
		return
	}
	s.publishDiagnostics(ctx, doc)
}

func (s *Server) handleDidSave(ctx context.Context, msg *Message) {
	var params DidSaveParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	if s.ws != nil {
		s.ws.OnPathChanged(uriToPath(params.TextDocument.URI))
	}
	if doc, ok := s.docs.Get(params.TextDocument.URI); ok {
		s.publishDiagnostics(ctx, doc)
	}
}

func (s *Server) handleDidClose(msg *Message) {
	var params DidCloseParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	s.docs.Close(params.TextDocument.URI)
	s.notify("textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []Diagnostic{},
	})
}

func (s *Server) position(msg *Message) (*Document, Position, bool) {
	var params PositionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, Position{}, false
	}
	doc, ok := s.docs.Get(params.TextDocument.URI)
	if !ok {
		return nil, Position{}, false
	}
	return doc, params.Position, true
}

func (s *Server) handleCompletion(msg *Message) {
	doc, pos, ok := s.position(msg)
	if !ok || s.ws == nil {
		s.reply(msg.ID, []CompletionItem{})
		return
	}
	items := s.registry.Complete(doc, pos)
	if items == nil {
		items = []CompletionItem{}
	}
	s.reply(msg.ID, items)
}

func (s *Server) handleHover(msg *Message) {
	doc, pos, ok := s.position(msg)
	if !ok || s.ws == nil {
		s.reply(msg.ID, nil)
		return
	}
	s.reply(msg.ID, s.registry.Hover(doc, pos))
}

func (s *Server) handleDefinition(msg *Message) {
	doc, pos, ok := s.position(msg)
	if !ok || s.ws == nil {
		s.reply(msg.ID, nil)
		return
	}
	s.reply(msg.ID, s.registry.Definition(doc, pos))
}

func (s *Server) handleWatchedFiles(msg *Message) {
	if s.ws == nil {
		return
	}
	var params DidChangeWatchedFilesParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return
	}
	for _, change := range params.Changes {
		path := uriToPath(change.URI)
		if change.Type == FileDeleted {
			s.ws.OnPathDeleted(path)
		} else {
			s.ws.OnPathChanged(path)
		}
	}
}

func (s *Server) handleExecuteCommand(ctx context.Context, msg *Message) {
	var params ExecuteCommandParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.replyError(msg.ID, codeInvalidParams, err.Error())
		return
	}
	if params.Command != FixCommand || s.ws == nil || len(params.Arguments) == 0 {
		s.reply(msg.ID, false)
		return
	}
	var uri string
	if err := json.Unmarshal(params.Arguments[0], &uri); err != nil {
		s.replyError(msg.ID, codeInvalidParams, err.Error())
		return
	}
	fixed := s.ws.FixStyle(ctx, uriToPath(uri))
	if fixed {
		// The saved file changed on disk; definition files need a
		// rescan, open buffers get fresh diagnostics on reload.
		s.ws.OnPathChanged(uriToPath(uri))
	}
	s.reply(msg.ID, fixed)
}
