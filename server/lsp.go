package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/tally/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "tally-lsp"

// LspServer provides editor diagnostics, hover listings and completion for
// tally documents.
type LspServer struct {
	grammar *compiler.Grammar

	mu   sync.Mutex
	docs map[string]string // by URI

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server compiling with g.
func NewLSP(g *compiler.Grammar) *LspServer {
	s := &LspServer{
		grammar: g,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run serves LSP over stdio until the client goes away.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// Lifecycle

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("tally LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// Documents

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// Completion and hover

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.hover(text, params.Position), nil
}

// complete offers the variables assigned anywhere in text that start with
// prefix, sorted by name.
func complete(text, prefix string) []protocol.CompletionItem {
	items := []protocol.CompletionItem{}
	for _, name := range assignedNames(text) {
		if name == prefix || !strings.HasPrefix(name, prefix) {
			continue
		}
		kind := protocol.CompletionItemKindVariable
		detail := "variable"
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}
	return items
}

// assignedNames returns the sorted names appearing as assignment targets.
// Tokens up to the first lexical error are used, so completion keeps
// working while the document is being edited.
func assignedNames(text string) []string {
	tokens, _ := compiler.Tokenize(text)
	seen := make(map[string]bool)
	var names []string
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].Type == compiler.TokenIdent && tokens[i+1].Type == compiler.TokenEquals && !seen[tokens[i].Literal] {
			seen[tokens[i].Literal] = true
			names = append(names, tokens[i].Literal)
		}
	}
	sort.Strings(names)
	return names
}

// hover shows the bytecode listing of the statement containing the
// identifier under the cursor.
func (s *LspServer) hover(text string, pos protocol.Position) *protocol.Hover {
	word := extractWord(text, pos)
	if word == "" {
		return nil
	}
	progs, spans, err := compiler.CompileStatements(s.grammar, text)
	if err != nil {
		return nil
	}
	offset, ok := offsetOf(text, pos)
	if !ok {
		return nil
	}

	for i, span := range spans {
		if offset < span.Start.Offset || offset > span.End.Offset {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "**%s** in statement %d: `%s`\n\n", word, i+1, text[span.Start.Offset:span.End.Offset])
		fmt.Fprintf(&b, "```\n%s```", progs[i].Listing())
		return &protocol.Hover{
			Contents: protocol.MarkupContent{
				Kind:  protocol.MarkupKindMarkdown,
				Value: b.String(),
			},
			Range: &protocol.Range{
				Start: toLSPPosition(span.Start),
				End:   toLSPPosition(span.End),
			},
		}
	}
	return nil
}

// Diagnostics

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnostics(text),
	})
}

// diagnostics reports the first lexical or syntax error in text, spanning
// the offending character.
func (s *LspServer) diagnostics(text string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	_, err := compiler.Parse(s.grammar, text)
	if err == nil {
		return diagnostics
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	d, ok := diagnose(err, text)
	if !ok {
		return append(diagnostics, protocol.Diagnostic{
			Severity: &severity,
			Source:   &source,
			Message:  err.Error(),
		})
	}

	start := protocol.Position{Line: protocol.UInteger(d.Line - 1), Character: protocol.UInteger(d.Column - 1)}
	end := start
	end.Character++
	return append(diagnostics, protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  fmt.Sprintf("%s error: %s", d.Kind, d.Message),
	})
}

// Positions

func toLSPPosition(p compiler.Position) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(p.Line - 1),
		Character: protocol.UInteger(p.Column - 1),
	}
}

// offsetOf converts an LSP position into a byte offset in text.
func offsetOf(text string, pos protocol.Position) (int, bool) {
	lines := strings.SplitAfter(text, "\n")
	if int(pos.Line) >= len(lines) {
		return 0, false
	}
	offset := 0
	for _, line := range lines[:pos.Line] {
		offset += len(line)
	}
	col := int(pos.Character)
	if n := len(strings.TrimRight(lines[pos.Line], "\n")); col > n {
		col = n
	}
	return offset + col, true
}

// identAt returns the line at pos and the bounds of the identifier
// touching the cursor. ok is false when pos is past the end of text.
func identAt(text string, pos protocol.Position) (line string, start, cursor, end int, ok bool) {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return "", 0, 0, 0, false
	}
	line = lines[pos.Line]
	cursor = min(int(pos.Character), len(line))

	for start = cursor; start > 0 && isIdentChar(rune(line[start-1])); start-- {
	}
	for end = cursor; end < len(line) && isIdentChar(rune(line[end])); end++ {
	}
	return line, start, cursor, end, true
}

// extractPrefix returns the identifier fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	line, start, cursor, _, ok := identAt(text, pos)
	if !ok {
		return ""
	}
	return line[start:cursor]
}

// extractWord returns the whole identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	line, start, _, end, ok := identAt(text, pos)
	if !ok {
		return ""
	}
	return line[start:end]
}

func isIdentChar(ch rune) bool {
	return ch >= 'a' && ch <= 'z'
}

func boolPtr(b bool) *bool {
	return &b
}
