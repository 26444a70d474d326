// Package server implements a language server for lamc source files.
package server

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/lamc/compiler"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "lamc-lsp"

var log = commonlog.GetLogger("lamc.server")

// document is an open file plus its last successful compilation.
type document struct {
	text string

	// good is the last result that compiled, and goodText its source.
	good     *compiler.Result
	goodText string
}

// LspServer answers editor requests by compiling open documents.
type LspServer struct {
	opts compiler.Options

	mu   sync.Mutex
	docs map[string]*document // URI → document

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server compiling with opts.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		opts:    opts,
		docs:    make(map[string]*document),
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
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initializing", "occurs-check", s.opts.OccursCheck)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

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

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.publish(ctx, uri, s.update(string(uri), params.TextDocument.Text))
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.publish(ctx, uri, s.update(string(uri), whole.Text))
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	s.publish(ctx, uri, []protocol.Diagnostic{})
	return nil
}

func (s *LspServer) publish(ctx *glsp.Context, uri protocol.DocumentUri, diagnostics []protocol.Diagnostic) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// update stores text for uri, compiles it and returns its diagnostics.
func (s *LspServer) update(uri, text string) []protocol.Diagnostic {
	res, err := compiler.Compile(text, s.opts)

	s.mu.Lock()
	doc, ok := s.docs[uri]
	if !ok {
		doc = &document{}
		s.docs[uri] = doc
	}
	doc.text = text
	if err == nil {
		doc.good = res
		doc.goodText = text
	}
	s.mu.Unlock()

	if err != nil {
		log.Debug("compile failed", "uri", uri, "error", err.Error())
		return []protocol.Diagnostic{diagnostic(text, err)}
	}
	log.Debug("compiled", "uri", uri, "type", res.Type.String())
	return []protocol.Diagnostic{}
}

// diagnostic converts a compile error into an LSP diagnostic one
// character wide at the error position.
func diagnostic(text string, err error) protocol.Diagnostic {
	var pos compiler.Position
	var (
		syntaxErr  *compiler.SyntaxError
		unboundErr *compiler.UnboundVariableError
		typeErr    *compiler.TypeMismatchError
	)
	switch {
	case errors.As(err, &syntaxErr):
		pos = syntaxErr.Pos
	case errors.As(err, &unboundErr):
		pos = unboundErr.Pos
	case errors.As(err, &typeErr):
		pos = typeErr.Pos
	}

	start := toProtocol(pos)
	end := start
	if pos.Offset < len(text) && text[pos.Offset] != '\n' {
		end.Character++
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}
}

// --- Language features ---

// snapshot returns the last good compilation of uri.
func (s *LspServer) snapshot(uri string) (*compiler.Result, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[uri]
	if !ok || doc.good == nil {
		return nil, "", false
	}
	return doc.good, doc.goodText, true
}

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	s.mu.Lock()
	doc, ok := s.docs[string(params.TextDocument.URI)]
	var text string
	if ok {
		text = doc.text
	}
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return s.complete(string(params.TextDocument.URI), extractPrefix(text, params.Position), params.Position), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	return s.hover(string(params.TextDocument.URI), params.Position), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	loc := s.definition(string(params.TextDocument.URI), params.Position)
	if loc == nil {
		return nil, nil
	}
	return loc, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	return s.references(string(params.TextDocument.URI), params.Position, params.Context.IncludeDeclaration), nil
}

// complete offers the binders in scope at pos whose names start with prefix.
func (s *LspServer) complete(uri, prefix string, pos protocol.Position) []protocol.CompletionItem {
	res, text, ok := s.snapshot(uri)
	if !ok {
		return nil
	}
	offset := toOffset(text, pos)

	seen := make(map[string]bool)
	var items []protocol.CompletionItem
	compiler.Walk(res.Scoped, func(e compiler.Expr) bool {
		abs, ok := e.(*compiler.Abs)
		if !ok {
			return true
		}
		// the cursor may sit right after the last character of the body
		if offset < abs.SpanVal.Start.Offset || offset > abs.SpanVal.End.Offset {
			return false
		}
		name := abs.Param.Name
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			kind := protocol.CompletionItemKindVariable
			detail := ""
			if t, ok := res.Inferencer.TypeOf(&compiler.VarRef{Var: abs.Param}); ok {
				detail = t.String()
			}
			nameCopy := name
			items = append(items, protocol.CompletionItem{
				Label:      name,
				Kind:       &kind,
				Detail:     &detail,
				InsertText: &nameCopy,
			})
		}
		return true
	})

	sort.Slice(items, func(i, j int) bool { return items[i].Label < items[j].Label })
	return items
}

// hover shows the type of the innermost expression under pos.
func (s *LspServer) hover(uri string, pos protocol.Position) *protocol.Hover {
	res, text, ok := s.snapshot(uri)
	if !ok {
		return nil
	}
	node := compiler.NodeAt(res.Scoped, toOffset(text, pos))
	if node == nil {
		return nil
	}
	t, ok := res.Inferencer.TypeOf(node)
	if !ok {
		return nil
	}

	span := node.Span()
	src := text[span.Start.Offset:span.End.Offset]
	if len(src) > 60 {
		src = src[:57] + "..."
	}

	r := toRange(span)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("```\n%s : %s\n```", src, t),
		},
		Range: &r,
	}
}

// definition locates the binder of the variable under pos.
func (s *LspServer) definition(uri string, pos protocol.Position) *protocol.Location {
	res, text, ok := s.snapshot(uri)
	if !ok {
		return nil
	}
	ref, ok := compiler.NodeAt(res.Scoped, toOffset(text, pos)).(*compiler.VarRef)
	if !ok {
		return nil
	}
	abs := binder(res.Scoped, ref.Var)
	if abs == nil {
		return nil
	}
	return &protocol.Location{
		URI:   protocol.DocumentUri(uri),
		Range: paramRange(text, abs),
	}
}

// references lists every use of the variable under pos, which may be a
// use or the binder itself.
func (s *LspServer) references(uri string, pos protocol.Position, includeDecl bool) []protocol.Location {
	res, text, ok := s.snapshot(uri)
	if !ok {
		return nil
	}
	offset := toOffset(text, pos)

	var target compiler.Variable
	switch n := compiler.NodeAt(res.Scoped, offset).(type) {
	case *compiler.VarRef:
		target = n.Var
	case *compiler.Abs:
		r := paramRange(text, n)
		if offset < toOffset(text, r.Start) || offset >= toOffset(text, r.End) {
			return nil
		}
		target = n.Param
	default:
		return nil
	}

	var locations []protocol.Location
	if includeDecl {
		if abs := binder(res.Scoped, target); abs != nil {
			locations = append(locations, protocol.Location{URI: protocol.DocumentUri(uri), Range: paramRange(text, abs)})
		}
	}
	compiler.Walk(res.Scoped, func(e compiler.Expr) bool {
		if ref, ok := e.(*compiler.VarRef); ok && ref.Var.ID == target.ID {
			locations = append(locations, protocol.Location{URI: protocol.DocumentUri(uri), Range: toRange(ref.SpanVal)})
		}
		return true
	})
	return locations
}

// binder finds the abstraction that binds v.
func binder(root compiler.Expr, v compiler.Variable) *compiler.Abs {
	var found *compiler.Abs
	compiler.Walk(root, func(e compiler.Expr) bool {
		if abs, ok := e.(*compiler.Abs); ok && abs.Param.ID == v.ID {
			found = abs
		}
		return found == nil
	})
	return found
}

// paramRange is the range of an abstraction's parameter name.
func paramRange(text string, abs *compiler.Abs) protocol.Range {
	start := abs.SpanVal.Start
	i := start.Offset + 1 // skip the backslash
	for i < len(text) && (text[i] == ' ' || text[i] == '\t' || text[i] == '\r' || text[i] == '\n') {
		i++
	}
	p := positionOf(text, i)
	return protocol.Range{Start: p, End: positionOf(text, i+len(abs.Param.Name))}
}

// --- Position conversion ---

func toProtocol(p compiler.Position) protocol.Position {
	if p.Line == 0 {
		return protocol.Position{}
	}
	return protocol.Position{Line: protocol.UInteger(p.Line - 1), Character: protocol.UInteger(p.Column - 1)}
}

func toRange(s compiler.Span) protocol.Range {
	return protocol.Range{Start: toProtocol(s.Start), End: toProtocol(s.End)}
}

// toOffset converts a line/character position to a byte offset in text,
// clamping to the end of the line.
func toOffset(text string, pos protocol.Position) int {
	offset := 0
	for line := 0; line < int(pos.Line); line++ {
		nl := strings.IndexByte(text[offset:], '\n')
		if nl < 0 {
			return len(text)
		}
		offset += nl + 1
	}
	end := strings.IndexByte(text[offset:], '\n')
	if end < 0 {
		end = len(text) - offset
	}
	if int(pos.Character) < end {
		return offset + int(pos.Character)
	}
	return offset + end
}

// positionOf converts a byte offset to a line/character position.
func positionOf(text string, offset int) protocol.Position {
	if offset > len(text) {
		offset = len(text)
	}
	line := strings.Count(text[:offset], "\n")
	col := offset - (strings.LastIndexByte(text[:offset], '\n') + 1)
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// --- Text extraction helpers ---

// extractPrefix returns the identifier fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 {
		ch := rune(line[start-1])
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' {
			start--
		} else {
			break
		}
	}

	return line[start:col]
}

func boolPtr(b bool) *bool {
	return &b
}
