// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package spans

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/petar-djukic/verus-probe/pkg/types"
)

// Macros whose token trees contain items. Their bodies are not parsed by
// the grammar, so they are scanned token by token.
var itemMacros = map[string]bool{
	"verus":  true,
	"cfg_if": true,
}

// Words that may precede fn inside a verus block.
var fnModifiers = map[string]bool{
	"pub": true, "spec": true, "proof": true, "exec": true,
	"open": true, "closed": true, "broadcast": true, "tracked": true,
	"ghost": true, "const": true, "unsafe": true, "async": true,
	"default": true, "extern": true, "uninterp": true,
}

var trustedCalls = map[string]bool{
	"assume": true,
	"admit":  true,
}

// ParseSource extracts every function in src. file is recorded on each span
// as given.
func ParseSource(ctx context.Context, file string, src []byte) ([]types.FunctionSpan, error) {
	root, err := sitter.ParseCtx(ctx, src, rust.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	if root == nil {
		return nil, fmt.Errorf("parsing %s: empty tree", file)
	}

	w := &walker{file: file, src: src}
	w.walk(root, "")
	return w.spans, nil
}

type walker struct {
	file  string
	src   []byte
	spans []types.FunctionSpan
}

// walk visits the named children of n looking for function items, item
// containers and item macros.
func (w *walker) walk(n *sitter.Node, scope string) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "function_item", "function_signature_item":
			w.addItem(child, scope)
			if body := child.ChildByFieldName("body"); body != nil {
				w.walk(body, scope)
			}
		case "impl_item":
			w.walkBody(child, "impl")
		case "trait_item":
			w.walkBody(child, "trait")
		case "mod_item":
			w.walkBody(child, "mod")
		case "macro_invocation":
			if !itemMacros[macroName(child, w.src)] {
				continue
			}
			if tt := lastChildOfType(child, "token_tree"); tt != nil {
				w.scanTokens(tt, scope)
			}
		default:
			w.walk(child, scope)
		}
	}
}

func (w *walker) walkBody(n *sitter.Node, scope string) {
	if body := n.ChildByFieldName("body"); body != nil {
		w.walk(body, scope)
	}
}

// addItem records a function parsed by the grammar.
func (w *walker) addItem(n *sitter.Node, scope string) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}

	span := types.FunctionSpan{
		File:      w.file,
		Name:      name.Content(w.src),
		StartLine: leadingStart(n, w.src),
		NameLine:  startLine(name),
		EndLine:   endLine(n),
		Kind:      types.FnPlain,
		Context:   scope,
	}
	if vis := firstChildOfType(n, "visibility_modifier"); vis != nil {
		span.Visibility = vis.Content(w.src)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		span.HasTrustedAssumption = hasTrustedCall(body, w.src)
	}
	w.spans = append(w.spans, span)
}

// scanTokens finds functions inside an item macro's token tree.
func (w *walker) scanTokens(tt *sitter.Node, scope string) {
	kids := children(tt)
	pending := ""
	for i := 0; i < len(kids); i++ {
		k := kids[i]
		switch {
		case k.Type() == "fn" && i+1 < len(kids) && kids[i+1].Type() == "identifier":
			i = w.scanFn(kids, i, scope)
			pending = ""
		case k.Type() == "impl" || k.Type() == "trait" || k.Type() == "mod":
			pending = k.Type()
		case isDelimited(k, "{"):
			inner := scope
			if pending != "" {
				inner = pending
			}
			w.scanTokens(k, inner)
			pending = ""
		case isSemicolon(k, w.src):
			pending = ""
		}
	}
}

// scanFn records the function whose fn keyword is kids[i] and returns the
// index of the last token it consumed.
func (w *walker) scanFn(kids []*sitter.Node, i int, scope string) int {
	name := kids[i+1]
	span := types.FunctionSpan{
		File:      w.file,
		Name:      name.Content(w.src),
		StartLine: startLine(kids[i]),
		NameLine:  startLine(name),
		Kind:      types.FnPlain,
		Context:   scope,
		InMacro:   true,
	}

	var mods []string
	visibility := ""
back:
	for j := i - 1; j >= 0; j-- {
		k := kids[j]
		text := k.Content(w.src)
		switch {
		case fnModifiers[text]:
			mods = append(mods, text)
			if text == "pub" {
				visibility = "pub" + visibility
			}
			span.StartLine = startLine(k)
		case isDelimited(k, "(") && j > 0 && kids[j-1].Content(w.src) == "pub":
			visibility = text
			span.StartLine = startLine(k)
		case k.Type() == "string_literal" && j > 0 && kids[j-1].Content(w.src) == "extern":
			span.StartLine = startLine(k)
		case isDelimited(k, "[") && j > 0 && strings.HasPrefix(kids[j-1].Content(w.src), "#"):
			j--
			span.StartLine = startLine(kids[j])
		case isDocComment(k, w.src):
			span.StartLine = startLine(k)
		default:
			break back
		}
	}
	span.Visibility = visibility
	span.Kind = kindFromModifiers(mods)

	last := i + 1
	span.EndLine = endLine(name)
	for j := i + 2; j < len(kids); j++ {
		k := kids[j]
		last = j
		if isDelimited(k, "{") && endsSignature(kids, j, w.src) {
			span.EndLine = endLine(k)
			span.HasTrustedAssumption = hasTrustedCall(k, w.src)
			w.spans = append(w.spans, span)
			w.scanTokens(k, scope)
			return j
		}
		if isSemicolon(k, w.src) {
			span.EndLine = endLine(k)
			break
		}
		if k.Type() == "identifier" {
			switch k.Content(w.src) {
			case "requires":
				span.HasRequires = true
			case "ensures":
				span.HasEnsures = true
			}
		}
		span.EndLine = endLine(k)
	}
	w.spans = append(w.spans, span)
	return last
}

// Tokens after which a braced tree is still part of a contract expression.
var contractContinuations = map[string]bool{
	"else": true, "as": true, "requires": true, "ensures": true,
	"recommends": true, "decreases": true, "returns": true, "invariant": true,
	"opens_invariants": true, "no_unwind": true, "when": true, "via": true,
}

// endsSignature reports whether the braced tree kids[j] is a function body
// rather than a block inside a contract such as "if c { a } else { b }" or
// "match o { .. }". A body is followed by the next item, an attribute, the
// end of the enclosing tree or nothing at all.
func endsSignature(kids []*sitter.Node, j int, src []byte) bool {
	for _, k := range kids[j+1:] {
		if k.Type() == "line_comment" || k.Type() == "block_comment" {
			continue
		}
		if k.Type() == "token_tree" {
			return false
		}
		text := k.Content(src)
		if contractContinuations[text] {
			return false
		}
		switch text {
		case "}", ")", "]", ";", "#":
			return true
		}
		if k.IsNamed() || isWord(text) {
			return true
		}
		// Commas and operators continue the expression.
		return false
	}
	return true
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func kindFromModifiers(mods []string) types.FunctionKind {
	for _, m := range mods {
		switch m {
		case "spec":
			return types.FnSpec
		case "proof":
			return types.FnProof
		case "exec":
			return types.FnExec
		}
	}
	return types.FnPlain
}

// leadingStart walks back over attributes and doc comments attached to n.
func leadingStart(n *sitter.Node, src []byte) int {
	start := startLine(n)
	for prev := n.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		if prev.Type() != "attribute_item" && !isDocComment(prev, src) {
			break
		}
		start = startLine(prev)
	}
	return start
}

// hasTrustedCall reports whether n contains a call to assume or admit.
func hasTrustedCall(n *sitter.Node, src []byte) bool {
	if n.Type() == "identifier" && trustedCalls[n.Content(src)] {
		if next := n.NextSibling(); next != nil && (next.Type() == "arguments" || isDelimited(next, "(")) {
			return true
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && hasTrustedCall(c, src) {
			return true
		}
	}
	return false
}

func macroName(n *sitter.Node, src []byte) string {
	m := n.ChildByFieldName("macro")
	if m == nil {
		return ""
	}
	if m.Type() == "scoped_identifier" {
		if name := m.ChildByFieldName("name"); name != nil {
			return name.Content(src)
		}
	}
	return m.Content(src)
}

func isDocComment(n *sitter.Node, src []byte) bool {
	if n.Type() != "line_comment" && n.Type() != "block_comment" {
		return false
	}
	text := n.Content(src)
	if strings.HasPrefix(text, "////") {
		return false
	}
	return strings.HasPrefix(text, "///") || (strings.HasPrefix(text, "/**") && !strings.HasPrefix(text, "/**/"))
}

// isDelimited reports whether n is a token tree opened by open.
func isDelimited(n *sitter.Node, open string) bool {
	if n.Type() != "token_tree" || n.ChildCount() == 0 {
		return false
	}
	first := n.Child(0)
	return first != nil && first.Type() == open
}

func isSemicolon(n *sitter.Node, src []byte) bool {
	return !n.IsNamed() && n.ChildCount() == 0 && strings.Contains(n.Content(src), ";")
}

func children(n *sitter.Node) []*sitter.Node {
	kids := make([]*sitter.Node, 0, n.ChildCount())
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil {
			kids = append(kids, c)
		}
	}
	return kids
}

func firstChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

func lastChildOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		if c := n.Child(i); c != nil && c.Type() == typ {
			return c
		}
	}
	return nil
}

func startLine(n *sitter.Node) int { return int(n.StartPoint().Row) + 1 } // 0-based to 1-based

func endLine(n *sitter.Node) int { return int(n.EndPoint().Row) + 1 }
