// Package syntax checks that generated modules parse as JavaScript with JSX.
package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Error locates the first syntax error in a source. Row and Column are
// zero-based.
type Error struct {
	Row    uint32
	Column uint32
	// Missing is set when the parser recovered by inserting a token.
	Missing bool
	Snippet string
}

func (e *Error) Error() string {
	what := "syntax error"
	if e.Missing {
		what = "missing token"
	}
	if e.Snippet != "" {
		return fmt.Sprintf("%s at %d:%d near %q", what, e.Row+1, e.Column+1, e.Snippet)
	}
	return fmt.Sprintf("%s at %d:%d", what, e.Row+1, e.Column+1)
}

// Check parses src with the tree-sitter JavaScript grammar, which accepts
// JSX, and returns *Error for the first error node.
func Check(ctx context.Context, src []byte) error {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return fmt.Errorf("parsing source: %w", err)
	}
	root := tree.RootNode()
	if !root.HasError() {
		return nil
	}

	bad := firstError(root)
	if bad == nil {
		return &Error{}
	}
	p := bad.StartPoint()
	return &Error{
		Row:     p.Row,
		Column:  p.Column,
		Missing: bad.IsMissing(),
		Snippet: snippet(bad.Content(src)),
	}
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	if !n.HasError() {
		return nil
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if found := firstError(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

func snippet(s string) string {
	const limit = 40
	r := []rune(s)
	if len(r) > limit {
		return string(r[:limit]) + "..."
	}
	return s
}
