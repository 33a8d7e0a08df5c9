// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixgen

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SyntaxChecker parses JavaScript and TypeScript sources with tree-sitter.
//
// Thread Safety: Safe for concurrent use; each call uses its own parser.
type SyntaxChecker struct{}

// NewSyntaxChecker creates a SyntaxChecker.
func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

// SyntaxResult is the outcome of one parse.
type SyntaxResult struct {
	// Supported is false for languages without a grammar; Clean is then true.
	Supported bool

	// Clean is true when the tree has no ERROR or MISSING nodes.
	Clean bool

	// ErrorLine is the 1-indexed line of the first error, 0 when clean.
	ErrorLine int
}

// Check parses src as language ("javascript", "typescript", "tsx").
func (c *SyntaxChecker) Check(ctx context.Context, language string, src []byte) (SyntaxResult, error) {
	lang := grammar(language)
	if lang == nil {
		return SyntaxResult{Clean: true}, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return SyntaxResult{}, fmt.Errorf("parsing %s: %w", language, err)
	}
	defer tree.Close()

	errNode := findFirstError(tree.RootNode())
	if errNode == nil {
		return SyntaxResult{Supported: true, Clean: true}, nil
	}
	return SyntaxResult{
		Supported: true,
		ErrorLine: int(errNode.StartPoint().Row) + 1,
	}, nil
}

func grammar(language string) *sitter.Language {
	switch language {
	case "javascript":
		return javascript.GetLanguage()
	case "typescript":
		return typescript.GetLanguage()
	case "tsx":
		return tsx.GetLanguage()
	default:
		return nil
	}
}

// findFirstError returns the first ERROR or MISSING node in document order.
func findFirstError(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if found := findFirstError(node.Child(int(i))); found != nil {
			return found
		}
	}
	return nil
}
