package format

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// Mermaid source shown as code (```mmd fences, or ```mermaid when the
// chroma build lacks a lexer) is highlighted with this lexer.
var mermaidLexer = chroma.MustNewLexer(
	&chroma.Config{
		Name:            "Mermaid",
		Aliases:         []string{"mermaid", "mmd"},
		Filenames:       []string{"*.mmd", "*.mermaid"},
		MimeTypes:       []string{"text/vnd.mermaid"},
		CaseInsensitive: true,
	},
	func() chroma.Rules {
		return chroma.Rules{
			"root": {
				{Pattern: `%%[^\n]*`, Type: chroma.CommentSingle},
				{Pattern: `"[^"\n]*"`, Type: chroma.LiteralString},
				{Pattern: `\b(graph|flowchart|sequenceDiagram|classDiagram|stateDiagram(-v2)?|erDiagram|gantt|pie|gitGraph|journey|mindmap|requirementDiagram|timeline)\b`, Type: chroma.Keyword},
				{Pattern: `\b(subgraph|end|direction|classDef|class|style|linkStyle|click|participant|actor|loop|alt|else|opt|par|note|title|section)\b`, Type: chroma.KeywordReserved},
				{Pattern: `\b(TB|TD|BT|RL|LR|true|false)\b`, Type: chroma.KeywordConstant},
				{Pattern: `\[\[.*?\]\]|\[\(.*?\)\]|\(\(.*?\)\)|\{\{.*?\}\}`, Type: chroma.KeywordType},
				{Pattern: `-->>|->>|-->|---|==>|-\.->|--x|--o`, Type: chroma.Operator},
				{Pattern: `\|[^|\n]*\|`, Type: chroma.LiteralStringOther},
				{Pattern: `\d+(\.\d+)?`, Type: chroma.LiteralNumber},
				{Pattern: `[A-Za-z_][\w-]*`, Type: chroma.Name},
				{Pattern: `\s+`, Type: chroma.TextWhitespace},
				{Pattern: `.`, Type: chroma.Punctuation},
			},
		}
	},
)

func init() {
	if lexers.Get("mmd") == nil {
		lexers.Register(mermaidLexer)
	}
}
