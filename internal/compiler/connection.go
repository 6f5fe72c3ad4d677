package compiler

import (
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// connectionLexer tokenises "src.output -> a.input, b.input".
var connectionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[.,]`},
})

type connectionExpr struct {
	From    *endpointExpr   `parser:"@@ Arrow"`
	Targets []*endpointExpr `parser:"@@ ( ',' @@ )*"`
}

type endpointExpr struct {
	Operation string `parser:"@Ident '.'"`
	Socket    string `parser:"@Ident"`
}

var connectionParser = participle.MustBuild[connectionExpr](
	participle.Lexer(connectionLexer),
	participle.Elide("Whitespace"),
)

// Endpoint names one socket of one operation.
type Endpoint struct {
	Operation string
	Socket    string
}

func (e Endpoint) String() string { return e.Operation + "." + e.Socket }

// ParseConnection parses an expression of the form
// "op.output -> op.input[, op.input...]" into one Connection per target.
func ParseConnection(expr string) ([]Connection, error) {
	parsed, err := connectionParser.ParseString("", expr)
	if err != nil {
		return nil, fmt.Errorf("connection %q: %w", expr, err)
	}
	from := Endpoint{Operation: parsed.From.Operation, Socket: parsed.From.Socket}
	conns := make([]Connection, 0, len(parsed.Targets))
	for _, t := range parsed.Targets {
		conns = append(conns, Connection{
			From: from,
			To:   Endpoint{Operation: t.Operation, Socket: t.Socket},
		})
	}
	return conns, nil
}
