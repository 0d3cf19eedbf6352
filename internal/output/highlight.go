//go:build !nosyntaxhighlight

package output

import (
	"io"
	"log/slog"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

const highlightStyle = "github-dark"

// highlightJSON writes src with terminal colors. It reports false when
// nothing was written so the caller can fall back to plain output.
func highlightJSON(w io.Writer, src string) bool {
	lexer := lexers.Get("json")
	if lexer == nil {
		return false
	}
	lexer = chroma.Coalesce(lexer)
	style := styles.Get(highlightStyle)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		slog.Debug("tokenise json", slog.Any("error", err))
		return false
	}
	if err := formatter.Format(w, style, iterator); err != nil {
		slog.Error("highlight json", slog.Any("error", err))
		return true
	}
	return true
}
