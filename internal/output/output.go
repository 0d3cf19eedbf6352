// Package output renders graphs and completion results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"github.com/thiagokokada/gitviz-go/internal/graph"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want table or json)", s)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

const shortHashLen = 7

func short(id string) string {
	if len(id) == 40 && !strings.Contains(id, ":") {
		return id[:shortHashLen]
	}
	return id
}

// WriteTable prints one row per node with the nodes it points to.
func WriteTable(w io.Writer, g graph.Graph) error {
	if len(g.Nodes) == 0 {
		_, err := fmt.Fprintln(w, "(empty graph)")
		return err
	}
	targets := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Links {
		targets[e.Source] = append(targets[e.Source], short(e.Target))
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Kind", "ID", "Label", "Points to"})
	for i, n := range g.Nodes {
		t.AppendRow(table.Row{
			i,
			n.Type.Letter(),
			short(n.ID),
			n.Hover,
			strings.Join(targets[n.ID], ", "),
		})
	}
	t.Render()
	_, err := fmt.Fprintf(w, "(%d nodes, %d links)\n", len(g.Nodes), len(g.Links))
	return err
}

// WriteJSON prints g as indented JSON, highlighted when color is set.
func WriteJSON(w io.Writer, g graph.Graph, color bool) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	data = append(data, '\n')
	if color {
		if ok := highlightJSON(w, string(data)); ok {
			return nil
		}
	}
	_, err = w.Write(data)
	return err
}
