package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CheckResult is the outcome of a one-shot completion check.
type CheckResult struct {
	Workspace string
	Complete  bool
	// GoalErr is set when no goal state could be read.
	GoalErr   error
	LiveNodes int
	GoalNodes int
	Diff      string
}

type styles struct {
	ok, fail, muted, add, del lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		ok:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		fail:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		muted: r.NewStyle().Faint(true),
		add:   r.NewStyle().Foreground(lipgloss.Color("2")),
		del:   r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

// WriteCheck prints the status line and, for a mismatch, the label diff.
// Colors are only emitted when w is a terminal.
func WriteCheck(w io.Writer, res CheckResult) error {
	st := newStyles(w)
	var b strings.Builder
	switch {
	case res.GoalErr != nil:
		fmt.Fprintf(&b, "%s %s\n", st.fail.Render("✗ goal unavailable"), st.muted.Render(res.GoalErr.Error()))
	case res.Complete:
		fmt.Fprintf(&b, "%s %s\n", st.ok.Render("✓ goal reached"), st.muted.Render(res.Workspace))
	default:
		fmt.Fprintf(&b, "%s %s\n", st.fail.Render("✗ goal not reached"), st.muted.Render(res.Workspace))
	}
	if res.GoalErr == nil {
		fmt.Fprintf(&b, "%s\n", st.muted.Render(fmt.Sprintf("live: %d nodes, goal: %d nodes", res.LiveNodes, res.GoalNodes)))
	}
	if !res.Complete && res.Diff != "" {
		b.WriteString("\n")
		for line := range strings.Lines(res.Diff) {
			text := strings.TrimSuffix(line, "\n")
			switch {
			case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"), strings.HasPrefix(text, "@@"):
				text = st.muted.Render(text)
			case strings.HasPrefix(text, "+"):
				text = st.add.Render(text)
			case strings.HasPrefix(text, "-"):
				text = st.del.Render(text)
			}
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
