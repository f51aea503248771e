package outline

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/cheese-zj/forktree/internal/branch"
)

// forkPalette is indexed by a fork's color index.
var forkPalette = [12]lipgloss.Color{
	"203", "208", "220", "113", "43", "39",
	"63", "135", "170", "205", "180", "109",
}

// mainPalette colors uncolored rows by depth.
var mainPalette = [4]lipgloss.Color{"252", "250", "247", "244"}

var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	styleViewing = lipgloss.NewStyle().Bold(true).Underline(true)
)

type Options struct {
	Width int  // wrap width (0 = no wrap)
	Color bool // ANSI styling
	// Truncate cuts each row at Width instead of wrapping it.
	Truncate bool
}

// Render draws out as an indented outline, one row per node. Nested previews
// follow the fork marker they belong to.
func Render(out branch.Output, opts Options) string {
	var b strings.Builder
	for _, l := range Lines(out.Nodes, opts) {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return b.String()
}

// Lines returns the rows Render would print, wrapped or truncated to opts.Width.
func Lines(nodes []branch.Node, opts Options) []string {
	var lines []string
	var walk func([]branch.Node)
	walk = func(ns []branch.Node) {
		for _, n := range ns {
			row := prefix(n) + label(n)
			if opts.Width > 0 && opts.Truncate {
				row = runewidth.Truncate(row, opts.Width, "…")
			}
			if opts.Color {
				row = style(n).Render(row)
			}
			if opts.Width > 0 && !opts.Truncate {
				lines = append(lines, wrapLine(row, opts.Width)...)
			} else {
				lines = append(lines, row)
			}
			if n.Fork != nil {
				walk(n.Fork.Nested)
			}
		}
	}
	walk(nodes)
	return lines
}

func prefix(n branch.Node) string {
	if n.Kind == branch.KindTitle {
		return ""
	}
	connector := "├─ "
	if n.IsTerminal {
		connector = "└─ "
	}
	return strings.Repeat("│  ", n.Depth) + connector
}

func label(n branch.Node) string {
	text := strings.Join(strings.Fields(n.Text), " ")
	switch n.Kind {
	case branch.KindTitle:
		if n.Title != nil && n.Title.IsMainViewing {
			return text + " (viewing)"
		}
		return text
	case branch.KindBranch:
		if n.Fork.ForkRoot {
			return "↰ forked from " + text
		}
		s := "⑂ " + n.Fork.BranchPath + " " + text
		if n.Fork.IsViewing {
			s += " ◀"
		} else if n.Fork.Expanded {
			s += " ▾"
		}
		return s
	case branch.KindNestedPreview:
		return "· " + n.Fork.BranchPath + " " + text
	default:
		return text
	}
}

func style(n branch.Node) lipgloss.Style {
	switch {
	case n.Kind == branch.KindTitle:
		return styleTitle
	case n.Kind == branch.KindBranch && n.Fork.IsViewing:
		return styleViewing.Foreground(forkPalette[*n.Color%len(forkPalette)])
	case n.Color != nil:
		return lipgloss.NewStyle().Foreground(forkPalette[*n.Color%len(forkPalette)])
	case n.Kind == branch.KindBranch:
		return styleDim
	default:
		return lipgloss.NewStyle().Foreground(mainPalette[branch.MainLineColor(n.Depth)])
	}
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, skipping ANSI escape sequences when measuring width.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}
	if len(result) == 0 {
		return []string{""}
	}
	return result
}
