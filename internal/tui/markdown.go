package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// renderMarkdown renders a question description for the terminal. Soft
// line breaks reflow; fenced code is highlighted with chroma.
func renderMarkdown(input string, theme Theme, width int) string {
	if input == "" {
		return ""
	}
	source := []byte(input)
	doc := getMarkdownParser().Parser().Parse(text.NewReader(source))

	// Forced profile so output is colored without a TTY.
	lip := lipgloss.NewRenderer(os.Stderr, termenv.WithProfile(termenv.ANSI256))
	lip.SetColorProfile(termenv.ANSI256)

	r := &mdRenderer{source: source, theme: theme, width: max(width, 10), lip: lip}
	_ = ast.Walk(doc, r.walk)
	r.flush()
	return strings.TrimRight(r.out.String(), "\n")
}

type mdRenderer struct {
	source []byte
	theme  Theme
	width  int
	lip    *lipgloss.Renderer

	out    strings.Builder
	inline strings.Builder
	prefix string
	bold   int
	italic int
	lists  []int // next ordinal per nesting level; 0 for bullets
}

func (r *mdRenderer) style() lipgloss.Style {
	return r.lip.NewStyle().Foreground(r.theme.NormalText)
}

func (r *mdRenderer) flush() {
	content := strings.TrimSpace(r.inline.String())
	r.inline.Reset()
	if content == "" {
		return
	}
	wrapped := ansi.Wrap(content, r.width-ansi.StringWidth(r.prefix), " ,.;-+|")
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			r.out.WriteString(r.prefix)
		} else {
			r.out.WriteString(strings.Repeat(" ", ansi.StringWidth(r.prefix)))
		}
		r.out.WriteString(line)
		r.out.WriteString("\n")
	}
	r.prefix = ""
}

func (r *mdRenderer) blank() {
	if s := r.out.String(); s != "" && !strings.HasSuffix(s, "\n\n") {
		r.out.WriteString("\n")
	}
}

func (r *mdRenderer) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n := node.(type) {
	case *ast.Heading:
		if entering {
			r.flush()
			r.blank()
			r.bold++
		} else {
			r.bold--
			content := ansi.Strip(r.inline.String())
			r.inline.Reset()
			r.out.WriteString(r.style().Bold(true).Foreground(r.theme.HeaderForeground).Render(content))
			r.out.WriteString("\n\n")
		}

	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			r.flush()
			if _, inList := node.Parent().(*ast.ListItem); !inList {
				r.blank()
			}
		}

	case *ast.List:
		if entering {
			r.flush()
			start := 0
			if n.IsOrdered() {
				start = n.Start
			}
			r.lists = append(r.lists, start)
		} else {
			r.lists = r.lists[:len(r.lists)-1]
			r.blank()
		}

	case *ast.ListItem:
		if entering {
			indent := strings.Repeat("  ", len(r.lists)-1)
			top := len(r.lists) - 1
			if r.lists[top] > 0 {
				r.prefix = indent + strconv.Itoa(r.lists[top]) + ". "
				r.lists[top]++
			} else {
				r.prefix = indent + "• "
			}
		} else {
			r.flush()
		}

	case *ast.FencedCodeBlock:
		if entering {
			r.flush()
			r.blank()
			var code strings.Builder
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				code.Write(seg.Value(r.source))
			}
			r.out.WriteString(r.highlight(code.String(), string(n.Language(r.source))))
			r.out.WriteString("\n")
			r.blank()
		}
		return ast.WalkSkipChildren, nil

	case *ast.CodeSpan:
		if entering {
			var code strings.Builder
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					code.Write(t.Segment.Value(r.source))
				}
			}
			r.inline.WriteString(r.lip.NewStyle().Foreground(r.theme.StatusRunning).Render(code.String()))
		}
		return ast.WalkSkipChildren, nil

	case *ast.Emphasis:
		delta := 1
		if !entering {
			delta = -1
		}
		if n.Level >= 2 {
			r.bold += delta
		} else {
			r.italic += delta
		}

	case *ast.Text:
		if entering {
			st := r.style().Bold(r.bold > 0).Italic(r.italic > 0)
			r.inline.WriteString(st.Render(string(n.Segment.Value(r.source))))
			if n.SoftLineBreak() || n.HardLineBreak() {
				r.inline.WriteString(" ")
			}
		}
	}
	return ast.WalkContinue, nil
}

func (r *mdRenderer) highlight(code, language string) string {
	code = strings.TrimRight(code, "\n")
	if language == "" {
		return r.lip.NewStyle().Foreground(r.theme.FaintText).Render(code)
	}
	var buf strings.Builder
	if err := quick.Highlight(&buf, code, language, "terminal256", r.theme.CodeStyle); err != nil {
		return r.lip.NewStyle().Foreground(r.theme.FaintText).Render(code)
	}
	return strings.TrimRight(buf.String(), "\n")
}
