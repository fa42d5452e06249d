package markdown

import "strings"

// Theme holds the class attribute written on each generated tag. An empty
// field writes the bare tag.
type Theme struct {
	Paragraph string
	List      string
	Item      string
	Heading3  string
	Heading4  string
}

// DefaultTheme carries the classes the portfolio chat widget styles against.
var DefaultTheme = Theme{
	Paragraph: "mb-4 last:mb-0 leading-relaxed",
	List:      "my-4 space-y-1",
	Item:      "ml-5 list-disc mb-1",
	Heading3:  "text-white font-bold mt-5 mb-3",
	Heading4:  "text-accent font-bold mt-4 mb-2",
}

// Plain renders tags without class attributes.
var Plain = Theme{}

// Render converts text to HTML using DefaultTheme.
func Render(text string) string {
	return DefaultTheme.Render(text)
}

// Render converts text to an HTML fragment. Empty input renders "".
func (t Theme) Render(text string) string {
	return t.RenderBlocks(Lex(text))
}

// RenderBlocks wraps list blocks in <ul> with their lines joined by newlines,
// and every other block in <p> with its lines joined by <br>. Plain text
// lines inside a list block are written as-is between the items.
func (t Theme) RenderBlocks(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		switch b.Kind {
		case BlockList:
			sb.WriteString(openTag("ul", t.List))
			for i, l := range b.Lines {
				if i > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(t.renderLine(l))
			}
			sb.WriteString("</ul>")
		default:
			sb.WriteString(openTag("p", t.Paragraph))
			for i, l := range b.Lines {
				if i > 0 {
					sb.WriteString("<br>")
				}
				sb.WriteString(t.renderLine(l))
			}
			sb.WriteString("</p>")
		}
	}
	return sb.String()
}

func (t Theme) renderLine(l Line) string {
	switch l.Kind {
	case LineHeading3:
		return openTag("h3", t.Heading3) + l.Text + "</h3>"
	case LineHeading4:
		return openTag("h4", t.Heading4) + l.Text + "</h4>"
	case LineItem:
		return openTag("li", t.Item) + l.Text + "</li>"
	default:
		return l.Text
	}
}

func openTag(name, class string) string {
	if class == "" {
		return "<" + name + ">"
	}
	return "<" + name + ` class="` + class + `">`
}
