package render

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Link points at the posted comment of one hero.
type Link struct {
	Name    string
	Changes int
	URL     string
}

// SummaryTable renders the hero -> comment links as a Markdown table.
func (r Renderer) SummaryTable(links []Link) string {
	if len(links) == 0 {
		return ""
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Hero", "Changes", "Discussion"})
	for _, l := range links {
		target := l.Name
		if strings.TrimSpace(l.URL) != "" {
			target = "[" + l.Name + "](" + l.URL + ")"
		}
		t.AppendRow(table.Row{r.Image(l.Name) + " " + l.Name, strconv.Itoa(l.Changes), target})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t.RenderMarkdown()
}

// ThreadBody is the thread intro followed, when known, by the summary table
// and the list of heroes without changes.
func (r Renderer) ThreadBody(links []Link, unmodified []string) string {
	var b strings.Builder
	b.WriteString(ThreadIntro)
	if tbl := r.SummaryTable(links); tbl != "" {
		b.WriteString("\n\n")
		b.WriteString(tbl)
	}
	if len(unmodified) > 0 {
		b.WriteString("\n\n**Unchanged heroes:** ")
		b.WriteString(strings.Join(unmodified, ", "))
	}
	return b.String()
}
