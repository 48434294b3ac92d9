package render

import (
	"fmt"
	"strings"

	"github.com/hyperifyio/patchday/internal/patch"
)

// DefaultLinkPrefix is the flair link family used for hero images.
const DefaultLinkPrefix = "hero"

// ThreadIntro is the fixed opening text of the discussion thread.
const ThreadIntro = "Updated heroes are each listed below as a top level comment. \n" +
	"Please discuss changes to a specific hero there!\n\n" +
	"**All other top level comments are automatically removed.**"

// Renderer formats change records as Reddit-flavoured Markdown. The zero
// value uses DefaultLinkPrefix.
type Renderer struct {
	LinkPrefix string
}

func (r Renderer) prefix() string {
	if p := strings.TrimSpace(r.LinkPrefix); p != "" {
		return p
	}
	return DefaultLinkPrefix
}

// Image returns the empty-text image link for a hero, e.g. [](/hero-antimage).
func (r Renderer) Image(name string) string {
	return fmt.Sprintf("[](/%s-%s)", r.prefix(), patch.Slug(name))
}

// Comment renders one hero's changes. Sections appear in the order general,
// facets, abilities, talents; empty sections are left out.
func (r Renderer) Comment(rec patch.ChangeRecord) string {
	sections := []string{fmt.Sprintf("# %s %s", r.Image(rec.Name), rec.Name)}
	if rec.Unchanged() {
		sections = append(sections, "No changes.")
	}
	for _, s := range []string{
		flatSection("General", rec.GeneralChanges),
		groupSection("Facets", rec.FacetChanges),
		groupSection("Abilities", rec.AbilityChanges),
		flatSection("Talents", rec.TalentChanges),
	} {
		if s != "" {
			sections = append(sections, s)
		}
	}
	return strings.Join(sections, "\n\n")
}

func flatSection(title string, changes []string) string {
	if len(changes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("#### " + title + "\n\n")
	for i, c := range changes {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + c)
	}
	return b.String()
}

func groupSection(title string, groups []patch.Group) string {
	if len(groups) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("#### " + title + "\n\n")
	for _, g := range groups {
		b.WriteString("  - **" + g.Name + "**\n\n")
		for _, c := range g.Changes {
			b.WriteString("    - " + c + "\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ThreadTitle is the submission title for a patch version.
func ThreadTitle(version string) string {
	return fmt.Sprintf("Patch %s - Hero Changes Discussion", strings.TrimSpace(version))
}

// Preview joins a thread and its comments into one Markdown document, with
// comments separated by horizontal rules.
func Preview(title, body string, comments []string) string {
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")
	b.WriteString(body)
	for _, c := range comments {
		b.WriteString("\n\n---\n\n")
		b.WriteString(c)
	}
	b.WriteString("\n")
	return b.String()
}
