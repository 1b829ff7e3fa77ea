// Package terminal renders the notice board in a text terminal and runs the
// interactive shell that drives the controller.
package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"noticeboard/internal/feed"
	"noticeboard/internal/model"
)

const defaultCardWidth = 72

type styles struct {
	title       lipgloss.Style
	card        lipgloss.Style
	cardTitle   lipgloss.Style
	meta        lipgloss.Style
	placeholder lipgloss.Style
	alert       lipgloss.Style
	analysis    lipgloss.Style
	category    lipgloss.Style
	tag         lipgloss.Style
	importance  map[string]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer, width int) styles {
	badge := r.NewStyle().Padding(0, 1).Bold(true)
	return styles{
		title:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		card:        r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(width),
		cardTitle:   r.NewStyle().Bold(true),
		meta:        r.NewStyle().Faint(true),
		placeholder: r.NewStyle().Italic(true).Faint(true),
		alert:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		analysis:    r.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1),
		category:    badge.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")),
		tag:         r.NewStyle().Foreground(lipgloss.Color("6")),
		importance: map[string]lipgloss.Style{
			"high":   badge.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")),
			"medium": badge.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")),
			"low":    badge.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("2")),
		},
	}
}

type ViewOptions struct {
	CardWidth int
}

// View writes everything the controller shows to out. It is safe for use by
// the feed goroutine and the shell at the same time.
type View struct {
	out    io.Writer
	styles styles

	mu       sync.Mutex
	role     model.Role
	signedIn bool
	loading  bool
}

func NewView(out io.Writer, opts ViewOptions) *View {
	if opts.CardWidth <= 0 {
		opts.CardWidth = defaultCardWidth
	}
	return &View{
		out:    out,
		styles: newStyles(lipgloss.NewRenderer(out), opts.CardWidth),
	}
}

func (v *View) ShowAuth() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.signedIn = false
	v.role = ""
	v.println(v.styles.title.Render("Campus Notice Board"))
	v.println("Sign in with 'login' or create an account with 'signup'.")
}

// ShowApp switches to the signed-in screen. The posting panel is offered to
// faculty only.
func (v *View) ShowApp(identity model.Identity, role model.Role) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.signedIn = true
	v.role = role
	v.println(v.styles.title.Render("Campus Notice Board"))
	v.println(fmt.Sprintf("Signed in as %s (%s).", identity.Email, role))
	if role == model.RoleFaculty {
		v.println("Use 'post' to publish a notice.")
	}
}

func (v *View) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(v.styles.alert.Render("! " + message))
}

func (v *View) SetLoading(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if on && !v.loading {
		v.println(v.styles.meta.Render("Analyzing notice..."))
	}
	v.loading = on
}

func (v *View) ShowAnalysis(preview feed.Preview) {
	v.mu.Lock()
	defer v.mu.Unlock()

	body := strings.Join([]string{
		"AI Analysis",
		"Category:   " + preview.Category,
		"Importance: " + preview.Importance,
		"Tags:       " + preview.Tags,
	}, "\n")
	v.println(v.styles.analysis.Render(body))
}

// HideAnalysis does nothing: the analysis box is printed once and scrolls
// away with the rest of the output.
func (v *View) HideAnalysis() {}

// ClearNoticeForm does nothing: the shell reads each field from a prompt, so
// there is no form left holding the last post.
func (v *View) ClearNoticeForm() {}

func (v *View) RenderFeed(f feed.Feed) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.println(v.styles.title.Render("Notices"))
	v.renderFeed(f)
}

// RenderResults prints search hits with the same cards as the live feed.
func (v *View) RenderResults(query string, f feed.Feed) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.println(v.styles.title.Render(fmt.Sprintf("Results for %q", query)))
	v.renderFeed(f)
}

// FacultyPanel reports whether the posting panel is currently offered.
func (v *View) FacultyPanel() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.signedIn && v.role == model.RoleFaculty
}

func (v *View) renderFeed(f feed.Feed) {
	if len(f.Cards) == 0 {
		v.println(v.styles.placeholder.Render(f.Placeholder))
		return
	}
	for _, card := range f.Cards {
		v.println(v.renderCard(card))
	}
}

func (v *View) renderCard(card feed.Card) string {
	badges := make([]string, 0, len(card.Badges))
	for _, badge := range card.Badges {
		badges = append(badges, v.renderBadge(badge))
	}

	lines := []string{
		v.styles.cardTitle.Render(card.Title),
		card.Content,
	}
	if len(badges) > 0 {
		lines = append(lines, strings.Join(badges, " "))
	}
	lines = append(lines, v.styles.meta.Render(fmt.Sprintf("Posted by %s · %s", card.Author, card.Date)))
	return v.styles.card.Render(strings.Join(lines, "\n"))
}

func (v *View) renderBadge(badge feed.Badge) string {
	switch badge.Kind {
	case feed.BadgeCategory:
		return v.styles.category.Render(badge.Text)
	case feed.BadgeImportance:
		if style, ok := v.styles.importance[badge.Text]; ok {
			return style.Render(badge.Text)
		}
		return v.styles.meta.Render(badge.Text)
	default:
		return v.styles.tag.Render("#" + badge.Text)
	}
}

func (v *View) println(text string) {
	_, _ = fmt.Fprintln(v.out, text)
}
