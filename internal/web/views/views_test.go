package views

import (
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sidereusnuntius/wikifront/internal/diff"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	if err := c.Render(context.Background(), &b); err != nil {
		t.Fatal(err)
	}
	return b.String()
}

func TestMarkdown(t *testing.T) {
	cases := []struct {
		name     string
		content  string
		expected string
	}{
		{"paragraph", "Jupiter has *four* moons.", "<p>Jupiter has <em>four</em> moons.</p>\n"},
		{"heading", "# Moons", "<h1>Moons</h1>\n"},
		{"raw html", "<script>alert(1)</script>", "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if diff := cmp.Diff(c.expected, render(t, Markdown(c.content))); diff != "" {
				t.Errorf("unexpected markup (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatEscapes(t *testing.T) {
	id := uuid.MustParse("0b8f6c52-4c3e-4b1a-9d8e-2f1c5a7b9e10")
	got := render(t, component(func(_ context.Context, h *html) {
		h.f(`<p title="%s">%s %s %s</p>`, `"quoted"`, "<b>", Raw("<i>ok</i>"), id)
	}))
	expected := `<p title="&#34;quoted&#34;">&lt;b&gt; <i>ok</i> ` + id.String() + `</p>`
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestLayout(t *testing.T) {
	perms := &domain.PermissionSet{CanEdit: true}
	got := render(t, Layout(PageData{
		Authenticated: true,
		Username:      "<galileo>",
		Permissions:   perms,
		PageTitle:     "Moons & rings",
		Flash:         &Flash{Kind: FlashInfo, Message: "Saved."},
		Child:         Message("Hello", "Body", "/", "Home"),
	}))

	for _, fragment := range []string{
		"<title>Moons &amp; rings · wikifront</title>",
		`<a href="/articles/new">New article</a>`,
		"&lt;galileo&gt;",
		`<div class="flash flash-info" role="status">Saved.</div>`,
		"Log out",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("expected the layout to contain %q", fragment)
		}
	}
	if strings.Contains(got, `href="/admin"`) {
		t.Error("expected no admin link without the delete permission")
	}
}

func TestEditorPreview(t *testing.T) {
	before := "Jupiter has\nfour moons.\n"
	after := "Jupiter has\nfive moons.\n"
	got := render(t, Editor(EditorData{
		ArticleID: domain.ID{},
		Title:     "Jupiter",
		Branch:    domain.MainBranch,
		Content:   after,
		Preview:   diff.Lines(before, after),
		Stats:     diff.LineStats(before, after),
	}))

	for _, fragment := range []string{
		"+1 −1 lines",
		"<del>- four moons.</del>",
		"<ins>+ five moons.</ins>",
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("expected the editor to contain %q", fragment)
		}
	}
}

func TestArticlePath(t *testing.T) {
	id := domain.ID{}
	cases := []struct {
		branch, suffix, expected string
	}{
		{"", "", "/articles/" + id.String()},
		{domain.MainBranch, "/edit", "/articles/" + id.String() + "/edit"},
		{"moons", "/edit", "/articles/" + id.String() + "/edit?branch=moons"},
	}
	for _, c := range cases {
		if got := ArticlePath(id, c.branch, c.suffix); got != c.expected {
			t.Errorf("ArticlePath(%q, %q): expected %q, got %q", c.branch, c.suffix, c.expected, got)
		}
	}
}

func TestProfileLinksAreSanitized(t *testing.T) {
	got := render(t, ProfileView(ProfileData{
		User: domain.User{Username: "galileo", Role: "editor"},
		Profile: domain.Profile{
			AvatarURL: "javascript:alert(1)",
			SocialLinks: map[string]string{
				"website": "javascript:alert(document.cookie)",
				"padova":  "https://padova.test/galileo",
			},
		},
	}))

	if strings.Contains(got, "javascript:") {
		t.Errorf("expected unsafe links to be neutralised, got %s", got)
	}
	for _, fragment := range []string{
		`<img class="avatar" src="about:invalid#TemplFailedSanitizationURL" alt="">`,
		`<a href="about:invalid#TemplFailedSanitizationURL" rel="me nofollow">website</a>`,
		`<a href="https://padova.test/galileo" rel="me nofollow">padova</a>`,
	} {
		if !strings.Contains(got, fragment) {
			t.Errorf("expected the profile to contain %q", fragment)
		}
	}
}
