package views

import (
	"context"
	"fmt"
	"net/url"

	"github.com/a-h/templ"
	"github.com/sidereusnuntius/wikifront/internal/diff"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

const dateFormat = "2006-01-02 15:04"

func ArticlePath(id domain.ID, branch, suffix string) string {
	p := "/articles/" + id.String() + suffix
	if branch != "" && branch != domain.MainBranch {
		p += "?" + url.Values{"branch": {branch}}.Encode()
	}
	return p
}

type ArticleListData struct {
	Articles []domain.Article
	Search   string
	Status   string
	Page     int
	HasMore  bool
}

func ArticleList(d ArticleListData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Articles</h1>`)
		h.raw(`<form method="get" action="/articles" class="search">`)
		h.f(`<input type="search" name="search" value="%s" placeholder="Search titles">`, d.Search)
		h.raw(`<select name="status"><option value="">Any status</option>`)
		for _, s := range []string{domain.StatusPublished, domain.StatusDraft, domain.StatusArchived} {
			selected := ""
			if s == d.Status {
				selected = " selected"
			}
			h.f(`<option value="%s"%s>%s</option>`, s, Raw(selected), s)
		}
		h.raw(`</select><button type="submit">Search</button></form>`)

		if len(d.Articles) == 0 {
			h.raw(`<p class="empty">No articles found.</p>`)
		}
		h.raw(`<ul class="articles">`)
		for _, a := range d.Articles {
			h.f(`<li><a href="%s">%s</a> <span class="status">%s</span> <time>%s</time></li>`,
				templ.SafeURL(ArticlePath(a.ID, "", "")), a.Title, a.Status, a.UpdatedAt.Format(dateFormat))
		}
		h.raw(`</ul>`)
		h.pager(d.Page, d.HasMore, url.Values{"search": {d.Search}, "status": {d.Status}}, "/articles")
	})
}

// pager renders links to the previous and next pages. Pages are numbered from 1.
func (h *html) pager(page int, hasMore bool, q url.Values, base string) {
	h.raw(`<nav class="pager">`)
	link := func(p int, label string) {
		q.Set("page", fmt.Sprint(p))
		h.f(`<a href="%s">%s</a> `, templ.SafeURL(base+"?"+q.Encode()), label)
	}
	if page > 1 {
		link(page-1, "Previous")
	}
	if hasMore {
		link(page+1, "Next")
	}
	h.raw(`</nav>`)
}

type ArticleData struct {
	Article  domain.ArticleFull
	Branch   string
	Branches []domain.Branch
	Thread   []domain.ThreadEntry
	// Authors maps user ids to usernames, for the comments.
	Authors       map[domain.ID]string
	CanEdit       bool
	CanDelete     bool
	CanComment    bool
	CanModerate   bool
	CurrentUser   domain.ID
	Comment       string
	CommentErrors FieldErrors
}

func ArticleView(d ArticleData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		a := d.Article
		h.f(`<article><h1>%s</h1>`, a.Title)
		h.f(`<p class="meta">Branch <strong>%s</strong> · %s · updated <time>%s</time></p>`,
			d.Branch, a.Status, a.UpdatedAt.Format(dateFormat))

		if len(d.Branches) > 1 {
			h.f(`<form method="get" action="%s" class="branch-select"><select name="branch" onchange="this.form.submit()">`,
				templ.SafeURL(ArticlePath(a.ID, "", "")))
			for _, b := range d.Branches {
				selected := ""
				if b.Name == d.Branch {
					selected = " selected"
				}
				h.f(`<option value="%s"%s>%s</option>`, b.Name, Raw(selected), b.Name)
			}
			h.raw(`</select><noscript><button type="submit">Switch</button></noscript></form>`)
		}

		h.raw(`<div class="content">`)
		h.child(ctx, Markdown(a.Content))
		h.raw(`</div>`)
		if d.CanDelete {
			h.button(ArticlePath(a.ID, "", "/delete"), "Delete article", true)
		}
		h.raw(`</article>`)

		h.f(`<section class="comments"><h2>Comments (%d)</h2>`, len(d.Thread))
		for _, e := range d.Thread {
			h.comment(a.ID, e, d)
		}
		if d.CanComment {
			h.f(`<form method="post" action="%s">`, templ.SafeURL(ArticlePath(a.ID, "", "/comments")))
			h.input("Add a comment", "textarea", "content", d.Comment, d.CommentErrors)
			h.raw(`<button type="submit">Comment</button></form>`)
		}
		h.raw(`</section>`)
	})
}

func (h *html) comment(articleID domain.ID, e domain.ThreadEntry, d ArticleData) {
	author, ok := d.Authors[e.UserID]
	if !ok {
		author = "unknown user"
	}
	h.f(`<div class="comment depth-%d" id="comment-%s">`, e.Depth, e.ID)
	h.f(`<p class="meta"><a href="/users/%s/profile">%s</a> <time>%s</time></p><p>%s</p>`,
		e.UserID, author, e.CreatedAt.Format(dateFormat), e.Content)

	if d.CanComment && e.CanReply {
		h.f(`<details><summary>Reply</summary><form method="post" action="%s">`,
			templ.SafeURL(ArticlePath(articleID, "", "/comments")))
		h.hidden("reply_to", e.ID.String())
		h.raw(`<textarea name="content" rows="3"></textarea><button type="submit">Reply</button></form></details>`)
	}
	if e.UserID == d.CurrentUser || d.CanModerate {
		h.button(fmt.Sprintf("%s/%s/delete", ArticlePath(articleID, "", "/comments"), e.ID), "Delete", true)
	}
	h.raw(`</div>`)
}

type NewArticleData struct {
	Title   string
	Content string
	Status  string
	Message string
	Errors  FieldErrors
}

func NewArticle(d NewArticleData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>New article</h1><form method="post" action="/articles/new">`)
		h.input("Title", "text", "title", d.Title, d.Errors)
		h.input("Content", "textarea", "content", d.Content, d.Errors)
		h.raw(`<label for="status">Status</label><select id="status" name="status">`)
		for _, s := range []string{domain.StatusDraft, domain.StatusPublished} {
			selected := ""
			if s == d.Status {
				selected = " selected"
			}
			h.f(`<option value="%s"%s>%s</option>`, s, Raw(selected), s)
		}
		h.raw(`</select>`)
		h.fieldError(d.Errors, "status")
		h.input("Commit message", "text", "message", d.Message, d.Errors)
		h.raw(`<button type="submit">Create</button></form>`)
	})
}

type EditorData struct {
	ArticleID domain.ID
	Title     string
	Branch    string
	Content   string
	Message   string
	// Preview holds the pending changes when previewing.
	Preview []diff.Line
	Stats   diff.Stats
	Errors  FieldErrors
}

func Editor(d EditorData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.f(`<h1>Editing %s</h1><p class="meta">Branch <strong>%s</strong></p>`, d.Title, d.Branch)

		if d.Preview != nil {
			h.f(`<section class="preview"><h2>Changes</h2><p>+%d −%d lines</p>`, d.Stats.Added, d.Stats.Removed)
			h.lines(d.Preview)
			h.raw(`</section>`)
		}

		h.f(`<form method="post" action="%s">`, templ.SafeURL(ArticlePath(d.ArticleID, d.Branch, "/edit")))
		h.input("Content", "textarea", "content", d.Content, d.Errors)
		h.input("Summary of the changes", "text", "message", d.Message, d.Errors)
		h.raw(`<p class="hint">Leave the summary empty to save with a generated one.</p>`)
		h.raw(`<button type="submit" name="action" value="preview">Preview changes</button> `)
		h.raw(`<button type="submit" name="action" value="save">Save</button></form>`)
	})
}

// lines renders a line by line comparison.
func (h *html) lines(lines []diff.Line) {
	h.raw(`<pre class="diff">`)
	for _, l := range lines {
		switch l.Op {
		case diff.Added:
			h.f(`<ins>+ %s</ins>`+"\n", l.Text)
		case diff.Removed:
			h.f(`<del>- %s</del>`+"\n", l.Text)
		default:
			h.f(`  %s`+"\n", l.Text)
		}
	}
	h.raw(`</pre>`)
}
