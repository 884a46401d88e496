package views

import (
	"context"
	"net/url"

	"github.com/a-h/templ"
	"github.com/sidereusnuntius/wikifront/internal/diff"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

type HistoryData struct {
	Article  domain.ArticleFull
	Branch   string
	Branches []domain.Branch
	Commits  []domain.Commit
	Authors  map[domain.ID]string
	Page     int
	HasMore  bool
}

func HistoryView(d HistoryData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.f(`<h1>History of %s</h1>`, d.Article.Title)
		if d.Branch == "" {
			h.raw(`<p class="meta">All branches</p>`)
		} else {
			h.f(`<p class="meta">Branch <strong>%s</strong> · <a href="%s">all branches</a></p>`,
				d.Branch, templ.SafeURL(ArticlePath(d.Article.ID, "", "/history")+"?branch="))
		}

		h.raw(`<ol class="commits">`)
		for _, c := range d.Commits {
			author, ok := d.Authors[c.AuthorID]
			if !ok {
				author = "unknown user"
			}
			merge := ""
			if c.IsMerge {
				merge = ` <span class="badge">merge</span>`
			}
			h.f(`<li><a href="/commits/%s">%s</a>%s by %s <time>%s</time></li>`,
				c.ID, c.Message, Raw(merge), author, c.CreatedAt.Format(dateFormat))
		}
		h.raw(`</ol>`)

		q := url.Values{}
		q.Set("branch", d.Branch)
		h.pager(d.Page, d.HasMore, q, ArticlePath(d.Article.ID, "", "/history"))
	})
}

type BranchesData struct {
	Article  domain.ArticleFull
	Branches []domain.Branch
	CanEdit  bool
	// Name, Description and FromCommit hold the new branch form.
	Name        string
	Description string
	FromCommit  string
	Errors      FieldErrors
	MergeErrors FieldErrors
}

func BranchList(d BranchesData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.f(`<h1>Branches of %s</h1>`, d.Article.Title)
		h.raw(`<table class="branches"><thead><tr><th>Name</th><th>Head</th><th>Updated</th><th></th></tr></thead><tbody>`)
		for _, b := range d.Branches {
			h.f(`<tr><td><a href="%s">%s</a>`, templ.SafeURL(ArticlePath(d.Article.ID, b.Name, "")), b.Name)
			if b.IsProtected {
				h.raw(` <span class="badge">protected</span>`)
			}
			h.f(`<br><small>%s</small></td>`, b.Description)
			h.f(`<td><a href="/commits/%s">%s</a></td><td><time>%s</time></td><td>`,
				b.HeadCommitID, shortID(b.HeadCommitID), b.UpdatedAt.Format(dateFormat))
			h.f(`<a href="%s">history</a> `, templ.SafeURL(ArticlePath(d.Article.ID, "", "/history")+"?"+url.Values{"branch": {b.Name}}.Encode()))
			if d.CanEdit && !b.IsProtected && b.Name != domain.MainBranch {
				h.button(ArticlePath(d.Article.ID, "", "/branches/"+b.ID.String()+"/delete"), "Delete", true)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		if !d.CanEdit {
			return
		}

		h.f(`<section><h2>New branch</h2><form method="post" action="%s">`,
			templ.SafeURL(ArticlePath(d.Article.ID, "", "/branches")))
		h.input("Name", "text", "name", d.Name, d.Errors)
		h.input("Description", "text", "description", d.Description, d.Errors)
		h.raw(`<label for="from_commit">Start from</label><select id="from_commit" name="from_commit">`)
		h.raw(`<option value="">head of main</option>`)
		for _, b := range d.Branches {
			selected := ""
			if b.HeadCommitID.String() == d.FromCommit {
				selected = " selected"
			}
			h.f(`<option value="%s"%s>head of %s</option>`, b.HeadCommitID, Raw(selected), b.Name)
		}
		h.raw(`</select>`)
		h.fieldError(d.Errors, "from_commit")
		h.raw(`<button type="submit">Create branch</button></form></section>`)

		if len(d.Branches) < 2 {
			return
		}
		h.f(`<section><h2>Merge</h2><form method="post" action="%s">`,
			templ.SafeURL(ArticlePath(d.Article.ID, "", "/merge")))
		h.branchSelect("Merge", "source", d.Branches)
		h.fieldError(d.MergeErrors, "source")
		h.branchSelect("into", "target", d.Branches)
		h.fieldError(d.MergeErrors, "target")
		h.input("Message", "text", "message", "", d.MergeErrors)
		h.raw(`<button type="submit">Merge</button></form></section>`)
	})
}

func (h *html) branchSelect(label, name string, branches []domain.Branch) {
	h.f(`<label for="%s">%s</label><select id="%s" name="%s">`, name, label, name, name)
	for _, b := range branches {
		selected := ""
		if name == "target" && b.Name == domain.MainBranch {
			selected = " selected"
		}
		h.f(`<option value="%s"%s>%s</option>`, b.ID, Raw(selected), b.Name)
	}
	h.raw(`</select>`)
}

type CommitData struct {
	Commit domain.CommitDetailed
	Diff   domain.CommitDiff
	// Lines compares the commit with its first parent.
	Lines     []diff.Line
	CanRevert bool
}

func CommitView(d CommitData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		c := d.Commit
		h.f(`<h1>%s</h1>`, c.Message)
		h.f(`<p class="meta">%s by <a href="/users/%s/profile">%s</a> on <strong>%s</strong> · <time>%s</time></p>`,
			shortID(c.ID), c.AuthorID, c.AuthorName, c.BranchName, c.CreatedAt.Format(dateFormat))

		if len(c.ParentCommits) > 0 {
			h.raw(`<p class="meta">Parents:`)
			for _, p := range c.ParentCommits {
				h.f(` <a href="/commits/%s">%s</a>`, p, shortID(p))
			}
			h.raw(`</p>`)
		}

		h.f(`<p>+%d −%d lines · <a href="%s">view article</a></p>`, d.Diff.AddedLines, d.Diff.RemovedLines,
			templ.SafeURL(ArticlePath(c.ArticleID, c.BranchName, "")))
		h.lines(d.Lines)

		if d.CanRevert && len(c.ParentCommits) > 0 {
			h.button("/commits/"+c.ID.String()+"/revert", "Revert this commit", true)
		}
	})
}

func shortID(id domain.ID) string {
	return id.String()[:8]
}
