package views

import (
	"context"
	"net/url"

	"github.com/a-h/templ"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"gitlab.com/golang-commonmark/markdown"
)

type Place int

const (
	Read Place = iota
	Edit
	History
	Branches
	PlaceArticles
	PlaceProfile
	PlaceUsers
	PlaceAdmin
	PlaceUpload
	Auth
	PlaceSignup
	PlaceMessage
)

var placeNames = [...]string{
	"read", "edit", "history", "branches", "articles", "profile", "users", "admin", "upload", "auth", "signup",
	"message",
}

func (p Place) String() string {
	if p < 0 || int(p) >= len(placeNames) {
		return "unknown"
	}
	return placeNames[p]
}

// Article tabs, in display order.
var tabs = []struct {
	place Place
	label string
}{
	{Read, "Read"},
	{Edit, "Edit"},
	{History, "History"},
	{Branches, "Branches"},
}

const (
	FlashInfo  = "info"
	FlashError = "error"
)

type Flash struct {
	Kind    string
	Message string
}

type PageData struct {
	Authenticated bool
	Username      string
	Permissions   *domain.PermissionSet
	PageTitle     string
	Place         Place
	// Hrefs holds the article tabs to show.
	Hrefs map[Place]string
	Flash *Flash
	Path  *url.URL
	Child templ.Component
}

var md = markdown.New(markdown.HTML(false), markdown.Linkify(true), markdown.Typographer(true))

// Markdown renders article content. Raw HTML in the source is escaped.
func Markdown(content string) templ.Component {
	return templ.Raw(md.RenderToString([]byte(content)))
}

func Layout(p PageData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.f(`<title>%s · wikifront</title>`, p.PageTitle)
		h.raw(`<link rel="stylesheet" href="/static/style.css"></head><body>`)

		h.raw(`<header><nav><a class="brand" href="/">wikifront</a> <a href="/articles">Articles</a>`)
		if p.Permissions.Has(domain.CanEdit) {
			h.raw(` <a href="/articles/new">New article</a>`)
		}
		if p.Permissions.Has(domain.CanModerate) {
			h.raw(` <a href="/users">Users</a>`)
		}
		if p.Permissions.Has(domain.CanDelete) {
			h.raw(` <a href="/admin">Admin</a>`)
		}
		h.raw(`<span class="account">`)
		if p.Authenticated {
			h.f(`<a href="/media/upload">Upload</a> <a href="/profile">%s</a> `, p.Username)
			h.raw(`<form class="inline" method="post" action="/logout"><button type="submit">Log out</button></form>`)
		} else {
			from := "/"
			if p.Path != nil {
				from = p.Path.RequestURI()
			}
			h.f(`<a href="/login?%s">Log in</a> <a href="/register">Register</a>`, Raw(url.Values{"from": {from}}.Encode()))
		}
		h.raw(`</span></nav></header>`)

		if p.Flash != nil && p.Flash.Message != "" {
			h.f(`<div class="flash flash-%s" role="status">%s</div>`, p.Flash.Kind, p.Flash.Message)
		}

		if len(p.Hrefs) > 0 {
			h.raw(`<ul class="tabs">`)
			for _, t := range tabs {
				href, ok := p.Hrefs[t.place]
				if !ok {
					continue
				}
				class := ""
				if t.place == p.Place {
					class = "active"
				}
				h.f(`<li class="%s"><a href="%s">%s</a></li>`, class, templ.SafeURL(href), t.label)
			}
			h.raw(`</ul>`)
		}

		h.raw(`<main>`)
		h.child(ctx, p.Child)
		h.raw(`</main></body></html>`)
	})
}

// Message is a page with a title and a line of text, used for errors and refusals.
func Message(title, text, linkHref, linkText string) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.f(`<h1>%s</h1><p>%s</p>`, title, text)
		if linkHref != "" {
			h.f(`<p><a href="%s">%s</a></p>`, templ.SafeURL(linkHref), linkText)
		}
	})
}

// Loading is shown while the session is being resolved. The page refreshes itself.
func Loading() templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<p class="loading" aria-busy="true">Loading…</p>`)
	})
}
