// Package views renders the pages of the frontend as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Raw marks markup that must not be escaped.
type Raw string

// html writes markup, keeping the first error.
type html struct {
	w   io.Writer
	err error
}

func component(f func(ctx context.Context, h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		f(ctx, h)
		return h.err
	})
}

func (h *html) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// f formats markup. Every argument but Raw is HTML escaped. URLs from outside the wiki must go through
// templ.URL first, which replaces unsafe schemes.
func (h *html) f(format string, args ...any) {
	for i, a := range args {
		switch v := a.(type) {
		case Raw:
			args[i] = string(v)
		case templ.SafeURL:
			args[i] = templ.EscapeString(string(v))
		case string:
			args[i] = templ.EscapeString(v)
		case fmt.Stringer:
			args[i] = templ.EscapeString(v.String())
		}
	}
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) child(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

// FieldErrors are messages keyed by form field name.
type FieldErrors = map[string]string

func (h *html) fieldError(errs FieldErrors, name string) {
	if msg, ok := errs[name]; ok {
		h.f(`<p class="field-error" id="%s-error">%s %s</p>`, name, fieldLabel(name), msg)
	}
}

// input renders a labelled input with its inline error.
func (h *html) input(label, typ, name, value string, errs FieldErrors) {
	h.f(`<label for="%s">%s</label>`, name, label)
	if typ == "textarea" {
		h.f(`<textarea id="%s" name="%s" rows="16">%s</textarea>`, name, name, value)
	} else {
		h.f(`<input id="%s" type="%s" name="%s" value="%s">`, name, typ, name, value)
	}
	h.fieldError(errs, name)
}

func (h *html) hidden(name, value string) {
	h.f(`<input type="hidden" name="%s" value="%s">`, name, value)
}

// button renders a form with a single submit button posting to action.
func (h *html) button(action, label string, confirm bool) {
	onsubmit := ""
	if confirm {
		onsubmit = ` onsubmit="return confirm('Are you sure?')"`
	}
	h.f(`<form class="inline" method="post" action="%s"%s><button type="submit">%s</button></form>`,
		action, Raw(onsubmit), label)
}

func fieldLabel(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
