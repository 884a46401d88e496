package views

import (
	"context"
	"net/url"
	"sort"

	"github.com/a-h/templ"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

// Roles assignable to users.
var Roles = []string{"user", "editor", "moderator", "admin"}

type LoginData struct {
	From     string
	Username string
	Error    string
	Errors   FieldErrors
}

func Login(d LoginData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Log in</h1>`)
		if d.Error != "" {
			h.f(`<p class="error" role="alert">%s</p>`, d.Error)
		}
		h.raw(`<form method="post" action="/login">`)
		h.hidden("from", d.From)
		h.input("Username", "text", "username", d.Username, d.Errors)
		h.input("Password", "password", "password", "", d.Errors)
		h.raw(`<button type="submit">Log in</button></form>`)
		h.f(`<p>No account? <a href="/register?%s">Register</a>.</p>`, Raw(url.Values{"from": {d.From}}.Encode()))
	})
}

type RegisterData struct {
	From     string
	Username string
	Email    string
	Error    string
	Errors   FieldErrors
}

func Register(d RegisterData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Register</h1>`)
		if d.Error != "" {
			h.f(`<p class="error" role="alert">%s</p>`, d.Error)
		}
		h.raw(`<form method="post" action="/register">`)
		h.hidden("from", d.From)
		h.input("Username", "text", "username", d.Username, d.Errors)
		h.input("Email", "email", "email", d.Email, d.Errors)
		h.input("Password", "password", "password", "", d.Errors)
		h.input("Confirm password", "password", "confirm", "", d.Errors)
		h.raw(`<button type="submit">Register</button></form>`)
	})
}

type ProfileData struct {
	Profile  domain.Profile
	User     domain.User
	Versions []domain.ProfileVersion
	Own      bool
}

func ProfileView(d ProfileData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.f(`<h1>%s</h1>`, d.User.Username)
		if d.Profile.AvatarURL != "" {
			h.f(`<img class="avatar" src="%s" alt="">`, templ.URL(d.Profile.AvatarURL))
		}
		if d.User.FullName != "" {
			h.f(`<p class="meta">%s</p>`, d.User.FullName)
		}
		h.f(`<p class="meta">%s · joined <time>%s</time></p>`, d.User.Role, d.User.CreatedAt.Format(dateFormat))
		h.child(ctx, Markdown(d.Profile.Bio))

		if len(d.Profile.SocialLinks) > 0 {
			names := make([]string, 0, len(d.Profile.SocialLinks))
			for name := range d.Profile.SocialLinks {
				names = append(names, name)
			}
			sort.Strings(names)
			h.raw(`<ul class="links">`)
			for _, name := range names {
				h.f(`<li><a href="%s" rel="me nofollow">%s</a></li>`, templ.URL(d.Profile.SocialLinks[name]), name)
			}
			h.raw(`</ul>`)
		}

		if d.Own {
			h.raw(`<p><a href="/profile/edit">Edit profile</a></p>`)
			h.button("/profile/delete", "Delete profile", true)
		}

		if len(d.Versions) > 0 {
			h.raw(`<section><h2>Recent changes</h2><ul>`)
			for _, v := range d.Versions {
				h.f(`<li><time>%s</time></li>`, v.CreatedAt.Format(dateFormat))
			}
			h.raw(`</ul></section>`)
		}
	})
}

// NoProfile invites the current user to create their profile.
func NoProfile() templ.Component {
	return Message("No profile yet", "You have not created your profile.", "/profile/edit", "Create your profile")
}

type ProfileFormData struct {
	Create    bool
	Bio       string
	AvatarURL string
	Website   string
	Errors    FieldErrors
}

func ProfileEditor(d ProfileFormData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		if d.Create {
			h.raw(`<h1>Create your profile</h1>`)
		} else {
			h.raw(`<h1>Edit your profile</h1>`)
		}
		h.raw(`<form method="post" action="/profile/edit">`)
		h.input("Bio", "textarea", "bio", d.Bio, d.Errors)
		h.input("Avatar URL", "url", "avatar_url", d.AvatarURL, d.Errors)
		h.input("Website", "url", "website", d.Website, d.Errors)
		h.raw(`<button type="submit">Save</button></form>`)
	})
}

type UsersData struct {
	Users   []domain.User
	Query   string
	Role    string
	Page    int
	HasMore bool
}

func UserList(d UsersData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Users</h1><form method="get" action="/users" class="search">`)
		h.f(`<input type="search" name="q" value="%s" placeholder="Username or email">`, d.Query)
		h.raw(`<select name="role"><option value="">Any role</option>`)
		for _, r := range Roles {
			selected := ""
			if r == d.Role {
				selected = " selected"
			}
			h.f(`<option value="%s"%s>%s</option>`, r, Raw(selected), r)
		}
		h.raw(`</select><button type="submit">Search</button></form>`)
		h.userTable(d.Users, false)
		h.pager(d.Page, d.HasMore, url.Values{"q": {d.Query}, "role": {d.Role}}, "/users")
	})
}

func (h *html) userTable(users []domain.User, manage bool) {
	h.raw(`<table class="users"><thead><tr><th>Username</th><th>Email</th><th>Role</th><th>Last login</th><th></th></tr></thead><tbody>`)
	for _, u := range users {
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.Format(dateFormat)
		}
		h.f(`<tr><td><a href="/users/%s/profile">%s</a></td><td>%s</td><td>%s</td><td>%s</td><td>`,
			u.ID, u.Username, u.Email, u.Role, last)
		if manage {
			h.f(`<form class="inline" method="post" action="/admin/users/%s/role"><select name="role">`, u.ID)
			for _, r := range Roles {
				selected := ""
				if r == u.Role {
					selected = " selected"
				}
				h.f(`<option value="%s"%s>%s</option>`, r, Raw(selected), r)
			}
			h.raw(`</select><button type="submit">Set role</button></form> `)
			h.button("/admin/users/"+u.ID.String()+"/delete", "Delete", true)
		}
		h.raw(`</td></tr>`)
	}
	h.raw(`</tbody></table>`)
}

type AdminData struct {
	Users    []domain.User
	Username string
	Email    string
	FullName string
	Role     string
	Errors   FieldErrors
}

func Admin(d AdminData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Administration</h1>`)
		h.userTable(d.Users, true)

		h.raw(`<section><h2>New user</h2><form method="post" action="/admin/users">`)
		h.input("Username", "text", "username", d.Username, d.Errors)
		h.input("Email", "email", "email", d.Email, d.Errors)
		h.input("Full name", "text", "full_name", d.FullName, d.Errors)
		h.input("Password", "password", "password", "", d.Errors)
		h.raw(`<label for="role">Role</label><select id="role" name="role">`)
		for _, r := range Roles {
			selected := ""
			if r == d.Role {
				selected = " selected"
			}
			h.f(`<option value="%s"%s>%s</option>`, r, Raw(selected), r)
		}
		h.raw(`</select>`)
		h.fieldError(d.Errors, "role")
		h.raw(`<button type="submit">Create user</button></form></section>`)
	})
}

type UploadData struct {
	Media  *domain.Media
	Errors FieldErrors
}

func Upload(d UploadData) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<h1>Upload a file</h1>`)
		if m := d.Media; m != nil {
			h.f(`<p class="success">Uploaded <strong>%s</strong> (%d bytes). Link it with <code>![%s](%s)</code>.</p>`,
				m.OriginalFilename, m.FileSize, m.OriginalFilename, m.PublicURL)
		}
		h.raw(`<form method="post" action="/media/upload" enctype="multipart/form-data">`)
		h.raw(`<label for="file">File</label><input id="file" type="file" name="file">`)
		h.fieldError(d.Errors, "file")
		h.raw(`<button type="submit">Upload</button></form>`)
	})
}
