package web

import (
	"net/http"
	"strings"

	"github.com/sidereusnuntius/wikifront/internal/domain"
)

type loginForm struct {
	From     string `form:"from"`
	Username string `form:"username" validate:"required,max=64"`
	Password string `form:"password" validate:"required"`
}

type registerForm struct {
	From     string `form:"from"`
	Username string `form:"username" validate:"required,max=64"`
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required,min=8,max=72"`
	Confirm  string `form:"confirm" validate:"eqfield=Password"`
}

type articleForm struct {
	Title   string `form:"title" validate:"required,max=200"`
	Content string `form:"content" validate:"required"`
	Status  string `form:"status" validate:"oneof=draft published"`
	Message string `form:"message" validate:"max=500"`
}

type editForm struct {
	Content string `form:"content" validate:"required"`
	Message string `form:"message" validate:"max=500"`
	// Action is "preview" or "save".
	Action string `form:"-"`
}

type branchForm struct {
	Name        string `form:"name" validate:"required,max=100,branchname"`
	Description string `form:"description" validate:"max=500"`
	FromCommit  string `form:"from_commit" validate:"omitempty,uuid"`
}

type mergeForm struct {
	Source  string `form:"source" validate:"required,uuid"`
	Target  string `form:"target" validate:"required,uuid,nefield=Source"`
	Message string `form:"message" validate:"max=500"`
}

type commentForm struct {
	Content string `form:"content" validate:"required,max=2000"`
	ReplyTo string `form:"reply_to" validate:"omitempty,uuid"`
}

type profileForm struct {
	Bio       string `form:"bio" validate:"max=5000"`
	AvatarURL string `form:"avatar_url" validate:"omitempty,url"`
	Website   string `form:"website" validate:"omitempty,url"`
}

type userForm struct {
	Username string `form:"username" validate:"required,max=64"`
	Email    string `form:"email" validate:"required,email"`
	FullName string `form:"full_name" validate:"max=200"`
	Password string `form:"password" validate:"required,min=8,max=72"`
	Role     string `form:"role" validate:"required,oneof=user editor moderator admin"`
}

type roleForm struct {
	Role string `form:"role" validate:"required,oneof=user editor moderator admin"`
}

func field(r *http.Request, name string) string {
	return strings.TrimSpace(r.PostForm.Get(name))
}

func parseLoginForm(r *http.Request) loginForm {
	return loginForm{
		From:     r.PostForm.Get("from"),
		Username: field(r, "username"),
		Password: r.PostForm.Get("password"),
	}
}

func parseRegisterForm(r *http.Request) registerForm {
	return registerForm{
		From:     r.PostForm.Get("from"),
		Username: field(r, "username"),
		Email:    field(r, "email"),
		Password: r.PostForm.Get("password"),
		Confirm:  r.PostForm.Get("confirm"),
	}
}

func parseArticleForm(r *http.Request) articleForm {
	f := articleForm{
		Title:   field(r, "title"),
		Content: r.PostForm.Get("content"),
		Status:  field(r, "status"),
		Message: field(r, "message"),
	}
	if f.Status == "" {
		f.Status = domain.StatusDraft
	}
	return f
}

func parseEditForm(r *http.Request) editForm {
	return editForm{
		Content: r.PostForm.Get("content"),
		Message: field(r, "message"),
		Action:  r.PostForm.Get("action"),
	}
}

func parseBranchForm(r *http.Request) branchForm {
	return branchForm{
		Name:        field(r, "name"),
		Description: field(r, "description"),
		FromCommit:  field(r, "from_commit"),
	}
}

func parseMergeForm(r *http.Request) mergeForm {
	return mergeForm{
		Source:  field(r, "source"),
		Target:  field(r, "target"),
		Message: field(r, "message"),
	}
}

func parseCommentForm(r *http.Request) commentForm {
	return commentForm{
		Content: field(r, "content"),
		ReplyTo: field(r, "reply_to"),
	}
}

func parseProfileForm(r *http.Request) profileForm {
	return profileForm{
		Bio:       field(r, "bio"),
		AvatarURL: field(r, "avatar_url"),
		Website:   field(r, "website"),
	}
}

func (f profileForm) data() domain.ProfileData {
	p := domain.ProfileData{Bio: f.Bio, AvatarURL: f.AvatarURL}
	if f.Website != "" {
		p.SocialLinks = map[string]string{"website": f.Website}
	}
	return p
}

func parseUserForm(r *http.Request) userForm {
	return userForm{
		Username: field(r, "username"),
		Email:    field(r, "email"),
		FullName: field(r, "full_name"),
		Password: r.PostForm.Get("password"),
		Role:     field(r, "role"),
	}
}
