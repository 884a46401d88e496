package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/guard"
)

func (h *Handler) Mount(r chi.Router) {
	authenticated := h.Guard.Require()
	editor := h.Guard.Require(domain.CanEdit)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", ListArticles(h))
	r.Get(guard.LoginRoute, GetLogin(h))
	r.Post(guard.LoginRoute, Login(h))
	r.Get(RegisterRoute, GetRegister(h))
	r.Post(RegisterRoute, Register(h))
	r.Post(LogoutRoute, Logout(h))
	r.Get(guard.ForbiddenRoute, Forbidden(h))

	r.Route(ArticlesPath, func(r chi.Router) {
		r.Get("/", ListArticles(h))
		r.With(editor).Get("/new", GetNewArticle(h))
		r.With(editor).Post("/new", PostArticle(h))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", GetArticle(h))
			r.With(editor).Get("/edit", EditArticle(h))
			r.With(editor).Post("/edit", SaveArticle(h))
			r.With(h.Guard.Require(domain.CanDelete)).Post("/delete", DeleteArticle(h))
			r.Get("/history", ArticleHistory(h))

			r.Get("/branches", ArticleBranches(h))
			r.With(editor).Post("/branches", CreateBranch(h))
			r.With(editor).Post("/branches/{branch}/delete", DeleteBranch(h))
			r.With(editor).Post("/merge", MergeBranch(h))

			r.With(authenticated).Post("/comments", PostComment(h))
			r.With(authenticated).Post("/comments/{comment}/delete", DeleteComment(h))
		})
	})

	r.Get("/commits/{id}", GetCommit(h))
	r.With(editor).Post("/commits/{id}/revert", RevertCommit(h))

	r.Group(func(r chi.Router) {
		r.Use(authenticated)
		r.Get(ProfileRoute, MyProfile(h))
		r.Get(ProfileRoute+"/edit", EditProfile(h))
		r.Post(ProfileRoute+"/edit", SaveProfile(h))
		r.Post(ProfileRoute+"/delete", DeleteProfile(h))
		r.Get("/media/upload", UploadView(h))
		r.Post("/media/upload", Upload(h))
	})
	r.Get("/users/{id}/profile", UserProfile(h))
	r.With(h.Guard.Require(domain.CanModerate)).Get("/users", ListUsers(h))

	r.Route(AdminRoute, func(r chi.Router) {
		r.Use(h.Guard.Require(domain.CanDelete))
		r.Get("/", Admin(h))
		r.Post("/users", CreateUser(h))
		r.Post("/users/{id}/role", SetRole(h))
		r.Post("/users/{id}/delete", DeleteUser(h))
	})

	r.Handle("/static/*", http.FileServerFS(static))
	r.NotFound(NotFound(h))
}
