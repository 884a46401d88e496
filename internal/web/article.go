package web

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/diff"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/validate"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
	"golang.org/x/sync/errgroup"
)

const ArticlesPageSize = 20

// pathID parses the id named name in the route. An invalid id is answered with the not found page.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (domain.ID, bool) {
	id, err := domain.ParseID(chi.URLParam(r, name))
	if err != nil {
		NotFound(h)(w, r)
		return id, false
	}
	return id, true
}

// pageNumber reads the page query parameter. Pages are numbered from 1.
func pageNumber(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

func branchParam(r *http.Request) string {
	if b := r.URL.Query().Get("branch"); b != "" {
		return b
	}
	return domain.MainBranch
}

// authorNames maps the given user ids to usernames. Users that could not be fetched are left out.
func (h *Handler) authorNames(ctx context.Context, ids []domain.ID) map[domain.ID]string {
	names := make(map[domain.ID]string, len(ids))
	if len(ids) == 0 {
		return names
	}
	users, err := h.service.Users(ctx, ids)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch authors")
	}
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

func ListArticles(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		data := views.ArticleListData{
			Search: q.Get("search"),
			Status: q.Get("status"),
			Page:   pageNumber(r),
		}

		articles, err := h.service.Articles(ctx, domain.ArticlesQuery{
			Skip:   (data.Page - 1) * ArticlesPageSize,
			Limit:  ArticlesPageSize + 1,
			Status: data.Status,
			Search: data.Search,
		})
		if err != nil {
			h.pageError(w, r, err, "articles")
			return
		}
		if len(articles) > ArticlesPageSize {
			articles, data.HasMore = articles[:ArticlesPageSize], true
		}
		data.Articles = articles

		h.render(w, r, page{
			title: "Articles",
			place: views.PlaceArticles,
			child: views.ArticleList(data),
		})
	}
}

func GetArticle(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		h.showArticle(w, r, id, branchParam(r), commentForm{}, nil, 0)
	}
}

// showArticle renders the article at the head of branch, its branches and its comments. comment and errs
// refill the comment form after a rejected submission.
func (h *Handler) showArticle(w http.ResponseWriter, r *http.Request, id domain.ID, branch string, comment commentForm, errs validate.FieldErrors, status int) {
	ctx := r.Context()

	var (
		article  domain.ArticleFull
		branches []domain.Branch
		tree     []domain.Comment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		article, err = h.service.Article(gctx, id, branch)
		return
	})
	g.Go(func() error {
		var err error
		if branches, err = h.service.ArticleBranches(gctx, id, false); err != nil {
			log.Warn().Err(err).Stringer("article", id).Msg("failed to fetch branches")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if tree, err = h.service.ArticleComments(gctx, id); err != nil {
			log.Warn().Err(err).Stringer("article", id).Msg("failed to fetch comments")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		h.pageError(w, r, err, "article")
		return
	}

	thread := domain.Flatten(tree)
	ids := make([]domain.ID, 0, len(thread))
	for _, e := range thread {
		ids = append(ids, e.UserID)
	}

	st := h.Session.State()
	h.render(w, r, page{
		title:  article.Title,
		place:  views.Read,
		hrefs:  h.articleTabs(id, branch),
		status: status,
		child: views.ArticleView(views.ArticleData{
			Article:       article,
			Branch:        branch,
			Branches:      branches,
			Thread:        thread,
			Authors:       h.authorNames(ctx, ids),
			CanEdit:       st.Permissions.Has(domain.CanEdit),
			CanDelete:     st.Permissions.Has(domain.CanDelete),
			CanComment:    st.IsAuthenticated,
			CanModerate:   st.Permissions.Has(domain.CanModerate),
			CurrentUser:   h.currentUser(),
			Comment:       comment.Content,
			CommentErrors: errs,
		}),
	})
}

func GetNewArticle(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderNewArticle(w, r, views.NewArticleData{
			Title:  r.URL.Query().Get("title"),
			Status: domain.StatusDraft,
		}, 0)
	}
}

func PostArticle(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		form := parseArticleForm(r)
		data := views.NewArticleData{Title: form.Title, Content: form.Content, Status: form.Status, Message: form.Message}
		if errs := validate.Struct(form); errs != nil {
			data.Errors = errs
			h.renderNewArticle(w, r, data, http.StatusUnprocessableEntity)
			return
		}

		a, err := h.service.CreateArticle(r.Context(), domain.ArticleCreate{
			Title:   form.Title,
			Content: form.Content,
			Status:  form.Status,
			Message: form.Message,
		})
		if err != nil {
			if code := GetCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
				h.mutationError(w, r, err, "", r.URL.RequestURI())
				return
			}
			log.Warn().Err(err).Str("title", form.Title).Msg("failed to create article")
			h.render(w, r, page{
				title:  "New article",
				place:  views.Edit,
				status: GetCode(err),
				flash:  &views.Flash{Kind: views.FlashError, Message: errorMessage(err, "Could not create the article.")},
				child:  views.NewArticle(data),
			})
			return
		}
		log.Info().Stringer("article", a.ID).Str("title", a.Title).Msg("article created")
		h.redirect(w, r, views.ArticlePath(a.ID, "", ""), views.FlashInfo, "Article created.")
	}
}

func (h *Handler) renderNewArticle(w http.ResponseWriter, r *http.Request, data views.NewArticleData, status int) {
	h.render(w, r, page{
		title:  "New article",
		place:  views.Edit,
		status: status,
		child:  views.NewArticle(data),
	})
}

// EditArticle renders the editor populated with the content at the head of the branch.
func EditArticle(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		branch := branchParam(r)
		article, err := h.service.Article(r.Context(), id, branch)
		if err != nil {
			h.pageError(w, r, err, "article")
			return
		}
		h.renderEditor(w, r, views.EditorData{
			ArticleID: id,
			Title:     article.Title,
			Branch:    branch,
			Content:   article.Content,
		}, 0, nil)
	}
}

// SaveArticle previews or commits an edit, depending on the button used to submit the form. An edit saved
// without a summary gets a generated commit message.
func SaveArticle(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		branch := branchParam(r)
		form := parseEditForm(r)

		article, err := h.service.Article(ctx, id, branch)
		if err != nil {
			h.pageError(w, r, err, "article")
			return
		}
		data := views.EditorData{
			ArticleID: id,
			Title:     article.Title,
			Branch:    branch,
			Content:   form.Content,
			Message:   form.Message,
		}
		if errs := validate.Struct(form); errs != nil {
			data.Errors = errs
			h.renderEditor(w, r, data, http.StatusUnprocessableEntity, nil)
			return
		}

		if form.Action == "preview" {
			data.Preview = diff.Lines(article.Content, form.Content)
			if data.Preview == nil {
				data.Preview = []diff.Line{}
			}
			data.Stats = diff.LineStats(article.Content, form.Content)
			h.renderEditor(w, r, data, 0, nil)
			return
		}

		commit, err := h.service.QuickEditArticle(ctx, id, branch, form.Content, form.Message)
		if err != nil {
			if code := GetCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
				h.mutationError(w, r, err, "", r.URL.RequestURI())
				return
			}
			log.Warn().Err(err).Stringer("article", id).Str("branch", branch).Msg("failed to save edit")
			h.renderEditor(w, r, data, GetCode(err), &views.Flash{
				Kind:    views.FlashError,
				Message: errorMessage(err, "Could not save the changes."),
			})
			return
		}
		log.Info().Stringer("article", id).Stringer("commit", commit.ID).Str("branch", branch).Msg("article edited")
		h.redirect(w, r, views.ArticlePath(id, branch, ""), views.FlashInfo, "Changes saved.")
	}
}

func (h *Handler) renderEditor(w http.ResponseWriter, r *http.Request, data views.EditorData, status int, flash *views.Flash) {
	h.render(w, r, page{
		title:  "Editing " + data.Title,
		place:  views.Edit,
		hrefs:  h.articleTabs(data.ArticleID, data.Branch),
		status: status,
		flash:  flash,
		child:  views.Editor(data),
	})
}

func DeleteArticle(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if err := h.service.DeleteArticle(r.Context(), id); err != nil {
			h.mutationError(w, r, err, "Could not delete the article.", views.ArticlePath(id, "", ""))
			return
		}
		log.Info().Stringer("article", id).Msg("article deleted")
		h.redirect(w, r, ArticlesPath, views.FlashInfo, "Article deleted.")
	}
}

func PostComment(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		form := parseCommentForm(r)
		if errs := validate.Struct(form); errs != nil {
			h.showArticle(w, r, id, domain.MainBranch, form, errs, http.StatusUnprocessableEntity)
			return
		}

		c := domain.CommentCreate{ArticleID: id, Content: form.Content}
		if form.ReplyTo != "" {
			replyTo, _ := domain.ParseID(form.ReplyTo)
			c.ReplyToID = &replyTo
		}
		comment, err := h.service.CreateComment(r.Context(), c)
		if err != nil {
			h.mutationError(w, r, err, "Could not post the comment.", views.ArticlePath(id, "", ""))
			return
		}
		h.redirect(w, r, views.ArticlePath(id, "", "")+"#comment-"+comment.ID.String(), views.FlashInfo, "Comment posted.")
	}
}

func DeleteComment(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		commentID, ok := h.pathID(w, r, "comment")
		if !ok {
			return
		}
		back := views.ArticlePath(id, "", "")
		if err := h.service.DeleteComment(r.Context(), commentID); err != nil {
			h.mutationError(w, r, err, "Could not delete the comment.", back)
			return
		}
		h.redirect(w, r, back, views.FlashInfo, "Comment deleted.")
	}
}
