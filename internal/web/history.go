package web

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/diff"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/validate"
	"github.com/sidereusnuntius/wikifront/internal/web/views"
	"golang.org/x/sync/errgroup"
)

const HistoryPageSize = 50

// ArticleHistory lists the commits of an article, newest first: those of one branch if the branch parameter
// is set, of every branch otherwise.
func ArticleHistory(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		data := views.HistoryData{
			Branch: r.URL.Query().Get("branch"),
			Page:   pageNumber(r),
		}
		p := domain.Page{Skip: (data.Page - 1) * HistoryPageSize, Limit: HistoryPageSize + 1}

		var err error
		if data.Article, err = h.service.Article(ctx, id, ""); err != nil {
			h.pageError(w, r, err, "article")
			return
		}

		var commits []domain.Commit
		if data.Branch == "" {
			commits, err = h.service.ArticleCommits(ctx, id, p)
		} else {
			var b domain.Branch
			if b, err = h.service.BranchByName(ctx, id, data.Branch); err == nil {
				commits, err = h.service.BranchCommits(ctx, b.ID, p)
			}
		}
		if err != nil {
			h.pageError(w, r, err, "history")
			return
		}
		if len(commits) > HistoryPageSize {
			commits, data.HasMore = commits[:HistoryPageSize], true
		}
		data.Commits = commits

		ids := make([]domain.ID, 0, len(commits))
		for _, c := range commits {
			ids = append(ids, c.AuthorID)
		}
		data.Authors = h.authorNames(ctx, ids)

		h.render(w, r, page{
			title: "History of " + data.Article.Title,
			place: views.History,
			hrefs: h.articleTabs(id, data.Branch),
			child: views.HistoryView(data),
		})
	}
}

func ArticleBranches(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		h.showBranches(w, r, id, views.BranchesData{}, 0)
	}
}

// showBranches renders the branches of the article. data carries the submitted forms, if any.
func (h *Handler) showBranches(w http.ResponseWriter, r *http.Request, id domain.ID, data views.BranchesData, status int) {
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		data.Article, err = h.service.Article(ctx, id, "")
		return
	})
	g.Go(func() (err error) {
		data.Branches, err = h.service.ArticleBranches(ctx, id, false)
		return
	})
	if err := g.Wait(); err != nil {
		h.pageError(w, r, err, "article")
		return
	}
	data.CanEdit = h.can(domain.CanEdit)

	h.render(w, r, page{
		title:  "Branches of " + data.Article.Title,
		place:  views.Branches,
		hrefs:  h.articleTabs(id, ""),
		status: status,
		child:  views.BranchList(data),
	})
}

// CreateBranch starts a branch at the given commit, or at the head of main if none is given.
func CreateBranch(h *Handler) http.HandlerFunc {
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
		form := parseBranchForm(r)
		if errs := validate.Struct(form); errs != nil {
			h.showBranches(w, r, id, views.BranchesData{
				Name:        form.Name,
				Description: form.Description,
				FromCommit:  form.FromCommit,
				Errors:      errs,
			}, http.StatusUnprocessableEntity)
			return
		}

		back := views.ArticlePath(id, "", "/branches")
		var (
			b   domain.Branch
			err error
		)
		if form.FromCommit == "" {
			var main domain.Branch
			if main, err = h.service.BranchByName(ctx, id, domain.MainBranch); err == nil {
				b, err = h.service.CreateBranch(ctx, domain.BranchCreate{
					ArticleID:    id,
					Name:         form.Name,
					Description:  form.Description,
					HeadCommitID: main.HeadCommitID,
				})
			}
		} else {
			from, _ := domain.ParseID(form.FromCommit)
			b, err = h.service.CreateBranchFromCommit(ctx, id, domain.BranchCreateFromCommit{
				Name:           form.Name,
				Description:    form.Description,
				SourceCommitID: from,
			})
		}
		if err != nil {
			h.mutationError(w, r, err, "Could not create the branch.", back)
			return
		}
		log.Info().Stringer("article", id).Str("branch", b.Name).Msg("branch created")
		h.redirect(w, r, views.ArticlePath(id, b.Name, ""), views.FlashInfo, "Branch "+b.Name+" created.")
	}
}

func MergeBranch(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "failed to parse form", http.StatusBadRequest)
			return
		}
		form := parseMergeForm(r)
		if errs := validate.Struct(form); errs != nil {
			h.showBranches(w, r, id, views.BranchesData{MergeErrors: errs}, http.StatusUnprocessableEntity)
			return
		}

		source, _ := domain.ParseID(form.Source)
		target, _ := domain.ParseID(form.Target)
		back := views.ArticlePath(id, "", "/branches")
		if err := h.service.MergeBranch(r.Context(), source, target, form.Message); err != nil {
			h.mutationError(w, r, err, "Could not merge the branches.", back)
			return
		}
		log.Info().Stringer("source", source).Stringer("target", target).Msg("branches merged")
		h.redirect(w, r, back, views.FlashInfo, "Branches merged.")
	}
}

func DeleteBranch(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		branchID, ok := h.pathID(w, r, "branch")
		if !ok {
			return
		}
		back := views.ArticlePath(id, "", "/branches")
		if err := h.service.DeleteBranch(r.Context(), branchID); err != nil {
			h.mutationError(w, r, err, "Could not delete the branch.", back)
			return
		}
		h.redirect(w, r, back, views.FlashInfo, "Branch deleted.")
	}
}

// GetCommit shows a commit and the changes it made to its first parent.
func GetCommit(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}

		var data views.CommitData
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			data.Commit, err = h.service.CommitDetailed(gctx, id)
			return
		})
		g.Go(func() (err error) {
			data.Diff, err = h.service.CommitDiff(gctx, id)
			return
		})
		if err := g.Wait(); err != nil {
			h.pageError(w, r, err, "commit")
			return
		}

		var before string
		if parents := data.Commit.ParentCommits; len(parents) > 0 {
			parent, err := h.service.CommitContent(ctx, parents[0])
			if err != nil {
				h.pageError(w, r, err, "commit")
				return
			}
			before = parent.Content
		}
		data.Lines = diff.Lines(before, data.Commit.Content)
		data.CanRevert = h.can(domain.CanEdit)

		h.render(w, r, page{
			title: data.Commit.Message,
			place: views.History,
			hrefs: h.articleTabs(data.Commit.ArticleID, data.Commit.BranchName),
			child: views.CommitView(data),
		})
	}
}

func RevertCommit(h *Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		c, err := h.service.RevertCommit(r.Context(), id)
		if err != nil {
			h.mutationError(w, r, err, "Could not revert the commit.", "/commits/"+id.String())
			return
		}
		log.Info().Stringer("reverted", id).Stringer("commit", c.ID).Msg("commit reverted")
		h.redirect(w, r, "/commits/"+c.ID.String(), views.FlashInfo, "Commit reverted.")
	}
}
