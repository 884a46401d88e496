package impl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
)

const initialCommitMessage = "Initial commit"

func (s *AppService) Articles(ctx context.Context, q domain.ArticlesQuery) ([]domain.Article, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultArticlesLimit
	}
	q.Search = RemoveDuplicateSpaces(q.Search)

	return query.Fetch(ctx, s.Cache, articlesKey(q), func(ctx context.Context) (articles []domain.Article, err error) {
		params := url.Values{
			"skip":  {strconv.Itoa(q.Skip)},
			"limit": {strconv.Itoa(q.Limit)},
		}
		if q.Status != "" {
			params.Set("status", q.Status)
		}
		if q.Search != "" {
			params.Set("search", q.Search)
		}
		err = s.API.Get(ctx, "/articles", params, &articles)
		return
	}, query.StaleTime(staleArticles))
}

func (s *AppService) Article(ctx context.Context, id domain.ID, branch string) (domain.ArticleFull, error) {
	if branch == "" {
		branch = domain.MainBranch
	}

	return query.Fetch(ctx, s.Cache, articleKey(id, branch), func(ctx context.Context) (a domain.ArticleFull, err error) {
		err = s.API.Get(ctx, "/articles/"+id.String(), url.Values{"branch": {branch}}, &a)
		return
	}, query.StaleTime(staleArticles))
}

// CreateArticle creates the article together with its main branch and initial commit.
func (s *AppService) CreateArticle(ctx context.Context, a domain.ArticleCreate) (article domain.Article, err error) {
	a.Title = RemoveDuplicateSpaces(a.Title)
	if a.Title == "" {
		return article, fmt.Errorf("%w: title is required", service.ErrInvalidInput)
	}
	if a.Status == "" {
		a.Status = domain.StatusDraft
	}
	if a.ArticleType == "" {
		a.ArticleType = domain.DefaultArticleType
	}
	if a.Message == "" {
		a.Message = initialCommitMessage
	}

	if err = s.API.Post(ctx, "/articles/", a, &article); err != nil {
		return
	}
	s.settle(createArticle, vars{ArticleID: article.ID})
	return
}

// EditArticle resolves the branch by its name, then commits edit on it.
func (s *AppService) EditArticle(ctx context.Context, id domain.ID, branch string, edit domain.ArticleEdit) (commit domain.Commit, err error) {
	if branch == "" {
		branch = domain.MainBranch
	}
	if strings.TrimSpace(edit.Message) == "" {
		return commit, fmt.Errorf("%w: commit message is required", service.ErrInvalidInput)
	}
	if err = pathSegment(branch); err != nil {
		return
	}

	var b domain.Branch
	err = s.API.Get(ctx, "/branches/article/"+id.String()+"/by-name/"+url.PathEscape(branch), nil, &b)
	if err != nil {
		return commit, fmt.Errorf("resolving branch %q: %w", branch, err)
	}

	body := domain.CommitCreate{
		Message:  edit.Message,
		Content:  edit.Content,
		BranchID: &b.ID,
	}
	if err = s.API.Post(ctx, "/commits/article/"+id.String(), body, &commit); err != nil {
		return
	}
	s.settle(editArticle, vars{ArticleID: id, Branch: branch, BranchID: &b.ID})
	return
}

func (s *AppService) QuickEditArticle(ctx context.Context, id domain.ID, branch, content, message string) (domain.Commit, error) {
	if strings.TrimSpace(message) == "" {
		message = QuickEditMessage(s.Now())
	}
	return s.EditArticle(ctx, id, branch, domain.ArticleEdit{Message: message, Content: content})
}

func (s *AppService) DeleteArticle(ctx context.Context, id domain.ID) error {
	if err := s.API.Delete(ctx, "/articles/"+id.String()); err != nil {
		return err
	}
	s.settle(deleteArticle, vars{ArticleID: id})
	return nil
}

// QuickEditMessage is the commit message of edits saved without one.
func QuickEditMessage(t time.Time) string {
	return fmt.Sprintf("Update article content (%s)", t.UTC().Format(time.RFC3339))
}

func RemoveDuplicateSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
