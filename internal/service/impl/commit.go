package impl

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
)

func pageParams(page domain.Page, defaultLimit int) (domain.Page, url.Values) {
	if page.Limit <= 0 {
		page.Limit = defaultLimit
	}
	if page.Skip < 0 {
		page.Skip = 0
	}
	return page, url.Values{
		"skip":  {strconv.Itoa(page.Skip)},
		"limit": {strconv.Itoa(page.Limit)},
	}
}

func (s *AppService) ArticleCommits(ctx context.Context, articleID domain.ID, page domain.Page) ([]domain.Commit, error) {
	page, params := pageParams(page, DefaultCommitsLimit)
	return query.Fetch(ctx, s.Cache, articleCommitsKey(articleID, page), func(ctx context.Context) (commits []domain.Commit, err error) {
		err = s.API.Get(ctx, "/commits/article/"+articleID.String(), params, &commits)
		return
	}, query.StaleTime(staleCommits))
}

func (s *AppService) BranchCommits(ctx context.Context, branchID domain.ID, page domain.Page) ([]domain.Commit, error) {
	page, params := pageParams(page, DefaultCommitsLimit)
	return query.Fetch(ctx, s.Cache, branchCommitsKey(branchID, page), func(ctx context.Context) (commits []domain.Commit, err error) {
		err = s.API.Get(ctx, "/commits/branch/"+branchID.String(), params, &commits)
		return
	}, query.StaleTime(staleCommits))
}

func (s *AppService) Commit(ctx context.Context, id domain.ID) (domain.Commit, error) {
	return commitView[domain.Commit](ctx, s, id, "")
}

func (s *AppService) CommitDetailed(ctx context.Context, id domain.ID) (domain.CommitDetailed, error) {
	return commitView[domain.CommitDetailed](ctx, s, id, "detailed")
}

func (s *AppService) CommitDiff(ctx context.Context, id domain.ID) (domain.CommitDiff, error) {
	return commitView[domain.CommitDiff](ctx, s, id, "diff")
}

func (s *AppService) CommitContent(ctx context.Context, id domain.ID) (domain.CommitContent, error) {
	return commitView[domain.CommitContent](ctx, s, id, "content")
}

func commitView[T any](ctx context.Context, s *AppService, id domain.ID, view string) (T, error) {
	path := "/commits/" + id.String()
	if view != "" {
		path += "/" + view
	}
	return query.Fetch(ctx, s.Cache, commitKey(id, view), func(ctx context.Context) (v T, err error) {
		err = s.API.Get(ctx, path, nil, &v)
		return
	})
}

func (s *AppService) CreateCommit(ctx context.Context, articleID domain.ID, c domain.CommitCreate) (commit domain.Commit, err error) {
	if err = s.API.Post(ctx, "/commits/article/"+articleID.String(), c, &commit); err != nil {
		return
	}
	s.settle(createCommit, vars{ArticleID: articleID, BranchID: c.BranchID})
	return
}

func (s *AppService) RevertCommit(ctx context.Context, id domain.ID) (commit domain.Commit, err error) {
	if err = s.API.Post(ctx, "/commits/"+id.String()+"/revert", nil, &commit); err != nil {
		return
	}
	s.settle(revertCommit, vars{ArticleID: commit.ArticleID})
	return
}
