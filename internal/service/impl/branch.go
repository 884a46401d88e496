package impl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
)

func (s *AppService) ArticleBranches(ctx context.Context, articleID domain.ID, includePrivate bool) ([]domain.Branch, error) {
	return query.Fetch(ctx, s.Cache, branchesKey(articleID, includePrivate), func(ctx context.Context) (branches []domain.Branch, err error) {
		params := url.Values{"include_private": {strconv.FormatBool(includePrivate)}}
		err = s.API.Get(ctx, "/branches/article/"+articleID.String(), params, &branches)
		return
	}, query.StaleTime(staleBranches))
}

func (s *AppService) Branch(ctx context.Context, id domain.ID) (domain.Branch, error) {
	return query.Fetch(ctx, s.Cache, branchKey(id), func(ctx context.Context) (b domain.Branch, err error) {
		err = s.API.Get(ctx, "/branches/"+id.String(), nil, &b)
		return
	})
}

func (s *AppService) BranchByName(ctx context.Context, articleID domain.ID, name string) (domain.Branch, error) {
	if err := pathSegment(name); err != nil {
		return domain.Branch{}, err
	}
	return query.Fetch(ctx, s.Cache, branchByNameKey(articleID, name), func(ctx context.Context) (b domain.Branch, err error) {
		err = s.API.Get(ctx, "/branches/article/"+articleID.String()+"/by-name/"+url.PathEscape(name), nil, &b)
		return
	})
}

func (s *AppService) CreateBranch(ctx context.Context, b domain.BranchCreate) (branch domain.Branch, err error) {
	if b.Name, err = branchName(b.Name); err != nil {
		return
	}
	if err = s.API.Post(ctx, "/branches/", b, &branch); err != nil {
		return
	}
	s.settle(createBranch, vars{ArticleID: b.ArticleID})
	return
}

func (s *AppService) CreateBranchFromCommit(ctx context.Context, articleID domain.ID, b domain.BranchCreateFromCommit) (branch domain.Branch, err error) {
	if b.Name, err = branchName(b.Name); err != nil {
		return
	}
	if err = s.API.Post(ctx, "/branches/article/"+articleID.String()+"/from-commit", b, &branch); err != nil {
		return
	}
	s.settle(createBranch, vars{ArticleID: articleID})
	return
}

// DeleteBranch deletes a branch. Every cached branch list is invalidated, since the article the branch
// belonged to is not known here.
func (s *AppService) DeleteBranch(ctx context.Context, id domain.ID) error {
	if err := s.API.Delete(ctx, "/branches/"+id.String()); err != nil {
		return err
	}
	s.settle(deleteBranch, vars{BranchID: &id})
	return nil
}

func (s *AppService) MergeBranch(ctx context.Context, source, target domain.ID, message string) error {
	if source == target {
		return fmt.Errorf("%w: cannot merge a branch into itself", service.ErrInvalidInput)
	}
	body := domain.MergeRequest{Message: strings.TrimSpace(message)}
	if err := s.API.Post(ctx, "/branches/"+source.String()+"/merge/"+target.String(), body, nil); err != nil {
		return err
	}
	s.settle(mergeBranch, vars{BranchID: &target})
	return nil
}

func branchName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: branch name is required", service.ErrInvalidInput)
	}
	if strings.ContainsAny(name, " /\\") {
		return "", fmt.Errorf("%w: branch name cannot contain spaces or slashes", service.ErrInvalidInput)
	}
	if err := pathSegment(name); err != nil {
		return "", err
	}
	return name, nil
}

// pathSegment rejects branch names that PathEscape leaves as dot segments, which would be resolved against
// the API path instead of looked up.
func pathSegment(name string) error {
	if name == "." || name == ".." {
		return fmt.Errorf("%w: branch name cannot be %q", service.ErrInvalidInput, name)
	}
	return nil
}
