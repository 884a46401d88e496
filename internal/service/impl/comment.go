package impl

import (
	"context"
	"fmt"
	"strings"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
)

func (s *AppService) ArticleComments(ctx context.Context, articleID domain.ID) ([]domain.Comment, error) {
	return query.Fetch(ctx, s.Cache, commentsKey(articleID), func(ctx context.Context) (comments []domain.Comment, err error) {
		err = s.API.Get(ctx, "/comments/article/"+articleID.String(), nil, &comments)
		return
	}, query.StaleTime(staleComments))
}

func (s *AppService) CreateComment(ctx context.Context, c domain.CommentCreate) (comment domain.Comment, err error) {
	c.Content = strings.TrimSpace(c.Content)
	if c.Content == "" {
		return comment, fmt.Errorf("%w: comment is empty", service.ErrInvalidInput)
	}
	if err = s.API.Post(ctx, "/comments/", c, &comment); err != nil {
		return
	}
	s.settle(createComment, vars{ArticleID: c.ArticleID})
	return
}

func (s *AppService) UpdateComment(ctx context.Context, id domain.ID, u domain.CommentUpdate) (comment domain.Comment, err error) {
	u.Content = strings.TrimSpace(u.Content)
	if u.Content == "" {
		return comment, fmt.Errorf("%w: comment is empty", service.ErrInvalidInput)
	}
	if err = s.API.Put(ctx, "/comments/"+id.String(), u, &comment); err != nil {
		return
	}
	s.settle(updateComment, vars{ArticleID: comment.ArticleID})
	return
}

func (s *AppService) DeleteComment(ctx context.Context, id domain.ID) error {
	if err := s.API.Delete(ctx, "/comments/"+id.String()); err != nil {
		return err
	}
	s.settle(deleteComment, vars{})
	return nil
}
