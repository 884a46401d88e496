package impl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"golang.org/x/sync/errgroup"
)

// The current user and their permissions are always refetched in the background on read, and read fresh
// after login.
func (s *AppService) CurrentUser(ctx context.Context) (domain.User, error) {
	return query.Fetch(ctx, s.Cache, query.NewKey(kindCurrentUser), func(ctx context.Context) (u domain.User, err error) {
		err = s.API.Get(ctx, "/users/me", nil, &u)
		return
	})
}

func (s *AppService) Permissions(ctx context.Context) (domain.PermissionSet, error) {
	return query.Fetch(ctx, s.Cache, query.NewKey(kindPermissions), func(ctx context.Context) (p domain.PermissionSet, err error) {
		err = s.API.Get(ctx, "/users/me/permissions", nil, &p)
		return
	})
}

func (s *AppService) User(ctx context.Context, id domain.ID) (domain.User, error) {
	return query.Fetch(ctx, s.Cache, userKey(id), func(ctx context.Context) (u domain.User, err error) {
		err = s.API.Get(ctx, "/users/"+id.String(), nil, &u)
		return
	}, query.StaleTime(staleUser))
}

// Users fetches the users concurrently. A user that cannot be fetched is logged and left out.
func (s *AppService) Users(ctx context.Context, ids []domain.ID) ([]domain.User, error) {
	key := usersKey(ids)
	return query.Fetch(ctx, s.Cache, key, func(ctx context.Context) ([]domain.User, error) {
		fetched := make([]*domain.User, len(key.Parts()))
		var g errgroup.Group
		g.SetLimit(8)
		for i, part := range key.Parts() {
			id := part.(domain.ID)
			g.Go(func() error {
				var u domain.User
				if err := s.API.Get(ctx, "/users/"+id.String(), nil, &u); err != nil {
					log.Warn().Err(err).Str("user", id.String()).Msg("failed to fetch user")
					return nil
				}
				fetched[i] = &u
				return nil
			})
		}
		g.Wait()

		users := make([]domain.User, 0, len(fetched))
		for _, u := range fetched {
			if u != nil {
				users = append(users, *u)
			}
		}
		return users, nil
	}, query.StaleTime(staleUser))
}

func (s *AppService) SearchUsers(ctx context.Context, q domain.UserSearch) ([]domain.User, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	q.Query = strings.TrimSpace(q.Query)

	return query.Fetch(ctx, s.Cache, searchUsersKey(q), func(ctx context.Context) (users []domain.User, err error) {
		params := url.Values{
			"skip":  {strconv.Itoa((q.Page - 1) * UsersPageSize)},
			"limit": {strconv.Itoa(UsersPageSize)},
		}
		if q.Query != "" {
			params.Set("q", q.Query)
		}
		if q.Role != "" {
			params.Set("role", q.Role)
		}
		err = s.API.Get(ctx, "/users/search", params, &users)
		return
	})
}

func (s *AppService) CreateUser(ctx context.Context, u domain.UserWrite) (user domain.User, err error) {
	if u.Username == "" || u.Email == "" || u.Password == "" {
		return user, fmt.Errorf("%w: username, email and password are required", service.ErrInvalidInput)
	}
	if err = s.API.Post(ctx, "/users", u, &user); err != nil {
		return
	}
	s.settle(writeUser, vars{})
	return
}

func (s *AppService) UpdateUser(ctx context.Context, id domain.ID, u domain.UserWrite) (user domain.User, err error) {
	if err = s.API.Put(ctx, "/users/"+id.String(), u, &user); err != nil {
		return
	}
	s.settle(writeUser, vars{})
	return
}

func (s *AppService) DeleteUser(ctx context.Context, id domain.ID) error {
	if err := s.API.Delete(ctx, "/users/"+id.String()); err != nil {
		return err
	}
	s.settle(writeUser, vars{})
	return nil
}
