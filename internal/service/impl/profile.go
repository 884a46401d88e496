package impl

import (
	"context"
	"errors"

	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
)

// MyProfile reports a missing profile as service.ErrNoProfile.
func (s *AppService) MyProfile(ctx context.Context) (domain.Profile, error) {
	return query.Fetch(ctx, s.Cache, profileKey(nil), func(ctx context.Context) (p domain.Profile, err error) {
		err = s.API.Get(ctx, "/users/me/profile", nil, &p)
		if errors.Is(err, service.ErrNotFound) {
			err = service.ErrNoProfile
		}
		return
	}, query.StaleTime(staleProfile))
}

func (s *AppService) UserProfile(ctx context.Context, userID domain.ID) (domain.Profile, error) {
	return query.Fetch(ctx, s.Cache, profileKey(&userID), func(ctx context.Context) (p domain.Profile, err error) {
		err = s.API.Get(ctx, "/users/"+userID.String()+"/profile", nil, &p)
		return
	}, query.StaleTime(staleProfile))
}

func (s *AppService) ProfileVersions(ctx context.Context, page domain.Page) ([]domain.ProfileVersion, error) {
	page, params := pageParams(page, DefaultVersionsLimit)
	return query.Fetch(ctx, s.Cache, profileVersionsKey(nil, page), func(ctx context.Context) (versions []domain.ProfileVersion, err error) {
		err = s.API.Get(ctx, "/users/me/profile/versions", params, &versions)
		return
	}, query.StaleTime(staleVersions))
}

func (s *AppService) UserProfileVersions(ctx context.Context, userID domain.ID, page domain.Page) ([]domain.ProfileVersion, error) {
	page, params := pageParams(page, DefaultVersionsLimit)
	return query.Fetch(ctx, s.Cache, profileVersionsKey(&userID, page), func(ctx context.Context) (versions []domain.ProfileVersion, err error) {
		err = s.API.Get(ctx, "/users/"+userID.String()+"/profile/versions", params, &versions)
		return
	}, query.StaleTime(staleVersions))
}

func (s *AppService) CreateProfile(ctx context.Context, p domain.ProfileData) (profile domain.Profile, err error) {
	if err = s.API.Post(ctx, "/users/me/profile", p, &profile); err != nil {
		return
	}
	s.Cache.Set(profileKey(nil), profile)
	s.settle(createProfile, vars{})
	return
}

func (s *AppService) UpdateProfile(ctx context.Context, p domain.ProfileData) (profile domain.Profile, err error) {
	if err = s.API.Put(ctx, "/users/me/profile", p, &profile); err != nil {
		return
	}
	s.Cache.Set(profileKey(nil), profile)
	s.settle(updateProfile, vars{})
	return
}

func (s *AppService) DeleteProfile(ctx context.Context) error {
	if err := s.API.Delete(ctx, "/users/me/profile"); err != nil {
		return err
	}
	s.settle(deleteProfile, vars{})
	return nil
}
