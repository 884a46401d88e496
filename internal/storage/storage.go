package storage

import (
	"context"
	"errors"
)

// TokenKey is the key under which the API access token is persisted.
const TokenKey = "access_token"

var (
	ErrNotDir     = errors.New("given root is not a directory")
	ErrInternal   = errors.New("internal error")
	ErrNotExist   = errors.New("key does not exist")
	ErrInvalidKey = errors.New("invalid key")
)

// Storage is a small persistent key/value store for client state that must survive restarts, such as the
// access token. Setting an existing key overwrites it.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Token returns the stored access token, or an empty string if there is none.
func Token(ctx context.Context, s Storage) (string, error) {
	token, err := s.Get(ctx, TokenKey)
	if errors.Is(err, ErrNotExist) {
		return "", nil
	}
	return token, err
}

// ClearToken removes the stored access token. Removing a token that does not exist is not an error.
func ClearToken(ctx context.Context, s Storage) error {
	err := s.Delete(ctx, TokenKey)
	if errors.Is(err, ErrNotExist) {
		return nil
	}
	return err
}
