package db_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/db"
	"github.com/sidereusnuntius/wikifront/internal/initialization"
	"github.com/sidereusnuntius/wikifront/internal/storage"
)

var DB storage.Storage
var ctx = context.Background()

func TestMain(m *testing.M) {
	d, err := initialization.OpenDB("file:temp?mode=memory&cache=shared")
	if err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	d.SetMaxOpenConns(1)

	err = initialization.SetupDB(d, "../../migrations", "temp")
	if err != nil {
		log.Fatal().Err(err).Msg("tests setup failure")
		return
	}
	DB = db.New(d)
	code := m.Run()
	d.Close()
	os.Exit(code)
}

func TestSetGet(t *testing.T) {
	if err := DB.Set(ctx, storage.TokenKey, "first"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := DB.Set(ctx, storage.TokenKey, "second"); err != nil {
		t.Fatalf("unexpected error on overwrite: %s", err)
	}

	v, err := DB.Get(ctx, storage.TokenKey)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if v != "second" {
		t.Errorf("expected value \"second\", got \"%s\"", v)
	}
}

func TestGetMissing(t *testing.T) {
	_, err := DB.Get(ctx, "missing")
	if !errors.Is(err, storage.ErrNotExist) {
		t.Errorf("expected %s, got %v", storage.ErrNotExist, err)
	}

	if err = DB.Set(ctx, "", "x"); !errors.Is(err, storage.ErrInvalidKey) {
		t.Errorf("expected %s, got %v", storage.ErrInvalidKey, err)
	}
}

func TestDelete(t *testing.T) {
	if err := DB.Set(ctx, "moribundus", "x"); err != nil {
		t.Fatal(err)
	}
	if err := DB.Delete(ctx, "moribundus"); err != nil {
		t.Errorf("unexpected error: %s", err)
	}
	if err := DB.Delete(ctx, "moribundus"); !errors.Is(err, storage.ErrNotExist) {
		t.Errorf("expected %s on second deletion, got %v", storage.ErrNotExist, err)
	}
}
