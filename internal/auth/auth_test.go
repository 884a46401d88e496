package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/sidereusnuntius/wikifront/internal/client"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/mocks"
	"go.uber.org/mock/gomock"
)

var (
	galileo = domain.User{ID: uuid.New(), Username: "galileo", Role: "editor"}
	editor  = domain.PermissionSet{Role: "editor", CanEdit: true}
)

func TestResolve(t *testing.T) {
	ctrl := gomock.NewController(t)

	cases := []struct {
		name     string
		setup    func(b *mocks.MockBackend)
		expected State
	}{
		{
			name: "no token",
			setup: func(b *mocks.MockBackend) {
				b.EXPECT().HasToken(gomock.Any()).Return(false, nil)
			},
			expected: State{},
		},
		{
			name: "logged in",
			setup: func(b *mocks.MockBackend) {
				b.EXPECT().HasToken(gomock.Any()).Return(true, nil)
				b.EXPECT().CurrentUser(gomock.Any()).Return(galileo, nil)
				b.EXPECT().Permissions(gomock.Any()).Return(editor, nil)
			},
			expected: State{User: &galileo, Permissions: &editor, IsAuthenticated: true},
		},
		{
			name: "rejected token",
			setup: func(b *mocks.MockBackend) {
				b.EXPECT().HasToken(gomock.Any()).Return(true, nil)
				b.EXPECT().CurrentUser(gomock.Any()).Return(domain.User{}, &client.APIError{Status: 401})
				b.EXPECT().Permissions(gomock.Any()).Return(domain.PermissionSet{}, &client.APIError{Status: 401})
			},
			expected: State{},
		},
		{
			name: "permissions unavailable",
			setup: func(b *mocks.MockBackend) {
				b.EXPECT().HasToken(gomock.Any()).Return(true, nil)
				b.EXPECT().CurrentUser(gomock.Any()).Return(galileo, nil)
				b.EXPECT().Permissions(gomock.Any()).Return(domain.PermissionSet{}, client.ErrNetwork)
			},
			expected: State{User: &galileo, IsAuthenticated: true},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := mocks.NewMockBackend(ctrl)
			c.setup(b)
			s := New(b)

			if !s.State().IsLoading {
				t.Error("expected a new session to be loading")
			}
			if diff := cmp.Diff(c.expected, s.Refresh(context.Background())); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestStartAndWait(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)

	release := make(chan struct{})
	b.EXPECT().HasToken(gomock.Any()).Return(true, nil)
	b.EXPECT().CurrentUser(gomock.Any()).DoAndReturn(func(context.Context) (domain.User, error) {
		<-release
		return galileo, nil
	})
	b.EXPECT().Permissions(gomock.Any()).Return(editor, nil)

	s := New(b)
	s.Start(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected Wait to time out while the user is being fetched, got %v", err)
	}
	if !s.State().IsLoading {
		t.Error("expected the session to be loading")
	}

	close(release)
	st, err := s.Wait(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.IsLoading || !st.IsAuthenticated {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestLoginLogout(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)
	ctx := context.Background()
	creds := domain.Credentials{Username: "galileo", Password: "sidereus"}

	gomock.InOrder(
		b.EXPECT().Login(gomock.Any(), creds).Return(domain.LoginResponse{AccessToken: "token"}, nil),
		b.EXPECT().HasToken(gomock.Any()).Return(true, nil),
	)
	b.EXPECT().CurrentUser(gomock.Any()).Return(galileo, nil)
	b.EXPECT().Permissions(gomock.Any()).Return(editor, nil)

	s := New(b)
	st, err := s.Login(ctx, creds)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsAuthenticated || st.User.ID != galileo.ID {
		t.Fatalf("unexpected state after login %+v", st)
	}

	b.EXPECT().Logout(gomock.Any()).Return(client.ErrNetwork)
	if err = s.Logout(ctx); !errors.Is(err, client.ErrNetwork) {
		t.Errorf("expected the logout failure to be reported, got %v", err)
	}
	if diff := cmp.Diff(State{}, s.State()); diff != "" {
		t.Errorf("expected the state to be reset anyway: %s", diff)
	}
}

func TestFailedLoginKeepsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)
	b.EXPECT().HasToken(gomock.Any()).Return(false, nil)
	b.EXPECT().Login(gomock.Any(), gomock.Any()).Return(domain.LoginResponse{}, &client.APIError{Status: 401})

	s := New(b)
	s.Refresh(context.Background())

	st, err := s.Login(context.Background(), domain.Credentials{Username: "galileo", Password: "wrong"})
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
	if st.IsAuthenticated || st.IsLoading {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestRegisterWithoutToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)
	b.EXPECT().HasToken(gomock.Any()).Return(false, nil)
	b.EXPECT().Register(gomock.Any(), gomock.Any()).Return(domain.LoginResponse{Username: "kepler"}, nil)

	s := New(b)
	s.Refresh(context.Background())
	st, err := s.Register(context.Background(), domain.Registration{Username: "kepler"})
	if err != nil {
		t.Fatal(err)
	}
	if st.IsAuthenticated {
		t.Error("expected nobody to be logged in without a token")
	}
}

// A reset during a resolution wins over the resolution's result.
func TestResetDuringResolution(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := mocks.NewMockBackend(ctrl)

	fetching, release := make(chan struct{}), make(chan struct{})
	b.EXPECT().HasToken(gomock.Any()).Return(true, nil)
	b.EXPECT().CurrentUser(gomock.Any()).DoAndReturn(func(context.Context) (domain.User, error) {
		close(fetching)
		<-release
		return galileo, nil
	})
	b.EXPECT().Permissions(gomock.Any()).Return(editor, nil)

	s := New(b)
	done := make(chan State)
	go func() {
		done <- s.Refresh(context.Background())
	}()

	<-fetching
	s.Reset()
	if st, err := s.Wait(context.Background()); err != nil || st.IsAuthenticated {
		t.Errorf("expected waiters to see the reset state, got %+v, %v", st, err)
	}

	close(release)
	if st := <-done; st.IsAuthenticated {
		t.Errorf("expected the stale resolution to be discarded, got %+v", st)
	}
}
