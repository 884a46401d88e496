package service

import (
	"context"
	"errors"
	"io"

	"github.com/sidereusnuntius/wikifront/internal/client"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

var (
	ErrInvalidInput = errors.New("invalid")
	// ErrNoProfile means the current user has not created a profile yet.
	ErrNoProfile = errors.New("profile not created yet")

	ErrNotFound        = client.ErrNotFound
	ErrForbidden       = client.ErrForbidden
	ErrUnauthenticated = client.ErrUnauthorized
	ErrUnavailable     = client.ErrNetwork
)

// UsersPageSize is the number of users in a page of search results.
const UsersPageSize = 10

// Service is every query and mutation the frontend performs against the wiki API. Queries are answered from
// the cache when possible; mutations invalidate the cached queries they affect.
type Service interface {
	ArticleService
	BranchService
	CommitService
	CommentService
	UserService
	ProfileService
	MediaService
	AuthService
}

type ArticleService interface {
	Articles(ctx context.Context, q domain.ArticlesQuery) ([]domain.Article, error)
	// Article returns the article with its content at the head of the named branch.
	Article(ctx context.Context, id domain.ID, branch string) (domain.ArticleFull, error)
	CreateArticle(ctx context.Context, a domain.ArticleCreate) (domain.Article, error)
	// EditArticle records edit as a new commit on the named branch of the article.
	EditArticle(ctx context.Context, id domain.ID, branch string, edit domain.ArticleEdit) (domain.Commit, error)
	// QuickEditArticle is EditArticle with a generated commit message, used when message is empty.
	QuickEditArticle(ctx context.Context, id domain.ID, branch, content, message string) (domain.Commit, error)
	DeleteArticle(ctx context.Context, id domain.ID) error
}

type BranchService interface {
	ArticleBranches(ctx context.Context, articleID domain.ID, includePrivate bool) ([]domain.Branch, error)
	Branch(ctx context.Context, id domain.ID) (domain.Branch, error)
	BranchByName(ctx context.Context, articleID domain.ID, name string) (domain.Branch, error)
	CreateBranch(ctx context.Context, b domain.BranchCreate) (domain.Branch, error)
	CreateBranchFromCommit(ctx context.Context, articleID domain.ID, b domain.BranchCreateFromCommit) (domain.Branch, error)
	DeleteBranch(ctx context.Context, id domain.ID) error
	// MergeBranch merges source into target. An empty message lets the server choose one.
	MergeBranch(ctx context.Context, source, target domain.ID, message string) error
}

type CommitService interface {
	ArticleCommits(ctx context.Context, articleID domain.ID, page domain.Page) ([]domain.Commit, error)
	BranchCommits(ctx context.Context, branchID domain.ID, page domain.Page) ([]domain.Commit, error)
	Commit(ctx context.Context, id domain.ID) (domain.Commit, error)
	CommitDetailed(ctx context.Context, id domain.ID) (domain.CommitDetailed, error)
	CommitDiff(ctx context.Context, id domain.ID) (domain.CommitDiff, error)
	CommitContent(ctx context.Context, id domain.ID) (domain.CommitContent, error)
	CreateCommit(ctx context.Context, articleID domain.ID, c domain.CommitCreate) (domain.Commit, error)
	RevertCommit(ctx context.Context, id domain.ID) (domain.Commit, error)
}

type CommentService interface {
	// ArticleComments returns the comment trees of an article.
	ArticleComments(ctx context.Context, articleID domain.ID) ([]domain.Comment, error)
	CreateComment(ctx context.Context, c domain.CommentCreate) (domain.Comment, error)
	UpdateComment(ctx context.Context, id domain.ID, u domain.CommentUpdate) (domain.Comment, error)
	DeleteComment(ctx context.Context, id domain.ID) error
}

type UserService interface {
	CurrentUser(ctx context.Context) (domain.User, error)
	Permissions(ctx context.Context) (domain.PermissionSet, error)
	User(ctx context.Context, id domain.ID) (domain.User, error)
	// Users fetches every user in ids, leaving out the ones that could not be fetched.
	Users(ctx context.Context, ids []domain.ID) ([]domain.User, error)
	SearchUsers(ctx context.Context, s domain.UserSearch) ([]domain.User, error)
	CreateUser(ctx context.Context, u domain.UserWrite) (domain.User, error)
	UpdateUser(ctx context.Context, id domain.ID, u domain.UserWrite) (domain.User, error)
	DeleteUser(ctx context.Context, id domain.ID) error
}

type ProfileService interface {
	// MyProfile returns the profile of the current user, or ErrNoProfile if there is none yet.
	MyProfile(ctx context.Context) (domain.Profile, error)
	UserProfile(ctx context.Context, userID domain.ID) (domain.Profile, error)
	ProfileVersions(ctx context.Context, page domain.Page) ([]domain.ProfileVersion, error)
	UserProfileVersions(ctx context.Context, userID domain.ID, page domain.Page) ([]domain.ProfileVersion, error)
	CreateProfile(ctx context.Context, p domain.ProfileData) (domain.Profile, error)
	UpdateProfile(ctx context.Context, p domain.ProfileData) (domain.Profile, error)
	DeleteProfile(ctx context.Context) error
}

type MediaService interface {
	UploadMedia(ctx context.Context, filename string, content io.Reader) (domain.Media, error)
}

type AuthService interface {
	// HasToken reports whether an access token is stored.
	HasToken(ctx context.Context) (bool, error)
	// Login exchanges credentials for an access token, which is stored for later requests.
	Login(ctx context.Context, c domain.Credentials) (domain.LoginResponse, error)
	Register(ctx context.Context, r domain.Registration) (domain.LoginResponse, error)
	// Logout ends the session on the server, then removes the stored token and every cached query about
	// the current user, even if the server could not be reached.
	Logout(ctx context.Context) error
	// SessionExpired forgets every cached query about the current user. It is called once the API has
	// rejected the access token, which the client already removed.
	SessionExpired()
}
