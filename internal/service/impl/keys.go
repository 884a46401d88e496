package impl

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
)

const (
	kindArticles        = "articles"
	kindArticle         = "article"
	kindBranches        = "branches"
	kindBranch          = "branch"
	kindCommits         = "commits"
	kindCommit          = "commit"
	kindComments        = "comments"
	kindCurrentUser     = "current-user"
	kindPermissions     = "permissions"
	kindUser            = "user"
	kindUsers           = "users"
	kindProfile         = "profile"
	kindProfileVersions = "profile-versions"
)

const (
	staleArticles = 5 * time.Minute
	staleBranches = 2 * time.Minute
	staleCommits  = 2 * time.Minute
	staleComments = 2 * time.Minute
	staleUser     = 10 * time.Minute
	staleProfile  = 5 * time.Minute
	staleVersions = 2 * time.Minute
)

const (
	DefaultArticlesLimit = 10
	DefaultCommitsLimit  = 50
	DefaultVersionsLimit = 10
	UsersPageSize        = service.UsersPageSize
)

// The profile of the current user is keyed by "me" rather than by an id.
const me = "me"

func articlesKey(q domain.ArticlesQuery) query.Key {
	return query.NewKey(kindArticles, q.Skip, q.Limit, q.Status, q.Search)
}

func articleKey(id domain.ID, branch string) query.Key {
	return query.NewKey(kindArticle, id, branch)
}

func branchesKey(articleID domain.ID, includePrivate bool) query.Key {
	return query.NewKey(kindBranches, articleID, includePrivate)
}

func branchKey(id domain.ID) query.Key {
	return query.NewKey(kindBranch, id)
}

func branchByNameKey(articleID domain.ID, name string) query.Key {
	return query.NewKey(kindBranch, articleID, name)
}

func articleCommitsKey(articleID domain.ID, page domain.Page) query.Key {
	return query.NewKey(kindCommits, "article", articleID, page.Skip, page.Limit)
}

func branchCommitsKey(branchID domain.ID, page domain.Page) query.Key {
	return query.NewKey(kindCommits, "branch", branchID, page.Skip, page.Limit)
}

// commitKey keys a view of a commit: "" for the commit itself, or "detailed", "diff" or "content".
func commitKey(id domain.ID, view string) query.Key {
	if view == "" {
		return query.NewKey(kindCommit, id)
	}
	return query.NewKey(kindCommit, view, id)
}

func commentsKey(articleID domain.ID) query.Key {
	return query.NewKey(kindComments, "article", articleID)
}

func userKey(id domain.ID) query.Key {
	return query.NewKey(kindUser, id)
}

// usersKey keys a batch of users by their sorted ids, so that the order of the request does not matter.
func usersKey(ids []domain.ID) query.Key {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	sorted = slices.Compact(sorted)

	parts := make([]any, len(sorted))
	for i, id := range sorted {
		parts[i] = id
	}
	return query.NewKey(kindUsers, parts...)
}

func searchUsersKey(s domain.UserSearch) query.Key {
	return query.NewKey(kindUsers, s.Page, s.Query, s.Role)
}

// profileKey keys a profile by the user id, or by "me" when owner is nil.
func profileKey(owner *domain.ID) query.Key {
	if owner == nil {
		return query.NewKey(kindProfile, me)
	}
	return query.NewKey(kindProfile, *owner)
}

func profileVersionsKey(owner *domain.ID, page domain.Page) query.Key {
	if owner == nil {
		return query.NewKey(kindProfileVersions, me, page.Skip, page.Limit)
	}
	return query.NewKey(kindProfileVersions, *owner, page.Skip, page.Limit)
}
