package impl

import (
	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/query"
)

type mutation int

const (
	createArticle mutation = iota
	editArticle
	deleteArticle
	createBranch
	deleteBranch
	mergeBranch
	createCommit
	revertCommit
	createComment
	updateComment
	deleteComment
	createProfile
	updateProfile
	deleteProfile
	writeUser
	login
	logout
)

var mutationNames = [...]string{
	createArticle: "create article",
	editArticle:   "edit article",
	deleteArticle: "delete article",
	createBranch:  "create branch",
	deleteBranch:  "delete branch",
	mergeBranch:   "merge branch",
	createCommit:  "create commit",
	revertCommit:  "revert commit",
	createComment: "create comment",
	updateComment: "update comment",
	deleteComment: "delete comment",
	createProfile: "create profile",
	updateProfile: "update profile",
	deleteProfile: "delete profile",
	writeUser:     "write user",
	login:         "login",
	logout:        "logout",
}

func (m mutation) String() string {
	return mutationNames[m]
}

// vars are the inputs of a completed mutation that decide which queries it affects.
type vars struct {
	ArticleID domain.ID
	Branch    string
	BranchID  *domain.ID
}

// effects lists the cached queries made obsolete by a mutation. Every key is a prefix.
type effects struct {
	Invalidate []query.Key
	Remove     []query.Key
}

// effectsOf is the table of what every mutation does to the cache.
func effectsOf(m mutation, v vars) (e effects) {
	switch m {
	case createArticle, deleteArticle:
		e.Invalidate = []query.Key{query.NewKey(kindArticles)}
	case editArticle:
		e.Invalidate = []query.Key{
			query.NewKey(kindArticle, v.ArticleID),
			query.NewKey(kindCommits, "article", v.ArticleID),
			query.NewKey(kindBranches, v.ArticleID),
		}
		if v.Branch != "" && v.Branch != domain.MainBranch {
			e.Invalidate = append(e.Invalidate, articleKey(v.ArticleID, v.Branch))
		}
		if v.BranchID != nil {
			e.Invalidate = append(e.Invalidate, query.NewKey(kindCommits, "branch", *v.BranchID))
		}
	case createBranch:
		e.Invalidate = []query.Key{query.NewKey(kindBranches, v.ArticleID)}
	case deleteBranch:
		e.Invalidate = []query.Key{query.NewKey(kindBranches)}
	case mergeBranch:
		// The target head moves, so the content of the article changes as well.
		e.Invalidate = []query.Key{
			query.NewKey(kindBranches),
			query.NewKey(kindCommits),
			query.NewKey(kindArticle),
		}
	case createCommit:
		e.Invalidate = []query.Key{
			query.NewKey(kindCommits, "article", v.ArticleID),
			query.NewKey(kindArticle, v.ArticleID),
			query.NewKey(kindBranches, v.ArticleID),
		}
		if v.BranchID != nil {
			e.Invalidate = append(e.Invalidate, query.NewKey(kindCommits, "branch", *v.BranchID))
		}
	case revertCommit:
		e.Invalidate = []query.Key{
			query.NewKey(kindCommits),
			query.NewKey(kindArticle),
			query.NewKey(kindBranches),
		}
	case createComment, updateComment:
		e.Invalidate = []query.Key{commentsKey(v.ArticleID)}
	case deleteComment:
		e.Invalidate = []query.Key{query.NewKey(kindComments)}
	case createProfile:
		e.Invalidate = []query.Key{query.NewKey(kindProfile)}
	case updateProfile:
		e.Invalidate = []query.Key{query.NewKey(kindProfile), query.NewKey(kindProfileVersions)}
	case deleteProfile:
		e.Remove = []query.Key{profileKey(nil)}
		e.Invalidate = []query.Key{query.NewKey(kindProfile), query.NewKey(kindProfileVersions)}
	case writeUser:
		e.Invalidate = []query.Key{query.NewKey(kindUsers), query.NewKey(kindUser)}
	case login:
		e.Invalidate = []query.Key{query.NewKey(kindCurrentUser), query.NewKey(kindPermissions)}
	case logout:
		e.Remove = []query.Key{
			query.NewKey(kindCurrentUser),
			query.NewKey(kindPermissions),
			profileKey(nil),
			query.NewKey(kindProfileVersions, me),
		}
	}
	return
}

// settle applies the effects of a completed mutation to the cache.
func (s *AppService) settle(m mutation, v vars) {
	e := effectsOf(m, v)
	for _, k := range e.Remove {
		s.Cache.Remove(k)
	}
	for _, k := range e.Invalidate {
		s.Cache.Invalidate(k)
	}
	log.Debug().Stringer("mutation", m).Int("invalidated", len(e.Invalidate)).Int("removed", len(e.Remove)).Msg("mutation settled")
}
