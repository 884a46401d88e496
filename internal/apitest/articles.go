package apitest

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sidereusnuntius/wikifront/internal/diff"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

func (s *Server) mountArticles(r chi.Router) {
	s.handle(r, http.MethodGet, "/articles", s.listArticles)
	s.handle(r, http.MethodPost, "/articles", s.createArticle)
	s.handle(r, http.MethodGet, "/articles/{id}", s.getArticle)
	s.handle(r, http.MethodDelete, "/articles/{id}", s.deleteArticle)
}

func (s *Server) mountBranches(r chi.Router) {
	s.handle(r, http.MethodPost, "/branches", s.createBranch)
	s.handle(r, http.MethodGet, "/branches/article/{id}", s.listBranches)
	s.handle(r, http.MethodGet, "/branches/article/{id}/by-name/{name}", s.branchByName)
	s.handle(r, http.MethodPost, "/branches/article/{id}/from-commit", s.branchFromCommit)
	s.handle(r, http.MethodGet, "/branches/{id}", s.getBranch)
	s.handle(r, http.MethodDelete, "/branches/{id}", s.deleteBranch)
	s.handle(r, http.MethodPost, "/branches/{source}/merge/{target}", s.mergeBranch)
}

func (s *Server) mountCommits(r chi.Router) {
	s.handle(r, http.MethodGet, "/commits/article/{id}", s.articleCommits)
	s.handle(r, http.MethodPost, "/commits/article/{id}", s.createCommit)
	s.handle(r, http.MethodGet, "/commits/branch/{id}", s.branchCommits)
	s.handle(r, http.MethodGet, "/commits/{id}", s.getCommit)
	s.handle(r, http.MethodGet, "/commits/{id}/detailed", s.commitDetailed)
	s.handle(r, http.MethodGet, "/commits/{id}/diff", s.commitDiff)
	s.handle(r, http.MethodGet, "/commits/{id}/content", s.commitContent)
	s.handle(r, http.MethodPost, "/commits/{id}/revert", s.revertCommit)
}

// SeedArticle creates an article with its main branch and initial commit, authored by author.
func (s *Server) SeedArticle(title, content string, author domain.ID) (domain.Article, domain.Branch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, b := s.newArticle(domain.ArticleCreate{
		Title:       title,
		Content:     content,
		Status:      domain.StatusPublished,
		ArticleType: domain.DefaultArticleType,
		Message:     "Initial commit",
	}, author)
	return *a, *b
}

// Branch returns the current state of a branch, bypassing the API.
func (s *Server) Branch(id domain.ID) (domain.Branch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.branches[id]
	if !ok {
		return domain.Branch{}, false
	}
	return *b, true
}

// CommitParents returns the parents of a commit, bypassing the API.
func (s *Server) CommitParents(id domain.ID) []domain.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.commits[id]; ok {
		return slices.Clone(c.parents)
	}
	return nil
}

func (s *Server) newArticle(in domain.ArticleCreate, author domain.ID) (*domain.Article, *domain.Branch) {
	now := s.tick()
	a := &domain.Article{
		ID:          uuid.New(),
		Title:       in.Title,
		Status:      in.Status,
		ArticleType: in.ArticleType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.articles[a.ID] = a

	b := &domain.Branch{
		ID:          uuid.New(),
		Name:        domain.MainBranch,
		Description: "Main branch",
		ArticleID:   a.ID,
		IsProtected: true,
		CreatorID:   author,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.branches[b.ID] = b

	c := s.newCommit(a.ID, b, in.Message, in.Content, author, nil, false)
	a.CurrentCommitID = &c.ID
	return a, b
}

// newCommit records a commit on branch b and moves its head. Callers hold mu.
func (s *Server) newCommit(articleID domain.ID, b *domain.Branch, message, content string, author domain.ID, parents []domain.ID, merge bool) *commit {
	if parents == nil && b.HeadCommitID != uuid.Nil {
		parents = []domain.ID{b.HeadCommitID}
	}
	before := ""
	if len(parents) > 0 {
		before = s.commits[parents[0]].content
	}

	now := s.tick()
	c := &commit{
		Commit: domain.Commit{
			ID:          uuid.New(),
			Message:     message,
			ContentDiff: diff.FindPatches(before, content),
			IsMerge:     merge,
			ArticleID:   articleID,
			AuthorID:    author,
			CreatedAt:   now,
		},
		content:  content,
		parents:  parents,
		branchID: b.ID,
	}
	s.commits[c.ID] = c

	b.HeadCommitID = c.ID
	b.UpdatedAt = now
	if a, ok := s.articles[articleID]; ok {
		a.UpdatedAt = now
		if b.Name == domain.MainBranch {
			a.CurrentCommitID = &c.ID
		}
	}
	return c
}

func (s *Server) mainBranch(articleID domain.ID) *domain.Branch {
	return s.branchNamed(articleID, domain.MainBranch)
}

func (s *Server) branchNamed(articleID domain.ID, name string) *domain.Branch {
	for _, b := range s.branches {
		if b.ArticleID == articleID && b.Name == name {
			return b
		}
	}
	return nil
}

// ancestors returns every commit reachable from head, head included.
func (s *Server) ancestors(head domain.ID) map[domain.ID]bool {
	seen := map[domain.ID]bool{}
	queue := []domain.ID{head}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		c, ok := s.commits[id]
		if !ok {
			continue
		}
		seen[id] = true
		queue = append(queue, c.parents...)
	}
	return seen
}

// mergeBase returns the most recent commit reachable from both heads.
func (s *Server) mergeBase(a, b domain.ID) (*commit, bool) {
	fromA := s.ancestors(a)
	var base *commit
	for id := range s.ancestors(b) {
		if !fromA[id] {
			continue
		}
		if c := s.commits[id]; base == nil || c.CreatedAt.After(base.CreatedAt) {
			base = c
		}
	}
	return base, base != nil
}

func newestFirst(commits []domain.Commit) []domain.Commit {
	slices.SortFunc(commits, func(a, b domain.Commit) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return commits
}

func paginate[T any](r *http.Request, items []T, defaultLimit int) []T {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if skip < 0 || skip >= len(items) {
		return []T{}
	}
	return items[skip:min(skip+limit, len(items))]
}

func (s *Server) listArticles(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := r.URL.Query().Get("status")
	search := strings.ToLower(r.URL.Query().Get("search"))
	articles := []domain.Article{}
	for _, a := range s.articles {
		if status != "" && a.Status != status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(a.Title), search) {
			continue
		}
		articles = append(articles, *a)
	}
	slices.SortFunc(articles, func(a, b domain.Article) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	writeJSON(w, http.StatusOK, paginate(r, articles, 10))
}

func (s *Server) createArticle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authorize(w, r, domain.CanEdit)
	if !ok {
		return
	}
	var in domain.ArticleCreate
	if !decode(w, r, &in) {
		return
	}
	if in.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title is required")
		return
	}
	for _, a := range s.articles {
		if strings.EqualFold(a.Title, in.Title) {
			writeDetail(w, http.StatusBadRequest, "Article with this title already exists")
			return
		}
	}

	a, _ := s.newArticle(in, caller.user.ID)
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, ok := s.articles[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Article not found")
		return
	}

	name := r.URL.Query().Get("branch")
	if name == "" {
		name = domain.MainBranch
	}
	b := s.branchNamed(id, name)
	if b == nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("Branch %q not found", name))
		return
	}

	writeJSON(w, http.StatusOK, domain.ArticleFull{
		Article: *a,
		Content: s.commits[b.HeadCommitID].content,
	})
}

func (s *Server) deleteArticle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authorize(w, r, domain.CanDelete); !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok = s.articles[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Article not found")
		return
	}

	delete(s.articles, id)
	for bid, b := range s.branches {
		if b.ArticleID == id {
			delete(s.branches, bid)
		}
	}
	for cid, c := range s.commits {
		if c.ArticleID == id {
			delete(s.commits, cid)
		}
	}
	for cid, c := range s.comments {
		if c.ArticleID == id {
			delete(s.comments, cid)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listBranches(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok = s.articles[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Article not found")
		return
	}

	branches := []domain.Branch{}
	for _, b := range s.branches {
		if b.ArticleID == id {
			branches = append(branches, *b)
		}
	}
	slices.SortFunc(branches, func(a, b domain.Branch) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	writeJSON(w, http.StatusOK, branches)
}

func (s *Server) branchByName(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b := s.branchNamed(id, chi.URLParam(r, "name"))
	if b == nil {
		writeDetail(w, http.StatusNotFound, "Branch not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) getBranch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, ok := s.branches[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Branch not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) addBranch(w http.ResponseWriter, caller *account, articleID domain.ID, name, description string, head domain.ID) {
	if _, ok := s.articles[articleID]; !ok {
		writeDetail(w, http.StatusNotFound, "Article not found")
		return
	}
	c, ok := s.commits[head]
	if !ok || c.ArticleID != articleID {
		writeDetail(w, http.StatusBadRequest, "Commit does not belong to this article")
		return
	}
	if s.branchNamed(articleID, name) != nil {
		writeDetail(w, http.StatusBadRequest, "Branch with this name already exists")
		return
	}

	now := s.tick()
	b := &domain.Branch{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		ArticleID:    articleID,
		HeadCommitID: head,
		CreatorID:    caller.user.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.branches[b.ID] = b
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) createBranch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authorize(w, r, domain.CanEdit)
	if !ok {
		return
	}
	var in domain.BranchCreate
	if !decode(w, r, &in) {
		return
	}
	s.addBranch(w, caller, in.ArticleID, in.Name, in.Description, in.HeadCommitID)
}

func (s *Server) branchFromCommit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authorize(w, r, domain.CanEdit)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in domain.BranchCreateFromCommit
	if !decode(w, r, &in) {
		return
	}
	s.addBranch(w, caller, id, in.Name, in.Description, in.SourceCommitID)
}

func (s *Server) deleteBranch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authorize(w, r, domain.CanEdit); !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, ok := s.branches[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Branch not found")
		return
	}
	if b.IsProtected || b.Name == domain.MainBranch {
		writeDetail(w, http.StatusBadRequest, "Cannot delete a protected branch")
		return
	}
	delete(s.branches, id)
	w.WriteHeader(http.StatusNoContent)
}

// mergeBranch fast-forwards the target when its head is an ancestor of the source head. Otherwise it records
// a merge commit with the parents [target head, source head], whose content applies the changes of the source
// since the merge base onto the target.
func (s *Server) mergeBranch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authorize(w, r, domain.CanEdit)
	if !ok {
		return
	}
	sourceID, ok := pathID(w, r, "source")
	if !ok {
		return
	}
	targetID, ok := pathID(w, r, "target")
	if !ok {
		return
	}
	source, okSource := s.branches[sourceID]
	target, okTarget := s.branches[targetID]
	if !okSource || !okTarget {
		writeDetail(w, http.StatusNotFound, "Branch not found")
		return
	}
	if source.ArticleID != target.ArticleID || source.ID == target.ID {
		writeDetail(w, http.StatusBadRequest, "Branches cannot be merged")
		return
	}

	var in domain.MergeRequest
	if r.ContentLength != 0 && !decode(w, r, &in) {
		return
	}
	if in.Message == "" {
		in.Message = fmt.Sprintf("Merge branch '%s' into '%s'", source.Name, target.Name)
	}

	fromSource := s.ancestors(source.HeadCommitID)
	switch {
	case fromSource[target.HeadCommitID]:
		// Fast forward.
		target.HeadCommitID = source.HeadCommitID
		target.UpdatedAt = s.tick()
		if target.Name == domain.MainBranch {
			head := source.HeadCommitID
			s.articles[target.ArticleID].CurrentCommitID = &head
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Fast-forward", "head_commit_id": target.HeadCommitID})
		return
	case s.ancestors(target.HeadCommitID)[source.HeadCommitID]:
		writeJSON(w, http.StatusOK, map[string]any{"message": "Already up to date", "head_commit_id": target.HeadCommitID})
		return
	}

	base, _ := s.mergeBase(target.HeadCommitID, source.HeadCommitID)
	baseContent := ""
	if base != nil {
		baseContent = base.content
	}
	merged, clean := diff.Merge(baseContent, s.commits[target.HeadCommitID].content, s.commits[source.HeadCommitID].content)
	if !clean {
		writeDetail(w, http.StatusConflict, "Merge conflict")
		return
	}

	c := s.newCommit(target.ArticleID, target, in.Message, merged, caller.user.ID,
		[]domain.ID{target.HeadCommitID, source.HeadCommitID}, true)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Merged", "head_commit_id": c.ID})
}

func (s *Server) articleCommits(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	commits := []domain.Commit{}
	for _, c := range s.commits {
		if c.ArticleID == id {
			commits = append(commits, c.Commit)
		}
	}
	writeJSON(w, http.StatusOK, paginate(r, newestFirst(commits), 50))
}

func (s *Server) branchCommits(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, ok := s.branches[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Branch not found")
		return
	}
	commits := []domain.Commit{}
	for cid := range s.ancestors(b.HeadCommitID) {
		commits = append(commits, s.commits[cid].Commit)
	}
	writeJSON(w, http.StatusOK, paginate(r, newestFirst(commits), 50))
}

func (s *Server) createCommit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authorize(w, r, domain.CanEdit)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, ok = s.articles[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Article not found")
		return
	}
	var in domain.CommitCreate
	if !decode(w, r, &in) {
		return
	}

	b := s.mainBranch(id)
	if in.BranchID != nil {
		b = s.branches[*in.BranchID]
	}
	if b == nil || b.ArticleID != id {
		writeDetail(w, http.StatusNotFound, "Branch not found")
		return
	}

	c := s.newCommit(id, b, in.Message, in.Content, caller.user.ID, nil, false)
	writeJSON(w, http.StatusCreated, c.Commit)
}

// commitOf looks up the commit in the path, answering 404 if there is none. Callers hold mu.
func (s *Server) commitOf(w http.ResponseWriter, r *http.Request) (*commit, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	c, ok := s.commits[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Commit not found")
	}
	return c, ok
}

func (s *Server) getCommit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.commitOf(w, r); ok {
		writeJSON(w, http.StatusOK, c.Commit)
	}
}

func (s *Server) commitDetailed(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitOf(w, r)
	if !ok {
		return
	}

	d := domain.CommitDetailed{
		Commit:        c.Commit,
		Content:       c.content,
		ParentCommits: slices.Clone(c.parents),
	}
	if a, ok := s.accounts[c.AuthorID]; ok {
		d.AuthorName = a.user.Username
	}
	if b, ok := s.branches[c.branchID]; ok {
		d.BranchName = b.Name
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) commitDiff(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commitOf(w, r)
	if !ok {
		return
	}

	d := domain.CommitDiff{CommitID: c.ID}
	before := ""
	if len(c.parents) > 0 {
		parent := c.parents[0]
		d.ParentCommitID = &parent
		before = s.commits[parent].content
	}
	stats := diff.LineStats(before, c.content)
	d.Diff = diff.FindPatches(before, c.content)
	d.AddedLines, d.RemovedLines = stats.Added, stats.Removed
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) commitContent(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.commitOf(w, r); ok {
		writeJSON(w, http.StatusOK, domain.CommitContent{CommitID: c.ID, Content: c.content})
	}
}

// revertCommit undoes the changes of a commit on the branch it was made on, or on main if that branch is
// gone.
func (s *Server) revertCommit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	caller, ok := s.authorize(w, r, domain.CanEdit)
	if !ok {
		return
	}
	c, ok := s.commitOf(w, r)
	if !ok {
		return
	}
	if len(c.parents) == 0 {
		writeDetail(w, http.StatusBadRequest, "Cannot revert the initial commit")
		return
	}

	b, ok := s.branches[c.branchID]
	if !ok {
		b = s.mainBranch(c.ArticleID)
	}
	parent := s.commits[c.parents[0]]
	content, clean := diff.Merge(c.content, s.commits[b.HeadCommitID].content, parent.content)
	if !clean {
		writeDetail(w, http.StatusConflict, "Revert conflict")
		return
	}

	revert := s.newCommit(c.ArticleID, b, fmt.Sprintf("Revert %q", c.Message), content, caller.user.ID, nil, false)
	writeJSON(w, http.StatusCreated, revert.Commit)
}
