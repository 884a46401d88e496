package apitest

import (
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sidereusnuntius/wikifront/internal/domain"
)

func (s *Server) mountAuth(r chi.Router) {
	s.handle(r, http.MethodPost, "/auth/login", s.login)
	s.handle(r, http.MethodPost, "/auth/register", s.register)
	s.handle(r, http.MethodPost, "/auth/logout", s.logout)
}

func (s *Server) mountUsers(r chi.Router) {
	s.handle(r, http.MethodGet, "/users/me", s.me)
	s.handle(r, http.MethodGet, "/users/me/permissions", s.myPermissions)
	s.handle(r, http.MethodGet, "/users/me/profile", s.myProfile)
	s.handle(r, http.MethodPost, "/users/me/profile", s.writeProfile(true))
	s.handle(r, http.MethodPut, "/users/me/profile", s.writeProfile(false))
	s.handle(r, http.MethodDelete, "/users/me/profile", s.deleteProfile)
	s.handle(r, http.MethodGet, "/users/me/profile/versions", s.myProfileVersions)
	s.handle(r, http.MethodGet, "/users/search", s.searchUsers)
	s.handle(r, http.MethodPost, "/users", s.createUser)
	s.handle(r, http.MethodGet, "/users/{id}", s.getUser)
	s.handle(r, http.MethodPut, "/users/{id}", s.updateUser)
	s.handle(r, http.MethodDelete, "/users/{id}", s.deleteUser)
	s.handle(r, http.MethodGet, "/users/{id}/profile", s.userProfile)
	s.handle(r, http.MethodGet, "/users/{id}/profile/versions", s.userProfileVersions)
}

func (s *Server) mountComments(r chi.Router) {
	s.handle(r, http.MethodGet, "/comments/article/{id}", s.articleComments)
	s.handle(r, http.MethodPost, "/comments", s.createComment)
	s.handle(r, http.MethodPut, "/comments/{id}", s.updateComment)
	s.handle(r, http.MethodDelete, "/comments/{id}", s.deleteComment)
}

// SeedComment adds a comment directly, as a reply if replyTo is not nil.
func (s *Server) SeedComment(articleID, author domain.ID, content string, replyTo *domain.ID) domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := domain.Comment{
		ID:        uuid.New(),
		ArticleID: articleID,
		UserID:    author,
		Content:   content,
		ReplyToID: replyTo,
		CreatedAt: s.tick(),
	}
	s.comments[c.ID] = c
	return c
}

// HasToken reports whether the token is still accepted.
func (s *Server) HasToken(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) accountNamed(username string) *account {
	for _, a := range s.accounts {
		if strings.EqualFold(a.user.Username, username) {
			return a
		}
	}
	return nil
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c domain.Credentials
	if !decode(w, r, &c) {
		return
	}
	a := s.accountNamed(c.Username)
	if a == nil || a.password != c.Password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	now := s.tick()
	a.user.LastLogin = &now
	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: s.issueToken(a.user.ID),
		TokenType:   "bearer",
		Username:    a.user.Username,
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var in domain.Registration
	if !decode(w, r, &in) {
		return
	}
	if in.Username == "" || in.Email == "" || len(in.Password) < 8 {
		writeDetail(w, http.StatusUnprocessableEntity, "username, email and a password of at least 8 characters are required")
		return
	}
	if s.accountNamed(in.Username) != nil {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}

	u := s.addUser(domain.UserWrite{Username: in.Username, Email: in.Email, Password: in.Password, Role: "user"})
	writeJSON(w, http.StatusCreated, domain.LoginResponse{
		AccessToken: s.issueToken(u.ID),
		TokenType:   "bearer",
		Username:    u.Username,
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.authorize(w, r, ""); !ok {
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	delete(s.tokens, token)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.authorize(w, r, ""); ok {
		writeJSON(w, http.StatusOK, a.user)
	}
}

func (s *Server) myPermissions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.authorize(w, r, ""); ok {
		writeJSON(w, http.StatusOK, permissionsOf(a.user.Role))
	}
}

func (a *account) profileOf() domain.Profile {
	p := *a.profile
	u := a.user
	p.User = &u
	return p
}

func (s *Server) myProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authorize(w, r, "")
	if !ok {
		return
	}
	if a.profile == nil {
		writeDetail(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, a.profileOf())
}

// writeProfile creates the caller's profile, or replaces it if create is false. Every write is recorded as a
// profile version.
func (s *Server) writeProfile(create bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		a, ok := s.authorize(w, r, "")
		if !ok {
			return
		}
		var in domain.ProfileData
		if !decode(w, r, &in) {
			return
		}
		switch {
		case create && a.profile != nil:
			writeDetail(w, http.StatusBadRequest, "Profile already exists")
			return
		case !create && a.profile == nil:
			writeDetail(w, http.StatusNotFound, "Profile not found")
			return
		}

		a.profile = &domain.Profile{
			UserID:      a.user.ID,
			Bio:         in.Bio,
			AvatarURL:   in.AvatarURL,
			SocialLinks: in.SocialLinks,
		}
		a.versions = append(a.versions, domain.ProfileVersion{
			ID:     uuid.New(),
			UserID: a.user.ID,
			Content: map[string]any{
				"bio":        in.Bio,
				"avatar_url": in.AvatarURL,
			},
			CreatedAt: s.tick(),
		})

		status := http.StatusOK
		if create {
			status = http.StatusCreated
		}
		writeJSON(w, status, a.profileOf())
	}
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.authorize(w, r, "")
	if !ok {
		return
	}
	if a.profile == nil {
		writeDetail(w, http.StatusNotFound, "Profile not found")
		return
	}
	a.profile = nil
	w.WriteHeader(http.StatusNoContent)
}

func newestVersions(r *http.Request, versions []domain.ProfileVersion) []domain.ProfileVersion {
	versions = slices.Clone(versions)
	slices.Reverse(versions)
	return paginate(r, versions, 10)
}

func (s *Server) myProfileVersions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.authorize(w, r, ""); ok {
		writeJSON(w, http.StatusOK, newestVersions(r, a.versions))
	}
}

// accountOf looks up the account in the path, answering 404 if there is none. Callers hold mu.
func (s *Server) accountOf(w http.ResponseWriter, r *http.Request) (*account, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	a, ok := s.accounts[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found")
	}
	return a, ok
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accountOf(w, r); ok {
		writeJSON(w, http.StatusOK, a.user)
	}
}

func (s *Server) userProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accountOf(w, r)
	if !ok {
		return
	}
	if a.profile == nil {
		writeDetail(w, http.StatusNotFound, "Profile not found")
		return
	}
	writeJSON(w, http.StatusOK, a.profileOf())
}

func (s *Server) userProfileVersions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accountOf(w, r); ok {
		writeJSON(w, http.StatusOK, newestVersions(r, a.versions))
	}
}

func (s *Server) searchUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorize(w, r, domain.CanModerate); !ok {
		return
	}

	q := strings.ToLower(r.URL.Query().Get("q"))
	role := r.URL.Query().Get("role")
	users := []domain.User{}
	for _, a := range s.accounts {
		if role != "" && a.user.Role != role {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.user.Username), q) &&
			!strings.Contains(strings.ToLower(a.user.Email), q) {
			continue
		}
		users = append(users, a.user)
	}
	slices.SortFunc(users, func(a, b domain.User) int {
		return strings.Compare(a.Username, b.Username)
	})
	writeJSON(w, http.StatusOK, paginate(r, users, 10))
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorize(w, r, domain.CanDelete); !ok {
		return
	}
	var in domain.UserWrite
	if !decode(w, r, &in) {
		return
	}
	if s.accountNamed(in.Username) != nil {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	if in.Role == "" {
		in.Role = "user"
	}
	writeJSON(w, http.StatusCreated, s.addUser(in))
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorize(w, r, domain.CanDelete); !ok {
		return
	}
	a, ok := s.accountOf(w, r)
	if !ok {
		return
	}
	var in domain.UserWrite
	if !decode(w, r, &in) {
		return
	}

	if in.Username != "" {
		a.user.Username = in.Username
	}
	if in.Email != "" {
		a.user.Email = in.Email
	}
	if in.FullName != "" {
		a.user.FullName = in.FullName
	}
	if in.Role != "" {
		a.user.Role = in.Role
	}
	if in.Password != "" {
		a.password = in.Password
	}
	writeJSON(w, http.StatusOK, a.user)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorize(w, r, domain.CanDelete); !ok {
		return
	}
	a, ok := s.accountOf(w, r)
	if !ok {
		return
	}
	delete(s.accounts, a.user.ID)
	for token, id := range s.tokens {
		if id == a.user.ID {
			delete(s.tokens, token)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) articleComments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var flat []domain.Comment
	for _, c := range s.comments {
		if c.ArticleID == id {
			flat = append(flat, c)
		}
	}
	tree := domain.BuildTree(flat)
	if tree == nil {
		tree = []domain.Comment{}
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caller, ok := s.authorize(w, r, "")
	if !ok {
		return
	}
	var in domain.CommentCreate
	if !decode(w, r, &in) {
		return
	}
	if _, ok = s.articles[in.ArticleID]; !ok {
		writeDetail(w, http.StatusNotFound, "Article not found")
		return
	}
	if in.ReplyToID != nil {
		parent, ok := s.comments[*in.ReplyToID]
		if !ok || parent.ArticleID != in.ArticleID {
			writeDetail(w, http.StatusBadRequest, "Parent comment not found")
			return
		}
	}

	c := domain.Comment{
		ID:        uuid.New(),
		ArticleID: in.ArticleID,
		UserID:    caller.user.ID,
		Content:   in.Content,
		ReplyToID: in.ReplyToID,
		CreatedAt: s.tick(),
	}
	s.comments[c.ID] = c
	writeJSON(w, http.StatusCreated, c)
}

// commentOf looks up the comment in the path and checks that the caller wrote it or may moderate. Callers
// hold mu.
func (s *Server) commentOf(w http.ResponseWriter, r *http.Request) (domain.Comment, bool) {
	caller, ok := s.authorize(w, r, "")
	if !ok {
		return domain.Comment{}, false
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return domain.Comment{}, false
	}
	c, ok := s.comments[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Comment not found")
		return c, false
	}
	perms := permissionsOf(caller.user.Role)
	if c.UserID != caller.user.ID && !perms.Has(domain.CanModerate) {
		writeDetail(w, http.StatusForbidden, "Not enough permissions")
		return c, false
	}
	return c, true
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commentOf(w, r)
	if !ok {
		return
	}
	var in domain.CommentUpdate
	if !decode(w, r, &in) {
		return
	}
	c.Content = in.Content
	s.comments[c.ID] = c
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commentOf(w, r)
	if !ok {
		return
	}
	delete(s.comments, c.ID)
	for id, reply := range s.comments {
		if reply.ReplyToID != nil && *reply.ReplyToID == c.ID {
			delete(s.comments, id)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.authorize(w, r, domain.CanEdit); !ok {
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer f.Close()
	size, err := io.Copy(io.Discard, f)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.New()
	key := id.String() + "/" + header.Filename
	m := domain.Media{
		ID:               id,
		OriginalFilename: header.Filename,
		StoragePath:      "media/" + key,
		BucketName:       "media",
		ObjectKey:        key,
		MimeType:         header.Header.Get("Content-Type"),
		FileSize:         size,
		PublicURL:        s.URL + "/media/" + key,
		UploadedAt:       s.tick(),
	}
	s.media[m.ID] = m
	writeJSON(w, http.StatusCreated, m)
}
