package domain

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

const DefaultArticleType = "article"

type Article struct {
	ID              ID        `json:"id"`
	Title           string    `json:"title"`
	Status          string    `json:"status"`
	ArticleType     string    `json:"article_type"`
	CurrentCommitID *ID       `json:"current_commit_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ArticleFull is an article together with its content at the head of the requested branch.
type ArticleFull struct {
	Article
	Content string `json:"content"`
}

type ArticlesQuery struct {
	Skip   int
	Limit  int
	Status string
	Search string
}

type ArticleCreate struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	Status      string `json:"status"`
	ArticleType string `json:"article_type"`
	Message     string `json:"message"`
}

// ArticleEdit is an edit of an article's content, recorded as a commit on the named branch.
type ArticleEdit struct {
	Message string `json:"message"`
	Content string `json:"content"`
}

type Branch struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ArticleID    ID        `json:"article_id"`
	HeadCommitID ID        `json:"head_commit_id"`
	IsProtected  bool      `json:"is_protected"`
	CreatorID    ID        `json:"creator_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type BranchCreate struct {
	ArticleID    ID     `json:"article_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	HeadCommitID ID     `json:"head_commit_id"`
}

type BranchCreateFromCommit struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	SourceCommitID ID     `json:"source_commit_id"`
}

type MergeRequest struct {
	Message string `json:"message,omitempty"`
}

type Commit struct {
	ID          ID        `json:"id"`
	Message     string    `json:"message"`
	ContentDiff string    `json:"content_diff"`
	IsMerge     bool      `json:"is_merge"`
	ArticleID   ID        `json:"article_id"`
	AuthorID    ID        `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type CommitDetailed struct {
	Commit
	Content       string `json:"content"`
	AuthorName    string `json:"author_name"`
	BranchName    string `json:"branch_name"`
	ParentCommits []ID   `json:"parent_commits,omitempty"`
}

type CommitCreate struct {
	Message  string `json:"message"`
	Content  string `json:"content"`
	BranchID *ID    `json:"branch_id,omitempty"`
}

type CommitDiff struct {
	CommitID       ID     `json:"commit_id"`
	ParentCommitID *ID    `json:"parent_commit_id,omitempty"`
	Diff           string `json:"diff"`
	AddedLines     int    `json:"added_lines"`
	RemovedLines   int    `json:"removed_lines"`
}

type CommitContent struct {
	CommitID ID     `json:"commit_id"`
	Content  string `json:"content"`
}
