package domain

import (
	"slices"
	"time"
)

// MaxReplyDepth is the deepest level at which a comment can still be replied to. Deeper replies are still
// displayed, but offer no reply form.
const MaxReplyDepth = 3

type Comment struct {
	ID        ID        `json:"id"`
	ArticleID ID        `json:"article_id"`
	UserID    ID        `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ReplyToID *ID       `json:"reply_to_id,omitempty"`
	Replies   []Comment `json:"replies,omitempty"`
}

type CommentCreate struct {
	ArticleID ID     `json:"article_id"`
	Content   string `json:"content"`
	ReplyToID *ID    `json:"reply_to_id,omitempty"`
}

type CommentUpdate struct {
	Content string `json:"content"`
}

// ThreadEntry is a comment positioned in a flattened thread.
type ThreadEntry struct {
	Comment
	Depth    int
	CanReply bool
}

// BuildTree links a flat list of comments into trees by their ReplyToID, sorting roots and replies by
// creation time. Replies whose parent is absent are dropped.
func BuildTree(flat []Comment) []Comment {
	children := make(map[ID][]Comment, len(flat))
	known := make(map[ID]bool, len(flat))
	for _, c := range flat {
		known[c.ID] = true
	}

	var roots []Comment
	for _, c := range flat {
		c.Replies = nil
		if c.ReplyToID == nil {
			roots = append(roots, c)
			continue
		}
		if known[*c.ReplyToID] {
			children[*c.ReplyToID] = append(children[*c.ReplyToID], c)
		}
	}

	var attach func(c Comment) Comment
	attach = func(c Comment) Comment {
		replies := children[c.ID]
		sortByCreation(replies)
		for i := range replies {
			replies[i] = attach(replies[i])
		}
		c.Replies = replies
		return c
	}

	sortByCreation(roots)
	for i := range roots {
		roots[i] = attach(roots[i])
	}
	return roots
}

// Flatten walks the comment trees depth first.
func Flatten(tree []Comment) []ThreadEntry {
	var entries []ThreadEntry
	var walk func(cs []Comment, depth int)
	walk = func(cs []Comment, depth int) {
		for _, c := range cs {
			replies := c.Replies
			c.Replies = nil
			entries = append(entries, ThreadEntry{
				Comment:  c,
				Depth:    depth,
				CanReply: depth < MaxReplyDepth,
			})
			walk(replies, depth+1)
		}
	}
	walk(tree, 0)
	return entries
}

// CountComments counts every comment in the trees, replies included.
func CountComments(tree []Comment) int {
	n := 0
	for _, c := range tree {
		n += 1 + CountComments(c.Replies)
	}
	return n
}

func sortByCreation(cs []Comment) {
	slices.SortStableFunc(cs, func(a, b Comment) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
