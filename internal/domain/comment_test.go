package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func TestBuildTree(t *testing.T) {
	base := time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC)
	root1, root2 := uuid.New(), uuid.New()
	reply, nested, orphanParent := uuid.New(), uuid.New(), uuid.New()

	flat := []Comment{
		{ID: nested, ReplyToID: &reply, Content: "nested", CreatedAt: base.Add(4 * time.Minute)},
		{ID: root2, Content: "second", CreatedAt: base.Add(2 * time.Minute)},
		{ID: reply, ReplyToID: &root1, Content: "reply", CreatedAt: base.Add(3 * time.Minute)},
		{ID: root1, Content: "first", CreatedAt: base},
		{ID: uuid.New(), ReplyToID: &orphanParent, Content: "orphan", CreatedAt: base},
	}

	tree := BuildTree(flat)

	if n := CountComments(tree); n != 4 {
		t.Errorf("expected 4 comments in tree, got %d", n)
	}

	got := []string{}
	for _, e := range Flatten(tree) {
		got = append(got, e.Content)
	}
	expected := []string{"first", "reply", "nested", "second"}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Error(diff)
	}
}

func TestFlattenReplyDepth(t *testing.T) {
	// A chain five levels deep.
	var chain Comment
	for i := 5; i >= 0; i-- {
		c := Comment{ID: uuid.New()}
		if i < 5 {
			c.Replies = []Comment{chain}
		}
		chain = c
	}

	entries := Flatten([]Comment{chain})
	if len(entries) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if expected := e.Depth < MaxReplyDepth; e.CanReply != expected {
			t.Errorf("depth %d: expected CanReply=%t", e.Depth, expected)
		}
		if e.Replies != nil {
			t.Errorf("depth %d: flattened entry still holds replies", e.Depth)
		}
	}
}
