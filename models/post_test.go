package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestApplyVoteToggleOff(t *testing.T) {
	voter := primitive.NewObjectID()

	up, down := ApplyVote(nil, nil, voter, "up")
	if !containsID(up, voter) {
		t.Fatal("expected voter in upvotes after first up vote")
	}

	up, down = ApplyVote(up, down, voter, "up")
	if containsID(up, voter) {
		t.Error("expected up vote to toggle off on repeat")
	}
	if len(up) != 0 || len(down) != 0 {
		t.Errorf("expected neutral state, got up=%d down=%d", len(up), len(down))
	}
}

func TestApplyVoteSwitch(t *testing.T) {
	voter := primitive.NewObjectID()

	up, down := ApplyVote(nil, nil, voter, "up")
	up, down = ApplyVote(up, down, voter, "down")

	if containsID(up, voter) {
		t.Error("expected voter removed from upvotes after switching")
	}
	if !containsID(down, voter) {
		t.Error("expected voter in downvotes after switching")
	}
}

func TestApplyVoteNeverInBothSets(t *testing.T) {
	voter := primitive.NewObjectID()
	other := primitive.NewObjectID()

	sequences := [][]string{
		{"up", "up", "down"},
		{"down", "up", "up", "down"},
		{"up", "down", "up", "down", "down"},
	}

	for _, seq := range sequences {
		up := []primitive.ObjectID{other}
		down := []primitive.ObjectID{}
		for _, vote := range seq {
			up, down = ApplyVote(up, down, voter, vote)
			if containsID(up, voter) && containsID(down, voter) {
				t.Fatalf("voter in both sets after sequence %v", seq)
			}
		}
		if !containsID(up, other) {
			t.Errorf("other user's vote lost during sequence %v", seq)
		}
	}
}

func TestApplyVoteConcurrentVotersBothPersist(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	// Both voters transition from the same initial state; applying their
	// transitions in either order keeps both votes.
	up, down := ApplyVote(nil, nil, a, "up")
	up, down = ApplyVote(up, down, b, "up")

	if !containsID(up, a) || !containsID(up, b) {
		t.Error("expected both voters' upvotes to persist")
	}
	if len(down) != 0 {
		t.Errorf("expected no downvotes, got %d", len(down))
	}
}

func TestVoteCount(t *testing.T) {
	post := Post{
		Upvotes:   []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()},
		Downvotes: []primitive.ObjectID{primitive.NewObjectID()},
	}
	if got := post.VoteCount(); got != 2 {
		t.Errorf("VoteCount = %d, want 2", got)
	}
}

func TestNormalize(t *testing.T) {
	post := Post{
		Upvotes: []primitive.ObjectID{primitive.NewObjectID()},
	}
	post.Normalize()

	if post.Media == nil || post.Comments == nil || post.Downvotes == nil {
		t.Error("expected nil slices replaced with empty ones")
	}
	if post.Votes != 1 {
		t.Errorf("Votes = %d, want 1", post.Votes)
	}
}

func TestCanModifyIsAuthorOnly(t *testing.T) {
	author := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	post := Post{AuthorID: author}
	if !post.CanModify(author) {
		t.Error("author should be allowed to modify the post")
	}
	if post.CanModify(stranger) {
		t.Error("non-author must not modify the post")
	}

	comment := Comment{AuthorID: author}
	if !comment.CanModify(author) {
		t.Error("author should be allowed to modify the comment")
	}
	if comment.CanModify(stranger) {
		t.Error("non-author must not modify the comment")
	}
}

func TestNotifyOnCommentSkipsAuthor(t *testing.T) {
	author := primitive.NewObjectID()
	commenter := primitive.NewObjectID()

	post := Post{AuthorID: author}
	if !post.NotifyOnComment(commenter) {
		t.Error("a comment by someone else should notify the author")
	}
	if post.NotifyOnComment(author) {
		t.Error("authors must not be notified about their own comments")
	}
}

func TestFindComment(t *testing.T) {
	target := primitive.NewObjectID()
	post := Post{
		Comments: []Comment{
			{ID: primitive.NewObjectID(), Content: "first"},
			{ID: target, Content: "second"},
		},
	}

	if got := post.FindComment(target); got == nil || got.Content != "second" {
		t.Errorf("FindComment returned %v, want the second comment", got)
	}
	if got := post.FindComment(primitive.NewObjectID()); got != nil {
		t.Error("expected nil for unknown comment ID")
	}
}
