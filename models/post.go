package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Post categories. The category field is validated at the request layer
// with a oneof binding tag, these constants exist for query code.
const (
	CategoryFree = "free"
	CategoryQnA  = "qna"
	CategoryAI   = "ai"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
)

type MediaItem struct {
	Type string `bson:"type" json:"type"` // image, video
	URL  string `bson:"url" json:"url"`
}

// Comment lives embedded inside its post document. There is no separate
// comments collection, the embedded array is the single source of truth
// and commentCount is incremented in the same update that pushes here.
type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Content   string             `bson:"content" json:"content"`
	AuthorID  primitive.ObjectID `bson:"author" json:"authorId"`
	Author    *User              `bson:"-" json:"author,omitempty"` // populated in responses only
	CreatedAt int64              `bson:"createdAt" json:"createdAt"`
}

// CanModify reports whether userID authored the comment.
func (cm *Comment) CanModify(userID primitive.ObjectID) bool {
	return cm.AuthorID == userID
}

type Post struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title        string               `bson:"title" json:"title"`
	Content      string               `bson:"content" json:"content"`
	Category     string               `bson:"category" json:"category"`
	AuthorID     primitive.ObjectID   `bson:"author" json:"authorId"`
	Author       *User                `bson:"-" json:"author,omitempty"` // populated in responses only
	Media        []MediaItem          `bson:"media" json:"media"`
	Comments     []Comment            `bson:"comments" json:"comments"`
	Upvotes      []primitive.ObjectID `bson:"upvotes" json:"upvotes"`
	Downvotes    []primitive.ObjectID `bson:"downvotes" json:"downvotes"`
	CommentCount int                  `bson:"commentCount" json:"commentCount"`
	CreatedAt    int64                `bson:"createdAt" json:"createdAt"`
	Votes        int                  `bson:"-" json:"votes"`
}

// VoteCount is the serialized "votes" value: upvotes minus downvotes.
func (p *Post) VoteCount() int {
	return len(p.Upvotes) - len(p.Downvotes)
}

// Normalize fills derived fields and replaces nil slices with empty ones
// so the JSON response always carries arrays.
func (p *Post) Normalize() {
	if p.Media == nil {
		p.Media = []MediaItem{}
	}
	if p.Comments == nil {
		p.Comments = []Comment{}
	}
	if p.Upvotes == nil {
		p.Upvotes = []primitive.ObjectID{}
	}
	if p.Downvotes == nil {
		p.Downvotes = []primitive.ObjectID{}
	}
	p.Votes = p.VoteCount()
}

// CanModify reports whether userID authored the post. Update and delete
// are author-only operations.
func (p *Post) CanModify(userID primitive.ObjectID) bool {
	return p.AuthorID == userID
}

// NotifyOnComment reports whether a comment by commenter should raise a
// notification. Authors commenting on their own post are not notified.
func (p *Post) NotifyOnComment(commenter primitive.ObjectID) bool {
	return p.AuthorID != commenter
}

// FindComment returns the embedded comment with the given ID, or nil.
func (p *Post) FindComment(id primitive.ObjectID) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return &p.Comments[i]
		}
	}
	return nil
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// ApplyVote returns the upvote and downvote sets after voter casts voteType.
// Re-casting the same direction toggles the vote off, casting the opposite
// direction switches it. The voter ends up in at most one of the two sets.
// The aggregation pipeline built in the vote handler evaluates exactly this
// transition inside MongoDB; keep the two in sync.
func ApplyVote(upvotes, downvotes []primitive.ObjectID, voter primitive.ObjectID, voteType string) ([]primitive.ObjectID, []primitive.ObjectID) {
	hadUp := containsID(upvotes, voter)
	hadDown := containsID(downvotes, voter)

	up := removeID(upvotes, voter)
	down := removeID(downvotes, voter)

	switch voteType {
	case "up":
		if !hadUp {
			up = append(up, voter)
		}
	case "down":
		if !hadDown {
			down = append(down, voter)
		}
	}
	return up, down
}
