package handlers

import (
	"context"
	"net/http"

	"github.com/ChimmyWorld/AI-sub000/database"
	"github.com/ChimmyWorld/AI-sub000/models"
	"github.com/ChimmyWorld/AI-sub000/realtime"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var hub *realtime.Hub

// SetHub wires the websocket hub used for live notification delivery.
func SetHub(h *realtime.Hub) {
	hub = h
}

// User-supplied titles, bodies and comments pass through this policy
// before they are stored.
var ugcPolicy = bluemonday.UGCPolicy()

func sanitizeContent(s string) string {
	return ugcPolicy.Sanitize(s)
}

// currentUserID resolves the authenticated caller set by the JWT
// middleware. Writes the error response itself on failure.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userId"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return primitive.NilObjectID, false
	}
	return userID, true
}

// attachAuthors resolves post and comment author references in one batched
// users query per response. Zero author IDs are skipped, those references
// stay unresolved.
func attachAuthors(ctx context.Context, posts []*models.Post) error {
	idSet := make(map[primitive.ObjectID]struct{})
	for _, p := range posts {
		if !p.AuthorID.IsZero() {
			idSet[p.AuthorID] = struct{}{}
		}
		for i := range p.Comments {
			if !p.Comments[i].AuthorID.IsZero() {
				idSet[p.Comments[i].AuthorID] = struct{}{}
			}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cursor, err := database.Users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return err
	}

	byID := make(map[primitive.ObjectID]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	for _, p := range posts {
		p.Author = byID[p.AuthorID]
		for i := range p.Comments {
			p.Comments[i].Author = byID[p.Comments[i].AuthorID]
		}
	}
	return nil
}

// preparePosts populates authors and derived fields for a response.
func preparePosts(ctx context.Context, posts []*models.Post) error {
	if err := attachAuthors(ctx, posts); err != nil {
		return err
	}
	for _, p := range posts {
		p.Normalize()
	}
	return nil
}

func preparePost(ctx context.Context, post *models.Post) error {
	return preparePosts(ctx, []*models.Post{post})
}
