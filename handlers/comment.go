package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ChimmyWorld/AI-sub000/cache"
	"github.com/ChimmyWorld/AI-sub000/database"
	"github.com/ChimmyWorld/AI-sub000/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// notifyPostAuthor records a notification for the post author and fans it
// out over websocket and web push. Best-effort: failures are logged, the
// comment itself already persisted.
func notifyPostAuthor(post *models.Post, commenter *models.User) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in comment notification: %v", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		notification := models.Notification{
			ID:        primitive.NewObjectID(),
			UserID:    post.AuthorID,
			Message:   fmt.Sprintf("%s commented on your post \"%s\"", commenter.Username, post.Title),
			PostID:    post.ID,
			Read:      false,
			CreatedAt: time.Now().Unix(),
		}

		if _, err := database.Notifications.InsertOne(ctx, notification); err != nil {
			log.Printf("[AddComment] Notification insert failed for post %s: %v", post.ID.Hex(), err)
			return
		}

		if hub != nil {
			hub.NotifyUser(post.AuthorID.Hex(), "notification", notification)
		}
		sendCommentPush(post.AuthorID, commenter.Username, post.Title)
	}()
}

func AddComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var commenter models.User
	if err := database.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&commenter); err != nil {
		log.Printf("[AddComment] Commenter lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		Content:   sanitizeContent(req.Content),
		AuthorID:  userID,
		CreatedAt: time.Now().Unix(),
	}

	// One update appends the comment and bumps the counter, keeping
	// commentCount equal to len(comments) in every reachable state.
	var post models.Post
	err = database.Posts.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		bson.M{
			"$push": bson.M{"comments": comment},
			"$inc":  bson.M{"commentCount": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("[AddComment] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	if post.NotifyOnComment(userID) {
		notifyPostAuthor(&post, &commenter)
	}

	respondWithPost(ctx, c, http.StatusCreated, &post)
}

// respondWithPost invalidates the feeds the mutated post appears in and
// writes the populated post back. Every comment mutation funnels through
// here so no path can serve a stale cached feed afterwards.
func respondWithPost(ctx context.Context, c *gin.Context, status int, post *models.Post) {
	cache.Del(ctx, cache.FeedKeys(post.Category)...)
	if err := preparePost(ctx, post); err != nil {
		log.Printf("Populate failed for post %s: %v", post.ID.Hex(), err)
	}
	c.JSON(status, post)
}

// loadOwnComment fetches the post and checks that the caller authored the
// comment. Writes the error response and returns nil on any failure.
func loadOwnComment(ctx context.Context, c *gin.Context, postID, commentID, userID primitive.ObjectID) *models.Post {
	var post models.Post
	err := database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return nil
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return nil
	}

	comment := post.FindComment(commentID)
	if comment == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return nil
	}
	if !comment.CanModify(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can modify this comment"})
		return nil
	}
	return &post
}

func UpdateComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}
	commentID, err := primitive.ObjectIDFromHex(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post := loadOwnComment(ctx, c, postID, commentID, userID)
	if post == nil {
		return
	}

	var updated models.Post
	err = database.Posts.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		bson.M{"$set": bson.M{"comments.$[c].content": sanitizeContent(req.Content)}},
		options.FindOneAndUpdate().
			SetArrayFilters(options.ArrayFilters{Filters: []interface{}{
				bson.M{"c._id": commentID, "c.author": userID},
			}}).
			SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("[UpdateComment] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	respondWithPost(ctx, c, http.StatusOK, &updated)
}

func DeleteComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}
	commentID, err := primitive.ObjectIDFromHex(c.Param("commentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comment ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	post := loadOwnComment(ctx, c, postID, commentID, userID)
	if post == nil {
		return
	}

	// Pull and decrement together so the counter stays in sync. The author
	// filter makes the delete a no-op if the comment was already removed.
	var updated models.Post
	err = database.Posts.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID, "comments": bson.M{"$elemMatch": bson.M{"_id": commentID, "author": userID}}},
		bson.M{
			"$pull": bson.M{"comments": bson.M{"_id": commentID}},
			"$inc":  bson.M{"commentCount": -1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}
	if err != nil {
		log.Printf("[DeleteComment] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	respondWithPost(ctx, c, http.StatusOK, &updated)
}
