package handlers

import (
	"context"
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

type VoteRequest struct {
	VoteType string `json:"voteType" binding:"required,oneof=up down"`
}

// voteUpdatePipeline builds the aggregation-pipeline update that applies
// one vote inside MongoDB: membership in the chosen array toggles off,
// membership in the opposite array is cleared. The whole transition is a
// single document update, so concurrent voters never overwrite each other.
// models.ApplyVote is the in-process mirror of these semantics.
func voteUpdatePipeline(userID primitive.ObjectID, voteType string) mongo.Pipeline {
	chosen, opposite := "$upvotes", "$downvotes"
	chosenField, oppositeField := "upvotes", "downvotes"
	if voteType == "down" {
		chosen, opposite = "$downvotes", "$upvotes"
		chosenField, oppositeField = "downvotes", "upvotes"
	}

	voter := bson.A{userID}
	chosenSafe := bson.M{"$ifNull": bson.A{chosen, bson.A{}}}
	oppositeSafe := bson.M{"$ifNull": bson.A{opposite, bson.A{}}}

	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			chosenField: bson.M{"$cond": bson.A{
				bson.M{"$in": bson.A{userID, chosenSafe}},
				bson.M{"$setDifference": bson.A{chosenSafe, voter}},
				bson.M{"$concatArrays": bson.A{chosenSafe, voter}},
			}},
			oppositeField: bson.M{"$setDifference": bson.A{oppositeSafe, voter}},
		}}},
	}
}

func VotePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Returning the pre-image lets us compute the karma delta for the
	// author without a second read.
	var post models.Post
	err = database.Posts.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		voteUpdatePipeline(userID, req.VoteType),
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("[VotePost] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
		return
	}

	before := post.VoteCount()
	post.Upvotes, post.Downvotes = models.ApplyVote(post.Upvotes, post.Downvotes, userID, req.VoteType)
	delta := post.VoteCount() - before

	if delta != 0 && post.AuthorID != userID {
		adjustKarma(post.AuthorID, delta)
	}

	cache.Del(ctx, cache.FeedKeys(post.Category)...)

	if err := preparePost(ctx, &post); err != nil {
		log.Printf("[VotePost] Populate failed: %v", err)
	}
	c.JSON(http.StatusOK, post)
}
