package handlers

import (
	"context"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ChimmyWorld/AI-sub000/cache"
	"github.com/ChimmyWorld/AI-sub000/database"
	"github.com/ChimmyWorld/AI-sub000/models"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	maxMediaFiles    = 5
	maxMediaFileSize = 10 << 20 // 10MB per file
)

type CreatePostRequest struct {
	Title    string `json:"title" form:"title" binding:"required"`
	Content  string `json:"content" form:"content" binding:"required"`
	Category string `json:"category" form:"category" binding:"required,oneof=free qna ai"`
}

type UpdatePostRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category" binding:"omitempty,oneof=free qna ai"`
}

// uploadMedia pushes each file to Cloudinary sequentially. When an upload
// fails midway the already-uploaded assets are destroyed so nothing is
// left orphaned remotely.
func uploadMedia(ctx context.Context, files []*multipart.FileHeader) ([]models.MediaItem, error) {
	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		return nil, err
	}

	media := make([]models.MediaItem, 0, len(files))
	publicIDs := make([]string, 0, len(files))

	cleanup := func() {
		for _, id := range publicIDs {
			if _, derr := cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: id}); derr != nil {
				log.Printf("[CreatePost] Failed to destroy orphaned upload %s: %v", id, derr)
			}
		}
	}

	for _, header := range files {
		mediaType := models.MediaTypeImage
		if strings.HasPrefix(header.Header.Get("Content-Type"), "video/") {
			mediaType = models.MediaTypeVideo
		}

		file, err := header.Open()
		if err != nil {
			cleanup()
			return nil, err
		}

		publicID := uuid.NewString()
		result, err := cld.Upload.Upload(ctx, file, uploader.UploadParams{
			Folder:       "bullseye/posts",
			PublicID:     publicID,
			ResourceType: "auto",
		})
		file.Close()
		if err != nil {
			cleanup()
			return nil, err
		}

		publicIDs = append(publicIDs, publicID)
		media = append(media, models.MediaItem{Type: mediaType, URL: result.SecureURL})
	}

	return media, nil
}

func CreatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	var files []*multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(maxMediaFileSize); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse form data"})
			return
		}
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		files = c.Request.MultipartForm.File["media"]
		if len(files) > maxMediaFiles {
			c.JSON(http.StatusBadRequest, gin.H{"error": "At most 5 media files per post"})
			return
		}
		for _, f := range files {
			if f.Size > maxMediaFileSize {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Media files must be 10MB or smaller"})
				return
			}
		}
	} else {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	media := []models.MediaItem{}
	if len(files) > 0 {
		uploaded, err := uploadMedia(ctx, files)
		if err != nil {
			log.Printf("[CreatePost] Media upload failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload media"})
			return
		}
		media = uploaded
	}

	post := models.Post{
		ID:           primitive.NewObjectID(),
		Title:        sanitizeContent(req.Title),
		Content:      sanitizeContent(req.Content),
		Category:     req.Category,
		AuthorID:     userID,
		Media:        media,
		Comments:     []models.Comment{},
		Upvotes:      []primitive.ObjectID{},
		Downvotes:    []primitive.ObjectID{},
		CommentCount: 0,
		CreatedAt:    time.Now().Unix(),
	}

	if _, err := database.Posts.InsertOne(ctx, post); err != nil {
		log.Printf("[CreatePost] Insert failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	cache.Del(ctx, cache.FeedKeys(post.Category)...)

	if err := preparePost(ctx, &post); err != nil {
		log.Printf("[CreatePost] Populate failed: %v", err)
	}
	c.JSON(http.StatusCreated, post)
}

// backfillCommentCounts repairs documents created before commentCount was
// maintained transactionally. One UpdateMany instead of a per-post loop.
func backfillCommentCounts(ctx context.Context) {
	_, err := database.Posts.UpdateMany(
		ctx,
		bson.M{"commentCount": bson.M{"$exists": false}},
		mongo.Pipeline{
			{{Key: "$set", Value: bson.D{
				{Key: "commentCount", Value: bson.D{
					{Key: "$size", Value: bson.D{
						{Key: "$ifNull", Value: bson.A{"$comments", bson.A{}}},
					}},
				}},
			}}},
		},
	)
	if err != nil {
		log.Printf("[ListPosts] commentCount backfill failed: %v", err)
	}
}

func findPosts(ctx context.Context, filter bson.M) ([]*models.Post, error) {
	cursor, err := database.Posts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var posts []*models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	if err := preparePosts(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func ListPosts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cached, ok := cache.GetJSON[[]*models.Post](ctx, cache.FeedKey()); ok {
		c.JSON(http.StatusOK, *cached)
		return
	}

	backfillCommentCounts(ctx)

	posts, err := findPosts(ctx, bson.M{})
	if err != nil {
		log.Printf("[ListPosts] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	if err := cache.SetJSON(ctx, cache.FeedKey(), posts, cache.FeedTTL*time.Second); err != nil {
		log.Printf("[ListPosts] Cache set failed: %v", err)
	}
	c.JSON(http.StatusOK, posts)
}

func GetPost(c *gin.Context) {
	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		log.Printf("[GetPost] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	if err := preparePost(ctx, &post); err != nil {
		log.Printf("[GetPost] Populate failed: %v", err)
	}
	c.JSON(http.StatusOK, post)
}

func PostsByCategory(c *gin.Context) {
	category := c.Param("category")
	if category != models.CategoryFree && category != models.CategoryQnA && category != models.CategoryAI {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid category"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cached, ok := cache.GetJSON[[]*models.Post](ctx, cache.CategoryFeedKey(category)); ok {
		c.JSON(http.StatusOK, *cached)
		return
	}

	posts, err := findPosts(ctx, bson.M{"category": category})
	if err != nil {
		log.Printf("[PostsByCategory] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	if err := cache.SetJSON(ctx, cache.CategoryFeedKey(category), posts, cache.FeedTTL*time.Second); err != nil {
		log.Printf("[PostsByCategory] Cache set failed: %v", err)
	}
	c.JSON(http.StatusOK, posts)
}

func SearchPosts(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Search query is required"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pattern := regexp.QuoteMeta(q)
	posts, err := findPosts(ctx, bson.M{"$or": []bson.M{
		{"title": bson.M{"$regex": pattern, "$options": "i"}},
		{"content": bson.M{"$regex": pattern, "$options": "i"}},
	}})
	if err != nil {
		log.Printf("[SearchPosts] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

func PostsByUser(c *gin.Context) {
	authorID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	posts, err := findPosts(ctx, bson.M{"author": authorID})
	if err != nil {
		log.Printf("[PostsByUser] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	c.JSON(http.StatusOK, posts)
}

func UpdatePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	if !post.CanModify(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can update this post"})
		return
	}

	set := bson.M{}
	if req.Title != "" {
		set["title"] = sanitizeContent(req.Title)
	}
	if req.Content != "" {
		set["content"] = sanitizeContent(req.Content)
	}
	if req.Category != "" {
		set["category"] = req.Category
	}
	if len(set) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	oldCategory := post.Category
	err = database.Posts.FindOneAndUpdate(
		ctx,
		bson.M{"_id": postID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&post)
	if err != nil {
		log.Printf("[UpdatePost] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update post"})
		return
	}

	cache.Del(ctx, cache.FeedKeys(oldCategory)...)
	if post.Category != oldCategory {
		cache.Del(ctx, cache.CategoryFeedKey(post.Category))
	}

	if err := preparePost(ctx, &post); err != nil {
		log.Printf("[UpdatePost] Populate failed: %v", err)
	}
	c.JSON(http.StatusOK, post)
}

func DeletePost(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	postID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post ID"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var post models.Post
	err = database.Posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch post"})
		return
	}

	if !post.CanModify(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the author can delete this post"})
		return
	}

	if _, err := database.Posts.DeleteOne(ctx, bson.M{"_id": postID}); err != nil {
		log.Printf("[DeletePost] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	cache.Del(ctx, cache.FeedKeys(post.Category)...)
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}
