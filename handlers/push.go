package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ChimmyWorld/AI-sub000/database"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PushSubscription stores one browser push endpoint per user.
type PushSubscription struct {
	ID     primitive.ObjectID   `bson:"_id,omitempty"`
	UserID primitive.ObjectID   `bson:"userId"`
	Sub    webpush.Subscription `bson:"sub"`
}

// Web push is optional: without VAPID keys the subscribe endpoint still
// works but sends are skipped.
func pushConfigured() bool {
	return os.Getenv("VAPID_PUBLIC_KEY") != "" && os.Getenv("VAPID_PRIVATE_KEY") != ""
}

func GetVapidPublicKey(c *gin.Context) {
	publicKey := os.Getenv("VAPID_PUBLIC_KEY")
	if publicKey == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "Push notifications are not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": publicKey})
}

// pushSubUpdate builds the subscription upsert. Only the sub field is
// written; _id is immutable and must never appear in the $set or the
// server rejects every re-subscribe.
func pushSubUpdate(sub webpush.Subscription) bson.M {
	return bson.M{"$set": bson.M{"sub": sub}}
}

func SubscribePush(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh" binding:"required"`
			Auth   string `json:"auth" binding:"required"`
		} `json:"keys" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := webpush.Subscription{
		Endpoint: req.Endpoint,
		Keys: webpush.Keys{
			P256dh: req.Keys.P256dh,
			Auth:   req.Keys.Auth,
		},
	}

	// One subscription per user: replace on re-subscribe. The upsert
	// inserts _id and userId on first contact, afterwards only the
	// endpoint document may change.
	_, err := database.PushSubs.UpdateOne(
		ctx,
		bson.M{"userId": userID},
		pushSubUpdate(sub),
		options.Update().SetUpsert(true),
	)
	if err != nil {
		log.Printf("[SubscribePush] %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved"})
}

// sendPushNotification delivers one push message to a user's subscription,
// dropping expired subscriptions on a 410 response.
func sendPushNotification(userID primitive.ObjectID, title, body string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Panic in push notification: %v", r)
			}
		}()

		if !pushConfigured() {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var sub PushSubscription
		err := database.PushSubs.FindOne(ctx, bson.M{"userId": userID}).Decode(&sub)
		if err == mongo.ErrNoDocuments {
			return
		}
		if err != nil {
			log.Printf("Push subscription lookup failed for user %s: %v", userID.Hex(), err)
			return
		}

		payload, err := json.Marshal(map[string]interface{}{
			"title": title,
			"body":  body,
			"data": map[string]interface{}{
				"url":       "/notifications",
				"timestamp": time.Now().Unix(),
			},
		})
		if err != nil {
			log.Printf("Failed to marshal push payload: %v", err)
			return
		}

		resp, err := webpush.SendNotification(payload, &sub.Sub, &webpush.Options{
			Subscriber:      "mailto:admin@bullseye.community",
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			TTL:             30,
		})
		if err != nil {
			log.Printf("Failed to send push notification to user %s: %v", userID.Hex(), err)
			if resp != nil && resp.StatusCode == http.StatusGone {
				if _, delErr := database.PushSubs.DeleteOne(ctx, bson.M{"userId": userID}); delErr != nil {
					log.Printf("Failed to delete expired subscription: %v", delErr)
				}
			}
			return
		}
		resp.Body.Close()
	}()
}

// sendCommentPush notifies a post author that someone commented.
func sendCommentPush(authorID primitive.ObjectID, commenterName, postTitle string) {
	if commenterName == "" {
		commenterName = "Someone"
	}
	if len(postTitle) > 60 {
		postTitle = postTitle[:60] + "..."
	}
	sendPushNotification(authorID, commenterName+" commented on your post", postTitle)
}
