package cache

import "fmt"

const (
	feedKey         = "feed:posts"
	categoryFeedKey = "feed:category:%s" // <category>
)

// FeedTTL bounds staleness of the cached post list between invalidations.
const FeedTTL = 30 // seconds

func FeedKey() string {
	return feedKey
}

func CategoryFeedKey(category string) string {
	return fmt.Sprintf(categoryFeedKey, category)
}

// FeedKeys returns every key invalidated when a post in category changes.
func FeedKeys(category string) []string {
	return []string{feedKey, CategoryFeedKey(category)}
}
