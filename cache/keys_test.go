package cache

import "testing"

func TestCategoryFeedKey(t *testing.T) {
	if got := CategoryFeedKey("qna"); got != "feed:category:qna" {
		t.Errorf("CategoryFeedKey = %s", got)
	}
}

func TestFeedKeysCoverBothFeeds(t *testing.T) {
	keys := FeedKeys("free")
	if len(keys) != 2 {
		t.Fatalf("FeedKeys returned %d keys, want 2", len(keys))
	}
	if keys[0] != FeedKey() {
		t.Errorf("first key = %s, want %s", keys[0], FeedKey())
	}
	if keys[1] != CategoryFeedKey("free") {
		t.Errorf("second key = %s, want %s", keys[1], CategoryFeedKey("free"))
	}
}
