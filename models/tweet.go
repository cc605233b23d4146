package models

import (
	"fmt"
	"sort"
	"time"
)

// TimestampLayout matches the millisecond UTC form used for tweet timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Tweet is the stored document. It is immutable once created.
type Tweet struct {
	ID        string    `json:"_id"`
	Body      string    `json:"tweet"`
	CreatedAt time.Time `json:"timestamp"`
	AuthorRef string    `json:"author"`
}

// TweetID derives the document id from creation time and author.
func TweetID(createdAt time.Time, author string) string {
	return fmt.Sprintf("%d_%s", createdAt.UnixMilli(), author)
}

// FormatTimestamp renders t the way tweet documents store it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// FeedTweet is a tweet with its author joined in.
type FeedTweet struct {
	ID        string `json:"_id,omitempty"`
	Tweet     string `json:"tweet" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
	Author    Author `json:"author"`
}

type CreateTweetRequest struct {
	Tweet string `json:"tweet"`
}

// SortNewestFirst orders by timestamp descending. Equal timestamps keep their incoming order.
func SortNewestFirst(tweets []FeedTweet) {
	sort.SliceStable(tweets, func(i, j int) bool {
		return parseTimestamp(tweets[i].Timestamp).After(parseTimestamp(tweets[j].Timestamp))
	})
}

// SortProfileTweets is SortNewestFirst for profile listings.
func SortProfileTweets(tweets []ProfileTweet) {
	sort.SliceStable(tweets, func(i, j int) bool {
		return parseTimestamp(tweets[i].Timestamp).After(parseTimestamp(tweets[j].Timestamp))
	})
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
