// Package datastore defines the document storage used for profiles and tweets.
package datastore

import (
	"context"
	"errors"

	"chirp-backend/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned when creating a document whose id is taken.
	ErrConflict = errors.New("document already exists")
)

// ProfileStore holds user profile documents keyed by wallet address.
type ProfileStore interface {
	// CreateProfileIfNotExists is a no-op when a profile with the same id exists.
	CreateProfileIfNotExists(ctx context.Context, profile models.UserProfile) error
	PatchProfile(ctx context.Context, id string, patch models.ProfilePatch) error
	// AppendTweetRef adds a reference at the end of the profile's tweet list,
	// creating the list if it is missing.
	AppendTweetRef(ctx context.Context, profileID, tweetID string) error
	ProfileDetail(ctx context.Context, id string) (*models.ProfileDetail, error)
}

// TweetStore holds tweet documents.
type TweetStore interface {
	CreateTweet(ctx context.Context, tweet models.Tweet) error
	// GlobalFeed returns up to limit tweets across all authors, newest first.
	GlobalFeed(ctx context.Context, limit int) ([]models.FeedTweet, error)
	// AuthorFeed returns every tweet referencing author, newest first.
	AuthorFeed(ctx context.Context, author string) ([]models.FeedTweet, error)
}

// Store is the full document store.
type Store interface {
	ProfileStore
	TweetStore
}
