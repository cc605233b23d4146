// Package memory is an in-process document store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"chirp-backend/datastore"
	"chirp-backend/models"
)

// Store keeps documents in maps guarded by a mutex. Tweets remember their
// insertion order so equal timestamps come back in a stable order.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]models.UserProfile
	tweets   map[string]models.Tweet
	order    []string
}

var _ datastore.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		profiles: make(map[string]models.UserProfile),
		tweets:   make(map[string]models.Tweet),
	}
}

func (s *Store) CreateProfileIfNotExists(_ context.Context, profile models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; ok {
		return nil
	}
	profile.TweetRefs = append([]string(nil), profile.TweetRefs...)
	s.profiles[profile.ID] = profile
	return nil
}

func (s *Store) PatchProfile(_ context.Context, id string, patch models.ProfilePatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	if !ok {
		return fmt.Errorf("patch profile %s: %w", id, datastore.ErrNotFound)
	}
	if patch.ProfileImage != nil {
		profile.ProfileImage = *patch.ProfileImage
	}
	if patch.IsProfileImageNft != nil {
		profile.IsProfileImageNft = *patch.IsProfileImageNft
	}
	if patch.CoverImage != nil {
		profile.CoverImage = *patch.CoverImage
	}
	s.profiles[id] = profile
	return nil
}

func (s *Store) AppendTweetRef(_ context.Context, profileID, tweetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[profileID]
	if !ok {
		return fmt.Errorf("append tweet to %s: %w", profileID, datastore.ErrNotFound)
	}
	profile.TweetRefs = append(profile.TweetRefs, tweetID)
	s.profiles[profileID] = profile
	return nil
}

func (s *Store) ProfileDetail(_ context.Context, id string) (*models.ProfileDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, datastore.ErrNotFound)
	}
	detail := &models.ProfileDetail{
		Name:              profile.Name,
		ProfileImage:      profile.ProfileImage,
		IsProfileImageNft: profile.IsProfileImageNft,
		CoverImage:        profile.CoverImage,
		WalletAddress:     profile.WalletAddress,
		Tweets:            []models.ProfileTweet{},
	}
	for _, ref := range profile.TweetRefs {
		tweet, ok := s.tweets[ref]
		if !ok {
			continue
		}
		detail.Tweets = append(detail.Tweets, models.ProfileTweet{
			ID:        tweet.ID,
			Tweet:     tweet.Body,
			Timestamp: models.FormatTimestamp(tweet.CreatedAt),
		})
	}
	models.SortProfileTweets(detail.Tweets)
	return detail, nil
}

// Profile returns a copy of the stored profile document.
func (s *Store) Profile(id string) (models.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if ok {
		profile.TweetRefs = append([]string(nil), profile.TweetRefs...)
	}
	return profile, ok
}

// ProfileCount is the number of stored profiles.
func (s *Store) ProfileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.profiles)
}

// TweetCount is the number of stored tweet documents.
func (s *Store) TweetCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tweets)
}

func (s *Store) CreateTweet(_ context.Context, tweet models.Tweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tweets[tweet.ID]; ok {
		return fmt.Errorf("create tweet %s: %w", tweet.ID, datastore.ErrConflict)
	}
	s.tweets[tweet.ID] = tweet
	s.order = append(s.order, tweet.ID)
	return nil
}

func (s *Store) GlobalFeed(_ context.Context, limit int) ([]models.FeedTweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed := s.joined(func(models.Tweet) bool { return true })
	if limit > 0 && len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

func (s *Store) AuthorFeed(_ context.Context, author string) ([]models.FeedTweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joined(func(t models.Tweet) bool { return t.AuthorRef == author }), nil
}

// joined must be called with the lock held.
func (s *Store) joined(keep func(models.Tweet) bool) []models.FeedTweet {
	feed := make([]models.FeedTweet, 0, len(s.order))
	for _, id := range s.order {
		tweet := s.tweets[id]
		if !keep(tweet) {
			continue
		}
		item := models.FeedTweet{
			ID:        tweet.ID,
			Tweet:     tweet.Body,
			Timestamp: models.FormatTimestamp(tweet.CreatedAt),
		}
		if author, ok := s.profiles[tweet.AuthorRef]; ok {
			item.Author = models.Author{
				Name:              author.Name,
				WalletAddress:     author.WalletAddress,
				ProfileImage:      author.ProfileImage,
				IsProfileImageNft: author.IsProfileImageNft,
			}
		}
		feed = append(feed, item)
	}
	models.SortNewestFirst(feed)
	return feed
}
