package sanity

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"chirp-backend/datastore"
	"chirp-backend/models"
)

const authorProjection = `"author": author->{
    name,
    walletAddress,
    profileImage,
    isProfileImageNft
  }`

const (
	globalFeedQuery = `*[_type == "tweets"]{
  _id,
  tweet,
  timestamp,
  ` + authorProjection + `
}|order(timestamp desc)`

	authorFeedQuery = `*[_type == "tweets" && author._ref == $author]{
  _id,
  tweet,
  timestamp,
  ` + authorProjection + `
}|order(timestamp desc)`

	profileDetailQuery = `*[_type == "user" && _id == $id]{
  "tweets": tweets[]->{_id, timestamp, tweet}|order(timestamp desc),
  name,
  profileImage,
  isProfileImageNft,
  coverImage,
  walletAddress
}`
)

type profileDocument struct {
	Type              string `json:"_type"`
	ID                string `json:"_id"`
	Name              string `json:"name"`
	ProfileImage      string `json:"profileImage"`
	IsProfileImageNft bool   `json:"isProfileImageNft"`
	WalletAddress     string `json:"walletAddress"`
}

type tweetDocument struct {
	Type      string    `json:"_type"`
	ID        string    `json:"_id"`
	Tweet     string    `json:"tweet"`
	Timestamp string    `json:"timestamp"`
	Author    Reference `json:"author"`
}

// Store implements datastore.Store on top of a Client.
type Store struct {
	client *Client
	logger *zap.Logger
}

var _ datastore.Store = (*Store)(nil)

// NewStore creates a new Store backed by client.
func NewStore(client *Client) *Store {
	return &Store{client: client, logger: client.logger}
}

// CreateProfileIfNotExists creates the profile document unless it exists.
func (s *Store) CreateProfileIfNotExists(ctx context.Context, profile models.UserProfile) error {
	doc := profileDocument{
		Type:              models.ProfileDocumentType,
		ID:                profile.ID,
		Name:              profile.Name,
		ProfileImage:      profile.ProfileImage,
		IsProfileImageNft: profile.IsProfileImageNft,
		WalletAddress:     profile.WalletAddress,
	}
	if err := s.client.Mutate(ctx, CreateIfNotExists(doc)); err != nil {
		return fmt.Errorf("create profile %s: %w", profile.ID, err)
	}
	return nil
}

// PatchProfile sets the fields present in patch.
func (s *Store) PatchProfile(ctx context.Context, id string, patch models.ProfilePatch) error {
	if patch.Empty() {
		return nil
	}
	set := map[string]any{}
	if patch.ProfileImage != nil {
		set["profileImage"] = *patch.ProfileImage
	}
	if patch.IsProfileImageNft != nil {
		set["isProfileImageNft"] = *patch.IsProfileImageNft
	}
	if patch.CoverImage != nil {
		set["coverImage"] = *patch.CoverImage
	}
	if err := s.client.Mutate(ctx, Patch(PatchOperation{ID: id, Set: set})); err != nil {
		return fmt.Errorf("patch profile %s: %w", id, err)
	}
	return nil
}

// AppendTweetRef appends a tweet reference to the profile.
func (s *Store) AppendTweetRef(ctx context.Context, profileID, tweetID string) error {
	op := PatchOperation{
		ID:           profileID,
		SetIfMissing: map[string]any{"tweets": []any{}},
		Insert: &Insert{
			After: "tweets[-1]",
			Items: []any{NewArrayReference(tweetID)},
		},
	}
	if err := s.client.Mutate(ctx, Patch(op)); err != nil {
		return fmt.Errorf("append tweet %s to %s: %w", tweetID, profileID, err)
	}
	return nil
}

// ProfileDetail loads a profile with its tweets.
func (s *Store) ProfileDetail(ctx context.Context, id string) (*models.ProfileDetail, error) {
	var details []models.ProfileDetail
	if err := s.client.Fetch(ctx, profileDetailQuery, map[string]any{"id": id}, &details); err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", id, err)
	}
	if len(details) == 0 {
		return nil, fmt.Errorf("profile %s: %w", id, datastore.ErrNotFound)
	}
	detail := details[0]
	if err := datastore.ValidProfileDetail(&detail, s.logger); err != nil {
		return nil, fmt.Errorf("profile %s: malformed document: %w", id, err)
	}
	models.SortProfileTweets(detail.Tweets)
	return &detail, nil
}

// CreateTweet creates the tweet document.
func (s *Store) CreateTweet(ctx context.Context, tweet models.Tweet) error {
	doc := tweetDocument{
		Type:      models.TweetDocumentType,
		ID:        tweet.ID,
		Tweet:     tweet.Body,
		Timestamp: models.FormatTimestamp(tweet.CreatedAt),
		Author:    NewReference(tweet.AuthorRef),
	}
	if err := s.client.Mutate(ctx, Create(doc)); err != nil {
		return fmt.Errorf("create tweet %s: %w", tweet.ID, err)
	}
	return nil
}

// GlobalFeed returns the newest limit tweets with their authors.
func (s *Store) GlobalFeed(ctx context.Context, limit int) ([]models.FeedTweet, error) {
	query := globalFeedQuery
	if limit > 0 {
		query += "[0..." + strconv.Itoa(limit) + "]"
	}
	return s.feed(ctx, query, nil)
}

// AuthorFeed returns every tweet by author.
func (s *Store) AuthorFeed(ctx context.Context, author string) ([]models.FeedTweet, error) {
	return s.feed(ctx, authorFeedQuery, map[string]any{"author": author})
}

func (s *Store) feed(ctx context.Context, query string, params map[string]any) ([]models.FeedTweet, error) {
	var items []models.FeedTweet
	if err := s.client.Fetch(ctx, query, params, &items); err != nil {
		return nil, fmt.Errorf("fetch tweets: %w", err)
	}
	items = datastore.ValidFeedTweets(items, s.logger)
	models.SortNewestFirst(items)
	return items, nil
}
