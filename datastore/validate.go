package datastore

import (
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"chirp-backend/models"
)

var validate = validator.New()

// ValidFeedTweets drops feed items missing required fields. Backends return
// loosely shaped documents, so nothing is trusted before this check.
func ValidFeedTweets(items []models.FeedTweet, logger *zap.Logger) []models.FeedTweet {
	valid := make([]models.FeedTweet, 0, len(items))
	for _, item := range items {
		if err := validate.Struct(item); err != nil {
			logger.Warn("dropping malformed tweet", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		valid = append(valid, item)
	}
	return valid
}

// ValidProfileDetail checks the profile and drops malformed joined tweets.
func ValidProfileDetail(detail *models.ProfileDetail, logger *zap.Logger) error {
	if err := validate.Var(detail.WalletAddress, "required"); err != nil {
		return err
	}
	tweets := make([]models.ProfileTweet, 0, len(detail.Tweets))
	for _, tweet := range detail.Tweets {
		if err := validate.Struct(tweet); err != nil {
			logger.Warn("dropping malformed profile tweet", zap.String("id", tweet.ID), zap.Error(err))
			continue
		}
		tweets = append(tweets, tweet)
	}
	detail.Tweets = tweets
	return nil
}
