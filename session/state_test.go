package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chirp-backend/models"
)

func TestTransitionsDoNotShareTweets(t *testing.T) {
	start := Initial().WithTweets([]models.FeedTweet{{ID: "a"}})

	next := start.AppendTweets([]models.FeedTweet{{ID: "b"}})
	next.Tweets[0].ID = "changed"

	assert.Len(t, start.Tweets, 1)
	assert.Equal(t, "a", start.Tweets[0].ID)
	assert.Len(t, next.Tweets, 2)
}

func TestFailedRedirectsToRoot(t *testing.T) {
	state := Initial().Connected("0xABC").Failed()

	assert.Equal(t, StatusError, state.Status)
	assert.Equal(t, RootPath, state.Redirect)
	assert.Empty(t, state.CurrentAccount)
	assert.Nil(t, state.CurrentUser)

	reconnecting := state.Connecting()
	assert.Empty(t, reconnecting.Redirect)
}

func TestNotConnectedClearsAccount(t *testing.T) {
	state := Initial().Connected("0xABC").WithUser(&models.ProfileDetail{WalletAddress: "0xABC"}).NotConnected()

	assert.Equal(t, StatusNotConnected, state.Status)
	assert.Empty(t, state.CurrentAccount)
	assert.Nil(t, state.CurrentUser)
}
