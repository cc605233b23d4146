package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chirp-backend/feed"
	"chirp-backend/models"
	"chirp-backend/session"
)

// TweetHandler serves the feeds and posting.
type TweetHandler struct {
	machine *session.Machine
}

// NewTweetHandler creates a new TweetHandler.
func NewTweetHandler(machine *session.Machine) *TweetHandler {
	return &TweetHandler{machine: machine}
}

// GetTweets refreshes and returns the global feed. Fetch failures are not
// reported; the previous list is returned instead.
func (h *TweetHandler) GetTweets(c *gin.Context) {
	state, err := h.machine.FetchTweets(c.Request.Context())
	if errors.Is(err, feed.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "tweets": state.Tweets})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweets": state.Tweets})
}

// GetUserTweets returns the tweets of the wallet address in the path.
func (h *TweetHandler) GetUserTweets(c *gin.Context) {
	walletAddress := c.Param("walletAddress")

	state, err := h.machine.FetchUserTweets(c.Request.Context(), walletAddress)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweets": state.Tweets})
}

// CreateTweet posts a tweet as the connected account.
func (h *TweetHandler) CreateTweet(c *gin.Context) {
	var req models.CreateTweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, tweet, err := h.machine.PostTweet(c.Request.Context(), req.Tweet)
	if errors.Is(err, feed.ErrOrphanedTweet) {
		_ = c.Error(err)
		c.JSON(http.StatusAccepted, gin.H{"tweet": tweet, "tweets": state.Tweets, "warning": err.Error()})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tweet": tweet, "tweets": state.Tweets})
}
