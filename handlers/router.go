package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chirp-backend/metrics"
	"chirp-backend/middleware"
	"chirp-backend/minting"
	"chirp-backend/session"
)

// RouterConfig wires handlers to their dependencies.
type RouterConfig struct {
	Machine     *session.Machine
	Profiles    CoverImageSetter
	Balances    BalanceReader
	Minter      *minting.Minter
	Pinner      JSONPinner
	RateLimiter *middleware.RateLimiter
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the gin engine serving the API.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	if len(cfg.CORSOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.CORSOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader}
		router.Use(cors.New(corsConfig))
	}

	sessionHandler := NewSessionHandler(cfg.Machine)
	tweetHandler := NewTweetHandler(cfg.Machine)
	profileHandler := NewProfileHandler(cfg.Machine, cfg.Profiles, cfg.Balances, logger)
	mintHandler := NewMintHandler(cfg.Machine, cfg.Minter, cfg.Pinner)

	api := router.Group("/api/v1")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Handler())
	}
	{
		// Session routes
		api.GET("/session", sessionHandler.GetSession)
		api.POST("/session/connect", sessionHandler.Connect)
		api.POST("/session/reload", sessionHandler.Reload)

		// Tweet routes
		api.GET("/tweets", tweetHandler.GetTweets)
		api.POST("/tweets", tweetHandler.CreateTweet)
		api.GET("/profiles/:walletAddress/tweets", tweetHandler.GetUserTweets)

		// Current user routes
		api.GET("/me", profileHandler.GetCurrentUser)
		api.PUT("/me/cover-image", profileHandler.UpdateCoverImage)
		api.POST("/me/mint", mintHandler.Mint)

		// Mint and pinning routes
		api.GET("/mint/status", mintHandler.GetStatus)
		api.POST("/mint/reset", mintHandler.Reset)
		api.POST("/pinning/json", mintHandler.PinJSON)
		api.GET("/pinning/test", mintHandler.TestPinning)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
