package handlers

import (
	"context"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chirp-backend/models"
	"chirp-backend/session"
)

// CoverImageSetter patches the cover image of a profile.
type CoverImageSetter interface {
	SetCoverImage(ctx context.Context, address, ref string) error
}

// BalanceReader reports how many profile image tokens an address holds.
type BalanceReader interface {
	BalanceOf(ctx context.Context, owner string) (*big.Int, error)
}

// ProfileHandler serves the connected user's profile.
type ProfileHandler struct {
	machine  *session.Machine
	profiles CoverImageSetter
	balances BalanceReader
	logger   *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler. A nil balances reader
// omits the token balance.
func NewProfileHandler(machine *session.Machine, profiles CoverImageSetter, balances BalanceReader, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{
		machine:  machine,
		profiles: profiles,
		balances: balances,
		logger:   logger,
	}
}

// GetCurrentUser returns the connected user's profile with tweets joined.
func (h *ProfileHandler) GetCurrentUser(c *gin.Context) {
	state, err := h.machine.CurrentUserDetails(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if state.Status != session.StatusConnected || state.CurrentUser == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Wallet not connected", "status": state.Status})
		return
	}

	response := gin.H{"user": state.CurrentUser}

	// Token balance comes from the contract and is best effort.
	if h.balances != nil {
		if balance, err := h.balances.BalanceOf(c.Request.Context(), state.CurrentAccount); err == nil {
			response["nft_balance"] = balance.String()
		} else {
			h.logger.Warn("failed to get profile NFT balance", zap.String("account", state.CurrentAccount), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, response)
}

// UpdateCoverImage sets the connected user's cover image.
func (h *ProfileHandler) UpdateCoverImage(c *gin.Context) {
	var req models.UpdateCoverImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.machine.Account()
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := h.profiles.SetCoverImage(c.Request.Context(), account, req.CoverImage); err != nil {
		abortWithError(c, err)
		return
	}

	state, err := h.machine.CurrentUserDetails(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": state.CurrentUser})
}
