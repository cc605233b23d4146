package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"chirp-backend/minting"
	"chirp-backend/session"
)

// maxImageSize bounds the multipart upload accepted for minting.
const maxImageSize = 32 << 20

// JSONPinner is the part of the pinning client exposed directly over HTTP.
type JSONPinner interface {
	PinJSON(ctx context.Context, value any) (string, error)
	TestAuthentication(ctx context.Context) bool
}

// MintHandler serves profile image minting and the pinning probes.
type MintHandler struct {
	machine *session.Machine
	minter  *minting.Minter
	pinner  JSONPinner
}

// NewMintHandler creates a new MintHandler.
func NewMintHandler(machine *session.Machine, minter *minting.Minter, pinner JSONPinner) *MintHandler {
	return &MintHandler{machine: machine, minter: minter, pinner: pinner}
}

// Mint accepts multipart fields image, name and description and mints the
// image for the connected account. It blocks until the transaction is mined.
func (h *MintHandler) Mint(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize)

	account, err := h.machine.Account()
	if err != nil {
		abortWithError(c, err)
		return
	}

	req := minting.Request{
		Account:     account,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read image: " + err.Error()})
			return
		}
		defer file.Close()
		req.Image = file
		req.Filename = fileHeader.Filename
	}

	result, err := h.minter.Mint(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	// Refresh the profile so the new image shows up.
	_, _ = h.machine.CurrentUserDetails(c.Request.Context())

	c.JSON(http.StatusCreated, result)
}

// GetStatus returns the mint status.
func (h *MintHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.minter.Status())
}

// Reset is the "try again" action after a failed mint.
func (h *MintHandler) Reset(c *gin.Context) {
	h.minter.Reset()
	c.JSON(http.StatusOK, h.minter.Status())
}

// PinJSON pins the request body as a JSON document.
func (h *MintHandler) PinJSON(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cid, err := h.pinner.PinJSON(c.Request.Context(), body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"IpfsHash": cid})
}

// TestPinning reports whether the pinning credentials are accepted.
func (h *MintHandler) TestPinning(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"authenticated": h.pinner.TestAuthentication(c.Request.Context())})
}
