// Package minting mints a user's profile image as an NFT: the image is pinned,
// the profile is pointed at it, and the wallet signs a mint transaction.
package minting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"chirp-backend/models"
	"chirp-backend/pinning"
	"chirp-backend/wallet"
)

var (
	ErrMissingInput         = errors.New("image, name, description and account are required")
	ErrInProgress           = errors.New("a mint is already in progress")
	ErrNoContract           = errors.New("profile image contract unavailable")
	ErrAccountNotAuthorized = errors.New("wallet did not authorize the minting account")
)

// Pinner uploads the image.
type Pinner interface {
	PinFile(ctx context.Context, filename string, file io.Reader, metadata *models.PinMetadata) (string, error)
}

// ProfileImageSetter points the profile at the pinned image.
type ProfileImageSetter interface {
	SetProfileImage(ctx context.Context, address, ref string, isNft bool) error
}

// Contract is the minting entry point of the profile image collection.
type Contract interface {
	ChainID(ctx context.Context) (*big.Int, error)
	Mint(opts *bind.TransactOpts, to string, tokenURI string) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)
}

// Request is one mint attempt. Filename is used for the upload only.
type Request struct {
	Account     string
	Name        string
	Description string
	Filename    string
	Image       io.Reader
}

// Minter runs the mint protocol and tracks the status shown to the user.
// Nothing guards against minting the same image twice.
type Minter struct {
	pinner   Pinner
	profiles ProfileImageSetter
	wallet   wallet.Signer
	contract Contract
	logger   *zap.Logger

	mu      sync.Mutex
	status  string
	result  *models.MintResult
	lastErr error
}

// NewMinter creates a new Minter. A nil contract disables minting.
func NewMinter(pinner Pinner, profiles ProfileImageSetter, signer wallet.Signer, contract Contract, logger *zap.Logger) *Minter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Minter{
		pinner:   pinner,
		profiles: profiles,
		wallet:   signer,
		contract: contract,
		logger:   logger,
		status:   models.MintStatusInitial,
	}
}

// Status reports the current status with the last result or failure.
func (m *Minter) Status() models.MintStatusResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp := models.MintStatusResponse{Status: m.status, Result: m.result}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}

// Reset returns to the initial status. It is the only way out of error.
func (m *Minter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == models.MintStatusLoading {
		return
	}
	m.status = models.MintStatusInitial
	m.result = nil
	m.lastErr = nil
}

// Mint runs every step in order; the first failure aborts the rest and
// leaves the minter in the error status.
func (m *Minter) Mint(ctx context.Context, req Request) (*models.MintResult, error) {
	if req.Image == nil || req.Name == "" || req.Description == "" || req.Account == "" {
		m.logger.Warn("mint request missing data",
			zap.Bool("image", req.Image != nil),
			zap.Bool("name", req.Name != ""),
			zap.Bool("description", req.Description != ""),
			zap.Bool("account", req.Account != ""))
		return nil, ErrMissingInput
	}

	m.mu.Lock()
	if m.status == models.MintStatusLoading {
		m.mu.Unlock()
		return nil, ErrInProgress
	}
	m.status = models.MintStatusLoading
	m.result = nil
	m.lastErr = nil
	m.mu.Unlock()

	result, err := m.mint(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.logger.Error("error minting profile image", zap.String("account", req.Account), zap.Error(err))
		m.status = models.MintStatusError
		m.lastErr = err
		return nil, err
	}
	m.status = models.MintStatusSuccess
	m.result = result
	return result, nil
}

func (m *Minter) mint(ctx context.Context, req Request) (*models.MintResult, error) {
	filename := req.Filename
	if filename == "" {
		filename = "profile-image"
	}
	cid, err := m.pinner.PinFile(ctx, filename, req.Image, &models.PinMetadata{
		Name: fmt.Sprintf("%s - %s", req.Name, req.Description),
	})
	if err != nil {
		return nil, fmt.Errorf("pin profile image: %w", err)
	}
	m.logger.Info("image uploaded to IPFS", zap.String("cid", cid))

	if err := m.profiles.SetProfileImage(ctx, req.Account, cid, true); err != nil {
		return nil, fmt.Errorf("update profile image: %w", err)
	}

	authorized, err := m.wallet.RequestAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("request wallet authorization: %w", err)
	}
	if !containsAddress(authorized, req.Account) {
		return nil, ErrAccountNotAuthorized
	}

	if m.contract == nil {
		return nil, ErrNoContract
	}
	chainID, err := m.contract.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve chain: %w", err)
	}
	opts, err := m.wallet.TransactOpts(ctx, req.Account, chainID)
	if err != nil {
		return nil, fmt.Errorf("obtain signer: %w", err)
	}

	tokenURI := pinning.TokenURI(cid)
	tx, err := m.contract.Mint(opts, req.Account, tokenURI)
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	m.logger.Info("mint transaction sent", zap.String("tx", tx.Hash().Hex()), zap.String("token_uri", tokenURI))

	receipt, err := m.contract.WaitMined(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &models.MintResult{
		ImageCID:        cid,
		TokenURI:        tokenURI,
		TransactionHash: tx.Hash().Hex(),
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return result, nil
}

func containsAddress(addresses []string, target string) bool {
	for _, address := range addresses {
		if strings.EqualFold(address, target) {
			return true
		}
	}
	return false
}
