package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultProfileImageNFTAddress is the deployed profile image collection.
const DefaultProfileImageNFTAddress = "0x9f74d3032cEe5A6230aF4dFA470F65c3d0948473"

// ProfileImageNFTABI holds only the entry points we use.
const ProfileImageNFTABI = `[
	{"inputs":[{"internalType":"address","name":"to","type":"address"},{"internalType":"string","name":"tokenURI","type":"string"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"internalType":"address","name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Backend is what an ethclient.Client provides for calls, transactions and receipts.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// ProfileImageNFT wraps the profile image NFT contract.
type ProfileImageNFT struct {
	backend  Backend
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewProfileImageNFT binds the contract at address.
func NewProfileImageNFT(backend Backend, address string) (*ProfileImageNFT, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address: %s", address)
	}
	parsedABI, err := abi.JSON(strings.NewReader(ProfileImageNFTABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile image NFT ABI: %w", err)
	}
	contractAddress := common.HexToAddress(address)

	return &ProfileImageNFT{
		backend:  backend,
		address:  contractAddress,
		abi:      parsedABI,
		contract: bind.NewBoundContract(contractAddress, parsedABI, backend, backend, backend),
	}, nil
}

// Address returns the contract address.
func (c *ProfileImageNFT) Address() common.Address {
	return c.address
}

// Mint submits mint(to, tokenURI) signed by opts. It does not wait for inclusion.
func (c *ProfileImageNFT) Mint(opts *bind.TransactOpts, to string, tokenURI string) (*types.Transaction, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient address: %s", to)
	}
	tx, err := c.contract.Transact(opts, "mint", common.HexToAddress(to), tokenURI)
	if err != nil {
		return nil, fmt.Errorf("failed to send mint transaction: %w", err)
	}
	return tx, nil
}

// WaitMined blocks until tx is included and fails if it reverted.
func (c *ProfileImageNFT) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for mint transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("mint transaction %s reverted", tx.Hash().Hex())
	}
	return receipt, nil
}

// ChainID is needed to build replay-protected signers.
func (c *ProfileImageNFT) ChainID(ctx context.Context) (*big.Int, error) {
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return chainID, nil
}

// BalanceOf calls the balanceOf view for owner.
func (c *ProfileImageNFT) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	if !common.IsHexAddress(owner) {
		return nil, fmt.Errorf("invalid wallet address: %s", owner)
	}
	callData, err := c.abi.Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call data: %w", err)
	}

	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &c.address,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("empty result from contract call")
	}

	var balance *big.Int
	if err := c.abi.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}
	return balance, nil
}
