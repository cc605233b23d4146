// Package wallet abstracts the user's account provider. A provider is either
// present (with or without already-authorized accounts) or absent.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

var (
	// ErrNoWallet is returned by every call on an absent provider.
	ErrNoWallet = errors.New("no wallet provider available")
	// ErrUnknownAccount is returned when asked to sign for an account the provider does not hold.
	ErrUnknownAccount = errors.New("account not managed by wallet")
)

// Provider mirrors the two account calls of an injected wallet:
// Accounts is the silent eth_accounts check and RequestAccounts is the
// interactive eth_requestAccounts. An empty slice means nothing is authorized.
type Provider interface {
	Accounts(ctx context.Context) ([]string, error)
	RequestAccounts(ctx context.Context) ([]string, error)
}

// Signer is a provider that can also produce transaction signers.
type Signer interface {
	Provider
	TransactOpts(ctx context.Context, account string, chainID *big.Int) (*bind.TransactOpts, error)
}

// Absent is the provider used when no wallet is configured.
type Absent struct{}

func (Absent) Accounts(context.Context) ([]string, error) {
	return nil, ErrNoWallet
}

func (Absent) RequestAccounts(context.Context) ([]string, error) {
	return nil, ErrNoWallet
}

func (Absent) TransactOpts(context.Context, string, *big.Int) (*bind.TransactOpts, error) {
	return nil, ErrNoWallet
}
