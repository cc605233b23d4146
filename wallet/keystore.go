package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const unlockedStatus = "Unlocked"

// Keystore is a wallet backed by an encrypted key directory. Unlocked
// accounts count as authorized; RequestAccounts unlocks with the configured
// passphrase, and an empty passphrase behaves like a declined request.
type Keystore struct {
	ks         *keystore.KeyStore
	passphrase string
	logger     *zap.Logger
}

var _ Signer = (*Keystore)(nil)

// New returns Absent when dir is empty, otherwise a keystore wallet.
func New(dir, passphrase string, logger *zap.Logger) Signer {
	if dir == "" {
		return Absent{}
	}
	return NewKeystore(keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP), passphrase, logger)
}

// NewKeystore creates a new Keystore that unlocks accounts with passphrase.
func NewKeystore(ks *keystore.KeyStore, passphrase string, logger *zap.Logger) *Keystore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Keystore{ks: ks, passphrase: passphrase, logger: logger}
}

// Accounts lists the unlocked keystore addresses.
func (k *Keystore) Accounts(context.Context) ([]string, error) {
	var addresses []string
	for _, w := range k.ks.Wallets() {
		status, err := w.Status()
		if err != nil || status != unlockedStatus {
			continue
		}
		for _, account := range w.Accounts() {
			addresses = append(addresses, account.Address.Hex())
		}
	}
	return addresses, nil
}

// RequestAccounts unlocks the keystore accounts and returns their addresses.
func (k *Keystore) RequestAccounts(ctx context.Context) ([]string, error) {
	if k.passphrase == "" {
		k.logger.Info("account request declined: no passphrase configured")
		return nil, nil
	}
	for _, account := range k.ks.Accounts() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := k.ks.Unlock(account, k.passphrase); err != nil {
			if errors.Is(err, keystore.ErrDecrypt) {
				k.logger.Warn("account request rejected", zap.String("account", account.Address.Hex()))
				continue
			}
			return nil, fmt.Errorf("unlock %s: %w", account.Address.Hex(), err)
		}
	}
	return k.Accounts(ctx)
}

// TransactOpts returns signing options for account on chainID.
func (k *Keystore) TransactOpts(ctx context.Context, account string, chainID *big.Int) (*bind.TransactOpts, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("invalid wallet address: %s", account)
	}
	found, err := k.ks.Find(accounts.Account{Address: common.HexToAddress(account)})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", account, ErrUnknownAccount)
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(k.ks, found, chainID)
	if err != nil {
		return nil, fmt.Errorf("create signer for %s: %w", account, err)
	}
	opts.Context = ctx
	return opts, nil
}
