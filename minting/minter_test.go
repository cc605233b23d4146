package minting

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-backend/models"
)

type fakePinner struct {
	cid      string
	err      error
	filename string
	content  string
	metadata *models.PinMetadata
}

func (p *fakePinner) PinFile(_ context.Context, filename string, file io.Reader, metadata *models.PinMetadata) (string, error) {
	content, _ := io.ReadAll(file)
	p.filename = filename
	p.content = string(content)
	p.metadata = metadata
	return p.cid, p.err
}

type profileImageCall struct {
	address string
	ref     string
	isNft   bool
}

type fakeProfiles struct {
	calls []profileImageCall
	err   error
}

func (p *fakeProfiles) SetProfileImage(_ context.Context, address, ref string, isNft bool) error {
	p.calls = append(p.calls, profileImageCall{address: address, ref: ref, isNft: isNft})
	return p.err
}

type fakeSigner struct {
	authorized []string
	requestErr error
	signerErr  error
}

func (s *fakeSigner) Accounts(context.Context) ([]string, error) {
	return s.authorized, nil
}

func (s *fakeSigner) RequestAccounts(context.Context) ([]string, error) {
	return s.authorized, s.requestErr
}

func (s *fakeSigner) TransactOpts(_ context.Context, account string, _ *big.Int) (*bind.TransactOpts, error) {
	if s.signerErr != nil {
		return nil, s.signerErr
	}
	return &bind.TransactOpts{}, nil
}

type fakeContract struct {
	mintCalls  int
	mintedTo   string
	tokenURI   string
	mintErr    error
	receiptErr error
	block      chan struct{}
}

func (c *fakeContract) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(84532), nil
}

func (c *fakeContract) Mint(_ *bind.TransactOpts, to string, tokenURI string) (*types.Transaction, error) {
	c.mintCalls++
	c.mintedTo = to
	c.tokenURI = tokenURI
	if c.block != nil {
		<-c.block
	}
	if c.mintErr != nil {
		return nil, c.mintErr
	}
	return types.NewTx(&types.LegacyTx{Nonce: 1, Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func (c *fakeContract) WaitMined(context.Context, *types.Transaction) (*types.Receipt, error) {
	if c.receiptErr != nil {
		return nil, c.receiptErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42)}, nil
}

func validRequest() Request {
	return Request{
		Account:     "0xABC",
		Name:        "Cat",
		Description: "A cat",
		Filename:    "cat.png",
		Image:       strings.NewReader("meow"),
	}
}

func TestMintRunsEveryStep(t *testing.T) {
	pinner := &fakePinner{cid: "Qm123"}
	profiles := &fakeProfiles{}
	contract := &fakeContract{}
	minter := NewMinter(pinner, profiles, &fakeSigner{authorized: []string{"0xabc"}}, contract, nil)

	result, err := minter.Mint(context.Background(), validRequest())

	require.NoError(t, err)
	assert.Equal(t, "cat.png", pinner.filename)
	assert.Equal(t, "meow", pinner.content)
	assert.Equal(t, "Cat - A cat", pinner.metadata.Name)
	assert.Equal(t, []profileImageCall{{address: "0xABC", ref: "Qm123", isNft: true}}, profiles.calls)
	assert.Equal(t, "0xABC", contract.mintedTo)
	assert.Equal(t, "ipfs://Qm123", contract.tokenURI)

	assert.Equal(t, "Qm123", result.ImageCID)
	assert.Equal(t, "ipfs://Qm123", result.TokenURI)
	assert.Equal(t, uint64(42), result.BlockNumber)
	assert.NotEmpty(t, result.TransactionHash)

	status := minter.Status()
	assert.Equal(t, models.MintStatusSuccess, status.Status)
	assert.Equal(t, result, status.Result)
}

func TestMintMissingInput(t *testing.T) {
	pinner := &fakePinner{cid: "Qm123"}
	minter := NewMinter(pinner, &fakeProfiles{}, &fakeSigner{}, &fakeContract{}, nil)
	req := validRequest()
	req.Description = ""

	_, err := minter.Mint(context.Background(), req)

	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Equal(t, models.MintStatusInitial, minter.Status().Status)
	assert.Empty(t, pinner.filename)
}

func TestMintAbortsOnPinFailure(t *testing.T) {
	profiles := &fakeProfiles{}
	contract := &fakeContract{}
	minter := NewMinter(&fakePinner{err: errors.New("pinning down")}, profiles, &fakeSigner{authorized: []string{"0xABC"}}, contract, nil)

	_, err := minter.Mint(context.Background(), validRequest())

	require.Error(t, err)
	assert.Empty(t, profiles.calls)
	assert.Zero(t, contract.mintCalls)
	status := minter.Status()
	assert.Equal(t, models.MintStatusError, status.Status)
	assert.Contains(t, status.Error, "pinning down")
}

func TestMintAbortsWhenProfileUpdateFails(t *testing.T) {
	contract := &fakeContract{}
	minter := NewMinter(&fakePinner{cid: "Qm123"}, &fakeProfiles{err: errors.New("patch rejected")}, &fakeSigner{authorized: []string{"0xABC"}}, contract, nil)

	_, err := minter.Mint(context.Background(), validRequest())

	require.Error(t, err)
	assert.Zero(t, contract.mintCalls)
}

func TestMintRequiresAuthorizedAccount(t *testing.T) {
	contract := &fakeContract{}
	minter := NewMinter(&fakePinner{cid: "Qm123"}, &fakeProfiles{}, &fakeSigner{authorized: []string{"0xDEF"}}, contract, nil)

	_, err := minter.Mint(context.Background(), validRequest())

	assert.ErrorIs(t, err, ErrAccountNotAuthorized)
	assert.Zero(t, contract.mintCalls)
}

func TestMintWithoutContract(t *testing.T) {
	minter := NewMinter(&fakePinner{cid: "Qm123"}, &fakeProfiles{}, &fakeSigner{authorized: []string{"0xABC"}}, nil, nil)

	_, err := minter.Mint(context.Background(), validRequest())

	assert.ErrorIs(t, err, ErrNoContract)
}

func TestMintRevertedTransaction(t *testing.T) {
	minter := NewMinter(&fakePinner{cid: "Qm123"}, &fakeProfiles{}, &fakeSigner{authorized: []string{"0xABC"}}, &fakeContract{receiptErr: errors.New("reverted")}, nil)

	_, err := minter.Mint(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, models.MintStatusError, minter.Status().Status)
}

func TestResetReturnsToInitial(t *testing.T) {
	minter := NewMinter(&fakePinner{err: errors.New("pinning down")}, &fakeProfiles{}, &fakeSigner{}, &fakeContract{}, nil)
	_, err := minter.Mint(context.Background(), validRequest())
	require.Error(t, err)

	minter.Reset()

	status := minter.Status()
	assert.Equal(t, models.MintStatusInitial, status.Status)
	assert.Empty(t, status.Error)
	assert.Nil(t, status.Result)
}

func TestConcurrentMintRejected(t *testing.T) {
	contract := &fakeContract{block: make(chan struct{})}
	minter := NewMinter(&fakePinner{cid: "Qm123"}, &fakeProfiles{}, &fakeSigner{authorized: []string{"0xABC"}}, contract, nil)

	done := make(chan error, 1)
	go func() {
		_, err := minter.Mint(context.Background(), validRequest())
		done <- err
	}()
	require.Eventually(t, func() bool {
		return minter.Status().Status == models.MintStatusLoading
	}, time.Second, time.Millisecond)

	_, err := minter.Mint(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrInProgress)

	minter.Reset()
	assert.Equal(t, models.MintStatusLoading, minter.Status().Status)

	close(contract.block)
	require.NoError(t, <-done)
	assert.Equal(t, models.MintStatusSuccess, minter.Status().Status)
}
