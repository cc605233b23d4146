package contracts

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers contract calls with a canned result. Anything else
// panics through the nil embedded interfaces.
type fakeBackend struct {
	bind.ContractBackend
	bind.DeployBackend

	result []byte
	call   ethereum.CallMsg
}

func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.call = call
	return b.result, nil
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(84532), nil
}

func TestABIPacksMint(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(ProfileImageNFTABI))
	require.NoError(t, err)

	data, err := parsed.Pack("mint", common.HexToAddress("0x00000000000000000000000000000000000000AB"), "ipfs://Qm123")
	require.NoError(t, err)
	assert.Equal(t, parsed.Methods["mint"].ID, data[:4])

	args, err := parsed.Methods["mint"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, "ipfs://Qm123", args[1])
}

func TestNewProfileImageNFTRejectsBadAddress(t *testing.T) {
	_, err := NewProfileImageNFT(&fakeBackend{}, "not-an-address")
	assert.Error(t, err)
}

func TestBalanceOf(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(ProfileImageNFTABI))
	require.NoError(t, err)
	encoded, err := parsed.Methods["balanceOf"].Outputs.Pack(big.NewInt(3))
	require.NoError(t, err)

	backend := &fakeBackend{result: encoded}
	nft, err := NewProfileImageNFT(backend, DefaultProfileImageNFTAddress)
	require.NoError(t, err)

	balance, err := nft.BalanceOf(context.Background(), "0x00000000000000000000000000000000000000AB")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance.Int64())

	require.NotNil(t, backend.call.To)
	assert.Equal(t, common.HexToAddress(DefaultProfileImageNFTAddress), *backend.call.To)
	assert.Equal(t, parsed.Methods["balanceOf"].ID, backend.call.Data[:4])
}

func TestBalanceOfEmptyResult(t *testing.T) {
	nft, err := NewProfileImageNFT(&fakeBackend{}, DefaultProfileImageNFTAddress)
	require.NoError(t, err)

	_, err = nft.BalanceOf(context.Background(), "0x00000000000000000000000000000000000000AB")

	assert.Error(t, err)
}

func TestChainID(t *testing.T) {
	nft, err := NewProfileImageNFT(&fakeBackend{}, DefaultProfileImageNFTAddress)
	require.NoError(t, err)

	chainID, err := nft.ChainID(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(84532), chainID.Int64())
}
