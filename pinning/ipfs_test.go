package pinning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenURI(t *testing.T) {
	assert.Equal(t, "ipfs://Qm123", TokenURI("Qm123"))
}

func TestGatewayURL(t *testing.T) {
	assert.Equal(t, "https://gateway.pinata.cloud/ipfs/Qm123", NewGateway("").URL("Qm123"))
	assert.Equal(t, "https://ipfs.example/ipfs/Qm123", NewGateway("https://ipfs.example/").URL("Qm123"))
}

func TestResolveImage(t *testing.T) {
	gateway := NewGateway("https://ipfs.example")

	url, err := gateway.ResolveImage(context.Background(), "Qm123", true)
	require.NoError(t, err)
	assert.Equal(t, "https://ipfs.example/ipfs/Qm123", url)

	url, err = gateway.ResolveImage(context.Background(), "https://example.com/a.png", false)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", url)
}
