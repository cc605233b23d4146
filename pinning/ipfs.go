package pinning

import (
	"context"
	"strings"
)

// TokenURI is the ipfs:// URI minted into the profile image token.
func TokenURI(cid string) string {
	return "ipfs://" + cid
}

// Gateway turns content identifiers into HTTP URLs.
type Gateway struct {
	BaseURL string
}

// NewGateway creates a new Gateway rooted at baseURL.
func NewGateway(baseURL string) Gateway {
	if baseURL == "" {
		baseURL = DefaultGatewayURL
	}
	return Gateway{BaseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the gateway URL for cid.
func (g Gateway) URL(cid string) string {
	return g.BaseURL + "/ipfs/" + cid
}

// ResolveImage returns the displayable URL for a profile image. NFT images are
// stored as bare CIDs; everything else is already a URL.
func (g Gateway) ResolveImage(_ context.Context, ref string, isNft bool) (string, error) {
	if isNft {
		return g.URL(ref), nil
	}
	return ref, nil
}
