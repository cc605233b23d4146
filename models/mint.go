package models

// Minting status values shown by the mint view.
const (
	MintStatusInitial = "initial"
	MintStatusLoading = "loading"
	MintStatusSuccess = "success"
	MintStatusError   = "error"
)

// MintResult describes a confirmed profile image mint.
type MintResult struct {
	ImageCID        string `json:"image_cid"`
	TokenURI        string `json:"token_uri"`
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     uint64 `json:"block_number"`
}

// MintStatusResponse is returned by the mint status endpoint.
type MintStatusResponse struct {
	Status string      `json:"status"`
	Result *MintResult `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// PinMetadata is sent to the pinning service alongside uploaded files.
type PinMetadata struct {
	Name      string            `json:"name,omitempty"`
	KeyValues map[string]string `json:"keyvalues,omitempty"`
}
