package models

// Document types used by the content datastore.
const (
	ProfileDocumentType = "user"
	TweetDocumentType   = "tweets"
)

// Defaults applied when a profile is created for a freshly connected wallet.
const (
	DefaultProfileName  = "Unnamed"
	DefaultProfileImage = "https://about.twitter.com/content/dam/about-twitter/en/brand-toolkit/brand-download-img-1.jpg.twimg.1920.jpg"
)

// UserProfile is keyed by wallet address: ID and WalletAddress are always equal.
type UserProfile struct {
	ID                string   `json:"_id"`
	Name              string   `json:"name"`
	ProfileImage      string   `json:"profileImage"`
	IsProfileImageNft bool     `json:"isProfileImageNft"`
	CoverImage        string   `json:"coverImage,omitempty"`
	WalletAddress     string   `json:"walletAddress"`
	TweetRefs         []string `json:"tweets,omitempty"`
}

// NewUserProfile returns the document created on first connection.
func NewUserProfile(walletAddress string) UserProfile {
	return UserProfile{
		ID:                walletAddress,
		Name:              DefaultProfileName,
		ProfileImage:      DefaultProfileImage,
		IsProfileImageNft: false,
		WalletAddress:     walletAddress,
	}
}

// ProfilePatch sets only the non-nil fields.
type ProfilePatch struct {
	ProfileImage      *string `json:"profileImage,omitempty"`
	IsProfileImageNft *bool   `json:"isProfileImageNft,omitempty"`
	CoverImage        *string `json:"coverImage,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p ProfilePatch) Empty() bool {
	return p.ProfileImage == nil && p.IsProfileImageNft == nil && p.CoverImage == nil
}

// Author is the subset of a profile joined into every feed item.
type Author struct {
	Name              string `json:"name"`
	WalletAddress     string `json:"walletAddress" validate:"required"`
	ProfileImage      string `json:"profileImage"`
	IsProfileImageNft bool   `json:"isProfileImageNft"`
}

// ProfileDetail is the current user view: the profile with its tweets joined in, newest first.
type ProfileDetail struct {
	Name              string         `json:"name"`
	ProfileImage      string         `json:"profileImage"`
	IsProfileImageNft bool           `json:"isProfileImageNft"`
	CoverImage        string         `json:"coverImage,omitempty"`
	WalletAddress     string         `json:"walletAddress" validate:"required"`
	Tweets            []ProfileTweet `json:"tweets"`
}

// ProfileTweet is a tweet as listed on its author's profile.
type ProfileTweet struct {
	ID        string `json:"_id,omitempty"`
	Tweet     string `json:"tweet" validate:"required"`
	Timestamp string `json:"timestamp" validate:"required"`
}

type UpdateCoverImageRequest struct {
	CoverImage string `json:"cover_image" binding:"required"`
}
