package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp-backend/datastore"
	"chirp-backend/models"
)

func TestCreateProfileIfNotExistsKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.CreateProfileIfNotExists(ctx, models.NewUserProfile("0xABC")))
	cover := "https://example.com/cover.png"
	require.NoError(t, store.PatchProfile(ctx, "0xABC", models.ProfilePatch{CoverImage: &cover}))

	require.NoError(t, store.CreateProfileIfNotExists(ctx, models.NewUserProfile("0xABC")))

	profile, ok := store.Profile("0xABC")
	require.True(t, ok)
	assert.Equal(t, cover, profile.CoverImage)
	assert.Equal(t, 1, store.ProfileCount())
}

func TestPatchProfileMissing(t *testing.T) {
	store := New()
	cover := "x"

	err := store.PatchProfile(context.Background(), "0xNONE", models.ProfilePatch{CoverImage: &cover})

	assert.ErrorIs(t, err, datastore.ErrNotFound)
}

func TestPatchProfileOnlySetsGivenFields(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.CreateProfileIfNotExists(ctx, models.NewUserProfile("0xABC")))

	image := "QmImage"
	isNft := true
	require.NoError(t, store.PatchProfile(ctx, "0xABC", models.ProfilePatch{ProfileImage: &image, IsProfileImageNft: &isNft}))

	profile, _ := store.Profile("0xABC")
	assert.Equal(t, "QmImage", profile.ProfileImage)
	assert.True(t, profile.IsProfileImageNft)
	assert.Equal(t, models.DefaultProfileName, profile.Name)
	assert.Empty(t, profile.CoverImage)
}

func TestCreateTweetDuplicate(t *testing.T) {
	ctx := context.Background()
	store := New()
	tweet := models.Tweet{ID: "1_0xABC", Body: "hi", CreatedAt: time.UnixMilli(1), AuthorRef: "0xABC"}

	require.NoError(t, store.CreateTweet(ctx, tweet))
	assert.ErrorIs(t, store.CreateTweet(ctx, tweet), datastore.ErrConflict)
}

func TestFeedsJoinAuthorsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.CreateProfileIfNotExists(ctx, models.NewUserProfile("0xA")))
	require.NoError(t, store.CreateProfileIfNotExists(ctx, models.NewUserProfile("0xB")))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, author := range []string{"0xA", "0xB", "0xA"} {
		createdAt := base.Add(time.Duration(i) * time.Minute)
		tweet := models.Tweet{ID: models.TweetID(createdAt, author), Body: "post", CreatedAt: createdAt, AuthorRef: author}
		require.NoError(t, store.CreateTweet(ctx, tweet))
		require.NoError(t, store.AppendTweetRef(ctx, author, tweet.ID))
	}

	global, err := store.GlobalFeed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, global, 2)
	assert.Equal(t, "0xA", global[0].Author.WalletAddress)
	assert.Equal(t, "0xB", global[1].Author.WalletAddress)
	assert.Equal(t, models.DefaultProfileImage, global[0].Author.ProfileImage)

	authorFeed, err := store.AuthorFeed(ctx, "0xA")
	require.NoError(t, err)
	require.Len(t, authorFeed, 2)
	assert.True(t, authorFeed[0].Timestamp > authorFeed[1].Timestamp)

	detail, err := store.ProfileDetail(ctx, "0xA")
	require.NoError(t, err)
	assert.Equal(t, "0xA", detail.WalletAddress)
	require.Len(t, detail.Tweets, 2)
	assert.Equal(t, authorFeed[0].ID, detail.Tweets[0].ID)
}

func TestAuthorFeedEmpty(t *testing.T) {
	feed, err := New().AuthorFeed(context.Background(), "0xNONE")

	require.NoError(t, err)
	assert.NotNil(t, feed)
	assert.Empty(t, feed)
}

func TestAppendTweetRefMissingProfile(t *testing.T) {
	err := New().AppendTweetRef(context.Background(), "0xNONE", "1_0xNONE")

	assert.ErrorIs(t, err, datastore.ErrNotFound)
}
