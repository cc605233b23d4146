// Package profiles manages user profile documents keyed by wallet address.
package profiles

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chirp-backend/datastore"
	"chirp-backend/models"
)

// ImageResolver turns a stored image reference into a displayable URL.
type ImageResolver interface {
	ResolveImage(ctx context.Context, ref string, isNft bool) (string, error)
}

// Service wraps the profile store. Patches are unconditional, so concurrent
// writers race and the last one wins.
type Service struct {
	store    datastore.ProfileStore
	resolver ImageResolver
	logger   *zap.Logger
}

// NewService creates a new profile Service.
func NewService(store datastore.ProfileStore, resolver ImageResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, resolver: resolver, logger: logger}
}

// EnsureProfile creates the default profile for address unless one exists.
func (s *Service) EnsureProfile(ctx context.Context, address string) error {
	if err := s.store.CreateProfileIfNotExists(ctx, models.NewUserProfile(address)); err != nil {
		s.logger.Error("error creating user", zap.String("address", address), zap.Error(err))
		return err
	}
	return nil
}

// SetProfileImage points the profile image at ref.
func (s *Service) SetProfileImage(ctx context.Context, address, ref string, isNft bool) error {
	patch := models.ProfilePatch{ProfileImage: &ref, IsProfileImageNft: &isNft}
	if err := s.store.PatchProfile(ctx, address, patch); err != nil {
		return fmt.Errorf("set profile image: %w", err)
	}
	return nil
}

// SetCoverImage sets the profile cover image.
func (s *Service) SetCoverImage(ctx context.Context, address, ref string) error {
	if err := s.store.PatchProfile(ctx, address, models.ProfilePatch{CoverImage: &ref}); err != nil {
		return fmt.Errorf("set cover image: %w", err)
	}
	return nil
}

// Detail loads the profile with its tweets, newest first, and resolves the
// profile image for display.
func (s *Service) Detail(ctx context.Context, address string) (*models.ProfileDetail, error) {
	detail, err := s.store.ProfileDetail(ctx, address)
	if err != nil {
		return nil, err
	}
	image, err := s.resolver.ResolveImage(ctx, detail.ProfileImage, detail.IsProfileImageNft)
	if err != nil {
		return nil, fmt.Errorf("resolve profile image: %w", err)
	}
	detail.ProfileImage = image
	models.SortProfileTweets(detail.Tweets)
	return detail, nil
}
