package service

import (
	"context"
	"errors"
	"time"

	apperrors "ataraxia/internal/errors"
	"ataraxia/internal/model"
	"ataraxia/internal/repository"
)

type PreferenceService struct {
	repo     *repository.PreferenceRepository
	userRepo *repository.UserRepository
}

func NewPreferenceService(repo *repository.PreferenceRepository, userRepo *repository.UserRepository) *PreferenceService {
	return &PreferenceService{repo: repo, userRepo: userRepo}
}

// PutInput is one write of a user's preference record. BaseVersion zero
// writes unconditionally.
type PutInput struct {
	Snapshot    model.LocalSnapshot
	MigratedAt  *time.Time
	BaseVersion int
	Merge       bool
}

func (s *PreferenceService) Exists(ctx context.Context, userID string) (bool, *apperrors.APIError) {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return false, apperrors.Internal("failed to check preferences")
	}
	return exists, nil
}

func (s *PreferenceService) Get(ctx context.Context, userID string) (*model.PreferenceRecord, *apperrors.APIError) {
	record, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("preferences_not_found", "no preferences stored for this account")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to get preferences")
	}
	return record, nil
}

func (s *PreferenceService) Put(ctx context.Context, userID string, input PutInput) (*model.PreferenceRecord, *apperrors.APIError) {
	if err := input.Snapshot.Validate(); err != nil {
		return nil, apperrors.BadRequest("invalid_preferences", err.Error())
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to query user")
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.Internal("failed to start transaction")
	}
	defer tx.Rollback()

	existing, err := s.repo.GetTx(ctx, tx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("failed to get preferences")
	}

	if apiErr := ensureVersion(input.BaseVersion, existing); apiErr != nil {
		return nil, apiErr
	}

	next := repository.MergeRecord(existing, model.PreferenceRecord{
		LocalSnapshot: input.Snapshot,
		UserID:        user.ID,
		Email:         user.Email,
		DisplayName:   user.DisplayName,
		MigratedAt:    input.MigratedAt,
	}, input.Merge)

	if err := s.repo.PutTx(ctx, tx, existing, &next); err != nil {
		return nil, apperrors.Internal("failed to save preferences")
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return nil, apperrors.Internal("failed to commit transaction")
	}
	return &next, nil
}

func ensureVersion(baseVersion int, existing *model.PreferenceRecord) *apperrors.APIError {
	if baseVersion <= 0 {
		return nil
	}
	if existing != nil && existing.Version == baseVersion {
		return nil
	}
	return apperrors.Conflict("state_conflict", "preferences changed on another device", map[string]interface{}{
		"record": existing,
	})
}
