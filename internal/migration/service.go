// Package migration reconciles the device-local preference snapshot with the
// remote record of a signed-in identity.
package migration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ataraxia/internal/model"
)

const (
	MessageRestored = "Your preferences and statistics have been restored from your account."
	MessageUploaded = "Your local preferences and statistics have been saved to your account."
	MessageNoData   = "No local preferences to migrate."
	MessageFailed   = "Failed to migrate your data. Your local settings will continue to work."
)

// RemoteStore is the identity-keyed document store.
type RemoteStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
	Read(ctx context.Context, userID string) (*model.PreferenceRecord, error)
	Write(ctx context.Context, userID string, record model.PreferenceRecord, merge bool) error
}

// LocalStore is the device-side persistence the migration reads and updates.
type LocalStore interface {
	LoadLocalSnapshot() (model.LocalSnapshot, error)
	SaveLocalSnapshot(snapshot model.LocalSnapshot) error
	MarkMigrated(at time.Time) error
}

type Outcome string

const (
	OutcomeRestored Outcome = "restored"
	OutcomeUploaded Outcome = "uploaded"
	OutcomeNoData   Outcome = "no_data"
	OutcomeFailed   Outcome = "failed"
)

type Result struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Outcome Outcome `json:"outcome"`
}

type Service struct {
	remote RemoteStore
	local  LocalStore
	logger *slog.Logger
	now    func() time.Time
}

func NewService(remote RemoteStore, local LocalStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote: remote,
		local:  local,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Perform runs one migration for identity. Remote data wins when it exists;
// otherwise local data is uploaded. Failures never touch the local snapshot
// and are reported through the Result, never returned. Once ctx is done the
// device store is left alone.
func (s *Service) Perform(ctx context.Context, identity model.Identity) (result Result) {
	log := s.logger.With(slog.String("user_id", identity.UserID))
	defer func() {
		if r := recover(); r != nil {
			log.Error("migration panicked", slog.Any("panic", r))
			result = failed()
		}
	}()

	if identity.UserID == "" {
		log.Error("migration without identity")
		return failed()
	}

	restored, err := s.restore(ctx, identity)
	if err != nil {
		log.Error("restore from remote failed", slog.Any("error", err))
		return failed()
	}
	if restored {
		log.Info("preferences restored from remote")
		return Result{Success: true, Message: MessageRestored, Outcome: OutcomeRestored}
	}

	uploaded, err := s.upload(ctx, identity)
	if err != nil {
		log.Error("upload to remote failed", slog.Any("error", err))
		return failed()
	}
	if !uploaded {
		log.Info("no local preferences to migrate")
		return Result{Success: true, Message: MessageNoData, Outcome: OutcomeNoData}
	}
	log.Info("local preferences uploaded")
	return Result{Success: true, Message: MessageUploaded, Outcome: OutcomeUploaded}
}

func (s *Service) restore(ctx context.Context, identity model.Identity) (bool, error) {
	exists, err := s.remote.Exists(ctx, identity.UserID)
	if err != nil {
		return false, fmt.Errorf("check remote record: %w", err)
	}
	if !exists {
		return false, nil
	}

	record, err := s.remote.Read(ctx, identity.UserID)
	if err != nil {
		return false, fmt.Errorf("read remote record: %w", err)
	}
	if record == nil {
		return false, nil
	}
	if err := record.Validate(); err != nil {
		return false, err
	}

	// A session that ended while the record was in flight must not see it.
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("session ended before restore: %w", err)
	}
	if err := s.local.SaveLocalSnapshot(record.LocalSnapshot); err != nil {
		return false, fmt.Errorf("apply remote record locally: %w", err)
	}
	return true, nil
}

func (s *Service) upload(ctx context.Context, identity model.Identity) (bool, error) {
	local, err := s.local.LoadLocalSnapshot()
	if err != nil {
		return false, fmt.Errorf("load local snapshot: %w", err)
	}
	if local.Empty() {
		return false, nil
	}
	if err := local.Validate(); err != nil {
		return false, err
	}

	now := s.now()
	record := model.PreferenceRecord{
		LocalSnapshot: local,
		UserID:        identity.UserID,
		Email:         identity.Email,
		DisplayName:   identity.DisplayName,
		MigratedAt:    &now,
	}
	if err := s.remote.Write(ctx, identity.UserID, record, true); err != nil {
		return false, fmt.Errorf("write remote record: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("session ended before marking migrated: %w", err)
	}
	if err := s.local.MarkMigrated(now); err != nil {
		s.logger.Warn("mark local data migrated", slog.String("user_id", identity.UserID), slog.Any("error", err))
	}
	return true, nil
}

func failed() Result {
	return Result{Success: false, Message: MessageFailed, Outcome: OutcomeFailed}
}
