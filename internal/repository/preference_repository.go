package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ataraxia/internal/model"
)

type PreferenceRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *PreferenceRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *PreferenceRepository) Exists(ctx context.Context, userID string) (bool, error) {
	var count int
	if err := r.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM preference_records WHERE user_id = ?`,
		userID,
	).Scan(&count); err != nil {
		return false, fmt.Errorf("check preference record: %w", err)
	}
	return count > 0, nil
}

func (r *PreferenceRepository) Get(ctx context.Context, userID string) (*model.PreferenceRecord, error) {
	row := r.db.QueryRowContext(ctx, selectPreferenceRecord, userID)
	return scanPreferenceRecord(row)
}

func (r *PreferenceRepository) GetTx(ctx context.Context, tx *sql.Tx, userID string) (*model.PreferenceRecord, error) {
	row := tx.QueryRowContext(ctx, selectPreferenceRecord, userID)
	return scanPreferenceRecord(row)
}

// PutTx stores record as the next version of the user's document. existing is
// the stored record or nil when there is none.
func (r *PreferenceRepository) PutTx(ctx context.Context, tx *sql.Tx, existing *model.PreferenceRecord, record *model.PreferenceRecord) error {
	document, err := json.Marshal(record.LocalSnapshot)
	if err != nil {
		return fmt.Errorf("encode preference document: %w", err)
	}

	record.UpdatedAt = r.now()
	var migratedAt interface{}
	if record.MigratedAt != nil {
		migratedAt = formatTime(*record.MigratedAt)
	}

	if existing == nil {
		record.Version = 1
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO preference_records (
				user_id, email, display_name, document, migrated_at, version, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			record.UserID,
			record.Email,
			record.DisplayName,
			string(document),
			migratedAt,
			record.Version,
			formatTime(record.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert preference record: %w", err)
		}
		return nil
	}

	record.Version = existing.Version + 1
	_, err = tx.ExecContext(
		ctx,
		`UPDATE preference_records
		SET email = ?, display_name = ?, document = ?,
			migrated_at = ?, version = ?, updated_at = ?
		WHERE user_id = ?`,
		record.Email,
		record.DisplayName,
		string(document),
		migratedAt,
		record.Version,
		formatTime(record.UpdatedAt),
		record.UserID,
	)
	if err != nil {
		return fmt.Errorf("update preference record: %w", err)
	}
	return nil
}

// Read returns the stored record, or nil when the user has none.
func (r *PreferenceRepository) Read(ctx context.Context, userID string) (*model.PreferenceRecord, error) {
	record, err := r.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return record, err
}

// Write stores record for userID in one transaction. With merge set, sections
// the record leaves nil keep their stored values.
func (r *PreferenceRepository) Write(ctx context.Context, userID string, record model.PreferenceRecord, merge bool) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	existing, err := r.GetTx(ctx, tx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	record.UserID = userID
	next := MergeRecord(existing, record, merge)
	if err := r.PutTx(ctx, tx, existing, &next); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit preference record: %w", err)
	}
	return nil
}

// MergeRecord computes the document that replaces existing. Without merge, or
// when nothing is stored yet, incoming wins outright.
func MergeRecord(existing *model.PreferenceRecord, incoming model.PreferenceRecord, merge bool) model.PreferenceRecord {
	if !merge || existing == nil {
		return incoming
	}

	next := *existing
	next.Overlay(incoming.LocalSnapshot)
	if incoming.Email != "" {
		next.Email = incoming.Email
	}
	if incoming.DisplayName != "" {
		next.DisplayName = incoming.DisplayName
	}
	if incoming.MigratedAt != nil {
		next.MigratedAt = incoming.MigratedAt
	}
	return next
}

const selectPreferenceRecord = `SELECT user_id, email, display_name, document, migrated_at, version, updated_at
	 FROM preference_records WHERE user_id = ?`

func scanPreferenceRecord(s scanner) (*model.PreferenceRecord, error) {
	record := model.PreferenceRecord{}
	var document string
	var migratedAt sql.NullString
	var updatedAt string
	err := s.Scan(
		&record.UserID,
		&record.Email,
		&record.DisplayName,
		&document,
		&migratedAt,
		&record.Version,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan preference record: %w", err)
	}

	if err := json.Unmarshal([]byte(document), &record.LocalSnapshot); err != nil {
		return nil, fmt.Errorf("decode preference document: %w", err)
	}
	if migratedAt.Valid {
		parsed, parseErr := parseTime(migratedAt.String)
		if parseErr != nil {
			return nil, fmt.Errorf("parse preference migrated_at: %w", parseErr)
		}
		record.MigratedAt = &parsed
	}
	parsedUpdatedAt, err := parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse preference updated_at: %w", err)
	}
	record.UpdatedAt = parsedUpdatedAt
	return &record, nil
}
