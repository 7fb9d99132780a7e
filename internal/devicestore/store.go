// Package devicestore is the device-local key/value persistence for timer,
// environment and theme preferences. Every write replaces a whole document.
package devicestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/peterbourgon/diskv/v3"

	"ataraxia/internal/model"
)

const (
	KeyTimer              = "timer"
	KeyEnvironment        = "environment"
	KeyTheme              = "theme"
	KeyMigrationCompleted = "migration-completed"
	KeySession            = "session"

	tempDirName = ".tmp"
)

// TimerDocument is what the timer persists between runs.
type TimerDocument struct {
	Settings *model.TimerSettings `json:"settings,omitempty"`
	Stats    *model.TimerStats    `json:"stats,omitempty"`
	Mode     model.Mode           `json:"mode,omitempty"`
}

// Session is the signed-in identity kept on the device.
type Session struct {
	Token     string         `json:"token"`
	Identity  model.Identity `json:"identity"`
	ServerURL string         `json:"serverUrl"`
	CreatedAt time.Time      `json:"createdAt"`
}

type migrationMarker struct {
	MigratedAt time.Time `json:"migratedAt"`
}

type Store struct {
	d        *diskv.Diskv
	basePath string
	write    func(key string, val []byte) error
}

func Open(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, errors.New("devicestore: base path is required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, tempDirName), 0o755); err != nil {
		return nil, fmt.Errorf("devicestore: create base path: %w", err)
	}

	d := diskv.New(diskv.Options{
		BasePath: basePath,
		// Writes land in TempDir and are renamed into place.
		TempDir: filepath.Join(basePath, tempDirName),
		// Other processes write the same files, so no read cache.
		CacheSizeMax: 0,
	})
	return &Store{d: d, basePath: basePath, write: d.Write}, nil
}

func (s *Store) BasePath() string {
	return s.basePath
}

// ReadSnapshot returns the raw document for key, or nil when absent.
func (s *Store) ReadSnapshot(key string) ([]byte, error) {
	val, err := s.d.Read(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("devicestore: read %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) WriteSnapshot(key string, data []byte) error {
	if err := s.write(key, data); err != nil {
		return fmt.Errorf("devicestore: write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(key string) error {
	if !s.d.Has(key) {
		return nil
	}
	if err := s.d.Erase(key); err != nil {
		return fmt.Errorf("devicestore: erase %s: %w", key, err)
	}
	return nil
}

func readJSON[T any](s *Store, key string) (*T, error) {
	raw, err := s.ReadSnapshot(key)
	if err != nil || raw == nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("devicestore: decode %s: %w", key, err)
	}
	return &v, nil
}

func (s *Store) writeJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("devicestore: encode %s: %w", key, err)
	}
	return s.WriteSnapshot(key, raw)
}

func (s *Store) LoadTimer() (*TimerDocument, error) {
	return readJSON[TimerDocument](s, KeyTimer)
}

func (s *Store) SaveTimer(doc TimerDocument) error {
	return s.writeJSON(KeyTimer, doc)
}

func (s *Store) LoadEnvironment() (*model.EnvironmentPreferences, error) {
	return readJSON[model.EnvironmentPreferences](s, KeyEnvironment)
}

func (s *Store) SaveEnvironment(prefs model.EnvironmentPreferences) error {
	return s.writeJSON(KeyEnvironment, prefs)
}

func (s *Store) LoadTheme() (*model.ThemePreference, error) {
	return readJSON[model.ThemePreference](s, KeyTheme)
}

func (s *Store) SaveTheme(theme model.ThemePreference) error {
	return s.writeJSON(KeyTheme, theme)
}

// LoadLocalSnapshot bundles everything a migration needs. Sections missing on
// disk stay nil.
func (s *Store) LoadLocalSnapshot() (model.LocalSnapshot, error) {
	var snap model.LocalSnapshot

	timerDoc, err := s.LoadTimer()
	if err != nil {
		return snap, err
	}
	if timerDoc != nil {
		snap.TimerSettings = timerDoc.Settings
		snap.TimerStats = timerDoc.Stats
	}

	if snap.EnvironmentPreferences, err = s.LoadEnvironment(); err != nil {
		return snap, err
	}
	if snap.ThemePreferences, err = s.LoadTheme(); err != nil {
		return snap, err
	}
	return snap, nil
}

// SaveLocalSnapshot writes the non-nil sections of snap. Timer sections are
// merged into the existing timer document so the last mode survives. If any
// write fails, documents already written are put back as they were.
func (s *Store) SaveLocalSnapshot(snap model.LocalSnapshot) error {
	type pending struct {
		key   string
		value any
	}
	var writes []pending

	if snap.TimerSettings != nil || snap.TimerStats != nil {
		doc, err := s.LoadTimer()
		if err != nil {
			return err
		}
		if doc == nil {
			doc = &TimerDocument{}
		}
		if snap.TimerSettings != nil {
			doc.Settings = snap.TimerSettings
		}
		if snap.TimerStats != nil {
			doc.Stats = snap.TimerStats
		}
		writes = append(writes, pending{KeyTimer, *doc})
	}
	if snap.EnvironmentPreferences != nil {
		writes = append(writes, pending{KeyEnvironment, *snap.EnvironmentPreferences})
	}
	if snap.ThemePreferences != nil {
		writes = append(writes, pending{KeyTheme, *snap.ThemePreferences})
	}

	previous := make(map[string][]byte, len(writes))
	for _, w := range writes {
		raw, err := s.ReadSnapshot(w.key)
		if err != nil {
			return err
		}
		previous[w.key] = raw
	}

	for i, w := range writes {
		if err := s.writeJSON(w.key, w.value); err != nil {
			for _, done := range writes[:i] {
				if rbErr := s.restore(done.key, previous[done.key]); rbErr != nil {
					err = errors.Join(err, rbErr)
				}
			}
			return err
		}
	}
	return nil
}

// restore puts back raw under key, removing the key when raw is nil.
func (s *Store) restore(key string, raw []byte) error {
	if raw == nil {
		return s.Delete(key)
	}
	return s.WriteSnapshot(key, raw)
}

// MarkMigrated records that local data was uploaded. The data itself stays.
func (s *Store) MarkMigrated(at time.Time) error {
	return s.writeJSON(KeyMigrationCompleted, migrationMarker{MigratedAt: at.UTC()})
}

func (s *Store) MigratedAt() (*time.Time, error) {
	marker, err := readJSON[migrationMarker](s, KeyMigrationCompleted)
	if err != nil || marker == nil {
		return nil, err
	}
	return &marker.MigratedAt, nil
}

func (s *Store) LoadSession() (*Session, error) {
	return readJSON[Session](s, KeySession)
}

func (s *Store) SaveSession(session Session) error {
	return s.writeJSON(KeySession, session)
}

func (s *Store) ClearSession() error {
	return s.Delete(KeySession)
}
