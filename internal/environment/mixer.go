// Package environment holds the focus environment catalog and the volume
// preferences applied to it. Playback itself happens elsewhere.
package environment

import (
	"slices"

	"ataraxia/internal/model"
)

// Mixer mutates EnvironmentPreferences. Volumes are clamped to 0–100 and
// unknown ids are ignored.
type Mixer struct {
	catalog *Catalog
	prefs   model.EnvironmentPreferences
}

func NewMixer(catalog *Catalog, prefs model.EnvironmentPreferences) *Mixer {
	prefs.MasterVolume = clampVolume(prefs.MasterVolume)
	tracks := make(map[string]int, len(prefs.TrackVolumes))
	for id, v := range prefs.TrackVolumes {
		tracks[id] = clampVolume(v)
	}
	prefs.TrackVolumes = tracks
	prefs.FavoriteEnvironments = slices.Clone(prefs.FavoriteEnvironments)
	return &Mixer{catalog: catalog, prefs: prefs}
}

func (m *Mixer) Preferences() model.EnvironmentPreferences {
	out := m.prefs
	out.TrackVolumes = make(map[string]int, len(m.prefs.TrackVolumes))
	for id, v := range m.prefs.TrackVolumes {
		out.TrackVolumes[id] = v
	}
	out.FavoriteEnvironments = slices.Clone(m.prefs.FavoriteEnvironments)
	return out
}

func (m *Mixer) Current() (Environment, bool) {
	return m.catalog.Get(m.prefs.CurrentEnvironmentID)
}

func (m *Mixer) SetCurrentEnvironment(id string) bool {
	if _, ok := m.catalog.Get(id); !ok {
		return false
	}
	m.prefs.CurrentEnvironmentID = id
	return true
}

func (m *Mixer) SetMasterVolume(v int) {
	m.prefs.MasterVolume = clampVolume(v)
}

func (m *Mixer) SetTrackVolume(trackID string, v int) bool {
	if _, ok := m.catalog.Track(trackID); !ok {
		return false
	}
	m.prefs.TrackVolumes[trackID] = clampVolume(v)
	return true
}

func (m *Mixer) SetMuted(muted bool) {
	m.prefs.AudioMuted = muted
}

// ToggleFavorite adds or removes id from the favourites and reports whether it
// is now a favourite.
func (m *Mixer) ToggleFavorite(id string) bool {
	if _, ok := m.catalog.Get(id); !ok {
		return false
	}
	if i := slices.Index(m.prefs.FavoriteEnvironments, id); i >= 0 {
		m.prefs.FavoriteEnvironments = slices.Delete(m.prefs.FavoriteEnvironments, i, i+1)
		return false
	}
	m.prefs.FavoriteEnvironments = append(m.prefs.FavoriteEnvironments, id)
	return true
}

// TrackVolume is the track's own level: the override if set, else its default.
func (m *Mixer) TrackVolume(trackID string) int {
	if v, ok := m.prefs.TrackVolumes[trackID]; ok {
		return v
	}
	tr, ok := m.catalog.Track(trackID)
	if !ok {
		return 0
	}
	return clampVolume(tr.DefaultVolume)
}

// EffectiveVolume is what the audio engine should play the track at.
func (m *Mixer) EffectiveVolume(trackID string) int {
	if m.prefs.AudioMuted {
		return 0
	}
	return m.prefs.MasterVolume * m.TrackVolume(trackID) / 100
}

func clampVolume(v int) int {
	return max(0, min(100, v))
}
