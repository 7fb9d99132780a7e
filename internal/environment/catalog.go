package environment

type TrackCategory string

const (
	CategoryAmbient  TrackCategory = "ambient"
	CategoryMusic    TrackCategory = "music"
	CategoryNature   TrackCategory = "nature"
	CategoryBinaural TrackCategory = "binaural"
)

type Track struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Category      TrackCategory `json:"category"`
	URL           string        `json:"url"`
	DefaultVolume int           `json:"defaultVolume"`
}

type Environment struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Background string  `json:"background"`
	Tracks     []Track `json:"tracks"`
}

// Catalog is an immutable, ordered list of environments.
type Catalog struct {
	items []Environment
	byID  map[string]int
}

func NewCatalog(items []Environment) *Catalog {
	c := &Catalog{items: make([]Environment, len(items)), byID: make(map[string]int, len(items))}
	copy(c.items, items)
	for i, env := range c.items {
		c.byID[env.ID] = i
	}
	return c
}

func (c *Catalog) List() []Environment {
	out := make([]Environment, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Catalog) Get(id string) (Environment, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Environment{}, false
	}
	return c.items[i], true
}

// Track finds a track by id across all environments.
func (c *Catalog) Track(id string) (Track, bool) {
	for _, env := range c.items {
		for _, tr := range env.Tracks {
			if tr.ID == id {
				return tr, true
			}
		}
	}
	return Track{}, false
}

var defaultEnvironments = []Environment{
	{
		ID:         "forest",
		Name:       "Forest Retreat",
		Background: "/images/environments/forest.jpg",
		Tracks: []Track{
			{ID: "forest-birds", Name: "Forest Birds", Category: CategoryNature, URL: "/audio/forest-birds.mp3", DefaultVolume: 60},
			{ID: "wind-leaves", Name: "Wind in Leaves", Category: CategoryNature, URL: "/audio/wind-leaves.mp3", DefaultVolume: 40},
		},
	},
	{
		ID:         "cafe",
		Name:       "Coffee Shop",
		Background: "/images/environments/cafe.jpg",
		Tracks: []Track{
			{ID: "cafe-chatter", Name: "Cafe Chatter", Category: CategoryAmbient, URL: "/audio/cafe-chatter.mp3", DefaultVolume: 50},
			{ID: "lofi-beats", Name: "Lo-fi Beats", Category: CategoryMusic, URL: "/audio/lofi-beats.mp3", DefaultVolume: 40},
		},
	},
	{
		ID:         "rain",
		Name:       "Rainy Day",
		Background: "/images/environments/rain.jpg",
		Tracks: []Track{
			{ID: "rain-window", Name: "Rain on Window", Category: CategoryNature, URL: "/audio/rain-window.mp3", DefaultVolume: 70},
			{ID: "distant-thunder", Name: "Distant Thunder", Category: CategoryNature, URL: "/audio/distant-thunder.mp3", DefaultVolume: 30},
		},
	},
	{
		ID:         "night-city",
		Name:       "Night City",
		Background: "/images/environments/night-city.jpg",
		Tracks: []Track{
			{ID: "city-traffic", Name: "City Traffic", Category: CategoryAmbient, URL: "/audio/city-traffic.mp3", DefaultVolume: 40},
		},
	},
	{
		ID:         "ocean",
		Name:       "Ocean Waves",
		Background: "/images/environments/ocean.jpg",
		Tracks: []Track{
			{ID: "ocean-waves", Name: "Ocean Waves", Category: CategoryNature, URL: "/audio/ocean-waves.mp3", DefaultVolume: 70},
			{ID: "focus-binaural", Name: "Focus Binaural", Category: CategoryBinaural, URL: "/audio/focus-binaural.mp3", DefaultVolume: 25},
		},
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return NewCatalog(defaultEnvironments)
}
