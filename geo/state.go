package geo

import (
	"sort"
	"sync"
	"time"
)

// RegionSnapshot is a copy of a region's sites with the receive time of the
// most recent update.
type RegionSnapshot struct {
	RegionID  string    `json:"regionId"`
	Points    PointSet  `json:"points"`
	Color     string    `json:"color,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SiteStore tracks live site data per region for the HTTP endpoints and the
// summary publisher. Updates arrive over MQTT one site at a time or as full
// region replacements.
type SiteStore struct {
	mu      sync.RWMutex
	regions map[string]map[int]Point // region ID -> site ID -> site
	colors  map[string]string        // region ID -> hex color
	updated map[string]time.Time
	nextID  int
}

// NewSiteStore creates an empty site store
func NewSiteStore() *SiteStore {
	return &SiteStore{
		regions: make(map[string]map[int]Point),
		colors:  make(map[string]string),
		updated: make(map[string]time.Time),
	}
}

// SetColor sets the display color for a region
func (st *SiteStore) SetColor(regionID, hexColor string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.colors[regionID] = hexColor
}

// UpsertSite inserts or updates a single site in a region. An update with a
// negative ID is treated as an insert and assigned the next free ID, which is
// returned.
func (st *SiteStore) UpsertSite(regionID string, p Point) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	sites := st.regions[regionID]
	if sites == nil {
		sites = make(map[int]Point)
		st.regions[regionID] = sites
	}

	if p.ID < 0 {
		p.ID = st.nextID
	}
	if p.ID >= st.nextID {
		st.nextID = p.ID + 1
	}
	p.Group = regionID

	sites[p.ID] = p
	st.updated[regionID] = time.Now()
	return p.ID
}

// RemoveSite deletes a site from a region, reporting whether it existed.
func (st *SiteStore) RemoveSite(regionID string, id int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	sites := st.regions[regionID]
	if _, ok := sites[id]; !ok {
		return false
	}
	delete(sites, id)
	st.updated[regionID] = time.Now()
	return true
}

// ReplaceRegion swaps in a full site list for a region
func (st *SiteStore) ReplaceRegion(regionID string, points PointSet) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sites := make(map[int]Point, len(points))
	for _, p := range points {
		if p.ID < 0 {
			p.ID = st.nextID
		}
		if p.ID >= st.nextID {
			st.nextID = p.ID + 1
		}
		p.Group = regionID
		sites[p.ID] = p
	}
	st.regions[regionID] = sites
	st.updated[regionID] = time.Now()
}

// Region returns a snapshot of one region's sites, sorted by ID.
// The bool is false if the region holds no sites.
func (st *SiteStore) Region(regionID string) (RegionSnapshot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	sites := st.regions[regionID]
	if len(sites) == 0 {
		return RegionSnapshot{}, false
	}
	return RegionSnapshot{
		RegionID:  regionID,
		Points:    sortedSites(sites),
		Color:     st.colors[regionID],
		UpdatedAt: st.updated[regionID],
	}, true
}

// Regions returns snapshots of all regions that hold sites, sorted by region ID
func (st *SiteStore) Regions() []RegionSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.regions))
	for id, sites := range st.regions {
		if len(sites) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	snapshots := make([]RegionSnapshot, 0, len(ids))
	for _, id := range ids {
		snapshots = append(snapshots, RegionSnapshot{
			RegionID:  id,
			Points:    sortedSites(st.regions[id]),
			Color:     st.colors[id],
			UpdatedAt: st.updated[id],
		})
	}
	return snapshots
}

// AllPoints returns every tracked site across all regions, sorted by region
// then ID.
func (st *SiteStore) AllPoints() PointSet {
	var all PointSet
	for _, snap := range st.Regions() {
		all = append(all, snap.Points...)
	}
	return all
}

// HasSites returns true if any region holds at least one site
func (st *SiteStore) HasSites() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, sites := range st.regions {
		if len(sites) > 0 {
			return true
		}
	}
	return false
}

func sortedSites(sites map[int]Point) PointSet {
	points := make(PointSet, 0, len(sites))
	for _, p := range sites {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].ID < points[j].ID })
	return points
}
