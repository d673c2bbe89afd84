package geo

import (
	"sync"
	"testing"
	"time"
)

func TestSiteStore_UpsertSite(t *testing.T) {
	store := NewSiteStore()

	id := store.UpsertSite("north", Point{ID: 5, Name: "a", Latitude: 24.5, Longitude: 46.5})
	if id != 5 {
		t.Errorf("UpsertSite() id = %d, want 5 (explicit ID kept)", id)
	}

	snap, ok := store.Region("north")
	if !ok {
		t.Fatal("Region(north) should exist after upsert")
	}
	if len(snap.Points) != 1 {
		t.Fatalf("Region has %d points, want 1", len(snap.Points))
	}
	if snap.Points[0].Group != "north" {
		t.Errorf("Group = %s, want region ID north", snap.Points[0].Group)
	}

	// Upsert with the same ID replaces, not duplicates.
	store.UpsertSite("north", Point{ID: 5, Name: "a moved", Latitude: 24.6, Longitude: 46.6})
	snap, _ = store.Region("north")
	if len(snap.Points) != 1 {
		t.Errorf("Region has %d points after update, want 1", len(snap.Points))
	}
	if snap.Points[0].Name != "a moved" {
		t.Errorf("Name = %s, want 'a moved'", snap.Points[0].Name)
	}
}

func TestSiteStore_UpsertSite_AssignsIDs(t *testing.T) {
	store := NewSiteStore()

	first := store.UpsertSite("north", Point{ID: -1, Latitude: 24.5, Longitude: 46.5})
	second := store.UpsertSite("north", Point{ID: -1, Latitude: 24.6, Longitude: 46.6})

	if first == second {
		t.Errorf("negative-ID inserts got the same ID %d", first)
	}
	if second <= first {
		t.Errorf("IDs should grow: first=%d second=%d", first, second)
	}

	// An explicit high ID bumps the allocator past it.
	store.UpsertSite("north", Point{ID: 100, Latitude: 24.7, Longitude: 46.7})
	next := store.UpsertSite("north", Point{ID: -1, Latitude: 24.8, Longitude: 46.8})
	if next <= 100 {
		t.Errorf("next assigned ID = %d, want > 100", next)
	}
}

func TestSiteStore_RemoveSite(t *testing.T) {
	store := NewSiteStore()
	store.UpsertSite("north", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})

	if !store.RemoveSite("north", 1) {
		t.Error("RemoveSite() should report true for an existing site")
	}
	if store.RemoveSite("north", 1) {
		t.Error("RemoveSite() should report false for an already removed site")
	}
	if store.RemoveSite("absent", 1) {
		t.Error("RemoveSite() should report false for an unknown region")
	}

	if _, ok := store.Region("north"); ok {
		t.Error("Region(north) should report false once empty")
	}
}

func TestSiteStore_ReplaceRegion(t *testing.T) {
	store := NewSiteStore()
	store.UpsertSite("north", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})
	store.UpsertSite("north", Point{ID: 2, Latitude: 24.6, Longitude: 46.6})

	store.ReplaceRegion("north", PointSet{
		{ID: 10, Latitude: 25.0, Longitude: 47.0},
	})

	snap, ok := store.Region("north")
	if !ok {
		t.Fatal("Region(north) missing after replace")
	}
	if len(snap.Points) != 1 || snap.Points[0].ID != 10 {
		t.Errorf("Points after replace = %+v, want single site 10", snap.Points)
	}
}

func TestSiteStore_Regions_SortedAndFiltered(t *testing.T) {
	store := NewSiteStore()
	store.UpsertSite("zulu", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})
	store.UpsertSite("alpha", Point{ID: 2, Latitude: 24.6, Longitude: 46.6})
	store.UpsertSite("mike", Point{ID: 3, Latitude: 24.7, Longitude: 46.7})
	store.RemoveSite("mike", 3) // now empty, must be filtered out

	snapshots := store.Regions()
	if len(snapshots) != 2 {
		t.Fatalf("Regions() = %d snapshots, want 2", len(snapshots))
	}
	if snapshots[0].RegionID != "alpha" || snapshots[1].RegionID != "zulu" {
		t.Errorf("Regions() order = %s, %s; want alpha, zulu",
			snapshots[0].RegionID, snapshots[1].RegionID)
	}
}

func TestSiteStore_Region_SortedByID(t *testing.T) {
	store := NewSiteStore()
	store.UpsertSite("north", Point{ID: 3, Latitude: 24.7, Longitude: 46.7})
	store.UpsertSite("north", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})
	store.UpsertSite("north", Point{ID: 2, Latitude: 24.6, Longitude: 46.6})

	snap, _ := store.Region("north")
	for i := 1; i < len(snap.Points); i++ {
		if snap.Points[i-1].ID > snap.Points[i].ID {
			t.Fatalf("Points not sorted by ID: %+v", snap.Points)
		}
	}
}

func TestSiteStore_SnapshotIsolation(t *testing.T) {
	store := NewSiteStore()
	store.UpsertSite("north", Point{ID: 1, Name: "original", Latitude: 24.5, Longitude: 46.5})

	snap, _ := store.Region("north")
	snap.Points[0].Name = "mutated"

	again, _ := store.Region("north")
	if again.Points[0].Name != "original" {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestSiteStore_AllPoints(t *testing.T) {
	store := NewSiteStore()
	store.UpsertSite("south", Point{ID: 1, Latitude: 24.1, Longitude: 46.1})
	store.UpsertSite("north", Point{ID: 2, Latitude: 24.5, Longitude: 46.5})
	store.UpsertSite("north", Point{ID: 3, Latitude: 24.6, Longitude: 46.6})

	all := store.AllPoints()
	if len(all) != 3 {
		t.Fatalf("AllPoints() = %d points, want 3", len(all))
	}
	// Region order first (north before south), site ID order within.
	if all[0].Group != "north" || all[2].Group != "south" {
		t.Errorf("AllPoints() order = %s, %s, %s; want north, north, south",
			all[0].Group, all[1].Group, all[2].Group)
	}
}

func TestSiteStore_HasSites(t *testing.T) {
	store := NewSiteStore()
	if store.HasSites() {
		t.Error("empty store should not have sites")
	}

	store.UpsertSite("north", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})
	if !store.HasSites() {
		t.Error("store with one site should report HasSites")
	}

	store.RemoveSite("north", 1)
	if store.HasSites() {
		t.Error("store should not report sites after removal")
	}
}

func TestSiteStore_SetColor(t *testing.T) {
	store := NewSiteStore()
	store.SetColor("north", "#2a6fdb")
	store.UpsertSite("north", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})

	snap, _ := store.Region("north")
	if snap.Color != "#2a6fdb" {
		t.Errorf("Color = %s, want #2a6fdb", snap.Color)
	}
}

func TestSiteStore_UpdatedAt(t *testing.T) {
	store := NewSiteStore()
	before := time.Now()
	store.UpsertSite("north", Point{ID: 1, Latitude: 24.5, Longitude: 46.5})

	snap, _ := store.Region("north")
	if snap.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt = %v, want at or after %v", snap.UpdatedAt, before)
	}
}

func TestSiteStore_ConcurrentAccess(t *testing.T) {
	store := NewSiteStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.UpsertSite("north", Point{ID: -1, Latitude: 24.5, Longitude: 46.5})
				_ = store.AllPoints()
				_, _ = store.Region("north")
				_ = store.Regions()
				_ = store.HasSites()
			}
		}(i)
	}
	wg.Wait()

	// 10 goroutines x 100 inserts, all with assigned IDs.
	all := store.AllPoints()
	if len(all) != 1000 {
		t.Errorf("AllPoints() = %d, want 1000", len(all))
	}
}
