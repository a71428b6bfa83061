package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if store.Len() != 0 {
		t.Errorf("New store should be empty, got %d snapshots", store.Len())
	}
}

func TestMemoryStore_Put_Get(t *testing.T) {
	tests := []struct {
		name     string
		snapshot BatchSnapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: BatchSnapshot{
				Group:           "test-api",
				ModelName:       "AutoETS",
				GeneratedAt:     time.Now(),
				StepSeconds:     60,
				HorizonSeconds:  1800,
				ConfidenceLevel: 0.9,
				Point:           []float64{100, 110, 120},
			},
			wantErr: false,
		},
		{
			name: "empty group",
			snapshot: BatchSnapshot{
				ModelName:      "AutoETS",
				GeneratedAt:    time.Now(),
				StepSeconds:    60,
				HorizonSeconds: 1800,
				Point:          []float64{100},
			},
			wantErr: true,
		},
		{
			name: "minimal valid snapshot",
			snapshot: BatchSnapshot{
				Group: "minimal",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()

			err := store.Put(context.Background(), tt.snapshot)
			if (err != nil) != tt.wantErr {
				t.Errorf("Put() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErr {
				return
			}

			got, found, err := store.GetLatest(context.Background(), tt.snapshot.Group)
			if err != nil {
				t.Errorf("GetLatest() unexpected error = %v", err)
				return
			}

			if !found {
				t.Errorf("GetLatest() found = false, want true")
				return
			}

			if got.Group != tt.snapshot.Group {
				t.Errorf("Group = %q, want %q", got.Group, tt.snapshot.Group)
			}
			if got.ModelName != tt.snapshot.ModelName {
				t.Errorf("ModelName = %q, want %q", got.ModelName, tt.snapshot.ModelName)
			}
			if got.StepSeconds != tt.snapshot.StepSeconds {
				t.Errorf("StepSeconds = %d, want %d", got.StepSeconds, tt.snapshot.StepSeconds)
			}
			if got.HorizonSeconds != tt.snapshot.HorizonSeconds {
				t.Errorf("HorizonSeconds = %d, want %d", got.HorizonSeconds, tt.snapshot.HorizonSeconds)
			}
		})
	}
}

func TestMemoryStore_GetLatest_NotFound(t *testing.T) {
	store := NewMemoryStore()

	snapshot, found, err := store.GetLatest(context.Background(), "nonexistent")
	if err != nil {
		t.Errorf("GetLatest() unexpected error = %v", err)
	}
	if found {
		t.Error("GetLatest() found = true for nonexistent group, want false")
	}
	if snapshot.Group != "" {
		t.Errorf("GetLatest() returned non-zero snapshot for nonexistent group")
	}
}

func TestMemoryStore_Put_Update(t *testing.T) {
	store := NewMemoryStore()
	group := "update-test"

	snapshot1 := BatchSnapshot{
		Group:       group,
		ModelName:   "AutoETS",
		GeneratedAt: time.Now(),
		Point:       []float64{2, 3, 3},
	}
	if err := store.Put(context.Background(), snapshot1); err != nil {
		t.Fatalf("Put() first snapshot error = %v", err)
	}

	snapshot2 := BatchSnapshot{
		Group:       group,
		ModelName:   "AutoETS",
		GeneratedAt: time.Now().Add(time.Minute),
		Point:       []float64{5, 6, 7},
	}
	if err := store.Put(context.Background(), snapshot2); err != nil {
		t.Fatalf("Put() second snapshot error = %v", err)
	}

	got, found, err := store.GetLatest(context.Background(), group)
	if err != nil {
		t.Fatalf("GetLatest() error = %v", err)
	}
	if !found {
		t.Fatal("GetLatest() found = false, want true")
	}

	if len(got.Point) != 3 || got.Point[0] != 5 {
		t.Errorf("GetLatest() returned old snapshot, want updated one")
	}

	if store.Len() != 1 {
		t.Errorf("Len() = %d after update, want 1", store.Len())
	}
}

func TestMemoryStore_MultipleGroups(t *testing.T) {
	store := NewMemoryStore()

	groups := []string{"api-1", "api-2", "api-3"}
	for _, group := range groups {
		snapshot := BatchSnapshot{
			Group:     group,
			ModelName: "AutoETS",
			Point:     []float64{2},
		}
		if err := store.Put(context.Background(), snapshot); err != nil {
			t.Fatalf("Put(%s) error = %v", group, err)
		}
	}

	if store.Len() != len(groups) {
		t.Errorf("Len() = %d, want %d", store.Len(), len(groups))
	}

	for _, group := range groups {
		got, found, err := store.GetLatest(context.Background(), group)
		if err != nil {
			t.Errorf("GetLatest(%s) error = %v", group, err)
		}
		if !found {
			t.Errorf("GetLatest(%s) found = false, want true", group)
		}
		if got.Group != group {
			t.Errorf("GetLatest(%s) returned group %q", group, got.Group)
		}
	}
}

func TestMemoryStore_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	group := "concurrent-test"

	numGoroutines := 100
	numOperations := 100

	var wg sync.WaitGroup

	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func(id int) {
			defer wg.Done()
			for j := range numOperations {
				snapshot := BatchSnapshot{
					Group:       group,
					ModelName:   "AutoETS",
					GeneratedAt: time.Now(),
					Point:       []float64{float64(id), float64(j)},
				}
				if err := store.Put(context.Background(), snapshot); err != nil {
					t.Errorf("Concurrent Put() error = %v", err)
				}
			}
		}(i)
	}

	wg.Add(numGoroutines)
	for range numGoroutines {
		go func() {
			defer wg.Done()
			for range numOperations {
				_, _, err := store.GetLatest(context.Background(), group)
				if err != nil {
					t.Errorf("Concurrent GetLatest() error = %v", err)
				}
			}
		}()
	}

	wg.Wait()

	snapshot, found, err := store.GetLatest(context.Background(), group)
	if err != nil {
		t.Errorf("Final GetLatest() error = %v", err)
	}
	if !found {
		t.Error("Final GetLatest() found = false after concurrent operations")
	}
	if snapshot.Group != group {
		t.Errorf("Final snapshot has group %q, want %q", snapshot.Group, group)
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d after concurrent operations, want 1", store.Len())
	}
}

func TestMemoryStore_ConcurrentMultipleGroups(t *testing.T) {
	store := NewMemoryStore()
	groups := []string{"api-1", "api-2", "api-3", "api-4", "api-5"}

	var wg sync.WaitGroup

	for _, group := range groups {
		wg.Add(1)
		go func(g string) {
			defer wg.Done()
			for i := range 100 {
				snapshot := BatchSnapshot{
					Group:       g,
					ModelName:   "AutoETS",
					GeneratedAt: time.Now(),
					Point:       []float64{float64(i)},
				}
				if err := store.Put(context.Background(), snapshot); err != nil {
					t.Errorf("Put(%s) error = %v", g, err)
				}
			}
		}(group)
	}

	wg.Wait()

	if store.Len() != len(groups) {
		t.Errorf("Len() = %d after concurrent multi-group writes, want %d", store.Len(), len(groups))
	}

	for _, group := range groups {
		snapshot, found, err := store.GetLatest(context.Background(), group)
		if err != nil {
			t.Errorf("GetLatest(%s) error = %v", group, err)
		}
		if !found {
			t.Errorf("GetLatest(%s) found = false, want true", group)
		}
		if snapshot.Group != group {
			t.Errorf("GetLatest(%s) returned group %q", group, snapshot.Group)
		}
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()

	snapshot := BatchSnapshot{
		Group:     "delete-test",
		ModelName: "AutoETS",
	}
	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	deleted := store.Delete("delete-test")
	if !deleted {
		t.Error("Delete() returned false, want true for existing group")
	}

	_, found, _ := store.GetLatest(context.Background(), "delete-test")
	if found {
		t.Error("GetLatest() found = true after delete, want false")
	}

	if store.Len() != 0 {
		t.Errorf("Len() = %d after delete, want 0", store.Len())
	}

	deleted = store.Delete("nonexistent")
	if deleted {
		t.Error("Delete() returned true for nonexistent group, want false")
	}
}

func TestMemoryStore_Len(t *testing.T) {
	store := NewMemoryStore()

	if store.Len() != 0 {
		t.Errorf("Initial Len() = %d, want 0", store.Len())
	}

	for i := 1; i <= 5; i++ {
		snapshot := BatchSnapshot{
			Group:     string(rune('a' + i - 1)),
			ModelName: "test",
		}
		if err := store.Put(context.Background(), snapshot); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		if store.Len() != i {
			t.Errorf("Len() = %d after %d puts, want %d", store.Len(), i, i)
		}
	}
}

func TestMemoryStoreWithTTL_Expiration(t *testing.T) {
	ttl := 100 * time.Millisecond
	cleanupInterval := 50 * time.Millisecond
	store := NewMemoryStoreWithTTL(ttl, cleanupInterval)
	defer store.Stop()

	snapshot := BatchSnapshot{
		Group:       "ttl-test",
		GeneratedAt: time.Now(),
		ModelName:   "AutoETS",
	}
	if err := store.Put(context.Background(), snapshot); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	_, found, _ := store.GetLatest(context.Background(), "ttl-test")
	if !found {
		t.Fatal("Snapshot should exist immediately after Put")
	}

	time.Sleep(ttl + cleanupInterval + 50*time.Millisecond)

	_, found, _ = store.GetLatest(context.Background(), "ttl-test")
	if found {
		t.Error("Snapshot should be removed after TTL expiration")
	}

	if store.Len() != 0 {
		t.Errorf("Store should be empty after cleanup, got %d snapshots", store.Len())
	}
}

func TestMemoryStoreWithTTL_MultipleSnapshots(t *testing.T) {
	ttl := 200 * time.Millisecond
	cleanupInterval := 50 * time.Millisecond
	store := NewMemoryStoreWithTTL(ttl, cleanupInterval)
	defer store.Stop()

	oldSnapshot := BatchSnapshot{
		Group:       "old",
		GeneratedAt: time.Now().Add(-300 * time.Millisecond),
		ModelName:   "AutoETS",
	}
	if err := store.Put(context.Background(), oldSnapshot); err != nil {
		t.Fatalf("Put(oldSnapshot) error = %v", err)
	}

	freshSnapshot := BatchSnapshot{
		Group:       "fresh",
		GeneratedAt: time.Now(),
		ModelName:   "AutoETS",
	}
	if err := store.Put(context.Background(), freshSnapshot); err != nil {
		t.Fatalf("Put(freshSnapshot) error = %v", err)
	}

	time.Sleep(cleanupInterval + 50*time.Millisecond)

	_, found, _ := store.GetLatest(context.Background(), "old")
	if found {
		t.Error("Old snapshot should be removed")
	}

	_, found, _ = store.GetLatest(context.Background(), "fresh")
	if !found {
		t.Error("Fresh snapshot should still exist")
	}

	if store.Len() != 1 {
		t.Errorf("Store should have 1 snapshot, got %d", store.Len())
	}
}

func TestMemoryStoreWithTTL_Stop(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, time.Second)

	if err := store.Put(context.Background(), BatchSnapshot{
		Group:       "test",
		GeneratedAt: time.Now(),
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		store.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() did not complete within timeout")
	}

	store.Stop()
}

func TestMemoryStore_StopWithoutTTL(t *testing.T) {
	store := NewMemoryStore()

	store.Stop()

	err := store.Put(context.Background(), BatchSnapshot{
		Group: "test",
	})
	if err != nil {
		t.Errorf("Put() after Stop() error = %v", err)
	}
}

func TestMemoryStoreWithTTL_PanicOnInvalidTTL(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewMemoryStoreWithTTL should panic with zero TTL")
		}
	}()

	NewMemoryStoreWithTTL(0, time.Second)
}

func TestMemoryStoreWithTTL_DefaultCleanupInterval(t *testing.T) {
	store := NewMemoryStoreWithTTL(time.Minute, 0)
	defer store.Stop()

	if store.cleanupTicker == nil {
		t.Error("Cleanup ticker should be initialized")
	}
}

func TestMemoryStoreWithTTL_UpdateResetsTTL(t *testing.T) {
	ttl := 200 * time.Millisecond
	cleanupInterval := 50 * time.Millisecond
	store := NewMemoryStoreWithTTL(ttl, cleanupInterval)
	defer store.Stop()

	group := "update-ttl-test"

	if err := store.Put(context.Background(), BatchSnapshot{
		Group:       group,
		GeneratedAt: time.Now().Add(-250 * time.Millisecond),
		Point:       []float64{1},
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	time.Sleep(cleanupInterval + 20*time.Millisecond)

	if err := store.Put(context.Background(), BatchSnapshot{
		Group:       group,
		GeneratedAt: time.Now(),
		Point:       []float64{2},
	}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	time.Sleep(cleanupInterval + 20*time.Millisecond)

	snapshot, found, _ := store.GetLatest(context.Background(), group)
	if !found {
		t.Error("Updated snapshot should still exist")
	}
	if len(snapshot.Point) > 0 && snapshot.Point[0] != 2 {
		t.Error("Should have the updated snapshot data")
	}
}

func TestMemoryStoreWithTTL_ConcurrentWithCleanup(t *testing.T) {
	ttl := 200 * time.Millisecond
	cleanupInterval := 30 * time.Millisecond
	store := NewMemoryStoreWithTTL(ttl, cleanupInterval)
	defer store.Stop()

	var wg sync.WaitGroup
	numGoroutines := 50

	wg.Add(numGoroutines)
	for i := range numGoroutines {
		go func(id int) {
			defer wg.Done()
			group := fmt.Sprintf("group-%d", id)

			for range 20 {
				if err := store.Put(context.Background(), BatchSnapshot{
					Group:       group,
					GeneratedAt: time.Now(),
					ModelName:   "test",
				}); err != nil {
					t.Errorf("Put(%s) error = %v", group, err)
				}

				if _, _, err := store.GetLatest(context.Background(), group); err != nil {
					t.Errorf("GetLatest(%s) error = %v", group, err)
				}

				time.Sleep(10 * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	if store.Len() != numGoroutines {
		t.Logf("Warning: Expected %d snapshots, got %d (some may have expired during test)", numGoroutines, store.Len())
	}
}

func BenchmarkMemoryStore_ConcurrentAccess(b *testing.B) {
	store := NewMemoryStore()
	groups := []string{"api-1", "api-2", "api-3"}

	for _, g := range groups {
		if err := store.Put(context.Background(), BatchSnapshot{
			Group: g,
			Point: []float64{1, 2, 3},
		}); err != nil {
			b.Fatalf("Put() error = %v", err)
		}
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			group := groups[i%len(groups)]
			if i%2 == 0 {
				if err := store.Put(context.Background(), BatchSnapshot{
					Group: group,
					Point: []float64{float64(i)},
				}); err != nil {
					_ = err
				}
			} else {
				if _, _, err := store.GetLatest(context.Background(), group); err != nil {
					_ = err
				}
			}
			i++
		}
	})
}
