package sharding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/gorm"
)

func twoShardCluster(t *testing.T) (*Cluster, *gorm.DB, *gorm.DB) {
	t.Helper()
	shard0 := &gorm.DB{}
	shard1 := &gorm.DB{}
	cluster, err := NewCluster([]*gorm.DB{shard0, shard1})
	if err != nil {
		t.Fatalf("NewCluster: %v", err)
	}
	return cluster, shard0, shard1
}

func TestResolveWithoutDirectiveUsesDefaultShard(t *testing.T) {
	cluster, shard0, _ := twoShardCluster(t)

	db, err := cluster.DB(context.Background())
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if db != shard0 {
		t.Error("no directive should resolve to shard 0")
	}
}

func TestResolveWithDirective(t *testing.T) {
	cluster, shard0, shard1 := twoShardCluster(t)

	tests := []struct {
		name   string
		roomID int64
		want   *gorm.DB
	}{
		{name: "odd room routes to shard 1", roomID: 7, want: shard1},
		{name: "even room routes to shard 0", roomID: 4, want: shard0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRoom(context.Background(), tt.roomID)
			db, err := cluster.DB(ctx)
			if err != nil {
				t.Fatalf("DB: %v", err)
			}
			if db != tt.want {
				t.Errorf("room %d resolved to the wrong shard", tt.roomID)
			}
		})
	}
}

func TestDetachClearsDirective(t *testing.T) {
	cluster, shard0, _ := twoShardCluster(t)

	ctx := WithRoom(context.Background(), 7)
	ctx = Detach(ctx)

	if _, ok := RoomFrom(ctx); ok {
		t.Fatal("detached context still carries a directive")
	}

	db, err := cluster.DB(ctx)
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if db != shard0 {
		t.Error("detached context should resolve to shard 0, not the previously attached shard")
	}
}

// Worker pools reuse goroutines across unrelated operations. A directive set
// for one operation must never be visible to the next operation executed on
// the same worker when that operation set no directive of its own.
func TestDirectiveDoesNotLeakAcrossSequentialOperations(t *testing.T) {
	cluster, shard0, shard1 := twoShardCluster(t)

	// First logical operation: scoped to room 7, runs on shard 1.
	err := Scoped(context.Background(), 7, func(ctx context.Context) error {
		db, err := cluster.DB(ctx)
		if err != nil {
			return err
		}
		if db != shard1 {
			t.Error("scoped operation for room 7 should hit shard 1")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Scoped: %v", err)
	}

	// Second, unrelated operation on the same goroutine with a fresh context:
	// must default to shard 0.
	db, err := cluster.DB(context.Background())
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if db != shard0 {
		t.Error("directive leaked onto a subsequent unrelated operation")
	}
}

func TestDirectiveIsIsolatedAcrossConcurrentOperations(t *testing.T) {
	cluster, shard0, shard1 := twoShardCluster(t)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				// Operation with no directive: always shard 0.
				db, err := cluster.DB(context.Background())
				if err != nil {
					t.Errorf("DB: %v", err)
					return
				}
				if db != shard0 {
					t.Error("concurrent undirected operation resolved off the default shard")
				}
				return
			}
			ctx := WithRoom(context.Background(), 7)
			db, err := cluster.DB(ctx)
			if err != nil {
				t.Errorf("DB: %v", err)
				return
			}
			if db != shard1 {
				t.Error("concurrent directed operation resolved to the wrong shard")
			}
		}(i)
	}
	wg.Wait()
}

func TestScopedReleasesDirectiveOnError(t *testing.T) {
	cluster, shard0, _ := twoShardCluster(t)

	base := context.Background()
	wantErr := errors.New("storage failed")
	err := Scoped(base, 7, func(ctx context.Context) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Scoped should propagate fn's error, got %v", err)
	}

	db, err := cluster.DB(base)
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	if db != shard0 {
		t.Error("directive survived a failed scoped operation")
	}
}

func TestInvalidShardKeyFailsInsteadOfMisrouting(t *testing.T) {
	cluster, _, _ := twoShardCluster(t)

	ctx := WithRoom(context.Background(), -1)
	if _, err := cluster.DB(ctx); !errors.Is(err, ErrInvalidShardKey) {
		t.Errorf("negative room id should fail with ErrInvalidShardKey, got %v", err)
	}
}

func TestShardIndexBounds(t *testing.T) {
	cluster, shard0, shard1 := twoShardCluster(t)

	if db, err := cluster.Shard(0); err != nil || db != shard0 {
		t.Errorf("Shard(0) = %v, %v", db, err)
	}
	if db, err := cluster.Shard(1); err != nil || db != shard1 {
		t.Errorf("Shard(1) = %v, %v", db, err)
	}
	if _, err := cluster.Shard(2); err == nil {
		t.Error("Shard(2) should be out of range")
	}
	if _, err := cluster.Shard(-1); err == nil {
		t.Error("Shard(-1) should be out of range")
	}
}
