package db

import (
	"fmt"
	"path/filepath"
	"testing"
)

// openProviders returns every engine that can run inside a test, backed
// by per-test scratch space. Postgres needs a server and is exercised in
// deployment, not here.
func openProviders(t *testing.T) map[string]IterableProvider {
	t.Helper()

	providers := map[string]IterableProvider{
		"memory": NewMemoryProvider(),
	}

	boltProvider, err := NewBoltProvider(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open bolt provider: %v", err)
	}
	providers["bolt"] = boltProvider.(IterableProvider)

	levelProvider, err := NewLevelDBProvider(filepath.Join(t.TempDir(), "leveldb"))
	if err != nil {
		t.Fatalf("open leveldb provider: %v", err)
	}
	providers["leveldb"] = levelProvider.(IterableProvider)

	for _, p := range providers {
		provider := p
		t.Cleanup(func() { provider.Close() })
	}
	return providers
}

func TestProviderPutGetDelete(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			key := []byte("account:abc")
			value := []byte("hello")

			if err := provider.Put(key, value); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := provider.Get(key)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if string(got) != string(value) {
				t.Errorf("Expected %q, got %q", value, got)
			}

			has, err := provider.Has(key)
			if err != nil || !has {
				t.Errorf("Expected Has=true, got %v err=%v", has, err)
			}

			if err := provider.Delete(key); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			got, err = provider.Get(key)
			if err != nil {
				t.Fatalf("Get after delete failed: %v", err)
			}
			if got != nil {
				t.Errorf("Expected nil after delete, got %q", got)
			}
		})
	}
}

func TestProviderMissingKeyIsNil(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			got, err := provider.Get([]byte("never-written"))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != nil {
				t.Errorf("Expected nil for missing key, got %q", got)
			}
		})
	}
}

func TestProviderGetBatch(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				key := fmt.Sprintf("k%d", i)
				if err := provider.Put([]byte(key), []byte(fmt.Sprintf("v%d", i))); err != nil {
					t.Fatalf("Put failed: %v", err)
				}
			}

			result, err := provider.GetBatch([][]byte{
				[]byte("k1"), []byte("k3"), []byte("missing"),
			})
			if err != nil {
				t.Fatalf("GetBatch failed: %v", err)
			}
			if len(result) != 2 {
				t.Fatalf("Expected 2 results, got %d", len(result))
			}
			if string(result["k1"]) != "v1" || string(result["k3"]) != "v3" {
				t.Errorf("Unexpected batch values: %v", result)
			}
		})
	}
}

func TestProviderBatchIsInvisibleUntilWrite(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			batch := provider.Batch()
			defer batch.Close()

			batch.Put([]byte("staged"), []byte("1"))

			got, err := provider.Get([]byte("staged"))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != nil {
				t.Error("Staged write visible before Write")
			}

			if err := batch.Write(); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			got, err = provider.Get([]byte("staged"))
			if err != nil || string(got) != "1" {
				t.Errorf("Expected staged value after Write, got %q err=%v", got, err)
			}
		})
	}
}

func TestProviderBatchReset(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			batch := provider.Batch()
			defer batch.Close()

			batch.Put([]byte("dropme"), []byte("1"))
			batch.Reset()
			if err := batch.Write(); err != nil {
				t.Fatalf("Write failed: %v", err)
			}

			got, err := provider.Get([]byte("dropme"))
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != nil {
				t.Error("Reset batch still applied its writes")
			}
		})
	}
}

func TestProviderIteratePrefixOrdered(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			// scrambled insert order, two keyspaces
			puts := []string{"rec:c", "acc:1", "rec:a", "rec:b", "acc:2"}
			for _, key := range puts {
				if err := provider.Put([]byte(key), []byte(key)); err != nil {
					t.Fatalf("Put failed: %v", err)
				}
			}

			var seen []string
			err := provider.IteratePrefix([]byte("rec:"), func(key, value []byte) bool {
				seen = append(seen, string(key))
				return true
			})
			if err != nil {
				t.Fatalf("IteratePrefix failed: %v", err)
			}

			want := []string{"rec:a", "rec:b", "rec:c"}
			if len(seen) != len(want) {
				t.Fatalf("Expected %d keys, got %d: %v", len(want), len(seen), seen)
			}
			for i := range want {
				if seen[i] != want[i] {
					t.Errorf("Expected key %s at position %d, got %s", want[i], i, seen[i])
				}
			}

			// early stop
			count := 0
			err = provider.IteratePrefix([]byte("rec:"), func(key, value []byte) bool {
				count++
				return false
			})
			if err != nil {
				t.Fatalf("IteratePrefix failed: %v", err)
			}
			if count != 1 {
				t.Errorf("Expected early stop after 1 key, visited %d", count)
			}
		})
	}
}

func TestDBTxManagerRollsBackOnError(t *testing.T) {
	for name, provider := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewDBTxManager(provider)

			err := manager.WithBatch(func(batch DatabaseBatch) error {
				batch.Put([]byte("x"), []byte("1"))
				return fmt.Errorf("boom")
			})
			if err == nil {
				t.Fatal("Expected error from failing batch fn")
			}
			got, _ := provider.Get([]byte("x"))
			if got != nil {
				t.Error("Failed batch leaked a write")
			}

			err = manager.WithBatch(func(batch DatabaseBatch) error {
				batch.Put([]byte("x"), []byte("2"))
				batch.Put([]byte("y"), []byte("3"))
				return nil
			})
			if err != nil {
				t.Fatalf("WithBatch failed: %v", err)
			}
			gotX, _ := provider.Get([]byte("x"))
			gotY, _ := provider.Get([]byte("y"))
			if string(gotX) != "2" || string(gotY) != "3" {
				t.Errorf("Expected committed values, got x=%q y=%q", gotX, gotY)
			}
		})
	}
}
