package store

import (
	"errors"
	"testing"

	"github.com/heysubinoy/kvs/pkg/kv"
)

type failingStore struct{}

func (failingStore) Get(string) (string, bool, error) {
	return "", false, kv.Errorf(kv.KindIO, "disk gone")
}
func (failingStore) Set(string, string) error { return kv.Errorf(kv.KindIO, "disk gone") }
func (failingStore) Remove(string) error      { return kv.Errorf(kv.KindIO, "disk gone") }

func TestInstrumentedStore(t *testing.T) {
	storeContract(t, func(t *testing.T) kv.Store {
		return NewInstrumentedStore(NewMemStore())
	})
}

func TestInstrumentedStoreCounts(t *testing.T) {
	s := NewInstrumentedStore(NewMemStore())

	mustSet(t, s, "a", "1")
	mustSet(t, s, "b", "2")
	s.Get("a")
	s.Get("missing")
	s.Get("b")
	if err := s.Remove("a"); err != nil {
		t.Fatal(err)
	}

	m := s.Metrics()
	if m.SetCount != 2 || m.GetCount != 3 || m.RemoveCount != 1 {
		t.Fatalf("Unexpected counts: %+v", m)
	}
	if m.ErrorCount != 0 {
		t.Fatalf("Expected no errors, got %d", m.ErrorCount)
	}
}

func TestInstrumentedStorePassesErrorsThrough(t *testing.T) {
	s := NewInstrumentedStore(failingStore{})

	if err := s.Set("a", "1"); !kv.IsKind(err, kv.KindIO) {
		t.Fatalf("Expected KindIO from Set, got %v", err)
	}
	if _, _, err := s.Get("a"); !kv.IsKind(err, kv.KindIO) {
		t.Fatalf("Expected KindIO from Get, got %v", err)
	}
	if err := s.Remove("a"); err == nil {
		t.Fatal("Expected Remove to fail")
	}

	var kerr *kv.Error
	if err := s.Set("a", "1"); !errors.As(err, &kerr) {
		t.Fatalf("Expected *kv.Error, got %T", err)
	}

	if m := s.Metrics(); m.ErrorCount != 4 || m.SetCount != 2 {
		t.Fatalf("Unexpected metrics: %+v", m)
	}
}

func TestMetricsSnapshotFields(t *testing.T) {
	fields := MetricsSnapshot{GetCount: 1}.Fields()
	if len(fields)%2 != 0 {
		t.Fatalf("Expected key/value pairs, got %d items", len(fields))
	}
	if fields[0] != "get" || fields[1] != uint64(1) {
		t.Fatalf("Unexpected first field: %v=%v", fields[0], fields[1])
	}
}
