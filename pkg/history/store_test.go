package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/proxyfleet/orchestrator/pkg/orchestrator"
	"github.com/proxyfleet/orchestrator/pkg/probe"
)

func createTempStore(t *testing.T) (*Store, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")

	store, err := Open(Config{Path: dbPath, BusyTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store, dbPath
}

func TestStore_Open_CreatesFile(t *testing.T) {
	store, dbPath := createTempStore(t)
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("expected database file to be created")
	}
}

func TestStore_RecordAndKnownURIs(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	ctx := context.Background()

	result := orchestrator.Result{
		Result: probe.Result{
			Protocol:     "vless",
			Address:      "edge-hk-03.example.net:443",
			PingMs:       180,
			DownloadMbps: 42.5,
			UploadMbps:   8.1,
			BypassOK:     true,
		},
		URI:         "vless://uuid@edge-hk-03.example.net:443?type=ws",
		Country:     "Hong Kong",
		CountryCode: "HK",
		City:        "Hong Kong",
		ISP:         "HKT",
	}

	if err := store.Record(ctx, result); err != nil {
		t.Fatalf("Record: %v", err)
	}

	known, err := store.KnownURIs(ctx)
	if err != nil {
		t.Fatalf("KnownURIs: %v", err)
	}
	if !known[result.URI] {
		t.Errorf("expected %q to be known", result.URI)
	}
}

func TestStore_Record_UpsertsOnRerun(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	ctx := context.Background()
	uri := "vless://uuid@edge-hk-03.example.net:443?type=ws"

	first := orchestrator.Result{Result: probe.Result{Protocol: "vless", PingMs: 500}, URI: uri}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("Record (first): %v", err)
	}

	second := orchestrator.Result{Result: probe.Result{Protocol: "vless", PingMs: 120}, URI: uri}
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("Record (second): %v", err)
	}

	known, err := store.KnownURIs(ctx)
	if err != nil {
		t.Fatalf("KnownURIs: %v", err)
	}
	if len(known) != 1 {
		t.Errorf("expected 1 known uri after upsert, got %d", len(known))
	}
}

func TestStore_KnownURIs_Empty(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	known, err := store.KnownURIs(context.Background())
	if err != nil {
		t.Fatalf("KnownURIs: %v", err)
	}
	if len(known) != 0 {
		t.Errorf("expected empty known set, got %d entries", len(known))
	}
}

func TestStore_Query_FiltersByProtocolAndCountry(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	ctx := context.Background()
	records := []orchestrator.Result{
		{Result: probe.Result{Protocol: "vless"}, URI: "vless://a", CountryCode: "HK"},
		{Result: probe.Result{Protocol: "trojan"}, URI: "trojan://b", CountryCode: "DE"},
		{Result: probe.Result{Protocol: "vless"}, URI: "vless://c", CountryCode: "DE"},
	}
	for _, r := range records {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Query(ctx, Filter{Protocol: "vless"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 vless records, got %d", len(got))
	}

	got, err = store.Query(ctx, Filter{Protocol: "vless", CountryCode: "DE"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 || got[0].URI != "vless://c" {
		t.Errorf("expected exactly vless://c, got %+v", got)
	}
}

func TestStore_Query_LimitOffset(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		uri := "vless://" + string(rune('a'+i))
		if err := store.Record(ctx, orchestrator.Result{Result: probe.Result{Protocol: "vless"}, URI: uri}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.Query(ctx, Filter{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records with limit=2, got %d", len(got))
	}
}

func TestStore_Prune_DeletesOlderRecords(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.Record(ctx, orchestrator.Result{Result: probe.Result{Protocol: "vless"}, URI: "vless://old"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	deleted, err := store.Prune(ctx, -time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 record pruned, got %d", deleted)
	}

	known, err := store.KnownURIs(ctx)
	if err != nil {
		t.Fatalf("KnownURIs: %v", err)
	}
	if len(known) != 0 {
		t.Errorf("expected no known uris after prune, got %d", len(known))
	}
}

func TestStore_Prune_KeepsNewerRecords(t *testing.T) {
	store, _ := createTempStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.Record(ctx, orchestrator.Result{Result: probe.Result{Protocol: "vless"}, URI: "vless://fresh"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	deleted, err := store.Prune(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 records pruned, got %d", deleted)
	}
}
