package appmanager

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadServiceSequenceSortsByStartOrder(t *testing.T) {
	yamlData := `
services:
  - name: gateway
    start_order: 6
    config:
      port: 8081
  - name: logger
    start_order: 1
    config:
      log_dir: ./logs
  - name: auth
    start_order: 2
    config:
      session_timeout: 720
`
	path := filepath.Join(t.TempDir(), "services.yaml")
	if err := os.WriteFile(path, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}

	configs, err := LoadServiceSequence(path)
	if err != nil {
		t.Fatalf("LoadServiceSequence: %v", err)
	}
	if len(configs) != 3 {
		t.Fatalf("got %d services, want 3", len(configs))
	}

	wantOrder := []string{"logger", "auth", "gateway"}
	for i, name := range wantOrder {
		if configs[i].Name != name {
			t.Errorf("position %d: got %s, want %s", i, configs[i].Name, name)
		}
	}

	if v, ok := configs[1].Config["session_timeout"].(int); !ok || v != 720 {
		t.Errorf("auth config session_timeout: got %v", configs[1].Config["session_timeout"])
	}
}

func TestLoadServiceSequenceMissingFile(t *testing.T) {
	if _, err := LoadServiceSequence("/no/such/services.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
