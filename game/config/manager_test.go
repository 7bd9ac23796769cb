package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/grid-shooter/game/engine"
	"github.com/wricardo/grid-shooter/game/service"
)

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Rows:        6,
		Cols:        5,
		Layout: []string{
			"_____",
			"_#___",
			"_____",
			"___#_",
			"_____",
			"_____",
		},
		Legend:           map[string]string{"_": "empty", "#": "wall"},
		BulletIntervalMs: 120,
		EnemyIntervalMs:  500,
		EnemyWaves:       3,
		Messages: engine.Messages{
			Welcome: "Welcome!",
			Hit:     "Hit! Score: %d",
		},
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("classic becomes the default", func(t *testing.T) {
		dir := t.TempDir()
		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "arena", createValidConfig())
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic default, got '%s'", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/path"); err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory falls back to built-in board", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without config files, got error: %v", err)
		}
		def := manager.GetDefault()
		if def == nil {
			t.Fatal("Expected default config to be available")
		}
		if err := engine.ValidateGameConfig(def); err != nil {
			t.Errorf("Expected built-in default to be valid: %v", err)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	arena := createValidConfig()
	arena.Name = "Arena"
	arena.EnemyWaves = 10
	writeConfigFile(t, dir, "arena", arena)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("arena")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.EnemyWaves != 10 {
			t.Errorf("Expected 10 waves, got %d", config.EnemyWaves)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("arena.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Arena" {
			t.Errorf("Expected config name 'Arena', got '%s'", config.Name)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("arena")
		config2, _ := manager.LoadConfig("arena")
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
		if !errors.Is(err, service.ErrConfigNotFound) {
			t.Errorf("Expected the service sentinel to match, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name": ""}`), 0644)
		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "malformed.json"), []byte(`{"name": "Malformed", invalid json}`), 0644)
		if _, err := manager.LoadConfig("malformed"); err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	names := map[string]string{
		"classic":  "Classic",
		"arena":    "Arena",
		"gauntlet": "Gauntlet",
	}
	for filename, name := range names {
		config := createValidConfig()
		config.Name = name
		writeConfigFile(t, dir, filename, config)
	}
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name": "Broken"}`), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}
	if len(configList) != 3 {
		t.Fatalf("Expected 3 valid configs, got %d", len(configList))
	}

	// Sorted by config id
	expected := []string{"arena", "classic", "gauntlet"}
	for i, info := range configList {
		if info.ConfigID != expected[i] {
			t.Errorf("Expected config %d to be '%s', got '%s'", i, expected[i], info.ConfigID)
		}
		if info.Rows != 6 || info.Cols != 5 || info.EnemyWaves != 3 {
			t.Errorf("Expected 6x5 with 3 waves, got %+v", info)
		}
	}
}

func TestManager_SaveAndReloadConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	config := createValidConfig()
	config.Name = "Changeable"
	if err := manager.SaveConfig("changeable", config); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "changeable.json")); err != nil {
		t.Errorf("Expected config file on disk: %v", err)
	}

	changed := createValidConfig()
	changed.Name = "Changeable"
	changed.EnemyWaves = 7
	writeConfigFile(t, dir, "changeable", changed)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}
	reloaded, _ := manager.LoadConfig("changeable")
	if reloaded.EnemyWaves != 7 {
		t.Errorf("Expected reloaded waves 7, got %d", reloaded.EnemyWaves)
	}

	invalid := createValidConfig()
	invalid.Rows = 1
	if err := manager.SaveConfig("invalid", invalid); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestManager_ValidateConfig(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(c *engine.GameConfig)
		wantErr bool
	}{
		{"valid config", func(c *engine.GameConfig) {}, false},
		{"missing name", func(c *engine.GameConfig) { c.Name = "" }, true},
		{"board too small", func(c *engine.GameConfig) { c.Cols = 1 }, true},
		{"wall on player spawn", func(c *engine.GameConfig) { c.Layout[5] = "__#__" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := createValidConfig()
			tt.mutate(config)
			err := manager.ValidateConfig(config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "classic", createValidConfig())
	writeConfigFile(t, dir, "arena", createValidConfig())

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	manager.LoadConfig("arena")
	if manager.Count() != 2 {
		t.Fatalf("Expected 2 cached configs, got %d", manager.Count())
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected only the default cached after refresh, got %d", manager.Count())
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = "Config" + string(rune('0'+i))
		writeConfigFile(t, dir, "config"+string(rune('0'+i)), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			configName := "config" + string(rune('0'+((id%5)+1)))
			if _, err := manager.LoadConfig(configName); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}
	if manager.Count() < 5 {
		t.Errorf("Expected at least 5 configs in cache, got %d", manager.Count())
	}
}
