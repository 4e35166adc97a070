package binary

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

func newTestStore(t *testing.T) (Store, Layout) {
	t.Helper()
	layout := NewLayout(t.TempDir(), platform.LinuxX64)
	installer := NewInstaller(platform.LinuxX64, config.DefaultLogger())
	return NewStore(layout, installer, config.DefaultLogger()), layout
}

// installFakeBinary drops an executable at the layout's expected path.
func installFakeBinary(t *testing.T, layout Layout, version string) {
	t.Helper()
	execPath := layout.ExecutablePath(version)
	if err := os.MkdirAll(filepath.Dir(execPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(execPath, []byte("bits"), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestStoreHas(t *testing.T) {
	store, layout := newTestStore(t)

	if store.Has("145.0.0.0") {
		t.Error("empty cache should not have any version")
	}

	installFakeBinary(t, layout, "145.0.0.0")
	if !store.Has("145.0.0.0") {
		t.Error("installed version should be reported")
	}

	// Non-executable file doesn't count.
	if err := os.Chmod(layout.ExecutablePath("145.0.0.0"), 0644); err != nil {
		t.Fatal(err)
	}
	if store.Has("145.0.0.0") {
		t.Error("non-executable file must not count as installed")
	}
}

func TestStoreMarkLatestAtomic(t *testing.T) {
	store, layout := newTestStore(t)

	if err := store.MarkLatest("146.0.7718.0"); err != nil {
		t.Fatalf("MarkLatest: %v", err)
	}

	data, err := os.ReadFile(layout.MarkerPath())
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	if string(data) != "146.0.7718.0" {
		t.Errorf("marker = %q", data)
	}

	// No temp residue after the rename.
	if _, err := os.Stat(layout.MarkerPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp marker file should not remain")
	}
}

func TestEffectiveVersion(t *testing.T) {
	const baseline = "145.0.7632.109"

	t.Run("no_markers_returns_baseline", func(t *testing.T) {
		store, _ := newTestStore(t)
		if got := store.EffectiveVersion(baseline); got != baseline {
			t.Errorf("EffectiveVersion = %q, want baseline", got)
		}
	})

	t.Run("marker_with_installed_binary_wins", func(t *testing.T) {
		store, layout := newTestStore(t)
		installFakeBinary(t, layout, "146.0.7718.0")
		if err := store.MarkLatest("146.0.7718.0"); err != nil {
			t.Fatal(err)
		}
		if got := store.EffectiveVersion(baseline); got != "146.0.7718.0" {
			t.Errorf("EffectiveVersion = %q, want marker version", got)
		}
	})

	t.Run("phantom_marker_falls_through_to_baseline", func(t *testing.T) {
		store, _ := newTestStore(t)
		// Marker claims a version the filesystem doesn't back.
		if err := store.MarkLatest("999.0.0.0"); err != nil {
			t.Fatal(err)
		}
		if got := store.EffectiveVersion(baseline); got != baseline {
			t.Errorf("EffectiveVersion = %q, want baseline despite phantom marker", got)
		}
	})

	t.Run("marker_equal_to_baseline_ignored", func(t *testing.T) {
		store, layout := newTestStore(t)
		installFakeBinary(t, layout, baseline)
		if err := store.MarkLatest(baseline); err != nil {
			t.Fatal(err)
		}
		if got := store.EffectiveVersion(baseline); got != baseline {
			t.Errorf("EffectiveVersion = %q", got)
		}
	})

	t.Run("legacy_marker_read_when_scoped_missing", func(t *testing.T) {
		store, layout := newTestStore(t)
		installFakeBinary(t, layout, "146.0.0.0")
		if err := os.MkdirAll(layout.Root, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(layout.LegacyMarkerPath(), []byte("146.0.0.0\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if got := store.EffectiveVersion(baseline); got != "146.0.0.0" {
			t.Errorf("EffectiveVersion = %q, want legacy marker version", got)
		}
	})

	t.Run("scoped_marker_beats_legacy", func(t *testing.T) {
		store, layout := newTestStore(t)
		installFakeBinary(t, layout, "147.0.0.0")
		installFakeBinary(t, layout, "146.0.0.0")
		if err := store.MarkLatest("147.0.0.0"); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(layout.LegacyMarkerPath(), []byte("146.0.0.0"), 0644); err != nil {
			t.Fatal(err)
		}
		if got := store.EffectiveVersion(baseline); got != "147.0.0.0" {
			t.Errorf("EffectiveVersion = %q, want platform-scoped marker", got)
		}
	})

	t.Run("garbage_marker_ignored", func(t *testing.T) {
		store, layout := newTestStore(t)
		if err := os.MkdirAll(layout.Root, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(layout.MarkerPath(), []byte("not a version"), 0644); err != nil {
			t.Fatal(err)
		}
		if got := store.EffectiveVersion(baseline); got != baseline {
			t.Errorf("EffectiveVersion = %q, want baseline", got)
		}
	})
}

func TestStoreStamp(t *testing.T) {
	store, layout := newTestStore(t)

	if _, ok := store.StampAge(); ok {
		t.Error("missing stamp should report ok=false")
	}

	if err := store.TouchStamp(); err != nil {
		t.Fatalf("TouchStamp: %v", err)
	}
	age, ok := store.StampAge()
	if !ok {
		t.Fatal("stamp should be readable after touch")
	}
	if age > time.Minute {
		t.Errorf("fresh stamp age = %v", age)
	}

	// The Python package writes the stamp as a float; a fresh
	// float-format stamp must still gate the rate limit.
	floatStamp := fmt.Sprintf("%.7f", float64(time.Now().Unix()))
	if err := os.WriteFile(layout.StampPath(), []byte(floatStamp), 0644); err != nil {
		t.Fatal(err)
	}
	age, ok = store.StampAge()
	if !ok {
		t.Fatal("float-format stamp should be readable")
	}
	if age > time.Minute {
		t.Errorf("fresh float stamp age = %v", age)
	}

	// Garbage stamp reads as absent.
	if err := os.WriteFile(layout.StampPath(), []byte("yesterday"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.StampAge(); ok {
		t.Error("unparsable stamp should report ok=false")
	}
}

func TestStoreClear(t *testing.T) {
	store, layout := newTestStore(t)
	installFakeBinary(t, layout, "145.0.0.0")

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(layout.Root); !os.IsNotExist(err) {
		t.Error("cache root should be gone")
	}
}
