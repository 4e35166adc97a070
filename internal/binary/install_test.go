package binary

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

// tarEntry describes one member of a test archive.
type tarEntry struct {
	name     string
	content  string
	typeflag byte
	linkname string
	mode     int64
}

// createTarGz writes a tar.gz archive with the given members.
func createTarGz(t *testing.T, entries []tarEntry) string {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "test.tar.gz")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, entry := range entries {
		header := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Linkname: entry.linkname,
			Mode:     entry.mode,
		}
		if header.Typeflag == 0 {
			header.Typeflag = tar.TypeReg
		}
		if header.Mode == 0 {
			header.Mode = 0644
		}
		if header.Typeflag == tar.TypeReg {
			header.Size = int64(len(entry.content))
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("write header %s: %v", entry.name, err)
		}
		if header.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(entry.content)); err != nil {
				t.Fatalf("write content %s: %v", entry.name, err)
			}
		}
	}

	return archivePath
}

func newTestInstaller(tag platform.Tag) *Installer {
	return NewInstaller(tag, config.DefaultLogger())
}

func TestInstallSimpleArchive(t *testing.T) {
	archive := createTarGz(t, []tarEntry{
		{name: "chrome", content: "binary bits", mode: 0755},
		{name: "resources/icon.png", content: "png"},
	})
	dest := filepath.Join(t.TempDir(), "chromium-145.0.0.0")

	if err := newTestInstaller(platform.LinuxX64).Install(archive, dest); err != nil {
		t.Fatalf("Install: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dest, "chrome"))
	if err != nil {
		t.Fatalf("read chrome: %v", err)
	}
	if string(data) != "binary bits" {
		t.Errorf("chrome content = %q", data)
	}

	info, err := os.Stat(filepath.Join(dest, "chrome"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0111 == 0 {
		t.Error("chrome should be executable")
	}
}

func TestInstallPathTraversalFailsClosed(t *testing.T) {
	archive := createTarGz(t, []tarEntry{
		{name: "chrome", content: "safe"},
		{name: "../../etc/passwd", content: "evil"},
	})
	dest := filepath.Join(t.TempDir(), "dest")

	err := newTestInstaller(platform.LinuxX64).Install(archive, dest)
	if err == nil {
		t.Fatal("expected traversal error")
	}
	var traversal *TraversalError
	if !errors.As(err, &traversal) {
		t.Fatalf("expected TraversalError, got %T: %v", err, err)
	}

	// Zero files written: dest must not exist at all.
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("destination must be untouched after rejected archive")
	}
}

func TestInstallTraversalPreservesPriorInstall(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "chromium-145.0.0.0")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "chrome"), []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}

	archive := createTarGz(t, []tarEntry{
		{name: "../escape", content: "evil"},
	})

	if err := newTestInstaller(platform.LinuxX64).Install(archive, dest); err == nil {
		t.Fatal("expected traversal error")
	}

	data, err := os.ReadFile(filepath.Join(dest, "chrome"))
	if err != nil || string(data) != "old" {
		t.Errorf("prior install must survive a rejected archive: %q, %v", data, err)
	}
}

func TestInstallUnsafeSymlinkSkippedNotFatal(t *testing.T) {
	archive := createTarGz(t, []tarEntry{
		{name: "chrome", content: "bits"},
		{name: "evil-abs", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"},
		{name: "evil-rel", typeflag: tar.TypeSymlink, linkname: "../../outside"},
		{name: "ok-link", typeflag: tar.TypeSymlink, linkname: "chrome"},
	})
	dest := filepath.Join(t.TempDir(), "dest")

	if err := newTestInstaller(platform.LinuxX64).Install(archive, dest); err != nil {
		t.Fatalf("unsafe links must not abort the install: %v", err)
	}

	for _, name := range []string{"evil-abs", "evil-rel"} {
		if _, err := os.Lstat(filepath.Join(dest, name)); !os.IsNotExist(err) {
			t.Errorf("%s should have been skipped", name)
		}
	}

	target, err := os.Readlink(filepath.Join(dest, "ok-link"))
	if err != nil {
		t.Fatalf("contained relative symlink should be extracted: %v", err)
	}
	if target != "chrome" {
		t.Errorf("ok-link -> %q, want chrome", target)
	}
}

func TestInstallFlattensSingleWrapperDir(t *testing.T) {
	archive := createTarGz(t, []tarEntry{
		{name: "fingerprint-chromium-145-custom/", typeflag: tar.TypeDir},
		{name: "fingerprint-chromium-145-custom/chrome", content: "bits", mode: 0755},
		{name: "fingerprint-chromium-145-custom/locales/en.pak", content: "pak"},
	})
	dest := filepath.Join(t.TempDir(), "dest")

	if err := newTestInstaller(platform.LinuxX64).Install(archive, dest); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "chrome")); err != nil {
		t.Errorf("chrome should be at dest root after flatten: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "locales", "en.pak")); err != nil {
		t.Errorf("nested content should move up with the flatten: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "fingerprint-chromium-145-custom")); !os.IsNotExist(err) {
		t.Error("wrapper directory should be removed")
	}
}

func TestInstallNeverFlattensAppBundle(t *testing.T) {
	archive := createTarGz(t, []tarEntry{
		{name: "Chromium.app/", typeflag: tar.TypeDir},
		{name: "Chromium.app/Contents/", typeflag: tar.TypeDir},
		{name: "Chromium.app/Contents/MacOS/", typeflag: tar.TypeDir},
		{name: "Chromium.app/Contents/MacOS/Chromium", content: "bits", mode: 0755},
	})
	dest := filepath.Join(t.TempDir(), "dest")

	if err := newTestInstaller(platform.DarwinARM64).Install(archive, dest); err != nil {
		t.Fatalf("Install: %v", err)
	}

	bundled := filepath.Join(dest, "Chromium.app", "Contents", "MacOS", "Chromium")
	if _, err := os.Stat(bundled); err != nil {
		t.Errorf("app bundle structure must be preserved: %v", err)
	}
}

func TestInstallReplacesExistingDirWholly(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "dest")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dest, "stale-leftover"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	archive := createTarGz(t, []tarEntry{
		{name: "chrome", content: "new", mode: 0755},
	})

	if err := newTestInstaller(platform.LinuxX64).Install(archive, dest); err != nil {
		t.Fatalf("Install: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "stale-leftover")); !os.IsNotExist(err) {
		t.Error("prior contents must be removed, not merged")
	}
}

func TestLinkEscapes(t *testing.T) {
	tests := []struct {
		linkname string
		want     bool
	}{
		{"chrome", false},
		{"Versions/Current/Framework", false},
		{"./lib/libfoo.so", false},
		{"/etc/passwd", true},
		{"../outside", true},
		{"a/../../outside", true},
	}
	for _, tt := range tests {
		if got := linkEscapes(tt.linkname); got != tt.want {
			t.Errorf("linkEscapes(%q) = %v, want %v", tt.linkname, got, tt.want)
		}
	}
}
