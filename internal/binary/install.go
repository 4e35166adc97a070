package binary

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloakhq/cloakfetch/internal/config"
	"github.com/cloakhq/cloakfetch/internal/platform"
)

// TraversalError indicates an archive member whose resolved path would
// escape the destination directory. The whole install fails closed:
// zero files from the archive are written.
type TraversalError struct {
	Member string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("archive contains path traversal: %s", e.Member)
}

// Installer extracts verified archives into versioned cache
// directories.
type Installer struct {
	tag platform.Tag
	log config.Logger
}

// NewInstaller creates an installer for a platform tag.
func NewInstaller(tag platform.Tag, log config.Logger) *Installer {
	if log == nil {
		log = config.DefaultLogger()
	}
	return &Installer{tag: tag, log: log}
}

// Install extracts archivePath into destDir. An existing destDir is
// removed wholly first; there are no partial-merge installs. The
// archive is validated before anything is touched, so a malicious
// archive leaves a prior install intact.
func (i *Installer) Install(archivePath, destDir string) error {
	skipLinks, err := i.validateMembers(archivePath, destDir)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("remove existing install: %w", err)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	if err := i.extract(archivePath, destDir, skipLinks); err != nil {
		return err
	}

	if err := i.flattenSingleSubdir(destDir); err != nil {
		return err
	}

	execPath := filepath.Join(destDir, platform.ExecutableRelPath(i.tag))
	if _, err := os.Stat(execPath); err == nil {
		if err := os.Chmod(execPath, 0755); err != nil {
			return fmt.Errorf("set executable: %w", err)
		}
	}

	if i.tag == platform.DarwinARM64 || i.tag == platform.DarwinX64 {
		i.removeQuarantine(destDir)
	}

	return nil
}

// validateMembers walks the archive once before extraction. Regular
// members that resolve outside destDir abort the whole install; unsafe
// symlinks and hardlinks are only skipped, since rejecting the archive
// for one stray link would break legitimate app-bundle layouts.
func (i *Installer) validateMembers(archivePath, destDir string) (map[string]bool, error) {
	tr, closer, err := openTarGz(archivePath)
	if err != nil {
		return nil, err
	}
	defer closer()

	cleanDest := filepath.Clean(destDir)
	skipLinks := make(map[string]bool)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		switch header.Typeflag {
		case tar.TypeSymlink, tar.TypeLink:
			if linkEscapes(header.Linkname) {
				i.log.Warn("skipping unsafe link in archive",
					"member", header.Name, "target", header.Linkname)
				skipLinks[header.Name] = true
			}
		default:
			target := filepath.Join(cleanDest, header.Name)
			if target != cleanDest && !strings.HasPrefix(target, cleanDest+string(os.PathSeparator)) {
				return nil, &TraversalError{Member: header.Name}
			}
		}
	}

	return skipLinks, nil
}

// extract performs the second pass, writing accepted members.
func (i *Installer) extract(archivePath, destDir string, skipLinks map[string]bool) error {
	tr, closer, err := openTarGz(archivePath)
	if err != nil {
		return err
	}
	defer closer()

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target := filepath.Join(destDir, header.Name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			outFile, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
			if err != nil {
				return fmt.Errorf("create file %s: %w", target, err)
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return fmt.Errorf("write file %s: %w", target, err)
			}
			outFile.Close()

		case tar.TypeSymlink:
			if skipLinks[header.Name] {
				continue
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return fmt.Errorf("create parent dir for %s: %w", target, err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return fmt.Errorf("create symlink %s: %w", target, err)
			}

		case tar.TypeLink:
			if skipLinks[header.Name] {
				continue
			}
			if err := os.Link(filepath.Join(destDir, header.Linkname), target); err != nil {
				return fmt.Errorf("create hardlink %s: %w", target, err)
			}

		default:
			// Skip char devices, block devices, fifos.
			continue
		}
	}

	return nil
}

// flattenSingleSubdir collapses a single wrapping top-level directory
// (e.g. fingerprint-chromium-145-custom/chrome -> chrome) so the
// executable lands at a stable fixed path. App bundles are never
// flattened: the bundle structure itself is load-bearing on macOS.
func (i *Installer) flattenSingleSubdir(destDir string) error {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return fmt.Errorf("read dest dir: %w", err)
	}

	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	subdir := entries[0].Name()
	if strings.HasSuffix(subdir, ".app") {
		i.log.Debug("keeping app bundle intact", "bundle", subdir)
		return nil
	}

	i.log.Debug("flattening single subdirectory", "dir", subdir)
	subdirPath := filepath.Join(destDir, subdir)
	children, err := os.ReadDir(subdirPath)
	if err != nil {
		return fmt.Errorf("read wrapper dir: %w", err)
	}

	for _, child := range children {
		from := filepath.Join(subdirPath, child.Name())
		to := filepath.Join(destDir, child.Name())
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("flatten %s: %w", child.Name(), err)
		}
	}

	if err := os.Remove(subdirPath); err != nil {
		return fmt.Errorf("remove wrapper dir: %w", err)
	}

	return nil
}

// removeQuarantine strips macOS quarantine/provenance xattrs so
// Gatekeeper doesn't prompt on first run. Best-effort: a failure here
// only warns, it must never fail an otherwise good install.
func (i *Installer) removeQuarantine(dir string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "xattr", "-cr", dir)
	if err := cmd.Run(); err != nil {
		i.log.Warn("failed to remove quarantine attributes", "dir", dir, "error", err)
		return
	}
	i.log.Debug("removed quarantine attributes", "dir", dir)
}

// linkEscapes reports whether a link target is absolute or climbs out
// of the extraction tree. Legitimate bundle layouts use only relative,
// contained links.
func linkEscapes(linkname string) bool {
	if filepath.IsAbs(linkname) {
		return true
	}
	for _, segment := range strings.Split(filepath.ToSlash(linkname), "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}

// openTarGz opens a .tar.gz for reading, returning the tar reader and
// a closer for both underlying readers.
func openTarGz(path string) (*tar.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}

	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("create gzip reader: %w", err)
	}

	closer := func() {
		gz.Close()
		f.Close()
	}
	return tar.NewReader(gz), closer, nil
}
