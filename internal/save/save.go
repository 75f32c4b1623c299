package save

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/bryanchriswhite/kasbah/internal/logger"
)

// ErrDestinationExists is returned when a save would overwrite a file.
var ErrDestinationExists = errors.New("destination already exists")

// CacheFile is the name of the in-progress capture under the cache dir
const CacheFile = "kasbah.png"

// CachePath returns the well-known path captures are written to before
// they are saved.
func CachePath() string {
	return filepath.Join(xdg.CacheHome, CacheFile)
}

// DefaultFolder returns the user's pictures directory, or the home
// directory when none is configured.
func DefaultFolder() string {
	if xdg.UserDirs.Pictures != "" {
		return xdg.UserDirs.Pictures
	}
	return xdg.Home
}

// DefaultFilename names a screenshot after the time it was taken.
func DefaultFilename(now time.Time) string {
	return "Screenshot from " + now.Format("2006-01-02 15-04-05") + ".png"
}

// Move saves src as folder/name without ever replacing an existing file.
// On failure src is left where it was. It returns the final path.
func Move(src, folder, name string) (string, error) {
	log := logger.WithComponent("save")

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("file name %q must not contain a path separator", name)
	}
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	if folder == "" {
		folder = DefaultFolder()
	}

	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("no capture to save: %w", err)
	}
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}

	dest := filepath.Join(folder, name)

	// Link fails with EEXIST instead of replacing dest like Rename would.
	err := os.Link(src, dest)
	switch {
	case err == nil:
		if err := os.Remove(src); err != nil {
			log.Warn().Err(err).Str("src", src).Msg("Saved capture but could not remove cached copy")
		}
	case errors.Is(err, os.ErrExist):
		return "", fmt.Errorf("%s: %w", dest, ErrDestinationExists)
	case errors.Is(err, syscall.EXDEV) || errors.Is(err, syscall.ENOTSUP) || errors.Is(err, os.ErrPermission):
		// Hard links are not possible here; copy instead.
		if err := copyExclusive(src, dest); err != nil {
			return "", err
		}
		if err := os.Remove(src); err != nil {
			log.Warn().Err(err).Str("src", src).Msg("Saved capture but could not remove cached copy")
		}
	default:
		return "", fmt.Errorf("failed to save %s: %w", dest, err)
	}

	log.Info().Str("path", dest).Msg("Screenshot saved")
	return dest, nil
}

// copyExclusive copies src to a dest that must not exist yet.
func copyExclusive(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", dest, ErrDestinationExists)
		}
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("failed to copy capture: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

// Discard deletes the cached capture. A missing file is not an error.
func Discard(src string) error {
	if err := os.Remove(src); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to discard capture: %w", err)
	}
	return nil
}
