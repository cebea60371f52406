package browser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/testforge/pomsuite/internal/domain"
)

// ScreenshotTimeFormat is the sortable timestamp in screenshot file names
const ScreenshotTimeFormat = "20060102_150405"

// maxScreenshotSuffix bounds the search for a free file name
const maxScreenshotSuffix = 1000

// TakeScreenshot captures the viewport of the live session into
// <dir>/<testName>_<yyyyMMdd_HHmmss>.png and returns the path. A capture in
// the same second as an earlier one gets a _1, _2, ... suffix instead of
// overwriting it. Failures are logged, never returned; the returned path is
// empty only when there is nothing to capture.
func (m *Manager) TakeScreenshot(ctx context.Context, testName string) string {
	driver, ok := m.Current()
	if !ok {
		m.logger.Warn("No browser session to screenshot", zap.String("test", testName))
		return ""
	}

	base := fmt.Sprintf("%s_%s", sanitizeFileName(testName), m.now().Format(ScreenshotTimeFormat))
	fallback := filepath.Join(m.screenshotDir, base+".png")

	// Always capture from the real session, not a decorator
	data, err := Unwrap(driver).Screenshot()
	if err != nil {
		m.metrics.RecordScreenshot("failure")
		m.logger.Error("Failed to capture screenshot",
			zap.String("test", testName),
			zap.Error(domain.ErrScreenshot(fallback, err)),
		)
		return fallback
	}

	path, err := writeExclusive(m.screenshotDir, base, data)
	if err != nil {
		m.metrics.RecordScreenshot("failure")
		m.logger.Error("Failed to save screenshot",
			zap.String("test", testName),
			zap.Error(domain.ErrScreenshot(fallback, err)),
		)
		return fallback
	}

	m.metrics.RecordScreenshot("success")
	m.logger.Info("Screenshot saved", zap.String("test", testName), zap.String("path", path))

	if m.uploader != nil {
		location, err := m.uploader.UploadScreenshot(ctx, filepath.Base(path), data)
		if err != nil {
			m.logger.Warn("Failed to upload screenshot", zap.String("path", path), zap.Error(err))
		} else {
			m.logger.Info("Screenshot uploaded", zap.String("path", path), zap.String("location", location))
		}
	}

	return path
}

// writeExclusive creates base.png in dir, or base_N.png if that exists
func writeExclusive(dir, base string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating screenshot directory: %w", err)
	}

	for n := 0; n < maxScreenshotSuffix; n++ {
		name := base + ".png"
		if n > 0 {
			name = fmt.Sprintf("%s_%d.png", base, n)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", werr
		}
		return path, cerr
	}

	return "", fmt.Errorf("no free file name for %s after %d attempts", base, maxScreenshotSuffix)
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "screenshot"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
