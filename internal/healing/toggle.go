package healing

import (
	"fmt"
	"os"
	"strconv"

	"github.com/magiconair/properties"
	"go.uber.org/zap"
)

// KeyEnabled is the flag key in the healing properties file
const KeyEnabled = "heal-enabled"

// Toggle reads and writes the heal-enabled flag in a properties file. The
// suite reads the flag once at startup; flipping it affects the next run.
type Toggle struct {
	path   string
	logger *zap.Logger
}

// NewToggle creates a toggle for the file at path
func NewToggle(path string, logger *zap.Logger) *Toggle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toggle{path: path, logger: logger}
}

// Path returns the properties file location
func (t *Toggle) Path() string {
	return t.path
}

// Enabled reports the flag. A missing file, missing key or unparsable value
// counts as enabled.
func (t *Toggle) Enabled() bool {
	props, err := properties.LoadFile(t.path, properties.UTF8)
	if err != nil {
		t.logger.Warn("Could not read healing properties, defaulting to enabled",
			zap.String("path", t.path),
			zap.Error(err),
		)
		return true
	}

	raw, ok := props.Get(KeyEnabled)
	if !ok {
		return true
	}
	enabled, err := strconv.ParseBool(raw)
	if err != nil {
		t.logger.Warn("Invalid heal-enabled value, defaulting to enabled",
			zap.String("path", t.path),
			zap.String("value", raw),
		)
		return true
	}
	return enabled
}

// Enable sets the flag to true
func (t *Toggle) Enable() {
	t.set(true)
}

// Disable sets the flag to false
func (t *Toggle) Disable() {
	t.set(false)
}

// set rewrites the flag, keeping other keys. Failures are logged only.
func (t *Toggle) set(enabled bool) {
	if err := t.write(enabled); err != nil {
		t.logger.Error("Failed to update healing properties",
			zap.String("path", t.path),
			zap.Bool("enabled", enabled),
			zap.Error(err),
		)
		return
	}
	t.logger.Info("Healing flag updated", zap.String("path", t.path), zap.Bool("enabled", enabled))
}

func (t *Toggle) write(enabled bool) error {
	props := properties.NewProperties()
	if existing, err := properties.LoadFile(t.path, properties.UTF8); err == nil {
		props = existing
	}

	if _, _, err := props.Set(KeyEnabled, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("setting %s: %w", KeyEnabled, err)
	}

	f, err := os.Create(t.path)
	if err != nil {
		return err
	}
	if _, err := props.WriteComment(f, "# ", properties.UTF8); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
