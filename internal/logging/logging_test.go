package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := Setup(Options{Dir: dir, Level: "debug", RetentionDays: 3})
	require.NoError(t, err)

	logger.Info("hello")
	cleanup()

	content, err := os.ReadFile(filepath.Join(dir, "app.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"message":"hello"`)
}

func TestSetup_RejectsUnknownLevel(t *testing.T) {
	_, _, err := Setup(Options{Dir: t.TempDir(), Level: "loud"})
	require.Error(t, err)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
