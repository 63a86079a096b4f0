package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggingFileAddsDate(t *testing.T) {
	dir := t.TempDir()
	f, err := GetLoggingFile(filepath.Join(dir, "qrishub.log"))
	require.NoError(t, err)
	defer f.Close()
	name := filepath.Base(f.Name())
	assert.True(t, strings.HasPrefix(name, "qrishub-"))
	assert.True(t, strings.HasSuffix(name, ".log"))

	_, err = os.Stat(f.Name())
	assert.NoError(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.INFO, parseLevel("INFO"))
	assert.Equal(t, log.ERROR, parseLevel("error"))
	assert.Equal(t, log.DEBUG, parseLevel(""))
}
