package extractor

import (
	"context"
	"testing"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewDefaultBrowserConfig(t *testing.T) {
	cfg := NewDefaultBrowserConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 1280, cfg.WindowWidth)
	assert.Equal(t, 1024, cfg.WindowHeight)
	assert.Equal(t, 60, cfg.PageLoadTimeoutSecs)
	assert.True(t, cfg.DisableImages)
}

func TestNewSession_RequiresRunningBrowser(t *testing.T) {
	bm := NewBrowserManager(NewDefaultBrowserConfig(), zerolog.Nop())

	_, err := bm.NewSession(context.Background())
	assert.Error(t, err)
}

func TestDisposeBrowserContext_NoContextIsNoop(t *testing.T) {
	assert.NoError(t, disposeBrowserContext(nil))

	// A browser on the shared default context has no context ID; the
	// session teardown must not issue a dispose call for it.
	assert.NoError(t, disposeBrowserContext(rod.New()))
}
