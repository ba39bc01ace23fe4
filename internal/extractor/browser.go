package extractor

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"github.com/aleister1102/webpursuer/internal/common"
)

// BrowserConfig holds settings for the shared headless browser.
type BrowserConfig struct {
	Enabled             bool   `json:"enabled" yaml:"enabled"`
	ChromePath          string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	UserDataDir         string `json:"user_data_dir,omitempty" yaml:"user_data_dir,omitempty"`
	WindowWidth         int    `json:"window_width,omitempty" yaml:"window_width,omitempty" validate:"omitempty,min=1"`
	WindowHeight        int    `json:"window_height,omitempty" yaml:"window_height,omitempty" validate:"omitempty,min=1"`
	PageLoadTimeoutSecs int    `json:"page_load_timeout_secs,omitempty" yaml:"page_load_timeout_secs,omitempty" validate:"omitempty,min=1"`
	DisableImages       bool   `json:"disable_images" yaml:"disable_images"`
}

// NewDefaultBrowserConfig creates default browser configuration
func NewDefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		Enabled:             true,
		WindowWidth:         1280,
		WindowHeight:        1024,
		PageLoadTimeoutSecs: 60,
		DisableImages:       true,
	}
}

// PageSession is one isolated page-rendering context. One session serves
// exactly one extraction; sessions are never shared between monitors.
type PageSession interface {
	// Navigate loads the URL and returns after the page's load-complete
	// signal has fired exactly once.
	Navigate(ctx context.Context, url string) error
	// Eval runs a script (a JS function expression) in the page and
	// returns its string result.
	Eval(ctx context.Context, js string) (string, error)
	// Close tears the context down.
	Close() error
}

// SessionFactory hands out fresh page sessions.
type SessionFactory interface {
	NewSession(ctx context.Context) (PageSession, error)
}

// BrowserManager launches one shared headless browser and creates an
// isolated incognito context per session, so state never leaks between
// unrelated sites.
type BrowserManager struct {
	config    BrowserConfig
	logger    zerolog.Logger
	launcher  *launcher.Launcher
	browser   *rod.Browser
	mutex     sync.Mutex
	isRunning bool
}

// NewBrowserManager creates a new browser manager
func NewBrowserManager(cfg BrowserConfig, logger zerolog.Logger) *BrowserManager {
	return &BrowserManager{
		config: cfg,
		logger: logger.With().Str("component", "BrowserManager").Logger(),
	}
}

// Start launches the headless browser process.
func (bm *BrowserManager) Start() error {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	if bm.isRunning {
		return nil
	}
	if !bm.config.Enabled {
		bm.logger.Info().Msg("Headless browser is disabled in config")
		return nil
	}

	l := launcher.New().
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")

	if bm.config.ChromePath != "" {
		l = l.Bin(bm.config.ChromePath)
	}
	if bm.config.UserDataDir != "" {
		l = l.UserDataDir(bm.config.UserDataDir)
	}
	if bm.config.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return common.WrapError(err, "failed to launch browser")
	}
	bm.launcher = l

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return common.WrapError(err, "failed to connect to browser")
	}
	bm.browser = browser

	bm.isRunning = true
	bm.logger.Info().Msg("Headless browser manager started")
	return nil
}

// Stop closes the browser and the launcher.
func (bm *BrowserManager) Stop() {
	bm.mutex.Lock()
	defer bm.mutex.Unlock()

	if !bm.isRunning {
		return
	}
	if bm.browser != nil {
		_ = bm.browser.Close()
	}
	if bm.launcher != nil {
		bm.launcher.Cleanup()
	}
	bm.isRunning = false
	bm.logger.Info().Msg("Headless browser manager stopped")
}

// IsEnabled returns whether the headless browser is enabled.
func (bm *BrowserManager) IsEnabled() bool {
	return bm.config.Enabled
}

// NewSession creates a fresh incognito page.
func (bm *BrowserManager) NewSession(ctx context.Context) (PageSession, error) {
	bm.mutex.Lock()
	running := bm.isRunning
	browser := bm.browser
	bm.mutex.Unlock()

	if !running || browser == nil {
		return nil, common.NewError("browser manager not running or disabled")
	}

	incognito, err := browser.Incognito()
	if err != nil {
		return nil, common.WrapError(err, "failed to create incognito context")
	}

	page, err := incognito.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, common.WrapError(err, "failed to create page")
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  bm.config.WindowWidth,
		Height: bm.config.WindowHeight,
	}); err != nil {
		bm.logger.Warn().Err(err).Msg("Failed to set viewport")
	}

	return &rodSession{
		page:        page,
		incognito:   incognito,
		loadTimeout: time.Duration(bm.config.PageLoadTimeoutSecs) * time.Second,
	}, nil
}

// rodSession adapts a rod page to the PageSession capability. It owns the
// incognito context the page lives in and disposes it on Close, so that a
// long-running scheduler does not accumulate one empty browser context per
// check in the Chrome process.
type rodSession struct {
	page        *rod.Page
	incognito   *rod.Browser
	loadTimeout time.Duration
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	page := s.page.Context(timeoutCtx)
	if err := page.Navigate(url); err != nil {
		return common.WrapErrorf(err, "failed to navigate to %s", url)
	}
	// WaitLoad resolves on the load event of this navigation only, so a
	// repeated load-complete signal cannot re-trigger the pipeline.
	if err := page.WaitLoad(); err != nil {
		return common.WrapErrorf(err, "page load did not complete for %s", url)
	}
	return nil
}

func (s *rodSession) Eval(ctx context.Context, js string) (string, error) {
	res, err := s.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:      js,
		ByValue: true,
	})
	if err != nil {
		return "", common.WrapError(err, "script evaluation failed")
	}
	return res.Value.Str(), nil
}

func (s *rodSession) Close() error {
	err := s.page.Close()
	if derr := disposeBrowserContext(s.incognito); derr != nil && err == nil {
		err = derr
	}
	return err
}

// disposeBrowserContext tears down the incognito context a session was
// created in. A browser on the shared default context carries no context
// ID and there is nothing to dispose.
func disposeBrowserContext(b *rod.Browser) error {
	if b == nil || b.BrowserContextID == "" {
		return nil
	}
	return proto.TargetDisposeBrowserContext{BrowserContextID: b.BrowserContextID}.Call(b)
}
