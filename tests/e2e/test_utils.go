//go:build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/padaiyal/multidevice/config"
	"github.com/padaiyal/multidevice/logging"
	"github.com/padaiyal/multidevice/webdriver"
	"github.com/tebeka/selenium"
	"go.uber.org/zap"
)

var Settings config.Settings
var Logger *zap.Logger
var BaseURL string
var MaxWaitTimeout time.Duration
var server *http.Server

/*
Generic methods for running the tests
*/

// SetUp reads the settings and, unless DEVICE_PROFILE_BASE_URL points at a
// running site, serves resources/site on a local port.
func SetUp() {
	var err error

	if err = config.LoadEnvFile(""); err != nil {
		log.Fatalf("Could not load env file: %s", err)
	}
	Settings, err = config.Load(config.NewViper())
	if err != nil {
		log.Fatalf("Invalid configuration: %s", err)
	}
	Logger, err = logging.New(Settings.LogLevel)
	if err != nil {
		log.Fatalf("Could not create logger: %s", err)
	}
	zap.ReplaceGlobals(Logger)
	MaxWaitTimeout = 30 * time.Second

	BaseURL = Settings.BaseURL
	if BaseURL == "" {
		BaseURL, err = RunHtmlServer()
		if err != nil {
			log.Fatalf("HTTP server error: %s", err)
		}
	}
	Logger.Info("Running device profile tests", zap.String("url", BaseURL), zap.String("backend", Settings.Backend))
}

// RunHtmlServer serves the test site. Selenium hosts in containers reach it
// through the host's address, so it listens on all interfaces.
func RunHtmlServer() (string, error) {
	root, err := filepath.Abs("resources/site")
	if err != nil {
		return "", fmt.Errorf("error getting absolute path of resources/site: %w", err)
	}
	listener, err := net.Listen("tcp", ":3000")
	if err != nil {
		return "", err
	}
	server = &http.Server{Handler: http.FileServer(http.Dir(root))}

	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()
	return "http://localhost:3000", nil
}

func TearDown() {
	if server == nil {
		return
	}
	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP shutdown error: %s", err)
	}
	_ = Logger.Sync()
}

/*
Methods for interacting with the UI
*/

func InnerWidth(webDriver selenium.WebDriver) (int, error) {
	value, err := webDriver.ExecuteScript("return window.innerWidth;", nil)
	if err != nil {
		return 0, err
	}
	width, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected window.innerWidth value: %v", value)
	}
	return int(width), nil
}

func UserAgent(webDriver selenium.WebDriver) (string, error) {
	value, err := webDriver.ExecuteScript("return navigator.userAgent;", nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(value), nil
}

/*
Waiter methods
*/

func IsLayoutReady(webDriver selenium.WebDriver) (bool, error) {
	element, _ := webDriver.FindElement(selenium.ByID, "layout")
	if element == nil {
		return false, nil
	}
	text, err := element.Text()
	return len(text) > 0, err
}

func WaitForLayoutReady(webDriver selenium.WebDriver, timeout time.Duration) error {
	err := webDriver.WaitWithTimeout(IsLayoutReady, timeout)
	if err != nil {
		return fmt.Errorf("layout isn't ready after %v, Error: %s", timeout, err)
	}
	return nil
}

/*
Helpers
*/

// ExpectedWidth is the viewport width a profile asks for through chrome
// mobile emulation, or 0 when it does not pin one.
func ExpectedWidth(args webdriver.Args) int {
	options, _ := args.Capabilities["goog:chromeOptions"].(map[string]any)
	mobile, _ := options["mobileEmulation"].(map[string]any)
	metrics, _ := mobile["deviceMetrics"].(map[string]any)
	switch width := metrics["width"].(type) {
	case int:
		return width
	case float64:
		return int(width)
	default:
		return 0
	}
}
