package webdriver

import (
	"fmt"
	"strings"

	"github.com/padaiyal/multidevice/profiles"
	"github.com/tebeka/selenium"
)

const (
	BackendSelenium = "selenium"
	BackendRod      = "rod"
)

// Session is the part of a browser driver the device profile tests need from
// either backend.
type Session interface {
	Navigate(url string) error
	Quit() error
}

// NewRemote connects to the WebDriver host named by args.
func NewRemote(args Args, opts Options) (selenium.WebDriver, error) {
	caps, err := Capabilities(args, opts)
	if err != nil {
		return nil, err
	}
	driver, err := selenium.NewRemote(caps, args.Host)
	if err != nil {
		return nil, fmt.Errorf("error creating %s driver at %s: %w", args.Browser, args.Host, err)
	}
	return driver, nil
}

// NewFromEnvironment builds the driver from the arguments published to
// profiles.DriverArgsEnv, ignoring the arguments it is given. It matches
// devicetest.DriverFactory for suites that set PublishProfile.
func NewFromEnvironment(_ Args, opts Options) (selenium.WebDriver, error) {
	cfg, err := profiles.Published()
	if err != nil {
		return nil, err
	}
	args, err := ArgsFromProfile(cfg)
	if err != nil {
		return nil, err
	}
	return NewRemote(args, opts)
}

// New builds a Session on the given backend.
func New(backend string, args Args, opts Options) (Session, error) {
	switch strings.ToLower(backend) {
	case "", BackendSelenium:
		driver, err := NewRemote(args, opts)
		if err != nil {
			return nil, err
		}
		return seleniumSession{driver}, nil
	case BackendRod:
		return NewRod(args, opts)
	default:
		return nil, fmt.Errorf("unsupported driver backend: %s", backend)
	}
}

type seleniumSession struct {
	selenium.WebDriver
}

func (s seleniumSession) Navigate(url string) error {
	return s.Get(url)
}

// Close closes the current window, then ends the session. A session that was
// never established only produces a warning from Quit.
func Close(driver selenium.WebDriver) error {
	var errs []string
	if err := driver.Close(); err != nil {
		errs = append(errs, "closing window: "+err.Error())
	}
	if err := driver.Quit(); err != nil && !strings.Contains(err.Error(), "invalid session id") {
		errs = append(errs, "quitting driver: "+err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("error closing driver: %s", strings.Join(errs, "; "))
	}
	return nil
}
