package webdriver

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/tebeka/selenium/chrome"
)

// RodSession drives a local Chrome over the DevTools protocol. The profile's
// wdHost is ignored; Chrome is always launched on this machine.
type RodSession struct {
	Browser *rod.Browser
	Page    *rod.Page

	launcher *launcher.Launcher
}

type chromeFlag struct {
	name   string
	values []string
}

// emulation is what a chromedriver mobileEmulation block asks for.
type emulation struct {
	metrics   *proto.EmulationSetDeviceMetricsOverride
	touch     bool
	userAgent string
}

// NewRod launches Chrome with the profile's chrome arguments and applies its
// mobile emulation to a fresh page.
func NewRod(args Args, opts Options) (*RodSession, error) {
	if args.Browser != CHROME {
		return nil, fmt.Errorf("the rod backend only drives %s, profile asks for %s", CHROME, args.Browser)
	}
	caps, err := Capabilities(args, opts)
	if err != nil {
		return nil, err
	}
	chromeFlags, headless, err := rodFlags(caps)
	if err != nil {
		return nil, err
	}
	emulated, err := rodEmulation(caps)
	if err != nil {
		return nil, err
	}

	l := launcher.New().Headless(headless || opts.Headless)
	for _, f := range chromeFlags {
		l = l.Set(flags.Flag(f.name), f.values...)
	}
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch Chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("failed to connect to Chrome: %w", err)
	}
	session := &RodSession{Browser: browser, launcher: l}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = session.Quit()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	session.Page = page

	if emulated.metrics != nil {
		if err := page.SetViewport(emulated.metrics); err != nil {
			_ = session.Quit()
			return nil, fmt.Errorf("failed to emulate device metrics: %w", err)
		}
	}
	if emulated.touch {
		if err := (proto.EmulationSetTouchEmulationEnabled{Enabled: true}).Call(page); err != nil {
			_ = session.Quit()
			return nil, fmt.Errorf("failed to enable touch emulation: %w", err)
		}
	}
	if emulated.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: emulated.userAgent}); err != nil {
			_ = session.Quit()
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	return session, nil
}

func (s *RodSession) Navigate(url string) error {
	if err := s.Page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return s.Page.WaitLoad()
}

func (s *RodSession) Quit() error {
	err := s.Browser.Close()
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
	return err
}

func chromeOptions(caps map[string]any) (map[string]any, error) {
	raw, ok := caps[chrome.CapabilitiesKey]
	if !ok || raw == nil {
		return nil, nil
	}
	options, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a mapping, got %T", chrome.CapabilitiesKey, raw)
	}
	return options, nil
}

// rodFlags turns "--name=value" chrome arguments into launcher flags. Headless
// flags are reported separately because the launcher owns that switch.
func rodFlags(caps map[string]any) ([]chromeFlag, bool, error) {
	options, err := chromeOptions(caps)
	if err != nil || options == nil {
		return nil, false, err
	}
	raw, ok := options["args"]
	if !ok || raw == nil {
		return nil, false, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, false, fmt.Errorf("%s.args must be a list, got %T", chrome.CapabilitiesKey, raw)
	}

	var result []chromeFlag
	headless := false
	for _, item := range list {
		arg, ok := item.(string)
		if !ok {
			return nil, false, fmt.Errorf("chrome argument must be a string, got %v", item)
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if name == "headless" {
			headless = true
			continue
		}
		f := chromeFlag{name: name}
		if hasValue {
			f.values = []string{value}
		}
		result = append(result, f)
	}
	return result, headless, nil
}

func rodEmulation(caps map[string]any) (emulation, error) {
	var result emulation
	options, err := chromeOptions(caps)
	if err != nil || options == nil {
		return result, err
	}
	raw, ok := options["mobileEmulation"]
	if !ok || raw == nil {
		return result, nil
	}
	mobile, ok := raw.(map[string]any)
	if !ok {
		return result, fmt.Errorf("mobileEmulation must be a mapping, got %T", raw)
	}
	if name, ok := mobile["deviceName"]; ok {
		return result, fmt.Errorf("mobileEmulation.deviceName %v needs chromedriver, give deviceMetrics instead", name)
	}
	if ua, ok := mobile["userAgent"].(string); ok {
		result.userAgent = ua
	}

	rawMetrics, ok := mobile["deviceMetrics"]
	if !ok || rawMetrics == nil {
		return result, nil
	}
	metrics, ok := rawMetrics.(map[string]any)
	if !ok {
		return result, fmt.Errorf("mobileEmulation.deviceMetrics must be a mapping, got %T", rawMetrics)
	}
	width, okWidth := number(metrics["width"])
	height, okHeight := number(metrics["height"])
	if !okWidth || !okHeight || width <= 0 || height <= 0 {
		return result, fmt.Errorf("mobileEmulation.deviceMetrics needs positive width and height, got %v", metrics)
	}
	ratio, ok := number(metrics["pixelRatio"])
	if !ok {
		ratio = 1
	}
	touch, _ := metrics["touch"].(bool)
	isMobile, ok := metrics["mobile"].(bool)
	if !ok {
		isMobile = touch
	}
	result.touch = touch
	result.metrics = &proto.EmulationSetDeviceMetricsOverride{
		Width:             int(width),
		Height:            int(height),
		DeviceScaleFactor: ratio,
		Mobile:            isMobile,
	}
	return result, nil
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
