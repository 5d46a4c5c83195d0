package devicetest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/padaiyal/multidevice/profiles"
	"github.com/padaiyal/multidevice/webdriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/tebeka/selenium"
	"go.uber.org/zap/zaptest"
)

const profilesYAML = `
desktop:
  - chrome
  - goog:chromeOptions:
      args: ["--window-size=1920,1080"]
  - http://selenium:4444/wd/hub
small_mobile:
  browserName: chrome
  desiredCapabilities:
    goog:chromeOptions:
      mobileEmulation:
        deviceName: Pixel 5
`

// fakeDriver records calls instead of talking to a WebDriver host. Methods
// that are not overridden panic through the nil embedded interface.
type fakeDriver struct {
	selenium.WebDriver
	visited []string
	closed  bool
	quit    bool
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func (d *fakeDriver) Get(url string) error {
	d.visited = append(d.visited, url)
	return nil
}

func (d *fakeDriver) Quit() error {
	d.quit = true
	return nil
}

type recordingSuite struct {
	DeviceProfileSuite
	drivers   []*fakeDriver
	published []profiles.Config
}

func (s *recordingSuite) newDriver(args webdriver.Args, opts webdriver.Options) (selenium.WebDriver, error) {
	if s.PublishProfile {
		cfg, err := profiles.Published()
		if err != nil {
			return nil, err
		}
		s.published = append(s.published, cfg)
	}
	driver := &fakeDriver{}
	s.drivers = append(s.drivers, driver)
	return driver, nil
}

func (s *recordingSuite) TestProfileIsLoaded() {
	s.Equal(s.ProfileKey, s.Profile.Key)
	s.Equal(webdriver.CHROME, s.Args.Browser)
	s.NotNil(s.Driver)
}

func (s *recordingSuite) TestVisit() {
	s.Visit("http://localhost:3000/")
	s.Equal([]string{"http://localhost:3000/"}, s.Driver.(*fakeDriver).visited)
}

func newRecordingSuite(t *testing.T, key string) *recordingSuite {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(profilesYAML), 0o644))

	s := &recordingSuite{}
	s.ProfileKey = key
	s.Resolver = &profiles.Resolver{Path: path, Strict: true}
	s.Logger = zaptest.NewLogger(t)
	s.NewDriver = s.newDriver
	return s
}

func TestDeviceProfileSuite(t *testing.T) {
	for _, key := range []string{"desktop", "small_mobile"} {
		t.Run(key, func(t *testing.T) {
			s := newRecordingSuite(t, key)
			suite.Run(t, s)

			require.Len(t, s.drivers, 2, "one driver per test")
			for _, driver := range s.drivers {
				assert.True(t, driver.closed, "window should be closed after each test")
				assert.True(t, driver.quit, "driver should be quit after each test")
			}
			assert.Nil(t, s.Driver)
		})
	}
}

func TestDeviceProfileSuitePublishesProfile(t *testing.T) {
	t.Setenv(profiles.DriverArgsEnv, "")
	s := newRecordingSuite(t, "desktop")
	s.PublishProfile = true

	suite.Run(t, s)

	require.Len(t, s.published, 2)
	for _, cfg := range s.published {
		assert.Equal(t, "chrome", cfg.Positional[0])
	}
	assert.Equal(t, "", os.Getenv(profiles.DriverArgsEnv), "side-channel should be restored after setup")
}

func TestDefaultResolverHonoursStrictEnvironment(t *testing.T) {
	t.Setenv(profiles.PathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(profiles.StrictEnv, "true")

	built := false
	s := &DeviceProfileSuite{
		ProfileKey: "desktop",
		NewDriver: func(webdriver.Args, webdriver.Options) (selenium.WebDriver, error) {
			built = true
			return &fakeDriver{}, nil
		},
	}

	err := s.start()
	var cfgErr *profiles.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.NotContains(t, cfgErr.Attempted, profiles.DefaultFallbackPath())
	assert.False(t, built, "no driver without a profiles file")
	assert.Nil(t, s.Driver)
}
