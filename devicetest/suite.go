// Package devicetest runs one browser test definition under several device
// profiles.
//
// A concrete suite embeds DeviceProfileSuite and picks its profile by setting
// ProfileKey, then runs once per profile:
//
//	type LoginSuite struct {
//		devicetest.DeviceProfileSuite
//	}
//
//	func TestLogin(t *testing.T) {
//		suite.Run(t, &LoginSuite{devicetest.DeviceProfileSuite{ProfileKey: "desktop"}})
//		suite.Run(t, &LoginSuite{devicetest.DeviceProfileSuite{ProfileKey: "small_mobile"}})
//	}
//
// The driver is built directly from the profile in SetupTest, so no
// environment variable has to be set before the driver exists. Drivers that
// can only read their arguments from the environment set PublishProfile: the
// profile is then published to profiles.DriverArgsEnv for exactly the duration
// of the NewDriver call.
package devicetest

import (
	"github.com/padaiyal/multidevice/profiles"
	"github.com/padaiyal/multidevice/webdriver"
	"github.com/stretchr/testify/suite"
	"github.com/tebeka/selenium"
	"go.uber.org/zap"
)

// DriverFactory builds the browser driver for one test.
type DriverFactory func(args webdriver.Args, opts webdriver.Options) (selenium.WebDriver, error)

type DeviceProfileSuite struct {
	suite.Suite

	// ProfileKey selects the device profile. It must be a key of the
	// profiles file used for the run.
	ProfileKey string
	Resolver   *profiles.Resolver
	Options    webdriver.Options
	NewDriver  DriverFactory
	Logger     *zap.Logger

	// PublishProfile publishes the profile to the environment while NewDriver runs.
	PublishProfile bool

	Profile profiles.Config
	Args    webdriver.Args
	Driver  selenium.WebDriver
}

func (s *DeviceProfileSuite) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// SetupTest loads the profile fresh and builds the driver from it.
func (s *DeviceProfileSuite) SetupTest() {
	s.Require().NotEmpty(s.ProfileKey, "device profile key is not set")
	s.Require().NoError(s.start(), "error getting driver for profile %s", s.ProfileKey)
}

// resolver falls back to a zero-value Resolver, which reads
// DEVICE_PROFILE_YAML_PATH and DEVICE_PROFILE_STRICT itself.
func (s *DeviceProfileSuite) resolver() *profiles.Resolver {
	if s.Resolver != nil {
		return s.Resolver
	}
	return &profiles.Resolver{Logger: s.Logger}
}

func (s *DeviceProfileSuite) start() error {
	newDriver := s.NewDriver
	if newDriver == nil {
		newDriver = webdriver.NewRemote
	}

	var err error
	if s.Profile, err = s.resolver().Load(s.ProfileKey); err != nil {
		return err
	}
	if s.Args, err = webdriver.ArgsFromProfile(s.Profile); err != nil {
		return err
	}

	s.logger().Info("starting driver",
		zap.String("profile", s.ProfileKey),
		zap.String("browser", s.Args.Browser),
		zap.String("host", s.Args.Host),
	)
	if !s.PublishProfile {
		s.Driver, err = newDriver(s.Args, s.Options)
		return err
	}
	return profiles.WithPublished(s.Profile, func() (err error) {
		s.Driver, err = newDriver(s.Args, s.Options)
		return err
	})
}

func (s *DeviceProfileSuite) TearDownTest() {
	if s.Driver == nil {
		return
	}
	if err := webdriver.Close(s.Driver); err != nil {
		s.logger().Warn("error closing driver", zap.String("profile", s.ProfileKey), zap.Error(err))
	}
	s.Driver = nil
}

// Visit opens url in the profile's browser and fails the test on error.
func (s *DeviceProfileSuite) Visit(url string) {
	s.Require().NotNil(s.Driver, "driver is not running")
	s.Require().NoError(s.Driver.Get(url), "error visiting %s", url)
}
