// Package env builds a System from command line flags and environment.
package env

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/rtloop/pkg/decrypt"
	fx "github.com/robotalks/rtloop/pkg/framework"
	"github.com/robotalks/rtloop/pkg/gpio"
	"github.com/robotalks/rtloop/pkg/observe"
	"github.com/robotalks/rtloop/pkg/observe/mqtt"
	"github.com/robotalks/rtloop/pkg/periodic"
	"github.com/robotalks/rtloop/pkg/serial"
	"github.com/robotalks/rtloop/pkg/system"
)

// Button sources.
const (
	ButtonSignal = "signal"
	ButtonSim    = "sim"
)

// KeyEnv is the environment variable carrying the hex encoded key.
const KeyEnv = "RTLOOP_AES_KEY"

// ErrNoKey indicates neither a key file nor KeyEnv is provided.
var ErrNoKey = errors.New("no key provisioned, use -key-file or " + KeyEnv)

// Config provides options to setup a System.
type Config struct {
	Pin  int
	Edge string
	// PullUp enables the internal pull-up, the button line idles high.
	PullUp bool
	// Button is "signal" (SIGUSR1), "sim" (driven in-process) or
	// "jsN:B" for button B of joystick N.
	Button string

	RaceWindow  time.Duration
	Period      time.Duration
	Cycles      int
	SyncCounter bool

	// Serial is a device path, "-" for stdin or a ws:// URL.
	// Empty disables decryption.
	Serial         string
	ReadBufferSize int
	Excess         string
	KeyFile        string
	Key            string

	// MQTTBrokerURL specifies the MQTT broker to publish observations.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	DeviceID      string
}

var defaultConfig = Config{
	Pin:            gpio.DefaultConfig.Pin,
	Edge:           gpio.DefaultConfig.Edge.String(),
	PullUp:         gpio.DefaultConfig.PullUp,
	Button:         ButtonSignal,
	RaceWindow:     periodic.DefaultRaceWindow,
	Period:         periodic.DefaultPeriod,
	ReadBufferSize: decrypt.DefaultConfig.ReadBufferSize,
	Excess:         "discard",
}

func init() {
	if val := os.Getenv("RTLOOP_BUTTON"); val != "" {
		defaultConfig.Button = val
	}
	if val := os.Getenv("RTLOOP_SERIAL"); val != "" {
		defaultConfig.Serial = val
	}
	if val := os.Getenv("RTLOOP_KEY_FILE"); val != "" {
		defaultConfig.KeyFile = val
	}
	if val := os.Getenv("RTLOOP_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("RTLOOP_DEVICE_ID"); val != "" {
		defaultConfig.DeviceID = val
	}
	if val := os.Getenv("RTLOOP_SYNC_COUNTER"); val != "" {
		defaultConfig.SyncCounter, _ = strconv.ParseBool(val)
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.Pin, "pin", defaultConfig.Pin, "Push button GPIO number.")
	flag.StringVar(&defaultConfig.Edge, "edge", defaultConfig.Edge, "Interrupt edge: falling, rising or both.")
	flag.BoolVar(&defaultConfig.PullUp, "pull-up", defaultConfig.PullUp, "Enable internal pull-up.")
	flag.StringVar(&defaultConfig.Button, "button", defaultConfig.Button, "Button source: signal, sim or jsN:B.")
	flag.DurationVar(&defaultConfig.RaceWindow, "race-window", defaultConfig.RaceWindow, "Delay between reading and writing the shared counter.")
	flag.DurationVar(&defaultConfig.Period, "period", defaultConfig.Period, "Delay between counter updates.")
	flag.IntVar(&defaultConfig.Cycles, "cycles", defaultConfig.Cycles, "Counter update cycles, 0 runs forever.")
	flag.BoolVar(&defaultConfig.SyncCounter, "sync-counter", defaultConfig.SyncCounter, "Serialize counter updates.")
	flag.StringVar(&defaultConfig.Serial, "serial", defaultConfig.Serial, "Ciphertext source: device path, - for stdin, or ws:// URL.")
	flag.IntVar(&defaultConfig.ReadBufferSize, "read-buffer", defaultConfig.ReadBufferSize, "Serial read buffer size.")
	flag.StringVar(&defaultConfig.Excess, "excess", defaultConfig.Excess, "Bytes beyond a block: discard or retain.")
	flag.StringVar(&defaultConfig.KeyFile, "key-file", defaultConfig.KeyFile, "File holding the AES-128 key, raw or hex.")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL to publish observations.")
	flag.StringVar(&defaultConfig.DeviceID, "id", defaultConfig.DeviceID, "Device ID, default derived from machine ID.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
// The key is never a flag, it is only read from KeyEnv here.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Key = os.Getenv(KeyEnv)
	return &conf
}

// PinConfig returns the push button GPIO configuration.
func (c *Config) PinConfig() (gpio.Config, error) {
	edge, err := gpio.ParseEdge(c.Edge)
	if err != nil {
		return gpio.Config{}, err
	}
	conf := gpio.Config{Pin: c.Pin, Edge: edge, PullUp: c.PullUp}
	return conf, conf.Validate()
}

// LoadKey loads the pre-shared key, the key file takes precedence.
func (c *Config) LoadKey() ([]byte, error) {
	if c.KeyFile != "" {
		data, err := ioutil.ReadFile(c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("read key file: %v", err)
		}
		return decrypt.ParseKey(data)
	}
	if c.Key != "" {
		return decrypt.ParseKey([]byte(c.Key))
	}
	return nil, ErrNoKey
}

// ParseJoystickButton parses "jsN:B".
func ParseJoystickButton(s string) (index, button int, err error) {
	if !strings.HasPrefix(s, "js") {
		return 0, 0, fmt.Errorf("invalid joystick button %q", s)
	}
	parts := strings.SplitN(s[2:], ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid joystick button %q, expect jsN:B", s)
	}
	if index, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("invalid joystick index %q", parts[0])
	}
	if button, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("invalid joystick button %q", parts[1])
	}
	return index, button, nil
}

// EdgeSource creates the push button. The returned driver, if not nil,
// must run for edges to arrive.
func (c *Config) EdgeSource() (gpio.EdgeSource, fx.Runnable, error) {
	conf, err := c.PinConfig()
	if err != nil {
		return nil, nil, err
	}
	switch c.Button {
	case ButtonSim:
		pin, err := gpio.NewSimPin(conf)
		return pin, nil, err
	case ButtonSignal, "":
		b, err := gpio.NewSignalButton(conf)
		if err != nil {
			return nil, nil, err
		}
		return b, fx.NamedRun("button", b), nil
	}
	index, button, err := ParseJoystickButton(c.Button)
	if err != nil {
		return nil, nil, err
	}
	j, err := gpio.OpenJoystickButton(index, button, conf)
	if err != nil {
		return nil, nil, err
	}
	return j, fx.NamedRun("joystick", j), nil
}

// ByteSource opens the serial source, nil if none is configured.
func (c *Config) ByteSource() (*serial.Port, error) {
	switch {
	case c.Serial == "":
		return nil, nil
	case strings.HasPrefix(c.Serial, "ws://") || strings.HasPrefix(c.Serial, "wss://"):
		return serial.DialWebSocket(c.Serial, "http://localhost/")
	}
	return serial.Open(c.Serial)
}

// DecryptConfig returns the pipeline configuration.
func (c *Config) DecryptConfig() (decrypt.Config, error) {
	conf := decrypt.DefaultConfig
	conf.ReadBufferSize = c.ReadBufferSize
	excess, err := decrypt.ParseExcessPolicy(c.Excess)
	if err != nil {
		return conf, err
	}
	conf.Excess = excess
	return conf, nil
}

// Observer returns the observation sink: the log and, if a broker is
// configured, an MQTT publisher which must run as a driver.
func (c *Config) Observer() (observe.Observer, fx.Runnable, error) {
	mux := (&observe.Mux{}).Add(observe.Log{})
	if c.MQTTBrokerURL == "" {
		return mux, nil, nil
	}
	device := c.DeviceID
	if device == "" {
		device = DeviceID()
	}
	pub, err := mqtt.NewPublisher(c.MQTTBrokerURL, device)
	if err != nil {
		return nil, nil, fmt.Errorf("create MQTT publisher error: %v", err)
	}
	mux.Add(pub)
	return mux, fx.NamedRun("mqtt", pub), nil
}

// Options assembles system.Options. With extra observers the log
// is still written.
func (c *Config) Options(observers ...observe.Observer) (system.Options, error) {
	var opts system.Options
	src, driver, err := c.EdgeSource()
	if err != nil {
		return opts, fmt.Errorf("push button: %v", err)
	}
	opts.EdgeSource = src
	if driver != nil {
		opts.Drivers = append(opts.Drivers, driver)
	}

	observer, driver, err := c.Observer()
	if err != nil {
		return opts, err
	}
	if len(observers) > 0 {
		observer = (&observe.Mux{}).Add(observer).Add(observers...)
	}
	opts.Observer = observer
	if driver != nil {
		opts.Drivers = append(opts.Drivers, driver)
	}

	opts.Periodic = periodic.Config{RaceWindow: c.RaceWindow, Period: c.Period, Cycles: c.Cycles}
	opts.SyncCounter = c.SyncCounter

	if opts.Decrypt, err = c.DecryptConfig(); err != nil {
		return opts, err
	}
	if c.Serial == "" {
		return opts, nil
	}
	key, err := c.LoadKey()
	if err != nil {
		return opts, err
	}
	if opts.Cipher, err = decrypt.NewAESCipher(key); err != nil {
		return opts, err
	}
	port, err := c.ByteSource()
	if err != nil {
		return opts, fmt.Errorf("open serial %s: %v", c.Serial, err)
	}
	opts.ByteSource = port
	opts.Drivers = append(opts.Drivers, fx.NamedRun("serial", port))
	return opts, nil
}

// NewSystem creates a System from config.
func (c *Config) NewSystem(observers ...observe.Observer) (*system.System, error) {
	opts, err := c.Options(observers...)
	if err != nil {
		return nil, err
	}
	return system.New(opts)
}

// MustNewSystem creates a System and fails on error.
func (c *Config) MustNewSystem(observers ...observe.Observer) *system.System {
	sys, err := c.NewSystem(observers...)
	if err != nil {
		glog.Fatalf("setup failed: %v", err)
	}
	return sys
}

// Run starts sys with signal handling and parks until it stops.
func Run(sys *system.System) error {
	return sys.StartWith(fx.NewRunner().HandleSignals()).Wait()
}
