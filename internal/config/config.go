package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix prefix of every environment variable read by Load
const EnvPrefix = "MQTT_"

// Client settings shared by the example programs
type Client struct {
	BrokerURL      string        `env:"BROKER_URL"       envDefault:"tcp://localhost:1883"`
	ClientID       string        `env:"CLIENT_ID"`
	KeepAlive      uint16        `env:"KEEP_ALIVE"       envDefault:"60"`
	CleanSession   bool          `env:"CLEAN_SESSION"    envDefault:"true"`
	UserName       string        `env:"USERNAME"`
	Password       string        `env:"PASSWORD"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT"  envDefault:"10s"`
	MaxPacketSize  int           `env:"MAX_PACKET_SIZE"  envDefault:"0"`
	LogLevel       string        `env:"LOG_LEVEL"        envDefault:"info"`
	MetricsAddress string        `env:"METRICS_ADDRESS"`
}

// Load reads the configuration from MQTT_ prefixed environment variables.
// The given files, or .env in the working directory, are loaded first when
// they exist. Variables already set in the environment win.
func Load(files ...string) (Client, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Client{}, fmt.Errorf("loading env file: %w", err)
	}

	var cfg Client
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Client{}, err
	}
	return cfg, nil
}

// RegisterFlags binds command line flags to c, the current values are the
// defaults so flags override the environment
func (c *Client) RegisterFlags(flags *flag.FlagSet) {
	flags.StringVar(&c.BrokerURL, "b", c.BrokerURL, "Broker URL, tcp://, mqtts://, ws:// or wss://")
	flags.StringVar(&c.ClientID, "id", c.ClientID, "Client identifier, generated when empty")
	flags.Func("k", fmt.Sprintf("Keep alive in seconds (default %d)", c.KeepAlive), func(s string) error {
		v, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return err
		}
		c.KeepAlive = uint16(v)
		return nil
	})
	flags.BoolVar(&c.CleanSession, "cs", c.CleanSession, "Start with a clean session")
	flags.StringVar(&c.UserName, "u", c.UserName, "User name")
	flags.StringVar(&c.Password, "P", c.Password, "Password")
	flags.StringVar(&c.LogLevel, "log", c.LogLevel, "Log level")
	flags.StringVar(&c.MetricsAddress, "metrics", c.MetricsAddress, "Address of the prometheus endpoint, disabled when empty")
}

// Validate checks the values that can not be checked while parsing
func (c *Client) Validate() error {
	u, err := url.Parse(c.BrokerURL)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid broker URL %q", c.BrokerURL)
	}
	if len(c.Password) > 0 && len(c.UserName) == 0 {
		return errors.New("a password requires a user name")
	}
	if c.MaxPacketSize < 0 {
		return fmt.Errorf("invalid maximum packet size %d", c.MaxPacketSize)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SetupLogging applies the configured log level to the standard logger
func (c *Client) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}
