package storecli

import (
	"flag"
	"time"

	"github.com/openpmca/webinstaller/internal/flagx"
)

type Config struct {
	MarketBaseURL        string
	MarketRequestTimeout time.Duration
	OutputDir            string
}

func (c *Config) LoadDefaults() {
	c.MarketBaseURL = "https://store.camera-apps.example.com/portal"
	c.MarketRequestTimeout = 30 * time.Second
	c.OutputDir = "downloads"
}

// LoadConfig applies defaults and overlays the flags the store client
// recognizes. Arguments are filtered first so the tool can coexist with
// flags owned by other components.
func LoadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()

	filtered := flagx.FilterArgs(args, []string{"-m", "-w", "-o"})

	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	fs.StringVar(&cfg.MarketBaseURL, "m", cfg.MarketBaseURL, "vendor store base URL")
	marketRequestTimeout := fs.Int("w", int(cfg.MarketRequestTimeout.Seconds()), "vendor store request timeout (in seconds)")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "directory for downloaded packages")

	if err := fs.Parse(filtered); err != nil {
		panic(err)
	}

	cfg.MarketRequestTimeout = time.Duration(*marketRequestTimeout) * time.Second

	return cfg
}
