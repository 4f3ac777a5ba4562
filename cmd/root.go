package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/andreasragnarsson/fashion-finder/config"
	"github.com/andreasragnarsson/fashion-finder/internal/logx"
	"github.com/andreasragnarsson/fashion-finder/internal/stealth"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fashionfinder",
	Short: "Fashion Finder - cross-shop clothing search, landed cost and price watch",
	Long: "Searches configured clothing shops concurrently, ranks results by relevance and landed cost,\n" +
		"and watches prices. Also runs as an MCP server over stdio or HTTP.",
	SilenceUsage: true,
}

// Execute runs the root command until it returns or ctx is cancelled.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("shops", "", "Shop config file or directory (default configs/shops)")
	rootCmd.PersistentFlags().String("delay-profile", "", "Delay profile: cautious, normal, aggressive, none")
	rootCmd.PersistentFlags().Bool("respect-robots", true, "Respect robots.txt rules")
	rootCmd.PersistentFlags().String("proxy-mode", "", "Proxy mode: decodo, custom, direct")
	rootCmd.PersistentFlags().String("proxy-file", "", "Path to proxy list file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
}

func initConfig() {
	cfg = config.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Override from flags
	if v, _ := rootCmd.PersistentFlags().GetString("shops"); v != "" {
		cfg.ShopsPath = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("delay-profile"); v != "" {
		cfg.DelayProfile = v
	}
	if v, _ := rootCmd.PersistentFlags().GetBool("respect-robots"); !v {
		cfg.RespectRobots = false
	}
	if v, _ := rootCmd.PersistentFlags().GetString("proxy-mode"); v != "" {
		cfg.ProxyMode = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("proxy-file"); v != "" {
		cfg.ProxyFile = v
	}
	if v, _ := rootCmd.PersistentFlags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}

	logx.Init(logx.LoggerOpts{
		Production: cfg.Env() == config.Production,
		Level:      cfg.LogLevel,
	})
}

// buildTransport assembles the shared outbound pipeline. The registry clones it per
// shop with a private limiter.
func buildTransport() (*stealth.StealthTransport, error) {
	baseTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
	}

	var proxyRotator *stealth.ProxyRotator
	switch cfg.ProxyMode {
	case "decodo":
		if cfg.DecodoUsername == "" || cfg.DecodoPassword == "" {
			return nil, fmt.Errorf("proxy mode decodo needs DECODO_USERNAME and DECODO_PASSWORD")
		}
		proxyRotator = stealth.NewProxyRotator([]stealth.ProxyProvider{
			&stealth.DecodoProvider{
				Username: cfg.DecodoUsername,
				Password: cfg.DecodoPassword,
				Country:  cfg.DecodoCountry,
			},
		})
	case "custom":
		providers, err := stealth.LoadProxyFile(cfg.ProxyFile)
		if err != nil {
			return nil, fmt.Errorf("load proxy file: %w", err)
		}
		proxyRotator = stealth.NewProxyRotator(providers)
	}

	robots := stealth.NewRobotsChecker(&http.Client{Timeout: cfg.RequestTimeout}, cfg.RespectRobots)

	return &stealth.StealthTransport{
		Base:        baseTransport,
		Robots:      robots,
		Fingerprint: stealth.NewFingerprintPool(),
		Proxy:       proxyRotator,
		Delay:       stealth.NewHumanDelay(stealth.DelayProfile(cfg.DelayProfile)),
	}, nil
}
