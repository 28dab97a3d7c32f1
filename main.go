// Package main runs the UHF reader agent: it bridges a UHF RFID reader
// (or a simulated one) to WebSocket and HTTP clients on the local network.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dotside-studios/davi-uhf-agent/buildinfo"
	"github.com/dotside-studios/davi-uhf-agent/config"
)

type cliFlags struct {
	configPath string
	mode       string
	device     string
	host       string
	port       int
	apiSecret  string
	logFile    string
	noMDNS     bool
	tls        bool
	version    bool
}

func parseFlags(args []string) (*cliFlags, *flag.FlagSet, error) {
	f := &cliFlags{}
	fs := flag.NewFlagSet(buildinfo.DirName, flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	fs.StringVar(&f.mode, "mode", "", "Reader mode: simulated or hardware")
	fs.StringVar(&f.device, "device", "", "Reader target, e.g. tcp://192.168.1.190:6000 or serial:///dev/ttyUSB0")
	fs.StringVar(&f.host, "host", "", "Address to listen on")
	fs.IntVar(&f.port, "port", 0, "Port to listen on for WebSocket and HTTP clients")
	fs.StringVar(&f.apiSecret, "api-secret", "", "API secret required from clients (optional)")
	fs.StringVar(&f.logFile, "log-file", "", "Also write logs to this file")
	fs.BoolVar(&f.noMDNS, "no-mdns", false, "Disable mDNS advertisement")
	fs.BoolVar(&f.tls, "tls", false, "Serve wss/https with a locally trusted certificate")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return f, fs, nil
}

// apply overlays flags that were set explicitly on the command line.
func (f *cliFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "mode":
			cfg.Mode = f.mode
		case "device":
			cfg.Device.Target = f.device
		case "host":
			cfg.Server.Host = f.host
		case "port":
			cfg.Server.Port = f.port
		case "api-secret":
			cfg.Server.APISecret = f.apiSecret
		case "log-file":
			cfg.LogFile = f.logFile
		case "no-mdns":
			cfg.Server.MDNS = !f.noMDNS
		case "tls":
			cfg.Server.TLS = f.tls
		}
	})
}

// loadConfig resolves the configuration: file, then UHF_* environment,
// then explicit flags.
func loadConfig(f *cliFlags, fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	f.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func setupLogFile(path string) (io.Closer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return file, nil
}

func main() {
	flags, fs, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if flags.version {
		fmt.Println(buildinfo.BuildInfo())
		return
	}

	cfg, err := loadConfig(flags, fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.LogFile != "" {
		closer, err := setupLogFile(cfg.LogFile)
		if err != nil {
			log.Fatalf("Failed to set up logging: %v", err)
		}
		defer closer.Close()
	}

	log.Printf("%s %s starting", buildinfo.DisplayName, buildinfo.FullVersion())
	agent := NewAgent(cfg, log.Writer())
	if err := agent.Start(); err != nil {
		log.Fatalf("Failed to start agent: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		agent.Stop(ctx)
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutdown signal received, stopping agent...")
}
