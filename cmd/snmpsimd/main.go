package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/awksedgreep/snmp-sim-go/internal/agent"
	"github.com/awksedgreep/snmp-sim-go/internal/behavior"
	"github.com/awksedgreep/snmp-sim-go/internal/config"
	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/engine"
	"github.com/awksedgreep/snmp-sim-go/internal/fleet"
	"github.com/awksedgreep/snmp-sim-go/internal/pool"
	"github.com/awksedgreep/snmp-sim-go/internal/profile"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	mixName := flag.String("mix", "", "Device mix preset (overrides config)")
	portStart := flag.Int("port-start", 0, "Starting UDP port (overrides config)")
	portEnd := flag.Int("port-end", 0, "Ending UDP port, exclusive (overrides config)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	prewarm := flag.Bool("prewarm", false, "Create the whole population at startup instead of lazily")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}
	if *mixName != "" {
		cfg.Mix = *mixName
	}
	if *portStart != 0 {
		cfg.Listen.PortStart = *portStart
	}
	if *portEnd != 0 {
		cfg.Listen.PortEnd = *portEnd
	}
	if *listenAddr != "" {
		cfg.Listen.Addr = *listenAddr
	}
	if *prewarm {
		cfg.Startup.Prewarm = true
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	setupLogging(cfg.Logging.Level)

	mix, err := device.GetDeviceMix(cfg.Mix)
	if err != nil {
		log.Fatal().Err(err).Msg("unknown device mix")
	}
	assignments, err := device.BuildPortAssignments(mix, cfg.PortRange())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build port assignments")
	}

	stats := assignments.CalculateDensityStats()
	log.Info().
		Str("mix", cfg.Mix).
		Int("devices", stats.TotalDevices).
		Str("largest_type", string(stats.LargestType)).
		Int("port_start", cfg.Listen.PortStart).
		Int("port_end", cfg.Listen.PortEnd).
		Msg("starting SNMP fleet simulator")

	poolCfg := cfg.PoolConfig()
	poolCfg.Factory = buildFactory(cfg)
	devicePool := pool.New(poolCfg)
	devicePool.ConfigurePortAssignments(assignments)
	if err := devicePool.StartReaper(); err != nil {
		log.Fatal().Err(err).Msg("failed to start reaper")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := engine.NewListener(cfg.Listen.Addr, assignments, devicePool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create listener")
	}
	if err := listener.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start listener")
	}

	manager := fleet.NewManager(devicePool)
	if cfg.Startup.Prewarm {
		result, err := manager.StartDeviceMix(ctx, cfg.Mix, cfg.StartupOptions())
		if err != nil {
			log.Warn().Err(err).Int("created", result.TotalDevices).Msg("population prewarm incomplete")
		} else {
			log.Info().Int("created", result.TotalDevices).Msg("population prewarmed")
		}
	}

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	cancel()
	listener.Stop()
	manager.ShutdownDevicePopulation()
	devicePool.Close()
}

// buildFactory wires configured profiles and behaviors into device creation.
func buildFactory(cfg *config.Config) pool.Factory {
	var binder *behavior.Binder
	if cfg.BehaviorFile != "" {
		loaded, err := behavior.LoadBinder(cfg.BehaviorFile)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.BehaviorFile).Msg("failed to load behavior bindings")
		}
		binder = loaded
	}

	profiles := make(map[device.Type]*profile.Store, len(cfg.ProfileFiles))
	for typeName, path := range cfg.ProfileFiles {
		store, err := profile.LoadSnmprecFile(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load profile")
		}
		profiles[device.Type(typeName)] = store
	}

	return func(port int, t device.Type) (*agent.VirtualDevice, error) {
		opts := agent.Options{}
		if binder != nil {
			opts.Behaviors = binder
		}
		if store, ok := profiles[t]; ok {
			opts.Profile = store
		}
		return agent.NewVirtualDevice(port, t, opts)
	}
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn().Err(err).Msg("metrics server error")
	}
}
