package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/dispatcher"
	"github.com/bonvoyage/voyage/internal/handlers"
	"github.com/bonvoyage/voyage/internal/influx"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/monitor"
	"github.com/bonvoyage/voyage/internal/notify"
	intOtel "github.com/bonvoyage/voyage/internal/otel"
	"github.com/bonvoyage/voyage/internal/route"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/internal/vehicle"
	"github.com/bonvoyage/voyage/pkg/core"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/joho/godotenv"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// app holds everything the runner wires together. Fields are nil when the
// matching feature is disabled.
type app struct {
	sessionStart time.Time

	logFile     *os.File
	logFilePath string
	logManager  *logging.SlogManager
	logger      *slog.Logger
	otel        *intOtel.Provider
	gelf        *gelf.Writer

	backend    storage.Backend
	influx     *influx.Manager
	mqtt       *notify.MQTTSink
	service    *handlers.Service
	dispatcher *dispatcher.Dispatcher
	monitor    *monitor.Service
}

// loadConfig reads .env files, then the JSON config in configDir.
func loadConfig(configDir string) error {
	// a missing .env is normal outside development
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	return config.Load(configDir)
}

// setupLogging opens the session log file and installs the slog manager with
// the optional OTel and GELF outputs.
func (a *app) setupLogging() error {
	a.logManager = logging.NewSlogManager()
	level := config.GetString("logLevel")

	a.logFilePath = logging.LogFilePath(config.GetString("logsDir"), appName, a.sessionStart)
	file, err := logging.OpenLogFile(a.logFilePath)
	if err != nil {
		return err
	}
	a.logFile = file

	var startupErrs []string

	var otelLogProvider *sdklog.LoggerProvider
	if otelCfg := config.GetOTelConfig(); otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.FromConfig(otelCfg, file))
		if err != nil {
			startupErrs = append(startupErrs, fmt.Sprintf("otel: %v", err))
		} else {
			otelLogProvider = a.otel.LoggerProvider()
		}
	}

	var extra []slog.Handler
	if config.GetBool("graylog.enabled") {
		h, w, err := logging.NewGELFHandler(config.GetString("graylog.address"), level)
		if err != nil {
			startupErrs = append(startupErrs, fmt.Sprintf("graylog: %v", err))
		} else {
			extra = append(extra, h)
			a.gelf = w
		}
	}

	a.logManager.Setup(file, level, otelLogProvider, extra...)
	a.logger = a.logManager.Logger()
	for _, msg := range startupErrs {
		a.logger.Error("Optional log output disabled", "error", msg)
	}
	a.logger.Info("Logging to file", "path", a.logFilePath)
	return nil
}

// setupService builds storage, sinks, the handler service and the dispatcher.
func (a *app) setupService() error {
	var err error
	a.backend, err = openStorage(config.GetStorageConfig(), a.logManager)
	if err != nil {
		return err
	}

	sinks := []notify.Sink{
		notify.NewLogSink(a.logger),
		notify.NewStorageSink(a.backend, a.logger),
	}

	var metrics handlers.MetricWriter
	if config.GetBool("influx.enabled") {
		backup := filepath.Join(config.GetString("logsDir"),
			fmt.Sprintf("%s_influx_%s.lp.gz", appName, a.sessionStart.Format("20060102_150405")))
		a.influx = influx.NewManager(logging.ComponentLogger(a.logFile, "influx", config.GetString("logLevel")), backup)
		if err := a.influx.Connect(); err != nil {
			a.logger.Error("InfluxDB disabled", "error", err)
			a.influx = nil
		} else {
			sinks = append(sinks, a.influx)
			metrics = a.influx
		}
	}

	if mqttCfg := config.GetMQTTConfig(); mqttCfg.Enabled {
		a.mqtt, err = notify.NewMQTT(mqttCfg, a.logger)
		if err != nil {
			a.logger.Error("MQTT notifications disabled", "error", err)
			a.mqtt = nil
		} else {
			sinks = append(sinks, a.mqtt)
		}
	}

	plannerCfg := config.GetPlannerConfig()
	var terrain map[string]*route.RegionMap
	if plannerCfg.RegionsFile != "" {
		terrain, err = route.LoadRegionMaps(plannerCfg.RegionsFile)
		if err != nil {
			return fmt.Errorf("failed to load region maps: %w", err)
		}
	}

	simCfg := config.GetSimulatorConfig()
	a.service = handlers.NewService(handlers.Dependencies{
		Backend:    a.backend,
		LogManager: a.logManager,
		Planner: route.NewPlanner(route.Config{
			StepFactor:     plannerCfg.StepFactor,
			SamplesPerStep: plannerCfg.SamplesPerStep,
			SampleSpacing:  plannerCfg.SampleSpacing,
		}),
		Sink: notify.NewMulti(sinks...),
		Simulator: vehicle.Config{
			StepDistance:    plannerCfg.StepDistance,
			SafetyRadius:    simCfg.SafetyRadius,
			AutomaticDewarp: simCfg.AutomaticDewarp,
		},
		Terrain: terrain,
		Metrics: metrics,
	})

	bodies, err := config.GetBodies()
	if err != nil {
		return err
	}
	for _, b := range bodies {
		a.service.World().SetBody(core.Body{Name: b.Name, Radius: b.Radius, RotationPeriod: b.RotationPeriod}, nil)
	}

	a.logManager.SetFleetContext(func() logging.FleetInfo {
		return logging.FleetInfo{
			Vehicles: a.service.Controllers().Len(),
			Paused:   a.service.World().Paused(),
		}
	})

	dispatcherLog := logging.ComponentLogger(a.logFile, "dispatcher", config.GetString("logLevel"))
	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(dispatcherLog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.service.RegisterHandlers(a.dispatcher)

	restored, err := a.service.Restore()
	if err != nil {
		a.logger.Error("Failed to restore vehicles", "error", err)
	} else {
		a.logger.Info("Restored vehicles", "count", restored)
	}

	monitorCfg := config.GetMonitorConfig()
	monitorDeps := monitor.Dependencies{
		Fleet:      a.service.FleetStatus,
		LogManager: a.logManager,
		StatusFile: monitorCfg.StatusFile,
		Interval:   monitorCfg.Interval,
	}
	if a.mqtt != nil {
		monitorDeps.Publisher = a.mqtt
	}
	a.monitor = monitor.NewService(monitorDeps)
	return a.monitor.Start()
}

// close saves every controller and releases resources in reverse order.
func (a *app) close() {
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.service != nil {
		if n, err := a.service.SaveAll(); err != nil {
			a.logger.Error("Failed to save vehicles", "error", err)
		} else {
			a.logger.Info("Saved vehicles", "count", n)
		}
	}
	if a.mqtt != nil {
		if err := a.mqtt.Close(); err != nil {
			a.logger.Error("MQTT close", "error", err)
		}
	}
	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.logger.Error("InfluxDB close", "error", err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			a.logger.Error("Storage close", "error", err)
		}
	}
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to flush OTel data", "error", err)
		}
		cancel()
	}
	if a.gelf != nil {
		_ = a.gelf.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
