package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ConfigName is the file Load looks for in the config directory.
const ConfigName = "voyage.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds settings of the in-memory SQLite backend
type SQLiteConfig struct {
	DumpInterval time.Duration
	DumpPath     string
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type   string // memory, sqlite, postgres or mongo
	Memory MemoryConfig
	SQLite SQLiteConfig
	Mongo  MongoConfig
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// SimulatorConfig holds the settings shared by every vehicle controller.
type SimulatorConfig struct {
	SafetyRadius    float64
	AutomaticDewarp bool
	// TickInterval is the wall-clock period of the headless runner.
	TickInterval time.Duration
	// TimeWarp scales wall-clock time into universal time.
	TimeWarp float64
}

// PlannerConfig holds route planner settings
type PlannerConfig struct {
	StepDistance   float64
	StepFactor     int
	SamplesPerStep int
	SampleSpacing  float64
	RegionsFile    string
}

// MQTTConfig holds settings of the MQTT notification sink
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool
	OutboxSize  int
}

// BodyConfig describes a celestial body known before the host reports any.
type BodyConfig struct {
	Name           string  `mapstructure:"name"`
	Radius         float64 `mapstructure:"radius"`
	RotationPeriod float64 `mapstructure:"rotationPeriod"`
}

// MonitorConfig holds settings of the fleet status loop
type MonitorConfig struct {
	Interval   time.Duration
	StatusFile string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. Environment
// variables prefixed with VOYAGE_ override file values.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("VOYAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(ConfigName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./voyagelogs")

	viper.SetDefault("planner.stepDistance", 1000)
	viper.SetDefault("planner.stepFactor", 4)
	viper.SetDefault("planner.samplesPerStep", 2)
	viper.SetDefault("planner.sampleSpacing", 250)
	viper.SetDefault("planner.regionsFile", "")

	viper.SetDefault("simulator.safetyRadius", 2400)
	viper.SetDefault("simulator.automaticDewarp", false)
	viper.SetDefault("simulator.tickInterval", "1s")
	viper.SetDefault("simulator.timeWarp", 1)

	viper.SetDefault("bodies", []map[string]any{
		{"name": "Kerbin", "radius": 600000, "rotationPeriod": 21549.425},
	})

	viper.SetDefault("monitor.interval", "10s")
	viper.SetDefault("monitor.statusFile", "")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./journeys")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./voyage.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "voyage")
	viper.SetDefault("db.sslmode", "disable")

	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "voyage")
	viper.SetDefault("mongo.timeout", "10s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "voyage")

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.clientId", "voyage")
	viper.SetDefault("mqtt.topicPrefix", "voyage")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retain", false)
	viper.SetDefault("mqtt.outboxSize", 1000)

	viper.SetDefault("api.serverUrl", "")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "voyage")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("mongo.uri"),
			Database: viper.GetString("mongo.database"),
			Timeout:  viper.GetDuration("mongo.timeout"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetSimulatorConfig returns the simulator settings.
func GetSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		SafetyRadius:    viper.GetFloat64("simulator.safetyRadius"),
		AutomaticDewarp: viper.GetBool("simulator.automaticDewarp"),
		TickInterval:    viper.GetDuration("simulator.tickInterval"),
		TimeWarp:        viper.GetFloat64("simulator.timeWarp"),
	}
}

// GetPlannerConfig returns the route planner settings.
func GetPlannerConfig() PlannerConfig {
	return PlannerConfig{
		StepDistance:   viper.GetFloat64("planner.stepDistance"),
		StepFactor:     viper.GetInt("planner.stepFactor"),
		SamplesPerStep: viper.GetInt("planner.samplesPerStep"),
		SampleSpacing:  viper.GetFloat64("planner.sampleSpacing"),
		RegionsFile:    viper.GetString("planner.regionsFile"),
	}
}

// GetMQTTConfig returns the MQTT sink settings.
func GetMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Enabled:     viper.GetBool("mqtt.enabled"),
		Broker:      viper.GetString("mqtt.broker"),
		ClientID:    viper.GetString("mqtt.clientId"),
		Username:    viper.GetString("mqtt.username"),
		Password:    viper.GetString("mqtt.password"),
		TopicPrefix: viper.GetString("mqtt.topicPrefix"),
		QoS:         byte(viper.GetUint("mqtt.qos")),
		Retain:      viper.GetBool("mqtt.retain"),
		OutboxSize:  viper.GetInt("mqtt.outboxSize"),
	}
}

// GetBodies returns the configured bodies. Entries without a name or with a
// non-positive radius are skipped.
func GetBodies() ([]BodyConfig, error) {
	var bodies []BodyConfig
	if err := viper.UnmarshalKey("bodies", &bodies); err != nil {
		return nil, fmt.Errorf("error reading bodies: %w", err)
	}
	out := bodies[:0]
	for _, b := range bodies {
		if b.Name == "" || b.Radius <= 0 {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

// APIConfig is the fleet archive server that exports are uploaded to.
type APIConfig struct {
	ServerURL string
	APIKey    string
}

// GetAPIConfig returns the upload server settings.
func GetAPIConfig() APIConfig {
	return APIConfig{
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}

// GetMonitorConfig returns the fleet status loop settings.
func GetMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:   viper.GetDuration("monitor.interval"),
		StatusFile: viper.GetString("monitor.statusFile"),
	}
}
