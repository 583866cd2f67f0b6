// Package influx writes journey telemetry to InfluxDB. When the server cannot
// be reached, points are appended in line protocol to a gzip backup file that
// can be replayed later.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bonvoyage/voyage/pkg/core"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Bucket names
const (
	BucketProgress = "vehicle_progress"
	BucketJourneys = "journey_events"
	BucketHost     = "host_metrics"
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{
	BucketProgress,
	BucketJourneys,
	BucketHost,
}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	mu         sync.Mutex // guards BackupWriter
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB. An unreachable server is not
// an error: writes go to the backup file instead.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())
	m.IsValid = err == nil && running

	if !m.IsValid {
		m.Logger.Warn().Str("backupPath", m.BackupPath).
			Msg("InfluxDB client failed to initialize, using backup writer")
		return m.UseBackup()
	}

	if err := m.setupOrganizationAndBuckets(); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// UseBackup routes all writes to the gzip backup file.
func (m *Manager) UseBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.IsValid = false
	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return errors.New("influx backup path not set")
	}

	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %v", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
	}
	return nil
}

// Close flushes pending writes and closes the backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	return errors.Join(errs...)
}

func eventTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// RecordProgress writes one point per moving tick.
func (m *Manager) RecordProgress(e core.ProgressEvent) {
	p := influxdb2.NewPoint(BucketProgress,
		map[string]string{
			"vehicle": e.VehicleID,
			"body":    e.Body,
			"state":   e.State,
		},
		map[string]interface{}{
			"latitude":          e.Latitude,
			"longitude":         e.Longitude,
			"distanceTravelled": e.DistanceTravelled,
			"distanceToTarget":  e.DistanceToTarget,
			"speed":             e.Speed,
			"sunAngle":          e.SunAngle,
			"currentEC":         e.CurrentEC,
			"universalTime":     e.UniversalTime,
		},
		eventTime(e.Time))
	if err := m.WritePoint(BucketProgress, p); err != nil {
		m.Logger.Error().Err(err).Str("vehicle", e.VehicleID).Msg("Error writing progress point")
	}
}

// Arrived writes an arrival point.
func (m *Manager) Arrived(e core.ArrivalEvent) {
	p := influxdb2.NewPoint("arrival",
		map[string]string{"vehicle": e.VehicleID, "body": e.Body},
		map[string]interface{}{
			"name":          e.VehicleName,
			"latitude":      e.Latitude,
			"longitude":     e.Longitude,
			"universalTime": e.UniversalTime,
		},
		eventTime(e.Time))
	if err := m.WritePoint(BucketJourneys, p); err != nil {
		m.Logger.Error().Err(err).Str("vehicle", e.VehicleID).Msg("Error writing arrival point")
	}
}

// Stopped writes a forced stop point.
func (m *Manager) Stopped(e core.StopEvent) {
	p := influxdb2.NewPoint("stop",
		map[string]string{"vehicle": e.VehicleID, "body": e.Body, "reason": string(e.Reason)},
		map[string]interface{}{
			"name":          e.VehicleName,
			"latitude":      e.Latitude,
			"longitude":     e.Longitude,
			"universalTime": e.UniversalTime,
		},
		eventTime(e.Time))
	if err := m.WritePoint(BucketJourneys, p); err != nil {
		m.Logger.Error().Err(err).Str("vehicle", e.VehicleID).Msg("Error writing stop point")
	}
}

// ProcessMetricData parses a metric pushed by the host and returns its bucket
// and point. The arguments are:
//
//	0 = bucket name
//	1 = measurement name
//	n with "tag::" prefix = tag::<name>::<value>
//	n with "field::" prefix = field::<string|int|float>::<name>::<value>
func ProcessMetricData(data []string) (bucket string, point *influxdb2_write.Point, err error) {
	if len(data) < 2 {
		return "", nil, fmt.Errorf("metric needs bucket and measurement, got %d args", len(data))
	}

	bucket = data[0]
	point = influxdb2_write.NewPointWithMeasurement(data[1])

	for _, arg := range data[2:] {
		parts := strings.Split(arg, "::")
		switch parts[0] {
		case "tag":
			if len(parts) >= 3 {
				point.AddTag(parts[1], parts[2])
			}
		case "field":
			if len(parts) < 4 {
				continue
			}
			fieldType, fieldName, fieldValue := parts[1], parts[2], parts[3]
			switch fieldType {
			case "string":
				point.AddField(fieldName, fieldValue)
			case "int":
				intVal, err := strconv.Atoi(fieldValue)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to int: %w", fieldValue, err)
				}
				point.AddField(fieldName, intVal)
			case "float":
				floatVal, err := strconv.ParseFloat(fieldValue, 64)
				if err != nil {
					return "", nil, fmt.Errorf("error converting field value '%s' to float: %w", fieldValue, err)
				}
				point.AddField(fieldName, floatVal)
			}
		}
	}
	point.SetTime(time.Now())

	return bucket, point, nil
}
