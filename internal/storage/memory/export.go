package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// FleetExport is the root JSON structure
type FleetExport struct {
	ExportedAt time.Time     `json:"exportedAt"`
	Vehicles   []VehicleJSON `json:"vehicles"`
	Events     []EventJSON   `json:"events"`
}

// VehicleJSON is one vehicle with its remaining route and travelled track as
// GeoJSON geometries in lon/lat.
type VehicleJSON struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Body   string            `json:"body"`
	Type   string            `json:"vesselType"`
	State  core.VehicleState `json:"state"`
	Route  *geom.LineString  `json:"route,omitempty"`
	Track  *geom.LineString  `json:"track,omitempty"`
	Points int               `json:"trackPoints"`
}

// EventJSON is an arrival or stop.
type EventJSON struct {
	Kind          string  `json:"kind"`
	VehicleID     string  `json:"vehicleId"`
	VehicleName   string  `json:"vehicleName"`
	Body          string  `json:"body"`
	Reason        string  `json:"reason,omitempty"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	UniversalTime float64 `json:"universalTime"`
}

// Export writes the backend contents to path, gzipped when path ends in .gz.
func (b *Backend) Export(path string) error {
	b.mu.RLock()
	export := b.buildExport()
	b.mu.RUnlock()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if strings.HasSuffix(path, ".gz") {
		return writeGzipJSON(path, export)
	}
	return writeJSON(path, export)
}

// exportJSON writes a timestamped export into the configured output directory.
// Caller holds b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := export.ExportedAt.Format("20060102_150405")
	filename := fmt.Sprintf("voyage_%s.json", timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() FleetExport {
	export := FleetExport{
		ExportedAt: time.Now().UTC(),
		Vehicles:   make([]VehicleJSON, 0, len(b.vehicles)),
		Events:     make([]EventJSON, 0, len(b.arrivals)+len(b.stops)),
	}

	for _, rec := range b.vehicles {
		v := VehicleJSON{
			ID:    rec.ID,
			Name:  rec.Name,
			Body:  rec.Body,
			Type:  rec.State.Type.String(),
			State: rec.State,
		}

		if len(rec.State.Path) > 0 {
			target := rec.State.Target()
			ls := geo.PathToLineString(rec.State.Path, &target)
			v.Route = &ls
		}

		points := b.progress[rec.ID]
		v.Points = len(points)
		if len(points) > 0 {
			track := make(core.Path, len(points))
			for i, p := range points {
				track[i] = core.Waypoint{Latitude: p.Latitude, Longitude: p.Longitude}
			}
			if ls := geo.PathToLineString(track, nil); !ls.IsEmpty() {
				v.Track = &ls
			}
		}

		export.Vehicles = append(export.Vehicles, v)
	}
	sort.Slice(export.Vehicles, func(i, j int) bool { return export.Vehicles[i].ID < export.Vehicles[j].ID })

	for _, e := range b.arrivals {
		export.Events = append(export.Events, EventJSON{
			Kind:          "arrival",
			VehicleID:     e.VehicleID,
			VehicleName:   e.VehicleName,
			Body:          e.Body,
			Latitude:      e.Latitude,
			Longitude:     e.Longitude,
			UniversalTime: e.UniversalTime,
		})
	}
	for _, e := range b.stops {
		export.Events = append(export.Events, EventJSON{
			Kind:          "stop",
			VehicleID:     e.VehicleID,
			VehicleName:   e.VehicleName,
			Body:          e.Body,
			Reason:        string(e.Reason),
			Latitude:      e.Latitude,
			Longitude:     e.Longitude,
			UniversalTime: e.UniversalTime,
		})
	}
	sort.SliceStable(export.Events, func(i, j int) bool {
		return export.Events[i].UniversalTime < export.Events[j].UniversalTime
	})

	return export
}

func writeJSON(path string, data FleetExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data FleetExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
