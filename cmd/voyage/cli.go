package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/bonvoyage/voyage/internal/api"
	"github.com/bonvoyage/voyage/internal/config"
	"github.com/bonvoyage/voyage/internal/database"
	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/logging"
	"github.com/bonvoyage/voyage/internal/route"
	"github.com/bonvoyage/voyage/internal/storage"
	"github.com/bonvoyage/voyage/internal/storage/memory"
	"github.com/bonvoyage/voyage/internal/util"
	"github.com/bonvoyage/voyage/pkg/core"
)

const planTimeout = 30 * time.Second

// quietLogManager logs errors only, to stdout, for one-shot commands.
func quietLogManager() *logging.SlogManager {
	lm := logging.NewSlogManager()
	lm.Setup(nil, "error", nil)
	return lm
}

func planCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.SetOutput(out)
	from := fs.String("from", "", `origin as "lon,lat"`)
	to := fs.String("to", "", `target as "lon,lat"`)
	radius := fs.Float64("radius", 600000, "body radius in metres")
	step := fs.Float64("step", 1000, "step distance in metres")
	regions := fs.String("regions", "", "region map file")
	body := fs.String("body", "Kerbin", "body to look up in the region map")
	vesselType := fs.String("type", "rover", "rover or ship")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *to == "" {
		return errors.New("plan needs -from and -to")
	}

	origin, err := geo.WaypointFromString(*from)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", *from, err)
	}
	target, err := geo.WaypointFromString(*to)
	if err != nil {
		return fmt.Errorf("invalid target %q: %w", *to, err)
	}

	var terrain route.TerrainFilter
	if *regions != "" {
		maps, err := route.LoadRegionMaps(*regions)
		if err != nil {
			return err
		}
		if m, ok := maps[*body]; ok {
			terrain = route.ForVehicle(core.ParseVehicleType(*vesselType), m.Classify)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
	defer cancel()
	path, err := route.NewPlanner(route.DefaultConfig()).Plan(ctx, route.Request{
		Origin:       origin,
		Target:       target,
		Radius:       *radius,
		StepDistance: *step,
		Terrain:      terrain,
	})
	if err != nil {
		return err
	}

	data, err := geo.PathToLineString(path, &target).MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode route: %w", err)
	}
	distance := route.DistanceToTarget(path, target, *step, *radius)
	fmt.Fprintf(out, "%d waypoints, %s\n%s\n", len(path), util.FormatDistance(distance), data)
	return nil
}

// openConfiguredStorage loads the config and opens its backend for a one-shot command.
func openConfiguredStorage(configDir string) (storage.Backend, error) {
	if err := loadConfig(configDir); err != nil {
		return nil, err
	}
	storageCfg := config.GetStorageConfig()
	// a memory backend would write an empty export on Close
	storageCfg.Memory.OutputDir = ""
	return openStorage(storageCfg, quietLogManager())
}

func statusCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(out)
	configDir := fs.String("config", ".", "directory containing "+config.ConfigName)
	asJSON := fs.Bool("json", false, "print records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := openConfiguredStorage(*configDir)
	if err != nil {
		return err
	}
	defer backend.Close()

	records, err := backend.ListVehicles()
	if err != nil {
		return err
	}
	return printStatus(out, records, *asJSON)
}

func printStatus(out io.Writer, records []core.VehicleRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tBODY\tTYPE\tSTATE\tPOSITION\tREMAINING")
	for _, rec := range records {
		st := rec.State
		remaining := "-"
		if st.Active {
			remaining = util.FormatDistance(st.DistanceToTarget - st.DistanceTravelled)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.4f,%.4f\t%s\n",
			rec.ID, rec.Name, rec.Body, st.Type, recordState(st), st.Latitude, st.Longitude, remaining)
	}
	return tw.Flush()
}

func recordState(st core.VehicleState) string {
	switch {
	case st.Shutdown:
		return "shutdown"
	case st.Active:
		return "active"
	case st.Arrived:
		return "arrived"
	default:
		return "idle"
	}
}

func exportCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(out)
	configDir := fs.String("config", ".", "directory containing "+config.ConfigName)
	path := fs.String("out", "voyage_export.json.gz", "output file, gzipped when it ends in .gz")
	upload := fs.Bool("upload", false, "upload the export to api.serverUrl")
	tag := fs.String("tag", "", "tag sent with the upload")
	if err := fs.Parse(args); err != nil {
		return err
	}

	backend, err := openConfiguredStorage(*configDir)
	if err != nil {
		return err
	}
	defer backend.Close()

	n, err := exportBackend(backend, *path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d vehicles to %s\n", n, *path)

	if !*upload {
		return nil
	}
	apiCfg := config.GetAPIConfig()
	client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
	if err := client.Upload(*path, api.UploadMetadata{Vehicles: n, ExportedAt: time.Now(), Tag: *tag}); err != nil {
		return err
	}
	fmt.Fprintf(out, "Uploaded %s to %s\n", *path, apiCfg.ServerURL)
	return nil
}

// exportBackend writes the stored fleet to path. Backends without their own
// export are copied through a memory backend, which keeps vehicles only.
func exportBackend(backend storage.Backend, path string) (int, error) {
	records, err := backend.ListVehicles()
	if err != nil {
		return 0, err
	}
	if exporter, ok := backend.(storage.Exporter); ok {
		return len(records), exporter.Export(path)
	}

	mem := memory.New(config.MemoryConfig{})
	for _, rec := range records {
		if err := mem.SaveVehicle(rec); err != nil {
			return 0, err
		}
	}
	return len(records), mem.Export(path)
}

func migrateCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migratebackups", flag.ContinueOnError)
	fs.SetOutput(out)
	configDir := fs.String("config", ".", "directory containing "+config.ConfigName)
	dir := fs.String("dir", ".", "directory holding SQLite dumps")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := loadConfig(*configDir); err != nil {
		return err
	}

	lm := quietLogManager()
	db, err := database.GetPostgresDBStandalone()
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := database.Setup(db, lm.WriteLog); err != nil {
		return err
	}

	migrated, err := database.MigrateBackups(*dir, db, lm.WriteLog)
	for _, path := range migrated {
		fmt.Fprintln(out, "migrated", path)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d backups, delete them to avoid duplicate data\n", len(migrated))
	return nil
}
