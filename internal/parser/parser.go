package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/bonvoyage/voyage/internal/geo"
	"github.com/bonvoyage/voyage/internal/persist"
	"github.com/bonvoyage/voyage/internal/util"
	"github.com/bonvoyage/voyage/internal/world"
	"github.com/bonvoyage/voyage/pkg/core"
)

// ErrMissingArgs is returned when a command carries fewer arguments than required.
var ErrMissingArgs = errors.New("missing arguments")

// parseIntFromFloat parses a string that may be an integer or float into int64.
// Hosts without an integer type may serialize numbers as floats ("1.00").
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("error converting %s to float: %w", name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s is not finite: %q", name, s)
	}
	return f, nil
}

// parseBool accepts true/false in any case and 1/0.
func parseBool(name, s string) (bool, error) {
	b, err := strconv.ParseBool(strings.ToLower(s))
	if err != nil {
		return false, fmt.Errorf("error converting %s to bool: %w", name, err)
	}
	return b, nil
}

func parseVehicleType(s string) core.VehicleType {
	if n, err := parseIntFromFloat(s); err == nil {
		if n == int64(core.VehicleShip) {
			return core.VehicleShip
		}
		return core.VehicleRover
	}
	return core.ParseVehicleType(strings.ToLower(s))
}

func needArgs(data []string, n int) error {
	if len(data) < n {
		return fmt.Errorf("%w: expected at least %d, got %d", ErrMissingArgs, n, len(data))
	}
	return nil
}

// Parser provides pure []string -> command argument conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseVehicleID reads the vehicle ID in data[0].
func (p *Parser) ParseVehicleID(data []string) (string, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 1); err != nil {
		return "", err
	}
	if data[0] == "" {
		return "", errors.New("empty vehicle id")
	}
	return data[0], nil
}

// ParseBody parses [name, radius, rotationPeriod].
func (p *Parser) ParseBody(data []string) (core.Body, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 3); err != nil {
		return core.Body{}, err
	}

	radius, err := parseFloat("radius", data[1])
	if err != nil {
		return core.Body{}, err
	}
	if radius <= 0 {
		return core.Body{}, fmt.Errorf("radius must be positive, got %v", radius)
	}
	period, err := parseFloat("rotation period", data[2])
	if err != nil {
		return core.Body{}, err
	}

	return core.Body{Name: data[0], Radius: radius, RotationPeriod: period}, nil
}

// ParseActiveVessel parses [id, body, lat, lon, altitude]. No arguments or an
// empty id clear the active vessel and return nil.
func (p *Parser) ParseActiveVessel(data []string) (*world.ActiveVessel, error) {
	util.CleanArgs(data)
	if len(data) == 0 || data[0] == "" {
		return nil, nil
	}
	if err := needArgs(data, 5); err != nil {
		return nil, err
	}

	v := &world.ActiveVessel{ID: data[0], Body: data[1]}
	var err error
	if v.Latitude, err = parseFloat("latitude", data[2]); err != nil {
		return nil, err
	}
	if v.Longitude, err = parseFloat("longitude", data[3]); err != nil {
		return nil, err
	}
	if v.Altitude, err = parseFloat("altitude", data[4]); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseFlag parses a single boolean in data[0].
func (p *Parser) ParseFlag(data []string) (bool, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 1); err != nil {
		return false, err
	}
	return parseBool("flag", data[0])
}

// ParseToggle parses [id, bool].
func (p *Parser) ParseToggle(data []string) (Toggle, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 2); err != nil {
		return Toggle{}, err
	}
	v, err := parseBool("value", data[1])
	if err != nil {
		return Toggle{}, err
	}
	return Toggle{ID: data[0], Value: v}, nil
}

// ParseRegister parses [id, name, body, lat, lon, height?, vesselType?, capabilitiesJSON?].
func (p *Parser) ParseRegister(data []string) (Registration, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 5); err != nil {
		return Registration{}, err
	}
	if data[0] == "" {
		return Registration{}, errors.New("empty vehicle id")
	}

	r := Registration{ID: data[0], Name: data[1], Body: data[2]}
	var err error
	if r.Position.Latitude, err = parseFloat("latitude", data[3]); err != nil {
		return r, err
	}
	if r.Position.Longitude, err = parseFloat("longitude", data[4]); err != nil {
		return r, err
	}
	if r.Position.Latitude < -90 || r.Position.Latitude > 90 {
		return r, geo.ErrInvalidCoordinates
	}
	r.Position.Longitude = geo.NormalizeLongitude(r.Position.Longitude)

	if len(data) > 5 && data[5] != "" {
		if r.HeightFromTerrain, err = parseFloat("height from terrain", data[5]); err != nil {
			return r, err
		}
	}
	if len(data) > 6 && data[6] != "" {
		r.Type = parseVehicleType(data[6])
	}
	if len(data) > 7 && data[7] != "" {
		var caps core.Capabilities
		if err := json.Unmarshal([]byte(data[7]), &caps); err != nil {
			return r, fmt.Errorf("error unmarshalling capabilities: %w", err)
		}
		r.Capabilities = &caps
	}

	p.logger.Debug("parsed registration", "vehicle", r.ID, "body", r.Body, "type", r.Type.String())
	return r, nil
}

// ParseCapabilities parses [id, capabilitiesJSON].
func (p *Parser) ParseCapabilities(data []string) (string, core.Capabilities, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 2); err != nil {
		return "", core.Capabilities{}, err
	}
	var caps core.Capabilities
	if err := json.Unmarshal([]byte(data[1]), &caps); err != nil {
		return "", core.Capabilities{}, fmt.Errorf("error unmarshalling capabilities: %w", err)
	}
	return data[0], caps, nil
}

// ParseStateRecord parses [id, recordJSON], where the record is the flat
// key/value form the host keeps on the vessel.
func (p *Parser) ParseStateRecord(data []string) (string, persist.Record, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 2); err != nil {
		return "", nil, err
	}
	var rec persist.Record
	if err := json.Unmarshal([]byte(data[1]), &rec); err != nil {
		return "", nil, fmt.Errorf("error unmarshalling state record: %w", err)
	}
	return data[0], rec, nil
}

// ParseActivate parses [id, "lon,lat"] or [id, lat, lon].
func (p *Parser) ParseActivate(data []string) (ActivateArgs, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 2); err != nil {
		return ActivateArgs{}, err
	}

	a := ActivateArgs{ID: data[0]}
	if len(data) == 2 {
		target, err := geo.WaypointFromString(data[1])
		if err != nil {
			return a, fmt.Errorf("error parsing target %q: %w", data[1], err)
		}
		a.Target = target
		return a, nil
	}

	lat, err := parseFloat("target latitude", data[1])
	if err != nil {
		return a, err
	}
	lon, err := parseFloat("target longitude", data[2])
	if err != nil {
		return a, err
	}
	if lat < -90 || lat > 90 {
		return a, geo.ErrInvalidCoordinates
	}
	a.Target = core.Waypoint{Latitude: lat, Longitude: geo.NormalizeLongitude(lon)}
	return a, nil
}

// ParseTick parses [id, universalTime, loaded?].
func (p *Parser) ParseTick(data []string) (TickArgs, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 2); err != nil {
		return TickArgs{}, err
	}

	t := TickArgs{ID: data[0]}
	var err error
	if t.UniversalTime, err = parseFloat("universal time", data[1]); err != nil {
		return t, err
	}
	if len(data) > 2 && data[2] != "" {
		if t.Loaded, err = parseBool("loaded", data[2]); err != nil {
			return t, err
		}
	}
	return t, nil
}

// ParseUniversalTime parses [universalTime].
func (p *Parser) ParseUniversalTime(data []string) (float64, error) {
	util.CleanArgs(data)
	if err := needArgs(data, 1); err != nil {
		return 0, err
	}
	return parseFloat("universal time", data[0])
}
