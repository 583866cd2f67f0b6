// Package streaming defines the JSON envelope published for journey
// notifications. Consumers switch on Type and decode Payload accordingly.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/bonvoyage/voyage/pkg/core"
)

// Message type constants.
const (
	TypeArrival  = "arrival"
	TypeStop     = "stop"
	TypeProgress = "progress"
	TypeStatus   = "status"
)

// Envelope wraps every published message.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StatusPayload summarizes one vehicle for fleet status messages.
type StatusPayload struct {
	VehicleID         string   `json:"vehicleId"`
	VehicleName       string   `json:"vehicleName"`
	Body              string   `json:"body"`
	State             string   `json:"state"`
	Active            bool     `json:"active"`
	Latitude          float64  `json:"latitude"`
	Longitude         float64  `json:"longitude"`
	DistanceTravelled float64  `json:"distanceTravelled"`
	DistanceToTarget  float64  `json:"distanceToTarget"`
	Report            []string `json:"report,omitempty"`
}

// Encode marshals payload into an envelope of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s payload: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// Decode unmarshals an envelope and its payload. The payload type is chosen
// from the envelope type.
func Decode(data []byte) (string, any, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshalling envelope: %w", err)
	}

	var payload any
	switch env.Type {
	case TypeArrival:
		payload = &core.ArrivalEvent{}
	case TypeStop:
		payload = &core.StopEvent{}
	case TypeProgress:
		payload = &core.ProgressEvent{}
	case TypeStatus:
		payload = &StatusPayload{}
	default:
		return env.Type, nil, fmt.Errorf("unknown message type %q", env.Type)
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return env.Type, nil, fmt.Errorf("unmarshalling %s payload: %w", env.Type, err)
	}
	return env.Type, payload, nil
}
