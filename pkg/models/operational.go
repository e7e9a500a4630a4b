package models

import "time"

// EDI message status values
const (
	EDIStatusReceived  = "RECEIVED"
	EDIStatusProcessed = "PROCESSED"
	EDIStatusError     = "ERROR"
	EDIStatusStuck     = "STUCK"
)

// EDIFACT message types handled by the terminal
const (
	EDITypeCOARRI = "COARRI"
	EDITypeCODECO = "CODECO"
	EDITypeCOPRAR = "COPRAR"
	EDITypeBAPLIE = "BAPLIE"
	EDITypeAPERAK = "APERAK"
)

// Vessel is the operational registry row for a ship.
type Vessel struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	SystemName string    `json:"system_name"` // Canonical name used by advisory records
	IMONumber  string    `json:"imo_number"`
	Flag       string    `json:"flag,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Container is one versioned container record. Multiple rows with the same
// ContainerNumber are expected - the correlator decides whether they are an
// anomaly.
type Container struct {
	ID              int64     `json:"id"`
	ContainerNumber string    `json:"container_number"`
	Status          string    `json:"status"`
	VesselName      string    `json:"vessel_name"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	CreatedAt       time.Time `json:"created_at"`
}

// EDIMessage is one inbound or outbound EDIFACT message.
type EDIMessage struct {
	ID              int64     `json:"id"`
	MessageType     string    `json:"message_type"`
	MessageRef      string    `json:"message_ref"`
	Status          string    `json:"status"`
	ErrorText       string    `json:"error_text,omitempty"`
	ContainerNumber string    `json:"container_number,omitempty"`
	Partner         string    `json:"partner,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// APIEvent is one recorded call against the terminal's API gateway.
type APIEvent struct {
	ID            int64     `json:"id"`
	CorrelationID string    `json:"correlation_id"`
	Endpoint      string    `json:"endpoint"`
	HTTPStatus    int       `json:"http_status"`
	ErrorText     string    `json:"error_text,omitempty"`
	EventTS       time.Time `json:"event_ts"`
}

// VesselAdvice is an arrival advisory. An advice is active while
// EffectiveEnd is nil; business rules allow at most one active advice per
// vessel system name.
type VesselAdvice struct {
	ID             int64      `json:"id"`
	VesselName     string     `json:"vessel_name"`
	AdviceNumber   string     `json:"advice_number"`
	EffectiveStart time.Time  `json:"effective_start_datetime"`
	EffectiveEnd   *time.Time `json:"effective_end_datetime,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// IsActive reports whether the advice is currently in effect.
func (a *VesselAdvice) IsActive() bool {
	return a.EffectiveEnd == nil
}

// BerthApplication is a berth booking request tied to a vessel advice.
type BerthApplication struct {
	ID           int64     `json:"id"`
	VesselName   string    `json:"vessel_name"`
	AdviceNumber string    `json:"advice_number"`
	BerthNumber  string    `json:"berth_number"`
	Status       string    `json:"status"`
	AppliedAt    time.Time `json:"applied_at"`
}
