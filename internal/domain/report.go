package domain

import "time"

type ReportType string

const (
	ReportTypePickup ReportType = "PICKUP"
	ReportTypeReturn ReportType = "RETURN"
)

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusConfirmed ReportStatus = "CONFIRMED"
	ReportStatusDisputed  ReportStatus = "DISPUTED"
	ReportStatusResolved  ReportStatus = "RESOLVED"
	ReportStatusCancelled ReportStatus = "CANCELLED"
)

// Settled reports whether the report counts as agreed-upon for booking
// completion purposes.
func (s ReportStatus) Settled() bool {
	return s == ReportStatusConfirmed || s == ReportStatusResolved
}

// Immutable reports whether the report fields may no longer be changed.
func (s ReportStatus) Immutable() bool {
	return s == ReportStatusConfirmed || s == ReportStatusResolved
}

type ConditionGrade string

const (
	ConditionExcellent  ConditionGrade = "EXCELLENT"
	ConditionGood       ConditionGrade = "GOOD"
	ConditionAcceptable ConditionGrade = "ACCEPTABLE"
	ConditionDamaged    ConditionGrade = "DAMAGED"
)

// ReportFields is the inspection payload recorded by the reporter. Images are
// opaque storage references; the core never validates image bytes.
type ReportFields struct {
	FuelLevel         int32          `json:"fuel_level"` // percent, 0-100
	Mileage           int32          `json:"mileage"`
	ExteriorCondition ConditionGrade `json:"exterior_condition"`
	InteriorCondition ConditionGrade `json:"interior_condition"`
	EngineCondition   ConditionGrade `json:"engine_condition"`
	TireCondition     ConditionGrade `json:"tire_condition"`
	DamageNotes       string         `json:"damage_notes,omitempty"`
	Images            []string       `json:"images,omitempty"`
}

type ConditionReport struct {
	ID            string       `json:"id"`
	BookingID     string       `json:"booking_id"`
	ReporterID    string       `json:"reporter_id"`
	Type          ReportType   `json:"type"`
	Status        ReportStatus `json:"status"`
	Fields        ReportFields `json:"fields"`
	DisputeReason string       `json:"dispute_reason,omitempty"`
	Resolution    string       `json:"resolution,omitempty"`
	ConfirmedBy   *string      `json:"confirmed_by,omitempty"`
	ConfirmedAt   *time.Time   `json:"confirmed_at,omitempty"`
	DisputedBy    *string      `json:"disputed_by,omitempty"`
	DisputedAt    *time.Time   `json:"disputed_at,omitempty"`
	ResolvedBy    *string      `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time   `json:"resolved_at,omitempty"`
	CreatedOn     time.Time    `json:"created_on"`
	UpdatedOn     time.Time    `json:"updated_on"`
}
