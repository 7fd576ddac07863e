package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Activity status derived from equity, used by the map renderer for marker color.
const (
	StatusHot  = "hot"
	StatusWarm = "warm"
	StatusCold = "cold"
)

// Owner classification.
const (
	ClassAbsentee      = "absentee"
	ClassOwnerOccupied = "owner_occupied"
)

// Derived opportunity tags, listed in the order they are applied.
const (
	TagHighEquity     = "high-equity"
	TagModerateEquity = "moderate-equity"
	TagAbsentee       = "absentee"
	TagLongTermOwner  = "long-term-owner"
	TagRecentPurchase = "recent-purchase"
	TagPrimeTarget    = "prime-target"
	TagReadyToSell    = "ready-to-sell"
)

// UnknownOwner is used when no owner name column could be detected.
const UnknownOwner = "Unknown Owner"

// Address is the composed site address of a property.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
	Full   string `json:"full"`
}

// Coordinates are nil until taken from the source file or filled in by geocoding.
type Coordinates struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// Valid reports whether both coordinates are set.
func (c Coordinates) Valid() bool {
	return c.Lat != nil && c.Lng != nil
}

// Owner holds ownership and occupancy information.
type Owner struct {
	FullName       string `json:"full_name"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	OccupiedFlag   string `json:"occupied_flag,omitempty"`
	MailingAddress string `json:"mailing_address,omitempty"`
	IsAbsentee     bool   `json:"is_absentee"`
	Classification string `json:"classification"`
}

// PropertyDetails describes the physical property.
type PropertyDetails struct {
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	SquareFeet int     `json:"square_feet"`
	LotSize    float64 `json:"lot_size"`
	YearBuilt  int     `json:"year_built"`
	Type       string  `json:"type,omitempty"`
}

// Financial holds purchase data and the values derived from it.
type Financial struct {
	PurchasePrice  float64    `json:"purchase_price"`
	PurchaseDate   *time.Time `json:"purchase_date"`
	YearsOwned     int        `json:"years_owned"`
	AssessedValue  float64    `json:"assessed_value"`
	EstimatedValue float64    `json:"estimated_value"`
	EquityPercent  int        `json:"equity_percent"`
	EquityDollars  float64    `json:"equity_dollars"`
}

// Activity is the outreach state of a property. Only status and tags are
// derived on import; notes may come from the file, last contact never does.
type Activity struct {
	Status      string     `json:"status"`
	Tags        []string   `json:"tags"`
	Notes       string     `json:"notes,omitempty"`
	LastContact *time.Time `json:"last_contact"`
}

// CanonicalProperty is one normalized, map-ready property record.
type CanonicalProperty struct {
	ID          string          `json:"id"`
	Address     Address         `json:"address"`
	Coordinates Coordinates     `json:"coordinates"`
	Owner       Owner           `json:"owner"`
	Property    PropertyDetails `json:"property"`
	Financial   Financial       `json:"financial"`
	Activity    Activity        `json:"activity"`
	Tenant      string          `json:"tenant,omitempty"`
	SourceFile  string          `json:"source_file"`
	RowIndex    int             `json:"row_index"`

	// CoordinatesAdjusted is set when the spiral offset moved this record
	// away from a coordinate already taken in the same batch.
	CoordinatesAdjusted bool `json:"coordinates_adjusted,omitempty"`

	// MissingFields lists roles whose column was absent or whose value
	// failed to parse. The matching field holds its zero default.
	MissingFields []string `json:"missing_fields,omitempty"`
}

// ImportStats aggregates one parsed batch.
type ImportStats struct {
	TotalRows          int     `json:"total"`
	Parsed             int     `json:"parsed"`
	Rejected           int     `json:"rejected"`
	CollisionsResolved int     `json:"collisions_resolved"`
	WithCoordinates    int     `json:"with_coordinates"`
	AbsenteeCount      int     `json:"absentee_count"`
	OwnerOccupiedCount int     `json:"owner_occupied_count"`
	AbsenteePercent    float64 `json:"absentee_percent"`
	HighEquityCount    int     `json:"high_equity_count"`
	HotCount           int     `json:"hot_count"`
	WarmCount          int     `json:"warm_count"`
	ColdCount          int     `json:"cold_count"`
	AverageEquity      float64 `json:"average_equity"`
	AverageYearsOwned  float64 `json:"average_years_owned"`
	TotalEquityDollars float64 `json:"total_equity_dollars"`
}

// ChangeSummary compares a batch with the records already stored for its
// tenant. A title transfer is a changed owner name; a value change is an
// assessed value that moved by more than ValueChangeThreshold.
type ChangeSummary struct {
	New            int `json:"new"`
	TitleTransfers int `json:"title_transfers"`
	ValueChanges   int `json:"value_changes"`
	Unchanged      int `json:"unchanged"`
}

// Add accumulates o into s.
func (s *ChangeSummary) Add(o ChangeSummary) {
	s.New += o.New
	s.TitleTransfers += o.TitleTransfers
	s.ValueChanges += o.ValueChanges
	s.Unchanged += o.Unchanged
}

// ValueChangeThreshold is the assessed-value difference, in dollars, that
// counts as a value change.
const ValueChangeThreshold = 1000

// ImportBatch tracks one uploaded file through the import pipeline.
// DB columns: id, tenant_id, source_file, file_size, status, row_limit, row_offset,
//
//	progress_current, progress_total, progress_percent, total_in_batch, next_offset,
//	has_coordinates, stats, changes, warnings, attempt, last_error, idempotency_key,
//	content_hash, duration_ms, started_at, completed_at, created_at, updated_at
type ImportBatch struct {
	ID              uuid.UUID       `json:"batch_id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	SourceFile      string          `json:"source_file"`
	FileSize        int64           `json:"file_size"`
	Status          string          `json:"status"`
	RowLimit        int             `json:"row_limit"`
	RowOffset       int             `json:"row_offset"`
	ProgressCurrent int             `json:"progress_current"`
	ProgressTotal   int             `json:"progress_total"`
	ProgressPercent int             `json:"progress_percent"`
	TotalInBatch    int             `json:"total_in_batch"`
	NextOffset      int             `json:"next_offset"`
	HasCoordinates  bool            `json:"has_coordinates"`
	Stats           json.RawMessage `json:"stats"`
	Changes         json.RawMessage `json:"changes"`
	Warnings        json.RawMessage `json:"warnings"`
	Attempt         int             `json:"attempt"`
	LastError       *string         `json:"last_error,omitempty"`
	IdempotencyKey  *string         `json:"idempotency_key,omitempty"`
	ContentHash     *string         `json:"content_hash,omitempty"`
	DurationMs      *int            `json:"duration_ms,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Batch status values.
const (
	BatchPending   = "pending"
	BatchRunning   = "running"
	BatchSucceeded = "succeeded"
	BatchFailed    = "failed"
)

// PropertyRecord is a canonical property as stored for one tenant.
// DB columns: id, batch_id, tenant_id, property_id, address, city, state, zip,
//
//	latitude, longitude, owner_name, is_absentee, equity_percent, status,
//	tags, data, created_at, updated_at
type PropertyRecord struct {
	ID        uuid.UUID         `json:"id"`
	BatchID   uuid.UUID         `json:"batch_id"`
	TenantID  uuid.UUID         `json:"tenant_id"`
	Property  CanonicalProperty `json:"property"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// RoleConfig holds a column-role pattern configuration (global or tenant-specific).
// DB columns: id, tenant_id, version, config, description, is_active, created_at, updated_at
type RoleConfig struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    *uuid.UUID      `json:"tenant_id,omitempty"`
	Version     string          `json:"version"`
	Config      json.RawMessage `json:"config"`
	Description string          `json:"description"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Pagination holds pagination metadata.
type Pagination struct {
	Page         int `json:"page"`
	PageSize     int `json:"page_size"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
}
