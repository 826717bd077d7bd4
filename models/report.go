package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Severity enum
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Rank orders severities for sorting: High > Medium > Low.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// ReportStatus enum
type ReportStatus string

const (
	StatusPending   ReportStatus = "Pending"
	StatusAssigned  ReportStatus = "Assigned"
	StatusCompleted ReportStatus = "Completed"
	StatusDeclined  ReportStatus = "Declined"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

// transitions lists every legal lifecycle edge. Anything not listed is rejected.
var transitions = map[ReportStatus][]ReportStatus{
	StatusPending:  {StatusAssigned},
	StatusAssigned: {StatusCompleted, StatusDeclined},
}

// CanTransition reports whether a report may move from one status to another.
func CanTransition(from, to ReportStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Location is the geotag attached to a report.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Report represents a citizen-submitted waste site
type Report struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Description    string              `bson:"description" json:"description"`
	City           string              `bson:"city" json:"city"`
	CityKey        string              `bson:"cityKey" json:"-"`
	Severity       Severity            `bson:"severity" json:"severity"`
	Location       Location            `bson:"location" json:"location"`
	Address        string              `bson:"address" json:"address"`
	Status         ReportStatus        `bson:"status" json:"status"`
	AssignedWorker *primitive.ObjectID `bson:"assignedWorker" json:"assignedWorker"`
	ImageURLBefore string              `bson:"imageUrl_before" json:"imageUrl_before"`
	ImageURLAfter  *string             `bson:"imageUrl_after" json:"imageUrl_after"`
	WorkerNotes    *string             `bson:"workerNotes" json:"workerNotes"`
	CreatedAt      time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsAssignedTo reports whether workerID is the report's assignee.
func (r Report) IsAssignedTo(workerID primitive.ObjectID) bool {
	return r.AssignedWorker != nil && *r.AssignedWorker == workerID
}

// ReportPatch carries the fields a status transition writes.
// Nil pointers leave the stored value untouched.
type ReportPatch struct {
	Status         ReportStatus
	AssignedWorker *primitive.ObjectID
	WorkerNotes    *string
	ImageURLAfter  *string
	UpdatedAt      time.Time
}

// Apply writes the patch onto r.
func (p ReportPatch) Apply(r *Report) {
	r.Status = p.Status
	if p.AssignedWorker != nil {
		id := *p.AssignedWorker
		r.AssignedWorker = &id
	}
	if p.WorkerNotes != nil {
		notes := *p.WorkerNotes
		r.WorkerNotes = &notes
	}
	if p.ImageURLAfter != nil {
		url := *p.ImageURLAfter
		r.ImageURLAfter = &url
	}
	r.UpdatedAt = p.UpdatedAt
}

// WorkerRef is the populated form of Report.AssignedWorker.
type WorkerRef struct {
	ID    primitive.ObjectID `json:"_id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	City  string             `json:"city"`
}

// ReportView is a report as served over HTTP, with the assignee populated.
type ReportView struct {
	Report
	AssignedWorker *WorkerRef `json:"assignedWorker"`
}

// WorkerStats summarises a worker's reports for the dashboard.
type WorkerStats struct {
	Total     int `json:"total"`
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
	Declined  int `json:"declined"`
}

// CityKey normalizes a city name into the key used for matching.
func CityKey(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
