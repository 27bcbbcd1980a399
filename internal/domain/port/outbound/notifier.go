package outbound

import "context"

type NotificationLevel string

const (
	NotificationInfo     NotificationLevel = "info"
	NotificationWarning  NotificationLevel = "warning"
	NotificationCritical NotificationLevel = "critical"
)

type FlaggedParameter struct {
	Name        string
	Value       string
	Unit        string
	NormalRange string
	Status      string
}

// ReportNotification summarizes a report that needs human attention.
type ReportNotification struct {
	SessionID   string
	ReportID    string
	AnalysisID  string
	Filename    string
	PatientName string
	HealthScore int
	OverallRisk string
	Summary     string
	Engine      string
	Level       NotificationLevel
	RedFlags    []FlaggedParameter
}

// Notifier sends notifications to users via messaging platforms.
type Notifier interface {
	NotifyReport(ctx context.Context, notification ReportNotification) error
	SendMessage(ctx context.Context, message string, level NotificationLevel) error
}
