package models

// File extensions the classifier and organizer treat specially.
const (
	ExtXML  = ".xml"
	ExtTXT  = ".txt"
	ExtZIP  = ".zip"
	ExtXLS  = ".xls"
	ExtXLSX = ".xlsx"
)

// Run statuses recorded in the history store.
const (
	StatusCompleted = "COMPLETED"
	StatusPartial   = "PARTIAL"
	StatusFailed    = "FAILED"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
