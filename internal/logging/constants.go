package logging

// Standardized field names for structured logging.
const (
	FieldFile      = "file"
	FieldSource    = "source"
	FieldCompany   = "company"
	FieldRunID     = "run_id"
	FieldCategory  = "category"
	FieldStrategy  = "strategy"
	FieldReason    = "reason"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldError     = "error"
	FieldDuration  = "duration_ms"
	FieldCount     = "count"
	FieldPath      = "path"
	FieldPolicy    = "collision_policy"
	FieldComponent = "component"
)
