package logging

// Field names shared by all components so log output stays filterable.
const (
	FieldFile          = "file_path"
	FieldUser          = "user_id"
	FieldCard          = "credit_card_id"
	FieldMapping       = "mapping"
	FieldMappingSource = "mapping_source"
	FieldInstitution   = "institution"
	FieldLine          = "line"
	FieldTransactionID = "transaction_id"
	FieldCategory      = "category"
	FieldConfidence    = "confidence"
	FieldTier          = "tier"
	FieldStrategy      = "strategy"
	FieldReason        = "reason"
	FieldOperation     = "operation"
	FieldStatus        = "status"
	FieldDuration      = "duration_ms"
	FieldCount         = "count"
	FieldDelimiter     = "delimiter"
	FieldWorkers       = "workers"
	FieldOutputFile    = "output_file"
)
