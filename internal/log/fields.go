package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldYear          = "year"
	FieldMonth         = "month"
	FieldTransactionID = "transaction_id"
	FieldAmountCents   = "amount_cents"
	FieldCategoryID    = "category_id"
	FieldPersonID      = "person_id"
	FieldDimension     = "dimension"
	FieldUnresolved    = "unresolved_refs"
	FieldBackend       = "backend"
	FieldQueue         = "queue"
	FieldExchange      = "exchange"
	FieldSheetsRange   = "sheets_range"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentTransaction = "transaction"
	ComponentSummary     = "summary"
	ComponentStorage     = "storage"
	ComponentPostgres    = "postgres"
	ComponentMemory      = "memory"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentExport      = "export"
	ComponentCache       = "cache"
	ComponentBackend     = "backend"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpDelete    = "delete"
	OpList      = "list"
	OpLookups   = "lookups"
	OpQuery     = "query"
	OpAggregate = "aggregate"
	OpExport    = "export"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
