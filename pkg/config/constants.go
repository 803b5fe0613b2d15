package config

const (
	EnvPrefix  = "PROCUREMENT"
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DefaultSQLiteDSN = "file:procurement.db?cache=shared"

	TargetRateKeyItemUnit = "item_unit"
	TargetRateKeyItem     = "item"
)

const (
	EnvAppEnv            = "PROCUREMENT_APP_ENV"
	EnvPort              = "PROCUREMENT_APP_PORT"
	EnvDBDSN             = "PROCUREMENT_DB_DSN"
	EnvDBHost            = "PROCUREMENT_DB_HOST"
	EnvDBUser            = "PROCUREMENT_DB_USER"
	EnvDBName            = "PROCUREMENT_DB_NAME"
	EnvRedisURL          = "PROCUREMENT_REDIS_URL"
	EnvFrappeBaseURL     = "PROCUREMENT_FRAPPE_BASE_URL"
	EnvFrappeAPIKey      = "PROCUREMENT_FRAPPE_API_KEY"
	EnvFrappeAPISecret   = "PROCUREMENT_FRAPPE_API_SECRET"
	EnvUseSQLite         = "PROCUREMENT_USE_SQLITE"
	EnvTargetRateKeyMode = "PROCUREMENT_TARGET_RATE_KEY_MODE"
	EnvDraftTTL          = "PROCUREMENT_DRAFT_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
