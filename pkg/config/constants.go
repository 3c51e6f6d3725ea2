package config

// EnvPrefix is applied by envconfig to every variable lookup.
const EnvPrefix = "tianguis"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv      = "TIANGUIS_APP_ENV"
	EnvPort        = "TIANGUIS_APP_PORT"
	EnvDBDSN       = "TIANGUIS_DB_DSN"
	EnvDBHost      = "TIANGUIS_DB_HOST"
	EnvDBUser      = "TIANGUIS_DB_USER"
	EnvDBName      = "TIANGUIS_DB_NAME"
	EnvRedisURL    = "TIANGUIS_REDIS_URL"
	EnvJWTSecret   = "TIANGUIS_JWT_SECRET"
	EnvJWTIssuer   = "TIANGUIS_JWT_ISSUER"
	EnvJWTExpMins  = "TIANGUIS_JWT_EXPIRATION_MINUTES"
	EnvSquareToken = "TIANGUIS_SQUARE_ACCESS_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
