// Package env holds the environment variable names shared by the
// premiums subcommands
package env

const (
	// Prefix is the env var prefix for all premiums configuration
	Prefix = "PREMIUMS"

	// DBURLSuffix is the Postgres connection string variable suffix
	DBURLSuffix = "_DB_URL"

	// XEAccountIDSuffix is the XE API account ID variable suffix
	XEAccountIDSuffix = "_XE_ACCOUNT_ID"

	// XEAPIKeySuffix is the XE API key variable suffix
	XEAPIKeySuffix = "_XE_API_KEY"

	// CoinAPIKeySuffix is the CoinAPI key variable suffix
	CoinAPIKeySuffix = "_COINAPI_KEY"

	// EldoradoURLSuffix is the Eldorado pricing endpoint variable suffix
	EldoradoURLSuffix = "_ELDORADO_API_BASE_URL"
)
