package config

import (
	"strings"

	"github.com/dmitrijs2005/buildbio/internal/flagx"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads, e.g.
// BUILDBIO_DATABASE_DSN or BUILDBIO_RATE_LIMITS_AUTH_IP_MAX_REQUESTS.
const EnvPrefix = "BUILDBIO"

// newViper returns a viper instance bound to every Config key so that
// environment variables are visible even when no config file mentions them.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys() {
		_ = v.BindEnv(key)
	}
	return v
}

// parseFile overlays values from the config file named by -c/-config (if
// any) and from the environment. Keys that are absent keep their current
// values. An unreadable or malformed file panics.
func parseFile(config *Config, args []string) {
	v := newViper()

	if path := flagx.ConfigFileFlag(args); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			panic(err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		panic(err)
	}
}

func configKeys() []string {
	keys := []string{
		"env", "log_level", "http_addr", "internal_grpc_addr", "database_dsn",
		"secret_key", "identifier_hash_key", "internal_token",
		"access_token_validity_duration", "refresh_token_validity_duration",
		"s3_root_user", "s3_root_password", "s3_bucket", "s3_region", "s3_base_endpoint",
		"s3_public_bucket", "s3_public_base_url", "signed_url_ttl", "max_upload_bytes",
		"rate_limit_backend", "rate_limit_remote_addr", "redis_url",
		"cleanup_probability", "cleanup_batch_size", "trusted_proxy_header",
		"metrics_enabled", "tracing_exporter", "otlp_endpoint", "shutdown_grace_duration",
	}
	for _, rule := range []string{"auth_ip", "auth_email", "mutation_user", "mutation_ip", "upload_user", "public_ip"} {
		keys = append(keys, "rate_limits."+rule+".max_requests", "rate_limits."+rule+".window")
	}
	return keys
}
