// Package config provides configuration management for the relay gateway.
//
// Configuration is read from an optional YAML file and then overridden by
// environment variables. A .env file in the working directory is loaded
// before the environment is consulted.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("relay.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("relay.yaml")
//
//  3. From the environment, with an optional file:
//     cfg, err := config.Load(path) // path may be ""
//
// # Environment Variables
//
// The variable names are flat and unprefixed:
//
//   - PORT, HOSTNAME, BACKLOG, RESPONSE_TIMEOUT for the public listener
//   - MGMT_PORT, MGMT_HOSTNAME, MGMT_BACKLOG, MGMT_RESPONSE_TIMEOUT for the
//     management listener
//   - REDIS_MODE, REDIS_SINGLE_HOST, REDIS_CLUSTER_NODES, REDIS_USERNAME,
//     REDIS_PASSWORD, REDIS_CONNECT_TIMEOUT, REDIS_COMMAND_TIMEOUT,
//     REDIS_MAX_RETRIES
//   - SESSION_SECRET, SESSION_PREFIX, SESSION_TTL, SESSION_SCAN_COUNT,
//     SESSION_COOKIE_NAME
//   - CODE (comma separated), ACCESS_CODE_PREFIX, DISABLE_GPT4
//   - OPENAI_API_KEY, BASE_URL, PROTOCOL, OPENAI_ORG_ID, OPENAI_TIMEOUT
//   - BODY_SIZE_LIMIT, LOG_LEVEL, LOG_FORMAT, APP_SRV_NAME
//
// Timeouts given as bare integers are milliseconds, except SESSION_TTL which
// is seconds. Go duration strings such as "30s" are accepted everywhere.
//
// # Access Codes
//
// Plaintext codes never survive loading: they are converted to MD5 digests
// and only the digests are kept in AccessConfig.CodeHashes.
package config
