package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"

	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 30 * 24 * time.Hour
	defaultStoreTimeout    = 3 * time.Second
	defaultOAuthTimeout    = 10 * time.Second
	defaultPurgeRetention  = 7 * 24 * time.Hour

	defaultRateLimitPrefix   = "rl"
	defaultRateLimitStrategy = "ip_route"
	defaultRateLimitCapacity = 20
	defaultRateLimitRefill   = time.Second
	defaultRedisTimeout      = 5 * time.Second

	// refreshToAccessMinRatio bounds how short a refresh TTL may be relative to the access TTL.
	refreshToAccessMinRatio = 10
)

// Storage drivers accepted by storage.driver.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMongo    = "mongo"
	StorageDriverMemory   = "memory"
)

// Event publisher providers accepted by pubsub.provider.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
	PubSubProviderAMQP   = "amqp"
)

type Config struct {
	Env EnvConfig `json:"env" yaml:"env"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	Storage StorageConfig `json:"storage" yaml:"storage"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Mongo *MongoConfig `json:"mongo" yaml:"mongo"`

	SecretKey SecretKeyConfig `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	// OAuth configures the federated identity providers
	OAuth *OAuthConfig `json:"oauth" yaml:"oauth"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	// RateLimit throttles the public auth endpoints, backed by Redis
	RateLimit *RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	// PubSub configuration for auth event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type EnvConfig struct {
	Env         string `json:"env" yaml:"env"`
	ServiceName string `json:"serviceName" yaml:"serviceName"`
	Debug       bool   `json:"debug" yaml:"debug"`
	Log         Log    `json:"log" yaml:"log"`
}

type HTTPConfig struct {
	Port               int      `json:"port" yaml:"port"`
	MaxRequestBodySize string   `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
	Timeouts           Timeouts `json:"timeouts" yaml:"timeouts"`
}

type Timeouts struct {
	ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// StorageConfig selects the backend behind the credential store and refresh token ledger.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	// AutoMigrate creates missing tables and indexes on startup
	AutoMigrate bool `json:"autoMigrate" yaml:"autoMigrate"`
}

// SecretKeyConfig holds the HMAC secret used to sign access tokens.
type SecretKeyConfig struct {
	Access string `json:"access" yaml:"access"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	AccessTokenTTL  time.Duration `json:"accessTokenTTL" yaml:"accessTokenTTL"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTTL" yaml:"refreshTokenTTL"`
	BcryptCost      int           `json:"bcryptCost" yaml:"bcryptCost"`

	// StoreTimeout bounds every credential store and ledger call
	StoreTimeout time.Duration `json:"storeTimeout" yaml:"storeTimeout"`

	// PurgeInterval enables the refresh token janitor when positive
	PurgeInterval  time.Duration `json:"purgeInterval" yaml:"purgeInterval"`
	PurgeRetention time.Duration `json:"purgeRetention" yaml:"purgeRetention"`
}

// OAuthConfig defines the identity provider endpoints
type OAuthConfig struct {
	Timeout  time.Duration        `json:"timeout" yaml:"timeout"`
	Facebook *FacebookOAuthConfig `json:"facebook" yaml:"facebook"`
	Google   *GoogleOAuthConfig   `json:"google" yaml:"google"`
}

type FacebookOAuthConfig struct {
	GraphURL string `json:"graphUrl" yaml:"graphUrl"`
	// AppSecret enables appsecret_proof on Graph API calls when set
	AppSecret string `json:"appSecret" yaml:"appSecret"`
}

type GoogleOAuthConfig struct {
	// Endpoint overrides the Google API base URL, mostly for tests
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// MongoConfig defines the document store connection
type MongoConfig struct {
	URI             string        `json:"uri" yaml:"uri"`
	Database        string        `json:"database" yaml:"database"`
	ConnectTimeout  time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
	MaxPoolSize     uint64        `json:"maxPoolSize" yaml:"maxPoolSize"`
	MinPoolSize     uint64        `json:"minPoolSize" yaml:"minPoolSize"`
	MaxConnIdleTime time.Duration `json:"maxConnIdleTime" yaml:"maxConnIdleTime"`
	RetryAttempts   int           `json:"retryAttempts" yaml:"retryAttempts"`
	RetryInterval   time.Duration `json:"retryInterval" yaml:"retryInterval"`
}

type RedisConfig struct {
	URL            string        `json:"url" yaml:"url"`
	ConnectTimeout time.Duration `json:"connectTimeout" yaml:"connectTimeout"`
	RetryAttempts  int           `json:"retryAttempts" yaml:"retryAttempts"`
	RetryInterval  time.Duration `json:"retryInterval" yaml:"retryInterval"`
}

// RateLimitConfig defines the token bucket applied to /v1/auth routes
type RateLimitConfig struct {
	Enabled        bool          `json:"enabled" yaml:"enabled"`
	Prefix         string        `json:"prefix" yaml:"prefix"`
	KeyStrategy    string        `json:"keyStrategy" yaml:"keyStrategy"`
	Capacity       int           `json:"capacity" yaml:"capacity"`
	RefillTokens   int           `json:"refillTokens" yaml:"refillTokens"`
	RefillInterval time.Duration `json:"refillInterval" yaml:"refillInterval"`
	TTL            time.Duration `json:"ttl" yaml:"ttl"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local", "google" or "amqp"
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`

	AMQPURL string `json:"amqpUrl" yaml:"amqpUrl"`
	Queue   string `json:"queue" yaml:"queue"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	configFile, found := findConfigFile(searchPaths, currEnv)
	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// AUTH_ACCESSTOKENTTL -> auth.accessTokenTTL, aligned with the YAML keys already loaded.
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func findConfigFile(searchPaths []string, currEnv string) (string, bool) {
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}

	return "", false
}

func New() (*Config, error) {
	// A missing .env file is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env failed")
	}

	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyDefaults fills optional sections so the rest of the service can read them without nil checks.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = defaultRefreshTokenTTL
	}
	if c.Auth.StoreTimeout <= 0 {
		c.Auth.StoreTimeout = defaultStoreTimeout
	}
	if c.Auth.PurgeRetention <= 0 {
		c.Auth.PurgeRetention = defaultPurgeRetention
	}

	if c.OAuth == nil {
		c.OAuth = &OAuthConfig{}
	}
	if c.OAuth.Timeout <= 0 {
		c.OAuth.Timeout = defaultOAuthTimeout
	}
	if c.OAuth.Facebook == nil {
		c.OAuth.Facebook = &FacebookOAuthConfig{}
	}
	if c.OAuth.Google == nil {
		c.OAuth.Google = &GoogleOAuthConfig{}
	}

	if c.Redis != nil {
		if c.Redis.ConnectTimeout <= 0 {
			c.Redis.ConnectTimeout = defaultRedisTimeout
		}
		if c.Redis.RetryAttempts < 1 {
			c.Redis.RetryAttempts = 1
		}
	}

	if c.RateLimit != nil {
		c.RateLimit.applyDefaults()
	}
}

func (r *RateLimitConfig) applyDefaults() {
	if r.Prefix == "" {
		r.Prefix = defaultRateLimitPrefix
	}
	if r.KeyStrategy == "" {
		r.KeyStrategy = defaultRateLimitStrategy
	}
	if r.Capacity < 1 {
		r.Capacity = defaultRateLimitCapacity
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = defaultRateLimitRefill
	}
	// A bucket must outlive a few refill periods or it resets to full too early.
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
}

// Validate rejects configurations that would break token issuance or storage selection.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SecretKey.Access) == "" {
		return errors.New("secretKey.access must be provided")
	}

	if c.Auth.RefreshTokenTTL < refreshToAccessMinRatio*c.Auth.AccessTokenTTL {
		return errors.Errorf("auth.refreshTokenTTL (%s) must be at least %d times auth.accessTokenTTL (%s)",
			c.Auth.RefreshTokenTTL, refreshToAccessMinRatio, c.Auth.AccessTokenTTL)
	}

	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgres section is required for the postgres storage driver")
		}
	case StorageDriverMongo:
		if c.Mongo == nil || c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("mongo.uri and mongo.database are required for the mongo storage driver")
		}
	case StorageDriverMemory:
	default:
		return errors.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}

	if c.RateLimit != nil && c.RateLimit.Enabled && (c.Redis == nil || c.Redis.URL == "") {
		return errors.New("redis.url is required when rateLimit is enabled")
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
