// Package config loads server settings from the environment, after an
// optional .env file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Prefix is prepended to every variable name, e.g. MESSENGER_PORT.
const Prefix = "messenger"

// Config holds every server setting.
type Config struct {
	Port string `envconfig:"port" default:"50051"`

	StoreBackend string        `envconfig:"store_backend" default:"memory"`
	MongoURI     string        `envconfig:"mongodb_uri"`
	SQLiteDir    string        `envconfig:"sqlite_dir" default:"./data"`
	PollInterval time.Duration `envconfig:"poll_interval" default:"500ms"`
	WriteMode    string        `envconfig:"write_mode" default:"optimistic"`

	FirebaseDatabaseURL     string `envconfig:"firebase_database_url"`
	FirebaseCredentialsFile string `envconfig:"firebase_credentials_file"`
	FirebaseStorageBucket   string `envconfig:"firebase_storage_bucket"`

	MediaBackend       string `envconfig:"media_backend" default:"memory"`
	S3Bucket           string `envconfig:"s3_bucket"`
	AWSRegion          string `envconfig:"aws_region"`
	AWSAccessKeyID     string `envconfig:"aws_access_key_id"`
	AWSSecretAccessKey string `envconfig:"aws_secret_access_key"`

	JWTSecret    string        `envconfig:"jwt_secret"`
	JWTKeys      string        `envconfig:"jwt_keys"` // kid:secret,kid2:secret2
	JWTActiveKid string        `envconfig:"jwt_active_kid"`
	TokenTTL     time.Duration `envconfig:"token_ttl" default:"24h"`
	RateLimitRPM int           `envconfig:"rate_limit_rpm" default:"10"`

	TLSCert    string `envconfig:"tls_cert"`
	TLSKey     string `envconfig:"tls_key"`
	RequireTLS bool   `envconfig:"require_tls"`
}

// Load reads ./.env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		glog.Warningf("config: couldn't load .env: %v", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process(Prefix, c); err != nil {
		return nil, errors.Wrap(err, "process environment")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "sqlite":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("MESSENGER_MONGODB_URI must be set for the mongo backend")
		}
	case "firebase":
		if c.FirebaseDatabaseURL == "" {
			return errors.New("MESSENGER_FIREBASE_DATABASE_URL must be set for the firebase backend")
		}
	default:
		return errors.Errorf("unknown store backend %q", c.StoreBackend)
	}

	switch c.MediaBackend {
	case "memory", "firebase":
	case "s3":
		if c.S3Bucket == "" || c.AWSRegion == "" {
			return errors.New("MESSENGER_S3_BUCKET and MESSENGER_AWS_REGION must be set for the s3 backend")
		}
	default:
		return errors.Errorf("unknown media backend %q", c.MediaBackend)
	}

	if c.JWTSecret == "" && c.JWTKeys == "" {
		return errors.New("either MESSENGER_JWT_SECRET or MESSENGER_JWT_KEYS must be set")
	}
	if c.JWTKeys != "" {
		keys, err := c.SigningKeys()
		if err != nil {
			return err
		}
		if _, ok := keys[c.JWTActiveKid]; !ok {
			return errors.Errorf("MESSENGER_JWT_ACTIVE_KID %q is not in MESSENGER_JWT_KEYS", c.JWTActiveKid)
		}
	}
	if c.RequireTLS && (c.TLSCert == "" || c.TLSKey == "") {
		return errors.New("MESSENGER_REQUIRE_TLS is set but MESSENGER_TLS_CERT/MESSENGER_TLS_KEY are not")
	}
	return nil
}

// SigningKeys parses JWTKeys ("kid:secret,kid2:secret2").
func (c *Config) SigningKeys() (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(c.JWTKeys, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kid, secret, ok := strings.Cut(p, ":")
		if !ok || kid == "" || secret == "" {
			return nil, errors.Errorf("invalid MESSENGER_JWT_KEYS entry %q", p)
		}
		keys[kid] = secret
	}
	return keys, nil
}
