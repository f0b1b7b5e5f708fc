package api

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"time"
)

// DualRolePrecedence decides which permission set applies when the caller
// both posted the gig and applied to it.
type DualRolePrecedence string

const (
	PrecedenceEmployer  DualRolePrecedence = "employer"
	PrecedenceApplicant DualRolePrecedence = "applicant"
)

var DefaultConfig = Config{
	ConnectionString: "DB_URL",
	LogLevel:         "error",
	DB: DBConfig{
		MaxConns:     3,
		MinConns:     2,
		QueryTimeout: 10 * time.Second,
	},
	HTTP: HTTPConfig{
		Port:           8080,
		JWTSecret:      "JWT_SECRET_KEY",
		RequestTimeout: 10 * time.Second,
	},
	Precedence: PrecedenceEmployer,
}

func NewConfig(connection string) Config {
	n := DefaultConfig
	n.ConnectionString = connection
	return n
}

type Config struct {
	Metrics          bool
	ConnectionString string
	LogLevel         string
	SkipMigrations   bool
	DB               DBConfig
	HTTP             HTTPConfig

	// Precedence resolves the permission set for a caller that is both
	// the gig owner and the applicant.
	Precedence DualRolePrecedence

	// StrictDelete reports ENOTFOUND when deleting an application that does not exist.
	StrictDelete bool
}

// DBConfig sizes the process-wide connection pool.
type DBConfig struct {
	MaxConns int32
	MinConns int32

	// QueryTimeout bounds store operations that do not run inside an HTTP request.
	QueryTimeout time.Duration
}

type HTTPConfig struct {
	Port           int
	JWTSecret      string
	RequestTimeout time.Duration
}

func (c Config) Validate() error {
	if c.DB.MaxConns < 1 {
		return fmt.Errorf("db max connections must be at least 1, got %d", c.DB.MaxConns)
	}
	if c.DB.MinConns > c.DB.MaxConns {
		return fmt.Errorf("db min connections (%d) exceeds max connections (%d)", c.DB.MinConns, c.DB.MaxConns)
	}
	switch c.Precedence {
	case PrecedenceEmployer, PrecedenceApplicant:
	default:
		return fmt.Errorf("unknown dual role precedence %q", c.Precedence)
	}
	return nil
}

func PrintableSecret(secret string) string {
	if len(secret) == 0 {
		return "<nil>"
	} else if len(secret) > 30 {
		sum := md5.Sum([]byte(secret))
		hash := hex.EncodeToString(sum[:])
		return fmt.Sprintf("md5(%s),length=%d", hash[0:8], len(secret))
	} else if len(secret) > 16 {
		return fmt.Sprintf("%s****%s", secret[0:1], secret[len(secret)-2:])
	} else if len(secret) > 10 {
		return fmt.Sprintf("****%s", secret[len(secret)-1:])
	}
	return "****"
}

// readEnv treats val as the name of an environment variable and returns its value when set.
func readEnv(val string) string {
	if v := os.Getenv(val); v != "" {
		return v
	}
	return val
}

func (c Config) ReadEnv() Config {
	clone := c
	clone.ConnectionString = readEnv(clone.ConnectionString)
	if clone.ConnectionString == "DB_URL" {
		clone.ConnectionString = ""
	}
	clone.LogLevel = readEnv(clone.LogLevel)
	clone.HTTP.JWTSecret = readEnv(clone.HTTP.JWTSecret)
	if clone.HTTP.JWTSecret == "JWT_SECRET_KEY" {
		clone.HTTP.JWTSecret = ""
	}
	return clone
}

func (c Config) String() string {
	s := fmt.Sprintf("pool=%d-%d log=%v port=%d jwt=%s precedence=%s strict-delete=%v",
		c.DB.MinConns, c.DB.MaxConns, c.LogLevel, c.HTTP.Port, PrintableSecret(c.HTTP.JWTSecret), c.Precedence, c.StrictDelete)
	if pgUrl, err := url.Parse(c.ConnectionString); err == nil {
		s = fmt.Sprintf("url=%s ", pgUrl.Redacted()) + s
	}

	return s
}
