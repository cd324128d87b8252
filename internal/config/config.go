package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"nftcredit-backend/pkg/money"
)

type Config struct {
	AppPort    string `mapstructure:"APP_PORT"`
	ServiceEnv string `mapstructure:"SERVICE_ENV"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`
	LogFile    string `mapstructure:"LOG_FILE"`

	DBDriver    string `mapstructure:"DB_DRIVER"`
	MySQLHost   string `mapstructure:"MYSQL_HOST"`
	MySQLPort   string `mapstructure:"MYSQL_PORT"`
	MySQLDB     string `mapstructure:"MYSQL_DB"`
	MySQLUser   string `mapstructure:"MYSQL_USER"`
	MySQLPass   string `mapstructure:"MYSQL_PASS"`
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`

	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	RedisDB      int    `mapstructure:"REDIS_DB"`
	IdempTTLSecs int    `mapstructure:"IDEMPOTENCY_TTL_SECONDS"`

	AMQPURL        string `mapstructure:"AMQP_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	MultisigOwners     []string `mapstructure:"MULTISIG_OWNERS"`
	MultisigThreshold  int      `mapstructure:"MULTISIG_THRESHOLD"`
	GatewayAddress     string   `mapstructure:"GATEWAY_ADDRESS"`
	EngineAddress      string   `mapstructure:"ENGINE_ADDRESS"`
	EligibleCurrencies []string `mapstructure:"ELIGIBLE_CURRENCIES"`
	AuthorizedAgents   []string `mapstructure:"AUTHORIZED_AGENTS"`

	FeeTo        string `mapstructure:"FEE_TO"`
	FeeCurrency  string `mapstructure:"FEE_CURRENCY"`
	LateFee      string `mapstructure:"LATE_FEE"`
	PenaltyFee   string `mapstructure:"PENALTY_FEE"`
	SalesManager string `mapstructure:"SALES_MANAGER"`

	TenorPeriod   time.Duration `mapstructure:"TENOR_PERIOD"`
	GracePeriod   time.Duration `mapstructure:"GRACE_PERIOD"`
	LateTolerance time.Duration `mapstructure:"LATE_TOLERANCE"`
	ClaimWindow   time.Duration `mapstructure:"CLAIM_WINDOW"`

	SweepSchedule  string `mapstructure:"SWEEP_SCHEDULE"`
	SweepBatchSize int    `mapstructure:"SWEEP_BATCH_SIZE"`
}

var keys = []string{
	"APP_PORT", "SERVICE_ENV", "LOG_LEVEL", "LOG_FILE",
	"DB_DRIVER", "MYSQL_HOST", "MYSQL_PORT", "MYSQL_DB", "MYSQL_USER", "MYSQL_PASS", "POSTGRES_DSN",
	"REDIS_ADDR", "REDIS_DB", "IDEMPOTENCY_TTL_SECONDS",
	"AMQP_URL", "EVENTS_EXCHANGE", "JWT_SECRET",
	"MULTISIG_OWNERS", "MULTISIG_THRESHOLD", "GATEWAY_ADDRESS", "ENGINE_ADDRESS",
	"ELIGIBLE_CURRENCIES", "AUTHORIZED_AGENTS",
	"FEE_TO", "FEE_CURRENCY", "LATE_FEE", "PENALTY_FEE", "SALES_MANAGER",
	"TENOR_PERIOD", "GRACE_PERIOD", "LATE_TOLERANCE", "CLAIM_WINDOW",
	"SWEEP_SCHEDULE", "SWEEP_BATCH_SIZE",
}

// Load reads the environment and an optional .env file under path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("SERVICE_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("MYSQL_HOST", "mysql")
	v.SetDefault("MYSQL_PORT", "3306")
	v.SetDefault("MYSQL_DB", "nftcredit")
	v.SetDefault("MYSQL_USER", "nftcredit")
	v.SetDefault("MYSQL_PASS", "nftcredit")
	v.SetDefault("REDIS_ADDR", "redis:6379")
	v.SetDefault("IDEMPOTENCY_TTL_SECONDS", 300)
	v.SetDefault("EVENTS_EXCHANGE", "nftcredit.events")
	v.SetDefault("MULTISIG_THRESHOLD", 2)
	v.SetDefault("LATE_FEE", "0")
	v.SetDefault("PENALTY_FEE", "0")
	v.SetDefault("TENOR_PERIOD", "720h")
	v.SetDefault("GRACE_PERIOD", "336h")
	v.SetDefault("LATE_TOLERANCE", "72h")
	v.SetDefault("CLAIM_WINDOW", "336h")
	v.SetDefault("SWEEP_SCHEDULE", "@every 5m")
	v.SetDefault("SWEEP_BATCH_SIZE", 100)
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	c.MultisigOwners = splitList(c.MultisigOwners)
	c.EligibleCurrencies = splitList(c.EligibleCurrencies)
	c.AuthorizedAgents = splitList(c.AuthorizedAgents)
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	return &c, nil
}

// splitList flattens comma separated entries; .env values arrive as one string.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql":
		if c.MySQLHost == "" || c.MySQLPort == "" || c.MySQLDB == "" || c.MySQLUser == "" {
			return errors.New("missing MySQL config (MYSQL_HOST/PORT/DB/USER)")
		}
		if _, err := net.LookupPort("tcp", c.MySQLPort); err != nil {
			return fmt.Errorf("invalid MYSQL_PORT %q: %w", c.MySQLPort, err)
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("missing POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET")
	}
	for _, k := range []struct{ name, val string }{
		{"GATEWAY_ADDRESS", c.GatewayAddress},
		{"ENGINE_ADDRESS", c.EngineAddress},
		{"FEE_TO", c.FeeTo},
		{"SALES_MANAGER", c.SalesManager},
	} {
		if !common.IsHexAddress(k.val) {
			return fmt.Errorf("invalid %s %q", k.name, k.val)
		}
	}
	if c.FeeCurrency != "" && !common.IsHexAddress(c.FeeCurrency) {
		return fmt.Errorf("invalid FEE_CURRENCY %q", c.FeeCurrency)
	}
	if _, err := parseAddresses("MULTISIG_OWNERS", c.MultisigOwners); err != nil {
		return err
	}
	if c.MultisigThreshold < 1 || c.MultisigThreshold > len(c.MultisigOwners) {
		return fmt.Errorf("MULTISIG_THRESHOLD %d out of range 1..%d", c.MultisigThreshold, len(c.MultisigOwners))
	}
	if _, err := parseAddresses("ELIGIBLE_CURRENCIES", c.EligibleCurrencies); err != nil {
		return err
	}
	if _, err := parseAddresses("AUTHORIZED_AGENTS", c.AuthorizedAgents); err != nil {
		return err
	}
	if _, err := money.Parse(c.LateFee); err != nil {
		return fmt.Errorf("invalid LATE_FEE: %w", err)
	}
	if _, err := money.Parse(c.PenaltyFee); err != nil {
		return fmt.Errorf("invalid PENALTY_FEE: %w", err)
	}
	if c.TenorPeriod <= 0 || c.GracePeriod < 0 || c.LateTolerance < 0 || c.ClaimWindow <= 0 {
		return errors.New("invalid schedule durations")
	}
	return nil
}

func parseAddresses(name string, in []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(in))
	for _, s := range in {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q in %s", s, name)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

// Owners, Currencies and Agents assume Validate has passed.
func (c *Config) Owners() []common.Address {
	out, _ := parseAddresses("MULTISIG_OWNERS", c.MultisigOwners)
	return out
}

func (c *Config) Currencies() []common.Address {
	out, _ := parseAddresses("ELIGIBLE_CURRENCIES", c.EligibleCurrencies)
	return out
}

func (c *Config) Agents() []common.Address {
	out, _ := parseAddresses("AUTHORIZED_AGENTS", c.AuthorizedAgents)
	return out
}

func (c *Config) Gateway() common.Address { return common.HexToAddress(c.GatewayAddress) }

func (c *Config) Engine() common.Address { return common.HexToAddress(c.EngineAddress) }

func (c *Config) FeeToAddress() common.Address { return common.HexToAddress(c.FeeTo) }

func (c *Config) SalesManagerAddress() common.Address { return common.HexToAddress(c.SalesManager) }

// FeeCurrencyAddress falls back to the first eligible currency.
func (c *Config) FeeCurrencyAddress() common.Address {
	if c.FeeCurrency == "" {
		if cs := c.Currencies(); len(cs) > 0 {
			return cs[0]
		}
		return common.Address{}
	}
	return common.HexToAddress(c.FeeCurrency)
}

func (c *Config) mysqlAddr() string { return net.JoinHostPort(c.MySQLHost, c.MySQLPort) }

func (c *Config) MySQLDSN() string {
	// parseTime needed for DATETIME
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?multiStatements=true&parseTime=true&charset=utf8mb4,utf8",
		c.MySQLUser, c.MySQLPass, c.mysqlAddr(), c.MySQLDB)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.PostgresDSN
	}
	return c.MySQLDSN()
}
