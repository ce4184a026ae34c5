package config

import (
	"time"

	pkgconfig "github.com/Vigneshd705/ChatApp/pkg/config"
	"github.com/Vigneshd705/ChatApp/pkg/log"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Wallet    WalletConfig
	Authority AuthorityConfig
	Session   SessionConfig
	Log       log.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string `mapstructure:"file_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LedgerConfig struct {
	StatePath string `mapstructure:"state_path"`
}

type WalletConfig struct {
	Path string
}

type AuthorityConfig struct {
	URL         string
	Timeout     time.Duration
	AdminID     string `mapstructure:"admin_id"`
	Affiliation string
	MSPID       string `mapstructure:"msp_id"`
}

type SessionConfig struct {
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Issuer     string
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3000)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chat_app")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.file_path", "./data/users.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("ledger.state_path", "./data/ledger")
	v.SetDefault("wallet.path", "./data/wallet")
	v.SetDefault("authority.url", "http://localhost:7054")
	v.SetDefault("authority.timeout", "30s")
	v.SetDefault("authority.admin_id", "admin")
	v.SetDefault("authority.affiliation", "org1.department1")
	v.SetDefault("authority.msp_id", "Org1MSP")
	v.SetDefault("session.token_ttl", "24h")
	v.SetDefault("session.issuer", "chat-app")
	v.SetDefault("session.bcrypt_cost", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "chat-app")

	// Bind environment variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")
	v.BindEnv("database.file_path", "DB_FILE_PATH")
	v.BindEnv("ledger.state_path", "LEDGER_STATE_PATH")
	v.BindEnv("wallet.path", "WALLET_PATH")
	v.BindEnv("authority.url", "CA_URL")
	v.BindEnv("authority.admin_id", "CA_ADMIN_ID")
	v.BindEnv("authority.affiliation", "CA_AFFILIATION")
	v.BindEnv("authority.msp_id", "CA_MSP_ID")
	v.BindEnv("session.token_ttl", "SESSION_TOKEN_TTL")
	v.BindEnv("session.bcrypt_cost", "SESSION_BCRYPT_COST")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
