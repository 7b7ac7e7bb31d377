package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to any of the
// server's components.
type Config struct {
	// Hostname or IP address on which the servers will listen for connections.
	Hostname string `mapstructure:"hostname"`

	Server struct {
		// Port on which the game server will listen for client connections.
		Port int `mapstructure:"port"`
		// Number of reactors in the pool; 0 means one per available CPU.
		NumReactors int `mapstructure:"num_reactors"`
		// Maximum number of concurrent connections the server will allow (0 = unlimited).
		MaxConnections int `mapstructure:"max_connections"`
	} `mapstructure:"server"`

	Web struct {
		// HTTP endpoint port for the out-of-band registration API.
		HTTPPort int `mapstructure:"http_port"`
	} `mapstructure:"web"`

	Database struct {
		// Database engine to use. Options: sqlite, postgres
		Engine string `mapstructure:"engine"`
		// Path of the database file when the sqlite engine is used.
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on db_host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${db_name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Game struct {
		// Number of words per match.
		NumWords int `mapstructure:"num_words"`
		// How long a challenged user has to accept before the challenge is aborted.
		AcceptanceTimeout time.Duration `mapstructure:"acceptance_timeout"`
		// How long a match may run before it is forcibly concluded.
		MatchTimeout time.Duration `mapstructure:"match_timeout"`
		// Points awarded to the player with strictly more correct answers.
		WinnerBonus int `mapstructure:"winner_bonus"`
		// Full (or relative to the current directory) path to the dictionary
		// file, one word per line.
		DictionaryFile string `mapstructure:"dictionary_file"`
		// Base URL of the translation lookup endpoint.
		LookupURL string `mapstructure:"lookup_url"`
	} `mapstructure:"game"`

	Logging struct {
		// Minimum level of a log required to be written. Options: debug, info, warn, error
		LogLevel string `mapstructure:"log_level"`
		// Full path to file to which logs will be written. Blank will write to stdout.
		LogFilePath string `mapstructure:"log_file_path"`
	} `mapstructure:"logging"`

	Debugging struct {
		// Enable extra info-providing mechanisms for the server.
		PprofEnabled bool `mapstructure:"pprof_enabled"`
		// Port on which a pprof server will be started if debug mode is enabled.
		PprofPort int `mapstructure:"pprof_port"`
		// Log decoded client messages to the debug log.
		MessageLoggingEnabled bool `mapstructure:"message_logging_enabled"`
		// Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "QUIZD"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("error reading config file: %v\n", err)
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s\n", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v\n", err)
		os.Exit(1)
	}
	return config
}

func setDefaults() {
	viper.SetDefault("hostname", "0.0.0.0")
	viper.SetDefault("server.port", 9999)
	viper.SetDefault("web.http_port", 9090)
	viper.SetDefault("database.engine", "sqlite")
	viper.SetDefault("database.filename", "quizd.db")
	viper.SetDefault("game.num_words", 4)
	viper.SetDefault("game.acceptance_timeout", "15s")
	viper.SetDefault("game.match_timeout", "20s")
	viper.SetDefault("game.winner_bonus", 3)
	viper.SetDefault("game.dictionary_file", "dict.txt")
	viper.SetDefault("game.lookup_url", "https://api.mymemory.translated.net/get")
	viper.SetDefault("logging.log_level", "info")
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a Postgres connection string generated from the
// provided config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}

// ListenAddress returns the address on which the game server listens for
// client connections.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Server.Port)
}

// WebAddress returns the address of the HTTP registration endpoint.
func (c *Config) WebAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Web.HTTPPort)
}
