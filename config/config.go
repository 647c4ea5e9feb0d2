package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server     Server
	Database   Database
	Auth       Auth
	Dispatcher Dispatcher
	Mail       Mail
}

type Server struct {
	Port        string
	UseSessions bool
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Auth struct {
	TokenSecret    string
	TokenExpiresIn time.Duration
}

type Dispatcher struct {
	QueueLimit    int           // max session updates drained per batch
	LogQueueLimit int           // max log lines drained per batch
	PollInterval  time.Duration // idle poll interval
	AfterRunDelay time.Duration // delay after a drained batch
	DbLogEnabled  bool
}

type Mail struct {
	Host         string
	Port         string
	Username     string
	Password     string
	From         string
	AdminAddress string
	AlertCodes   []int
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	viper.SetDefault("TOKEN_EXPIRESIN_SEC", 10800)
	viper.SetDefault("DISPATCHER_QUEUE_LIMIT", 7)
	viper.SetDefault("DISPATCHER_LOG_QUEUE_LIMIT", 100)
	viper.SetDefault("DISPATCHER_TIMEOUT_MS", 1000)
	viper.SetDefault("DISPATCHER_TIMEOUT_AFTER_RUN_MS", 100)
	viper.SetDefault("MAIL_ALERT_CODES", []int{500})

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.UseSessions = viper.GetBool("USE_SESSION")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Auth.TokenSecret = viper.GetString("TOKEN_SECRET")
	config.Auth.TokenExpiresIn = time.Duration(viper.GetInt("TOKEN_EXPIRESIN_SEC")) * time.Second

	config.Dispatcher.QueueLimit = viper.GetInt("DISPATCHER_QUEUE_LIMIT")
	config.Dispatcher.LogQueueLimit = viper.GetInt("DISPATCHER_LOG_QUEUE_LIMIT")
	config.Dispatcher.PollInterval = time.Duration(viper.GetInt("DISPATCHER_TIMEOUT_MS")) * time.Millisecond
	config.Dispatcher.AfterRunDelay = time.Duration(viper.GetInt("DISPATCHER_TIMEOUT_AFTER_RUN_MS")) * time.Millisecond
	config.Dispatcher.DbLogEnabled = viper.GetBool("DB_LOG_ENABLED")

	config.Mail.Host = viper.GetString("MAIL_SENDER_HOST")
	config.Mail.Port = viper.GetString("MAIL_SENDER_PORT")
	config.Mail.Username = viper.GetString("MAIL_SENDER_LOGIN")
	config.Mail.Password = viper.GetString("MAIL_SENDER_PASSWORD")
	config.Mail.From = viper.GetString("MAIL_SENDER_ADDRESS")
	config.Mail.AdminAddress = viper.GetString("MAIL_ADMIN_ADDRESS")
	config.Mail.AlertCodes = viper.GetIntSlice("MAIL_ALERT_CODES")

	log.Info().Str("port", config.Server.Port).Bool("useSessions", config.Server.UseSessions).Msg("Config loaded")
	return &config, nil
}
