package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const DefaultMessageTemplate = "Hello {{.Name}}, we are currently running a new offer. Do you want to book an appointment?"

type Config struct {
	Port        string
	LogLevel    string
	PortalTitle string
	LogoPath    string
	PublicURL   string

	AppPassword string

	GoogleSheetID         string
	SheetRange            string
	SheetVerifyRows       bool
	GoogleCredentialsFile string
	GoogleTokenFile       string
	OAuthRedirectURL      string

	MessageTemplate string
	LogsFile        string

	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Msg("no .env file loaded, using process environment")
	}

	port := getEnv("PORT", "8080")

	return &Config{
		Port:        port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		PortalTitle: getEnv("PORTAL_TITLE", "NextAxion Portal"),
		LogoPath:    getEnv("LOGO_PATH", "nextaxion.jpeg"),
		PublicURL:   getEnv("PUBLIC_URL", ""),

		AppPassword: getEnv("APP_PASSWORD", ""),

		GoogleSheetID:         getEnv("GOOGLE_SHEET_ID", ""),
		SheetRange:            getEnv("SHEET_RANGE", "Sheet1!A:C"),
		SheetVerifyRows:       getEnvBool("SHEET_VERIFY_ROWS", true),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleTokenFile:       getEnv("GOOGLE_TOKEN_FILE", "token.json"),
		OAuthRedirectURL:      getEnv("OAUTH_REDIRECT_URL", "http://localhost:"+port+"/auth/google/callback"),

		MessageTemplate: getEnv("MESSAGE_TEMPLATE", DefaultMessageTemplate),
		LogsFile:        getEnv("LOGS_FILE", "logs.csv"),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "./broadcast.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "broadcast"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid boolean, using default")
		return fallback
	}
	return b
}
