package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadENV loads environment variables from .env unless GO_ENV says otherwise
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil {
			return err
		}
	}

	return nil
}

type EnviornmentVariable struct {
	// All variables
	GO_ENV       string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	// Redis Configuration
	REDIS_URL string
	// DigitalOcean Spaces Configuration
	SPACES_KEY      string
	SPACES_SECRET   string
	SPACES_BUCKET   string
	SPACES_REGION   string
	SPACES_ENDPOINT string
	SPACES_CDN_URL  string
	// AI question generation
	AI_API_KEY  string
	AI_BASE_URL string
	AI_MODEL    string
	// Billing policy
	ADMIN_FEE         int64 // fixed surcharge added to every package price
	SUBSCRIPTION_DAYS int   // subscription period granted on confirmation
}

func Get() (*EnviornmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	// Database defaults
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		dbHost = "localhost"
	}

	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "5432"
	}

	// Billing defaults: 15,000 rupiah admin fee, 30-day subscription period.
	// SUBSCRIPTION_DAYS is the single place the period is defined.
	adminFee, err := strconv.ParseInt(os.Getenv("ADMIN_FEE"), 10, 64)
	if err != nil {
		adminFee = 15000
	}

	subscriptionDays, err := strconv.Atoi(os.Getenv("SUBSCRIPTION_DAYS"))
	if err != nil {
		subscriptionDays = 30
	}

	envVariables := &EnviornmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      dbHost,
		DB_PORT:      dbPort,
		DB_SSL_MODE:  os.Getenv("DB_SSL_MODE"),
		PORT:         port,
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: os.Getenv("JWT_ISSUER"),
		// Redis
		REDIS_URL: os.Getenv("REDIS_URL"),
		// Spaces
		SPACES_KEY:      os.Getenv("SPACES_KEY"),
		SPACES_SECRET:   os.Getenv("SPACES_SECRET"),
		SPACES_BUCKET:   os.Getenv("SPACES_BUCKET"),
		SPACES_REGION:   os.Getenv("SPACES_REGION"),
		SPACES_ENDPOINT: os.Getenv("SPACES_ENDPOINT"),
		SPACES_CDN_URL:  os.Getenv("SPACES_CDN_URL"),
		// AI
		AI_API_KEY:  os.Getenv("AI_API_KEY"),
		AI_BASE_URL: os.Getenv("AI_BASE_URL"),
		AI_MODEL:    os.Getenv("AI_MODEL"),
		// Billing
		ADMIN_FEE:         adminFee,
		SUBSCRIPTION_DAYS: subscriptionDays,
	}

	return envVariables, nil
}
