package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server settings
	Port string
	Host string
	Env  string

	// MongoDB settings
	MongoURI     string
	DatabaseName string
	MongoTimeout int

	// JWT settings
	JWTSecret     string
	JWTExpiration int

	// Disease classifier API
	DiseaseAPIURL string

	// OpenWeather
	WeatherAPIURL string
	WeatherAPIKey string

	// Cloudinary image hosting
	CloudinaryCloudName    string
	CloudinaryUploadPreset string

	// Redis cache (optional)
	RedisAddr     string
	RedisPassword string

	// Twilio SMS (optional)
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

func Load() *Config {
	// Load variables from a .env file when present
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	config := &Config{
		Port:          getEnv("PORT", "8080"),
		Host:          getEnv("HOST", "0.0.0.0"),
		Env:           getEnv("ENV", "development"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName:  getEnv("DATABASE_NAME", "cropwise"),
		MongoTimeout:  getEnvAsInt("MONGO_TIMEOUT", 10),
		JWTSecret:     getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration: getEnvAsInt("JWT_EXPIRATION", 24), // hours

		DiseaseAPIURL: getEnv("DISEASE_API_URL", "http://localhost:5000"),

		WeatherAPIURL: getEnv("WEATHER_API_URL", "https://api.openweathermap.org"),
		WeatherAPIKey: getEnv("WEATHER_API_KEY", ""),

		CloudinaryCloudName:    getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryUploadPreset: getEnv("CLOUDINARY_UPLOAD_PRESET", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
