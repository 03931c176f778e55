package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string

	// Generative text backend (OpenAI-compatible; Groq by default)
	LLMAPIKey          string
	LLMBaseURL         string
	LLMChatModel       string
	LLMGenerationModel string
	LLMGradingModel    string
	LLMTimeoutSeconds  int
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "learning_platform"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		LLMAPIKey:          getEnv("LLM_API_KEY", os.Getenv("GROQ_API_KEY")),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMChatModel:       getEnv("LLM_CHAT_MODEL", "llama-3.3-70b-versatile"),
		LLMGenerationModel: getEnv("LLM_GENERATION_MODEL", "meta-llama/llama-4-maverick-17b-128e-instruct"),
		LLMGradingModel:    getEnv("LLM_GRADING_MODEL", "llama-3.3-70b-versatile"),
		LLMTimeoutSeconds:  getEnvInt("LLM_TIMEOUT_SECONDS", 30),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
