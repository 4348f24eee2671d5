package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort  string
	LogLevel  string
	LogFormat string

	MongoURL      string
	MongoDBName   string
	PsqlURL       string
	RedisURL      string
	RedisPassword string
	RedisDB       int

	JudgeBaseURL      string
	JudgeAPIKey       string
	JudgeAPIHost      string
	JudgePollInterval time.Duration
	JudgeMaxPolls     int

	JWTSecret string

	DuelMode       string
	CountdownTicks int
	RevealTime     time.Duration
	GraceTime      time.Duration
	MaxAttempts    int

	BaseTolerance      int
	ToleranceStep      int
	ToleranceWindow    time.Duration
	QueueSweepInterval time.Duration
	RequeueDelay       time.Duration
}

func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	config := Config{
		HTTPPort:  getEnv("HTTPPORT", "8080"),
		LogLevel:  getEnv("LOGLEVEL", "info"),
		LogFormat: getEnv("LOGFORMAT", "console"),


		MongoURL:      getEnv("MONGOURL", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGODBNAME", "codeduel"),
		PsqlURL:       getEnv("PSQLURL", "host=localhost port=5432 user=admin password=password dbname=codeduel sslmode=disable"),
		RedisURL:      getEnv("REDISURL", "localhost:6379"),
		RedisPassword: getEnv("REDISPASSWORD", ""),
		RedisDB:       getEnvInt("REDISDB", 0),

		JudgeBaseURL:      getEnv("JUDGEBASEURL", "https://judge0-ce.p.rapidapi.com"),
		JudgeAPIKey:       getEnv("JUDGEAPIKEY", ""),
		JudgeAPIHost:      getEnv("JUDGEAPIHOST", "judge0-ce.p.rapidapi.com"),
		JudgePollInterval: getEnvDuration("JUDGEPOLLINTERVAL", 2*time.Second),
		JudgeMaxPolls:     getEnvInt("JUDGEMAXPOLLS", 30),

		JWTSecret: getEnv("JWTSECRET", "secrettt"),

		DuelMode:       getEnv("DUELMODE", "SPRINT_1MIN"),
		CountdownTicks: getEnvInt("COUNTDOWNTICKS", 3),
		RevealTime:     getEnvDuration("REVEALTIME", 10*time.Second),
		GraceTime:      getEnvDuration("GRACETIME", 10*time.Second),
		MaxAttempts:    getEnvInt("MAXATTEMPTS", 3),

		BaseTolerance:      getEnvInt("BASETOLERANCE", 200),
		ToleranceStep:      getEnvInt("TOLERANCESTEP", 100),
		ToleranceWindow:    getEnvDuration("TOLERANCEWINDOW", 10*time.Second),
		QueueSweepInterval: getEnvDuration("QUEUESWEEPINTERVAL", 10*time.Second),
		RequeueDelay:       getEnvDuration("REQUEUEDELAY", 2*time.Second),
	}

	return config
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
