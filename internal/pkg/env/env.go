package env

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var Env map[string]string

// envFilePaths are tried in order: working directory first, then the relative
// paths used when a binary is started from cmd/affirmly or cmd/migrate.
var envFilePaths = []string{
	".env",
	"../../.env",
	"../../../.env",
}

// GetEnv returns the value for key from the loaded .env file, falling back to
// the process environment, then to def.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// SetupEnvFile loads the first .env file found. Containerized deployments and
// tests configure everything through the process environment, so a missing
// file is not fatal.
func SetupEnvFile() {
	for _, path := range envFilePaths {
		vars, err := godotenv.Read(path)
		if err != nil {
			continue
		}
		Env = vars
		return
	}
	log.Print("No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
