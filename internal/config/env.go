package config

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFile loads .env and .env.local when present. Variables already set in
// the process environment win.
func loadEnvFile() {
	for _, path := range []string{".env", ".env.local"} {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}
