package config

import (
	"errors"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. It returns how many keys were
// applied; a missing file applies none.
func LoadDotEnv(path string) int {
	values, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("dotenv %s: %v (ignored)", path, err)
		}
		return 0
	}
	applied := 0
	for key, value := range values {
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if os.Setenv(key, value) == nil {
			applied++
		}
	}
	return applied
}
