package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

func getEnv(key, def string) string {
	v := ""
	if val, ok := lookupEnv(key); ok {
		v = val
	} else {
		// fallback to .env file if present
		loadDotEnvOnce.Do(loadDotEnv)
		if val, ok := dotEnv[key]; ok {
			v = val
		}
	}
	if v == "" {
		return def
	}
	return v
}

// lookupEnv is replaced in tests.
var lookupEnv = os.LookupEnv

var (
	dotEnv         map[string]string
	loadDotEnvOnce sync.Once
)

func loadDotEnv() {
	cwd, err := os.Getwd()
	if err != nil {
		return
	}
	dotEnv = readDotEnv(filepath.Join(cwd, ".env"))
}

// readDotEnv returns the variables of the .env file at path, nil when it is
// missing or malformed.
func readDotEnv(path string) map[string]string {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil
	}
	return values
}
