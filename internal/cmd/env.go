package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	addieDirName = ".addie"
	envFileName  = ".env"
)

// loadAddieEnvIfPresent loads ~/.addie/.env when available.
// Existing process environment variables are not overwritten.
func loadAddieEnvIfPresent() error {
	homeDir, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(homeDir) == "" {
		return nil
	}

	path := filepath.Join(homeDir, addieDirName, envFileName)
	return loadEnvFileIfPresent(path)
}

func loadEnvFileIfPresent(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	// godotenv never overwrites variables already set in the process.
	return godotenv.Load(path)
}
