// Package envconf fills config structs from the process environment.
//
// An optional dotenv file is read first; variables already present in the
// environment win over the file. Struct fields are bound with caarlos0/env
// tags (`env:"NAME"`, `envDefault:"..."`, `env:"NAME,required"`).
package envconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DotenvVar names the variable that points at the dotenv file. Defaults to ".env".
const DotenvVar = "APP_DOTENV"

var ErrNilDestination = errors.New("destination is nil")

// Load reads the dotenv file (if any) and parses the environment into dst,
// which must be a non-nil pointer to a struct.
func Load(dst any) error {
	if dst == nil {
		return ErrNilDestination
	}

	err := loadDotenv()
	if err != nil {
		return err
	}

	err = env.Parse(dst)
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

// LoadFrom parses dst from the given variables only, ignoring the process
// environment. Used by tests and tools.
func LoadFrom(dst any, vars map[string]string) error {
	if dst == nil {
		return ErrNilDestination
	}

	err := env.ParseWithOptions(dst, env.Options{Environment: vars})
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	return nil
}

func loadDotenv() error {
	path := os.Getenv(DotenvVar)
	if path == "" {
		path = ".env"
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}

	return nil
}
