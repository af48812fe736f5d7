package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// EnvLoader returns a Loader that reads the specified environment variables.
// Missing variables are silently omitted from the result map.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// DotEnvLoader reads keys from the .env file at path, falling back to the
// environment for keys the file does not set. The file is read on every
// call, so editing it and reloading rotates the secret. A missing file is
// not an error.
func DotEnvLoader(path string, keys ...string) Loader {
	env := EnvLoader(keys...)
	return func() (map[string]string, error) {
		vals, err := env()
		if err != nil {
			return nil, err
		}
		file, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return vals, nil
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for _, k := range keys {
			if v := file[k]; v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}
