package seed

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a YAML seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&file); err != nil {
		return nil, fmt.Errorf("invalid seed file: %w", err)
	}

	return &file, nil
}

func validate(file *File) error {
	for i, user := range file.Users {
		if user.Email == "" {
			return fmt.Errorf("user %d: email is required", i)
		}
		for j, source := range user.Sources {
			if source.URL == "" {
				return fmt.Errorf("user %s: source %d: url is required", user.Email, j)
			}
		}
		if user.Reader != nil && user.Reader.Title == "" {
			return fmt.Errorf("user %s: reader title is required", user.Email)
		}
	}
	return nil
}
