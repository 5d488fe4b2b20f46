package main

import (
	"os"
	"path/filepath"

	"github.com/metalagman/goalpath/internal/config"
)

func loadConfig(path string, optional bool) (config.Config, error) {
	if path == "" {
		path = config.DefaultPath
	}
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return config.Config{}, err
		}
		path = filepath.Join(wd, path)
	}
	return config.Load(path, optional)
}
