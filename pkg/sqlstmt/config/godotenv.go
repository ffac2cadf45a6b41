package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	defaultFileName         = "/.env"
	defaultOverrideFileName = "/.local.env"
)

type logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// EnvLoader reads values from the process environment after loading the
// .env files of a folder. Variables already set in the environment win over
// both files.
type EnvLoader struct {
	logger logger
}

// NewEnvFile loads <folder>/.env and then <folder>/.<APP_ENV>.env, or
// <folder>/.local.env when APP_ENV is unset.
func NewEnvFile(configFolder string, logger logger) Config {
	conf := &EnvLoader{logger: logger}
	conf.read(configFolder)

	return conf
}

func (e *EnvLoader) read(folder string) {
	initial := make(map[string]struct{})

	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				initial[kv[:i]] = struct{}{}
				break
			}
		}
	}

	defaultFile := filepath.Clean(folder + defaultFileName)

	if err := e.load(defaultFile, initial); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.logger.Fatalf("failed to load config from file: %v, err: %v", defaultFile, err)
		}

		e.logger.Debugf("no config file found at %v", defaultFile)
	} else {
		e.logger.Infof("loaded config from file: %v", defaultFile)
	}

	overrideFile := filepath.Clean(folder + defaultOverrideFileName)
	if env := os.Getenv("APP_ENV"); env != "" {
		overrideFile = filepath.Clean(folder + "/." + env + ".env")
	}

	if err := e.overload(overrideFile, initial); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warnf("failed to load config from file: %v, err: %v", overrideFile, err)
		}

		return
	}

	e.logger.Infof("loaded config from file: %v", overrideFile)
}

// load sets the values of file that are not yet in the environment.
func (*EnvLoader) load(file string, initial map[string]struct{}) error {
	values, err := godotenv.Read(file)
	if err != nil {
		return err
	}

	for k, v := range values {
		if _, ok := initial[k]; ok {
			continue
		}

		_ = os.Setenv(k, v)
	}

	return nil
}

// overload replaces values from earlier files but keeps the ones the process
// was started with.
func (*EnvLoader) overload(file string, initial map[string]struct{}) error {
	values, err := godotenv.Read(file)
	if err != nil {
		return err
	}

	for k, v := range values {
		if _, ok := initial[k]; ok {
			continue
		}

		_ = os.Setenv(k, v)
	}

	return nil
}

func (*EnvLoader) Get(key string) string {
	return os.Getenv(key)
}

func (*EnvLoader) GetOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return defaultValue
}
