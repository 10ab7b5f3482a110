// SPDX-License-Identifier: ice License 1.0

package config

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//nolint:gochecknoinits // Because we load the configs once, for the whole runtime
func init() {
	loadFirstApplicationConfigFile()
	dotEnvPath := `.env`
	for range maxDotEnvLookups {
		if err := godotenv.Load(dotEnvPath); err == nil {
			break
		}
		dotEnvPath = fmt.Sprintf(`../%v`, dotEnvPath)
	}
}

func MustLoadFromKey(key string, cfg any) {
	if err := LoadFromKey(key, cfg); err != nil {
		log.Panic(err)
	}
}

func LoadFromKey(key string, cfg any) error {
	return errors.Wrapf(viper.UnmarshalKey(key, cfg), "failed to load config by key %q", key)
}

// EnvFallback returns value if it's set, otherwise the `<KEY>_<SUFFIX>` env variable derived from applicationYAMLKey,
// and finally the bare `<SUFFIX>` env variable.
func EnvFallback(value, applicationYAMLKey, suffix string) string {
	if value != "" {
		return value
	}
	module := strings.ToUpper(strings.NewReplacer("-", "_", "/", "_").Replace(applicationYAMLKey))
	if val := os.Getenv(fmt.Sprintf("%s_%s", module, suffix)); val != "" {
		return val
	}

	return os.Getenv(suffix)
}

func loadFirstApplicationConfigFile() {
	for _, f := range findAllApplicationConfigFiles() {
		viper.SetConfigFile(f)
		if err := viper.ReadInConfig(); err == nil {
			return
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Panic(err)
		}
	}

	log.Panic(errors.New("could not find any application.yaml files"))
}

func findAllApplicationConfigFiles() []string {
	var hints []string
	if p, err := os.Getwd(); err == nil {
		hints = append(hints, p)
	}
	if p, err := os.Executable(); err == nil {
		hints = append(hints, path.Dir(filepath.Join(p, "..")))
	}
	files := make([]string, 0, len(hints)+len(hints)+1+1)
	for _, dir := range hints {
		files = append(files, glob(filepath.Join(dir, ".testdata", applicationFile))...)
		files = append(files, glob(filepath.Join(dir, applicationFile))...)
	}
	//nolint:dogsled // Because those 3 blank identifiers are useless
	_, callerFile, _, _ := runtime.Caller(0)
	files = append(files, glob(filepath.Join(filepath.Dir(callerFile), "..", applicationFile))...)

	return files
}

func glob(pattern string) []string {
	f, err := filepath.Glob(pattern)
	if err != nil {
		log.Println(errors.Wrapf(err, "glob failed for [%v]", pattern))
	}

	return f
}
