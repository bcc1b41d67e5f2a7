// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON is the environment variable holding a JSON document merged over the file config.
const EnvConfigJSON = "GOBB_CONFIG_JSON"

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigFile(path + "main.toml")
	v.SetConfigType("toml")
	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
	}); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

// setDefaults registers the values used when main.toml leaves a key out.
func setDefaults(v *viper.Viper) {
	v.SetDefault("db.gormEngine", EngineSQLite)
	v.SetDefault("db.maxOpenConns", 10) //nolint:mnd
	v.SetDefault("db.maxIdleConns", 5)  //nolint:mnd
	v.SetDefault("webserver.shutDownTime", 5)
	v.SetDefault("webserver.sessionCookie", "session")
	v.SetDefault("webserver.sessionTable", "sessions")
	v.SetDefault("socket.path", "/socket")
	v.SetDefault("redis.channelPrefix", "gobb")
	v.SetDefault("forum.categoriesPerPage", DefaultCategoriesPerPage)
	v.SetDefault("forum.subCategoriesPerPage", DefaultSubCategoriesPerPage)
	v.SetDefault("forum.categoryWatchState", "watching")
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	return c, nil
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings.
// Fills in zero values which have a sane default and rejects the rest.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineSQLite
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrapf(ErrUnknownDBEngine, "%s: %q", invalidErrMessage, c.DB.GormEngine)
	}

	if c.Forum.CategoriesPerPage < 0 || c.Forum.SubCategoriesPerPage < 0 {
		return errors.Wrap(ErrNegativePageSize, invalidErrMessage)
	}

	if c.Forum.CategoriesPerPage == 0 {
		c.Forum.CategoriesPerPage = DefaultCategoriesPerPage
	}

	if c.Forum.SubCategoriesPerPage == 0 {
		c.Forum.SubCategoriesPerPage = DefaultSubCategoriesPerPage
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.Wrap(ErrEmptyRedisAddr, invalidErrMessage)
	}

	return nil
}
