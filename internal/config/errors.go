package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if config db.gormEngine names an unsupported driver.
	ErrUnknownDBEngine = errors.New("toml config db.gormEngine must be mysql, postgres or sqlite")

	// ErrNegativePageSize error if one of the forum paging settings is negative.
	ErrNegativePageSize = errors.New("toml config forum page sizes can not be negative")

	// ErrEmptyRedisAddr error if redis is enabled without an address.
	ErrEmptyRedisAddr = errors.New("toml config redis.addr can not be empty when redis is enabled")
)
