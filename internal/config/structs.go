package config

import (
	"github.com/gobb-forum/gobb/internal/logger"
)

const (
	// DefaultCategoriesPerPage is used when neither the runtime store nor main.toml set categoriesPerPage.
	DefaultCategoriesPerPage = 20

	// DefaultSubCategoriesPerPage is assigned to new categories.
	DefaultSubCategoriesPerPage = 10
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Socket    Socket
	Redis     Redis
	Forum     Forum
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown
	URL            string // base url for the webserver
	SessionCookie  string // name of the cookie carrying the session id
	SessionTable   string // table the login service writes sessions to
}

// Socket holds the websocket event server settings.
type Socket struct {
	Enabled        bool
	Port           int
	Path           string
	AllowedOrigins []string // empty allows every origin
}

// Redis holds the settings of the action event relay.
type Redis struct {
	Enabled       bool
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// Forum holds forum wide defaults. The runtime config store overrides CategoriesPerPage.
type Forum struct {
	CategoriesPerPage    int
	SubCategoriesPerPage int
	CategoryWatchState   string // watching, notwatching or ignoring
}
