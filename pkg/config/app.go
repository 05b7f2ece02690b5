package config

import "time"

var AppVersion = "DEVELOPMENT"

const (
	AppName           = "savepoint"
	UserDbFile        = "savepoint.db"
	LogFile           = "core.log"
	PidFile           = "core.pid"
	CfgFile           = "config.toml"
	AuthFile          = "auth.toml"
	APIRequestTimeout = 30 * time.Second
)
