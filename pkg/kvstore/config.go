package kvstore

import "time"

// Config selects and parameterises a store driver.
type Config struct {
	Driver string // memory | file | redis | sqlite | none

	// file
	Dir string

	// redis
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration

	// sqlite
	DSN string
}
