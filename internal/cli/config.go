package cli

import (
	"github.com/tabkit/tabq/internal/serv"
	"github.com/tabkit/tabq/internal/store"
)

// loadConfig resolves the effective configuration from the config file
// and global flags. Flags win over the file.
func loadConfig(opts *RootOptions) (serv.Config, error) {
	conf := serv.DefaultConfig()
	if opts.Config != "" {
		var err error
		conf, err = serv.LoadConfig(opts.Config)
		if err != nil {
			return serv.Config{}, err
		}
	}
	if opts.DBPath != "" {
		conf.DBPath = opts.DBPath
	}
	return conf, nil
}

// openStore opens the configured database.
func openStore(opts *RootOptions) (*store.Store, serv.Config, error) {
	conf, err := loadConfig(opts)
	if err != nil {
		return nil, serv.Config{}, err
	}
	st, err := store.Open(conf.DBPath)
	if err != nil {
		return nil, serv.Config{}, err
	}
	return st, conf, nil
}
