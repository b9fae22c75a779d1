package localfs

import (
	"fmt"

	"xdao.co/poe/storage"
	"xdao.co/poe/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "localfs",
		Description: "Local filesystem block archive (directory)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		Open: func(opts casregistry.Options) (storage.CAS, func() error, error) {
			dir := opts["dir"]
			if dir == "" {
				return nil, nil, fmt.Errorf("localfs: missing \"dir\" option")
			}
			cas, err := New(dir)
			return cas, nil, err
		},
	})
}
