package memstore

import (
	"xdao.co/poe/storage"
	"xdao.co/poe/storage/casregistry"
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "memory",
		Description: "In-memory block archive (lost on exit)",
		Usage:       casregistry.UsageDaemon,
		Open: func(opts casregistry.Options) (storage.CAS, func() error, error) {
			return New(), nil, nil
		},
	})
}
