package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"xdao.co/poe/chain"
	"xdao.co/poe/grpcnode"
	"xdao.co/poe/internal/config"
	"xdao.co/poe/node"
	"xdao.co/poe/runtime"
	"xdao.co/poe/state/sqlite"
	"xdao.co/poe/storage"
	"xdao.co/poe/storage/casregistry"

	_ "xdao.co/poe/storage/localfs"
	_ "xdao.co/poe/storage/memstore"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "xdao-poed",
		Short: "Proof-of-existence chain node",
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the node",
		RunE:  runStart,
	}
	startCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "Path to config file (default: configs/config.yaml)")
	rootCmd.AddCommand(startCmd)

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "List supported archive backends",
		Run: func(cmd *cobra.Command, args []string) {
			for _, b := range casregistry.List(casregistry.UsageDaemon) {
				if b.Description == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", b.Name)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", b.Name, b.Description)
			}
		},
	}
	rootCmd.AddCommand(backendsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runStart(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config load: %w", err)
	}

	archive, closeFn, err := openArchive(cfg.Archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	if closeFn != nil {
		defer closeFn()
	}

	store, err := sqlite.Open(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	n := node.New(runtime.New(logger), archive, store, node.Config{
		SealInterval:       cfg.Node.SealInterval,
		MaxBlockExtrinsics: cfg.Node.MaxBlockExtrinsics,
		MempoolLimit:       cfg.Node.MempoolLimit,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	genesis := make(map[chain.AccountID]chain.Balance, len(cfg.Genesis.Accounts))
	for _, acct := range cfg.Genesis.Accounts {
		genesis[chain.AccountID(acct.Account)] = chain.Balance(acct.Balance)
	}
	if err := n.Bootstrap(ctx, genesis); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	lis, err := net.Listen("tcp", cfg.Node.Listen)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	srv := grpc.NewServer()
	grpcnode.RegisterNodeServer(srv, &grpcnode.Server{Node: n})

	logger.Info("node listening",
		zap.String("addr", lis.Addr().String()),
		zap.String("backend", cfg.Archive.Backend),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := n.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// openArchive opens the configured backend, wrapping it in a mirror when a
// mirror directory is configured.
func openArchive(cfg config.ArchiveConfig) (storage.CAS, func() error, error) {
	primary, closeFn, err := casregistry.Open(cfg.Backend, casregistry.UsageDaemon, casregistry.Options(cfg.Options))
	if err != nil {
		return nil, nil, err
	}
	if cfg.MirrorDir == "" {
		return primary, closeFn, nil
	}

	mirror, mirrorClose, err := casregistry.Open("localfs", casregistry.UsageDaemon, casregistry.Options{"dir": cfg.MirrorDir})
	if err != nil {
		if closeFn != nil {
			_ = closeFn()
		}
		return nil, nil, err
	}
	combined := storage.MirroredCAS{Backends: []storage.NamedCAS{
		{Name: cfg.Backend, CAS: primary},
		{Name: "mirror", CAS: mirror},
	}}
	closeAll := func() error {
		var first error
		for _, fn := range []func() error{closeFn, mirrorClose} {
			if fn == nil {
				continue
			}
			if err := fn(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return combined, closeAll, nil
}
