package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"xdao.co/keyforge/config"
	"xdao.co/keyforge/rpc"
	"xdao.co/keyforge/storage/casregistry"

	_ "xdao.co/keyforge/storage/badgerstore"
	_ "xdao.co/keyforge/storage/ipfs"
	_ "xdao.co/keyforge/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("keyforged", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var configPath, listen, logLevel, backend, dir string
	var listBackends, noStore bool
	fs.StringVar(&configPath, "config", "", "Config file (default $KEYFORGE_CONFIG)")
	fs.StringVar(&listen, "listen", "", "Listen address (overrides config)")
	fs.StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	fs.StringVar(&backend, "backend", "", "Vector store backend (overrides config)")
	fs.StringVar(&dir, "dir", "", "Vector store directory (overrides config)")
	fs.BoolVar(&noStore, "no-store", false, "Serve derivation only, without the vector store")
	fs.BoolVar(&listBackends, "list-backends", false, "List supported backends and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if listBackends {
		for _, b := range casregistry.List() {
			if b.Description == "" {
				fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if fs.Changed("listen") {
		cfg.Listen = listen
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if fs.Changed("backend") {
		cfg.Store.Backend = backend
	}
	if fs.Changed("dir") {
		cfg.Store.Dir = dir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	log := logrus.New()
	log.SetOutput(errOut)
	log.SetLevel(cfg.Level())

	srv, closeFn, err := newServer(cfg, log, !noStore)
	if err != nil {
		log.WithError(err).Error("open vector store")
		return 2
	}
	defer closeFn()

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		log.WithError(err).Error("listen")
		return 1
	}

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	fields := logrus.Fields{"addr": lis.Addr().String(), "catalog": cfg.Catalog}
	if !noStore {
		fields["backend"] = cfg.Store.Backend
		fields["mirrors"] = len(cfg.Store.Mirrors)
	}
	log.WithFields(fields).Info("keyforged listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		log.WithError(err).Error("serve")
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newServer builds a gRPC server for cfg. The returned closer releases the
// vector store and is never nil.
func newServer(cfg *config.Config, log *logrus.Logger, withStore bool) (*grpc.Server, func() error, error) {
	defaults, err := cfg.Request()
	if err != nil {
		return nil, nil, err
	}
	s := &rpc.Server{
		Deriver: cfg.Deriver(log),
		Defaults: rpc.Defaults{
			Hash:    defaults.Hash,
			Augment: defaults.Augment,
			Length:  defaults.Length,
		},
		MaxLength: cfg.MaxLength,
		MaxRounds: cfg.MaxRounds,
	}
	closeFn := func() error { return nil }
	if withStore {
		cas, c, err := casregistry.OpenAll(cfg.StoreTargets())
		if err != nil {
			return nil, nil, err
		}
		s.Store, closeFn = cas, c
	}

	srv := grpc.NewServer(grpc.UnaryInterceptor(rpc.LoggingInterceptor(log)))
	rpc.Register(srv, s)
	return srv, closeFn, nil
}
