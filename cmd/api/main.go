package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	v1 "github.com/PaulBabatuyi/messenger-sync/api/chat/v1"
	"github.com/PaulBabatuyi/messenger-sync/internal/auth"
	"github.com/PaulBabatuyi/messenger-sync/internal/config"
	"github.com/PaulBabatuyi/messenger-sync/internal/data"
	"github.com/PaulBabatuyi/messenger-sync/internal/media"
	"github.com/PaulBabatuyi/messenger-sync/internal/middleware"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if err := run(); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	mode, err := data.ParseWriteMode(cfg.WriteMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := &backends{cfg: cfg}
	defer b.close(context.Background())

	nodes, err := b.openStore(ctx)
	if err != nil {
		return err
	}
	pictures, err := b.openMedia(ctx)
	if err != nil {
		return err
	}

	users := data.NewUsersStore(nodes, mode)
	convs := data.NewConversationsStore(nodes, mode)
	glog.Infof("store backend %s, write mode %s", cfg.StoreBackend, convs.Mode())

	// JWT_KEYS enables rotation; JWT_SECRET is the single-key fallback
	var jwtMgr *auth.JWTManager
	if cfg.JWTKeys != "" {
		keys, err := cfg.SigningKeys()
		if err != nil {
			return err
		}
		jwtMgr = auth.NewJWTManagerFromKeys(keys, cfg.JWTActiveKid, cfg.TokenTTL)
	} else {
		jwtMgr = auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	}

	// small burst to allow a couple of quick retries
	limiterStore := middleware.NewLimiterStore(cfg.RateLimitRPM, 3, time.Minute, middleware.DefaultIdleTTL)
	defer limiterStore.Stop()
	limited := map[string]bool{
		v1.MethodRegister: true,
		v1.MethodLogin:    true,
	}

	hub := NewSubscriptionHub()
	srv := newServer(users, convs, media.New(pictures), jwtMgr, hub)

	var serverOpts []grpc.ServerOption
	if cfg.TLSCert != "" && cfg.TLSKey != "" {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("failed to load TLS certs: %w", err)
		}
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}
	// rate limiter -> auth -> validation
	serverOpts = append(serverOpts,
		grpc.MaxRecvMsgSize(maxRecvMsgBytes),
		grpc.ChainUnaryInterceptor(
			middleware.RateLimitUnaryInterceptor(limiterStore, limited),
			authUnaryInterceptor(jwtMgr),
			validationUnaryInterceptor(srv.validate),
		),
		grpc.ChainStreamInterceptor(authStreamInterceptor(jwtMgr)),
	)

	grpcServer := grpc.NewServer(serverOpts...)
	registerService(grpcServer, srv)

	listenAddr := fmt.Sprintf(":%s", cfg.Port)
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		glog.Infof("gRPC server listening on %s", listenAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		glog.Infof("shutting down gRPC server")
		// watch streams only end when cancelled
		n := hub.CancelAll()
		glog.V(1).Infof("cancelled %d watch streams", n)
		grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}
