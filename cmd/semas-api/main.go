// README: Entry point; loads config, wires stores and services, serves HTTP until signalled.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"semas/internal/config"
	httptransport "semas/internal/http"
	"semas/internal/http/middleware"
	"semas/internal/infra"
	"semas/internal/kvstore"
	"semas/internal/modules/avatar"
	"semas/internal/modules/booking"
	"semas/internal/modules/directory"
	"semas/internal/modules/order"
	"semas/internal/modules/payment"
	"semas/internal/modules/prefs"
	"semas/internal/modules/pricing"
	"semas/internal/modules/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orderStore, err := newOrderStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	kv, err := newKV(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	dir, err := newDirectory(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	objects, local, err := newAvatarStore(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}

	catalog, err := pricing.NewSeededStore()
	if err != nil {
		log.Fatal(err)
	}
	pricingSvc := pricing.NewService(catalog)
	orderSvc := order.NewService(orderStore)
	paymentSvc := payment.NewService()
	prefsSvc := prefs.NewService(kv)

	sessions := session.NewManager(dir, kv,
		session.WithSnapshotTTL(cfg.Session.SnapshotTTL),
		session.WithUnifiedDirectory(cfg.Session.UnifiedDirectory),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.Deps{
		Sessions:       sessions,
		Tokens:         middleware.NewTokens(cfg.Session.JWTSecret, cfg.Session.TokenTTL),
		Orders:         orderSvc,
		Pricing:        pricingSvc,
		Payments:       paymentSvc,
		Booking:        booking.NewService(orderSvc, paymentSvc, pricingSvc, prefsSvc),
		Prefs:          prefsSvc,
		Avatars:        avatar.NewService(objects, cfg.Avatar.MaxBytes),
		LocalAvatars:   local,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("semas-api listening on %s (env=%s)", cfg.HTTP.Addr, cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

// newOrderStore uses Postgres when a DSN is configured; otherwise an in-memory
// store preloaded with the demo orders.
func newOrderStore(ctx context.Context, cfg config.Config) (order.Store, error) {
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		return order.NewPgStore(pool), nil
	}
	log.Printf("orders: SEMAS_DB_DSN not set, using in-memory store with demo data")
	store := order.NewMemoryStore()
	if err := order.SeedDemo(ctx, store, time.Now()); err != nil {
		return nil, err
	}
	return store, nil
}

func newKV(ctx context.Context, cfg config.Config) (kvstore.Store, error) {
	if cfg.Redis.Addr == "" {
		log.Printf("kv: SEMAS_REDIS_ADDR not set, sessions and prefs are process-local")
		return kvstore.NewMemoryStore(), nil
	}
	client, err := infra.NewRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		return nil, err
	}
	return kvstore.NewRedisStore(client, "semas:"), nil
}

func newDirectory(ctx context.Context, cfg config.Config) (directory.Directory, error) {
	if cfg.Directory.Driver == "memory" {
		return directory.NewSeededDirectory()
	}
	db, err := infra.NewGorm(cfg.Directory.Driver, cfg.Directory.DSN)
	if err != nil {
		return nil, err
	}
	d := directory.NewGormDirectory(db)
	if err := d.Migrate(); err != nil {
		return nil, err
	}
	users, err := directory.SeedUsers()
	if err != nil {
		return nil, err
	}
	if err := d.Seed(ctx, users); err != nil {
		return nil, err
	}
	return d, nil
}

// newAvatarStore returns S3 when a bucket is configured. The in-memory store is
// also returned so the router can serve its objects.
func newAvatarStore(ctx context.Context, cfg config.Config) (avatar.ObjectStore, *avatar.MemoryStore, error) {
	if cfg.Avatar.Bucket == "" {
		local := avatar.NewMemoryStore(httptransport.MediaPrefix)
		return local, local, nil
	}
	client, err := infra.NewS3(ctx, cfg.Avatar.Region, cfg.Avatar.AccessKeyID, cfg.Avatar.SecretAccessKey)
	if err != nil {
		return nil, nil, err
	}
	return avatar.NewS3Store(client, cfg.Avatar.Bucket, cfg.Avatar.Region), nil, nil
}
