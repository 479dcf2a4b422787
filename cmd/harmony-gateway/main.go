// harmony-gateway is the Harmony real-time gateway server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AdaptChat/harmony/pkg/events"
	"github.com/AdaptChat/harmony/pkg/gateway"
	"github.com/AdaptChat/harmony/pkg/observability"
	"github.com/AdaptChat/harmony/pkg/presence"
	"github.com/AdaptChat/harmony/pkg/session"
	"github.com/AdaptChat/harmony/pkg/wire"
)

func main() {
	addr := flag.String("addr", ":8076", "listen address")
	storeType := flag.String("store-type", "memory", "presence store backend: memory or etcd")
	authType := flag.String("auth-type", "memory", "directory backend: memory or postgres")
	flag.Parse()

	// --- Presence store ---
	//
	// The store backend can also be selected via the HARMONY_STORE_TYPE
	// environment variable (takes precedence over the flag). For etcd, set
	// HARMONY_ETCD_ENDPOINTS to a comma-separated list of endpoints, e.g.:
	//   HARMONY_STORE_TYPE=etcd HARMONY_ETCD_ENDPOINTS=http://localhost:2379
	if envType := os.Getenv("HARMONY_STORE_TYPE"); envType != "" {
		*storeType = envType
	}

	var store presence.Store
	switch *storeType {
	case "memory":
		store = presence.NewMemoryStore()
	case "etcd":
		endpoints := []string{"http://localhost:2379"}
		if envEndpoints := os.Getenv("HARMONY_ETCD_ENDPOINTS"); envEndpoints != "" {
			endpoints = strings.Split(envEndpoints, ",")
		}
		etcdStore, err := presence.NewEtcdStore(endpoints)
		if err != nil {
			log.Fatalf("connect to etcd %v: %v", endpoints, err)
		}
		log.Printf("connected to etcd at %v", endpoints)
		store = etcdStore
	default:
		log.Fatalf("unsupported store type: %s (supported: memory, etcd)", *storeType)
	}

	// Sessions orphaned by a previous crash must not linger.
	if err := store.Reset(context.Background()); err != nil {
		log.Fatalf("reset presence state: %v", err)
	}

	// --- Directory ---
	if envType := os.Getenv("HARMONY_AUTH_TYPE"); envType != "" {
		*authType = envType
	}

	var dir session.Directory
	switch *authType {
	case "memory":
		mem := session.NewMemoryDirectory()
		// Dev convenience: HARMONY_DEV_TOKEN seeds a single user so a
		// gateway without a database can still be probed.
		if tok := os.Getenv("HARMONY_DEV_TOKEN"); tok != "" {
			mem.AddUser(wire.User{ID: 1, Username: "dev"}, tok)
			log.Printf("seeded dev user from HARMONY_DEV_TOKEN")
		}
		dir = mem
	case "postgres":
		dsn := os.Getenv("HARMONY_DATABASE_URL")
		if dsn == "" {
			log.Fatalf("HARMONY_DATABASE_URL is required for -auth-type=postgres")
		}
		pg, err := session.OpenPostgres(context.Background(), dsn)
		if err != nil {
			log.Fatalf("connect to postgres: %v", err)
		}
		defer pg.Close()
		log.Printf("connected to postgres")
		dir = pg
	default:
		log.Fatalf("unsupported auth type: %s (supported: memory, postgres)", *authType)
	}

	// --- Gateway ---
	metrics := observability.NewMetrics()
	hub := events.NewHub()
	gw := gateway.New(dir, store, hub, gateway.WithMetrics(metrics))

	mux := http.NewServeMux()
	mux.Handle("/", gw)
	mux.HandleFunc("/metrics", metrics.PrometheusHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: *addr, Handler: mux}

	// --- Graceful shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutdown signal received")
		gw.Close()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Printf("graceful shutdown error: %v", err)
		}
	}()

	log.Printf("starting harmony-gateway on %s (store=%s auth=%s)", *addr, *storeType, *authType)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
