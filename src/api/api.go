package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Gunhee-b/community-web-sub001/src/api/config"
	"github.com/Gunhee-b/community-web-sub001/src/api/data"
	"github.com/Gunhee-b/community-web-sub001/src/api/realtime"
	"github.com/Gunhee-b/community-web-sub001/src/api/storage"
	"github.com/Gunhee-b/community-web-sub001/src/api/webserver"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := data.MustMySQL(cfg.MySQLDSN)
	if err := data.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := data.LoadSettings(db); err != nil {
		log.Printf("Failed to load settings: %v", err)
	}
	rdb := data.MustRedis(cfg.RedisURL)

	ctx, cancel := context.WithCancel(context.Background())

	uploader, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	hub := realtime.NewHub()
	go hub.Run(ctx, rdb)
	go data.NotifierService(ctx, db, rdb)
	go data.TypingSweeperService(ctx, db, 30*time.Second)
	go data.VotingService(ctx, db, time.Minute)
	go data.QuestionService(ctx, db, time.Minute)

	router := webserver.New(cfg, db, rdb, hub, uploader)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		var err error
		if cfg.EnableSSL && cfg.SSLCert != "" && cfg.SSLKey != "" {
			tlsReloader, rerr := webserver.NewTLSReloader(cfg.SSLCert, cfg.SSLKey)
			if rerr != nil {
				log.Printf("Failed to create TLS reloader: %v. Falling back to HTTP", rerr)
				err = httpSrv.ListenAndServe()
			} else {
				httpSrv.TLSConfig = tlsReloader.GetConfig()
				err = httpSrv.ListenAndServeTLS("", "")
			}
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("http: %v", err)
		}
	}()

	log.Printf("Community API listening on %s (SSL: %v)", cfg.Port, cfg.EnableSSL && cfg.SSLCert != "")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	shutCtx, cancelShut := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShut()
	_ = httpSrv.Shutdown(shutCtx)
}
