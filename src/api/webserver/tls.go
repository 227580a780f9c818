package webserver

import (
	"crypto/tls"
	"log"
	"os"
	"sync"
	"time"
)

// TLSReloader serves the certificate pair from disk and picks up renewals
// without a restart.
type TLSReloader struct {
	certFile string
	keyFile  string
	mu       sync.RWMutex
	cert     *tls.Certificate
	lastMod  time.Time
}

func NewTLSReloader(certFile, keyFile string) (*TLSReloader, error) {
	r := &TLSReloader{certFile: certFile, keyFile: keyFile}
	if err := r.reload(); err != nil {
		return nil, err
	}
	go r.watch()
	return r, nil
}

func (r *TLSReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	var newest time.Time
	for _, f := range []string{r.certFile, r.keyFile} {
		if info, err := os.Stat(f); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}

	r.mu.Lock()
	r.cert = &cert
	r.lastMod = newest
	r.mu.Unlock()
	log.Printf("tls: certificates loaded")
	return nil
}

func (r *TLSReloader) watch() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		changed := false
		for _, f := range []string{r.certFile, r.keyFile} {
			info, err := os.Stat(f)
			if err != nil {
				log.Printf("tls: stat %s: %v", f, err)
				continue
			}
			r.mu.RLock()
			if info.ModTime().After(r.lastMod) {
				changed = true
			}
			r.mu.RUnlock()
		}
		if changed {
			if err := r.reload(); err != nil {
				log.Printf("tls: reload failed: %v", err)
			}
		}
	}
}

func (r *TLSReloader) GetConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			r.mu.RLock()
			defer r.mu.RUnlock()
			return r.cert, nil
		},
	}
}
