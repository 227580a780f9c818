package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	MySQLDSN     string
	RedisURL     string
	JWTSecret    string
	Port         string
	EnableSSL    bool
	SSLCert      string
	SSLKey       string
	S3Region     string
	S3Bucket     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3PublicBase string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		if def == "" {
			log.Fatalf("missing env %s", key)
		}
		return def
	}
	return v
}

func Load() Config {
	ssl, _ := strconv.ParseBool(getenv("ENABLE_SSL", "false"))
	return Config{
		MySQLDSN:     getenv("MYSQL_DSN", "dev:test@tcp(localhost:3306)/community"),
		RedisURL:     getenv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:    getenv("JWT_SECRET", ""),
		Port:         getenv("PORT", "8080"),
		EnableSSL:    ssl,
		SSLCert:      os.Getenv("SSL_CERT"),
		SSLKey:       os.Getenv("SSL_KEY"),
		S3Region:     getenv("S3_REGION", "ap-northeast-2"),
		S3Bucket:     getenv("S3_BUCKET", "community-uploads"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3AccessKey:  os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:  os.Getenv("S3_SECRET_KEY"),
		S3PublicBase: os.Getenv("S3_PUBLIC_BASE"),
	}
}
