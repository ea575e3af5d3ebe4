// Command server exposes enrollment and identification over HTTP.
package main

import (
	"os"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"songprint/pkg/logger"
	"songprint/pkg/songprint"
	"songprint/pkg/songprint/storage"
)

func main() {
	_ = godotenv.Load()
	log := logger.GetLogger()

	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", getEnvOrDefault("SONGPRINT_DB_PATH", storage.DefaultDBFile), "catalog database path")
	tempDir := flag.String("temp", os.TempDir(), "directory for uploaded audio")
	threshold := flag.Float64("threshold", songprint.DefaultMatchScoreThreshold, "minimum score for a confident match")
	flag.Parse()

	service, err := songprint.NewService(
		songprint.WithDBPath(*dbPath),
		songprint.WithMatchThreshold(*threshold),
	)
	if err != nil {
		log.Fatalf("failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Port:      *port,
		DBPath:    *dbPath,
		TempDir:   *tempDir,
		Threshold: *threshold,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
