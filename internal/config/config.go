package config

import (
	"encoding/base64"
	"fmt"
	"time"
)

const (
	DefaultKeepAliveInterval = 15 * time.Second
	DefaultMaxUploadBytes    = 20 << 20
)

type Config struct {
	ServerAddr        string
	DatabaseDSN       string
	SessionKey        []byte
	FileURLSecret     []byte
	DataDir           string
	AllowedOrigins    []string
	KeepAliveInterval time.Duration
	MaxUploadBytes    int64
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64SessionKey, fileURLSecret, dataDir string, allowedOrigins []string, keepAliveInterval time.Duration, maxUploadBytes int64) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}
	if base64SessionKey == "" {
		return nil, fmt.Errorf("session signing secret cannot be empty")
	}
	if fileURLSecret == "" {
		return nil, fmt.Errorf("file URL secret cannot be empty")
	}
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	// Decode the base64 encoded signing secret
	sessionKey, err := decodeSigningSecret(base64SessionKey)
	if err != nil {
		return nil, fmt.Errorf("decode session signing secret: %w", err)
	}

	if keepAliveInterval <= 0 {
		keepAliveInterval = DefaultKeepAliveInterval
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	return &Config{
		ServerAddr:        serverAddr,
		DatabaseDSN:       databaseDSN,
		SessionKey:        sessionKey,
		FileURLSecret:     []byte(fileURLSecret),
		DataDir:           dataDir,
		AllowedOrigins:    allowedOrigins,
		KeepAliveInterval: keepAliveInterval,
		MaxUploadBytes:    maxUploadBytes,
	}, nil
}
