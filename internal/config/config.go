package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env string // "dev" | "prod"

	// Server
	BindAddr string // zmq endpoint the server binds, e.g. "tcp://*:5555"
	DBPath   string // identity directory, e.g. "./data/facegate.db"

	// Authorization
	RequiredConsecutive int           // frames the same identity must top the tally
	TopK                int           // matches considered per frame
	ThresholdPercent    int           // occurrence ratio the top candidate must hold
	Cooldown            time.Duration // actuator cooldown after an open

	// Protocol
	RecvTimeout            time.Duration
	MaxConsecutiveTimeouts int

	// Edge
	ServerAddr       string // zmq endpoint the edge connects to
	Cam              int    // /dev/video<Cam>
	Virtual          bool   // card-less debug mode: identities fed manually
	CardMaxAge       time.Duration
	MaxInFlightSends int
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("FACEGATE_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	return Config{
		Env: env,

		BindAddr: getenvDefault("FACEGATE_BIND_ADDR", "tcp://*:5555"),
		DBPath:   getenvDefault("FACEGATE_DB_PATH", "./data/facegate.db"),

		RequiredConsecutive: getenvInt("FACEGATE_REQUIRED_CONSECUTIVE", 30),
		TopK:                getenvInt("FACEGATE_TOP_K", 100),
		ThresholdPercent:    getenvInt("FACEGATE_THRESHOLD_PERCENT", 50),
		Cooldown:            time.Duration(getenvInt("FACEGATE_COOLDOWN_SECONDS", 3)) * time.Second,

		RecvTimeout:            time.Duration(getenvInt("FACEGATE_RECV_TIMEOUT_MS", 1000)) * time.Millisecond,
		MaxConsecutiveTimeouts: getenvInt("FACEGATE_MAX_CONSECUTIVE_TIMEOUTS", 100),

		ServerAddr:       getenvDefault("FACEGATE_SERVER_ADDR", "tcp://localhost:5555"),
		Cam:              getenvInt("FACEGATE_CAM", 0),
		Virtual:          getenvBool("FACEGATE_VIRTUAL"),
		CardMaxAge:       time.Duration(getenvInt("FACEGATE_CARD_MAX_AGE_MS", 1000)) * time.Millisecond,
		MaxInFlightSends: getenvInt("FACEGATE_MAX_INFLIGHT_SENDS", 4),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvBool(key string) bool {
	v := os.Getenv(key)
	return strings.EqualFold(v, "true") || v == "1"
}
