package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type HTTPServer struct {
	Host string
	Port string
}

type Rooms struct {
	// How long an empty room survives before eviction.
	EvictionGrace time.Duration
}

type Config struct {
	HTTP  HTTPServer
	Rooms Rooms
}

const logtag = "[config]"

func Load() *Config {
	configPath := flag.String("config", "", "path env file")
	flag.Parse()

	if *configPath != "" {
		if err := godotenv.Load(*configPath); err != nil {
			log.Fatalf("%s err loading env from file : %v", logtag, err)
		}
		log.Printf("%s using env from : %s", logtag, *configPath)
	} else {
		log.Printf("%s using env from .env", logtag)
		_ = godotenv.Load()
	}

	cfg := &Config{
		HTTP:  *newHTTP(),
		Rooms: *newRooms(),
	}

	log.Printf("%s backend config : %+v\n", logtag, cfg)
	return cfg
}

func newHTTP() *HTTPServer {
	return &HTTPServer{
		Port: getenv("HTTP_PORT", "8080"),
		Host: getenv("HTTP_HOST", "localhost"),
	}
}

func newRooms() *Rooms {
	raw := getenv("ROOM_EVICTION_GRACE", "5m")
	grace, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("%s bad ROOM_EVICTION_GRACE %q, using 5m", logtag, raw)
		grace = 5 * time.Minute
	}
	return &Rooms{
		EvictionGrace: grace,
	}
}

func getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("%s %s undefined. Using default value %s\n", logtag, key, defaultValue)
		return defaultValue
	}
	fmt.Printf("%s %s = %s\n", logtag, key, val)
	return val
}
