package main

import (
	"log"

	"github.com/ishiev/rtiles/internal/app"
	"github.com/ishiev/rtiles/pkg/config"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app.Run(cfg)
}
