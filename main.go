package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"faktur/pkg/gate"
	"faktur/pkg/mailer"
	"faktur/pkg/store"
	"faktur/pkg/view"
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	cfg := loadConfig()

	var st store.Store
	if cfg.DBDSN != "" {
		st = store.NewGorm(initDB(cfg.DBDSN), cfg.BaseURL)
	} else {
		log.Println("DB_DSN not set; using the in-memory store (data is not persisted)")
		st = store.NewMemory(cfg.BaseURL)
	}

	render, err := view.New(cfg.TemplatesDir)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.WatchTemplates {
		stop, err := render.Watch()
		if err != nil {
			log.Printf("template watch disabled: %v", err)
		} else {
			defer stop()
		}
	}

	a := &app{
		cfg:    cfg,
		store:  st,
		mail:   mailer.NewSMTP(cfg.SMTP),
		render: render,
		gate:   gate.New([]byte(cfg.ViewSecret), cfg.ViewTokenTTL),
	}

	r := gin.Default()
	a.setupRoutes(r)

	r.Run(cfg.Addr)
}
