package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mkravets/taskboard/internal/app"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found, using environment as is")
	}

	dbPath := os.Getenv("TASKBOARD_DB")
	if dbPath == "" {
		dbPath = "taskboard.db"
	}
	addr := os.Getenv("TASKBOARD_ADDR")
	if addr == "" {
		addr = "localhost:8080"
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	taskboard, err := app.NewTaskboard(dbPath, logger)
	if err != nil {
		log.Fatalf("cant create Taskboard: %v", err)
	}

	log.Fatal(http.ListenAndServe(addr, taskboard))
}
