package main

import (
	"os"

	"chatstore/internal/app"
)

// @title        Chat Store API
// @version      1.0
// @description  Chat persistence and resumable generation streams.
// @host         localhost:8000
// @BasePath     /api
func main() {
	os.Exit(app.Run())
}
