// Command learn serves lesson content and quizzes over HTTP, with a gRPC health endpoint.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/victornm/learn/internal/config"
	"github.com/victornm/learn/internal/server"
)

const envPrefix = "LEARN"

func main() {
	c, err := loadConfig()
	if err != nil {
		log.Fatalf("learn: load config: %v", err)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, os.Interrupt)

	s, err := server.Init(c)
	if err != nil {
		log.Fatalf("learn: init lesson service: %v", err)
	}

	go s.Start()

	sig := <-shutdown
	log.Printf("learn: received %s, shutting down", sig)
	s.Shutdown()
}

// loadConfig reads the file named by CONFIG_PATH over server.DefaultConfig. Variables such as
// LEARN_HTTP_PORT override the file.
func loadConfig() (server.Config, error) {
	c := server.DefaultConfig()

	p := os.Getenv("CONFIG_PATH")
	if p == "" {
		return c, fmt.Errorf("CONFIG_PATH not set")
	}

	if err := config.Load(p, &c, config.WithEnvPrefix(envPrefix)); err != nil {
		return c, fmt.Errorf("load %s: %w", p, err)
	}

	return c, nil
}
