// Command mrrd-demo writes a synthetic MR raw dataset: a square phantom,
// its k-space, one acquisition per k-space line and the XML experiment
// header.
//
// It takes no arguments. Settings are read from mrrd-demo.yaml in the
// working directory when present.
package main

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-mrrd/internal/config"
	"github.com/robert-malhotra/go-mrrd/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.FileName)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logging.Sync(log)

	return demo(cfg, log)
}
