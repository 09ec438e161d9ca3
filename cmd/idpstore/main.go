/*
 * Copyright © 2025 Angryss Software Inc., All rights reserved.
 */

// Command idpstore is a small admin tool for the metadata store: it prints
// version information, validates a table configuration file, and checks
// connectivity against the configured table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/angryss/idpstore"
	"github.com/angryss/idpstore/config"
	"github.com/angryss/idpstore/keycodec"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	configPath  = flag.String("config", "", "Path to a YAML table configuration file")
	checkFlag   = flag.Bool("check", false, "Open the store and probe the table")
	verbose     = flag.Bool("verbose", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *versionFlag || *vFlag {
		info := idpstore.GetVersionInfo()
		fmt.Printf("idpstore version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("configuration ok: table %q, region %q, %d indexes\n",
		cfg.TableName, cfg.Region, len(cfg.Indexes))

	if !*checkFlag {
		return
	}
	if err := probe(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("table reachable")
}

func loadConfig() (config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	cfg := config.FromEnv()
	return cfg, cfg.Validate()
}

// probe reads a key that cannot exist. Success proves credentials, endpoint
// and table name without touching stored data.
func probe(cfg config.Config) error {
	log := zap.NewNop()
	if *verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := idpstore.Open(ctx, idpstore.Options{Config: &cfg, Logger: log})
	if err != nil {
		return err
	}
	_, err = store.Gateway().Exists(ctx, keycodec.TypeStack, uuid.NewString())
	return err
}
