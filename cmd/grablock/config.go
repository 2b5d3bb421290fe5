package main

import (
	"context"
	"fmt"

	"grablock/internal/config"
)

func runConfig(_ context.Context, e *env, args []string) error {
	var (
		path  string
		write string
	)
	fs := newFlagSet(e, "config", "config [--config path] [--write path]")
	fs.StringVarP(&path, "config", "c", "", "configuration file to load (default: search $XDG_CONFIG_HOME/grablock)")
	fs.StringVarP(&write, "write", "w", "", "write the effective configuration to this file (.toml, .json or .yaml)")
	if help, err := parseFlags(fs, args); help || err != nil {
		return err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if write != "" {
		if err := config.SaveConfig(cfg, write); err != nil {
			return err
		}
		fmt.Fprintf(e.stderr, "configuration written to %s\n", write)
		return nil
	}

	data, err := cfg.EncodeTOML()
	if err != nil {
		return err
	}
	_, err = e.stdout.Write(data)
	return err
}
