// Package main provides the quadgen CLI: conversion of trained control
// policies into dependency-free C evaluation routines for firmware builds.
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog/v2"

	"github.com/quadgen-ml/quadgen/internal/batch"
	"github.com/quadgen-ml/quadgen/internal/container"
)

const version = "v0.1.0"

func usage() {
	fmt.Println("quadgen - neural network policy to C code converter")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  quadgen [flags] convert <model_dir> <out_dir>")
	fmt.Println("  quadgen [flags] manifest -manifest <file> <root> <out_root>")
	fmt.Println("  quadgen [flags] best-seed <root> <out_root>")
	fmt.Println("  quadgen [flags] walk <root> <out_root>")
	fmt.Println("  quadgen pack <weights.json> <container>")
	fmt.Println("  quadgen version")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	configPath := flag.String("config", "", "optional YAML config file")
	manifestPath := flag.String("manifest", "", "model list for the manifest command")
	check := flag.Bool("check", false, "log reference control outputs for a zero state vector")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	if args[0] == "version" {
		fmt.Printf("quadgen %s\n", version)
		return
	}

	cfg := batch.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = batch.LoadConfig(*configPath)
		if err != nil {
			klog.Exitf("Loading config: %v", err)
		}
	}
	cfg.Check = cfg.Check || *check

	if err := run(args[0], args[1:], cfg, *manifestPath); err != nil {
		klog.Exitf("%v", err)
	}
}

func run(cmd string, args []string, cfg batch.Config, manifestPath string) error {
	switch cmd {
	case "convert":
		if len(args) != 2 {
			return fmt.Errorf("convert needs <model_dir> <out_dir>")
		}
		return batch.Convert(args[0], args[1], cfg)

	case "manifest":
		if len(args) != 2 {
			return fmt.Errorf("manifest needs <root> <out_root>")
		}
		if manifestPath == "" {
			return fmt.Errorf("manifest command needs -manifest <file>")
		}
		models, err := batch.SelectManifest(args[0], manifestPath)
		if err != nil {
			return err
		}
		return batch.Run(models, args[1], cfg)

	case "best-seed":
		if len(args) != 2 {
			return fmt.Errorf("best-seed needs <root> <out_root>")
		}
		models, err := batch.SelectBestSeed(args[0], cfg)
		if err != nil {
			return err
		}
		return batch.Run(models, args[1], cfg)

	case "walk":
		if len(args) != 2 {
			return fmt.Errorf("walk needs <root> <out_root>")
		}
		models, err := batch.SelectWalk(args[0], cfg)
		if err != nil {
			return err
		}
		return batch.Run(models, args[1], cfg)

	case "pack":
		if len(args) != 2 {
			return fmt.Errorf("pack needs <weights.json> <container>")
		}
		return container.Pack(args[0], args[1])

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
