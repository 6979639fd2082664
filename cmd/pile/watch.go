package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pilelang/pile/pkg/pile/config"
	"github.com/pilelang/pile/pkg/pile/pile"
)

// watchCommand handles the 'pile watch <file>' subcommand: run the
// file, then re-run it whenever a .pile file in its directory (or any
// import search path) changes.
func watchCommand(args []string) {
	watchFlags := flag.NewFlagSet("watch", flag.ExitOnError)
	includeFlag := watchFlags.String("I", "", "Comma-separated extra import search paths")
	configFlag := watchFlags.String("config", "", "Path to pile.yml")

	watchFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, `pile watch - re-run a pile script on every change

Usage:
  pile watch [options] <file>

Options:
  -I <paths>       Comma-separated extra import search paths
  --config <file>  Use a specific pile.yml
`)
	}

	if err := watchFlags.Parse(args); err != nil {
		os.Exit(1)
	}
	if watchFlags.NArg() != 1 {
		watchFlags.Usage()
		os.Exit(2)
	}
	filename := watchFlags.Arg(0)

	cfg, err := config.Load(*configFlag, os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}

	paths := append([]string{}, cfg.SearchPaths...)
	for _, p := range strings.Split(*includeFlag, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	opts := &pile.Options{SearchPaths: paths, MaxDepth: cfg.MaxDepth}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(2)
	}
	defer watcher.Close()

	// Watch directories, not files: editors replace files on save,
	// which drops a file-level watch.
	dirs := map[string]bool{filepath.Dir(filename): true}
	for _, p := range paths {
		dirs[p] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error watching %s: %s\n", dir, err)
			os.Exit(2)
		}
	}

	runOnce(filename, opts)
	fmt.Fprintf(os.Stderr, "\n[watching %s — Ctrl+C to stop]\n", filename)

	// Editors fire several events per save; coalesce them.
	var timer *time.Timer
	rerun := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Rename) {
				continue
			}
			if filepath.Ext(event.Name) != ".pile" {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case rerun <- struct{}{}:
				default:
				}
			})

		case <-rerun:
			runOnce(filename, opts)
			fmt.Fprintf(os.Stderr, "\n[watching %s — Ctrl+C to stop]\n", filename)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "Watch error: %s\n", err)
		}
	}
}

func runOnce(filename string, opts *pile.Options) {
	fmt.Fprintf(os.Stderr, "[%s] running %s\n", time.Now().Format("15:04:05"), filename)
	status := runFile(filename, opts)
	if status != 0 {
		fmt.Fprintf(os.Stderr, "[exit status %d]\n", status)
	}
}
