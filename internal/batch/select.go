package batch

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"k8s.io/klog/v2"
)

// SelectManifest reads one model directory per line from a manifest file,
// relative to root. Blank lines and #-comments are skipped; a listed
// directory that does not exist is an error.
func SelectManifest(root, manifestPath string) ([]string, error) {
	file, err := os.Open(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	var dirs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		dir := filepath.Join(root, line)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return nil, fmt.Errorf("manifest entry %q: directory does not exist: %s", line, dir)
		}
		dirs = append(dirs, dir)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return dirs, nil
}

// SelectBestSeed treats each immediate subdirectory of root as one
// experiment holding several seed_* runs, and picks the run with the
// highest recorded metric from each.
func SelectBestSeed(root string, cfg Config) ([]string, error) {
	experiments, err := subdirs(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, experiment := range experiments {
		best, err := bestSeed(experiment, cfg)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", experiment, err)
		}
		dirs = append(dirs, best)
	}
	return dirs, nil
}

// bestSeed scans the seed_* children of an experiment directory and returns
// the one whose progress.csv records the highest final metric. Seeds with a
// missing or empty progress file are skipped with a warning.
func bestSeed(experiment string, cfg Config) (string, error) {
	seeds, err := subdirs(experiment)
	if err != nil {
		return "", err
	}

	best := ""
	bestMetric := 0.0
	for _, seed := range seeds {
		if !strings.HasPrefix(filepath.Base(seed), "seed_") {
			return "", fmt.Errorf("unexpected non-seed directory %s", seed)
		}
		metric, err := finalMetric(filepath.Join(seed, "progress.csv"), cfg.MetricColumn)
		if err != nil {
			klog.Warningf("Skipping seed %s: %v", seed, err)
			continue
		}
		if best == "" || metric > bestMetric {
			best = seed
			bestMetric = metric
		}
	}
	if best == "" {
		return "", fmt.Errorf("no seed with a usable progress.csv")
	}
	klog.V(1).Infof("Best seed for %s: %s (%s = %g)", experiment, filepath.Base(best), cfg.MetricColumn, bestMetric)
	return best, nil
}

// finalMetric returns the value of the named column in the last data row of
// a progress CSV.
func finalMetric(path, column string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open progress file: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to parse progress file: %w", err)
	}
	if len(records) < 2 {
		return 0, fmt.Errorf("progress file has no data rows")
	}

	col := -1
	for i, name := range records[0] {
		if name == column {
			col = i
			break
		}
	}
	if col == -1 {
		return 0, fmt.Errorf("progress file has no %q column", column)
	}

	last := records[len(records)-1]
	value, err := strconv.ParseFloat(last[col], 64)
	if err != nil {
		return 0, fmt.Errorf("bad metric value %q: %w", last[col], err)
	}
	return value, nil
}

// SelectWalk descends from root and collects every directory that holds a
// parameter container. Directories that contain one are not descended
// further.
func SelectWalk(root string, cfg Config) ([]string, error) {
	var dirs []string
	var walk func(dir string) error
	walk = func(dir string) error {
		children, err := subdirs(dir)
		if err != nil {
			return err
		}
		for _, child := range children {
			if _, err := os.Stat(filepath.Join(child, cfg.ContainerName)); err == nil {
				dirs = append(dirs, child)
				continue
			}
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return dirs, nil
}

// subdirs returns the immediate subdirectories of dir, sorted by name.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
