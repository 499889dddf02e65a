package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/quadgen-ml/quadgen/internal/codegen"
	"github.com/quadgen-ml/quadgen/internal/container"
	"github.com/quadgen-ml/quadgen/internal/policy"
	"github.com/quadgen-ml/quadgen/internal/refpass"
)

// Convert converts one model directory: the parameter container is copied
// to outDir for provenance, its tensors normalized through the policy
// adapter, and the generated C source written next to the copy. Any failure
// aborts this model; the C file is only created once the full text exists.
func Convert(modelDir, outDir string, cfg Config) error {
	containerSrc := filepath.Join(modelDir, cfg.ContainerName)

	r, err := container.Open(containerSrc)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.Close() // Best effort close
	}()

	tensors, err := r.LoadAll()
	if err != nil {
		return err
	}
	ordered, err := policy.FromTensors(tensors)
	if err != nil {
		return err
	}

	opts := codegen.DefaultOptions()
	opts.HasTrailingStdLayer = cfg.HasTrailingStdLayer
	opts.FuncName = cfg.FuncName
	src, err := codegen.Generate(ordered, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := copyFile(containerSrc, filepath.Join(outDir, cfg.ContainerName)); err != nil {
		return err
	}
	if err := src.WriteFile(filepath.Join(outDir, cfg.OutputName)); err != nil {
		return err
	}

	klog.V(1).Infof("Generated %s: %d layers, %d -> %d",
		filepath.Join(outDir, cfg.OutputName), src.Spec.NumLayers(), src.Spec.InputDim(), src.Spec.OutputDim())

	if cfg.Check {
		if err := logZeroStateCheck(src.Spec); err != nil {
			return err
		}
	}
	return nil
}

// logZeroStateCheck evaluates the reference pass on a zero state vector and
// logs the control outputs, a quick plausibility check on converted models.
func logZeroStateCheck(spec *codegen.NetworkSpec) error {
	net := refpass.FromSpec(spec)
	out, err := net.Evaluate(make([]float64, spec.InputDim()))
	if err != nil {
		return fmt.Errorf("reference check failed: %w", err)
	}
	klog.Infof("Zero-state control outputs: %v", out)
	return nil
}

// MirrorPath joins the last depth path elements of modelDir onto outRoot,
// reproducing the experiment layout under the output root.
func MirrorPath(modelDir, outRoot string, depth int) string {
	clean := filepath.ToSlash(filepath.Clean(modelDir))
	parts := strings.Split(clean, "/")

	var elems []string
	for _, p := range parts {
		if p != "" && p != "." {
			elems = append(elems, p)
		}
	}
	if len(elems) > depth {
		elems = elems[len(elems)-depth:]
	}
	return filepath.Join(append([]string{outRoot}, elems...)...)
}

// Run converts every selected model directory, mirroring each under
// outRoot. Failed models are logged and skipped; Run reports how many
// failed.
func Run(models []string, outRoot string, cfg Config) error {
	if len(models) == 0 {
		return fmt.Errorf("no model directories selected")
	}

	bar := progressbar.Default(int64(len(models)), "converting")
	failed := 0
	for _, modelDir := range models {
		outDir := MirrorPath(modelDir, outRoot, cfg.SuffixDepth)
		if err := Convert(modelDir, outDir, cfg); err != nil {
			klog.Errorf("Conversion of %s failed: %v", modelDir, err)
			failed++
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	if failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", failed, len(models))
	}
	return nil
}

// copyFile copies the parameter container byte-for-byte.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		_ = in.Close() // Best effort close
	}()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer func() {
		_ = out.Close() // Best effort close
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy container: %w", err)
	}
	return out.Sync()
}
