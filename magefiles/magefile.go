//go:build mage

// Package main contains Mage build targets for smart-discovery developer tooling.
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
)

// projectDirs lists the working directories the pipeline expects.
var projectDirs = []string{
	"output",
	"ledger",
	".secrets",
}

const (
	binDir  = "bin"
	binName = "smart-discovery"
	cmdPkg  = "./cmd/smart-discovery"

	// buildTags enables the FTS5 extension the evidence ledger needs.
	buildTags = "sqlite_fts5"

	// convertImage is the document converter image run by the pipeline.
	convertImage = "markitdown:latest"
)

// Init creates the working directories and an example settings file.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	if err := os.Chmod(".secrets", 0o700); err != nil {
		return fmt.Errorf("restricting .secrets: %w", err)
	}

	const settingsFile = "smart-discovery.yaml"
	if _, err := os.Stat(settingsFile); os.IsNotExist(err) {
		if err := os.WriteFile(settingsFile, []byte(exampleSettings), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", settingsFile, err)
		}
		fmt.Println("  ", settingsFile)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const exampleSettings = `notion:
  max_depth: 3
  safe_mode: true
  allowed_pages: []
ai:
  model: ""
convert:
  runtime: auto
  image: markitdown:latest
output:
  dir: output
  formats: [markdown, slides]
ledger:
  dir: ledger
log:
  level: info
server:
  addr: ":8080"
`

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := run("go", "build", "-tags", buildTags, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests with the ledger build tags.
func Test() error {
	return run("go", "test", "-tags", buildTags, "./...")
}

// Check runs vet and the tests.
func Check() error {
	if err := run("go", "vet", "-tags", buildTags, "./..."); err != nil {
		return fmt.Errorf("go vet: %w", err)
	}
	mg.Deps(Test)
	return nil
}

// Image verifies the document converter image is present for docker or
// podman, so PDF and Office sources can be read.
func Image() error {
	for _, bin := range []string{"docker", "podman"} {
		if _, err := exec.LookPath(bin); err != nil {
			continue
		}
		if err := exec.Command(bin, "image", "inspect", convertImage).Run(); err != nil {
			return fmt.Errorf("%s: image %s not found; build or pull it before reading PDF sources", bin, convertImage)
		}
		fmt.Printf("%s: %s present\n", bin, convertImage)
		return nil
	}
	return fmt.Errorf("neither docker nor podman found on PATH")
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// skipDir reports directories excluded from the stats walk.
func skipDir(path string) bool {
	base := filepath.Base(path)
	return path != "." && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == binDir || base == "output")
}

// countGoLines counts non-blank lines in Go files. With testOnly it counts
// only _test.go files, otherwise only non-test files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if strings.TrimSpace(sc.Text()) != "" {
				total++
			}
		}
		return sc.Err()
	})
	return total, err
}

// countDocWords counts words in Markdown and YAML files.
func countDocWords(root string) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".md", ".yaml", ".yml":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
		return nil
	})
	return total, err
}
