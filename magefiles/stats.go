//go:build mage

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/magefile/mage/sh"
)

const modulePrefix = "github.com/mesh-intelligence/nutrihub/"

// pkgStats holds the line counts of one package. Blank and comment-only
// lines are not counted.
type pkgStats struct {
	path  string
	code  int
	tests int
}

func (s pkgStats) ratio() string {
	if s.code == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", float64(s.tests)/float64(s.code))
}

// Stats prints code and test lines per package with the test-to-code ratio.
func Stats() error {
	out, err := sh.Output("go", "list", "-e", "-f",
		"{{.ImportPath}}|{{.Dir}}|{{join .GoFiles \",\"}}|{{join .TestGoFiles \",\"}}", "./...")
	if err != nil {
		return fmt.Errorf("listing packages: %w", err)
	}

	var all []pkgStats
	total := pkgStats{path: "total"}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Split(line, "|")
		if len(fields) != 4 || fields[2] == "" {
			continue
		}
		s := pkgStats{path: strings.TrimPrefix(fields[0], modulePrefix)}
		if s.code, err = countCode(fields[1], fields[2]); err != nil {
			return err
		}
		if s.tests, err = countCode(fields[1], fields[3]); err != nil {
			return err
		}
		total.code += s.code
		total.tests += s.tests
		all = append(all, s)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "PACKAGE\tCODE\tTESTS\tRATIO\t")
	for _, s := range append(all, total) {
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", s.path, s.code, s.tests, s.ratio())
	}
	return w.Flush()
}

// countCode sums the code lines of a comma-separated file list in dir.
func countCode(dir, files string) (int, error) {
	if files == "" {
		return 0, nil
	}
	n := 0
	for _, name := range strings.Split(files, ",") {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return 0, err
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line != "" && !strings.HasPrefix(line, "//") {
				n++
			}
		}
		if err := sc.Err(); err != nil {
			return 0, fmt.Errorf("counting %s: %w", name, err)
		}
	}
	return n, nil
}
