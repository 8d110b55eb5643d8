package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Dump writes every metric of the default gatherer to path in the text
// exposition format, for node_exporter's textfile collector or inspection.
func Dump(path string) error {
	return DumpFrom(prometheus.DefaultGatherer, path)
}

func DumpFrom(g prometheus.Gatherer, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
