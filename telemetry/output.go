package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/sim"
)

// Output file names inside the run directory.
const (
	TrajectoryFile = "trajectory.csv"
	ActionsFile    = "actions.csv"
	PerfFile       = "perf.csv"
	SummaryFile    = "summary.csv"
	ConfigFile     = "config.yaml"
)

// OutputManager handles structured run output with CSV logging.
// A nil *OutputManager discards everything.
type OutputManager struct {
	dir            string
	trajectoryFile *os.File
	actionsFile    *os.File
	perfFile       *os.File

	// Track if headers have been written
	trajectoryHeaderWritten bool
	actionsHeaderWritten    bool
	perfHeaderWritten       bool
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, TrajectoryFile))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", TrajectoryFile, err)
	}
	om.trajectoryFile = f

	f, err = os.Create(filepath.Join(dir, ActionsFile))
	if err != nil {
		om.trajectoryFile.Close()
		return nil, fmt.Errorf("creating %s: %w", ActionsFile, err)
	}
	om.actionsFile = f

	f, err = os.Create(filepath.Join(dir, PerfFile))
	if err != nil {
		om.trajectoryFile.Close()
		om.actionsFile.Close()
		return nil, fmt.Errorf("creating %s: %w", PerfFile, err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the run configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, ConfigFile))
}

// WriteTrajectory appends one row per snapshot to trajectory.csv.
func (om *OutputManager) WriteTrajectory(snaps []sim.Snapshot) error {
	if om == nil || len(snaps) == 0 {
		return nil
	}

	records := make([]TrajectoryRecord, len(snaps))
	for i, s := range snaps {
		records[i] = NewTrajectoryRecord(s)
	}

	if err := writeRecords(om.trajectoryFile, records, &om.trajectoryHeaderWritten); err != nil {
		return fmt.Errorf("writing trajectory: %w", err)
	}
	return nil
}

// WriteActions appends the desired action behind each snapshot to actions.csv.
func (om *OutputManager) WriteActions(snaps []sim.Snapshot) error {
	if om == nil || len(snaps) == 0 {
		return nil
	}

	records := make([]ActionRecord, len(snaps))
	for i, s := range snaps {
		records[i] = NewActionRecord(s)
	}

	if err := writeRecords(om.actionsFile, records, &om.actionsHeaderWritten); err != nil {
		return fmt.Errorf("writing actions: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, tick uint64) error {
	if om == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(tick)}
	if err := writeRecords(om.perfFile, records, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WriteSummaries writes the end-of-run summary table.
func (om *OutputManager) WriteSummaries(summaries []Summary) error {
	if om == nil {
		return nil
	}

	f, err := os.Create(filepath.Join(om.dir, SummaryFile))
	if err != nil {
		return fmt.Errorf("creating %s: %w", SummaryFile, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&summaries, f); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// writeRecords marshals records, with a header only on the first write.
func writeRecords[T any](f *os.File, records []T, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.trajectoryFile, om.actionsFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
