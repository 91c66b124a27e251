package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"antcolony/internal/model"
	"antcolony/internal/sim"
)

const (
	configFile  = "config.json"
	summaryFile = "summary.json"
	ticksFile   = "ticks.csv"
	agentsFile  = "agents.csv"
)

var artifactFiles = []string{configFile, summaryFile, ticksFile, agentsFile}

// RunArtifacts is everything written to disk for one colony run.
type RunArtifacts struct {
	Config  sim.Config
	Summary model.RunSummary
	Ticks   []sim.TickStats
	Agents  []model.AgentResult
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Summary.ID == "" {
		return "", errors.New("run id is required")
	}
	if baseDir == "" {
		baseDir = "runs"
	}

	runDir := filepath.Join(baseDir, artifacts.Summary.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	if err := writeTicks(filepath.Join(runDir, ticksFile), artifacts.Ticks); err != nil {
		return "", fmt.Errorf("write ticks: %w", err)
	}
	if err := writeAgents(filepath.Join(runDir, agentsFile), artifacts.Agents); err != nil {
		return "", fmt.Errorf("write agents: %w", err)
	}
	return runDir, nil
}

func ReadRunSummary(baseDir, runID string) (model.RunSummary, error) {
	if runID == "" {
		return model.RunSummary{}, errors.New("run id is required")
	}
	if baseDir == "" {
		baseDir = "runs"
	}
	data, err := os.ReadFile(filepath.Join(baseDir, runID, summaryFile))
	if err != nil {
		return model.RunSummary{}, err
	}
	var summary model.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return model.RunSummary{}, fmt.Errorf("decode summary: %w", err)
	}
	return summary, nil
}

// ListRunSummaries reads every run directory under baseDir, newest first.
// A missing baseDir lists nothing. limit <= 0 returns all.
func ListRunSummaries(baseDir string, limit int) ([]model.RunSummary, error) {
	if baseDir == "" {
		baseDir = "runs"
	}
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.RunSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summary, err := ReadRunSummary(baseDir, entry.Name())
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		out = append(out, summary)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReadTicks parses ticks.csv back into per-tick stats.
func ReadTicks(baseDir, runID string) ([]sim.TickStats, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	if baseDir == "" {
		baseDir = "runs"
	}
	file, err := os.Open(filepath.Join(baseDir, runID, ticksFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ticks: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	out := make([]sim.TickStats, 0, len(records)-1)
	for line, record := range records[1:] {
		if len(record) != 11 {
			return nil, fmt.Errorf("ticks line %d: %d fields", line+2, len(record))
		}
		ints := make([]int, 9)
		for i := range ints {
			v, err := strconv.Atoi(record[i])
			if err != nil {
				return nil, fmt.Errorf("ticks line %d: %w", line+2, err)
			}
			ints[i] = v
		}
		reward, err := strconv.ParseFloat(record[9], 64)
		if err != nil {
			return nil, fmt.Errorf("ticks line %d: %w", line+2, err)
		}
		colony, err := strconv.ParseFloat(record[10], 64)
		if err != nil {
			return nil, fmt.Errorf("ticks line %d: %w", line+2, err)
		}
		out = append(out, sim.TickStats{
			Tick:           ints[0],
			Active:         ints[1],
			Moved:          ints[2],
			Clamped:        ints[3],
			Bounced:        ints[4],
			Died:           ints[5],
			PickedUp:       ints[6],
			Returned:       ints[7],
			PolicyFailures: ints[8],
			Reward:         reward,
			ColonyFitness:  colony,
		})
	}
	return out, nil
}

// ExportRunArtifacts copies a run directory under outDir and returns the
// destination.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", errors.New("run id is required")
	}
	if baseDir == "" {
		baseDir = "runs"
	}
	if outDir == "" {
		outDir = "exports"
	}

	srcDir := filepath.Join(baseDir, runID)
	if _, err := os.Stat(srcDir); err != nil {
		return "", fmt.Errorf("stat run dir: %w", err)
	}
	dstDir := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	for _, name := range artifactFiles {
		if err := copyFile(filepath.Join(srcDir, name), filepath.Join(dstDir, name)); err != nil {
			return "", fmt.Errorf("copy %s: %w", name, err)
		}
	}
	return dstDir, nil
}

func writeTicks(path string, ticks []sim.TickStats) error {
	header := []string{
		"tick", "active", "moved", "clamped", "bounced", "died",
		"picked_up", "returned", "policy_failures", "reward", "colony_fitness",
	}
	rows := make([][]string, 0, len(ticks))
	for _, t := range ticks {
		rows = append(rows, []string{
			strconv.Itoa(t.Tick),
			strconv.Itoa(t.Active),
			strconv.Itoa(t.Moved),
			strconv.Itoa(t.Clamped),
			strconv.Itoa(t.Bounced),
			strconv.Itoa(t.Died),
			strconv.Itoa(t.PickedUp),
			strconv.Itoa(t.Returned),
			strconv.Itoa(t.PolicyFailures),
			formatFloat(t.Reward),
			formatFloat(t.ColonyFitness),
		})
	}
	return writeCSV(path, header, rows)
}

func writeAgents(path string, agents []model.AgentResult) error {
	header := []string{"id", "fitness", "food_picked_up", "food_returned", "alive", "retired_at", "x", "y"}
	rows := make([][]string, 0, len(agents))
	for _, a := range agents {
		rows = append(rows, []string{
			a.ID,
			formatFloat(a.Fitness),
			strconv.Itoa(a.FoodPickedUp),
			strconv.Itoa(a.FoodReturned),
			strconv.FormatBool(a.Alive),
			strconv.Itoa(a.RetiredAt),
			formatFloat(a.X),
			formatFloat(a.Y),
		})
	}
	return writeCSV(path, header, rows)
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return err
	}
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
