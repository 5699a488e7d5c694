package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	gn "github.com/pbenner/gonetics"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/sameet/EnrichedHeatmap/enrich"
)

const enrichmatrixVersion = "1.0.0"

type Metrics struct {
	Version    string `json:"enrichmatrix_version"`
	Date       string `json:"date"`
	Elapsed    string `json:"elapsed"`
	Prefix     string `json:"prefix"`
	Command    string `json:"command"`
	Rows       int    `json:"rows"`
	Columns    int    `json:"columns"`
	FailedRows int    `json:"failed_smoothing_rows"`
}

func (m *Metrics) Log(op string) {
	resp, err := json.MarshalIndent(m, "", "\t")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	f, err := os.Create(op + "_enrichmatrix.json")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()

	f.WriteString(string(resp))
	f.WriteString("\n")
}

// fileConfig mirrors the command line flags; values from --config are
// used wherever the corresponding flag was left at its default.
type fileConfig struct {
	Signal        string    `toml:"signal"`
	Targets       string    `toml:"targets"`
	Extend        []int     `toml:"extend"`
	Window        float64   `toml:"window"`
	K             int       `toml:"k"`
	Mode          string    `toml:"mode"`
	Score         bool      `toml:"score"`
	Mapping       string    `toml:"mapping"`
	Ratio         float64   `toml:"ratio"`
	IncludeTarget *bool     `toml:"include_target"`
	Smooth        bool      `toml:"smooth"`
	Trim          []float64 `toml:"trim"`
}

func main() {

	startTime := time.Now()

	parser := argparse.NewParser("EnrichMatrix", `EnrichMatrix converts genomic signal intervals (e.g. methylation calls or ChIP-seq coverage) into a fixed-width matrix around a set of target regions such as gene TSS or CpG islands. Each row is one target region, each column a position window upstream, inside or downstream of it. The matrix is written as CSV for downstream heatmap rendering.`)
	signal := parser.String("s", "signal", &argparse.Options{Help: "Signal intervals (bed6, or bed3 for presence/coverage mode)"})
	targets := parser.String("t", "targets", &argparse.Options{Help: "Target regions (bed6 with names, or bed3)"})
	config := parser.String("c", "config", &argparse.Options{Help: "Optional TOML file providing defaults for the other options"})
	extUp := parser.Int("u", "extend-up", &argparse.Options{Help: "Upstream extension in bp", Default: 5000})
	extDown := parser.Int("d", "extend-down", &argparse.Options{Help: "Downstream extension in bp", Default: 5000})
	window := parser.Float("w", "window", &argparse.Options{Help: "Window width: absolute bp, or a fraction of the region width", Default: 100.0})
	k := parser.Int("k", "target-windows", &argparse.Options{Help: "Fixed window count for the target body (used when the extension is zero)", Default: 0})
	mode := parser.String("m", "mode", &argparse.Options{Help: "Mean mode: absolute, weighted, w0 or coverage", Default: "absolute"})
	score := parser.Flag("", "score", &argparse.Options{Help: "Read the signal value from the bed score column instead of counting presence"})
	mapping := parser.String("", "mapping", &argparse.Options{Help: "Signal meta column restricting each signal to the target with the matching name"})
	ratio := parser.Float("r", "ratio", &argparse.Options{Help: "Fraction of the output width devoted to the target body", Default: 1.0 / 3})
	noTarget := parser.Flag("", "no-target", &argparse.Options{Help: "Exclude the target body from the matrix"})
	smooth := parser.Flag("", "smooth", &argparse.Options{Help: "Smooth every matrix row"})
	trim := parser.Float("", "trim", &argparse.Options{Help: "Quantile fraction clipped from both ends of the value distribution", Default: 0.0})
	outprefix := parser.String("o", "prefix", &argparse.Options{Help: "Output prefix for the matrix and metrics files", Default: "sample"})
	version := parser.Flag("v", "version", &argparse.Options{Help: "Print the current EnrichMatrix version"})
	verbose := parser.Flag("", "verbose", &argparse.Options{Help: "Run EnrichMatrix in verbose mode."})
	err := parser.Parse(os.Args)

	// parse flags --------------------------------------------------------------------------------

	if *version == true {
		fmt.Println("EnrichMatrix version:", enrichmatrixVersion)
		os.Exit(0)
	}

	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *config != "" {
		cfg, err := loadConfig(*config)
		if err != nil {
			logrus.Errorf("Error %s", err.Error())
			os.Exit(1)
		}
		if *signal == "" {
			*signal = cfg.Signal
		}
		if *targets == "" {
			*targets = cfg.Targets
		}
		if len(cfg.Extend) > 0 && *extUp == 5000 && *extDown == 5000 {
			*extUp = cfg.Extend[0]
			*extDown = cfg.Extend[len(cfg.Extend)-1]
		}
		if cfg.Window != 0 && *window == 100.0 {
			*window = cfg.Window
		}
		if cfg.K != 0 && *k == 0 {
			*k = cfg.K
		}
		if cfg.Mode != "" && *mode == "absolute" {
			*mode = cfg.Mode
		}
		if cfg.Score {
			*score = true
		}
		if cfg.Mapping != "" && *mapping == "" {
			*mapping = cfg.Mapping
		}
		if cfg.Ratio != 0 && *ratio == 1.0/3 {
			*ratio = cfg.Ratio
		}
		if cfg.IncludeTarget != nil && !*noTarget {
			*noTarget = !*cfg.IncludeTarget
		}
		if cfg.Smooth {
			*smooth = true
		}
		if len(cfg.Trim) > 0 && *trim == 0 {
			*trim = cfg.Trim[0]
		}
	}

	if *signal == "" || *targets == "" {
		fmt.Println(parser.Help(nil))
		os.Exit(1)
	}

	meanMode, err := enrich.ParseMeanMode(*mode)
	if err != nil {
		logrus.Errorf("Error %s", err.Error())
		os.Exit(1)
	}

	// import data --------------------------------------------------------------------------------

	signalRanges, err := importBed(*signal)
	if err != nil {
		logrus.Errorln("Failed to import signal file:", err)
		os.Exit(1)
	}
	targetRanges, err := importBed(*targets)
	if err != nil {
		logrus.Errorln("Failed to import targets file:", err)
		os.Exit(1)
	}
	// bed6 names become the target name column used for row labels and
	// the mapping restriction
	if names, ok := targetRanges.GetMeta("name").([]string); ok {
		targetRanges.AddMeta("names", names)
	}

	if *verbose {
		fmt.Printf("Read %d signal intervals and %d target regions\n",
			signalRanges.Length(), targetRanges.Length())
	}

	opt := enrich.DefaultOptions()
	opt.Extend = [2]int{*extUp, *extDown}
	opt.WindowSize = *window
	opt.TargetWindows = *k
	opt.Mode = meanMode
	opt.MappingColumn = *mapping
	opt.IncludeTarget = !*noTarget
	opt.TargetRatio = *ratio
	opt.Smooth = *smooth
	opt.Trim = [2]float64{*trim, *trim}
	if *score {
		opt.ValueColumn = "score"
	}

	matrix, err := enrich.NormalizeToMatrix(signalRanges, targetRanges, opt)
	if err != nil {
		logrus.Errorf("Error %s", err.Error())
		os.Exit(1)
	}

	if *verbose {
		fmt.Print(matrix.String())
	}

	// write output -------------------------------------------------------------------------------

	outfile := *outprefix + "_matrix.csv"
	if err := exportMatrix(matrix, outfile); err != nil {
		logrus.Errorln(err)
		os.Exit(1)
	}

	metrics := &Metrics{
		Version:    enrichmatrixVersion,
		Date:       time.Now().Format("2006-01-02 3:4:5 PM"),
		Elapsed:    time.Since(startTime).String(),
		Prefix:     *outprefix,
		Command:    strings.Join(os.Args, " "),
		Rows:       matrix.NRows(),
		Columns:    matrix.NCols(),
		FailedRows: len(matrix.FailedRows),
	}

	// log metrics to file
	metrics.Log(*outprefix)
}

func loadConfig(filename string) (*fileConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfg := &fileConfig{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// importBed reads a bed6 file, falling back to bed3 for score-less input.
func importBed(filename string) (gn.GRanges, error) {
	r := gn.GRanges{}
	if err := r.ImportBed6(filename); err == nil {
		return r, nil
	}
	r = gn.GRanges{}
	if err := r.ImportBed3(filename); err != nil {
		return gn.GRanges{}, err
	}
	return r, nil
}

// exportMatrix writes the matrix as CSV, one row per target region with
// the region name in the first column.
func exportMatrix(m *enrich.NormalizedMatrix, filename string) error {
	ss := make([]series.Series, 0, m.NCols()+1)
	ss = append(ss, series.New(m.RowNames, series.String, "region"))
	for j, name := range m.ColNames {
		col := make([]float64, m.NRows())
		for i := range col {
			col[i] = m.Values[i][j]
		}
		ss = append(ss, series.New(col, series.Float, name))
	}
	df := dataframe.New(ss...)
	if df.Err != nil {
		return df.Err
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return df.WriteCSV(f)
}
