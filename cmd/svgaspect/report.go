package main

import (
	"io"

	"github.com/tdewolff/svgaspect"
	"gopkg.in/yaml.v3"
)

// Report is the machine-readable result of a run.
type Report struct {
	Mode    string        `yaml:"mode"`
	Inputs  []string      `yaml:"inputs"`
	Files   []FileReport  `yaml:"files"`
	Summary SummaryReport `yaml:"summary"`
}

// FileReport is the outcome of a single file.
type FileReport struct {
	Name     string `yaml:"name"`
	Outcome  string `yaml:"outcome"`
	Error    string `yaml:"error,omitempty"`
	InSize   int    `yaml:"in_size,omitempty"`
	OutSize  int    `yaml:"out_size,omitempty"`
	Duration string `yaml:"duration,omitempty"`
}

// SummaryReport counts the outcomes of a run.
type SummaryReport struct {
	Updated int `yaml:"updated"`
	Skipped int `yaml:"already_had"`
	Errors  int `yaml:"errors"`
	Total   int `yaml:"total"`
}

func newReport(mode string, inputs []string, results []svgaspect.Result) Report {
	report := Report{
		Mode:   mode,
		Inputs: inputs,
		Files:  make([]FileReport, 0, len(results)),
	}
	summary := svgaspect.Summary{}
	for _, r := range results {
		file := FileReport{
			Name:    r.Name,
			Outcome: r.Outcome.String(),
			InSize:  r.InSize,
			OutSize: r.OutSize,
		}
		if r.Err != nil {
			file.Error = r.Err.Error()
		}
		if 0 < r.Duration {
			file.Duration = r.Duration.String()
		}
		report.Files = append(report.Files, file)
		summary.Add(r)
	}
	report.Summary = SummaryReport{summary.Updated, summary.Skipped, summary.Errors, summary.Total}
	return report
}

func writeReport(w io.Writer, report Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&report); err != nil {
		return err
	}
	return enc.Close()
}
