package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"go.uber.org/zap"

	"github.com/vegasq/medframe/internal/config"
	"github.com/vegasq/medframe/table"
)

var findings = []string{"COVID-19", "Pneumonia", "No Finding"}

// writeMetadata writes 90 distinct patients followed by 10 exact copies of
// rows 10-19. The first five patients have no age.
func writeMetadata(t *testing.T, dir string) string {
	t.Helper()
	start := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	line := func(i int) string {
		sex := "F"
		if i%2 == 0 {
			sex = "M"
		}
		age := ""
		if i >= 5 {
			age = fmt.Sprint(20 + i%60)
		}
		view := "AP"
		if i%4 == 0 {
			view = "PA"
		}
		date := start.AddDate(0, 0, i).Format(table.DateLayout)
		return fmt.Sprintf("%d,%s,%s,%s,%s,%s\n", i+1, sex, age, findings[i%3], view, date)
	}

	var b strings.Builder
	b.WriteString("patientid,sex,age,finding,view,date\n")
	for i := 0; i < 90; i++ {
		b.WriteString(line(i))
	}
	for i := 10; i < 20; i++ {
		b.WriteString(line(i))
	}

	path := filepath.Join(dir, "metadata.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("failed to write metadata: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvLogLevel, config.EnvLogFormat, config.EnvOutputDir, config.EnvDPI,
		config.EnvMetricsFile, config.EnvPushgateway, config.EnvTable,
	} {
		t.Setenv(k, "")
	}
}

func testPipeline(input string) config.Pipeline {
	return config.Pipeline{
		Job:      "test",
		Input:    config.Input{Path: input},
		Clean:    config.Clean{RemoveDuplicates: true},
		Missing:  config.Missing{Strategy: "median"},
		AgeGroup: config.AgeGroup{Output: "age_group"},
		SQL: config.SQL{
			Standard: true,
			Queries: []config.NamedQuery{{
				Name: "by_band",
				SQL:  "SELECT age_group, COUNT(*) AS n FROM patients GROUP BY age_group ORDER BY age_group",
			}},
		},
		Charts: []config.ChartSpec{
			{Kind: "bar", Query: "diagnosis_summary", X: "finding", Y: "patient_count", Output: "diagnoses.png"},
			{Kind: "pie", Query: "by_band", Labels: "age_group", Values: "n", Output: "bands.svg"},
			{Kind: "heatmap", Query: "gender_diagnosis", Pivot: &config.PivotSpec{Index: "finding", Columns: "sex", Values: "count"}, Output: "nested/gender.png"},
			{Kind: "line", Query: "temporal_trends", X: "month", Y: "count", Hue: "finding", Output: "trends.svg"},
		},
	}
}

func TestRunner_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := writeMetadata(t, dir)
	outDir := filepath.Join(dir, "results")

	p := testPipeline(input)
	if errs := config.Errors(config.ValidatePipeline(p)); len(errs) != 0 {
		t.Fatalf("ValidatePipeline() errors = %v", errs)
	}

	var report bytes.Buffer
	settings := config.Settings{LogLevel: "info", LogFormat: "console", OutputDir: outDir, DPI: 72, Table: "patients"}
	out, err := newRunner(settings, zap.NewNop(), &report).run(context.Background(), p, "")
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if out.Raw.Len() != 100 {
		t.Errorf("raw rows = %d, want 100", out.Raw.Len())
	}
	if out.RawQuality.DuplicateRows != 10 || out.RawQuality.MissingValues["age"] != 5 {
		t.Errorf("raw quality = %+v", out.RawQuality)
	}
	if out.Clean.Duplicates != 10 {
		t.Errorf("duplicates removed = %d, want 10", out.Clean.Duplicates)
	}
	if out.Missing.Imputed["age"] != 5 {
		t.Errorf("imputed = %v, want 5 ages", out.Missing.Imputed)
	}
	if out.Quality.TotalRecords != 90 || out.Quality.CompletenessPercentage != 100 || out.Quality.DuplicateRows != 0 {
		t.Errorf("quality = %+v", out.Quality)
	}
	if out.Final.Width() != 7 {
		t.Errorf("final columns = %v", out.Final.Schema().Names())
	}
	if n, _ := out.Final.NullCount("age_group"); n != 0 {
		t.Errorf("age_group nulls = %d, want 0", n)
	}

	wantOrder := []string{"diagnosis_summary", "gender_diagnosis", "top_ages_per_diagnosis", "temporal_trends", "view_diagnosis", "by_band"}
	if strings.Join(out.Order, ",") != strings.Join(wantOrder, ",") {
		t.Errorf("Order = %v, want %v", out.Order, wantOrder)
	}

	summary := out.Results["diagnosis_summary"]
	if summary.Len() != 3 {
		t.Fatalf("diagnosis_summary rows = %d, want 3", summary.Len())
	}
	counts, err := summary.Floats("patient_count")
	if err != nil {
		t.Fatalf("Floats() error = %v", err)
	}
	for i, c := range counts {
		if c != 30 {
			t.Errorf("patient_count[%d] = %v, want 30", i, c)
		}
	}

	bands, err := out.Results["by_band"].Floats("n")
	if err != nil {
		t.Fatalf("Floats() error = %v", err)
	}
	total := 0.0
	for _, n := range bands {
		total += n
	}
	if len(bands) != 3 || total != 90 {
		t.Errorf("by_band = %v, want 3 bands totalling 90", bands)
	}

	if len(out.Charts) != 4 {
		t.Fatalf("charts = %v, want 4", out.Charts)
	}
	for _, name := range []string{"diagnoses.png", "bands.svg", "nested/gender.png", "trends.svg"} {
		info, err := os.Stat(filepath.Join(outDir, name))
		if err != nil {
			t.Errorf("chart %s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("chart %s is empty", name)
		}
	}

	for _, want := range []string{"Loaded 100 rows", "10 duplicates", "DATA QUALITY ASSESSMENT REPORT", "Chart saved to:"} {
		if !strings.Contains(report.String(), want) {
			t.Errorf("report missing %q:\n%s", want, report.String())
		}
	}
}

func TestRunner_Errors(t *testing.T) {
	dir := t.TempDir()
	input := writeMetadata(t, dir)
	settings := config.Settings{OutputDir: dir, DPI: 72, Table: "patients"}
	r := newRunner(settings, nil, nil)

	cases := []struct {
		name   string
		mutate func(*config.Pipeline)
		want   string
	}{
		{"missing input", func(p *config.Pipeline) { p.Input.Path = filepath.Join(dir, "nope.csv") }, "load:"},
		{"unknown age column", func(p *config.Pipeline) { p.AgeGroup.Column = "years" }, "age_group:"},
		{"bad sql", func(p *config.Pipeline) { p.SQL.Queries[0].SQL = "SELEC nothing" }, "sql_by_band:"},
		{"chart column", func(p *config.Pipeline) { p.Charts[0].Y = "nope" }, "charts[0]:"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			p := testPipeline(input)
			p.SQL.Queries = append([]config.NamedQuery(nil), p.SQL.Queries...)
			p.Charts = append([]config.ChartSpec(nil), p.Charts...)
			tt.mutate(&p)
			_, err := r.run(context.Background(), p, "")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("run() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRun_AdhocQuery(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeMetadata(t, dir)
	metricsFile := filepath.Join(dir, "medframe.prom")
	t.Setenv(config.EnvMetricsFile, metricsFile)

	var stdout, stderr bytes.Buffer
	args := []string{"-f", "csv", "-q", "SELECT finding, COUNT(*) AS n FROM patients GROUP BY finding ORDER BY finding", input}
	if err := run(context.Background(), args, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v\nstderr: %s", err, stderr.String())
	}

	want := "finding,n\nCOVID-19,30\nNo Finding,30\nPneumonia,30\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}

	data, err := os.ReadFile(metricsFile)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{`medframe_step_total{status="success",step="load"} 1`, `medframe_rows_total{kind="duplicates"} 10`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestRun_Config(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	input := writeMetadata(t, dir)
	t.Setenv(config.EnvOutputDir, filepath.Join(dir, "out"))
	t.Setenv(config.EnvDPI, "72")

	pipeline := `{
  "job": "covid",
  "input": {"path": "ignored.csv"},
  "clean": {"remove_duplicates": true},
  "missing": {"strategy": "drop"},
  "sql": {"queries": [{"name": "views", "sql": "SELECT \"view\", COUNT(*) AS n FROM patients GROUP BY \"view\" ORDER BY \"view\""}]},
  "charts": [{"kind": "bar", "query": "views", "x": "view", "y": "n", "output": "views.png"}]
}`
	configPath := filepath.Join(dir, "pipeline.json")
	if err := os.WriteFile(configPath, []byte(pipeline), 0o644); err != nil {
		t.Fatalf("failed to write pipeline: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-config", configPath, "-f", "jsonl", input}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v\nstderr: %s", err, stderr.String())
	}

	// 85 patients keep an age after the drop; every fourth patient is PA.
	want := "{\"view\":\"AP\",\"n\":64}\n{\"view\":\"PA\",\"n\":21}\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "views.png")); err != nil {
		t.Errorf("chart not written: %v", err)
	}
	if !strings.Contains(stderr.String(), "views (2 rows)") {
		t.Errorf("stderr missing heading:\n%s", stderr.String())
	}
}

func TestRun_InvalidPipeline(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configPath := filepath.Join(dir, "pipeline.json")
	content := `{"input": {"path": "a.csv"}, "charts": [{"kind": "bar", "query": "nope", "x": "a", "y": "b", "output": "x.png"}]}`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write pipeline: %v", err)
	}

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", configPath}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "invalid pipeline") || !strings.Contains(err.Error(), "charts[0].query") {
		t.Errorf("run() error = %v, want invalid pipeline at charts[0].query", err)
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantUsage bool
		wantErr   bool
	}{
		{"input only", []string{"a.csv"}, false, false},
		{"config only", []string{"-config", "p.json"}, false, false},
		{"nothing", []string{}, true, true},
		{"unknown flag", []string{"-nope", "a.csv"}, true, true},
		{"negative limit", []string{"-limit", "-1", "a.csv"}, false, true},
		{"schema with query", []string{"-schema", "-q", "SELECT 1", "a.csv"}, false, true},
		{"two inputs", []string{"a.csv", "b.csv"}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseArgs(tt.args, &stderr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArgs() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, errUsage) != tt.wantUsage {
				t.Errorf("parseArgs() error = %v, wantUsage %v", err, tt.wantUsage)
			}
		})
	}
}

type scanRow struct {
	PatientID int64  `parquet:"patientid"`
	Age       *int64 `parquet:"age,optional"`
	Finding   string `parquet:"finding"`
}

func TestRun_Schema(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "scans.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	w := parquet.NewGenericWriter[scanRow](f)
	if _, err := w.Write([]scanRow{{PatientID: 1, Finding: "COVID-19"}}); err != nil {
		t.Fatalf("failed to write test data: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), []string{"-schema", "-f", "csv", path}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 4 || lines[0] != "name,type,physical_type,logical_type,table_type,required,optional,repeated" {
		t.Fatalf("schema output = %q", stdout.String())
	}
	if !strings.HasPrefix(lines[2], "age,") || !strings.HasSuffix(lines[2], ",false,true,false") {
		t.Errorf("age line = %q", lines[2])
	}

	stdout.Reset()
	input := writeMetadata(t, dir)
	if err := run(context.Background(), []string{"-schema", "-f", "csv", input}, &stdout, &stderr); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "age,int,5\n") || !strings.Contains(stdout.String(), "date,date,0\n") {
		t.Errorf("schema output = %q", stdout.String())
	}
}
