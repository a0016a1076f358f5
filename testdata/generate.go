//go:build ignore

// Generates metadata.parquet, a small imaging metadata sample for trying the
// CLI: go run testdata/generate.go
package main

import (
	"log"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"
)

type Scan struct {
	PatientID int64  `parquet:"patientid"`
	Sex       string `parquet:"sex"`
	Age       *int64 `parquet:"age,optional"`
	Finding   string `parquet:"finding"`
	View      string `parquet:"view"`
	Date      int32  `parquet:"date,date"`
	FollowUp  bool   `parquet:"follow_up"`
}

func days(s string) int32 {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatal(err)
	}
	return int32(t.Unix() / 86400)
}

func age(v int64) *int64 { return &v }

func main() {
	scans := []Scan{
		{PatientID: 1, Sex: "M", Age: age(65), Finding: "COVID-19", View: "PA", Date: days("2020-03-12"), FollowUp: true},
		{PatientID: 2, Sex: "F", Age: age(41), Finding: "COVID-19", View: "AP", Date: days("2020-03-15")},
		{PatientID: 3, Sex: "M", Age: nil, Finding: "Pneumonia", View: "AP Supine", Date: days("2020-03-21")},
		{PatientID: 4, Sex: "F", Age: age(27), Finding: "No Finding", View: "PA", Date: days("2020-04-02")},
		{PatientID: 5, Sex: "M", Age: age(73), Finding: "Pneumonia/Viral/COVID-19", View: "AP", Date: days("2020-04-09"), FollowUp: true},
		{PatientID: 6, Sex: "F", Age: age(58), Finding: "COVID-19", View: "L", Date: days("2020-04-17")},
		{PatientID: 6, Sex: "F", Age: age(58), Finding: "COVID-19", View: "L", Date: days("2020-04-17")},
	}

	file, err := os.Create("metadata.parquet")
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[Scan](file)
	if _, err := writer.Write(scans); err != nil {
		log.Fatal(err)
	}
	if err := writer.Close(); err != nil {
		log.Fatal(err)
	}

	log.Printf("Generated metadata.parquet with %d scans", len(scans))
}
