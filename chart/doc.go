// Package chart renders small aggregated tables as bar, pie, scatter, line
// and heatmap figures with gonum/plot.
//
// Every constructor returns a *Chart that is written once with Save and is
// released afterwards:
//
//	c, err := chart.Bar(summary, "finding", "patient_count", chart.Style{Title: "Findings"})
//	if err != nil {
//		return err
//	}
//	return c.Save("findings.png", 300)
package chart
