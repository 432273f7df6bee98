package cmd

import (
	"os"

	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/report"
)

func writeCSV(path string, series *metrics.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := report.WriteCSV(file, series); err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
