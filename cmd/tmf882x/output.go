package main

import (
	"fmt"
	"strings"

	"github.com/bigbag/tmf882x/internal/detect"
	"github.com/bigbag/tmf882x/internal/device"
	"github.com/bigbag/tmf882x/internal/measurement"
)

func printDeviceInfo(r *detect.Result) {
	fmt.Printf("  Address:  0x%02X\n", r.Address)
	fmt.Printf("  Running:  %s\n", r.App)
	if r.Serial != 0 {
		fmt.Printf("  Version:  %d\n", r.Minor)
		fmt.Printf("  Serial:   %08X\n", r.Serial)
	}
}

func printSettings(s device.Settings) {
	fmt.Printf("  Period:     %d ms\n", s.MeasurementPeriod)
	fmt.Printf("  Iterations: %dk\n", s.KiloIterations)
	fmt.Printf("  Threshold:  %d\n", s.ConfidenceThreshold)
	fmt.Printf("  Spad map:   %d", s.SpadMap)
	if dims, err := measurement.SpadMapDims(s.SpadMap); err == nil {
		fmt.Printf(" (%dx%d)", dims.Columns, dims.Rows)
	}
	fmt.Println()
	fmt.Printf("  GPIO0/1:    0x%02X 0x%02X\n", s.GPIO0, s.GPIO1)
}

func printMeasurement(m *measurement.Measurement, secondary bool) {
	fmt.Printf("#%d  %d°C  valid %d  ambient %d  photons %d\n",
		m.ResultNumber, m.Temperature, m.ValidResults, m.AmbientLight, m.PhotonCount)

	zones, _, err := m.Zones(secondary)
	if err != nil {
		// Unknown spad map: list the raw records.
		for i, r := range m.Results {
			fmt.Printf("  %2d: %5d mm  conf %3d\n", i, r.Distance, r.Confidence)
		}
		return
	}
	for i, z := range zones {
		fmt.Printf("  %2d: %5d mm  conf %3d\n", i, z.Distance, z.Confidence)
	}
}

func printGrid(m *measurement.Measurement, order measurement.GridOrder, secondary bool) error {
	grid, err := m.Grid(order, secondary)
	if err != nil {
		return err
	}

	fmt.Printf("#%d\n", m.ResultNumber)
	for _, row := range grid {
		cells := make([]string, len(row))
		for i, r := range row {
			cells[i] = fmt.Sprintf("%6s", r)
		}
		fmt.Println(strings.Join(cells, " "))
	}
	fmt.Println()
	return nil
}
