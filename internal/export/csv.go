// Package export writes saved trials to disk: a CSV with a metadata preamble
// followed by the recorded samples, optionally mirrored as a zstd-compressed
// archive next to the plain file.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
)

// Metadata is the preamble written before the sample rows.
type Metadata struct {
	ExportedAt       time.Time
	PatientID        string
	FootMeasurement  string
	TrialType        string
	TrialNumber      int
	Threshold        float64
	ThresholdPercent int
	StimulusEnabled  bool
	StimulatorSetup  stimulus.Setup
	Notes            string
}

var header = []string{
	"Fx (N)", "Fy (N)", "Fz (N)",
	"Mx (N/m)", "My (N/m)", "Mz (N/m)",
	"EMG_Tibialis (V)", "EMG_Soleus (V)",
	"CoPx (m)", "CoPy (m)",
	"Stim",
}

// WriteCSV writes the metadata preamble, the header row, and then the quiet
// stance rows followed by the trial rows. CoP columns are computed per row;
// rows where the platform is unloaded carry zero CoP.
func WriteCSV(w io.Writer, meta Metadata, quietStance, trial []platform.Frame) error {
	cw := csv.NewWriter(w)

	preamble := [][]string{
		{"Date/Time of Export:", meta.ExportedAt.Format(time.RFC3339)},
		{"Patient ID:", meta.PatientID},
		{"Foot Measurement:", meta.FootMeasurement},
		{"Trial Type:", meta.TrialType},
		{"APA Threshold:", formatFloat(meta.Threshold)},
		{"Threshold Percentage:", strconv.Itoa(meta.ThresholdPercent)},
		{"Stimulus Enabled:", strconv.FormatBool(meta.StimulusEnabled)},
		{"Stimulator Setup:", string(meta.StimulatorSetup)},
		{"Collection Notes:", meta.Notes},
		header,
	}
	if err := cw.WriteAll(preamble); err != nil {
		return fmt.Errorf("export: writing preamble: %w", err)
	}

	for _, rows := range [][]platform.Frame{quietStance, trial} {
		for _, row := range rows {
			if err := cw.Write(formatRow(row)); err != nil {
				return fmt.Errorf("export: writing row: %w", err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatRow(row platform.Frame) []string {
	copX, copY, ok := platform.CenterOfPressure(
		row[platform.FX], row[platform.FY], row[platform.FZ],
		row[platform.MX], row[platform.MY],
	)
	if !ok {
		copX, copY = 0, 0
	}

	out := make([]string, 0, len(header))
	for _, v := range []float64{
		row[platform.FX], row[platform.FY], row[platform.FZ],
		row[platform.MX], row[platform.MY], row[platform.MZ],
		row[platform.EMG1], row[platform.EMG2],
		copX, copY,
	} {
		out = append(out, formatFloat(v))
	}
	out = append(out, strconv.Itoa(int(row[platform.Stim])))
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Filename builds the standard trial filename from collection info. The
// per-session trial number keeps repeated trials with the same setup from
// overwriting each other.
func Filename(patientID, trialType string, setup stimulus.Setup, number int) string {
	trial := "Standing"
	if trialType == "Step Trial" {
		trial = "Stepping"
	}

	setupName := string(setup)
	if setup == stimulus.SetupNone {
		setupName = "NoStimulus"
	}

	return fmt.Sprintf("%s_%s_%s_%02d.csv", patientID, trial, setupName, number)
}
