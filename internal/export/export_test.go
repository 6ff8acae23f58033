package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/internal/stimulus"
)

func sampleMeta() Metadata {
	return Metadata{
		ExportedAt:       time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		PatientID:        "P001",
		FootMeasurement:  "26.5",
		TrialType:        "Step Trial",
		TrialNumber:      1,
		Threshold:        12.5,
		ThresholdPercent: 40,
		StimulusEnabled:  true,
		StimulatorSetup:  stimulus.SetupTest,
		Notes:            "first block",
	}
}

func loadedFrame() platform.Frame {
	var f platform.Frame
	f[platform.FX] = 1.5
	f[platform.FY] = -0.5
	f[platform.FZ] = 700
	f[platform.MX] = 7
	f[platform.MY] = -14
	return f
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, sampleMeta(), []platform.Frame{loadedFrame()}, []platform.Frame{loadedFrame()})
	require.NoError(t, err)

	// The preamble rows are 2 fields wide against the 11-wide data rows.
	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	// 9 metadata rows + header + 1 quiet stance row + 1 trial row.
	require.Len(t, rows, 12)
	assert.Equal(t, []string{"Patient ID:", "P001"}, rows[1])
	assert.Equal(t, []string{"Trial Type:", "Step Trial"}, rows[3])
	assert.Equal(t, []string{"Threshold Percentage:", "40"}, rows[5])
	assert.Equal(t, []string{"Stimulus Enabled:", "true"}, rows[6])
	assert.Equal(t, []string{"Stimulator Setup:", "Test"}, rows[7])
	assert.Equal(t, "Fx (N)", rows[9][0])
	assert.Equal(t, "Stim", rows[9][10])

	// Data rows carry the computed CoP.
	data := rows[10]
	require.Len(t, data, 11)
	copX, copY, ok := platform.CenterOfPressure(1.5, -0.5, 700, 7, -14)
	require.True(t, ok)
	assert.InDelta(t, copX, mustParse(t, data[8]), 1e-12)
	assert.InDelta(t, copY, mustParse(t, data[9]), 1e-12)
	assert.Equal(t, "0", data[10])
}

func TestWriteCSVUnloadedPlatform(t *testing.T) {
	var buf bytes.Buffer
	var unloaded platform.Frame
	err := WriteCSV(&buf, sampleMeta(), nil, []platform.Frame{unloaded})
	require.NoError(t, err)

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	data := rows[len(rows)-1]
	assert.Equal(t, "0", data[8])
	assert.Equal(t, "0", data[9])
}

func mustParse(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name      string
		trialType string
		setup     stimulus.Setup
		number    int
		want      string
	}{
		{"step with test setup", "Step Trial", stimulus.SetupTest, 1, "P001_Stepping_Test_01.csv"},
		{"step without stimulus", "Step Trial", stimulus.SetupNone, 2, "P001_Stepping_NoStimulus_02.csv"},
		{"standing conditioned", "Standing Trial", stimulus.SetupConditioned, 10, "P001_Standing_Conditioned_10.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename("P001", tt.trialType, tt.setup, tt.number))
		})
	}
}

func TestCompressRoundTrip(t *testing.T) {
	in := []byte("Fx (N),Fy (N),Fz (N)\n1,2,3\n")
	out, err := Decompress(Compress(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestWriterPlain(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(filepath.Join(dir, "exports"), false)

	path, err := w.Write(sampleMeta(), nil, []platform.Frame{loadedFrame()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "exports", "P001_Stepping_Test_01.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Patient ID:,P001")
}

func TestWriterRepeatTrialsKeepBothFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, false)

	meta := sampleMeta()
	first, err := w.Write(meta, nil, []platform.Frame{loadedFrame()})
	require.NoError(t, err)

	meta.TrialNumber = 2
	second, err := w.Write(meta, nil, []platform.Frame{loadedFrame()})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.FileExists(t, first)
	assert.FileExists(t, second)
}

func TestWriterCompressed(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, true)

	path, err := w.Write(sampleMeta(), nil, []platform.Frame{loadedFrame()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "P001_Stepping_Test_01.csv.zst"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	data, err := Decompress(raw)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Patient ID:,P001")
}
