package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/william-ls-liu/evaluating-psi/internal/platform"
	"github.com/william-ls-liu/evaluating-psi/pkg/metric"
)

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdOnce    sync.Once
)

func initZstd() {
	zstdOnce.Do(func() {
		var err error
		zstdEncoder, err = zstd.NewWriter(nil)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to create zstd encoder")
		}
		zstdDecoder, err = zstd.NewReader(nil)
		if err != nil {
			log.Panic().Err(err).Msg("Failed to create zstd decoder")
		}
	})
}

// Compress returns the zstd-compressed form of data.
func Compress(data []byte) []byte {
	initZstd()
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)))
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	initZstd()
	return zstdDecoder.DecodeAll(data, nil)
}

// Writer persists trial CSVs to the export directory.
type Writer struct {
	dir      string
	compress bool
}

// NewWriter returns a writer rooted at dir. When compress is set each trial is
// written as a .csv.zst archive instead of a plain CSV.
func NewWriter(dir string, compress bool) *Writer {
	return &Writer{dir: dir, compress: compress}
}

// Write renders the trial to a file under the export directory and returns the
// path written. The directory is created on first use.
func (w *Writer) Write(meta Metadata, quietStance, trial []platform.Frame) (string, error) {
	start := time.Now()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: creating directory: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, meta, quietStance, trial); err != nil {
		return "", err
	}

	name := Filename(meta.PatientID, meta.TrialType, meta.StimulatorSetup, meta.TrialNumber)
	data := buf.Bytes()
	if w.compress {
		name += ".zst"
		data = Compress(data)
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: writing %s: %w", name, err)
	}

	metric.Timing(metric.ExportLatency, time.Since(start),
		metric.BuildTag(metric.NewTag(metric.TagTrialType, meta.TrialType)))
	log.Info().Msgf("Exported trial to %s (%d bytes)", path, len(data))
	return path, nil
}
