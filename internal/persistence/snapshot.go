package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/statecraft/internal/engine"
)

const snapshotVersion = 1

// SnapshotHeader is the first JSON line of a snapshot file.
type SnapshotHeader struct {
	Version   int       `json:"version"`
	SessionID string    `json:"session_id"`
	Day       int       `json:"day"`
	SavedAt   time.Time `json:"saved_at"`
}

// WriteSnapshot writes a zstd-compressed snapshot: a header line followed by the state.
func WriteSnapshot(path string, st engine.State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := encodeSnapshot(enc, st); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Close()
}

func encodeSnapshot(w io.Writer, st engine.State) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	je := json.NewEncoder(bw)
	hdr := SnapshotHeader{
		Version:   snapshotVersion,
		SessionID: st.SessionID,
		Day:       st.Day,
		SavedAt:   time.Now().UTC(),
	}
	if err := je.Encode(hdr); err != nil {
		return err
	}
	if err := je.Encode(st); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadSnapshot reads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (SnapshotHeader, engine.State, error) {
	var (
		hdr SnapshotHeader
		st  engine.State
	)
	f, err := os.Open(path)
	if err != nil {
		return hdr, st, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, st, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReader(dec))
	if err := jd.Decode(&hdr); err != nil {
		return hdr, st, fmt.Errorf("snapshot header: %w", err)
	}
	if hdr.Version != snapshotVersion {
		return hdr, st, fmt.Errorf("snapshot version %d not supported", hdr.Version)
	}
	if err := jd.Decode(&st); err != nil {
		return hdr, st, fmt.Errorf("snapshot body: %w", err)
	}
	return hdr, st, nil
}
