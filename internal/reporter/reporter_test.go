package reporter

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func readRawFile(path string) ([]byte, error)     { return os.ReadFile(path) }
func writeRawFile(path string, data []byte) error { return os.WriteFile(path, data, 0644) }

func TestFingerprintIsStableAndDeterministic(t *testing.T) {
	a := Fingerprint(33, 100, 200, 1_000_000)
	b := Fingerprint(33, 100, 200, 1_000_000)
	if a != b {
		t.Fatalf("Fingerprint is not deterministic: %q vs %q", a, b)
	}
	c := Fingerprint(42, 100, 200, 1_000_000)
	if a == c {
		t.Fatalf("Fingerprint collided across different k values")
	}
	if len(a) != 16 {
		t.Fatalf("Fingerprint length = %d, want 16", len(a))
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.bin")
	want := checkpoint{
		Fingerprint: "deadbeefcafef00d",
		Phase:       "Prime",
		PCnt:        123,
		CCnt:        456,
		DCnt:        789,
		RCnt:        1011,
	}
	if err := writeCheckpoint(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := readCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestCheckpointSurvivesDamagedShard(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.bin")
	want := checkpoint{Fingerprint: "abc123", Phase: "BigPrime", PCnt: 7, CCnt: 8, DCnt: 9, RCnt: 10}
	if err := writeCheckpoint(path, want); err != nil {
		t.Fatal(err)
	}

	data, err := readRawFile(path)
	if err != nil {
		t.Fatal(err)
	}
	headerLen := 4 + 4*totalShards
	shardSize := (len(data) - headerLen) / totalShards
	// zero out the first data shard to simulate a damaged shard on disk;
	// its checksum will then disagree and readCheckpoint must reconstruct it.
	for i := headerLen; i < headerLen+shardSize; i++ {
		data[i] = 0
	}
	if err := writeRawFile(path, data); err != nil {
		t.Fatal(err)
	}

	got, err := readCheckpoint(path)
	if err != nil {
		t.Fatalf("expected reconstruction to succeed, got error: %v", err)
	}
	if got != want {
		t.Fatalf("reconstructed checkpoint mismatch: got %+v, want %+v", got, want)
	}
}

func TestLogJSONProducesParseableLine(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	r := NewFileReporter(Config{LogJSON: true})
	r.Printf("worker %d ready", 3)

	var line logLine
	// log.Print prefixes the standard flags; find the JSON object within it.
	idx := bytes.IndexByte(buf.Bytes(), '{')
	if idx < 0 {
		t.Fatalf("expected a JSON object in log output, got %q", buf.String())
	}
	if err := json.Unmarshal(buf.Bytes()[idx:], &line); err != nil {
		t.Fatalf("log line is not valid JSON: %v (%q)", err, buf.String())
	}
	if line.Message != "worker 3 ready" || line.Level != "info" {
		t.Fatalf("unexpected log line: %+v", line)
	}
}

func TestComparisonsFlagsMismatch(t *testing.T) {
	r := NewFileReporter(Config{Quiet: true})
	r.ReportP(0)
	r.ReportP(0)
	if r.Comparisons(2, 0, 0, 0) != true {
		t.Fatalf("expected matching pcnt=2 to report true")
	}
	if r.Comparisons(5, 0, 0, 0) != false {
		t.Fatalf("expected mismatched pcnt=5 to report false")
	}
}
