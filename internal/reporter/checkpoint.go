package reporter

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/crc32"
	"os"

	"github.com/golang/snappy"
	"github.com/klauspost/reedsolomon"
	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

// checkpointSalt seeds the fingerprint derivation, mirroring the teacher's
// pre-shared-key stretching (pbkdf2.Key(..., SALT, 4096, 32, sha1.New)).
const checkpointSalt = "zcubes-checkpoint"

// dataShards/parityShards size the checkpoint's erasure coding: a single
// damaged shard out of five can still be reconstructed from the rest.
const (
	dataShards   = 4
	parityShards = 1
	totalShards  = dataShards + parityShards
)

// Fingerprint derives a stable, filesystem-safe run identifier from the
// search parameters, the same derivation shape as the teacher's PSK
// stretching, repurposed here as a run identifier (logged by Start and stored
// in the checkpoint body) instead of a cipher key.
func Fingerprint(k uint32, pmin, pmax, dmax uint64) string {
	buf := make([]byte, 0, 32)
	buf = binary.LittleEndian.AppendUint32(buf, k)
	buf = binary.LittleEndian.AppendUint64(buf, pmin)
	buf = binary.LittleEndian.AppendUint64(buf, pmax)
	buf = binary.LittleEndian.AppendUint64(buf, dmax)
	derived := pbkdf2.Key(buf, []byte(checkpointSalt), 4096, 32, sha1.New)
	const hex = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 0; i < 8; i++ {
		out[2*i] = hex[derived[i]>>4]
		out[2*i+1] = hex[derived[i]&0xf]
	}
	return string(out)
}

// checkpoint is the small, self-describing payload persisted to disk: the
// run fingerprint, the phase name, and the four running counters the CLI's
// trailing pcnt=/ccnt=/dcnt=/rcnt= arguments compare against.
type checkpoint struct {
	Fingerprint string
	Phase       string
	PCnt        uint64
	CCnt        uint64
	DCnt        uint64
	RCnt        uint64
}

// writeCheckpoint compresses the checkpoint body with snappy, reed-solomon
// shards it, and writes every shard into the single file at path so a single
// damaged shard does not lose the checkpoint.
func writeCheckpoint(path string, cp checkpoint) error {
	body := encodeCheckpoint(cp)
	compressed := snappy.Encode(nil, body)

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return errors.Wrap(err, "reedsolomon.New")
	}
	shards, err := splitIntoShards(compressed, dataShards)
	if err != nil {
		return errors.Wrap(err, "split checkpoint body")
	}
	all := make([][]byte, totalShards)
	copy(all, shards)
	for i := dataShards; i < totalShards; i++ {
		all[i] = make([]byte, len(shards[0]))
	}
	if err := enc.Encode(all); err != nil {
		return errors.Wrap(err, "reedsolomon encode")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create checkpoint file")
	}
	defer f.Close()

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(compressed)))
	if _, err := f.Write(lenBuf[:]); err != nil {
		return errors.Wrap(err, "write checkpoint length header")
	}
	// A per-shard CRC32 precedes the shard data so a resume can tell which
	// shard (if any) was damaged on disk, since Verify alone only reports
	// that the set as a whole is inconsistent, not which member is at fault.
	for _, shard := range all {
		var crcBuf [4]byte
		binary.LittleEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(shard))
		if _, err := f.Write(crcBuf[:]); err != nil {
			return errors.Wrap(err, "write checkpoint shard checksum")
		}
	}
	for _, shard := range all {
		if _, err := f.Write(shard); err != nil {
			return errors.Wrap(err, "write checkpoint shard")
		}
	}
	return nil
}

// readCheckpoint is the writeCheckpoint counterpart. Only reporter_test.go
// calls it, to confirm a shard can be zeroed out and the body still
// reconstructed; no startup path reads a checkpoint back to resume a run.
func readCheckpoint(path string) (checkpoint, error) {
	var cp checkpoint
	data, err := os.ReadFile(path)
	if err != nil {
		return cp, errors.Wrap(err, "read checkpoint file")
	}
	if len(data) < 4 {
		return cp, errors.New("checkpoint file truncated")
	}
	bodyLen := int(binary.LittleEndian.Uint32(data[:4]))
	checksums := data[4 : 4+4*totalShards]
	rest := data[4+4*totalShards:]
	shardSize := len(rest) / totalShards
	shards := make([][]byte, totalShards)
	for i := range shards {
		shards[i] = rest[i*shardSize : (i+1)*shardSize]
	}

	for i, shard := range shards {
		want := binary.LittleEndian.Uint32(checksums[i*4 : i*4+4])
		if crc32.ChecksumIEEE(shard) != want {
			shards[i] = nil // mark the damaged shard missing for Reconstruct
		}
	}

	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return cp, errors.Wrap(err, "reedsolomon.New")
	}
	if ok, _ := enc.Verify(shards); !ok {
		if err := enc.Reconstruct(shards); err != nil {
			return cp, errors.Wrap(err, "reedsolomon reconstruct")
		}
	}
	var joined []byte
	for _, s := range shards[:dataShards] {
		joined = append(joined, s...)
	}
	if bodyLen > len(joined) {
		return cp, errors.New("checkpoint body length exceeds shard capacity")
	}
	compressed := joined[:bodyLen]

	body, err := snappy.Decode(nil, compressed)
	if err != nil {
		return cp, errors.Wrap(err, "snappy decode checkpoint body")
	}
	return decodeCheckpoint(body)
}

func splitIntoShards(data []byte, n int) ([][]byte, error) {
	shardSize := (len(data) + n - 1) / n
	if shardSize == 0 {
		shardSize = 1
	}
	padded := make([]byte, shardSize*n)
	copy(padded, data)
	shards := make([][]byte, n)
	for i := 0; i < n; i++ {
		shards[i] = padded[i*shardSize : (i+1)*shardSize]
	}
	return shards, nil
}

func encodeCheckpoint(cp checkpoint) []byte {
	buf := make([]byte, 0, 64+len(cp.Fingerprint)+len(cp.Phase))
	buf = appendString(buf, cp.Fingerprint)
	buf = appendString(buf, cp.Phase)
	buf = binary.LittleEndian.AppendUint64(buf, cp.PCnt)
	buf = binary.LittleEndian.AppendUint64(buf, cp.CCnt)
	buf = binary.LittleEndian.AppendUint64(buf, cp.DCnt)
	buf = binary.LittleEndian.AppendUint64(buf, cp.RCnt)
	return buf
}

func decodeCheckpoint(buf []byte) (checkpoint, error) {
	var cp checkpoint
	var ok bool
	cp.Fingerprint, buf, ok = readString(buf)
	if !ok {
		return cp, errors.New("checkpoint decode: truncated fingerprint")
	}
	cp.Phase, buf, ok = readString(buf)
	if !ok {
		return cp, errors.New("checkpoint decode: truncated phase")
	}
	if len(buf) < 32 {
		return cp, errors.New("checkpoint decode: truncated counters")
	}
	cp.PCnt = binary.LittleEndian.Uint64(buf[0:8])
	cp.CCnt = binary.LittleEndian.Uint64(buf[8:16])
	cp.DCnt = binary.LittleEndian.Uint64(buf[16:24])
	cp.RCnt = binary.LittleEndian.Uint64(buf[24:32])
	return cp, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, bool) {
	if len(buf) < 4 {
		return "", buf, false
	}
	n := int(binary.LittleEndian.Uint32(buf[:4]))
	buf = buf[4:]
	if len(buf) < n {
		return "", buf, false
	}
	return string(buf[:n]), buf[n:], true
}
