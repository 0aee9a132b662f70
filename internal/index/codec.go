package index

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/papyrus-labs/scholarag/internal/domain"
)

// Binary layout: magic, format version, metric id, dimension, vector count,
// then count*dim little-endian float32 values.
var fileMagic = [4]byte{'S', 'R', 'G', 'I'}

const formatVersion = 1

const (
	metricIDCosine uint8 = 0
	metricIDL2     uint8 = 1
)

// WriteTo serializes the index. The recorded dimension and count let Load
// validate persisted state against the runtime embedding model.
func (f *Flat) WriteTo(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	metricID := metricIDCosine
	if f.metric == MetricL2 {
		metricID = metricIDL2
	}
	header := []any{uint8(formatVersion), metricID, uint32(f.dim), uint32(len(f.vecs))}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	buf := make([]byte, 4)
	for _, vec := range f.vecs {
		for _, x := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Save writes the index to path, replacing any existing file atomically.
func (f *Flat) Save(path string) error {
	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if err := f.WriteTo(file); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// ReadFrom deserializes an index. wantDim > 0 cross-checks the stored
// dimension against the runtime embedding dimension; a mismatch is
// domain.ErrIndexCorrupted, as is any malformed or truncated payload.
func ReadFrom(r io.Reader, wantDim int) (*Flat, error) {
	br := bufio.NewReader(r)

	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: read magic: %v", domain.ErrIndexCorrupted, err)
	}
	if magic != fileMagic {
		return nil, fmt.Errorf("%w: bad magic %q", domain.ErrIndexCorrupted, magic[:])
	}

	var (
		version  uint8
		metricID uint8
		dim      uint32
		count    uint32
	)
	for _, v := range []any{&version, &metricID, &dim, &count} {
		if err := binary.Read(br, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("%w: read header: %v", domain.ErrIndexCorrupted, err)
		}
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", domain.ErrIndexCorrupted, version)
	}

	var metric Metric
	switch metricID {
	case metricIDCosine:
		metric = MetricCosine
	case metricIDL2:
		metric = MetricL2
	default:
		return nil, fmt.Errorf("%w: unknown metric id %d", domain.ErrIndexCorrupted, metricID)
	}

	if count > 0 && dim == 0 {
		return nil, fmt.Errorf("%w: zero dimension with %d vectors", domain.ErrIndexCorrupted, count)
	}
	if wantDim > 0 && count > 0 && int(dim) != wantDim {
		return nil, fmt.Errorf("%w: stored dimension %d does not match embedding dimension %d",
			domain.ErrIndexCorrupted, dim, wantDim)
	}

	f := NewFlat(metric)
	f.dim = int(dim)
	f.vecs = make([][]float32, 0, count)
	f.norms = make([]float32, 0, count)

	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: truncated at vector %d: %v", domain.ErrIndexCorrupted, i, err)
		}
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[j*4:]))
		}
		f.vecs = append(f.vecs, vec)
		f.norms = append(f.norms, norm(vec))
	}

	// Trailing bytes mean the file does not match its own header.
	if _, err := br.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after %d vectors", domain.ErrIndexCorrupted, count)
	}

	return f, nil
}

// Load reads an index file written by Save.
func Load(path string, wantDim int) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return ReadFrom(file, wantDim)
}
