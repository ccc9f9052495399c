// Package columnar provides columnar format support for frames. Format
// implementations register themselves at init time, so whether a format is
// available is decided by the build (see the noparquet build tag) and can be
// queried before any write is attempted.
package columnar

import (
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/ajitpratap0/spotify-dataset/pkg/errors"
	"github.com/ajitpratap0/spotify-dataset/pkg/frame"
)

// Format represents a columnar storage format
type Format string

const (
	// Parquet is Apache Parquet format
	Parquet Format = "parquet"
)

// ReaderAtSeeker is the random access input columnar readers need
type ReaderAtSeeker interface {
	io.ReaderAt
	io.Seeker
}

// WriterConfig configures columnar writers
type WriterConfig struct {
	Compression string
	BatchSize   int
}

// DefaultWriterConfig returns default writer configuration
func DefaultWriterConfig() *WriterConfig {
	return &WriterConfig{
		Compression: "snappy",
		BatchSize:   64 * 1024,
	}
}

// Compressions lists the accepted compression names
var Compressions = []string{"snappy", "zstd", "gzip", "none"}

// ValidCompression reports whether name is one of Compressions
func ValidCompression(name string) bool {
	for _, c := range Compressions {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Codec writes and reads one columnar format
type Codec struct {
	Format    Format
	Extension string
	Write     func(w io.Writer, f *frame.Frame, cfg *WriterConfig) error
	Read      func(r ReaderAtSeeker) (*frame.Frame, error)
}

// Capabilities answers which columnar formats can be used
type Capabilities interface {
	Supports(format Format) bool
	Lookup(format Format) (*Codec, error)
}

// Registry holds the codecs compiled into the binary
type Registry struct {
	mu     sync.RWMutex
	codecs map[Format]*Codec
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[Format]*Codec)}
}

// Register adds a codec. Registering a format twice is an error.
func (r *Registry) Register(codec *Codec) error {
	if codec == nil || codec.Format == "" || codec.Write == nil {
		return errors.New(errors.ErrorTypeValidation, "codec needs a format and a writer")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codecs[codec.Format]; exists {
		return errors.Newf(errors.ErrorTypeValidation, "format %s already registered", codec.Format)
	}
	r.codecs[codec.Format] = codec
	return nil
}

// Supports reports whether format has a registered codec
func (r *Registry) Supports(format Format) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.codecs[format]
	return ok
}

// Lookup returns the codec for format
func (r *Registry) Lookup(format Format) (*Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codec, ok := r.codecs[format]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeCapability, "columnar format %s is not available in this build", format).
			WithDetail("format", string(format))
	}
	return codec, nil
}

// Registered lists the registered formats in name order
func (r *Registry) Registered() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()

	formats := make([]Format, 0, len(r.codecs))
	for f := range r.codecs {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Default is the registry codecs register into from init
var Default = NewRegistry()

// Register adds a codec to the default registry
func Register(codec *Codec) error {
	return Default.Register(codec)
}

// Supports queries the default registry
func Supports(format Format) bool {
	return Default.Supports(format)
}

// Lookup queries the default registry
func Lookup(format Format) (*Codec, error) {
	return Default.Lookup(format)
}
