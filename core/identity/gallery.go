// Package identity matches face encodings produced by an external encoder
// against the known encodings of enrolled students.
package identity

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/hazira/core"
)

// DefaultTolerance is the largest distance at which two encodings are considered the same face.
const DefaultTolerance = 0.6

var ErrUnknown = errors.New("unknown face")

// Encoding is a face feature vector.
type Encoding []float64

// Distance is the euclidean distance between two encodings of the same length.
func (e Encoding) Distance(other Encoding) float64 {
	var sum float64
	for i := range e {
		d := e[i] - other[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Gallery holds the known encodings, keyed by student id.
type Gallery struct {
	ids       []int
	encodings []Encoding
}

func NewGallery(known map[int]Encoding) *Gallery {
	g := &Gallery{
		ids:       make([]int, 0, len(known)),
		encodings: make([]Encoding, 0, len(known)),
	}
	for id := range known {
		g.ids = append(g.ids, id)
	}
	sort.Ints(g.ids)
	for _, id := range g.ids {
		g.encodings = append(g.encodings, known[id])
	}
	return g
}

// LoadGallery reads every "<student id>.csv" file of dir.
// Each file holds the comma separated values of one encoding, possibly over several lines.
// All encodings must have the same length: the first file (in name order) deviating from
// the most common length fails the load with an *core.IOError naming it.
func LoadGallery(dir string) (*Gallery, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, core.NewIOError(err, dir)
	}

	type loaded struct {
		id   int
		path string
		enc  Encoding
	}
	files := make([]loaded, 0, len(entries))
	lengths := make(map[int]int)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".csv" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".csv"))
		if err != nil {
			continue // not a student encoding
		}
		path := filepath.Join(dir, name)
		enc, err := readEncoding(path)
		if err != nil {
			return nil, err
		}
		files = append(files, loaded{id: id, path: path, enc: enc})
		lengths[len(enc)]++
	}

	want := 0
	for _, f := range files {
		if n := len(f.enc); lengths[n] > lengths[want] {
			want = n
		}
	}
	known := make(map[int]Encoding, len(files))
	for _, f := range files {
		if len(f.enc) != want {
			return nil, core.NewIOError(errors.Errorf("encoding has %d values, the others have %d", len(f.enc), want), f.path)
		}
		known[f.id] = f.enc
	}
	return NewGallery(known), nil
}

func readEncoding(path string) (Encoding, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.NewIOError(err, path)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var enc Encoding
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewIOError(err, path)
		}
		for _, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, core.NewIOError(errors.Wrapf(err, "parsing %q", field), path)
			}
			enc = append(enc, v)
		}
	}
	if len(enc) == 0 {
		return nil, core.NewIOError(errors.New("empty encoding"), path)
	}
	return enc, nil
}

func (g *Gallery) Len() int { return len(g.ids) }

// IDs returns the student ids with a known encoding, sorted.
func (g *Gallery) IDs() []int {
	ids := make([]int, len(g.ids))
	copy(ids, g.ids)
	return ids
}

// Match returns the id of the closest known encoding if it is within tolerance, ErrUnknown otherwise.
func (g *Gallery) Match(enc Encoding, tolerance float64) (int, error) {
	if err := vala.BeginValidation().Validate(
		vala.GreaterThan(len(enc), 0, "encoding"),
	).Check(); err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: "encoding", Error: "encoding cannot be empty"})
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	best, bestDist := -1, math.Inf(1)
	for i, known := range g.encodings {
		if len(known) != len(enc) {
			return 0, core.NewValidationError(
				errors.Errorf("encoding has %d values, known encodings have %d", len(enc), len(known)),
				core.FieldError{Field: "encoding", Error: "invalid encoding length"},
			)
		}
		if d := known.Distance(enc); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 || bestDist > tolerance {
		return 0, ErrUnknown
	}
	return g.ids[best], nil
}

// MatchAll returns the distinct ids recognised in encs, sorted. Unknown faces are dropped.
func (g *Gallery) MatchAll(encs []Encoding, tolerance float64) ([]int, error) {
	seen := make(map[int]bool, len(encs))
	ids := make([]int, 0, len(encs))
	for _, enc := range encs {
		id, err := g.Match(enc, tolerance)
		if err == ErrUnknown {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids, nil
}
