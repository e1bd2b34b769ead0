package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	log "github.com/golang/glog"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cognicore/topicsite/pkg/topicsite/internalerr"
)

// Record is one (author, text) pair. Its identity is its index in the
// slice returned by Load.
type Record struct {
	Author string
	Text   string
}

// LoadOptions controls file discovery and parsing.
type LoadOptions struct {
	// Pattern is a doublestar glob relative to the corpus directory
	Pattern string
	// Encoding is any name CanonicalEncoding accepts
	Encoding     string
	AuthorColumn int
	TextColumn   int
	HasHeader    bool
	// Limit caps the number of records returned (0 = all)
	Limit int
}

// Load reads every matching file under dir and concatenates their records,
// in file path order then in-file order.
func Load(ctx context.Context, dir string, opts LoadOptions) ([]Record, error) {
	files, err := Files(dir, opts.Pattern)
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		recs, err := ReadFile(path, opts)
		if err != nil {
			return nil, err
		}
		records = append(records, recs...)
		if opts.Limit > 0 && len(records) >= opts.Limit {
			records = records[:opts.Limit]
			break
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records in %d files under %s: %w", len(files), dir, internalerr.ErrCorpusEmpty)
	}

	log.Infof("loaded %d records from %d files under %s", len(records), len(files), dir)
	return records, nil
}

// Files lists the regular files under dir matching pattern, sorted by path.
func Files(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*.csv"
	}
	// glob inside the directory so its own name is never pattern syntax
	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, dir, err)
	}

	var files []string
	for _, m := range matches {
		info, err := fs.Stat(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m, err)
		}
		if info.Mode().IsRegular() {
			files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ReadFile parses one delimited-record file.
func ReadFile(path string, opts LoadOptions) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := decode(f, opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parse(r, path, opts)
}

// Canonical encoding names.
const (
	Latin1 = "latin-1"
	UTF8   = "utf-8"
)

// CanonicalEncoding maps an encoding name or alias to Latin1 or UTF8. An
// empty name means Latin1.
func CanonicalEncoding(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin-1", "latin1", "iso-8859-1":
		return Latin1, true
	case "utf-8", "utf8":
		return UTF8, true
	}
	return "", false
}

func decode(r io.Reader, encoding string) (io.Reader, error) {
	enc, ok := CanonicalEncoding(encoding)
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q: %w", encoding, internalerr.ErrInvalidInput)
	}
	if enc == UTF8 {
		return transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())), nil
	}
	return charmap.ISO8859_1.NewDecoder().Reader(r), nil
}

func parse(r io.Reader, path string, opts LoadOptions) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	need := opts.TextColumn
	if opts.AuthorColumn > need {
		need = opts.AuthorColumn
	}

	var (
		records []Record
		skipped int
		row     int
	)
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				log.V(1).Infof("%s: skipping malformed row %d: %v", path, row, err)
				skipped++
				continue
			}
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if row == 1 && opts.HasHeader {
			continue
		}
		if len(fields) <= need {
			skipped++
			continue
		}

		text := StripMarkup(fields[opts.TextColumn])
		if text == "" {
			skipped++
			continue
		}
		records = append(records, Record{
			Author: strings.TrimSpace(fields[opts.AuthorColumn]),
			Text:   text,
		})
	}

	if skipped > 0 {
		log.Warningf("%s: skipped %d of %d rows", path, skipped, row)
	}
	return records, nil
}
