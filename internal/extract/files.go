// Package extract reads raw coordinate lines from a directory of text files.
package extract

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"

	"geocoding-etl/internal/models"
	"geocoding-etl/internal/stage"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
)

const maxLineSize = 1 << 20

// LineReader is a single-pass stream of lines. Next returns io.EOF once exhausted.
type LineReader interface {
	Next(ctx context.Context) (models.RawLine, error)
}

// FileSource streams every line of every regular file directly inside a
// directory, files in name order. Subdirectories are not descended into.
type FileSource struct {
	fs    afero.Fs
	dir   string
	files []string

	current afero.File
	scanner *bufio.Scanner
	name    string
	lineNo  int
}

// NewFileSource lists dir on fs. A missing or unreadable directory is an error.
func NewFileSource(fs afero.Fs, dir string) (*FileSource, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, stage.Wrap(stage.Extract, dir, eris.Wrap(err, "read directory"))
	}

	var files []string
	for _, e := range entries {
		if e.Mode().IsRegular() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}

	return &FileSource{fs: fs, dir: dir, files: files}, nil
}

// Files returns the files the source will read, in order.
func (s *FileSource) Files() []string {
	return s.files
}

// Next returns the next line across all files.
func (s *FileSource) Next(ctx context.Context) (models.RawLine, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.RawLine{}, err
		}

		if s.scanner == nil {
			if len(s.files) == 0 {
				return models.RawLine{}, io.EOF
			}
			if err := s.open(s.files[0]); err != nil {
				return models.RawLine{}, err
			}
			s.files = s.files[1:]
		}

		if s.scanner.Scan() {
			s.lineNo++
			return models.RawLine{
				Text:   strings.TrimRight(s.scanner.Text(), "\r"),
				File:   s.name,
				Number: s.lineNo,
			}, nil
		}

		err := s.scanner.Err()
		s.closeCurrent()
		if err != nil {
			return models.RawLine{}, stage.Wrap(stage.Extract, s.name, eris.Wrap(err, "scan file"))
		}
	}
}

// Close releases the file currently being read, if any.
func (s *FileSource) Close() error {
	s.closeCurrent()
	return nil
}

func (s *FileSource) open(name string) error {
	f, err := s.fs.Open(name)
	if err != nil {
		return stage.Wrap(stage.Extract, name, eris.Wrap(err, "open file"))
	}

	s.current = f
	s.name = name
	s.lineNo = 0
	s.scanner = bufio.NewScanner(f)
	s.scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return nil
}

func (s *FileSource) closeCurrent() {
	if s.current != nil {
		_ = s.current.Close()
	}
	s.current = nil
	s.scanner = nil
}

// SliceSource serves lines from memory. Useful when lines come from somewhere
// other than the filesystem.
type SliceSource struct {
	lines []models.RawLine
}

// NewSliceSource numbers texts as lines of a virtual file called name.
func NewSliceSource(name string, texts ...string) *SliceSource {
	lines := make([]models.RawLine, len(texts))
	for i, t := range texts {
		lines[i] = models.RawLine{Text: t, File: name, Number: i + 1}
	}
	return &SliceSource{lines: lines}
}

func (s *SliceSource) Next(ctx context.Context) (models.RawLine, error) {
	if len(s.lines) == 0 {
		return models.RawLine{}, io.EOF
	}
	l := s.lines[0]
	s.lines = s.lines[1:]
	return l, nil
}
