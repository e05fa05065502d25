package board

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlLayout is the YAML form of a layout file.
type yamlLayout struct {
	Rows         int      `yaml:"rows"`
	Columns      int      `yaml:"columns"`
	VerticalWins bool     `yaml:"vertical-wins"`
	Cells        []string `yaml:"cells"`
}

// LoadLayout reads a board from path. Files ending in .yaml or .yml are YAML;
// anything else is the plain format understood by ParseLayout.
func LoadLayout(path string, opts ...Option) (*Board, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var l yamlLayout
		if err := yaml.NewDecoder(f).Decode(&l); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadLayout, err)
		}
		opts = append([]Option{WithVerticalWins(l.VerticalWins)}, opts...)
		return fromRows(l.Rows, l.Columns, l.Cells, opts...)
	}
	return ParseLayout(f, opts...)
}

// ParseLayout reads the plain layout format: a "<rows> <columns>" header
// followed by one line per row, top row first. Cells are 0 (empty),
// 1 (player) and 2 (cpu); whitespace between cells is optional.
func ParseLayout(r io.Reader, opts ...Option) (*Board, error) {
	sc := bufio.NewScanner(r)
	var lines []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrBadLayout)
	}
	header := strings.Fields(lines[0])
	if len(header) != 2 {
		return nil, fmt.Errorf("%w: header %q", ErrBadLayout, lines[0])
	}
	rows, err := strconv.Atoi(header[0])
	if err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrBadLayout, err)
	}
	columns, err := strconv.Atoi(header[1])
	if err != nil {
		return nil, fmt.Errorf("%w: columns: %v", ErrBadLayout, err)
	}
	return fromRows(rows, columns, lines[1:], opts...)
}

// FromRows builds a board from row strings, top row first, in the same cell
// alphabet as ParseLayout. X and O are accepted for 1 and 2, and '.' for 0.
func FromRows(rows []string, opts ...Option) (*Board, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrBadLayout)
	}
	return fromRows(len(rows), len(strings.Join(strings.Fields(rows[0]), "")), rows, opts...)
}

func fromRows(rows, columns int, lines []string, opts ...Option) (*Board, error) {
	b, err := NewEmpty(rows, columns, opts...)
	if err != nil {
		return nil, err
	}
	if len(lines) != rows {
		return nil, fmt.Errorf("%w: expected %d rows, got %d", ErrBadLayout, rows, len(lines))
	}
	for r, line := range lines {
		cells := strings.Join(strings.Fields(line), "")
		if len(cells) != columns {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d", ErrBadLayout, r+1, len(cells), columns)
		}
		for c, ch := range cells {
			cell, err := parseCell(ch)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", r+1, err)
			}
			b.cells[r][c] = cell
		}
	}
	if err := b.checkGravity(); err != nil {
		return nil, err
	}
	return b, nil
}

func parseCell(ch rune) (Cell, error) {
	switch ch {
	case '0', '.':
		return Empty, nil
	case '1', 'X', 'x':
		return Player, nil
	case '2', 'O', 'o':
		return CPU, nil
	}
	return Empty, fmt.Errorf("%w: unknown cell %q", ErrBadLayout, ch)
}
