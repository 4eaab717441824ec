// parse.go adapts wlattner-rf's parse.go: it reads a CSV with the response
// in the first column, auto-detects a header row (present if the first
// column of the first row does not parse as a float), and auto-detects
// regression vs. classification the same way — if every response value in
// the first column parses as float64, it's regression, otherwise the values
// are treated as class labels.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wlattner/arborist/frame"
)

type parsedInput struct {
	header    []string
	numCols   [][]float64
	isClass   bool
	yFloat    []float64
	yLabel    []string
	classMap  []string
	classIdx  map[string]int
}

func parseCSV(r io.Reader) (*parsedInput, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	start := 0
	var header []string
	if _, err := strconv.ParseFloat(rows[0][0], 64); err != nil {
		header = rows[0]
		start = 1
	} else {
		header = make([]string, len(rows[0]))
		header[0] = "y"
		for i := 1; i < len(header); i++ {
			header[i] = fmt.Sprintf("x%d", i)
		}
	}

	data := rows[start:]
	if len(data) == 0 {
		return nil, fmt.Errorf("no data rows")
	}

	isClass := false
	yFloat := make([]float64, len(data))
	for i, row := range data {
		v, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			isClass = true
			break
		}
		yFloat[i] = v
	}

	p := &parsedInput{header: header}
	nFeat := len(data[0]) - 1
	p.numCols = make([][]float64, nFeat)
	for j := range p.numCols {
		p.numCols[j] = make([]float64, len(data))
	}

	if isClass {
		p.isClass = true
		p.classIdx = make(map[string]int)
		p.yLabel = make([]string, len(data))
		for i, row := range data {
			label := row[0]
			idx, ok := p.classIdx[label]
			if !ok {
				idx = len(p.classMap)
				p.classIdx[label] = idx
				p.classMap = append(p.classMap, label)
			}
			p.yLabel[i] = label
			_ = idx
			for j := 0; j < nFeat; j++ {
				v, err := strconv.ParseFloat(row[j+1], 64)
				if err != nil {
					return nil, fmt.Errorf("row %d: parsing feature %d: %w", i, j, err)
				}
				p.numCols[j][i] = v
			}
		}
	} else {
		p.yFloat = yFloat
		for i, row := range data {
			for j := 0; j < nFeat; j++ {
				v, err := strconv.ParseFloat(row[j+1], 64)
				if err != nil {
					return nil, fmt.Errorf("row %d: parsing feature %d: %w", i, j, err)
				}
				p.numCols[j][i] = v
			}
		}
	}

	return p, nil
}

func (p *parsedInput) frame() *frame.Frame {
	return frame.New(p.numCols, nil, nil)
}

func (p *parsedInput) yCtg() []int {
	out := make([]int, len(p.yLabel))
	for i, l := range p.yLabel {
		out[i] = p.classIdx[l]
	}
	return out
}
