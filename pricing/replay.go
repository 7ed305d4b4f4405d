package pricing

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// LoadCSV replays a tick file into s and returns the number of rows applied.
// Later rows for a symbol replace earlier ones.
//
// Formats supported, with an optional header row starting with "time":
//
//	time,symbol,price
//	time,symbol,bid,ask    (the mid is stored)
func LoadCSV(path string, s *Static) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReadCSV(f, s)
}

func ReadCSV(rd io.Reader, s *Static) (int, error) {
	r := csv.NewReader(rd)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	n := 0
	for line := 1; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if line == 1 && len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}

		q, err := quoteFromRow(row)
		if err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		if err := s.Set(q); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
}

func quoteFromRow(row []string) (Quote, error) {
	if len(row) < 3 {
		return Quote{}, fmt.Errorf("bad row (need time,symbol,price or time,symbol,bid,ask): %v", row)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return Quote{}, fmt.Errorf("bad time %q: %w", row[0], err)
	}

	price, err := decimal.NewFromString(strings.TrimSpace(row[2]))
	if err != nil {
		return Quote{}, fmt.Errorf("bad price %q: %w", row[2], err)
	}
	if len(row) >= 4 && strings.TrimSpace(row[3]) != "" {
		ask, err := decimal.NewFromString(strings.TrimSpace(row[3]))
		if err != nil {
			return Quote{}, fmt.Errorf("bad ask %q: %w", row[3], err)
		}
		price = price.Add(ask).Div(two)
	}
	if !price.IsPositive() {
		return Quote{}, fmt.Errorf("non-positive price %s", price)
	}

	return Quote{Symbol: row[1], Price: price, Time: t.UTC()}, nil
}
