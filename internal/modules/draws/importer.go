package draws

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/augur/internal/config"
	"github.com/aristath/augur/internal/domain"
)

// ImportResult summarizes one CSV import.
type ImportResult struct {
	Read     int `json:"read"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"` // IDs already stored
}

// Importer loads draws from CSV.
//
// Each row is: id, date, P primary numbers, S secondary numbers.
// Dates may be RFC3339, YYYY-MM-DD or unix seconds. A leading header row
// (first field not numeric) is ignored.
type Importer struct {
	repo *Repository
	game config.GameConfig
	log  zerolog.Logger
}

// NewImporter creates a CSV importer validating rows against the game shape.
func NewImporter(repo *Repository, game config.GameConfig, log zerolog.Logger) *Importer {
	return &Importer{
		repo: repo,
		game: game,
		log:  log.With().Str("component", "draw_importer").Logger(),
	}
}

// Import parses every row before writing so a malformed file stores nothing.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var parsed []domain.Draw
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if line == 1 && isHeader(record) {
			continue
		}

		d, err := i.parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		parsed = append(parsed, d)
	}

	sort.Slice(parsed, func(a, b int) bool { return parsed[a].ID < parsed[b].ID })

	inserted, err := i.repo.InsertBatch(ctx, parsed)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Read: len(parsed), Inserted: inserted, Skipped: len(parsed) - inserted}
	i.log.Info().
		Int("read", result.Read).
		Int("inserted", result.Inserted).
		Int("skipped", result.Skipped).
		Msg("Draw import complete")

	return result, nil
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	return err != nil
}

func (i *Importer) parseRecord(record []string) (domain.Draw, error) {
	want := 2 + i.game.PrimaryCount + i.game.SecondaryCount
	if len(record) != want {
		return domain.Draw{}, fmt.Errorf("expected %d fields, got %d", want, len(record))
	}

	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil || id <= 0 {
		return domain.Draw{}, fmt.Errorf("invalid draw id %q", record[0])
	}

	drawnAt, err := parseDate(strings.TrimSpace(record[1]))
	if err != nil {
		return domain.Draw{}, err
	}

	numbers := make([]int, 0, want-2)
	for _, field := range record[2:] {
		v, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return domain.Draw{}, fmt.Errorf("invalid number %q", field)
		}
		numbers = append(numbers, v)
	}

	d := domain.Draw{
		ID:        id,
		DrawnAt:   drawnAt,
		Primary:   numbers[:i.game.PrimaryCount:i.game.PrimaryCount],
		Secondary: numbers[i.game.PrimaryCount:],
	}
	if err := Validate(d, i.game); err != nil {
		return domain.Draw{}, err
	}
	sort.Ints(d.Primary)
	sort.Ints(d.Secondary)
	return d, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid draw date %q", s)
}

// Validate checks a draw against the configured game shape.
func Validate(d domain.Draw, game config.GameConfig) error {
	if err := checkNumbers("primary", d.Primary, game.PrimaryCount, game.Domain); err != nil {
		return fmt.Errorf("draw %d: %w", d.ID, err)
	}
	if err := checkNumbers("secondary", d.Secondary, game.SecondaryCount, game.SecondaryDomain); err != nil {
		return fmt.Errorf("draw %d: %w", d.ID, err)
	}
	return nil
}

func checkNumbers(label string, values []int, count, max int) error {
	if len(values) != count {
		return fmt.Errorf("expected %d %s numbers, got %d", count, label, len(values))
	}
	seen := make(map[int]bool, len(values))
	for _, v := range values {
		if v < 1 || v > max {
			return fmt.Errorf("%s number %d outside 1..%d", label, v, max)
		}
		if seen[v] {
			return fmt.Errorf("duplicate %s number %d", label, v)
		}
		seen[v] = true
	}
	return nil
}
