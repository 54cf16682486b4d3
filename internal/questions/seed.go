package questions

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// seedNamespace derives stable ids for seed rows that arrive without one.
var seedNamespace = uuid.MustParse("2f6c6f0e-4a8e-5d0b-9c1d-7f1e2a3b4c5d")

// SeedQuestion is one record of a seed file. Categories may arrive under
// "category", "categories" or "tags".
type SeedQuestion struct {
	ID         string      `json:"id" yaml:"id"`
	Question   string      `json:"question" yaml:"question"`
	Title      string      `json:"title" yaml:"title"`
	Passage    string      `json:"passage" yaml:"passage"`
	Answer     bool        `json:"answer" yaml:"answer"`
	Category   string      `json:"category" yaml:"category"`
	Categories []string    `json:"categories" yaml:"categories"`
	Tags       []string    `json:"tags" yaml:"tags"`
	Difficulty interface{} `json:"difficulty" yaml:"difficulty"`
	CreatedAt  int64       `json:"created_at" yaml:"created_at"`
}

// ParseSeed decodes seed records. format is "jsonl" or "yaml".
func ParseSeed(r io.Reader, format string) ([]SeedQuestion, error) {
	switch format {
	case "yaml", "yml":
		var items []SeedQuestion
		if err := yaml.NewDecoder(r).Decode(&items); err != nil {
			return nil, fmt.Errorf("decode yaml seed: %w", err)
		}
		return items, nil
	case "jsonl", "json":
		var items []SeedQuestion
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			var item SeedQuestion
			if err := json.Unmarshal([]byte(text), &item); err != nil {
				return nil, fmt.Errorf("decode seed line %d: %w", line, err)
			}
			items = append(items, item)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read seed: %w", err)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}
}

// normalizeDifficulty accepts numbers or numeric strings in 1..5 and falls
// back to the default for anything else.
func normalizeDifficulty(v interface{}) int {
	var d int
	switch x := v.(type) {
	case int:
		d = x
	case float64:
		d = int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return models.DefaultDifficulty
		}
		d = n
	default:
		return models.DefaultDifficulty
	}
	if d < models.MinDifficulty || d > models.MaxDifficulty {
		return models.DefaultDifficulty
	}
	return d
}

// ToQuestion converts a seed record. Records without an id get one derived
// from their text so repeated imports stay idempotent.
func (sq SeedQuestion) ToQuestion() (models.Question, error) {
	text := strings.TrimSpace(sq.Question)
	if text == "" {
		return models.Question{}, fmt.Errorf("seed question %q has no text", sq.ID)
	}

	raw := append([]string{}, sq.Categories...)
	raw = append(raw, sq.Tags...)
	if sq.Category != "" {
		raw = append(raw, sq.Category)
	}
	categories := NormalizeCategories(raw)
	if len(categories) == 0 {
		categories = []string{"general"}
	}

	id := strings.TrimSpace(sq.ID)
	if id == "" {
		id = uuid.NewSHA1(seedNamespace, []byte(text)).String()
	}

	return models.Question{
		ID:            id,
		Text:          text,
		Title:         strings.TrimSpace(sq.Title),
		Passage:       strings.TrimSpace(sq.Passage),
		CorrectAnswer: sq.Answer,
		Difficulty:    normalizeDifficulty(sq.Difficulty),
		Categories:    categories,
		Source:        models.SourceSeed,
		CreatedAt:     sq.CreatedAt,
	}, nil
}

type ImportReport struct {
	Imported int
	Skipped  int
	Invalid  int
}

// Import publishes seed records one transaction per question. Existing ids are
// left untouched. created_at is never earlier than the import, so a mid-day
// import cannot enter the pool of today's or any past daily set.
func (s *Service) Import(ctx context.Context, items []SeedQuestion) (*ImportReport, error) {
	report := &ImportReport{}
	now := s.now().Unix()
	for _, item := range items {
		q, err := item.ToQuestion()
		if err != nil {
			report.Invalid++
			s.log.Warn("skipping seed record", zap.Error(err))
			continue
		}
		if q.CreatedAt < now {
			q.CreatedAt = now
		}
		inserted, err := s.SaveQuestion(ctx, q)
		if err != nil {
			return report, fmt.Errorf("import %s: %w", q.ID, err)
		}
		if inserted {
			report.Imported++
		} else {
			report.Skipped++
		}
	}
	return report, nil
}
