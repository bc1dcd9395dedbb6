// Package corpus loads the question/answer knowledge base and its embedding
// artifacts. Row alignment is the core invariant here: embedding row i must
// always describe corpus entry i, so loading never drops or reorders rows,
// even when an answer cell is empty.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eunoia-health/eunoia/internal/domain"
)

// LoadCSV reads a question/answer corpus from a CSV file. The first row is a
// header; question and answer columns are located by name, accepting the
// language-suffixed variants used by the Swahili corpus.
func LoadCSV(path string) ([]domain.CorpusEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	entries, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}
	return entries, nil
}

// ReadCSV parses corpus entries from r.
func ReadCSV(r io.Reader) ([]domain.CorpusEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	questionCol, answerCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "question", "question_sw":
			questionCol = i
		case "answer", "answer_sw":
			answerCol = i
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, fmt.Errorf("missing question/answer columns in header %v", header)
	}

	var entries []domain.CorpusEntry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		entry := domain.CorpusEntry{}
		if questionCol < len(record) {
			entry.Question = strings.TrimSpace(record[questionCol])
		}
		if answerCol < len(record) {
			entry.Answer = strings.TrimSpace(record[answerCol])
		}
		// Empty answers stay in place to preserve row alignment with the
		// embedding matrix.
		entries = append(entries, entry)
	}

	return entries, nil
}
