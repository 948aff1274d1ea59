package catalog

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// LoadPDF extracts catalog items from a published menu or FAQ sheet.
// Blocks of text separated by blank lines become items: the first line is
// the name, the remaining lines the body.
func LoadPDF(path string) ([]Item, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extracting text from %s: %w", path, err)
	}

	var items []Item
	var block []string
	flush := func() {
		if len(block) == 0 {
			return
		}
		item := Item{Name: block[0]}
		if len(block) > 1 {
			item.Body = strings.Join(block[1:], " ")
		}
		items = append(items, item)
		block = nil
	}

	scanner := bufio.NewScanner(plain)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning text of %s: %w", path, err)
	}
	flush()

	if len(items) == 0 {
		return nil, fmt.Errorf("pdf %s contained no extractable items", path)
	}
	return items, nil
}
