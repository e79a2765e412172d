// Package csvimport turns a pasted spreadsheet export into leads.
package csvimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/industry"
	"github.com/wamelinkwebdesign/Wamelink-Webdesign-Production-sub000/internal/models"
)

var (
	ErrEmpty       = errors.New("csv text is empty")
	ErrNoColumns   = errors.New("no recognised columns in csv header")
	ErrMissingName = errors.New("company name is missing")
)

// maxReportedErrors caps the per-row error list returned to the client.
const maxReportedErrors = 50

// Field aliases, keyed by normalized header (lowercase, no spaces, dashes,
// underscores or dots).
var aliases = map[string]string{
	"bedrijfsnaam": "companyName",
	"bedrijf":      "companyName",
	"company":      "companyName",
	"companyname":  "companyName",
	"organisatie":  "companyName",
	"organization": "companyName",
	"firma":        "companyName",
	"handelsnaam":  "companyName",

	"contactpersoon": "contactPerson",
	"contact":        "contactPerson",
	"contactperson":  "contactPerson",
	"contactname":    "contactPerson",

	"email":        "email",
	"emailadres":   "email",
	"emailaddress": "email",
	"mail":         "email",

	"telefoon":       "phone",
	"telefoonnummer": "phone",
	"tel":            "phone",
	"phone":          "phone",
	"phonenumber":    "phone",
	"mobiel":         "phone",

	"website":  "website",
	"url":      "website",
	"site":     "website",
	"webadres": "website",
	"homepage": "website",

	"branche":   "industry",
	"industrie": "industry",
	"sector":    "industry",
	"industry":  "industry",

	"plaats":           "city",
	"stad":             "city",
	"city":             "city",
	"woonplaats":       "city",
	"vestigingsplaats": "city",

	"notities":    "notes",
	"notitie":     "notes",
	"opmerkingen": "notes",
	"opmerking":   "notes",
	"notes":       "notes",

	"status": "status",
}

type Result struct {
	Leads         []models.Lead     `json:"leads"`
	TotalRows     int               `json:"totalRows"`
	ImportedCount int               `json:"importedCount"`
	SkippedCount  int               `json:"skippedCount"`
	Errors        []string          `json:"errors,omitempty"`
	MappedColumns map[string]string `json:"mappedColumns"`
}

func (r *Result) skip(msg string) {
	r.SkippedCount++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, msg)
	}
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.Trim(h, `"'`)))
	return strings.NewReplacer(" ", "", "-", "", "_", "", ".", "").Replace(h)
}

// sniffDelimiter picks the most frequent of ',', ';' and tab in the header
// line, ignoring quoted sections.
func sniffDelimiter(header string) rune {
	counts := map[rune]int{}
	inQuotes := false
	for _, r := range header {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case inQuotes:
		case r == ',' || r == ';' || r == '\t':
			counts[r]++
		}
	}
	best := ','
	for _, d := range []rune{';', '\t'} {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// mapColumns resolves header cells to lead fields. "naam"/"name" maps to the
// company only when no explicit company column exists, otherwise to the
// contact person.
func mapColumns(header []string) (map[int]string, map[string]string) {
	idx := map[int]string{}
	mapped := map[string]string{}
	taken := map[string]bool{}
	var nameCols []int

	for i, h := range header {
		key := normalizeHeader(h)
		if key == "naam" || key == "name" {
			nameCols = append(nameCols, i)
			continue
		}
		field, ok := aliases[key]
		if !ok || taken[field] {
			continue
		}
		idx[i] = field
		taken[field] = true
		mapped[strings.TrimSpace(h)] = field
	}

	for _, i := range nameCols {
		var field string
		switch {
		case !taken["companyName"]:
			field = "companyName"
		case !taken["contactPerson"]:
			field = "contactPerson"
		default:
			continue
		}
		idx[i] = field
		taken[field] = true
		mapped[strings.TrimSpace(header[i])] = field
	}
	return idx, mapped
}

// Parse reads csvText into leads. Rows that fail to parse or lack a company
// name are skipped and counted. Duplicate detection is left to the store.
func Parse(csvText string) (*Result, error) {
	text := strings.TrimPrefix(csvText, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	firstLine := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		firstLine = text[:i]
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(firstLine)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols, mapped := mapColumns(header)
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}

	res := &Result{Leads: []models.Lead{}, MappedColumns: mapped}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		res.TotalRows++
		if err != nil {
			res.skip(fmt.Sprintf("rij %d: %v", res.TotalRows, err))
			continue
		}

		lead, err := rowToLead(record, cols)
		if err != nil {
			res.skip(fmt.Sprintf("rij %d: %v", res.TotalRows, err))
			continue
		}
		res.Leads = append(res.Leads, lead)
	}
	return res, nil
}

func rowToLead(record []string, cols map[int]string) (models.Lead, error) {
	var l models.Lead
	for i, field := range cols {
		if i >= len(record) {
			continue
		}
		v := strings.TrimSpace(record[i])
		switch field {
		case "companyName":
			l.CompanyName = v
		case "contactPerson":
			l.ContactPerson = v
		case "email":
			l.Email = strings.ToLower(strings.TrimPrefix(v, "mailto:"))
		case "phone":
			l.Phone = v
		case "website":
			l.Website = v
		case "industry":
			l.Industry = v
		case "city":
			l.City = v
		case "notes":
			l.Notes = v
		case "status":
			if st, err := models.ParseLeadStatus(strings.ToLower(v)); err == nil {
				l.Status = st
			}
		}
	}
	if l.CompanyName == "" {
		return l, ErrMissingName
	}
	l.Industry = industry.Normalize(l.Industry)
	if l.Status == "" {
		l.Status = models.StatusNew
	}
	return l, nil
}

// LeadImporter stores parsed leads, skipping duplicates.
type LeadImporter interface {
	ImportLeads(ctx context.Context, leads []models.Lead) ([]models.Lead, int, error)
}

// Import parses csvText and stores the result. The counts cover parse
// skips and duplicate skips, so ImportedCount+SkippedCount == TotalRows.
func Import(ctx context.Context, store LeadImporter, csvText string) (*Result, error) {
	res, err := Parse(csvText)
	if err != nil {
		return nil, err
	}

	inserted, dupes, err := store.ImportLeads(ctx, res.Leads)
	if err != nil {
		return nil, fmt.Errorf("store imported leads: %w", err)
	}
	if dupes > 0 {
		res.SkippedCount += dupes
		if len(res.Errors) < maxReportedErrors {
			res.Errors = append(res.Errors, fmt.Sprintf("%d dubbele bedrijven overgeslagen", dupes))
		}
	}
	if inserted == nil {
		inserted = []models.Lead{}
	}
	res.Leads = inserted
	res.ImportedCount = len(inserted)
	log.Printf("[csvimport] %d rows: %d imported, %d skipped", res.TotalRows, res.ImportedCount, res.SkippedCount)
	return res, nil
}
