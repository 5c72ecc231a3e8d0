// package formatter reads subscriber files and renders workflow results as CSV and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/mwx/internal/models"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/desertthunder/mwx/internal/tasks"
)

// Meta columns of a subscriber file. Every other column is a field written as kind:internalname, e.g. text:email.
const (
	ColumnOptIn      = "optin"
	ColumnMailFormat = "mailformat"
	ColumnLanguage   = "language"
	ColumnStatus     = "status"
)

var kindNames = map[models.FieldKind]string{
	models.KindText:      "text",
	models.KindBoolean:   "bool",
	models.KindNumber:    "number",
	models.KindDateTime:  "date",
	models.KindSelection: "selection",
	models.KindMDB:       "mdb",
}

type column struct {
	meta string
	kind models.FieldKind
	name string
}

// ReadSubscribersCSV parses a subscriber file. Empty field cells are left out of the subscriber.
func ReadSubscribersCSV(r io.Reader) ([]models.Subscriber, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: subscriber file is empty", shared.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	columns, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	subscribers := []models.Subscriber{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		line, _ := reader.FieldPos(0)
		s, err := parseRecord(columns, record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", shared.ErrInvalidInput, line, err)
		}
		subscribers = append(subscribers, s)
	}

	return subscribers, nil
}

func parseHeader(header []string) ([]column, error) {
	columns := make([]column, len(header))
	seen := map[string]bool{}

	for i, h := range header {
		h = strings.TrimSpace(h)
		switch strings.ToLower(h) {
		case ColumnOptIn, ColumnMailFormat, ColumnLanguage, ColumnStatus:
			columns[i] = column{meta: strings.ToLower(h)}
			continue
		}

		kindName, name, ok := strings.Cut(h, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: column %q must be kind:internalname", shared.ErrInvalidInput, h)
		}
		kind, err := models.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %v", shared.ErrInvalidInput, h, err)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column for field %q", shared.ErrInvalidInput, name)
		}
		seen[name] = true
		columns[i] = column{kind: kind, name: name}
	}

	return columns, nil
}

func parseRecord(columns []column, record []string) (models.Subscriber, error) {
	var s models.Subscriber

	for i, c := range columns {
		value := strings.TrimSpace(record[i])

		switch c.meta {
		case ColumnOptIn:
			if value == "" {
				continue
			}
			v, err := strconv.ParseBool(value)
			if err != nil {
				return s, fmt.Errorf("invalid optin %q", value)
			}
			s.OptIn = v
		case ColumnMailFormat:
			f, err := parseMailFormat(value)
			if err != nil {
				return s, err
			}
			s.MailFormat = f
		case ColumnLanguage:
			s.Language = strings.ToUpper(value)
		case ColumnStatus:
			st, err := parseStatus(value)
			if err != nil {
				return s, err
			}
			s.Status = st
		default:
			if value == "" {
				continue
			}
			f, err := models.NewField(c.kind, c.name, value)
			if err != nil {
				return s, err
			}
			s.Fields = append(s.Fields, f)
		}
	}

	return s, nil
}

func parseMailFormat(v string) (models.MailFormat, error) {
	for _, f := range []models.MailFormat{models.MailFormatMultipart, models.MailFormatHTML, models.MailFormatText} {
		if strings.EqualFold(v, string(f)) {
			return f, nil
		}
	}
	if v == "" {
		return "", nil
	}
	return "", fmt.Errorf("invalid mailformat %q", v)
}

func parseStatus(v string) (models.SubscriberStatus, error) {
	for _, st := range []models.SubscriberStatus{
		models.StatusActive,
		models.StatusInactive,
		models.StatusActiveIfManualInactive,
		models.StatusInactiveIfActive,
	} {
		if strings.EqualFold(v, string(st)) {
			return st, nil
		}
	}
	if v == "" {
		return models.StatusUnchanged, nil
	}
	return "", fmt.Errorf("invalid status %q", v)
}

// ExportSubscribersToCSV writes subscribers in the format read by [ReadSubscribersCSV].
//
// Field columns follow the order fields first appear in.
func ExportSubscribersToCSV(subscribers []models.Subscriber) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	columns := []column{}
	index := map[string]int{}
	for _, s := range subscribers {
		for _, f := range s.Fields {
			if _, ok := index[f.InternalName]; ok {
				continue
			}
			if _, ok := kindNames[f.Kind]; !ok {
				return nil, fmt.Errorf("%w: field %q has no kind", shared.ErrInvalidInput, f.InternalName)
			}
			index[f.InternalName] = len(columns)
			columns = append(columns, column{kind: f.Kind, name: f.InternalName})
		}
	}

	headers := []string{ColumnOptIn, ColumnMailFormat, ColumnLanguage, ColumnStatus}
	for _, c := range columns {
		headers = append(headers, kindNames[c.kind]+":"+c.name)
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, s := range subscribers {
		record := make([]string, len(headers))
		record[0] = strconv.FormatBool(s.OptIn)
		record[1] = string(s.MailFormat)
		record[2] = s.Language
		record[3] = string(s.Status)
		for _, f := range s.Fields {
			record[4+index[f.InternalName]] = f.Value
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportFeedbackToCSV converts import feedback to CSV format with columns: UniqueID, Subscriber, Error
func ExportFeedbackToCSV(feedback []models.ImportFeedback) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"UniqueID", "Subscriber", "Error"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, fb := range feedback {
		subscriber := ""
		if !fb.Failed() {
			subscriber = fb.Subscriber.String()
		}
		if err := writer.Write([]string{fb.UniqueID, subscriber, fb.Error}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteFeedbackCSV writes the import feedback to path.
func WriteFeedbackCSV(feedback []models.ImportFeedback, path string) error {
	data, err := ExportFeedbackToCSV(feedback)
	if err != nil {
		return fmt.Errorf("failed to generate CSV: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return nil
}

// ImportReport renders the counters and the per record feedback of an import.
func ImportReport(result models.ImportResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Duplicates: %d\n", result.Duplicates)
	fmt.Fprintf(&buf, "Errors: %d\n", result.Errors)
	fmt.Fprintf(&buf, "Imported: %d\n", result.Imported)
	fmt.Fprintf(&buf, "Updated: %d\n", result.Updated)

	if len(result.Feedback) == 0 {
		buf.WriteString("No feedback data\n")
		return buf.Bytes()
	}

	buf.WriteString("Feedback data:\n")
	for i, fb := range result.Feedback {
		if fb.Failed() {
			fmt.Fprintf(&buf, "  %d. %s\n", i+1, fb.Error)
		} else {
			fmt.Fprintf(&buf, "  %d. %s, ID: %s\n", i+1, fb.UniqueID, fb.Subscriber)
		}
	}

	return buf.Bytes()
}

// FieldsReport renders subscriber fields with their type and, for selections, their options.
func FieldsReport(fields []models.Field) []byte {
	var buf bytes.Buffer

	if len(fields) == 0 {
		buf.WriteString("No fields found\n")
		return buf.Bytes()
	}

	for i, f := range fields {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, f.InternalName, f.Kind)
		for j, s := range f.Selections {
			fmt.Fprintf(&buf, "   %d. %s", j+1, s.InternalName)
			if s.Caption != "" {
				fmt.Fprintf(&buf, " %q", s.Caption)
			}
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// DefinitionsReport renders section definitions and their fields.
func DefinitionsReport(defs []models.SectionDefinition) []byte {
	var buf bytes.Buffer

	if len(defs) == 0 {
		buf.WriteString("No section definitions found\n")
		return buf.Bytes()
	}

	for i, d := range defs {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, d.Name)
		if len(d.Fields) == 0 {
			buf.WriteString("   No fields found\n")
			continue
		}
		for _, f := range d.Fields {
			fmt.Fprintf(&buf, "   - %s (%s)\n", f.InternalName, f.Kind)
		}
	}

	return buf.Bytes()
}

// RunSummary renders the outcome of each workflow stage.
func RunSummary(result *tasks.RunResult) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Profile: %s\n", result.ProfileID)
	fmt.Fprintf(&buf, "Imported subscribers: %d\n", len(result.ImportedIDs))
	if result.Import != nil && len(result.Import.Failures) > 0 {
		fmt.Fprintf(&buf, "Rejected subscribers: %d\n", len(result.Import.Failures))
		for _, fb := range result.Import.Failures {
			fmt.Fprintf(&buf, "  - %s: %s\n", fb.UniqueID, fb.Error)
		}
	}
	if result.HaltedAt == tasks.PhaseImport {
		buf.WriteString("Halted: no subscribers were imported\n")
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Campaign: %s (template %s)\n", result.Campaign.CampaignID, result.Campaign.TemplateID)
	if result.HaltedAt == tasks.PhaseCampaign {
		buf.WriteString("Halted: no campaign available\n")
		return buf.Bytes()
	}

	if result.HaltedAt == tasks.PhaseSections {
		buf.WriteString("Halted: sections were not created\n")
		return buf.Bytes()
	}
	buf.WriteString("Sections: created\n")

	if !result.Sent() {
		buf.WriteString("Something went wrong: the campaign was not sent\n")
		return buf.Bytes()
	}
	fmt.Fprintf(&buf, "Effective subscribers: %d\n", result.Send.RecipientsEffective)

	return buf.Bytes()
}
