package letter

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const csvDateLayout = "2006-01-02"

var csvHeader = []string{"Number", "Subject", "Correspondent", "Letter date", "Note",
	"Invitation", "Event date", "Event time", "Event location", "Handled", "Registered"}

type CsvRenderer struct {
}

func NewCsvRenderer() *CsvRenderer {
	return &CsvRenderer{}
}

// Render writes one header row and one row per letter. Incoming letters
// leave the note column empty.
func (c *CsvRenderer) Render(letters []Letter) (string, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	rows := make([][]string, 0, len(letters)+1)
	rows = append(rows, csvHeader)
	for _, l := range letters {
		rows = append(rows, []string{
			l.LetterNumber,
			l.Subject,
			l.Correspondent,
			formatDate(l.LetterDate, csvDateLayout),
			l.Note,
			strconv.FormatBool(l.IsInvitation),
			formatDate(l.EventDate, time.RFC3339),
			l.EventTime,
			l.EventLocation,
			strconv.FormatBool(l.EventHandled),
			l.CreatedAt.Format(time.RFC3339),
		})
	}

	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

func formatDate(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}
