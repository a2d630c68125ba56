package pin

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// columns holds header indexes for the fields we care about, -1 when the
// export doesn't carry the column.
type columns struct {
	rep    int
	time   int
	status int
	tags   int
	street int
	city   int
	state  int
	zip    int
}

// Header aliases seen across Lead Scout export revisions.
var (
	repAliases    = []string{"rep", "rep name", "created by", "user", "owner"}
	timeAliases   = []string{"status changed at", "status change date", "pin date", "timestamp", "created at", "date"}
	statusAliases = []string{"lead status", "status", "current status"}
	tagsAliases   = []string{"tags", "tag", "labels"}
	streetAliases = []string{"address", "street address", "street"}
	cityAliases   = []string{"city"}
	stateAliases  = []string{"state"}
	zipAliases    = []string{"zip", "zip code", "postal code"}
)

func findColumn(header []string, aliases []string) int {
	for _, alias := range aliases {
		for i, h := range header {
			if strings.ToLower(strings.TrimSpace(h)) == alias {
				return i
			}
		}
	}
	return -1
}

// mapColumns resolves the header row. Rep, timestamp and status are
// required; a missing address column only disables mapping downstream.
func mapColumns(header []string) (columns, []string, error) {
	cols := columns{
		rep:    findColumn(header, repAliases),
		time:   findColumn(header, timeAliases),
		status: findColumn(header, statusAliases),
		tags:   findColumn(header, tagsAliases),
		street: findColumn(header, streetAliases),
		city:   findColumn(header, cityAliases),
		state:  findColumn(header, stateAliases),
		zip:    findColumn(header, zipAliases),
	}

	switch {
	case cols.rep < 0:
		return cols, nil, errors.New("no rep column found in header")
	case cols.time < 0:
		return cols, nil, errors.New("no status-change timestamp column found in header")
	case cols.status < 0:
		return cols, nil, errors.New("no lead status column found in header")
	}

	var warnings []string
	if cols.street < 0 {
		warnings = append(warnings, "no address column found; map rendering is disabled for this file")
	}
	return cols, warnings, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// address joins whatever street/city/state/zip parts the export carries.
func (c columns) address(record []string) string {
	var parts []string
	for _, i := range []int{c.street, c.city, c.state, c.zip} {
		if v := field(record, i); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// ReadCSV reads an activity export into raw rows. The returned warnings
// are user-visible but non-fatal (e.g. a missing address column). An
// unreadable table or an unusable header is an error.
func ReadCSV(r io.Reader) ([]Raw, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header row: %w", err)
	}
	cols, warnings, err := mapColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var rows []Raw
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading row %d: %w", line+1, err)
		}
		line++
		rows = append(rows, Raw{
			Rep:       field(record, cols.rep),
			Timestamp: field(record, cols.time),
			Status:    field(record, cols.status),
			Tags:      field(record, cols.tags),
			Address:   cols.address(record),
			Line:      line,
		})
	}

	if len(rows) == 0 {
		return nil, nil, errors.New("activity export contains no data rows")
	}
	return rows, warnings, nil
}
