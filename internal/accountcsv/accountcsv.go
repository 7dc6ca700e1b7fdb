// Package accountcsv bulk-creates accounts from a CSV file.
//
// The header row names the columns; phone_number and api_id are required,
// session_string and api_hash are optional. Column order does not matter.
package accountcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"acctconsole/internal/api"
)

// Creator is the part of the API client used by Import.
type Creator interface {
	CreateAccount(ctx context.Context, req api.CreateAccountRequest) (*api.CreateAccountResponse, error)
}

// Row is a parsed CSV line.
type Row struct {
	Line    int
	Request api.CreateAccountRequest
}

// Result summarizes an import.
type Result struct {
	Created    int      `json:"created"`
	Skipped    int      `json:"skipped"`
	AccountIDs []int64  `json:"account_ids"`
	Errors     []string `json:"errors"`
}

// Parse reads every row. Rows that fail validation are reported in errs
// and left out of rows; a bad header fails the whole parse.
func Parse(r io.Reader) (rows []Row, errs []string, err error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if key != "" {
			index[key] = i
		}
	}
	for _, col := range []string{"phone_number", "api_id"} {
		if _, ok := index[col]; !ok {
			return nil, nil, fmt.Errorf("csv missing '%s' column", col)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := index[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	seen := map[string]int{}
	line := 1
	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		line++
		if readErr != nil {
			errs = append(errs, fmt.Sprintf("row %d: %v", line, readErr))
			continue
		}
		if blank(record) {
			continue
		}
		phone := field(record, "phone_number")
		if phone == "" {
			errs = append(errs, fmt.Sprintf("row %d: phone_number required", line))
			continue
		}
		if first, dup := seen[phone]; dup {
			errs = append(errs, fmt.Sprintf("row %d: duplicate phone '%s' (first on row %d)", line, phone, first))
			continue
		}
		apiID, convErr := strconv.Atoi(field(record, "api_id"))
		if convErr != nil {
			errs = append(errs, fmt.Sprintf("row %d: api_id must be an integer", line))
			continue
		}
		seen[phone] = line
		rows = append(rows, Row{
			Line: line,
			Request: api.CreateAccountRequest{
				PhoneNumber:   phone,
				SessionString: field(record, "session_string"),
				APIID:         apiID,
				APIHash:       field(record, "api_hash"),
			},
		})
	}
	return rows, errs, nil
}

// Import parses r and creates each valid row through c. API failures are
// recorded per row and do not stop the import.
func Import(ctx context.Context, c Creator, r io.Reader) (Result, error) {
	result := Result{}
	rows, errs, err := Parse(r)
	if err != nil {
		return result, err
	}
	result.Errors = append(result.Errors, errs...)
	result.Skipped = len(errs)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		resp, err := c.CreateAccount(ctx, row.Request)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row.Line, err))
			continue
		}
		result.Created++
		result.AccountIDs = append(result.AccountIDs, resp.AccountID)
	}
	return result, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
