// Package ingest turns raw distributor sales files into ledger rows:
// read, normalize, resolve identities, rank duplicates, hash, upsert.
package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/fetcher"
	"github.com/sells-group/salespulse/internal/model"
)

// headerAliases maps the header spellings seen across distributor
// exports to the canonical column names.
var headerAliases = map[string]string{
	"cardcode":    "card_code",
	"card_code":   "card_code",
	"account":     "card_code",
	"shipto":      "ship_to_code",
	"ship_to":     "ship_to_code",
	"shiptocode":  "ship_to_code",
	"cardname":    "card_name",
	"card_name":   "card_name",
	"name":        "card_name",
	"address":     "address",
	"street":      "address",
	"city":        "city",
	"state":       "state",
	"zipcode":     "zip_code",
	"zip":         "zip_code",
	"postingdate": "posting_date",
	"posting_date": "posting_date",
	"date":        "posting_date",
	"itemcode":    "item_code",
	"item_code":   "item_code",
	"upc":         "item_code",
	"description": "description",
	"dscription":  "description",
	"quantity":    "quantity",
	"qty":         "quantity",
	"revenue":     "revenue",
	"linetotal":   "revenue",
	"line_total":  "revenue",
	"amount":      "revenue",
	"salesrep":    "sales_rep",
	"sales_rep":   "sales_rep",
	"slpname":     "sales_rep",
	"distributor": "distributor",
	"vendor":      "distributor",
}

// rawRow is the string-level shape of one file row before coercion.
type rawRow struct {
	CardCode    string `csv:"card_code"`
	ShipTo      string `csv:"ship_to_code"`
	Name        string `csv:"card_name"`
	Address     string `csv:"address"`
	City        string `csv:"city"`
	State       string `csv:"state"`
	Zip         string `csv:"zip_code"`
	PostingDate string `csv:"posting_date"`
	ItemCode    string `csv:"item_code"`
	Description string `csv:"description"`
	Quantity    string `csv:"quantity"`
	Revenue     string `csv:"revenue"`
	SalesRep    string `csv:"sales_rep"`
	Distributor string `csv:"distributor"`
}

// ReadReport summarizes what happened while reading one file.
type ReadReport struct {
	RowsRead    int `json:"rows_read"`
	RowsDropped int `json:"rows_dropped"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"20060102",
}

// ReadFile reads a CSV or XLSX sales file into raw records. Rows
// missing the account code or a parseable posting date are dropped and
// counted; malformed numerics degrade to zero.
func ReadFile(path string) ([]model.RawRecord, *ReadReport, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "ingest: open %s", path)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return readXLSXFile(path)
	default:
		return nil, nil, eris.Errorf("ingest: unsupported file type %s", filepath.Ext(path))
	}
}

// ReadCSV decodes a sales CSV from a reader.
func ReadCSV(r io.Reader) ([]model.RawRecord, *ReadReport, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read csv header")
	}
	dec, err := csvutil.NewDecoder(cr, canonicalHeader(header)...)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: csv decoder")
	}

	var records []model.RawRecord
	report := &ReadReport{}
	for {
		var row rawRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			// A mangled line should not take the file down.
			report.RowsDropped++
			zap.L().Warn("ingest: skipping unreadable csv row", zap.Error(err))
			continue
		}
		report.RowsRead++
		rec, ok := coerceRow(row, report.RowsRead)
		if !ok {
			report.RowsDropped++
			continue
		}
		records = append(records, rec)
	}
	return records, report, nil
}

func readXLSXFile(path string) ([]model.RawRecord, *ReadReport, error) {
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{})
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, &ReadReport{}, nil
	}

	canonical := canonicalHeader(rows[0])

	var records []model.RawRecord
	report := &ReadReport{}
	for _, cells := range rows[1:] {
		fields := map[string]string{}
		for i, cell := range cells {
			if i < len(canonical) && canonical[i] != "-" {
				fields[canonical[i]] = strings.TrimSpace(cell)
			}
		}
		if len(fields) == 0 {
			continue
		}
		report.RowsRead++
		rec, ok := coerceRow(rowFromMap(fields), report.RowsRead)
		if !ok {
			report.RowsDropped++
			continue
		}
		records = append(records, rec)
	}
	return records, report, nil
}

func rowFromMap(m map[string]string) rawRow {
	return rawRow{
		CardCode:    m["card_code"],
		ShipTo:      m["ship_to_code"],
		Name:        m["card_name"],
		Address:     m["address"],
		City:        m["city"],
		State:       m["state"],
		Zip:         m["zip_code"],
		PostingDate: m["posting_date"],
		ItemCode:    m["item_code"],
		Description: m["description"],
		Quantity:    m["quantity"],
		Revenue:     m["revenue"],
		SalesRep:    m["sales_rep"],
		Distributor: m["distributor"],
	}
}

// canonicalHeader maps raw header cells through the alias table.
// Unknown columns get "-" so the decoder ignores them.
func canonicalHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		key = strings.NewReplacer(" ", "", "\ufeff", "").Replace(key)
		if canonical, ok := headerAliases[key]; ok {
			out[i] = canonical
		} else if canonical, ok := headerAliases[strings.ReplaceAll(key, "_", "")]; ok {
			out[i] = canonical
		} else {
			out[i] = "-"
		}
	}
	return out
}

// coerceRow converts a string row to a RawRecord. Returns false when a
// hard-required key (account code or posting date) is unusable.
func coerceRow(row rawRow, arrival int) (model.RawRecord, bool) {
	code := strings.TrimSpace(row.CardCode)
	if code == "" {
		return model.RawRecord{}, false
	}
	date, ok := parseDate(row.PostingDate)
	if !ok {
		zap.L().Debug("ingest: dropping row with unparseable date",
			zap.String("account", code),
			zap.String("posting_date", row.PostingDate))
		return model.RawRecord{}, false
	}

	return model.RawRecord{
		AccountCode: code,
		ShipToCode:  strings.TrimSpace(row.ShipTo),
		Name:        strings.TrimSpace(row.Name),
		Street:      strings.TrimSpace(row.Address),
		City:        strings.TrimSpace(row.City),
		State:       strings.TrimSpace(row.State),
		Zip:         strings.TrimSpace(row.Zip),
		PostingDate: row.PostingDate,
		ItemCode:    strings.TrimSpace(row.ItemCode),
		Description: strings.TrimSpace(row.Description),
		Quantity:    parseFloat(row.Quantity),
		Revenue:     parseFloat(row.Revenue),
		SalesRep:    strings.TrimSpace(row.SalesRep),
		Distributor: strings.TrimSpace(row.Distributor),
		Arrival:     arrival,
		Date:        date,
	}, true
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(24 * time.Hour), true
		}
	}
	return time.Time{}, false
}

// parseFloat tolerates currency symbols and thousand separators.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
