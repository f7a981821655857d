// Package dataset loads the reference customer table used to pick customers
// and to describe the churned and retained cohorts.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/miradorstack/churn-explainer/internal/models"
	"github.com/miradorstack/churn-explainer/internal/utils"
)

// Required CSV columns. Anything else in the header is ignored.
const (
	ColCustomerID      = "CustomerId"
	ColSurname         = "Surname"
	ColCreditScore     = "CreditScore"
	ColGeography       = "Geography"
	ColGender          = "Gender"
	ColAge             = "Age"
	ColTenure          = "Tenure"
	ColBalance         = "Balance"
	ColNumOfProducts   = "NumOfProducts"
	ColHasCrCard       = "HasCrCard"
	ColIsActiveMember  = "IsActiveMember"
	ColEstimatedSalary = "EstimatedSalary"
	ColExited          = "Exited"
)

var requiredColumns = []string{
	ColCustomerID, ColSurname, ColCreditScore, ColGeography, ColGender, ColAge, ColTenure,
	ColBalance, ColNumOfProducts, ColHasCrCard, ColIsActiveMember, ColEstimatedSalary, ColExited,
}

// Dataset is the immutable reference table. Safe for concurrent reads.
type Dataset struct {
	records []models.CustomerRecord
	byID    map[int64]int
}

// Load reads the CSV file at path.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewAppError(utils.KindArtifactLoad, "dataset.Load", "open "+path, err)
	}
	defer f.Close()
	ds, err := Parse(f)
	if err != nil {
		return nil, utils.NewAppError(utils.KindArtifactLoad, "dataset.Load", "parse "+path, err)
	}
	return ds, nil
}

// Parse reads a headed CSV stream of customer records.
func Parse(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty dataset")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	ds := &Dataset{byID: make(map[int64]int)}
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if _, dup := ds.byID[rec.CustomerID]; dup {
			return nil, fmt.Errorf("line %d: duplicate customer id %d", line, rec.CustomerID)
		}
		ds.byID[rec.CustomerID] = len(ds.records)
		ds.records = append(ds.records, rec)
	}
	return ds, nil
}

func parseRow(row []string, cols map[string]int) (models.CustomerRecord, error) {
	p := rowParser{row: row, cols: cols}
	rec := models.CustomerRecord{
		CustomerID:      p.int64(ColCustomerID),
		Surname:         p.str(ColSurname),
		CreditScore:     p.int(ColCreditScore),
		Geography:       p.str(ColGeography),
		Gender:          p.str(ColGender),
		Age:             p.int(ColAge),
		Tenure:          p.int(ColTenure),
		Balance:         p.float(ColBalance),
		NumOfProducts:   p.int(ColNumOfProducts),
		HasCrCard:       p.bool(ColHasCrCard),
		IsActiveMember:  p.bool(ColIsActiveMember),
		EstimatedSalary: p.float(ColEstimatedSalary),
		Exited:          p.bool(ColExited),
	}
	return rec, p.err
}

// rowParser keeps the first conversion error so parseRow reads top-down.
type rowParser struct {
	row  []string
	cols map[string]int
	err  error
}

func (p *rowParser) str(col string) string {
	return strings.TrimSpace(p.row[p.cols[col]])
}

func (p *rowParser) float(col string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.str(col), 64)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *rowParser) int(col string) int {
	return int(p.int64(col))
}

func (p *rowParser) int64(col string) int64 {
	if p.err != nil {
		return 0
	}
	raw := p.str(col)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	// some exports write integral columns as 1.0
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		p.err = fmt.Errorf("column %s: %q is not an integer", col, raw)
		return 0
	}
	return int64(f)
}

func (p *rowParser) bool(col string) bool {
	if p.err != nil {
		return false
	}
	raw := p.str(col)
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	switch p.int64(col) {
	case 0:
		return false
	case 1:
		return true
	}
	if p.err == nil {
		p.err = fmt.Errorf("column %s: %q is not a flag", col, raw)
	}
	return false
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// ByID looks up one customer.
func (d *Dataset) ByID(id int64) (models.CustomerRecord, bool) {
	i, ok := d.byID[id]
	if !ok {
		return models.CustomerRecord{}, false
	}
	return d.records[i], true
}

// Customers returns every record in file order.
func (d *Dataset) Customers() []models.CustomerRecord {
	return append([]models.CustomerRecord(nil), d.records...)
}

// Cohort returns the records whose exited flag matches.
func (d *Dataset) Cohort(exited bool) []models.CustomerRecord {
	out := make([]models.CustomerRecord, 0)
	for _, r := range d.records {
		if r.Exited == exited {
			out = append(out, r)
		}
	}
	return out
}

// Options renders the customer selector entries in file order.
func (d *Dataset) Options() []models.CustomerOption {
	out := make([]models.CustomerOption, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, models.CustomerOption{CustomerID: r.CustomerID, Surname: r.Surname, Label: r.Label()})
	}
	return out
}
