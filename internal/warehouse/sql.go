package warehouse

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// SQLBuilder renders the fixed SQL statements against fully-qualified
// project.dataset identifiers. The aggregation query takes the year as
// a real query parameter; the ML statements interpolate the country as
// an escaped string literal because BigQuery DDL does not accept
// parameters.
type SQLBuilder struct {
	project string
	dataset string
	table   string
	model   string
}

// NewSQLBuilder creates a builder for the given identifiers.
func NewSQLBuilder(project, dataset, table, model string) (*SQLBuilder, error) {
	for _, id := range []string{project, dataset, table, model} {
		if err := validateIdent(id); err != nil {
			return nil, err
		}
	}
	return &SQLBuilder{project: project, dataset: dataset, table: table, model: model}, nil
}

func validateIdent(id string) error {
	if id == "" {
		return eris.New("sql: empty identifier")
	}
	if strings.ContainsAny(id, "`\n") {
		return eris.Errorf("sql: invalid identifier %q", id)
	}
	return nil
}

// TableRef returns the backtick-quoted fully-qualified table.
func (b *SQLBuilder) TableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", b.project, b.dataset, b.table)
}

// ModelRef returns the backtick-quoted fully-qualified model.
func (b *SQLBuilder) ModelRef() string {
	return fmt.Sprintf("`%s.%s.%s`", b.project, b.dataset, b.model)
}

// TopEmittersQuery returns the top-5-by-country aggregation for the
// @year parameter.
func (b *SQLBuilder) TopEmittersQuery() string {
	return fmt.Sprintf(`SELECT country, SUM(co2) AS total_co2
FROM %s
WHERE year = @year
GROUP BY country
ORDER BY total_co2 DESC
LIMIT 5`, b.TableRef())
}

// CreateModelStmt returns the CREATE OR REPLACE MODEL statement
// training an OLS linear regression of co2 on {year, population} for
// one country.
func (b *SQLBuilder) CreateModelStmt(country string) string {
	return fmt.Sprintf(`CREATE OR REPLACE MODEL %s
OPTIONS(model_type='linear_reg', input_label_cols=['co2']) AS
SELECT year, population, co2
FROM %s
WHERE country = '%s'`, b.ModelRef(), b.TableRef(), escapeString(country))
}

// PredictQuery returns the ML.PREDICT query for the country's years at
// or above minYear.
func (b *SQLBuilder) PredictQuery(country string, minYear int) string {
	return fmt.Sprintf(`SELECT year, predicted_co2
FROM ML.PREDICT(MODEL %s,
  (SELECT year, population FROM %s
   WHERE country = '%s' AND year >= %d))
ORDER BY year`, b.ModelRef(), b.TableRef(), escapeString(country), minYear)
}

// escapeString escapes a value for inclusion in a single-quoted
// BigQuery string literal.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return s
}
