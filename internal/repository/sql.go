package repository

import (
	"fmt"
	"strings"

	"geocoding-etl/internal/models"
)

// Identifiers are double-quoted everywhere so the mixed-case schema names
// survive on PostgreSQL.

const listPointsQuery = `
	SELECT
		"Point"."pointLAT",
		"Point"."pointLNG",
		"Point"."pointStreetName",
		"Point"."pointHouseNumber",
		"Suburb"."suburbName",
		"City"."cityName",
		"Point"."pointPostalCode",
		"State"."stateUF",
		"Country"."countryName"
	FROM "Point"
	LEFT JOIN "Suburb" ON "Point"."suburbID" = "Suburb".id
	LEFT JOIN "City" ON "Suburb"."cityID" = "City".id
	LEFT JOIN "State" ON "City"."stateID" = "State".id
	LEFT JOIN "Country" ON "State"."countryID" = "Country".id
	ORDER BY "Point".id`

// schemaTemplate creates the tables parents first; %[1]s is the id column type.
var schemaTemplate = []string{
	`CREATE TABLE IF NOT EXISTS "Country" (
		id %[1]s,
		"countryName" VARCHAR(50) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS "State" (
		id %[1]s,
		"stateUF" VARCHAR(5) NOT NULL UNIQUE,
		"countryID" INTEGER NOT NULL REFERENCES "Country"(id)
	)`,
	`CREATE TABLE IF NOT EXISTS "City" (
		id %[1]s,
		"cityName" VARCHAR(50) NOT NULL UNIQUE,
		"stateID" INTEGER NOT NULL REFERENCES "State"(id)
	)`,
	`CREATE TABLE IF NOT EXISTS "Suburb" (
		id %[1]s,
		"suburbName" VARCHAR(100) NOT NULL UNIQUE,
		"cityID" INTEGER NOT NULL REFERENCES "City"(id)
	)`,
	`CREATE TABLE IF NOT EXISTS "Point" (
		id %[1]s,
		"pointLAT" FLOAT,
		"pointLNG" FLOAT,
		"pointStreetName" VARCHAR(100),
		"pointHouseNumber" VARCHAR(20),
		"pointPostalCode" VARCHAR(20),
		"suburbID" INTEGER NOT NULL REFERENCES "Suburb"(id)
	)`,
}

// dialect holds what differs between the SQL backends.
type dialect struct {
	quote       func(ident string) string
	placeholder func(n int) string
	autoID      string
}

func (d dialect) schema() []string {
	stmts := make([]string, len(schemaTemplate))
	for i, tmpl := range schemaTemplate {
		stmts[i] = fmt.Sprintf(tmpl, d.autoID)
	}
	return stmts
}

func (d dialect) findID(table, column string) string {
	return fmt.Sprintf("SELECT id FROM %s WHERE %s = %s", d.quote(table), d.quote(column), d.placeholder(1))
}

func (d dialect) insert(table string, cols []models.Column) (string, []any) {
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		names[i] = d.quote(c.Name)
		marks[i] = d.placeholder(i + 1)
		args[i] = c.Value
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		d.quote(table), strings.Join(names, ", "), strings.Join(marks, ", ")), args
}

func (d dialect) insertUnique(table, uniqueColumn string, cols []models.Column) (string, []any) {
	q, args := d.insert(table, cols)
	q = strings.TrimSuffix(q, " RETURNING id")
	return q + fmt.Sprintf(" ON CONFLICT (%s) DO NOTHING RETURNING id", d.quote(uniqueColumn)), args
}

func (d dialect) dropTable(table string) string {
	return "DROP TABLE " + d.quote(table)
}

func (d dialect) listPoints(limit int) (string, []any) {
	if limit > 0 {
		return listPointsQuery + " LIMIT " + d.placeholder(1), []any{limit}
	}
	return listPointsQuery, nil
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
