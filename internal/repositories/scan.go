package repositories

import (
	"database/sql"

	"pilotage-service/internal/models"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// nullDate converts an imported date to the DATE column format, NULL when unparseable.
func nullDate(s string) sql.NullString {
	t, ok := models.ParseDate(s)
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format("2006-01-02"), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
