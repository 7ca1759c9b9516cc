package api

import (
	"database/sql"

	"github.com/JaimeStill/glimpse/internal/classifier"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Classifier classifier.System
}

// NewDomain creates all domain systems from the API runtime.
// Classification history is recorded only when a database is configured.
func NewDomain(runtime *Runtime) *Domain {
	var db *sql.DB
	if runtime.Database != nil {
		db = runtime.Database.Connection()
	}

	return &Domain{
		Classifier: classifier.New(
			db,
			runtime.Engine,
			runtime.Threshold,
			runtime.MaxImagePixels,
			runtime.Logger,
			runtime.Pagination,
		),
	}
}
