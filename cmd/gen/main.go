package main

import (
	"notekeeper/internal/infra/persistence/model"

	"gorm.io/gen"
)

// Generates type-safe query helpers for the postgres models into internal/infra/persistence/postgres/query.
func main() {
	gen := gen.NewGenerator(gen.Config{
		OutPath: "./internal/infra/persistence/postgres/query",
		Mode:    gen.WithDefaultQuery | gen.WithQueryInterface,
	})

	gen.ApplyBasic(model.All()...)

	gen.Execute()
}
