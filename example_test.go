package sluice_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/sluice"
	"github.com/aretw0/sluice/pkg/adapters/memory"
	"github.com/aretw0/sluice/pkg/pipeline"
	"github.com/aretw0/sluice/pkg/registry"
)

// ExampleEngine_Migrate shows a pipeline written directly in Go, reading from and writing
// to memory.
func ExampleEngine_Migrate() {
	sexes := registry.Map(map[string]string{"Female": "f", "Male": "m"})
	src := memory.Records(
		map[string]any{"User Id": "7", "Sex": "Female"},
		map[string]any{"User Id": "8", "Sex": "Unknown"},
	)
	sink := memory.NewSink()

	eng := sluice.New()
	sum, err := eng.Migrate(context.Background(), src, sink, func(rc pipeline.Context) error {
		rc.Take("User Id").ParseInt(10).FormatString("_legacy_user_%d").Put("username")
		rc.Take("Sex").Lookup(sexes, pipeline.PassIfNotFound()).Put("sex")
		return rc.Err()
	})
	if err != nil {
		log.Fatal(err)
	}

	for _, row := range sink.Rows() {
		fmt.Println(row["username"], row["sex"])
	}
	fmt.Printf("%d read, %d emitted\n", sum.Read, sum.Emitted)
	// Output:
	// _legacy_user_7 f
	// _legacy_user_8 Unknown
	// 2 read, 2 emitted
}
