package fallen8_test

import (
	"context"
	"fmt"
	"log"

	fallen8 "github.com/cosh/fallen-8-core-sub000"
	"github.com/cosh/fallen-8-core-sub000/blobstore"
	"github.com/cosh/fallen-8-core-sub000/index"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/persistence"
	"github.com/cosh/fallen-8-core-sub000/shortestpath"
	"github.com/cosh/fallen-8-core-sub000/store"
	"github.com/cosh/fallen-8-core-sub000/txn"
)

// Example_transactions demonstrates batched writes through the pipeline.
func Example_transactions() {
	f8 := fallen8.New()
	defer f8.Close()

	ctx := context.Background()
	cities := &txn.CreateVertices{Definitions: []store.VertexDefinition{
		{Label: "city", Properties: model.PropertiesOf(map[string]any{"name": "Berlin", "population": 3_700_000})},
		{Label: "city", Properties: model.PropertiesOf(map[string]any{"name": "Leipzig", "population": 600_000})},
	}}
	if _, err := f8.EnqueueTransaction(cities); err != nil {
		log.Fatal(err)
	}
	roads, err := f8.EnqueueTransaction(&txn.CreateEdges{Definitions: []store.EdgeDefinition{
		{SourceID: 0, TargetID: 1, Label: "road"},
	}})
	if err != nil {
		log.Fatal(err)
	}
	state, err := roads.Wait(ctx)
	if err != nil {
		log.Fatal(err)
	}

	big, _ := f8.GraphScan(ctx, "population", model.Int(1_000_000), model.OpGreaterThan)
	name, _ := big[0].Header().Property("name")
	fmt.Println(state, f8.VertexCount(), f8.EdgeCount(), name.StringValue())
	// Output: finished 2 1 Berlin
}

// Example_indexScan demonstrates a range index.
func Example_indexScan() {
	f8 := fallen8.New()
	defer f8.Close()

	ages, err := f8.CreateIndex("age", index.KindRange, nil)
	if err != nil {
		log.Fatal(err)
	}
	for _, age := range []int{12, 25, 47, 63} {
		v, _ := f8.CreateVertex(store.VertexDefinition{Label: "person"})
		_ = ages.AddOrUpdate(model.Int(int64(age)), v.ID)
	}

	ctx := context.Background()
	adults, _ := f8.RangeIndexScan(ctx, "age", model.Int(18), model.Int(65), true, false)
	fmt.Println(len(adults))
	// Output: 2
}

// Example_shortestPath demonstrates a path search.
func Example_shortestPath() {
	f8 := fallen8.New()
	defer f8.Close()

	var ids []model.ElementID
	for range 4 {
		v, _ := f8.CreateVertex(store.VertexDefinition{})
		ids = append(ids, v.ID)
	}
	for _, e := range [][2]int{{0, 1}, {1, 3}, {0, 2}, {2, 3}} {
		_, _, _ = f8.CreateEdge(store.EdgeDefinition{SourceID: ids[e[0]], TargetID: ids[e[1]], Label: "link"})
	}

	paths, _ := f8.CalculateShortestPath(context.Background(), shortestpath.DefaultAlgorithm, shortestpath.Request{
		SourceID: ids[0], TargetID: ids[3], MaxDepth: 4, MaxResults: 10,
	})
	for _, p := range paths {
		fmt.Println(p.Length(), p.Weight)
	}
	// Output:
	// 2 2
	// 2 2
}

// Example_saveOpen demonstrates savegames on a blob store.
func Example_saveOpen() {
	ctx := context.Background()
	mgr := persistence.NewManager(blobstore.NewMemoryStore())

	src := fallen8.New()
	defer src.Close()
	_, _ = src.CreateVertex(store.VertexDefinition{Label: "a"})
	_, _ = src.CreateVertex(store.VertexDefinition{Label: "b"})
	if _, err := src.Save(ctx, mgr); err != nil {
		log.Fatal(err)
	}

	dst := fallen8.New()
	defer dst.Close()
	info, err := dst.Open(ctx, mgr, "")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(dst.VertexCount(), info.Codec)
	// Output: 2 go-json
}
