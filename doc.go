// Package tidemark is an incremental data movement toolkit built around
// high-water-mark (HWM) read strategies.
//
// A high-water-mark records how far a previous run read from a source
// (for example the largest id or the latest updated_at seen). On the next
// run the read resumes strictly after that mark, so rows are never skipped
// and a row is re-read only when a run fails before committing.
//
// # Architecture
//
// Tidemark is organised around three layers:
//
// 1. HWM core: typed mark values (integer, date, timestamp), a pluggable
// mark store (in-memory, file-backed JSON), and an extensible type
// registry that rejects fractional column types at run time.
//
// 2. Read strategies: Snapshot, Incremental, SnapshotBatch and
// IncrementalBatch. A strategy is acquired for the duration of a scope,
// produces one or more bounded windows, and commits the new mark only
// when the scope exits cleanly.
//
// 3. Connectors: sources (PostgreSQL, MySQL) that discover bounds and run
// bounded queries, and destinations (CSV, JSONL) that receive record sets.
//
// # Quick Start
//
// Move rows incrementally from PostgreSQL to a JSONL file:
//
//	import (
//	    "context"
//	    "github.com/tidemark-io/tidemark/internal/pipeline"
//	    "github.com/tidemark-io/tidemark/pkg/config"
//	    "github.com/tidemark-io/tidemark/pkg/connector/registry"
//	    "github.com/tidemark-io/tidemark/pkg/hwm"
//	    "github.com/tidemark-io/tidemark/pkg/reader"
//	    "github.com/tidemark-io/tidemark/pkg/strategy"
//	)
//
//	srcCfg := config.NewBaseConfig("orders", "postgres")
//	srcCfg.Connection.DSN = "postgres://app@db:5432/shop"
//	srcCfg.Connection.Table = "public.orders"
//	srcCfg.HWM.Expression = "id"
//
//	source, _ := registry.CreateSource("postgres", srcCfg)
//	_ = source.Initialize(context.Background(), srcCfg)
//
//	dest, _ := registry.CreateDestination("jsonl", destCfg)
//	_ = dest.Initialize(context.Background(), destCfg)
//
//	r, _ := reader.New(source, reader.Config{
//	    Table:         "public.orders",
//	    HWMExpression: "id",
//	})
//
//	p, _ := pipeline.New(r, dest, strategy.NewSession())
//	err := p.Run(context.Background(), strategy.NewIncrementalBatch(hwm.IntStep(10000)))
//
// The first run reads id >= MIN(id) AND id <= MAX(id) in step-sized
// spans; subsequent runs read id > <stored mark>.
//
// # Key Packages
//
//	pkg/hwm           - Typed high-water-mark values, windows, type registry
//	pkg/hwm/store     - Mark persistence (memory, file)
//	pkg/strategy      - Read strategies and the session scope machinery
//	pkg/reader        - Bounded database reads driven by a strategy
//	pkg/connector     - Connector framework, sources and destinations
//	pkg/config        - YAML configuration with env substitution
//	pkg/errors        - Structured error handling
//	pkg/logger        - Structured logging
//	pkg/metrics       - Prometheus metrics
//	pkg/observability - OpenTelemetry tracing
//
// # Delivery Semantics
//
// Strategies commit the new mark only after a scope exits without error,
// and the committed value is the largest upper bound actually completed.
// A failed run leaves the stored mark untouched, so the next run re-reads
// from the old mark. Rows may be delivered more than once; they are never
// skipped.
package tidemark
