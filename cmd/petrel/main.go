package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/petreldb/petrel/internal"
	"github.com/petreldb/petrel/internal/engine"
	"github.com/petreldb/petrel/internal/heap"
	"github.com/petreldb/petrel/internal/record"
)

func main() {
	cfgPath := flag.String("config", "petrel.yaml", "path to config file")
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		// No config file is fine for a demo run; fall back to defaults.
		cfg = &internal.PetrelConfig{AppName: "petrel"}
		cfg.Storage.Mode = "memory"
		cfg.Storage.Workdir = "petrel_data"
		cfg.Storage.PoolCapacity = 128
		cfg.Log.Level = "info"
	}

	level := slog.LevelInfo
	if cfg.Log.Level == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	db, err := engine.Open(engine.Options{
		DataDir:      cfg.Storage.Workdir,
		InMemory:     cfg.Storage.Mode == "memory",
		PoolCapacity: cfg.Storage.PoolCapacity,
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	schema := record.Schema{
		Cols: []record.Column{
			{Name: "id", Type: record.ColInteger, Nullable: false},
			{Name: "name", Type: record.ColVarChar, Nullable: false, MaxLen: 64},
			{Name: "balance", Type: record.ColFloat, Nullable: true},
			{Name: "active", Type: record.ColBool, Nullable: false},
		},
	}

	tbl, err := db.CreateTable("accounts", schema)
	if err != nil {
		log.Fatalf("create table: %v", err)
	}

	for i := 1; i <= 100; i++ {
		_, err := tbl.Insert([]any{
			int32(i),
			fmt.Sprintf("account-%d", i),
			float64(i) * 1.5,
			i%2 == 0,
		})
		if err != nil {
			log.Fatalf("insert row %d: %v", i, err)
		}
	}
	if err := db.SyncTableMeta(tbl); err != nil {
		log.Fatalf("sync table meta: %v", err)
	}

	idx, err := db.CreateIndex("accounts", "by_id", "id")
	if err != nil {
		log.Fatalf("create index: %v", err)
	}
	defer idx.Close()

	v, err := idx.Search(57)
	if err != nil {
		log.Fatalf("index search: %v", err)
	}
	row, err := tbl.Get(heap.UnpackTID(v))
	if err != nil {
		log.Fatalf("heap get: %v", err)
	}
	fmt.Printf("id=57 -> %v\n", row)

	cur, err := idx.RangeScan(40, 60)
	if err != nil {
		log.Fatalf("range scan: %v", err)
	}
	n := 0
	for cur.Next() {
		n++
	}
	if err := cur.Err(); err != nil {
		log.Fatalf("range scan iterate: %v", err)
	}
	fmt.Printf("keys in [40,60]: %d\n", n)

	if err := idx.Delete(57); err != nil {
		log.Fatalf("index delete: %v", err)
	}
	if _, err := idx.Search(57); err != nil {
		fmt.Printf("search 57 after delete: %v\n", err)
	}

	if err := tbl.Flush(); err != nil {
		log.Fatalf("flush: %v", err)
	}
	slog.Info("demo.done", "table", tbl.Name, "pages", tbl.PageCount, "treeHeight", idx.Height())
}
