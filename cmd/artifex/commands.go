// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/poiesic/artifex/artifact"
	"github.com/poiesic/artifex/core"
	"github.com/poiesic/artifex/ingestion"
	"github.com/poiesic/artifex/loader"
	"github.com/poiesic/artifex/search"
	"github.com/urfave/cli/v2"
)

// loaderTypes lists the accepted --type values.
var loaderTypes = []string{"text", "csv", "json", "pdf", "image", "audio", "blob", "records", "web", "sql"}

// fileLoaders maps the --type values read from local files to their loader
// constructors.
var fileLoaders = map[string]func(...loader.Option) (*loader.Base, error){
	"text":    loader.NewTextLoader,
	"csv":     loader.NewCsvLoader,
	"json":    loader.NewJSONLoader,
	"pdf":     loader.NewPdfLoader,
	"image":   loader.NewImageLoader,
	"audio":   loader.NewAudioLoader,
	"blob":    loader.NewBlobLoader,
	"records": loader.NewRecordsLoader,
}

func loaderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "type",
			Aliases: []string{"t"},
			Usage:   "Loader type (" + strings.Join(loaderTypes, ", ") + ")",
			Value:   "text",
		},
		&cli.BoolFlag{
			Name:  "s3",
			Usage: "Read sources as s3://bucket/key objects and parse them with --type",
		},
		&cli.StringFlag{
			Name:  "dsn",
			Usage: "Database connection string for the sql loader",
		},
		&cli.StringFlag{
			Name:  "delimiter",
			Usage: "CSV field delimiter",
		},
		&cli.StringFlag{
			Name:  "encoding",
			Usage: "Source text encoding",
		},
		&cli.StringFlag{
			Name:  "encoding-errors",
			Usage: "Handling of undecodable input (strict, replace, ignore)",
		},
		&cli.StringFlag{
			Name:  "password",
			Usage: "Password for encrypted PDF sources",
		},
	}
}

// loadOptions returns per-call load options for the loader flags that were set.
func loadOptions(c *cli.Context) []loader.LoadOption {
	var opts []loader.LoadOption
	if c.IsSet("delimiter") {
		opts = append(opts, loader.WithDelimiter(c.String("delimiter")))
	}
	if c.IsSet("encoding") {
		opts = append(opts, loader.WithEncoding(c.String("encoding")))
	}
	if c.IsSet("encoding-errors") {
		opts = append(opts, loader.WithEncodingErrors(c.String("encoding-errors")))
	}
	if c.IsSet("password") {
		opts = append(opts, loader.WithPassword(c.String("password")))
	}
	return opts
}

func parserFor(kind string) (loader.Parser, error) {
	switch kind {
	case "text", "web":
		return loader.TextParser{}, nil
	case "csv":
		return loader.CsvParser{}, nil
	case "json":
		return loader.JSONParser{}, nil
	case "pdf":
		return loader.PdfParser{}, nil
	case "image":
		return loader.ImageParser{}, nil
	case "audio":
		return loader.AudioParser{}, nil
	case "blob":
		return loader.BlobParser{}, nil
	case "records":
		return loader.RecordsParser{}, nil
	default:
		return nil, fmt.Errorf("unknown loader type %q: must be one of %s", kind, strings.Join(loaderTypes, ", "))
	}
}

// newLoader builds the loader selected by the flags. The returned cleanup
// function releases any connection the loader holds.
func (a *application) newLoader(c *cli.Context) (loader.Loader, func(), error) {
	kind := c.String("type")
	opts := []loader.Option{loader.WithDefaults(a.cfg.LoadOptions()...)}
	noop := func() {}

	if c.Bool("s3") {
		parser, err := parserFor(kind)
		if err != nil {
			return nil, nil, err
		}
		reader, err := loader.NewMinioObjectReader(a.cfg.ObjectStore())
		if err != nil {
			return nil, nil, err
		}
		l, err := loader.NewS3Loader(reader, parser, opts...)
		return l, noop, err
	}

	switch kind {
	case "web":
		l, err := loader.NewWebLoader(loader.HTMLScraper{Fetcher: a.cfg.HTTPFetcher()}, opts...)
		return l, noop, err
	case "sql":
		dsn := a.cfg.SQL.DSN
		if c.IsSet("dsn") {
			dsn = c.String("dsn")
		}
		if dsn == "" {
			return nil, nil, fmt.Errorf("sql loader requires --dsn or sql.dsn in the configuration")
		}
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		l, err := loader.NewSQLLoader(loader.DBDriver{DB: db}, opts...)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return l, func() { db.Close() }, nil
	}

	newFileLoader, ok := fileLoaders[kind]
	if !ok {
		return nil, nil, fmt.Errorf("unknown loader type %q: must be one of %s", kind, strings.Join(loaderTypes, ", "))
	}
	l, err := newFileLoader(opts...)
	return l, noop, err
}

// sources returns the command arguments as loader sources. Local records
// files are decoded up front since the records loader takes in-memory data.
func sources(c *cli.Context) ([]any, error) {
	if c.NArg() == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}
	decode := c.String("type") == "records" && !c.Bool("s3")
	out := make([]any, 0, c.NArg())
	for _, s := range c.Args().Slice() {
		if !decode {
			out = append(out, s)
			continue
		}
		records, err := readRecords(s)
		if err != nil {
			return nil, err
		}
		out = append(out, records)
	}
	return out, nil
}

// readRecords decodes a JSON file of the form
// {"columns": [...], "rows": [{...}, ...]}.
func readRecords(path string) (loader.Records, error) {
	var records loader.Records
	data, err := os.ReadFile(path)
	if err != nil {
		return records, fmt.Errorf("failed to read records: %w", err)
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return records, fmt.Errorf("invalid records file %s: %w", path, err)
	}
	return records, nil
}

func (a *application) loadCommand(c *cli.Context) error {
	srcs, err := sources(c)
	if err != nil {
		return err
	}
	l, cleanup, err := a.newLoader(c)
	if err != nil {
		return err
	}
	defer cleanup()

	pool, err := loader.NewPool(a.cfg.Loader.PoolSize)
	if err != nil {
		return err
	}
	defer pool.Release()

	artifacts, err := loader.NewCollectionLoader(l, pool).LoadCollection(c.Context, srcs, loadOptions(c)...)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(artifacts))
	for k := range artifacts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if c.Bool("json") {
			data, err := artifact.ToJSON(artifacts[k])
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			fmt.Fprintf(a.stdout, "%s\t%s\n", k, data)
			continue
		}
		fmt.Fprintf(a.stdout, "== %s (%s) ==\n%s\n", k, artifacts[k].Tag(), artifacts[k].ToText())
	}
	return nil
}

func parseMeta(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	meta := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid metadata %q: expected KEY=VALUE", p)
		}
		meta[k] = v
	}
	return meta, nil
}

func (a *application) ingestCommand(c *cli.Context) error {
	srcs, err := sources(c)
	if err != nil {
		return err
	}
	meta, err := parseMeta(c.StringSlice("meta"))
	if err != nil {
		return err
	}
	l, cleanup, err := a.newLoader(c)
	if err != nil {
		return err
	}
	defer cleanup()

	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	pipeline, err := engine.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	namespace := a.namespace(c)
	result, err := pipeline.Ingest(c.Context, l, srcs, &ingestion.IngestOptions{
		Namespace:   namespace,
		Meta:        meta,
		Overwrite:   c.Bool("overwrite"),
		LoadOptions: loadOptions(c),
	})
	if result != nil {
		fmt.Fprintf(a.stdout, "Namespace: %s\nStored: %d\nSkipped: %d\n", namespace, result.Stored, result.Skipped)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

type searchOutput struct {
	ID         string         `json:"id"`
	Score      float32        `json:"score"`
	Similarity float32        `json:"similarity"`
	Text       string         `json:"text"`
	Meta       map[string]any `json:"meta,omitempty"`
}

func (a *application) searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("a query is required")
	}

	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	var opts []search.Option
	if c.IsSet("min-score") {
		opts = append(opts, search.WithMinScore(float32(c.Float64("min-score"))))
	} else if a.cfg.Search.MinScore != nil {
		opts = append(opts, search.WithMinScore(*a.cfg.Search.MinScore))
	}
	if a.cfg.Search.VerbatimBoost != nil {
		opts = append(opts, search.WithVerbatimBoost(*a.cfg.Search.VerbatimBoost))
	}
	searcher, err := engine.NewSearcher(opts...)
	if err != nil {
		return err
	}

	count := a.cfg.Search.Count
	if c.IsSet("count") {
		count = c.Int("count")
	}
	results, err := searcher.Search(c.Context, query, count, a.namespace(c))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.Bool("json") {
		out := make([]searchOutput, 0, len(results))
		for _, r := range results {
			out = append(out, searchOutput{
				ID:         r.ID,
				Score:      r.Score,
				Similarity: r.Similarity,
				Text:       r.Artifact.ToText(),
				Meta:       userMeta(r.Meta),
			})
		}
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for i, r := range results {
		fmt.Fprintf(a.stdout, "%d. [%.3f] %s\n%s\n\n", i+1, r.Score, r.ID, r.Artifact.ToText())
	}
	return nil
}

// userMeta drops the serialized artifact from entry metadata.
func userMeta(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta))
	for k, v := range meta {
		if k == core.ArtifactMetaKey {
			continue
		}
		out[k] = v
	}
	return out
}

func (a *application) reembedCommand(c *cli.Context) error {
	cfg := a.cfg.ReembedConfig()
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("report-interval") {
		cfg.ReportInterval = c.Int("report-interval")
	}
	if c.IsSet("max-retries") {
		cfg.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.RetryDelay = c.Duration("retry-delay")
	}
	if c.Bool("skip-normalize") {
		cfg.Normalize = false
	}

	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	engine, err := a.openEngine()
	if err != nil {
		return err
	}
	defer engine.Close()

	reembedder, err := engine.NewReembedder(cfg, a.stderr)
	if err != nil {
		return err
	}

	namespace := a.namespace(c)
	fmt.Fprintf(a.stderr, "Database: %s\n", a.cfg.Storage.Path)
	fmt.Fprintf(a.stderr, "Embedding host: %s\n", a.cfg.Embedding.Host)
	fmt.Fprintf(a.stderr, "Embedding model: %s\n", a.cfg.Embedding.Model)
	fmt.Fprintf(a.stderr, "Namespace: %s\n", namespace)
	fmt.Fprintln(a.stderr)

	stats, err := reembedder.Run(c.Context, namespace)
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Fprintf(a.stdout, "Reembedded %d of %d entries in %s (skipped %d)\n",
		stats.Updated, stats.Total, stats.Elapsed.Round(time.Millisecond), stats.Skipped)

	if err := engine.Compact(); err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	return nil
}

func (a *application) namespace(c *cli.Context) string {
	if c.IsSet("namespace") {
		return c.String("namespace")
	}
	return a.cfg.Storage.Namespace
}
