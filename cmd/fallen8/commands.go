package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	fallen8 "github.com/cosh/fallen-8-core-sub000"
	"github.com/cosh/fallen-8-core-sub000/model"
	"github.com/cosh/fallen-8-core-sub000/shortestpath"
	"github.com/cosh/fallen-8-core-sub000/store"
	"github.com/cosh/fallen-8-core-sub000/txn"
)

// batchSize bounds the definitions per generated transaction.
const batchSize = 10_000

func (a *app) generateCmd() *cobra.Command {
	var (
		vertices int
		edges    int
		seed     uint64
		labels   []string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random graph and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if vertices <= 0 {
				return fmt.Errorf("--vertices must be positive")
			}
			if edges < 0 {
				return fmt.Errorf("--edges must not be negative")
			}
			if len(labels) == 0 {
				return fmt.Errorf("--labels must name at least one label")
			}
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			start := time.Now()
			rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
			if err := generate(cmd, s.f8, rng, vertices, edges, labels); err != nil {
				return err
			}
			built := time.Since(start)

			name, err := s.f8.Save(ctx, s.mgr)
			if err != nil {
				return err
			}
			if s.keep > 0 {
				if _, err := s.mgr.Prune(ctx, s.keep); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.stdout, "saved %s: %s vertices, %s edges (built in %s)\n",
				name, humanize.Comma(int64(s.f8.VertexCount())), humanize.Comma(int64(s.f8.EdgeCount())),
				built.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().IntVar(&vertices, "vertices", 1000, "Number of vertices")
	cmd.Flags().IntVar(&edges, "edges", 5000, "Number of edges")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Random seed")
	cmd.Flags().StringSliceVar(&labels, "labels", []string{"knows"}, "Edge labels to draw from")
	return cmd
}

// generate fills f8 through the transaction pipeline. Vertices carry a
// "name" and a "rank"; edges carry a "weight" in [1, 10).
func generate(cmd *cobra.Command, f8 *fallen8.Fallen8, rng *rand.Rand, vertices, edges int, labels []string) error {
	ctx := cmd.Context()
	var last *txn.Handle

	for lo := 0; lo < vertices; lo += batchSize {
		hi := min(lo+batchSize, vertices)
		defs := make([]store.VertexDefinition, 0, hi-lo)
		for i := lo; i < hi; i++ {
			defs = append(defs, store.VertexDefinition{
				Label: "node",
				Properties: model.PropertiesOf(map[string]any{
					"name": "v" + strconv.Itoa(i),
					"rank": rng.IntN(100),
				}),
			})
		}
		h, err := f8.EnqueueTransaction(&txn.CreateVertices{Definitions: defs})
		if err != nil {
			return err
		}
		last = h
	}

	for lo := 0; lo < edges; lo += batchSize {
		hi := min(lo+batchSize, edges)
		defs := make([]store.EdgeDefinition, 0, hi-lo)
		for range hi - lo {
			defs = append(defs, store.EdgeDefinition{
				SourceID: model.ElementID(rng.IntN(vertices)),
				TargetID: model.ElementID(rng.IntN(vertices)),
				Label:    labels[rng.IntN(len(labels))],
				Properties: model.PropertiesOf(map[string]any{
					"weight": 1 + rng.Float64()*9,
				}),
			})
		}
		h, err := f8.EnqueueTransaction(&txn.CreateEdges{Definitions: defs})
		if err != nil {
			return err
		}
		last = h
	}

	if last == nil {
		return nil
	}
	// The pipeline is ordered, so the last transaction finishing means all
	// earlier ones have been processed.
	state, err := last.Wait(ctx)
	if err != nil {
		return err
	}
	if state != txn.Finished {
		return fmt.Errorf("generate: transaction %s %s: %w", last.ID(), state, last.Err())
	}
	return nil
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [NAME]",
		Short: "Show savegames and the contents of one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			names, err := s.mgr.List(ctx)
			if err != nil {
				return err
			}
			if name == "" {
				if name, err = s.mgr.Current(ctx); err != nil {
					return err
				}
			}
			info, err := s.mgr.Inspect(ctx, name)
			if err != nil {
				return err
			}
			if _, err := s.f8.Open(ctx, s.mgr, name); err != nil {
				return err
			}
			indices, err := s.f8.IndexNames()
			if err != nil {
				return err
			}

			w := a.stdout
			fmt.Fprintf(w, "savegames:   %d\n", len(names))
			fmt.Fprintf(w, "savegame:    %s\n", name)
			fmt.Fprintf(w, "format:      v%d %s/%s\n", info.Version, info.Codec, info.Compression)
			fmt.Fprintf(w, "size:        %s (%s raw)\n", humanize.Bytes(info.BodyLength), humanize.Bytes(info.RawLength))
			fmt.Fprintf(w, "vertices:    %s\n", humanize.Comma(int64(s.f8.VertexCount())))
			fmt.Fprintf(w, "edges:       %s\n", humanize.Comma(int64(s.f8.EdgeCount())))
			fmt.Fprintf(w, "next id:     %s\n", humanize.Comma(int64(s.f8.NextID())))
			if len(indices) > 0 {
				fmt.Fprintf(w, "indices:     %s\n", strings.Join(indices, ", "))
			}
			return nil
		},
	}
}

func (a *app) scanCmd() *cobra.Command {
	var (
		property string
		op       string
		value    string
		label    string
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the current savegame for elements by property",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			operator, err := model.ParseOperator(op)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, _, err := a.openCurrent(ctx, "")
			if err != nil {
				return err
			}
			defer s.Close()

			var opts []store.ScanOption
			if label != "" {
				opts = append(opts, store.WithLabel(label))
			}
			found, err := s.f8.GraphScan(ctx, property, model.ParseValue(value), operator, opts...)
			if err != nil {
				return err
			}
			for i, e := range found {
				if limit > 0 && i == limit {
					fmt.Fprintf(a.stdout, "... %s more\n", humanize.Comma(int64(len(found)-limit)))
					break
				}
				h := e.Header()
				v, _ := h.Property(property)
				kind := "edge"
				if e.IsVertex() {
					kind = "vertex"
				}
				fmt.Fprintf(a.stdout, "%d\t%s\t%s\t%s=%s\n", h.ID, kind, h.Label, property, v)
			}
			fmt.Fprintf(a.stdout, "%s matches\n", humanize.Comma(int64(len(found))))
			return nil
		},
	}
	cmd.Flags().StringVar(&property, "property", "", "Property to compare (required)")
	cmd.Flags().StringVar(&op, "op", "eq", "Operator: eq, ne, lt, lte, gt or gte")
	cmd.Flags().StringVar(&value, "value", "", "Literal to compare against")
	cmd.Flags().StringVar(&label, "label", "", "Only scan elements with this label")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of matches to print (0 prints all)")
	cmd.MarkFlagRequired("property")
	return cmd
}

func (a *app) pathCmd() *cobra.Command {
	var (
		maxDepth   int
		maxResults int
		maxWeight  float64
		weighted   bool
		label      string
	)
	cmd := &cobra.Command{
		Use:   "path FROM TO",
		Short: "Find shortest paths between two vertices of the current savegame",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseID(args[0])
			if err != nil {
				return err
			}
			to, err := parseID(args[1])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, _, err := a.openCurrent(ctx, "")
			if err != nil {
				return err
			}
			defer s.Close()

			req := shortestpath.Request{
				SourceID:      from,
				TargetID:      to,
				MaxDepth:      maxDepth,
				MaxResults:    maxResults,
				MaxPathWeight: maxWeight,
			}
			if label != "" {
				req.EdgePropertyFilter = func(l string, _ model.Direction) bool { return l == label }
			}
			if weighted {
				req.EdgeCost = edgeWeight
			}
			paths, err := s.f8.CalculateShortestPath(ctx, shortestpath.DefaultAlgorithm, req)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				fmt.Fprintf(a.stdout, "no path from %d to %d\n", from, to)
				return nil
			}
			for _, p := range paths {
				fmt.Fprintf(a.stdout, "%s\t(hops %d, weight %s)\n", p, p.Length(), strconv.FormatFloat(p.Weight, 'f', -1, 64))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 6, "Maximum number of hops")
	cmd.Flags().IntVar(&maxResults, "max-results", 10, "Maximum number of paths")
	cmd.Flags().Float64Var(&maxWeight, "max-weight", 0, "Drop paths heavier than this (0 keeps all)")
	cmd.Flags().BoolVar(&weighted, "weighted", false, `Weigh edges by their "weight" property`)
	cmd.Flags().StringVar(&label, "label", "", "Only follow edges with this label")
	return cmd
}

func (a *app) trimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trim",
		Short: "Drop tombstones from the current savegame and save the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, _, err := a.openCurrent(ctx, "")
			if err != nil {
				return err
			}
			defer s.Close()

			remap, err := s.f8.Trim(ctx)
			if err != nil {
				return err
			}
			if remap.Identity() {
				fmt.Fprintln(a.stdout, "nothing to trim")
				return nil
			}
			name, err := s.f8.Save(ctx, s.mgr)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "trimmed %s elements, saved %s\n", humanize.Comma(int64(remap.Removed())), name)
			return nil
		},
	}
}

func parseID(s string) (model.ElementID, error) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil || id < 0 {
		return model.InvalidID, fmt.Errorf("invalid element id %q", s)
	}
	return model.ElementID(id), nil
}

// edgeWeight reads the "weight" property, defaulting to 1.
func edgeWeight(e *model.Edge) float64 {
	v, ok := e.Property("weight")
	if !ok {
		return 1
	}
	if f, ok := v.AsFloat64(); ok && f > 0 {
		return f
	}
	return 1
}
