package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/codectx/repograph/core/pipeline"
	"github.com/codectx/repograph/database"
	"github.com/codectx/repograph/model"
)

// RelationshipWriteError reports a single edge write that the store
// rejected. It is skipped and counted, the run itself keeps going.
type RelationshipWriteError struct {
	Relationship *model.Relationship
	Err          error
}

func (e *RelationshipWriteError) Error() string {
	return fmt.Sprintf("error storing %s edge %s -> %s: %v",
		e.Relationship.Kind, e.Relationship.SourceName, e.Relationship.TargetName, e.Err)
}

func (e *RelationshipWriteError) Unwrap() error {
	return e.Err
}

// Engine drives per-file extraction and inference results into the
// graph store, file by file, inside one repository indexing run.
// Indexing is single flow with no parallel writers, each file's writes
// are independent and ordering does not matter across files.
type Engine struct {
	nodes      database.NodesDBHandlerFunctions
	edges      database.EdgesDBHandlerFunctions
	extractor  *pipeline.Extractor
	inferencer *pipeline.Inferencer
	config     model.IndexConfig
	logger     *slog.Logger
}

func NewEngine(
	nodes database.NodesDBHandlerFunctions,
	edges database.EdgesDBHandlerFunctions,
	config model.IndexConfig,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		nodes:      nodes,
		edges:      edges,
		extractor:  pipeline.NewExtractor(logger),
		inferencer: pipeline.NewInferencer(logger),
		config:     config,
		logger:     logger,
	}
}

// IndexFiles indexes one repository's source files into the graph.
// Any single failing entity or relationship write is logged, skipped
// and reflected only in the returned counters. The returned stats carry
// status failed only when the repository has zero parseable files.
func (e *Engine) IndexFiles(ctx context.Context, repoID string, files []SourceFile) (*model.IndexStats, error) {
	run := newIndexRun(repoID)
	run.stats.Status = model.RunStatusRunning

	e.logger.Info("Indexing repository",
		slog.String("repo", repoID),
		slog.String("run", run.stats.RunID.String()),
		slog.Int("files", len(files)))

	var relationships []*model.Relationship

	for _, file := range files {
		if pipeline.IsTestFile(file.Path, e.config.SkipPathSubstrings) {
			run.stats.FilesSkipped++
			continue
		}

		extraction, err := e.extractor.ExtractFile(ctx, file.Path, file.Content)
		if err != nil {
			run.stats.ParseErrors++
			e.logger.Error("Error parsing file", slog.String("file", file.Path), slog.Any("error", err))
			continue
		}

		run.addExtraction(extraction)
		relationships = append(relationships, e.inferencer.Infer(extraction)...)
		run.stats.FilesProcessed++
	}

	if len(run.extractions) == 0 {
		e.logger.Error("No parseable source files in repository", slog.String("repo", repoID))
		return run.finish(model.RunStatusFailed), nil
	}

	e.upsertPackages(run)
	e.upsertFiles(run)
	e.upsertEntities(run)
	e.upsertRelationships(run, relationships)

	run.stats.Graph = e.graphStats()

	e.logger.Info("Repository indexed",
		slog.String("repo", repoID),
		slog.Int("entities", run.stats.EntitiesCreated),
		slog.Int("relationships", run.stats.RelationshipsCreated),
		slog.Int("parse_errors", run.stats.ParseErrors))

	return run.finish(model.RunStatusCompleted), nil
}

// upsertPackages creates all Package nodes of the run first, then wires
// parent to child CONTAINS edges only among packages present in the
// derived set. A package with no modeled ancestor gets no edge.
func (e *Engine) upsertPackages(run *indexRun) {
	packagePaths := make([]string, 0, len(run.packages))
	for packagePath := range run.packages {
		packagePaths = append(packagePaths, packagePath)
	}
	sort.Strings(packagePaths)

	for _, packagePath := range packagePaths {
		e.upsertNode(run, &model.Entity{
			Name:            packagePath,
			Kind:            model.EntityKindPackage,
			QualifiedModule: packagePath,
		})
	}

	for _, packagePath := range packagePaths {
		idx := strings.LastIndex(packagePath, ".")
		if idx < 0 {
			continue
		}
		parent := packagePath[:idx]
		if !run.packages[parent] {
			continue
		}
		e.upsertEdge(run, &model.Relationship{
			SourceName: parent,
			SourceKind: model.EntityKindPackage,
			TargetName: packagePath,
			TargetKind: model.EntityKindPackage,
			Kind:       model.RelationshipContains,
		})
	}
}

// upsertFiles creates one File node per extraction plus the containing
// package's CONTAINS edge.
func (e *Engine) upsertFiles(run *indexRun) {
	for _, extraction := range run.extractions {
		e.upsertNode(run, &model.Entity{
			Name:            extraction.FilePath,
			Kind:            model.EntityKindFile,
			QualifiedModule: extraction.Module,
		})

		if extraction.Module == "" {
			continue
		}
		e.upsertEdge(run, &model.Relationship{
			SourceName: extraction.Module,
			SourceKind: model.EntityKindPackage,
			TargetName: extraction.FilePath,
			TargetKind: model.EntityKindFile,
			Kind:       model.RelationshipContains,
		})
	}
}

// upsertEntities creates the entity nodes kind by kind. Classes,
// functions and methods additionally get a File DEFINES edge.
func (e *Engine) upsertEntities(run *indexRun) {
	order := []model.EntityKind{
		model.EntityKindClass,
		model.EntityKindFunction,
		model.EntityKindMethod,
		model.EntityKindParameter,
		model.EntityKindReturnType,
		model.EntityKindDocstring,
	}

	for _, kind := range order {
		for _, extraction := range run.extractions {
			for _, entity := range extraction.Entities {
				if entity.Kind != kind {
					continue
				}
				if !e.upsertNode(run, entity) {
					continue
				}

				switch kind {
				case model.EntityKindClass, model.EntityKindFunction, model.EntityKindMethod:
					e.upsertEdge(run, &model.Relationship{
						SourceName: extraction.FilePath,
						SourceKind: model.EntityKindFile,
						TargetName: entity.Name,
						TargetKind: kind,
						Kind:       model.RelationshipDefines,
					})
				}
			}
		}
	}
}

// upsertRelationships writes the inferred edges, disambiguating the
// Function versus Method label of callable endpoints against the run's
// seen set.
func (e *Engine) upsertRelationships(run *indexRun, relationships []*model.Relationship) {
	for _, rel := range relationships {
		resolved := &model.Relationship{
			SourceName: rel.SourceName,
			SourceKind: run.entityKindOf(rel.SourceName, rel.SourceKind),
			TargetName: rel.TargetName,
			TargetKind: run.entityKindOf(rel.TargetName, rel.TargetKind),
			Kind:       rel.Kind,
		}
		e.upsertEdge(run, resolved)
	}
}

func (e *Engine) upsertNode(run *indexRun, entity *model.Entity) bool {
	err := e.nodes.UpsertNode(entity)
	if err != nil {
		run.stats.EntityWriteErrors++
		e.logger.Error("Error storing entity",
			slog.String("entity", entity.Name),
			slog.String("kind", string(entity.Kind)),
			slog.Any("error", err))
		return false
	}
	run.stats.EntitiesCreated++
	return true
}

func (e *Engine) upsertEdge(run *indexRun, rel *model.Relationship) {
	_, err := e.edges.UpsertEdge(rel)
	if err != nil {
		run.stats.RelationshipErrors++
		e.logger.Warn("Failed to store relationship",
			slog.Any("error", &RelationshipWriteError{Relationship: rel, Err: err}))
		return
	}
	run.stats.RelationshipsCreated++
}

// graphStats reads point-in-time totals from the store. Count failures
// leave the corresponding map empty.
func (e *Engine) graphStats() model.GraphStats {
	stats := model.GraphStats{
		NodesByKind: map[string]int{},
		EdgesByKind: map[string]int{},
	}

	nodeCounts, err := e.nodes.CountNodesByKind()
	if err != nil {
		e.logger.Warn("Failed to count nodes", slog.Any("error", err))
	} else {
		stats.NodesByKind = nodeCounts
	}
	edgeCounts, err := e.edges.CountEdgesByKind()
	if err != nil {
		e.logger.Warn("Failed to count edges", slog.Any("error", err))
	} else {
		stats.EdgesByKind = edgeCounts
	}

	for _, count := range stats.NodesByKind {
		stats.TotalNodes += count
	}
	for _, count := range stats.EdgesByKind {
		stats.TotalEdges += count
	}

	return stats
}
