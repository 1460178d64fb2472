package pipeline

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/codectx/repograph/model"
)

// Inferencer derives typed relationships from the entities of one file,
// its import identifiers and its raw text. Targets are referenced by
// name only, cross file resolution happens at upsert time.
type Inferencer struct {
	logger *slog.Logger
}

func NewInferencer(logger *slog.Logger) *Inferencer {
	return &Inferencer{logger: logger}
}

// Infer returns the relationship list of one extracted file.
func (r *Inferencer) Infer(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship

	relationships = append(relationships, inferInheritance(extraction)...)
	relationships = append(relationships, inferDecorations(extraction)...)
	relationships = append(relationships, inferImports(extraction)...)
	relationships = append(relationships, inferCalls(extraction)...)
	relationships = append(relationships, inferContainment(extraction)...)
	relationships = append(relationships, inferParameters(extraction)...)
	relationships = append(relationships, inferReturns(extraction)...)
	relationships = append(relationships, inferDocumentation(extraction)...)

	r.logger.Debug("Inferred relationships",
		slog.String("file", extraction.FilePath),
		slog.Int("count", len(relationships)))

	return relationships
}

// inferInheritance emits one INHERITS_FROM edge per base class name.
// Qualified base names are reduced to their suffix, "pkg.Base" to "Base".
func inferInheritance(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		if entity.Kind != model.EntityKindClass {
			continue
		}
		for _, base := range entity.Bases {
			baseName := base
			if idx := strings.LastIndex(base, "."); idx >= 0 {
				baseName = base[idx+1:]
			}
			relationships = append(relationships, &model.Relationship{
				SourceName: entity.Name,
				SourceKind: model.EntityKindClass,
				TargetName: baseName,
				TargetKind: model.EntityKindClass,
				Kind:       model.RelationshipInheritsFrom,
			})
		}
	}
	return relationships
}

// inferDecorations emits one DECORATED_BY edge per decorator, targeting
// the decorator's innermost identifier. Call arguments and attribute
// qualification are stripped, "app.route('/x')" targets "route".
func inferDecorations(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		switch entity.Kind {
		case model.EntityKindClass, model.EntityKindFunction, model.EntityKindMethod:
		default:
			continue
		}
		for _, decorator := range entity.Decorators {
			relationships = append(relationships, &model.Relationship{
				SourceName: entity.Name,
				SourceKind: entity.Kind,
				TargetName: decoratorTarget(decorator),
				TargetKind: model.EntityKindFunction,
				Kind:       model.RelationshipDecoratedBy,
			})
		}
	}
	return relationships
}

func decoratorTarget(decorator string) string {
	name := decorator
	if idx := strings.Index(name, "("); idx >= 0 {
		name = name[:idx]
	}
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.TrimSpace(name)
}

// inferImports declares an IMPORTS edge only when an imported module's
// name literally appears inside an entity's docstring. This is a weak
// heuristic and no substitute for true import graph analysis.
func inferImports(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		if entity.Docstring == "" {
			continue
		}
		for _, importName := range extraction.Imports {
			if !strings.Contains(entity.Docstring, importName) {
				continue
			}
			relationships = append(relationships, &model.Relationship{
				SourceName: entity.Name,
				SourceKind: entity.Kind,
				TargetName: importName,
				TargetKind: model.EntityKindPackage,
				Kind:       model.RelationshipImports,
			})
		}
	}
	return relationships
}

// inferCalls matches "name(" anywhere in the file's raw text and
// attributes the call to every other function in the file. This over
// approximates and can produce false positive call edges.
func inferCalls(extraction *FileExtraction) []*model.Relationship {
	var callables []*model.Entity
	for _, entity := range extraction.Entities {
		if entity.Kind == model.EntityKindFunction || entity.Kind == model.EntityKindMethod {
			callables = append(callables, entity)
		}
	}

	var relationships []*model.Relationship
	for _, callee := range callables {
		pattern := regexp.MustCompile(`\b` + regexp.QuoteMeta(callee.Name) + `\s*\(`)
		// The definition line itself always matches, a call needs more
		if len(pattern.FindAllStringIndex(extraction.RawText, 2)) < 2 {
			continue
		}
		for _, caller := range callables {
			if caller.Name == callee.Name && caller.Kind == callee.Kind {
				continue
			}
			relationships = append(relationships, &model.Relationship{
				SourceName: caller.Name,
				SourceKind: caller.Kind,
				TargetName: callee.Name,
				TargetKind: callee.Kind,
				Kind:       model.RelationshipCalls,
			})
		}
	}
	return relationships
}

// inferContainment emits module package to top level entity CONTAINS
// edges and class to method CONTAINS plus HAS_METHOD edges.
func inferContainment(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		switch entity.Kind {
		case model.EntityKindClass, model.EntityKindFunction:
			if extraction.Module == "" {
				continue
			}
			relationships = append(relationships, &model.Relationship{
				SourceName: extraction.Module,
				SourceKind: model.EntityKindPackage,
				TargetName: entity.Name,
				TargetKind: entity.Kind,
				Kind:       model.RelationshipContains,
			})
		case model.EntityKindMethod:
			if entity.ParentClass == "" {
				continue
			}
			relationships = append(relationships,
				&model.Relationship{
					SourceName: entity.ParentClass,
					SourceKind: model.EntityKindClass,
					TargetName: entity.Name,
					TargetKind: model.EntityKindMethod,
					Kind:       model.RelationshipHasMethod,
				},
				&model.Relationship{
					SourceName: entity.ParentClass,
					SourceKind: model.EntityKindClass,
					TargetName: entity.Name,
					TargetKind: model.EntityKindMethod,
					Kind:       model.RelationshipContains,
				})
		}
	}
	return relationships
}

func inferParameters(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		if entity.Kind != model.EntityKindFunction && entity.Kind != model.EntityKindMethod {
			continue
		}
		for _, param := range entity.Parameters {
			relationships = append(relationships, &model.Relationship{
				SourceName: entity.Name,
				SourceKind: entity.Kind,
				TargetName: param,
				TargetKind: model.EntityKindParameter,
				Kind:       model.RelationshipHasParam,
			})
		}
	}
	return relationships
}

func inferReturns(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		if entity.Kind != model.EntityKindFunction && entity.Kind != model.EntityKindMethod {
			continue
		}
		if entity.ReturnType == "" {
			continue
		}
		relationships = append(relationships, &model.Relationship{
			SourceName: entity.Name,
			SourceKind: entity.Kind,
			TargetName: entity.ReturnType,
			TargetKind: model.EntityKindReturnType,
			Kind:       model.RelationshipReturns,
		})
	}
	return relationships
}

func inferDocumentation(extraction *FileExtraction) []*model.Relationship {
	var relationships []*model.Relationship
	for _, entity := range extraction.Entities {
		switch entity.Kind {
		case model.EntityKindClass, model.EntityKindFunction, model.EntityKindMethod:
		default:
			continue
		}
		if entity.Docstring == "" {
			continue
		}
		relationships = append(relationships, &model.Relationship{
			SourceName: entity.Name,
			SourceKind: entity.Kind,
			TargetName: entity.Docstring,
			TargetKind: model.EntityKindDocstring,
			Kind:       model.RelationshipDocumentedBy,
		})
	}
	return relationships
}
