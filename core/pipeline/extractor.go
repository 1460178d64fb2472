package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/codectx/repograph/model"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// FileParsingError marks a file whose source could not be parsed. It is
// fatal to that file only, extraction of the remaining files continues.
type FileParsingError struct {
	FilePath string
	Err      error
}

func (e *FileParsingError) Error() string {
	return fmt.Sprintf("error parsing file %s: %v", e.FilePath, e.Err)
}

func (e *FileParsingError) Unwrap() error {
	return e.Err
}

// FileExtraction is the result of walking one source file. It carries
// everything the relationship inferencer needs: the typed entities, the
// raw import identifiers and the raw file text.
type FileExtraction struct {
	FilePath string
	Module   string
	Entities []*model.Entity
	Imports  []string
	RawText  string
}

// Extractor walks Python syntax trees and emits flat entity lists.
// It is safe for concurrent use, every call creates its own parser.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractFile parses one source file and returns its entities. A syntax
// error or invalid content yields a *FileParsingError.
func (e *Extractor) ExtractFile(ctx context.Context, filePath string, content []byte) (*FileExtraction, error) {
	if !utf8.Valid(content) {
		return nil, &FileParsingError{FilePath: filePath, Err: fmt.Errorf("content is not valid UTF-8")}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &FileParsingError{FilePath: filePath, Err: err}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, &FileParsingError{FilePath: filePath, Err: fmt.Errorf("parser returned no syntax tree")}
	}
	if root.HasError() {
		return nil, &FileParsingError{FilePath: filePath, Err: fmt.Errorf("source contains syntax errors")}
	}

	extraction := &FileExtraction{
		FilePath: filePath,
		Module:   ModulePath(filePath),
		RawText:  string(content),
	}

	walker := &fileWalker{
		module:     extraction.Module,
		content:    content,
		extraction: extraction,
	}
	walker.walkBody(root, nil)

	e.logger.Debug("Extracted file",
		slog.String("file", filePath),
		slog.Int("entities", len(extraction.Entities)),
		slog.Int("imports", len(extraction.Imports)))

	return extraction, nil
}

// fileWalker carries the per-file walk state. classStack holds the names
// of the enclosing classes so methods record their parent class; entries
// are popped when the class body has been walked.
type fileWalker struct {
	module     string
	content    []byte
	extraction *FileExtraction
	classStack []string
}

func (w *fileWalker) text(node *sitter.Node) string {
	return string(w.content[node.StartByte():node.EndByte()])
}

func (w *fileWalker) currentClass() string {
	if len(w.classStack) == 0 {
		return ""
	}
	return w.classStack[len(w.classStack)-1]
}

// walkBody processes the statements of a module or block node.
func (w *fileWalker) walkBody(body *sitter.Node, decorators []string) {
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "class_definition":
			w.processClass(child, decorators)
		case "function_definition":
			w.processFunction(child, decorators)
		case "decorated_definition":
			w.processDecorated(child)
		case "import_statement", "import_from_statement":
			w.processImport(child)
		}
	}
}

// processDecorated collects decorator source text and dispatches to the
// wrapped class or function definition.
func (w *fileWalker) processDecorated(node *sitter.Node) {
	var decorators []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(w.text(child), "@"))
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "class_definition":
			w.processClass(child, decorators)
		case "function_definition":
			w.processFunction(child, decorators)
		}
	}
}

func (w *fileWalker) processClass(node *sitter.Node, decorators []string) {
	var name string
	var bases []string
	var body *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier":
			name = w.text(child)
		case "argument_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				arg := child.Child(j)
				if arg.Type() == "identifier" || arg.Type() == "attribute" {
					bases = append(bases, w.text(arg))
				}
			}
		case "block":
			body = child
		}
	}

	if name == "" {
		return
	}

	entity := &model.Entity{
		Name:            name,
		Kind:            model.EntityKindClass,
		QualifiedModule: w.module,
		LineNumber:      int(node.StartPoint().Row + 1),
		Decorators:      decorators,
		Bases:           bases,
	}
	if body != nil {
		entity.Docstring = docstringOf(body, w.content)
	}
	w.addEntity(entity)
	w.addDocstringEntity(entity)

	w.classStack = append(w.classStack, name)
	if body != nil {
		w.walkBody(body, nil)
	}
	w.classStack = w.classStack[:len(w.classStack)-1]
}

func (w *fileWalker) processFunction(node *sitter.Node, decorators []string) {
	var name string
	var returnType string
	var isAsync bool
	var params *sitter.Node
	var body *sitter.Node

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "async":
			isAsync = true
		case "identifier":
			name = w.text(child)
		case "parameters":
			params = child
		case "type":
			returnType = w.text(child)
		case "block":
			body = child
		}
	}

	if name == "" {
		return
	}

	kind := model.EntityKindFunction
	parentClass := w.currentClass()
	if parentClass != "" {
		kind = model.EntityKindMethod
	}

	entity := &model.Entity{
		Name:            name,
		Kind:            kind,
		QualifiedModule: w.module,
		LineNumber:      int(node.StartPoint().Row + 1),
		Decorators:      decorators,
		ReturnType:      returnType,
		IsAsync:         isAsync,
		ParentClass:     parentClass,
	}
	if params != nil {
		entity.Parameters = parameterNames(params, w.content)
	}
	if body != nil {
		entity.Docstring = docstringOf(body, w.content)
		entity.Calls = collectCalls(body, w.content)
	}
	w.addEntity(entity)
	w.addDocstringEntity(entity)

	for _, param := range entity.Parameters {
		w.addEntity(&model.Entity{
			Name:            param,
			Kind:            model.EntityKindParameter,
			QualifiedModule: w.module,
			LineNumber:      entity.LineNumber,
		})
	}
	if returnType != "" {
		w.addEntity(&model.Entity{
			Name:            returnType,
			Kind:            model.EntityKindReturnType,
			QualifiedModule: w.module,
			LineNumber:      entity.LineNumber,
		})
	}

	if body != nil {
		w.walkBody(body, nil)
	}
}

func (w *fileWalker) processImport(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "dotted_name":
			w.extraction.Imports = append(w.extraction.Imports, w.text(child))
			// from x import y: only the module path before the import keyword
			if node.Type() == "import_from_statement" {
				return
			}
		case "aliased_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "dotted_name" {
					w.extraction.Imports = append(w.extraction.Imports, w.text(grandchild))
					break
				}
			}
			if node.Type() == "import_from_statement" {
				return
			}
		}
	}
}

func (w *fileWalker) addEntity(entity *model.Entity) {
	w.extraction.Entities = append(w.extraction.Entities, entity)
}

// addDocstringEntity creates a Docstring entity for a documented owner.
func (w *fileWalker) addDocstringEntity(owner *model.Entity) {
	if owner.Docstring == "" {
		return
	}
	w.addEntity(&model.Entity{
		Name:            owner.Docstring,
		Kind:            model.EntityKindDocstring,
		QualifiedModule: w.module,
		LineNumber:      owner.LineNumber,
	})
}

// parameterNames extracts the plain parameter names of a parameters node,
// dropping type annotations and default values.
func parameterNames(params *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(params.ChildCount()); i++ {
		child := params.Child(i)
		switch child.Type() {
		case "identifier":
			names = append(names, string(content[child.StartByte():child.EndByte()]))
		case "typed_parameter", "default_parameter", "typed_default_parameter",
			"list_splat_pattern", "dictionary_splat_pattern":
			for j := 0; j < int(child.ChildCount()); j++ {
				grandchild := child.Child(j)
				if grandchild.Type() == "identifier" {
					names = append(names, string(content[grandchild.StartByte():grandchild.EndByte()]))
					break
				}
			}
		}
	}
	return names
}

// docstringOf returns the docstring of a block node, the string literal
// of its first expression statement.
func docstringOf(block *sitter.Node, content []byte) string {
	if block.ChildCount() == 0 {
		return ""
	}
	first := block.Child(0)
	if first.Type() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	strNode := first.Child(0)
	if strNode.Type() != "string" {
		return ""
	}
	raw := string(content[strNode.StartByte():strNode.EndByte()])
	return strings.TrimSpace(strings.Trim(raw, `"'`))
}

// collectCalls walks a function body and records the names of directly
// invoked identifiers and attributes. This is a syntactic collection, a
// name collision between two unrelated call targets is indistinguishable.
func collectCalls(body *sitter.Node, content []byte) []string {
	seen := map[string]bool{}
	var calls []string

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "call" && node.ChildCount() > 0 {
			callee := node.Child(0)
			var name string
			switch callee.Type() {
			case "identifier":
				name = string(content[callee.StartByte():callee.EndByte()])
			case "attribute":
				// obj.method(...) records the attribute name
				for j := int(callee.ChildCount()) - 1; j >= 0; j-- {
					part := callee.Child(j)
					if part.Type() == "identifier" {
						name = string(content[part.StartByte():part.EndByte()])
						break
					}
				}
			}
			if name != "" && !seen[name] {
				seen[name] = true
				calls = append(calls, name)
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(body)

	return calls
}
