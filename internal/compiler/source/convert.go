package source

import (
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/terrascale/minimalendpoints/internal/compiler/decl"
)

// unit is one parsed package, ready for conversion.
type unit struct {
	fset    *token.FileSet
	pkgPath string
	pkgName string
	files   []*ast.File
}

// converted is what one package contributes to the snapshot.
type converted struct {
	classes  []*decl.Class
	problems []decl.Problem
}

// convertPackage turns the struct types of a package and their methods into
// classes. Methods may live in any file of the package.
func convertPackage(u unit) converted {
	var out converted
	byName := make(map[string]*decl.Class)

	for _, f := range u.files {
		imports := fileImports(f)
		for _, d := range f.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				c := convertStruct(u, imports, ts, st, doc, &out.problems)
				byName[c.Name] = c
				out.classes = append(out.classes, c)
			}
		}
	}

	for _, f := range u.files {
		imports := fileImports(f)
		for _, d := range f.Decls {
			fd, ok := d.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
				continue
			}
			c, ok := byName[receiverTypeName(fd.Recv.List[0].Type)]
			if !ok {
				continue
			}
			mergeImports(c, imports)
			m := convertMethod(u, c, fd, &out.problems)
			c.Methods = append(c.Methods, m)
			if p, ok := methodProperty(m, fd); ok {
				c.Properties = append(c.Properties, p)
			}
		}
	}

	return out
}

func convertStruct(u unit, imports map[string]string, ts *ast.TypeSpec, st *ast.StructType, doc *ast.CommentGroup, problems *[]decl.Problem) *decl.Class {
	c := &decl.Class{
		Name:     ts.Name.Name,
		Package:  u.pkgPath,
		PkgName:  u.pkgName,
		Imports:  copyImports(imports),
		Location: location(u.fset, ts.Name.Pos()),
	}
	c.Directives, c.Doc = splitComments(u.fset, doc, c.Resolve, problems)

	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}
		b := convertBase(c, field.Type)
		b.Location = location(u.fset, field.Pos())
		if field.Tag != nil {
			b.Tags = parseTags(field.Tag.Value)
			c.Properties = append(c.Properties, tagProperties(b)...)
		}
		c.Bases = append(c.Bases, b)
	}
	return c
}

// convertBase reads an embedded field such as endpoint.Base, *Shared or
// endpoint.Grouped[groups.Admin].
func convertBase(c *decl.Class, expr ast.Expr) decl.Base {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	var b decl.Base
	switch x := expr.(type) {
	case *ast.IndexExpr:
		b.Type = c.Resolve(types.ExprString(x.X))
		b.TypeArgs = []decl.TypeRef{c.Resolve(types.ExprString(x.Index))}
	case *ast.IndexListExpr:
		b.Type = c.Resolve(types.ExprString(x.X))
		for _, idx := range x.Indices {
			b.TypeArgs = append(b.TypeArgs, c.Resolve(types.ExprString(idx)))
		}
	default:
		b.Type = c.Resolve(types.ExprString(expr))
	}
	return b
}

func parseTags(raw string) map[string]string {
	unquoted, err := strconv.Unquote(raw)
	if err != nil {
		return nil
	}
	tag := reflect.StructTag(unquoted)
	out := make(map[string]string)
	for key := range decl.TagProperties {
		if v, ok := tag.Lookup(key); ok {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// tagProperties turns recognised tags of an embedded base into initializer
// properties, in a stable order.
func tagProperties(b decl.Base) []decl.Property {
	keys := make([]string, 0, len(b.Tags))
	for k := range b.Tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var props []decl.Property
	for _, k := range keys {
		name := decl.TagProperties[k]
		var value decl.Expr = decl.StringLit{Value: b.Tags[k]}
		if name == decl.PropGroupType {
			value = decl.TypeExpr{Type: b.Tags[k]}
		}
		props = append(props, decl.Property{
			Name:     name,
			Form:     decl.FormInitializer,
			Value:    value,
			Location: b.Location,
		})
	}
	return props
}

func convertMethod(u unit, c *decl.Class, fd *ast.FuncDecl, problems *[]decl.Problem) *decl.Method {
	recv := fd.Recv.List[0]
	m := &decl.Method{
		Name:     fd.Name.Name,
		Location: location(u.fset, fd.Name.Pos()),
	}
	if len(recv.Names) > 0 {
		m.Receiver = recv.Names[0].Name
	}
	_, m.PointerReceiver = recv.Type.(*ast.StarExpr)

	for _, field := range fd.Type.Params.List {
		typ := types.ExprString(field.Type)
		if len(field.Names) == 0 {
			m.Params = append(m.Params, decl.Param{Type: typ})
			continue
		}
		for _, n := range field.Names {
			m.Params = append(m.Params, decl.Param{Name: n.Name, Type: typ})
		}
	}
	if fd.Type.Results != nil {
		for _, field := range fd.Type.Results.List {
			typ := types.ExprString(field.Type)
			count := len(field.Names)
			if count == 0 {
				count = 1
			}
			for i := 0; i < count; i++ {
				m.Results = append(m.Results, typ)
			}
		}
	}

	m.Directives, m.Doc = splitComments(u.fset, fd.Doc, c.Resolve, problems)
	if len(m.Params) == 0 && len(m.Results) == 1 && fd.Body != nil {
		m.Body = summarizeBody(fd.Body)
	}
	return m
}

// methodProperty records a convention method as a property. A body that is
// a single return statement is an expression; anything longer is a getter.
func methodProperty(m *decl.Method, fd *ast.FuncDecl) (decl.Property, bool) {
	if !decl.IsPropertyName(m.Name) && m.Name != decl.PropPrefix {
		return decl.Property{}, false
	}
	if m.Body == nil {
		return decl.Property{}, false
	}
	form := decl.FormGetter
	if len(fd.Body.List) == 1 {
		if _, ok := fd.Body.List[0].(*ast.ReturnStmt); ok {
			form = decl.FormExpression
		}
	}
	return decl.Property{
		Name:     m.Name,
		Form:     form,
		Body:     m.Body,
		Location: m.Location,
	}, true
}

// summarizeBody counts top-level statements and collects every return
// expression of the method itself, skipping function literals.
func summarizeBody(body *ast.BlockStmt) *decl.Body {
	b := &decl.Body{Statements: len(body.List)}
	ast.Inspect(body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.ReturnStmt:
			if len(x.Results) == 1 {
				b.Returns = append(b.Returns, convertExpr(x.Results[0]))
			} else {
				b.Returns = append(b.Returns, decl.Opaque{Text: "return"})
			}
			return false
		}
		return true
	})
	return b
}

// convertExpr maps an expression onto the bounded vocabulary.
func convertExpr(e ast.Expr) decl.Expr {
	switch x := e.(type) {
	case *ast.ParenExpr:
		return convertExpr(x.X)
	case *ast.BasicLit:
		if x.Kind == token.STRING {
			if s, err := strconv.Unquote(x.Value); err == nil {
				return decl.StringLit{Value: s}
			}
		}
	case *ast.Ident:
		return decl.Ident{Name: x.Name}
	case *ast.SelectorExpr:
		if id, ok := x.X.(*ast.Ident); ok {
			return decl.Selector{Qualifier: id.Name, Name: x.Sel.Name}
		}
	case *ast.CompositeLit:
		// G{}
		if x.Type != nil && len(x.Elts) == 0 {
			return decl.TypeExpr{Type: types.ExprString(x.Type)}
		}
	case *ast.UnaryExpr:
		// &G{}
		if lit, ok := x.X.(*ast.CompositeLit); ok && x.Op == token.AND && lit.Type != nil && len(lit.Elts) == 0 {
			return decl.TypeExpr{Type: types.ExprString(lit.Type)}
		}
	case *ast.CallExpr:
		if t, ok := typeFromCall(x); ok {
			return decl.TypeExpr{Type: t}
		}
	}
	return decl.Opaque{Text: types.ExprString(e)}
}

// typeFromCall recognises new(G), (*G)(nil) and reflect.TypeFor[G]().
func typeFromCall(call *ast.CallExpr) (string, bool) {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		if fn.Name == "new" && len(call.Args) == 1 {
			return types.ExprString(call.Args[0]), true
		}
	case *ast.ParenExpr:
		star, ok := fn.X.(*ast.StarExpr)
		if !ok || len(call.Args) != 1 {
			return "", false
		}
		if id, ok := call.Args[0].(*ast.Ident); ok && id.Name == "nil" {
			return types.ExprString(star.X), true
		}
	case *ast.IndexExpr:
		sel, ok := fn.X.(*ast.SelectorExpr)
		if !ok || len(call.Args) != 0 || sel.Sel.Name != "TypeFor" {
			return "", false
		}
		if id, ok := sel.X.(*ast.Ident); ok && id.Name == "reflect" {
			return types.ExprString(fn.Index), true
		}
	}
	return "", false
}

// splitComments separates //endpoint: directives from doc prose. Malformed
// directives become problems and are otherwise ignored.
func splitComments(fset *token.FileSet, cg *ast.CommentGroup, resolve func(string) decl.TypeRef, problems *[]decl.Problem) ([]decl.Directive, string) {
	if cg == nil {
		return nil, ""
	}
	var directives []decl.Directive
	for _, c := range cg.List {
		if !decl.IsDirective(c.Text) {
			continue
		}
		loc := location(fset, c.Pos())
		d, err := decl.ParseDirective(c.Text, loc, resolve)
		if err != nil {
			*problems = append(*problems, decl.Problem{Message: err.Error(), Location: loc})
			continue
		}
		directives = append(directives, d)
	}
	// CommentGroup.Text drops //name:arg directive lines.
	return directives, strings.TrimSpace(cg.Text())
}

func receiverTypeName(expr ast.Expr) string {
	for {
		switch x := expr.(type) {
		case *ast.StarExpr:
			expr = x.X
		case *ast.ParenExpr:
			expr = x.X
		case *ast.IndexExpr:
			expr = x.X
		case *ast.IndexListExpr:
			expr = x.X
		case *ast.Ident:
			return x.Name
		default:
			return ""
		}
	}
}

// fileImports maps each local qualifier to its import path. Blank imports
// are skipped; dot imports are kept under ".".
func fileImports(f *ast.File) map[string]string {
	out := make(map[string]string, len(f.Imports))
	for _, spec := range f.Imports {
		p, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := ImportName(p)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" {
			continue
		}
		out[name] = p
	}
	return out
}

// ImportName guesses the package name of an import path the way goimports
// does: the last element, skipping a major version suffix and trimming
// a gopkg.in style ".vN".
func ImportName(importPath string) string {
	base := path.Base(importPath)
	if isMajorVersion(base) {
		base = path.Base(path.Dir(importPath))
	}
	if i := strings.Index(base, ".v"); i > 0 {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.NewReplacer("-", "", ".", "").Replace(base)
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	_, err := strconv.Atoi(s[1:])
	return err == nil
}

func copyImports(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mergeImports adds the qualifiers of a method's file that the class's own
// file does not define.
func mergeImports(c *decl.Class, imports map[string]string) {
	for k, v := range imports {
		if _, ok := c.Imports[k]; !ok {
			c.Imports[k] = v
		}
	}
}

func location(fset *token.FileSet, pos token.Pos) decl.SourceLocation {
	p := fset.Position(pos)
	return decl.SourceLocation{File: p.Filename, Line: p.Line, Column: p.Column}
}
