package codegen

import (
	"github.com/matthewbaird/uibuilder/internal/registry"
)

// Import is one resolved component binding in a generated module. Local is
// the identifier the module binds it to: the display name, or a numbered
// alias when that name is already taken in the module scope.
type Import struct {
	TypeKey     string `json:"typeKey"`
	DisplayName string `json:"displayName"`
	Local       string `json:"local"`
	SourcePath  string `json:"sourcePath"`
	Fallback    bool   `json:"fallback,omitempty"`
}

// Resolver maps a node type key to the binding the generated code imports.
type Resolver interface {
	Resolve(typeKey string) Import
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(typeKey string) Import

func (f ResolverFunc) Resolve(typeKey string) Import { return f(typeKey) }

// RegistryResolver resolves through a component registry, so custom and
// AI-generated types import from their registered source paths.
func RegistryResolver(r *registry.Registry) Resolver {
	return ResolverFunc(func(typeKey string) Import {
		res := r.Resolve(typeKey)
		return Import{
			TypeKey:     typeKey,
			DisplayName: res.DisplayName,
			SourcePath:  res.SourcePath,
			Fallback:    res.Fallback,
		}
	})
}

// TitleCaseResolver derives names straight from the type key. The exported
// application uses it because its component library lives at
// "<Name>/<Name>" regardless of what the editor's registry holds.
func TitleCaseResolver() Resolver {
	return ResolverFunc(func(typeKey string) Import {
		fb := registry.Fallback(typeKey)
		return Import{TypeKey: typeKey, DisplayName: fb.DisplayName, SourcePath: fb.SourcePath}
	})
}
