package registry

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed catalog.cue
var catalogSource []byte

// Descriptor is one built-in component as declared in catalog.cue.
type Descriptor struct {
	Key         string `json:"key"`
	DisplayName string `json:"displayName"`
	SourcePath  string `json:"sourcePath"`
	Category    string `json:"category"`
	Container   bool   `json:"container"`
}

// BuiltinCatalog returns the descriptors compiled into the binary.
func BuiltinCatalog() ([]Descriptor, error) {
	return LoadCatalog(catalogSource)
}

// LoadCatalog compiles CUE source declaring a `components` list, checks every
// entry against #Component and decodes the concrete result.
func LoadCatalog(src []byte) ([]Descriptor, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename("catalog.cue"))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling catalog: %w", err)
	}

	list := v.LookupPath(cue.ParsePath("components"))
	if !list.Exists() {
		return nil, fmt.Errorf("catalog: no components list")
	}
	if err := list.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	var descs []Descriptor
	if err := list.Decode(&descs); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	seen := make(map[string]bool, len(descs))
	for _, d := range descs {
		if seen[d.Key] {
			return nil, fmt.Errorf("catalog: duplicate component key %q", d.Key)
		}
		seen[d.Key] = true
	}
	return descs, nil
}
