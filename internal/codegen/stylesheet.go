package codegen

import (
	"embed"
	"strings"
	"text/template"

	"github.com/matthewbaird/uibuilder/internal/registry"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var stylesheetTemplate = template.Must(template.ParseFS(templateFS, "templates/stylesheet.css.tmpl"))

// Stylesheet returns the companion stylesheet for a generated module. It is
// fixed boilerplate for the wrapper element and does not depend on the tree.
// componentName is normalized the same way as Options.ComponentName.
func Stylesheet(componentName string) string {
	if strings.TrimSpace(componentName) == "" {
		componentName = DefaultComponentName
	} else {
		componentName = registry.DisplayName(componentName)
	}
	data := struct{ Name, Class string }{Name: componentName, Class: WrapperClass(componentName)}
	var b strings.Builder
	if err := stylesheetTemplate.Execute(&b, data); err != nil {
		panic("codegen: rendering stylesheet: " + err.Error())
	}
	return b.String()
}
