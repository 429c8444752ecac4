package packaging

import (
	"fmt"
	"path"
	"strings"

	"github.com/matthewbaird/uibuilder/internal/codegen"
)

var fenceLanguage = map[string]string{
	".jsx":  "jsx",
	".js":   "javascript",
	".css":  "css",
	".json": "json",
	".html": "html",
	".md":   "markdown",
}

// Transcript renders files as one text document: a header, then every file
// in sorted path order as a fenced block labelled with its path.
func Transcript(name string, files codegen.FileMap) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "%d files. Create each file at the path shown above its block.\n", len(files))

	for _, p := range files.Paths() {
		content := files[p]
		fence := strings.Repeat("`", max(3, longestRun(content, '`')+1))
		fmt.Fprintf(&b, "\n## %s\n\n", p)
		fmt.Fprintf(&b, "%s%s\n", fence, fenceLanguage[path.Ext(p)])
		b.WriteString(content)
		if !strings.HasSuffix(content, "\n") {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\n", fence)
	}
	return b.String()
}

func longestRun(s string, c byte) int {
	longest, run := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			run = 0
			continue
		}
		run++
		longest = max(longest, run)
	}
	return longest
}
