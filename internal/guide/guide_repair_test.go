package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/domain"
)

var testParams = domain.ProjectParams{
	Title:        "Chat App",
	Description:  "A realtime chat application",
	TechStack:    []string{"react", "node"},
	Difficulty:   "beginner",
	DurationDays: 14,
}

func TestRepairGuide_EveryLeafDocumentedExactlyOnce(t *testing.T) {
	t.Parallel()
	// Model covered only two of five files, duplicated one, and documented
	// a file that is not in the tree.
	response := `{
		"readme": "# Chat App",
		"folderStructure": {
			"src": {"index.js": "file", "App.jsx": "file", "api.js": "file"},
			"package.json": "file",
			"README.md": "file"
		},
		"fileDocumentation": [
			{"filePath": "src/index.js", "purpose": "Entry point", "estimatedTime": "1 hour"},
			{"filePath": "src/index.js", "purpose": "Duplicate, must be dropped"},
			{"filePath": "src/App.jsx", "purpose": "Root component"},
			{"filePath": "src/ghost.js", "purpose": "Not in the tree"}
		],
		"setupInstructions": "Run npm install."
	}`

	doc := repairGuide(parseGuide(response), testParams)

	leaves := leafPaths(doc.FolderStructure)
	require.Len(t, leaves, 5)
	require.Len(t, doc.FileDocumentation, len(leaves))

	seen := map[string]domain.FileDoc{}
	for _, d := range doc.FileDocumentation {
		_, dup := seen[d.FilePath]
		require.False(t, dup, "path %s documented twice", d.FilePath)
		seen[d.FilePath] = d
	}
	for _, leaf := range leaves {
		_, ok := seen[leaf]
		assert.True(t, ok, "leaf %s has no documentation", leaf)
	}
	assert.NotContains(t, seen, "src/ghost.js")

	// Model-provided entries survive; the duplicate lost.
	assert.Equal(t, "Entry point", seen["src/index.js"].Purpose)
	assert.Equal(t, "1 hour", seen["src/index.js"].EstimatedTime)

	// Synthesized entries carry the defaults.
	synth := seen["package.json"]
	assert.NotEmpty(t, synth.Purpose)
	assert.Equal(t, defaultEstimate, synth.EstimatedTime)
	assert.NotEmpty(t, synth.WhatYouLearn)
}

func TestRepairGuide_BackfillsEmptyFieldsOnProvidedDocs(t *testing.T) {
	t.Parallel()
	response := `{
		"folderStructure": {"main.go": "file"},
		"fileDocumentation": [{"filePath": "main.go"}]
	}`
	doc := repairGuide(parseGuide(response), testParams)
	require.Len(t, doc.FileDocumentation, 1)
	assert.Equal(t, defaultEstimate, doc.FileDocumentation[0].EstimatedTime)
	assert.NotEmpty(t, doc.FileDocumentation[0].Purpose)
}

func TestRepairGuide_ObjectProseFlattened(t *testing.T) {
	t.Parallel()
	response := `{
		"readme": {
			"overview": "A realtime chat app.",
			"features": ["login", "rooms"],
			"unknownSection": "dropped"
		},
		"setupInstructions": {"prerequisites": "Node 20+", "installation": "npm install"},
		"folderStructure": {"index.js": "file"}
	}`
	doc := repairGuide(parseGuide(response), testParams)

	assert.Contains(t, doc.Readme, "Overview")
	assert.Contains(t, doc.Readme, "A realtime chat app.")
	assert.Contains(t, doc.Readme, "- login")
	assert.NotContains(t, doc.Readme, "dropped")

	assert.Contains(t, doc.SetupInstructions, "Prerequisites")
	assert.Contains(t, doc.SetupInstructions, "npm install")
}

func TestRepairGuide_GarbageResponseYieldsDefaults(t *testing.T) {
	t.Parallel()
	doc := repairGuide(parseGuide("I'm sorry, I can't produce JSON today."), testParams)

	assert.Contains(t, doc.Readme, "Chat App")
	assert.NotEmpty(t, doc.SetupInstructions)
	require.NotEmpty(t, doc.FolderStructure)
	assert.NotNil(t, doc.ConfigurationGuide)

	leaves := leafPaths(doc.FolderStructure)
	require.NotEmpty(t, leaves)
	assert.Len(t, doc.FileDocumentation, len(leaves))
}

func TestRepairGuide_FencedResponseParsed(t *testing.T) {
	t.Parallel()
	response := "Here is your guide:\n```json\n{\"readme\": \"# Chat App\", \"folderStructure\": {\"a.js\": \"file\"},}\n```\nHope this helps!"
	doc := repairGuide(parseGuide(response), testParams)
	assert.Equal(t, "# Chat App", doc.Readme)
	assert.Equal(t, []string{"a.js"}, leafPaths(doc.FolderStructure))
}

func TestLeafPaths_NestedAndSorted(t *testing.T) {
	t.Parallel()
	tree := map[string]any{
		"src": map[string]any{
			"components": map[string]any{"App.jsx": "file"},
			"index.js":   "file",
		},
		"README.md": "file",
	}
	assert.Equal(t, []string{"README.md", "src/components/App.jsx", "src/index.js"}, leafPaths(tree))
}

func TestSynthesizeFileDoc_Hints(t *testing.T) {
	t.Parallel()
	readme := synthesizeFileDoc("docs/README.md")
	assert.Contains(t, readme.Purpose, "what the project does")

	goFile := synthesizeFileDoc("cmd/server/main.go")
	assert.NotEmpty(t, goFile.Purpose)
	assert.Equal(t, defaultEstimate, goFile.EstimatedTime)

	unknown := synthesizeFileDoc("weird.xyz")
	assert.NotEmpty(t, unknown.Purpose)
	assert.NotEmpty(t, unknown.WhatYouLearn)
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", `Sure! {"a":{"b":2}} Done.`, `{"a":{"b":2}}`},
		{"trailing comma", `{"a":[1,2,],}`, `{"a":[1,2]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanJSON(tc.in))
		})
	}
}
