package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRuleFile_FrontmatterAndBody(t *testing.T) {
	raw := "---\ninclude: \"*.go\", {cmd,internal}/**, \"a,b.txt\"\n---\n\n# Heading\n\nBody ✅ text.\n"

	include, body := parseRuleFile(raw)
	require.Equal(t, []string{"*.go", "{cmd,internal}/**", "a,b.txt"}, include)
	require.Equal(t, "\n\nBody  text.\n", body)
}

func TestParseRuleFile_NoFrontmatter(t *testing.T) {
	include, body := parseRuleFile("## Title\nbody text")
	require.Empty(t, include)
	require.Equal(t, "body text", body)
}

func TestParseRuleFile_DoesNotStripH4(t *testing.T) {
	_, body := parseRuleFile("#### Not a title\nrest")
	require.Equal(t, "#### Not a title\nrest", body)
}

func TestMatchesInclude_NoPositivePatternsIncludesEverything(t *testing.T) {
	r := Rule{Directory: "internal/review"}
	require.True(t, MatchesInclude(r, "internal/review/service.go"))
}

func TestMatchesInclude_DirectoryScoped(t *testing.T) {
	r := Rule{
		Directory: "internal/review",
		Include:   []string{"*.go"},
	}
	require.True(t, MatchesInclude(r, "internal/review/service.go"))
	require.False(t, MatchesInclude(r, "internal/other/service.go"))
}

func TestMatchesInclude_Negation(t *testing.T) {
	r := Rule{
		Directory: "internal/review",
		Include:   []string{"*.go", "!*_test.go"},
	}
	require.True(t, MatchesInclude(r, "internal/review/service.go"))
	require.False(t, MatchesInclude(r, "internal/review/service_test.go"))
}

func TestMatchesInclude_BraceExpansion(t *testing.T) {
	r := Rule{
		Include: []string{"{cmd,internal}/**/*.go"},
	}
	require.True(t, MatchesInclude(r, "cmd/wisp-review/main.go"))
	require.True(t, MatchesInclude(r, "internal/ruleset/match.go"))
	require.False(t, MatchesInclude(r, "web/index.go"))
}

func TestMatchesInclude_CaseInsensitive(t *testing.T) {
	r := Rule{Include: []string{"*.GO"}}
	require.True(t, MatchesInclude(r, "foo.go"))
}

func TestMatchesInclude_BareStarCrossesDirectories(t *testing.T) {
	r := Rule{Include: []string{"internal/*.go"}}
	require.True(t, MatchesInclude(r, "internal/ruleset/match.go"))
}

func TestMatchesInclude_BaseNameMatch(t *testing.T) {
	r := Rule{Include: []string{"service.go"}}
	require.True(t, MatchesInclude(r, "internal/review/service.go"))
}

func TestLoader_DiscoversRulesAndPrunesDependencyDirs(t *testing.T) {
	root := t.TempDir()

	rulesDir := filepath.Join(root, ".wispbit", "rules")
	require.NoError(t, os.MkdirAll(rulesDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(rulesDir, "no-todo.md"),
		[]byte("---\ninclude: \"*.go\"\n---\n# No TODOs\nDon't leave TODOs."),
		0o644,
	))

	nested := filepath.Join(root, "internal", "sub", ".wispbit", "rules")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(nested, "scoped.md"),
		[]byte("---\ninclude: \"*.go\"\n---\nScoped rule."),
		0o644,
	))

	pruned := filepath.Join(root, "node_modules", ".wispbit", "rules")
	require.NoError(t, os.MkdirAll(pruned, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(pruned, "ignored.md"),
		[]byte("---\ninclude: \"*.go\"\n---\nShould never load."),
		0o644,
	))

	rules, err := NewLoader(root).Load()
	require.NoError(t, err)
	require.Len(t, rules, 2)

	byPath := map[string]Rule{}
	for _, r := range rules {
		byPath[r.Path] = r
	}

	root1, ok := byPath[".wispbit/rules/no-todo.md"]
	require.True(t, ok)
	require.Equal(t, "", root1.Directory)

	scoped, ok := byPath["internal/sub/.wispbit/rules/scoped.md"]
	require.True(t, ok)
	require.Equal(t, "internal/sub", scoped.Directory)
}
