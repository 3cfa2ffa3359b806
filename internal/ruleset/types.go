// Package ruleset loads codebase review rules from frontmatter-annotated
// markdown files and matches files against their include/exclude glob
// patterns.
package ruleset

// Rule is one loaded `.md` file under a `.wispbit/rules` directory.
type Rule struct {
	// ID is a stable identifier derived from the rule's path relative to
	// the workspace root (extension stripped).
	ID string

	// Directory is the workspace-relative path of the directory
	// CONTAINING the `.wispbit` directory this rule was discovered
	// under. Empty (or ".") for a rule at the workspace root.
	Directory string

	// Include holds the raw, not-yet-directory-scoped glob patterns
	// parsed from the frontmatter's `include` key, in file order.
	// A pattern beginning with "!" is an exclusion.
	Include []string

	// Body is the rule's prose, with the frontmatter block removed and
	// normalized per body normalization rules.
	Body string

	// Path is the workspace-relative path to the source markdown file.
	Path string
}
