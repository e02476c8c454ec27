package ignore

// DefaultIgnorePatterns lists paths that are never served or indexed from a
// documentation tree. Assets such as images and PDFs are deliberately absent:
// they are part of the published docs.
var DefaultIgnorePatterns = []string{
	// Version control
	".git",
	".svn",
	".hg",

	// Tooling and dependency directories that end up next to docs sources
	"node_modules",
	"__pycache__",
	".venv",
	"venv",
	".idea",
	".vscode",
	".cache",

	// Secrets
	".env",
	".env.*",
	"*.pem",
	"*.key",

	// Editor leftovers
	"*.swp",
	"*.swo",
	"*~",
	".#*",

	// OS files
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",

	// Logs
	"*.log",
}

// skipDirNames are directory names that are pruned before any rule matching.
var skipDirNames = map[string]struct{}{
	".git":         {},
	".svn":         {},
	".hg":          {},
	"node_modules": {},
	"__pycache__":  {},
	".venv":        {},
	"venv":         {},
	".idea":        {},
	".vscode":      {},
	".cache":       {},
}
