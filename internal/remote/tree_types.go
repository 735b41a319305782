package remote

// Tree is the recursive listing of a repository branch as returned by
// GET /repos/{owner}/{repo}/git/trees/{branch}?recursive=1.
type Tree struct {
	SHA       string      `json:"sha"`
	URL       string      `json:"url"`
	Entries   []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// TreeEntry is a single path in the listing. Size is absent for directories
// and submodules.
type TreeEntry struct {
	Path string  `json:"path"`
	Type string  `json:"type,omitempty"`
	Size *uint64 `json:"size,omitempty"`
}
