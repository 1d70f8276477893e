package domain

// RemoteFile is a read-only view of a file in the watched store
type RemoteFile struct {
	ID         string
	Name       string
	MimeType   string
	ContentRef string
}

// FileFilter selects eligible files: matching MimeType, inside ParentID,
// and not inside ExcludeParentID. PageSize only sizes each remote list
// request; a listing always returns every eligible file.
type FileFilter struct {
	MimeType        string
	ParentID        string
	ExcludeParentID string
	PageSize        int
}
