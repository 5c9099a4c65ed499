package index

// TextIndex defines the interface for saved-text indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type TextIndex interface {
	UpsertText(r TextRow, body string) error
	DeleteText(path string) error
	GetChecksum(path string) (string, error)
	GetText(path string) (*TextRow, error)
	ListTexts(profile string, limit, offset int, sort string) ([]TextRow, int, error)
	Search(query, profile string, limit int) ([]SearchResult, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies TextIndex at compile time.
var _ TextIndex = (*DB)(nil)
