package repositories

// Repositories holds all the repository instances
type Repositories struct {
	Records *CSVRepository
}

// NewRepositories initializes all repositories over the given data files
func NewRepositories(paths Paths, opts ...Option) (*Repositories, error) {
	records, err := NewCSVRepository(paths, opts...)
	if err != nil {
		return nil, err
	}
	return &Repositories{Records: records}, nil
}
