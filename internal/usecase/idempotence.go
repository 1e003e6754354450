package usecase

// Idempotence drops duplicate deliveries of the same external request.
type Idempotence struct {
	repo idempotenceRepository
}

func NewIdempotence(repo idempotenceRepository) *Idempotence {
	return &Idempotence{
		repo: repo,
	}
}

// Execute returns true exactly once per id.
func (u *Idempotence) Execute(id string) (bool, error) {
	return u.repo.MakeRecord(id)
}
