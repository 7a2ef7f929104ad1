package entity

// Status narrows the list by play state of any version.
type Status string

const (
	StatusAll        Status = ""
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusNotStarted Status = "not_started"
)

type SortMode string

const (
	SortTitle      SortMode = "title"
	SortProgress   SortMode = "progress"
	SortLastPlayed SortMode = "last_played"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Options drive a single unify pass.
type Options struct {
	// ShowUnowned adds ghost versions for catalog releases the user does not own.
	ShowUnowned bool
	// Platforms enabled in the view. Nil enables every platform; an empty
	// non-nil set enables none.
	Platforms      map[string]bool
	ShowShovelware bool
	Search         string
	Status         Status
	Sort           SortMode
	// Direction defaults to asc for title and desc otherwise.
	Direction Direction
	// Pinned holds version ids whose games sort first.
	Pinned map[string]bool
}
