package domain

// Premise is a building, estate or school whose gate is managed by a superhost.
type Premise struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	SuperhostID int32   `json:"superhost_id"`
	Hosts       []int32 `json:"hosts"`
	CreatedOn   string  `json:"created_on"`
}
