package domain

type Vehicle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
