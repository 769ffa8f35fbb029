package worker

import "time"

// Nationality partitions which statutory schemes apply to a worker.
type Nationality string

const (
	NationalityLocal               Nationality = "local"
	NationalityForeigner           Nationality = "foreigner"
	NationalityForeignerNoPassport Nationality = "foreigner_no_passport"
)

func (n Nationality) IsValid() bool {
	switch n {
	case NationalityLocal, NationalityForeigner, NationalityForeignerNoPassport:
		return true
	}
	return false
}

type Worker struct {
	ID          string
	Name        string
	Nationality Nationality
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
