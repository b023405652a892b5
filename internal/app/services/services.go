package services

import (
	"github.com/yigit/schoolrecords/internal/app/grading"
	"github.com/yigit/schoolrecords/internal/app/repositories"
)

// Services defined in this package:
// - RecordsService: loading, saving, backups and integrity of the data files
// - GradeService: course grades, transcripts and course statistics

// Services holds all the service instances
type Services struct {
	Records RecordsService
	Grades  GradeService
}

// NewServices wires the services over the repositories. The grade service
// reads whatever registry the records service currently holds.
func NewServices(repos *repositories.Repositories, calc grading.Calculator) *Services {
	records := NewRecordsService(repos.Records)
	return &Services{
		Records: records,
		Grades:  NewGradeService(records.Registry, calc),
	}
}
