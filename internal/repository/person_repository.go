package repository

import (
	"time"

	"github.com/quizfaber/quizserver/internal/model"
	"gorm.io/gorm"
)

type PersonRepository interface {
	Create(person *model.Person) error
	FindByID(id uint) (*model.Person, error)
	FindByIdentity(identity string) (*model.Person, error)
	UpdateLastAccess(id uint, at time.Time) error
}

type personRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) PersonRepository {
	return &personRepository{db: db}
}

func (r *personRepository) Create(person *model.Person) error {
	return r.db.Create(person).Error
}

func (r *personRepository) FindByID(id uint) (*model.Person, error) {
	var person model.Person
	err := r.db.First(&person, id).Error
	return &person, err
}

func (r *personRepository) FindByIdentity(identity string) (*model.Person, error) {
	var person model.Person
	err := r.db.Where("user_identity = ?", identity).First(&person).Error
	return &person, err
}

func (r *personRepository) UpdateLastAccess(id uint, at time.Time) error {
	return r.db.Model(&model.Person{}).Where("id = ?", id).
		Update("date_last_access", at).Error
}
