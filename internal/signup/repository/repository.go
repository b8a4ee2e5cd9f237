package repository

import (
	"github.com/smallbiznis/invoicely/internal/signup/domain"
	"github.com/smallbiznis/invoicely/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) repository.Repository[domain.SignupRequest] {
	return repository.ProvideStore[domain.SignupRequest](db)
}
