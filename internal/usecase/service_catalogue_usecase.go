package usecase

import (
	"context"

	"github.com/hisiddique/bloodathome/internal/converter"
	"github.com/hisiddique/bloodathome/internal/delivery/dto"
	"github.com/hisiddique/bloodathome/internal/domain/repository"

	"github.com/sirupsen/logrus"
)

// ServiceCatalogueUsecase lists the tests a patient can pick in the first draft step.
type ServiceCatalogueUsecase interface {
	ListServices(ctx context.Context) (*dto.ServiceListResponse, error)
}

type serviceCatalogueUsecase struct {
	transactor  repository.Transactor
	log         *logrus.Logger
	serviceRepo repository.ServiceRepository
}

func NewServiceCatalogueUsecase(transactor repository.Transactor, log *logrus.Logger, serviceRepo repository.ServiceRepository) ServiceCatalogueUsecase {
	return &serviceCatalogueUsecase{
		transactor:  transactor,
		log:         log,
		serviceRepo: serviceRepo,
	}
}

func (u *serviceCatalogueUsecase) ListServices(ctx context.Context) (*dto.ServiceListResponse, error) {
	services, err := u.serviceRepo.FindAllActive(u.transactor.DB(ctx))
	if err != nil {
		u.log.Warnf("Failed to list services: %+v", err)
		return nil, err
	}
	return converter.ServicesToResponse(services), nil
}
