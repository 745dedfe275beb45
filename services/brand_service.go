// services/brand_service.go
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/brandbeacon/beacon-workflows/internal/models"
	"github.com/brandbeacon/beacon-workflows/internal/repos"
)

type brandService struct {
	brandRepo  repos.BrandRepository
	variations VariationService
}

func NewBrandService(brandRepo repos.BrandRepository, variations VariationService) BrandService {
	return &brandService{
		brandRepo:  brandRepo,
		variations: variations,
	}
}

// GetBrandDetails loads one brand's configuration and resolves its name
// variations. Variation failure is non-fatal: mention detection still works
// against the exact brand name.
func (s *brandService) GetBrandDetails(ctx context.Context, brandID uuid.UUID) (*BrandDetails, error) {
	brand, err := s.brandRepo.GetBrand(ctx, brandID)
	if err != nil {
		return nil, fmt.Errorf("failed to get brand %s: %w", brandID, err)
	}
	if !brand.Active {
		return nil, fmt.Errorf("brand %s is not active", brandID)
	}

	variations, err := s.variations.GenerateNameVariations(ctx, brand.Name, brand.Websites)
	if err != nil {
		log.Warn().Err(err).
			Str("brand_id", brandID.String()).
			Msg("Name variation generation failed, using exact name only")
		variations = []string{brand.Name}
	}

	return &BrandDetails{
		Brand:          brand,
		NameVariations: variations,
	}, nil
}

func (s *brandService) GetBrandsScheduledForDOW(ctx context.Context, dow int) ([]*models.BrandSummary, error) {
	brands, err := s.brandRepo.ListScheduledForDOW(ctx, dow)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands for day %d: %w", dow, err)
	}
	return brands, nil
}
