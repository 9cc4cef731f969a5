package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sabowaryan/sabowaryantech/internal/validation"
	"github.com/shopspring/decimal"
)

// Source supplies the catalog. The engine makes no assumption about where products come from.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
}

// StaticSource serves a fixed product list.
type StaticSource []Product

// Products returns a copy of the static list.
func (s StaticSource) Products(_ context.Context) ([]Product, error) {
	out := make([]Product, len(s))
	copy(out, s)
	return out, nil
}

// FileSource reads products from a JSON array on disk and validates them before use.
type FileSource struct {
	Path     string
	validate *validator.Validate
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path, validate: validation.New()}
}

// Products loads and validates the file. Any invalid product rejects the whole file.
func (s *FileSource) Products(_ context.Context) ([]Product, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", s.Path, err)
	}
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to decode catalog file %s: %w", s.Path, err)
	}
	if err := validation.Slice(s.validate, products); err != nil {
		return nil, fmt.Errorf("invalid catalog file %s: %w", s.Path, err)
	}
	return products, nil
}

// Load fetches products from src and builds a Catalog.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	products, err := src.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return New(products), nil
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedProducts is the storefront's built-in catalog, used when no catalog file is configured.
var SeedProducts = StaticSource{
	{
		ID:            "1",
		Name:          "Dashboard Analytics Pro",
		Description:   "Complete dashboard with interactive charts",
		Price:         decimal.NewFromInt(49),
		Images:        []string{"https://images.pexels.com/photos/265087/pexels-photo-265087.jpeg"},
		Category:      "Dashboard",
		Tags:          []string{"React", "TypeScript", "Analytics"},
		Rating:        4.9,
		ReviewCount:   156,
		DownloadCount: 1250,
		Featured:      true,
		Stock:         100,
		CreatedAt:     day("2024-01-15"),
		UpdatedAt:     day("2024-01-15"),
	},
	{
		ID:            "2",
		Name:          "E-commerce Components",
		Description:   "Complete, optimised e-commerce components",
		Price:         decimal.NewFromInt(39),
		Images:        []string{"https://images.pexels.com/photos/230544/pexels-photo-230544.jpeg"},
		Category:      "E-commerce",
		Tags:          []string{"Vue", "E-commerce", "Shopping"},
		Rating:        4.8,
		ReviewCount:   203,
		DownloadCount: 890,
		Featured:      true,
		Stock:         100,
		CreatedAt:     day("2024-01-10"),
		UpdatedAt:     day("2024-01-10"),
	},
	{
		ID:            "3",
		Name:          "Admin Template Modern",
		Description:   "Modern responsive administration template",
		Price:         decimal.NewFromInt(69),
		Images:        []string{"https://images.pexels.com/photos/196644/pexels-photo-196644.jpeg"},
		Category:      "Admin",
		Tags:          []string{"Angular", "Admin", "Template"},
		Rating:        4.7,
		ReviewCount:   89,
		DownloadCount: 567,
		Featured:      false,
		Stock:         100,
		CreatedAt:     day("2024-01-05"),
		UpdatedAt:     day("2024-01-05"),
	},
	{
		ID:            "4",
		Name:          "Form Builder Advanced",
		Description:   "Form builder with advanced validation",
		Price:         decimal.NewFromInt(29),
		Images:        []string{"https://images.pexels.com/photos/270348/pexels-photo-270348.jpeg"},
		Category:      "Forms",
		Tags:          []string{"React", "Forms", "Validation"},
		Rating:        4.6,
		ReviewCount:   124,
		DownloadCount: 734,
		Featured:      true,
		Stock:         100,
		CreatedAt:     day("2024-01-08"),
		UpdatedAt:     day("2024-01-08"),
	},
	{
		ID:            "5",
		Name:          "Landing Page Kit",
		Description:   "Kit for building effective landing pages",
		Price:         decimal.NewFromInt(35),
		Images:        []string{"https://images.pexels.com/photos/196655/pexels-photo-196655.jpeg"},
		Category:      "Landing",
		Tags:          []string{"HTML", "CSS", "Marketing"},
		Rating:        4.9,
		ReviewCount:   267,
		DownloadCount: 1456,
		Featured:      true,
		Stock:         100,
		CreatedAt:     day("2024-01-12"),
		UpdatedAt:     day("2024-01-12"),
	},
	{
		ID:            "6",
		Name:          "Data Visualization Suite",
		Description:   "Complete data visualisation suite",
		Price:         decimal.NewFromInt(59),
		Images:        []string{"https://images.pexels.com/photos/590016/pexels-photo-590016.jpeg"},
		Category:      "Charts",
		Tags:          []string{"React", "Charts", "Data"},
		Rating:        4.8,
		ReviewCount:   178,
		DownloadCount: 623,
		Featured:      false,
		Stock:         100,
		CreatedAt:     day("2024-01-03"),
		UpdatedAt:     day("2024-01-03"),
	},
}
