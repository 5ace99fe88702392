package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"product-api/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	priceRangeKey = "products:price-range"
	cacheTTL      = 5 * time.Minute
)

// ProductGateway is the storage surface the catalog service depends on.
type ProductGateway interface {
	List(ctx context.Context, params entity.ListParams) ([]entity.ProductListItem, int, error)
	GetByID(ctx context.Context, id int) (*entity.ProductDetail, error)
	Create(ctx context.Context, product *entity.Product, colorIDs []int) error
	Update(ctx context.Context, product *entity.Product, colorIDs []int, newImagePath *string) error
	Delete(ctx context.Context, id int) error
	PriceBounds(ctx context.Context) (decimal.Decimal, decimal.Decimal, error)
	ListColors(ctx context.Context) ([]entity.Color, error)
}

// ImageStore persists uploaded image bytes and returns their public path.
type ImageStore interface {
	Save(originalName string, data io.Reader) (string, error)
}

// ProductService orchestrates the catalog use cases. Redis and kafka are
// optional collaborators; passing nil disables caching and event publishing.
type ProductService struct {
	repo        ProductGateway
	images      ImageStore
	rdb         *redis.Client
	kafkaWriter *kafka.Writer
}

// NewProductService creates a new instance of ProductService.
func NewProductService(repo ProductGateway, images ImageStore, rdb *redis.Client, kafkaWriter *kafka.Writer) *ProductService {
	return &ProductService{
		repo:        repo,
		images:      images,
		rdb:         rdb,
		kafkaWriter: kafkaWriter,
	}
}

// ListProducts returns the filtered, sorted page together with the total
// match count across all pages.
func (s *ProductService) ListProducts(ctx context.Context, params entity.ListParams) (*entity.ListResult, error) {
	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing products")
		return nil, err
	}
	if items == nil {
		items = []entity.ProductListItem{}
	}
	return &entity.ListResult{Data: items, TotalRecords: total}, nil
}

// GetProductByID returns the product detail projection, read through the
// cache when one is configured.
func (s *ProductService) GetProductByID(ctx context.Context, id int) (*entity.ProductDetail, error) {
	key := fmt.Sprintf("product:%d", id)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Error().Err(err).Msgf("Error getting product %d from cache", id)
		}
		if cached != "" {
			var detail entity.ProductDetail
			if err := json.Unmarshal([]byte(cached), &detail); err == nil {
				return &detail, nil
			}
			logger.Error().Msgf("Error unmarshalling cached product %d", id)
		}
	}

	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, entity.ErrProductNotFound) {
			return nil, err
		}
		logger.Error().Err(err).Msgf("Error getting product by ID %d", id)
		return nil, err
	}

	if s.rdb != nil {
		data, err := json.Marshal(detail)
		if err == nil {
			if err := s.rdb.Set(ctx, key, data, cacheTTL).Err(); err != nil {
				logger.Error().Err(err).Msgf("Error setting product %d in cache", id)
			}
		}
	}

	return detail, nil
}

// CreateProduct validates the input, stores the image (if any) before any
// row is written, then inserts the product and its color associations in
// one transaction.
func (s *ProductService) CreateProduct(ctx context.Context, input entity.ProductInput, image *entity.ImageUpload) (*entity.ProductDetail, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	imagePath := ""
	if image != nil {
		path, err := s.images.Save(image.Filename, image.Data)
		if err != nil {
			logger.Error().Err(err).Msg("Error storing product image")
			return nil, fmt.Errorf("storing image: %w", err)
		}
		imagePath = path
	}

	product := productFromInput(input)
	product.ImagePath = imagePath

	if err := s.repo.Create(ctx, product, input.ColorIDs); err != nil {
		logger.Error().Err(err).Msg("Error creating product")
		return nil, err
	}

	s.invalidateCache(ctx)
	s.publishProductEvent(ctx, product.ID, "created")

	return &entity.ProductDetail{Product: *product, ColorIDs: copyColorIDs(input.ColorIDs)}, nil
}

// UpdateProduct overwrites all scalar fields, replaces the full color
// association set, and replaces the image only when a new one is uploaded.
func (s *ProductService) UpdateProduct(ctx context.Context, id int, input entity.ProductInput, image *entity.ImageUpload) (*entity.ProductDetail, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, entity.ErrProductNotFound) {
			logger.Error().Err(err).Msgf("Error getting product by ID %d", id)
		}
		return nil, err
	}

	var newImagePath *string
	if image != nil {
		path, imgErr := s.images.Save(image.Filename, image.Data)
		if imgErr != nil {
			logger.Error().Err(imgErr).Msgf("Error storing image for product %d", id)
			return nil, fmt.Errorf("storing image: %w", imgErr)
		}
		newImagePath = &path
	}

	product := productFromInput(input)
	product.ID = id
	if newImagePath != nil {
		product.ImagePath = *newImagePath
	} else {
		product.ImagePath = existing.ImagePath
	}

	if err := s.repo.Update(ctx, product, input.ColorIDs, newImagePath); err != nil {
		if !errors.Is(err, entity.ErrProductNotFound) {
			logger.Error().Err(err).Msgf("Error updating product %d", id)
		}
		return nil, err
	}

	s.invalidateProduct(ctx, id)
	s.publishProductEvent(ctx, id, "updated")

	return &entity.ProductDetail{Product: *product, ColorIDs: copyColorIDs(input.ColorIDs)}, nil
}

// DeleteProduct removes the product; the storage layer cascades its color
// associations.
func (s *ProductService) DeleteProduct(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, entity.ErrProductNotFound) {
			logger.Error().Err(err).Msgf("Error deleting product %d", id)
		}
		return err
	}

	s.invalidateProduct(ctx, id)
	s.publishProductEvent(ctx, id, "deleted")
	return nil
}

// PriceRange reports the catalog price bounds rounded outward to thousands,
// for building a price filter UI.
func (s *ProductService) PriceRange(ctx context.Context) (*entity.PriceRange, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, priceRangeKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.Error().Err(err).Msg("Error getting price range from cache")
		}
		if cached != "" {
			var pr entity.PriceRange
			if err := json.Unmarshal([]byte(cached), &pr); err == nil {
				return &pr, nil
			}
		}
	}

	min, max, err := s.repo.PriceBounds(ctx)
	if err != nil {
		if errors.Is(err, entity.ErrEmptyCatalog) {
			return nil, err
		}
		logger.Error().Err(err).Msg("Error getting price bounds")
		return nil, err
	}

	pr := &entity.PriceRange{
		Min: roundDownToThousand(min),
		Max: roundUpToThousand(max),
	}

	if s.rdb != nil {
		data, err := json.Marshal(pr)
		if err == nil {
			if err := s.rdb.Set(ctx, priceRangeKey, data, cacheTTL).Err(); err != nil {
				logger.Error().Err(err).Msg("Error setting price range in cache")
			}
		}
	}

	return pr, nil
}

// ListColors returns the reference color set.
func (s *ProductService) ListColors(ctx context.Context) ([]entity.Color, error) {
	colors, err := s.repo.ListColors(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing colors")
		return nil, err
	}
	if colors == nil {
		colors = []entity.Color{}
	}
	return colors, nil
}

func roundDownToThousand(v decimal.Decimal) int {
	return int(v.IntPart() / 1000 * 1000)
}

// roundUpToThousand always moves to the next multiple of 1000, even when the
// value already sits on a boundary.
func roundUpToThousand(v decimal.Decimal) int {
	return int((v.IntPart()/1000 + 1) * 1000)
}

func validateInput(input entity.ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return &entity.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if input.Price.IsNegative() {
		return &entity.ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if strings.TrimSpace(input.Size) == "" {
		return &entity.ValidationError{Field: "size", Reason: "must not be empty"}
	}
	return nil
}

func productFromInput(input entity.ProductInput) *entity.Product {
	return &entity.Product{
		Name:         input.Name,
		Price:        input.Price,
		Features:     input.Features,
		PurchaseDate: input.PurchaseDate,
		Description:  input.Description,
		Size:         input.Size,
	}
}

func copyColorIDs(colorIDs []int) []int {
	out := make([]int, len(colorIDs))
	copy(out, colorIDs)
	return out
}

func (s *ProductService) invalidateProduct(ctx context.Context, id int) {
	if s.rdb == nil {
		return
	}
	key := fmt.Sprintf("product:%d", id)
	if err := s.rdb.Del(ctx, key, priceRangeKey).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %d from cache", id)
	}
}

func (s *ProductService) invalidateCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, priceRangeKey).Err(); err != nil {
		logger.Error().Err(err).Msg("Error deleting price range from cache")
	}
}

// publishProductEvent publishes a product change event, best effort.
func (s *ProductService) publishProductEvent(ctx context.Context, productID int, event string) {
	if s.kafkaWriter == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"productId": productID,
		"event":     event,
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Error marshalling %s event for product %d", event, productID)
		return
	}

	// product-created-1, product-updated-1 or product-deleted-1
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("product-%s-%d", event, productID)),
		Value: payload,
	}

	if err := s.kafkaWriter.WriteMessages(ctx, msg); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for product %d", event, productID)
	}
}
