package entity

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when the requested product id does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrEmptyCatalog is returned when a price range is requested but no products exist.
	ErrEmptyCatalog = errors.New("no products in catalog")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type Product struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Features     string          `json:"features,omitempty"`
	PurchaseDate *time.Time      `json:"purchaseDate,omitempty"`
	Description  string          `json:"description,omitempty"`
	Size         string          `json:"size"`
	ImagePath    string          `json:"imagePath,omitempty"`
}

// Color is reference data, read-only from this service.
type Color struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductColor is the junction row linking a product to one of its colors.
type ProductColor struct {
	ProductID int
	ColorID   int
}

// ProductListItem is the listing projection: product fields plus the joined
// color names.
type ProductListItem struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Features     string          `json:"features,omitempty"`
	PurchaseDate *time.Time      `json:"purchaseDate,omitempty"`
	Description  string          `json:"description,omitempty"`
	Size         string          `json:"size"`
	Colors       []string        `json:"colors"`
}

// ProductDetail is the by-id projection: product fields plus the associated
// color ids.
type ProductDetail struct {
	Product
	ColorIDs []int `json:"colorIds"`
}

// ProductInput carries the writable product fields of a create or update
// request. The image payload travels separately as an ImageUpload.
type ProductInput struct {
	Name         string
	Price        decimal.Decimal
	Features     string
	PurchaseDate *time.Time
	Description  string
	Size         string
	ColorIDs     []int
}

// ImageUpload is an uploaded image payload.
type ImageUpload struct {
	Filename string
	Data     io.Reader
}

// ListParams are the parsed filter, sort and pagination parameters of a
// product listing request. Pointer fields are absent when nil.
type ListParams struct {
	Search    string
	FromDate  *time.Time
	ToDate    *time.Time
	Features  string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// ListResult is a page of products together with the total match count
// across all pages.
type ListResult struct {
	Data         []ProductListItem `json:"data"`
	TotalRecords int               `json:"totalRecords"`
}

// PriceRange holds the catalog price bounds rounded to thousands.
type PriceRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

/*
Schema MySQL for the catalog tables:

CREATE TABLE `products` (
  `id` int(11) NOT NULL AUTO_INCREMENT,
  `name` varchar(255) NOT NULL,
  `price` decimal(16,2) NOT NULL,
  `features` text,
  `purchase_date` datetime,
  `description` text,
  `size` varchar(50) NOT NULL,
  `image_path` varchar(255),
  PRIMARY KEY (`id`)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE `colors` (
  `id` int(11) NOT NULL AUTO_INCREMENT,
  `name` varchar(50) NOT NULL,
  PRIMARY KEY (`id`)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

CREATE TABLE `product_colors` (
  `id` int(11) NOT NULL AUTO_INCREMENT,
  `product_id` int(11) NOT NULL,
  `color_id` int(11) NOT NULL,
  PRIMARY KEY (`id`),
  FOREIGN KEY (`product_id`) REFERENCES `products` (`id`) ON DELETE CASCADE,
  FOREIGN KEY (`color_id`) REFERENCES `colors` (`id`)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
*/
