package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"product-api/internal/entity"
)

// CatalogService is the use-case surface the HTTP boundary maps routes onto.
type CatalogService interface {
	ListProducts(ctx context.Context, params entity.ListParams) (*entity.ListResult, error)
	GetProductByID(ctx context.Context, id int) (*entity.ProductDetail, error)
	CreateProduct(ctx context.Context, input entity.ProductInput, image *entity.ImageUpload) (*entity.ProductDetail, error)
	UpdateProduct(ctx context.Context, id int, input entity.ProductInput, image *entity.ImageUpload) (*entity.ProductDetail, error)
	DeleteProduct(ctx context.Context, id int) error
	PriceRange(ctx context.Context) (*entity.PriceRange, error)
	ListColors(ctx context.Context) ([]entity.Color, error)
}

type ProductHandler struct {
	productService CatalogService
}

// NewProductHandler creates a new instance of ProductHandler.
func NewProductHandler(productService CatalogService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// RegisterRoutes mounts the catalog routes under /api.
func RegisterRoutes(e *echo.Echo, h *ProductHandler) {
	g := e.Group("/api")
	g.GET("/products", h.GetProducts)
	g.GET("/products/price-range", h.GetPriceRange)
	g.GET("/products/:id", h.GetProductByID)
	g.POST("/products", h.CreateProduct)
	g.PUT("/products/:id", h.UpdateProduct)
	g.DELETE("/products/:id", h.DeleteProduct)
	g.GET("/colors", h.GetColors)
}

// GetProducts lists products with filtering, sorting and pagination --> GET /api/products
func (h *ProductHandler) GetProducts(c echo.Context) error {
	params := parseListParams(c)

	result, err := h.productService.ListProducts(c.Request().Context(), params)
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, result)
}

// GetProductByID returns a single product projection --> GET /api/products/:id
func (h *ProductHandler) GetProductByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}

	detail, err := h.productService.GetProductByID(c.Request().Context(), id)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(200, detail)
}

// CreateProduct creates a product from a multipart form --> POST /api/products
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	input, err := parseProductForm(c)
	if err != nil {
		return c.JSON(400, map[string]string{"error": err.Error()})
	}

	image, closeImage, err := openImageUpload(c)
	if err != nil {
		return c.JSON(500, map[string]string{"error": "failed to read image upload"})
	}
	defer closeImage()

	created, err := h.productService.CreateProduct(c.Request().Context(), input, image)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(200, created)
}

// UpdateProduct overwrites a product from a multipart form --> PUT /api/products/:id
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}

	input, err := parseProductForm(c)
	if err != nil {
		return c.JSON(400, map[string]string{"error": err.Error()})
	}

	image, closeImage, err := openImageUpload(c)
	if err != nil {
		return c.JSON(500, map[string]string{"error": "failed to read image upload"})
	}
	defer closeImage()

	updated, err := h.productService.UpdateProduct(c.Request().Context(), id, input, image)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(200, updated)
}

// DeleteProduct removes a product --> DELETE /api/products/:id
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid product ID"})
	}

	if err := h.productService.DeleteProduct(c.Request().Context(), id); err != nil {
		return writeServiceError(c, err)
	}
	return c.NoContent(200)
}

// GetPriceRange reports rounded catalog price bounds --> GET /api/products/price-range
func (h *ProductHandler) GetPriceRange(c echo.Context) error {
	pr, err := h.productService.PriceRange(c.Request().Context())
	if err != nil {
		if errors.Is(err, entity.ErrEmptyCatalog) {
			return c.JSON(404, map[string]string{"error": err.Error()})
		}
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, pr)
}

// GetColors lists the reference colors --> GET /api/colors
func (h *ProductHandler) GetColors(c echo.Context) error {
	colors, err := h.productService.ListColors(c.Request().Context())
	if err != nil {
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
	return c.JSON(200, colors)
}

func parseListParams(c echo.Context) entity.ListParams {
	params := entity.ListParams{
		Search:    c.QueryParam("search"),
		Features:  c.QueryParam("features"),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
		Page:      1,
		PageSize:  10,
	}

	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.Page = n
		}
	}
	if v := c.QueryParam("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			params.PageSize = n
		}
	}

	params.FromDate = parseDate(c.QueryParam("fromDate"))
	params.ToDate = parseDate(c.QueryParam("toDate"))
	params.MinPrice = parsePrice(c.QueryParam("minPrice"))
	params.MaxPrice = parsePrice(c.QueryParam("maxPrice"))

	return params
}

// parseDate accepts a plain date or an RFC3339 timestamp; malformed values
// are treated as absent.
func parseDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t
		}
	}
	return nil
}

func parsePrice(v string) *decimal.Decimal {
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil
	}
	return &d
}

func parseProductForm(c echo.Context) (entity.ProductInput, error) {
	input := entity.ProductInput{
		Name:        c.FormValue("name"),
		Features:    c.FormValue("features"),
		Description: c.FormValue("description"),
		Size:        c.FormValue("size"),
	}

	if v := c.FormValue("price"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil {
			return input, errors.New("invalid price")
		}
		input.Price = price
	}

	input.PurchaseDate = parseDate(c.FormValue("purchaseDate"))

	form, err := c.FormParams()
	if err != nil {
		return input, errors.New("invalid form payload")
	}
	for _, v := range form["colorIds"] {
		colorID, err := strconv.Atoi(v)
		if err != nil {
			return input, errors.New("invalid color id")
		}
		input.ColorIDs = append(input.ColorIDs, colorID)
	}

	return input, nil
}

// openImageUpload returns the optional image file from the form. A missing
// file is not an error; the returned closer is always safe to defer.
func openImageUpload(c echo.Context) (*entity.ImageUpload, func(), error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return nil, func() {}, nil
	}

	src, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &entity.ImageUpload{Filename: fh.Filename, Data: src}, func() { src.Close() }, nil
}

func writeServiceError(c echo.Context, err error) error {
	var validationErr *entity.ValidationError
	switch {
	case errors.Is(err, entity.ErrProductNotFound):
		return c.JSON(404, map[string]string{"error": err.Error()})
	case errors.As(err, &validationErr):
		return c.JSON(400, map[string]string{"error": err.Error()})
	default:
		return c.JSON(500, map[string]string{"error": err.Error()})
	}
}
